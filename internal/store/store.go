// Package store persists processed invoice documents.
//
// Three backends share the Store interface: a directory of JSON files
// (the default, one file per document), an embedded SQLite database and a
// PostgreSQL database reached through gorm. Every backend keeps the full
// Document as JSON so reads round-trip losslessly; the relational
// backends add indexed summary columns for listing.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/thai-invoice-ocr/internal/invoice"
	"github.com/ironsheep/thai-invoice-ocr/internal/logging"
)

// ErrNotFound is returned by Get for an unknown document id.
var ErrNotFound = errors.New("document not found")

// Store saves and loads documents. Implementations are safe for
// concurrent use.
type Store interface {
	// Save inserts doc or replaces the document with the same id.
	Save(ctx context.Context, doc *invoice.Document) error
	Get(ctx context.Context, id string) (*invoice.Document, error)

	// List returns summaries newest first.
	List(ctx context.Context, opts ListOptions) ([]Summary, error)
	Close() error
}

// ListOptions pages through List results.
type ListOptions struct {
	Limit  int
	Offset int
}

// DefaultListLimit applies when ListOptions.Limit is zero.
const DefaultListLimit = 50

func (o ListOptions) limit() int {
	if o.Limit <= 0 {
		return DefaultListLimit
	}
	return o.Limit
}

// Summary is the listing view of a document.
type Summary struct {
	ID            string    `json:"id"`
	Source        string    `json:"source"`
	InvoiceNumber string    `json:"invoice_number"`
	IssueDate     string    `json:"issue_date"`
	Organization  string    `json:"organization"`
	TaxID         string    `json:"tax_id"`
	TotalAmount   string    `json:"total_amount"`
	Confidence    float64   `json:"confidence"`
	ProcessedAt   time.Time `json:"processed_at"`
}

// Summarize builds the listing view of doc.
func Summarize(doc *invoice.Document) Summary {
	return Summary{
		ID:            doc.ID,
		Source:        doc.Source,
		InvoiceNumber: doc.Record.InvoiceNumber,
		IssueDate:     doc.Record.IssueDate,
		Organization:  doc.Record.Organization,
		TaxID:         doc.Record.TaxID,
		TotalAmount:   doc.Record.TotalAmount,
		Confidence:    doc.Confidence,
		ProcessedAt:   doc.ProcessedAt,
	}
}

const (
	DriverFiles    = "files"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects the backend.
type Config struct {
	// Driver is files, sqlite or postgres.
	Driver string `toml:"driver" json:"driver"`

	// Path is the output directory for files, or the database file for
	// sqlite.
	Path string `toml:"path" json:"path"`

	// DSN is the PostgreSQL connection string. DATABASE_URL overrides it.
	DSN string `toml:"-" json:"-"`
}

// DefaultConfig writes JSON files to ./output.
func DefaultConfig() Config {
	return Config{Driver: DriverFiles, Path: "output"}
}

// Open opens the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config, log *logrus.Entry) (Store, error) {
	log = logging.OrNop(log)

	var (
		s   Store
		err error
	)
	switch strings.ToLower(cfg.Driver) {
	case "", DriverFiles:
		s, err = OpenFiles(cfg.Path)
	case DriverSQLite:
		s, err = OpenSQLite(ctx, cfg.Path)
	case DriverPostgres:
		s, err = OpenPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"driver": cfg.Driver, "path": cfg.Path}).Debug("Store opened")
	return s, nil
}
