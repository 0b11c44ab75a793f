package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ironsheep/thai-invoice-ocr/internal/invoice"
	"github.com/ironsheep/thai-invoice-ocr/internal/store/migrations"
)

// DefaultSQLitePath is used when the sqlite driver has no path.
const DefaultSQLitePath = "output/invoices.db"

// timeLayout sorts lexically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite stores documents in a single database file.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database at path and applies pending
// migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		path = DefaultSQLitePath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	s := &SQLite{db: db, path: path}
	if err := s.migrate(ctx, migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	return s.path
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// migrate runs every *.up.sql newer than the recorded schema version, each
// in its own transaction.
func (s *SQLite) migrate(ctx context.Context, fsys fs.FS) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	row := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.apply(ctx, version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}
	return nil
}

func (s *SQLite) apply(ctx context.Context, version int, script string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
		version, time.Now().UTC().Format(timeLayout)); err != nil {
		return err
	}
	return tx.Commit()
}

// SchemaVersion reports the highest applied migration.
func (s *SQLite) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v)
	return v, err
}

func (s *SQLite) Save(ctx context.Context, doc *invoice.Document) error {
	if doc.ID == "" {
		return errors.New("document has no id")
	}
	var body bytes.Buffer
	if err := doc.WriteJSON(&body); err != nil {
		return err
	}

	sum := Summarize(doc)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, source, invoice_number, issue_date, organization, tax_id, total_amount, confidence, processed_at, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			invoice_number = excluded.invoice_number,
			issue_date = excluded.issue_date,
			organization = excluded.organization,
			tax_id = excluded.tax_id,
			total_amount = excluded.total_amount,
			confidence = excluded.confidence,
			processed_at = excluded.processed_at,
			body = excluded.body
	`, sum.ID, sum.Source, sum.InvoiceNumber, sum.IssueDate, sum.Organization, sum.TaxID,
		sum.TotalAmount, sum.Confidence, sum.ProcessedAt.UTC().Format(timeLayout), body.String())
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, id string) (*invoice.Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx, "SELECT body FROM documents WHERE id = ?", id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return invoice.ReadDocument(strings.NewReader(body))
}

func (s *SQLite) List(ctx context.Context, opts ListOptions) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, invoice_number, issue_date, organization, tax_id, total_amount, confidence, processed_at
		FROM documents
		ORDER BY processed_at DESC, id
		LIMIT ? OFFSET ?
	`, opts.limit(), opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var (
			sum       Summary
			processed string
		)
		if err := rows.Scan(&sum.ID, &sum.Source, &sum.InvoiceNumber, &sum.IssueDate,
			&sum.Organization, &sum.TaxID, &sum.TotalAmount, &sum.Confidence, &processed); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		if sum.ProcessedAt, err = time.Parse(timeLayout, processed); err != nil {
			return nil, fmt.Errorf("parsing processed_at of %s: %w", sum.ID, err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}
