package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/ironsheep/thai-invoice-ocr/internal/invoice"
)

// documentRow is the documents table of the PostgreSQL backend.
type documentRow struct {
	ID            string `gorm:"primaryKey;size:36"`
	Source        string `gorm:"not null"`
	InvoiceNumber string `gorm:"index"`
	IssueDate     string
	Organization  string
	TaxID         string `gorm:"index;size:13"`
	TotalAmount   string
	Confidence    float64
	ProcessedAt   time.Time `gorm:"index;not null"`
	Body          string    `gorm:"type:jsonb;not null"`
}

func (documentRow) TableName() string { return "documents" }

func rowOf(doc *invoice.Document) (documentRow, error) {
	var body bytes.Buffer
	if err := doc.WriteJSON(&body); err != nil {
		return documentRow{}, err
	}
	sum := Summarize(doc)
	return documentRow{
		ID:            sum.ID,
		Source:        sum.Source,
		InvoiceNumber: sum.InvoiceNumber,
		IssueDate:     sum.IssueDate,
		Organization:  sum.Organization,
		TaxID:         sum.TaxID,
		TotalAmount:   sum.TotalAmount,
		Confidence:    sum.Confidence,
		ProcessedAt:   sum.ProcessedAt.UTC(),
		Body:          body.String(),
	}, nil
}

func (r documentRow) summary() Summary {
	return Summary{
		ID:            r.ID,
		Source:        r.Source,
		InvoiceNumber: r.InvoiceNumber,
		IssueDate:     r.IssueDate,
		Organization:  r.Organization,
		TaxID:         r.TaxID,
		TotalAmount:   r.TotalAmount,
		Confidence:    r.Confidence,
		ProcessedAt:   r.ProcessedAt.UTC(),
	}
}

func (r documentRow) document() (*invoice.Document, error) {
	return invoice.ReadDocument(strings.NewReader(r.Body))
}

// Postgres stores documents through gorm.
type Postgres struct {
	db *gorm.DB
}

// OpenPostgres connects to dsn and migrates the documents table.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("postgres store requires DATABASE_URL")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return newPostgres(ctx, db)
}

func newPostgres(ctx context.Context, db *gorm.DB) (*Postgres, error) {
	if err := db.WithContext(ctx).AutoMigrate(&documentRow{}); err != nil {
		return nil, fmt.Errorf("migrating documents table: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (s *Postgres) Save(ctx context.Context, doc *invoice.Document) error {
	if doc.ID == "" {
		return errors.New("document has no id")
	}
	row, err := rowOf(doc)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, id string) (*invoice.Document, error) {
	var row documentRow
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return row.document()
}

func (s *Postgres) List(ctx context.Context, opts ListOptions) ([]Summary, error) {
	var rows []documentRow
	err := s.db.WithContext(ctx).
		Omit("body").
		Order("processed_at DESC").Order("id").
		Limit(opts.limit()).Offset(opts.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	out := make([]Summary, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.summary())
	}
	return out, nil
}

func (s *Postgres) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
