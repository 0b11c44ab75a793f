package invoice

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// ParserVersion is stamped on every Document.
const ParserVersion = "2.0"

// Document is the persisted result of processing one source file.
type Document struct {
	ID            string           `json:"id"`
	Source        string           `json:"source"`
	Engine        string           `json:"engine"`
	Enhanced      bool             `json:"enhanced"`
	Profile       string           `json:"profile"`
	ProcessedAt   time.Time        `json:"processed_at"`
	ParserVersion string           `json:"parser_version"`
	PageCount     int              `json:"page_count"`
	Confidence    float64          `json:"confidence"`
	TotalFields   int              `json:"total_fields"`
	FilledFields  int              `json:"filled_fields"`
	Record        Record           `json:"record"`
	Validation    ValidationReport `json:"validation"`
	RawText       string           `json:"raw_text"`
}

// NewDocument wraps rec with fresh metadata and a validation report.
func NewDocument(source string, rec Record, processedAt time.Time) *Document {
	d := &Document{
		ID:            uuid.NewString(),
		Source:        source,
		ProcessedAt:   processedAt.UTC(),
		ParserVersion: ParserVersion,
		Record:        rec,
	}
	d.Refresh(Validator{Tolerance: DefaultTolerance}, nil)
	return d
}

// Refresh recomputes the field counts and validation report from the
// current record. Extra warnings are appended to the report.
func (d *Document) Refresh(v Validator, warnings []string) {
	d.TotalFields = len(Fields)
	d.FilledFields = d.Record.FilledCount()
	for _, f := range v.Synthetic {
		if d.Record.Present(f) {
			d.FilledFields--
		}
	}
	d.Validation = v.Validate(d.Record)
	d.Validation.Warnings = append(d.Validation.Warnings, warnings...)
}

// WriteJSON writes d as indented JSON.
func (d *Document) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	return nil
}

// ReadDocument decodes a Document written by WriteJSON.
func ReadDocument(r io.Reader) (*Document, error) {
	var d Document
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return &d, nil
}
