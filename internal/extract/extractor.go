package extract

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/thai-invoice-ocr/internal/invoice"
	"github.com/ironsheep/thai-invoice-ocr/internal/logging"
)

// Options configures an Extractor.
type Options struct {
	// Now supplies the date for generated invoice numbers. Defaults to
	// time.Now.
	Now func() time.Time

	// Log receives per-field debug entries. Nil discards them.
	Log *logrus.Entry
}

// Result is the output of Extract.
type Result struct {
	// Record has every matched field set and defaults applied to the rest.
	// IssueDate, DueDate and TaxDate stay empty when no date was found.
	Record invoice.Record

	// Strategies maps each matched field to the strategy that matched it.
	Strategies map[invoice.Field]string

	// Generated lists fields filled with synthetic values.
	Generated []invoice.Field

	// Warnings lists candidates rejected as malformed.
	Warnings []MalformedField
}

// Matched reports whether f was found in the text.
func (r Result) Matched(f invoice.Field) bool {
	_, ok := r.Strategies[f]
	return ok
}

// Extractor turns recognized text into an invoice record by running one
// strategy cascade per field.
type Extractor struct {
	now      func() time.Time
	log      *logrus.Entry
	cascades []Cascade
}

// New returns an Extractor with the standard cascades.
func New(opts Options) *Extractor {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Extractor{
		now: now,
		log: logging.OrNop(opts.Log),
		cascades: []Cascade{
			{invoice.FieldIssueDate, IssueDateStrategies()},
			{invoice.FieldDueDate, DueDateStrategies()},
			{invoice.FieldInvoiceNumber, InvoiceNumberStrategies(now)},
			{invoice.FieldReference, ReferenceStrategies()},
			{invoice.FieldOrganization, OrganizationStrategies()},
			{invoice.FieldBranch, BranchStrategies()},
			{invoice.FieldAddress, AddressStrategies()},
			{invoice.FieldEmail, EmailStrategies()},
			{invoice.FieldTelephone, TelephoneStrategies()},
			{invoice.FieldTaxID, TaxIDStrategies()},
			{invoice.FieldTaxOption, TaxOptionStrategies()},
			{invoice.FieldVATRate, VATRateStrategies()},
			{invoice.FieldSubtotal, SubtotalStrategies()},
			{invoice.FieldVATAmount, VATStrategies()},
			{invoice.FieldTotalAmount, TotalStrategies()},
		},
	}
}

// Cascades returns the field cascades in evaluation order.
func (e *Extractor) Cascades() []Cascade {
	return e.cascades
}

// Extract parses raw recognized text. It never fails: fields without a
// match keep their documented defaults.
func (e *Extractor) Extract(raw string) Result {
	text := NewText(raw)
	res := Result{Strategies: make(map[invoice.Field]string)}

	for _, c := range e.cascades {
		out := c.Run(text)
		res.Warnings = append(res.Warnings, out.Issues...)
		if out.Value == "" {
			continue
		}
		_ = res.Record.Set(c.Field, out.Value)
		if out.Strategy == PlaceholderStrategy {
			res.Generated = append(res.Generated, c.Field)
		} else {
			res.Strategies[c.Field] = out.Strategy
		}
		e.log.WithFields(logrus.Fields{
			"field":    c.Field,
			"strategy": out.Strategy,
		}).Debug("field extracted")
	}

	if org := res.Record.Organization; org != "" {
		res.Record.Name = org
		res.Record.Title = ContactCode(org)
	}

	for _, w := range res.Warnings {
		e.log.WithFields(logrus.Fields{
			"field": w.Field,
			"value": w.Value,
		}).Warn(w.Reason)
	}

	invoice.ApplyDefaults(&res.Record)

	e.log.WithFields(logrus.Fields{
		"matched":   len(res.Strategies),
		"generated": len(res.Generated),
		"warnings":  len(res.Warnings),
	}).Info("extraction complete")
	return res
}
