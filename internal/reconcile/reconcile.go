// Package reconcile finalizes extracted invoice records: it derives a
// missing amount from the other two, checks existing amounts for
// consistency, cross-fills dates and scores completeness.
//
// Reconcile never fails. Every problem becomes a warning and every field
// keeps either its original, a computed, or its default value.
package reconcile

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/thai-invoice-ocr/internal/extract"
	"github.com/ironsheep/thai-invoice-ocr/internal/invoice"
	"github.com/ironsheep/thai-invoice-ocr/internal/logging"
)

// DefaultTolerance is the allowed gap between subtotal+VAT and total.
const DefaultTolerance = invoice.DefaultTolerance

// ConfidenceFields are the fields scored by Confidence.
var ConfidenceFields = []invoice.Field{
	invoice.FieldIssueDate,
	invoice.FieldInvoiceNumber,
	invoice.FieldTaxID,
	invoice.FieldOrganization,
	invoice.FieldSubtotal,
	invoice.FieldVATAmount,
	invoice.FieldTotalAmount,
}

// Options configures a Reconciler.
type Options struct {
	// Tolerance is the allowed gap between subtotal+VAT and total.
	// Zero means DefaultTolerance.
	Tolerance invoice.Amount

	// Now supplies the fallback issue date. Defaults to time.Now.
	Now func() time.Time

	Log *logrus.Entry
}

// Result is a finalized record.
type Result struct {
	Record invoice.Record `json:"record"`

	// Confidence is the share of ConfidenceFields holding real values.
	Confidence float64 `json:"confidence"`

	// Derived lists amount fields computed from the other two.
	Derived []invoice.Field `json:"derived,omitempty"`

	// Synthetic lists fields holding generated or clock-derived values.
	// They never count as filled.
	Synthetic []invoice.Field `json:"synthetic,omitempty"`

	Warnings []string `json:"warnings,omitempty"`
}

// Reconciler finalizes extraction results.
type Reconciler struct {
	tolerance invoice.Amount
	now       func() time.Time
	log       *logrus.Entry
}

// New returns a Reconciler.
func New(opts Options) *Reconciler {
	r := &Reconciler{
		tolerance: opts.Tolerance,
		now:       opts.Now,
		log:       logging.OrNop(opts.Log),
	}
	if r.tolerance <= 0 {
		r.tolerance = DefaultTolerance
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Tolerance returns the configured consistency tolerance.
func (r *Reconciler) Tolerance() invoice.Amount {
	return r.tolerance
}

// Reconcile finalizes ext.Record.
func (r *Reconciler) Reconcile(ext extract.Result) Result {
	res := Result{
		Record:    ext.Record,
		Synthetic: append([]invoice.Field(nil), ext.Generated...),
	}
	for _, w := range ext.Warnings {
		res.Warnings = append(res.Warnings, w.Error())
	}

	r.reconcileAmounts(&res)
	r.fillDates(&res)
	invoice.ApplyDefaults(&res.Record)
	res.Confidence = Confidence(res.Record, res.Synthetic...)

	r.log.WithFields(logrus.Fields{
		"confidence": fmt.Sprintf("%.2f", res.Confidence),
		"derived":    res.Derived,
		"warnings":   len(res.Warnings),
	}).Info("record reconciled")
	return res
}

func (r *Reconciler) reconcileAmounts(res *Result) {
	rec := &res.Record
	fields := []invoice.Field{invoice.FieldSubtotal, invoice.FieldVATAmount, invoice.FieldTotalAmount}
	values := make([]invoice.Amount, len(fields))
	present := 0
	for i, f := range fields {
		raw := rec.Get(f)
		if raw == "" {
			continue
		}
		a, err := invoice.ParseAmount(raw)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: ignoring unparseable amount %q", f, raw))
			_ = rec.Set(f, invoice.ZeroAmount)
			continue
		}
		values[i] = a
		if !a.IsZero() {
			present++
		}
	}
	subtotal, vat, total := values[0], values[1], values[2]

	switch present {
	case 2:
		var (
			field invoice.Field
			value invoice.Amount
		)
		switch {
		case total.IsZero():
			field, value = invoice.FieldTotalAmount, subtotal+vat
		case vat.IsZero():
			field, value = invoice.FieldVATAmount, total-subtotal
		default:
			field, value = invoice.FieldSubtotal, total-vat
		}
		if value <= 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: derived value %s is not positive, left unset", field, value))
			return
		}
		_ = rec.Set(field, value.String())
		res.Derived = append(res.Derived, field)
		r.log.WithFields(logrus.Fields{"field": field, "value": value.String()}).Debug("amount derived")

	case 3:
		if gap := (subtotal + vat - total).Abs(); gap > r.tolerance {
			msg := fmt.Sprintf("subtotal %s + vat %s differs from total %s by %s", subtotal, vat, total, gap)
			res.Warnings = append(res.Warnings, msg)
			r.log.WithField("gap", gap.String()).Warn("amounts inconsistent")
		}
	}
}

func (r *Reconciler) fillDates(res *Result) {
	rec := &res.Record
	if rec.IssueDate == "" {
		rec.IssueDate = r.now().Format(invoice.DateLayout)
		res.Synthetic = append(res.Synthetic, invoice.FieldIssueDate)
		res.Warnings = append(res.Warnings, "issue_date: not found, using processing date")
	}
	if rec.DueDate == "" {
		rec.DueDate = rec.IssueDate
	}
	if rec.TaxDate == "" {
		rec.TaxDate = rec.IssueDate
	}
}

// Confidence returns the share of ConfidenceFields in rec holding a value
// other than "" or "0.00". Fields listed in synthetic never count.
func Confidence(rec invoice.Record, synthetic ...invoice.Field) float64 {
	skip := make(map[invoice.Field]bool, len(synthetic))
	for _, f := range synthetic {
		skip[f] = true
	}
	filled := 0
	for _, f := range ConfidenceFields {
		if skip[f] {
			continue
		}
		if v := rec.Get(f); v != "" && v != invoice.ZeroAmount {
			filled++
		}
	}
	return float64(filled) / float64(len(ConfidenceFields))
}
