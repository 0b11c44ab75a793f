package invoice

import (
	"fmt"
	"time"
)

// DateLayout is the layout of every date field.
const DateLayout = "2006-01-02"

// DefaultTolerance is the allowed gap between subtotal+VAT and total.
const DefaultTolerance Amount = 10

// RequiredFields must be present for a record to validate.
var RequiredFields = []Field{FieldIssueDate, FieldInvoiceNumber, FieldTaxID}

// Issue describes a problem with a single field.
type Issue struct {
	Field   Field  `json:"field"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Field, i.Message)
}

// ValidationReport lists the problems found in a record.
type ValidationReport struct {
	MissingRequired []Field  `json:"missing_required"`
	Malformed       []Issue  `json:"malformed"`
	Inconsistent    []Issue  `json:"inconsistent"`
	Warnings        []string `json:"warnings"`
}

// OK reports whether the record has no missing or malformed fields.
// Inconsistencies and warnings do not fail a record.
func (v ValidationReport) OK() bool {
	return len(v.MissingRequired) == 0 && len(v.Malformed) == 0
}

// Validator checks records against a consistency tolerance.
type Validator struct {
	Tolerance Amount

	// Synthetic fields hold generated or clock-derived values. A required
	// synthetic field is reported missing.
	Synthetic []Field
}

func (v Validator) synthetic(f Field) bool {
	for _, s := range v.Synthetic {
		if s == f {
			return true
		}
	}
	return false
}

// Validate checks r with DefaultTolerance.
func Validate(r Record) ValidationReport {
	return Validator{Tolerance: DefaultTolerance}.Validate(r)
}

// Validate checks r for missing required fields, malformed dates, tax id
// and amounts, and inconsistent totals.
func (v Validator) Validate(r Record) ValidationReport {
	report := ValidationReport{
		MissingRequired: []Field{},
		Malformed:       []Issue{},
		Inconsistent:    []Issue{},
		Warnings:        []string{},
	}

	for _, f := range RequiredFields {
		if !r.Present(f) || v.synthetic(f) {
			report.MissingRequired = append(report.MissingRequired, f)
		}
	}

	for _, f := range DateFields {
		val := r.Get(f)
		if val == "" {
			continue
		}
		if _, err := time.Parse(DateLayout, val); err != nil {
			report.Malformed = append(report.Malformed, Issue{f, fmt.Sprintf("invalid date %q", val)})
		}
	}

	if r.TaxID != "" && !ValidTaxID(r.TaxID) {
		report.Malformed = append(report.Malformed, Issue{FieldTaxID, fmt.Sprintf("tax id %q is not 13 digits", r.TaxID)})
	}

	amountsOK := true
	for _, f := range AmountFields {
		val := r.Get(f)
		if val == "" {
			continue
		}
		if _, err := ParseAmount(val); err != nil {
			amountsOK = false
			report.Malformed = append(report.Malformed, Issue{f, fmt.Sprintf("invalid amount %q", val)})
		}
	}
	if !amountsOK {
		return report
	}

	subtotal := AmountOf(r, FieldSubtotal)
	vat := AmountOf(r, FieldVATAmount)
	total := AmountOf(r, FieldTotalAmount)

	if !total.IsZero() && total < subtotal {
		report.Inconsistent = append(report.Inconsistent, Issue{FieldTotalAmount,
			fmt.Sprintf("total %s is less than subtotal %s", total, subtotal)})
	}
	if !subtotal.IsZero() && !vat.IsZero() && !total.IsZero() {
		if gap := (subtotal + vat - total).Abs(); gap > v.Tolerance {
			report.Inconsistent = append(report.Inconsistent, Issue{FieldTotalAmount,
				fmt.Sprintf("subtotal %s + vat %s differs from total %s by %s", subtotal, vat, total, gap)})
		}
	}
	return report
}

// ValidTaxID reports whether s is exactly 13 ASCII digits.
func ValidTaxID(s string) bool {
	return len(s) == 13 && allDigits(s)
}
