package refine

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/thai-invoice-ocr/internal/invoice"
	"github.com/ironsheep/thai-invoice-ocr/internal/logging"
)

var (
	ctNumber   = regexp.MustCompile(`(?:เลขที่บิล|เลขทีบิล|เลขที่)[^\n]*?([Cc][Tt]\s*\d{2}[\-\s]*\d{6})`)
	orgTail    = regexp.MustCompile(`\s*(?:ใบ|ที่อยู่|โทร).*$`)
	separators = regexp.MustCompile(`[\s\-]+`)
)

// maxOrgWords caps a cleaned organization name.
const maxOrgWords = 6

// Rules applies deterministic corrections: it recovers CT-style invoice
// numbers, strips separators from ids and phone numbers, converts Buddhist
// era years left in ISO dates, trims trailing noise from the organization
// and derives the document series from the invoice number.
type Rules struct {
	log *logrus.Entry
}

// NewRules returns a rule-based refiner. A nil log discards output.
func NewRules(log *logrus.Entry) *Rules {
	return &Rules{log: logging.OrNop(log)}
}

func (r *Rules) Refine(ctx context.Context, rawText string, rec invoice.Record) (invoice.Record, error) {
	if err := ctx.Err(); err != nil {
		return rec, err
	}
	out := Normalize(rec)

	if m := ctNumber.FindStringSubmatch(rawText); m != nil {
		number := strings.ToUpper(separators.ReplaceAllString(m[1], ""))
		number = number[:4] + "-" + number[4:]
		if number != out.InvoiceNumber {
			r.log.WithFields(logrus.Fields{"from": out.InvoiceNumber, "to": number}).Debug("CT invoice number recovered")
			out.InvoiceNumber = number
		}
	}
	out.Series = seriesOf(out.InvoiceNumber, out.Series)
	return out, nil
}

// Normalize cleans the formatting of rec without consulting the text.
func Normalize(rec invoice.Record) invoice.Record {
	rec.InvoiceNumber = strings.Join(strings.Fields(rec.InvoiceNumber), "")

	if id := separators.ReplaceAllString(rec.TaxID, ""); invoice.ValidTaxID(id) {
		rec.TaxID = id
	}
	if phone := separators.ReplaceAllString(rec.Telephone, ""); (len(phone) == 9 || len(phone) == 10) && isDigits(phone) {
		rec.Telephone = phone
	}

	for _, f := range invoice.AmountFields {
		if v := rec.Get(f); v != "" {
			if a, err := invoice.ParseAmount(v); err == nil {
				_ = rec.Set(f, a.String())
			}
		}
	}

	for _, f := range invoice.DateFields {
		if v := rec.Get(f); v != "" {
			_ = rec.Set(f, gregorianISO(v))
		}
	}

	if rec.Organization != "" {
		org := orgTail.ReplaceAllString(rec.Organization, "")
		words := strings.Fields(org)
		if len(words) > maxOrgWords {
			words = words[:maxOrgWords]
		}
		if cleaned := strings.Join(words, " "); cleaned != "" {
			rec.Organization = cleaned
			rec.Name = cleaned
		}
	}
	return rec
}

// gregorianISO converts a YYYY-MM-DD date whose year is clearly Buddhist
// era (above 2100) to the Gregorian calendar. Other values pass through.
func gregorianISO(v string) string {
	t, err := time.Parse(invoice.DateLayout, v)
	if err != nil || t.Year() <= 2100 {
		return v
	}
	return t.AddDate(-543, 0, 0).Format(invoice.DateLayout)
}

// seriesOf returns the document series implied by an invoice number.
func seriesOf(number, current string) string {
	switch upper := strings.ToUpper(number); {
	case strings.HasPrefix(upper, "CT"):
		return "CT"
	case strings.HasPrefix(upper, "AP"):
		return "AP"
	}
	return current
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
