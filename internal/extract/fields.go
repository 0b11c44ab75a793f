package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/ironsheep/thai-invoice-ocr/internal/invoice"
)

var (
	invoiceLabels = `(?:เลขที่ใบกำกับภาษี|เลขที่บิล|เลขที่|หมายเลข|เลขบิล|(?i:\b(?:tax\s*)?(?:invoice|bill)\s*no\b\.?|\bno\b\.?))`

	invoiceLabelledLocal = regexp.MustCompile(invoiceLabels + `\s*[:#]?\s*([A-Z]{1,3} ?\d{2}[- ]*\d{6,})`)
	invoiceBareLocal     = regexp.MustCompile(`\b([A-Z]{1,3} ?\d{2}[- ]*\d{6,})`)
	invoiceLabelledCode  = regexp.MustCompile(invoiceLabels + `\s*[:#]?\s*([A-Za-z0-9][A-Za-z0-9\-/]*)`)
	invoiceBareCode      = regexp.MustCompile(`\b([A-Z]{2,4}[\-/]?\d{6,})`)
	invoiceLongDigits    = regexp.MustCompile(`(?:^|\D)(\d{12,})(?:\D|$)`)
	invoiceLocalShape    = regexp.MustCompile(`^[A-Z]{1,3}\d{2}-*\d{6,}$`)

	referenceLabelled = regexp.MustCompile(`(?i)(?:เอกสารอ้างอิง|อ้างอิง|\b(?:reference|ref)\b\.?)\s*[:#]?\s*([A-Z0-9][A-Z0-9\-/]*)`)

	taxIDLabelled = regexp.MustCompile(`(?i)(?:เลขประจำตัวผู้เสียภาษี(?:อากร)?|เลขประจำตัว|\btax\s*id\b|\btax\s*no\b\.?)\s*[:.]?\s*((?:\d[ \-]?){8,20})`)
	taxIDBare     = regexp.MustCompile(`(?:^|\D)((?:\d[ \-]?){12}\d)(?:\D|$)`)

	phoneLandline = regexp.MustCompile(`(?:^|\D)(0[2-9][ \-]*\d{3}[ \-]*\d{4})(?:\D|$)`)
	phoneMobile   = regexp.MustCompile(`(?:^|\D)(0[6-9][ \-]*\d[ \-]*\d{3}[ \-]*\d{4})(?:\D|$)`)
	phoneBangkok  = regexp.MustCompile(`(?:^|\D)(02[ \-]*\d{3}[ \-]*\d{4})(?:\D|$)`)

	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

	branchNumber = regexp.MustCompile(`สาขา(?:ที่)?\s*[:.]?\s*(\d{1,5})`)
	parenthetic  = regexp.MustCompile(`\([^)]*\)`)
	addressLabel = regexp.MustCompile(`(?i)(?:ที่อยู่|address)\s*[:.]?`)

	vatRatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)vat\s*(\d{1,2})\s*%`),
		regexp.MustCompile(`ภาษี(?:มูลค่าเพิ่ม)?\s*(\d{1,2})\s*%`),
		regexp.MustCompile(`อัตรา\s*(\d{1,2})\s*%`),
	}
)

// HeadOffice is the branch code used for a head office.
const HeadOffice = "00000"

// OrganizationKeywords mark a line naming a company or institution.
var OrganizationKeywords = []string{
	"บริษัท", "ห้างหุ้นส่วน", "ร้าน", "องค์การ", "มหาวิทยาลัย",
	"โรงงาน", "สำนักงาน", "ศูนย์", "สถาบัน",
}

// AddressKeywords mark a line as part of an address.
var AddressKeywords = []string{"ที่อยู่", "จังหวัด", "แขวง", "เขต", "ตำบล", "อำเภอ", "ถนน"}

// ExclusiveTaxIndicators mark prices quoted before VAT.
var ExclusiveTaxIndicators = []string{"ไม่รวมภาษี", "ก่อนภาษี", "excluded", "exclusive", "before tax"}

// organizationScanLines bounds the organization search to the page header.
const organizationScanLines = 10

// acceptInvoiceNumber removes spaces and keeps codes of at least five
// characters that look like a local invoice number, contain a non-digit,
// or are long digit runs.
func acceptInvoiceNumber(raw string) (string, bool) {
	v := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	if len(v) < 5 {
		return "", false
	}
	if invoiceLocalShape.MatchString(v) {
		return v, true
	}
	if digitsOnly(v) != v || len(v) >= 10 {
		return v, true
	}
	return "", false
}

// PlaceholderInvoiceNumber returns the generated number used when no
// invoice number is found.
func PlaceholderInvoiceNumber(day time.Time) string {
	return fmt.Sprintf("%s%s001", invoice.DefaultSeries, day.Format("20060102"))
}

// InvoiceNumberStrategies returns the invoice number cascade. The final
// strategy always matches with a placeholder built from now.
func InvoiceNumberStrategies(now func() time.Time) []Strategy {
	return []Strategy{
		firstSubmatch("labelled-local", invoiceLabelledLocal, acceptInvoiceNumber),
		firstSubmatch("bare-local", invoiceBareLocal, acceptInvoiceNumber),
		firstSubmatch("labelled-code", invoiceLabelledCode, acceptInvoiceNumber),
		firstSubmatch("bare-code", invoiceBareCode, acceptInvoiceNumber),
		{
			Name: "long-digits",
			Find: func(t *Text) (string, []MalformedField) {
				taxID, _ := labelledTaxID(t)
				for _, m := range invoiceLongDigits.FindAllStringSubmatch(t.Full, -1) {
					if m[1] != taxID {
						return m[1], nil
					}
				}
				return "", nil
			},
		},
		{
			Name: PlaceholderStrategy,
			Find: func(*Text) (string, []MalformedField) {
				return PlaceholderInvoiceNumber(now()), nil
			},
		},
	}
}

// PlaceholderStrategy names the strategy that generates invoice numbers.
const PlaceholderStrategy = "placeholder"

// ReferenceStrategies returns the reference document cascade.
func ReferenceStrategies() []Strategy {
	return []Strategy{firstSubmatch("reference-label", referenceLabelled, nil)}
}

// TaxIDStrategies returns the tax id cascade: a labelled digit run, then
// any bare 13-digit run. A labelled run that does not strip to 13 digits
// is reported as malformed.
func TaxIDStrategies() []Strategy {
	return []Strategy{
		{Name: "tax-id-label", Find: labelledTaxID},
		firstSubmatch("tax-id-bare", taxIDBare, func(raw string) (string, bool) {
			digits := stripSeparators(raw)
			return digits, invoice.ValidTaxID(digits)
		}),
	}
}

// labelledTaxID returns the first labelled digit run that strips to 13
// digits. Labelled runs of another length are reported as malformed.
func labelledTaxID(t *Text) (string, []MalformedField) {
	var issues []MalformedField
	for _, m := range taxIDLabelled.FindAllStringSubmatch(t.Full, -1) {
		raw := strings.TrimSpace(m[1])
		digits := stripSeparators(raw)
		if invoice.ValidTaxID(digits) {
			return digits, issues
		}
		issues = append(issues, MalformedField{
			Field:  invoice.FieldTaxID,
			Value:  raw,
			Reason: fmt.Sprintf("expected 13 digits, found %d", len(digits)),
		})
	}
	return "", issues
}

func acceptPhone(raw string) (string, bool) {
	v := digitsOnly(raw)
	return v, len(v) >= 9
}

// TelephoneStrategies returns landline, mobile and Bangkok patterns in that
// order. Separators are stripped from the match.
func TelephoneStrategies() []Strategy {
	return []Strategy{
		firstSubmatch("landline", phoneLandline, acceptPhone),
		firstSubmatch("mobile", phoneMobile, acceptPhone),
		firstSubmatch("bangkok", phoneBangkok, acceptPhone),
	}
}

// EmailStrategies returns the email cascade.
func EmailStrategies() []Strategy {
	return []Strategy{{
		Name: "email",
		Find: func(t *Text) (string, []MalformedField) {
			return emailPattern.FindString(t.Full), nil
		},
	}}
}

// OrganizationStrategies returns the organization cascade: the first header
// line containing an organization keyword, without parenthetical notes.
func OrganizationStrategies() []Strategy {
	return []Strategy{{
		Name: "organization-keyword",
		Find: func(t *Text) (string, []MalformedField) {
			for i, line := range t.Lines {
				if i >= organizationScanLines {
					break
				}
				if !containsAny(line, OrganizationKeywords) {
					continue
				}
				name := strings.Join(strings.Fields(parenthetic.ReplaceAllString(line, "")), " ")
				if name != "" {
					return name, nil
				}
			}
			return "", nil
		},
	}}
}

// thaiLeadingVowels are written before the consonant they follow in speech.
const thaiLeadingVowels = "เแโใไ"

// ContactCode derives a short code from an organization name: the
// uppercased initials of its first three words once the corporate
// designators are removed. Thai leading vowels are skipped so the initial
// is a consonant.
func ContactCode(organization string) string {
	s := strings.NewReplacer("บริษัท", " ", "จำกัด", " ", "(มหาชน)", " ").Replace(organization)
	words := strings.Fields(s)
	if len(words) > 3 {
		words = words[:3]
	}
	var b strings.Builder
	for _, w := range words {
		w = strings.TrimLeft(w, thaiLeadingVowels)
		if w == "" {
			continue
		}
		r, _ := utf8.DecodeRuneInString(w)
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// BranchStrategies returns the branch cascade: an explicit branch number,
// then the head office marker.
func BranchStrategies() []Strategy {
	return []Strategy{
		firstSubmatch("branch-number", branchNumber, func(raw string) (string, bool) {
			return leftPad(raw, len(HeadOffice)), true
		}),
		{
			Name: "head-office",
			Find: func(t *Text) (string, []MalformedField) {
				if strings.Contains(t.Full, "สำนักงานใหญ่") || strings.Contains(strings.ToLower(t.Full), "head office") {
					return HeadOffice, nil
				}
				return "", nil
			},
		},
	}
}

// AddressStrategies joins up to three lines containing address keywords.
func AddressStrategies() []Strategy {
	return []Strategy{{
		Name: "address-keywords",
		Find: func(t *Text) (string, []MalformedField) {
			var parts []string
			for _, line := range t.Lines {
				if !containsAny(line, AddressKeywords) && !strings.Contains(strings.ToLower(line), "address") {
					continue
				}
				if cleaned := strings.TrimSpace(addressLabel.ReplaceAllString(line, "")); cleaned != "" {
					parts = append(parts, cleaned)
				}
				if len(parts) == 3 {
					break
				}
			}
			return strings.Join(parts, " "), nil
		},
	}}
}

// TaxOptionStrategies returns "ex" when the text quotes prices before VAT.
// Inclusive is the default and needs no match.
func TaxOptionStrategies() []Strategy {
	return []Strategy{{
		Name: "exclusive-indicator",
		Find: func(t *Text) (string, []MalformedField) {
			if containsAny(strings.ToLower(t.Full), ExclusiveTaxIndicators) {
				return invoice.TaxExclusive, nil
			}
			return "", nil
		},
	}}
}

// VATRateStrategies returns the VAT rate cascade.
func VATRateStrategies() []Strategy {
	out := make([]Strategy, 0, len(vatRatePatterns))
	for i, re := range vatRatePatterns {
		out = append(out, firstSubmatch(fmt.Sprintf("vat-rate-%d", i+1), re, func(raw string) (string, bool) {
			v := strings.TrimLeft(raw, "0")
			return v, v != ""
		}))
	}
	return out
}

func leftPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
