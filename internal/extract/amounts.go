package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ironsheep/thai-invoice-ocr/internal/invoice"
)

const amountNumber = `([0-9][0-9,]*(?:\.[0-9]{1,2})?)`

// Upper bounds rejecting spurious amount matches such as tax ids.
const (
	MaxSubtotal invoice.Amount = 10_000_000_00
	MaxVAT      invoice.Amount = 1_000_000_00
	MaxTotal    invoice.Amount = 10_000_000_00
)

var (
	subtotalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:รวมเป็นเงิน|รวมทั้งสิ้น|รวมราคา|\bsub-?\s*total)[\s:]*` + amountNumber),
		regexp.MustCompile(`รวม[\s:]+` + amountNumber),
	}
	vatPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:\bvat|ภาษีมูลค่าเพิ่ม|ภาษี)\s*(?:\d+(?:\.\d+)?\s*%)?[\s:]*` + amountNumber),
		regexp.MustCompile(`(?i)(?:ภาษี|\bvat)\s*` + amountNumber),
	}
	totalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:ยอดเงินสุทธิ|ยอดรวมสุทธิ|จำนวนเงินทั้งสิ้น|\bgrand\s*total|\bnet\s*total|\btotal)[\s:]*` + amountNumber),
		regexp.MustCompile(`(?i)(?:ยอด|\btotal)\s+(?:สุทธิ|รวม)[\s:]*` + amountNumber),
	}
)

// taxLabelPrefixes end a label that continues into ภาษี without naming an
// amount, as in เลขประจำตัวผู้เสียภาษี and ใบกำกับภาษี.
var taxLabelPrefixes = []string{"ผู้เสีย", "ใบกำกับ"}

func insideTaxLabel(before string) bool {
	for _, p := range taxLabelPrefixes {
		if strings.HasSuffix(before, p) {
			return true
		}
	}
	return false
}

// amountStrategy scans every match of re in order and returns the first
// amount inside (0, limit). Numbers followed by "%" are rates, not amounts.
// Matches that begin inside a tax id or tax invoice label are skipped.
func amountStrategy(name string, re *regexp.Regexp, limit invoice.Amount) Strategy {
	return Strategy{
		Name: name,
		Find: func(t *Text) (string, []MalformedField) {
			for _, idx := range re.FindAllStringSubmatchIndex(t.Full, -1) {
				if insideTaxLabel(t.Full[:idx[0]]) {
					continue
				}
				start, end := idx[2], idx[3]
				if strings.HasPrefix(strings.TrimLeft(t.Full[end:], " "), "%") {
					continue
				}
				a, err := invoice.ParseAmount(t.Full[start:end])
				if err != nil || a <= 0 || a >= limit {
					continue
				}
				return a.String(), nil
			}
			return "", nil
		},
	}
}

func amountStrategies(prefix string, patterns []*regexp.Regexp, limit invoice.Amount) []Strategy {
	out := make([]Strategy, 0, len(patterns))
	for i, re := range patterns {
		out = append(out, amountStrategy(fmt.Sprintf("%s-%d", prefix, i+1), re, limit))
	}
	return out
}

// SubtotalStrategies returns the subtotal cascade.
func SubtotalStrategies() []Strategy {
	return amountStrategies("subtotal", subtotalPatterns, MaxSubtotal)
}

// VATStrategies returns the VAT amount cascade.
func VATStrategies() []Strategy {
	return amountStrategies("vat", vatPatterns, MaxVAT)
}

// TotalStrategies returns the total amount cascade.
func TotalStrategies() []Strategy {
	return amountStrategies("total", totalPatterns, MaxTotal)
}
