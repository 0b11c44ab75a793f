package extract

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/thai-invoice-ocr/internal/invoice"
)

var fixedNow = func() time.Time { return time.Date(2025, 8, 2, 9, 0, 0, 0, time.UTC) }

func newTestExtractor() *Extractor {
	return New(Options{Now: fixedNow})
}

const scenarioText = "เลขที่บิล CT 68-000612 ... เลขประจำตัวผู้เสียภาษี 0 1355 63000 95 2 ... " +
	"วันที่ 1/8/2568 ... รวมเป็นเงิน 5,448.60 ... VAT 7% 381.40 ... ยอดเงินสุทธิ 5,830.00"

func TestExtractScenario(t *testing.T) {
	res := newTestExtractor().Extract(scenarioText)
	rec := res.Record

	assert.Equal(t, "CT68-000612", rec.InvoiceNumber)
	assert.Equal(t, "0135563000952", rec.TaxID)
	assert.Equal(t, "2025-08-01", rec.IssueDate)
	assert.Equal(t, "5448.60", rec.Subtotal)
	assert.Equal(t, "381.40", rec.VATAmount)
	assert.Equal(t, "5830.00", rec.TotalAmount)
	assert.Equal(t, "7", rec.VATRate)
	assert.Equal(t, invoice.TaxInclusive, rec.TaxOption)
	assert.Equal(t, invoice.DefaultSeries, rec.Series)

	assert.Empty(t, rec.DueDate)
	assert.Empty(t, rec.TaxDate)
	assert.Empty(t, rec.Telephone)
	assert.Empty(t, res.Generated)
	assert.Empty(t, res.Warnings)

	assert.Equal(t, "labelled-local", res.Strategies[invoice.FieldInvoiceNumber])
	assert.Equal(t, "tax-id-label", res.Strategies[invoice.FieldTaxID])
	assert.Equal(t, "numeric-4", res.Strategies[invoice.FieldIssueDate])
}

func TestExtractDefaultsWhenNothingMatches(t *testing.T) {
	res := newTestExtractor().Extract("")
	rec := res.Record

	assert.Equal(t, "AP20250802001", rec.InvoiceNumber)
	assert.Equal(t, []invoice.Field{invoice.FieldInvoiceNumber}, res.Generated)
	assert.False(t, res.Matched(invoice.FieldInvoiceNumber))
	assert.Empty(t, rec.IssueDate)
	assert.Equal(t, invoice.ZeroAmount, rec.Subtotal)
	assert.Equal(t, invoice.ZeroAmount, rec.VATAmount)
	assert.Equal(t, invoice.ZeroAmount, rec.TotalAmount)
	assert.Equal(t, invoice.ZeroAmount, rec.WHT)
	assert.Equal(t, invoice.DefaultVATRate, rec.VATRate)
	assert.Equal(t, invoice.DefaultTaxReport, rec.TaxReport)
	assert.Equal(t, invoice.TaxInclusive, rec.TaxOption)
}

func TestInvoiceNumberPriority(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		want     string
		strategy string
	}{
		{"labelled beats long digits", "barcode 1234567890123456\ninvoice no. CT68-000612", "CT68-000612", "labelled-local"},
		{"thai label with space", "เลขที่ CT 68-000612", "CT68-000612", "labelled-local"},
		{"bare local", "ใบกำกับภาษี IV68-123456", "IV68-123456", "bare-local"},
		{"labelled code", "เลขที่: INV/2025/77", "INV/2025/77", "labelled-code"},
		{"bare code", "ABCD-1234567", "ABCD-1234567", "bare-code"},
		{"long digits", "barcode 1234567890123", "1234567890123", "long-digits"},
		{"fourteen long digits", "barcode 12345678901234", "12345678901234", "long-digits"},
		{"labelled tax id is not an invoice number", "เลขประจำตัวผู้เสียภาษี 0135563000952", "AP20250802001", PlaceholderStrategy},
		{"long digits after labelled tax id", "เลขประจำตัวผู้เสียภาษี 0135563000952\nbarcode 123456789012", "123456789012", "long-digits"},
		{"short labelled code rejected", "No. 1234", "AP20250802001", PlaceholderStrategy},
	}
	cascade := Cascade{invoice.FieldInvoiceNumber, InvoiceNumberStrategies(fixedNow)}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := cascade.Run(NewText(tt.text))
			assert.Equal(t, tt.want, out.Value)
			assert.Equal(t, tt.strategy, out.Strategy)
		})
	}
}

func TestTaxID(t *testing.T) {
	cascade := Cascade{invoice.FieldTaxID, TaxIDStrategies()}

	out := cascade.Run(NewText("Tax ID: 0-1055-43012-34-5"))
	assert.Equal(t, "0105543012345", out.Value)

	out = cascade.Run(NewText("ผู้ขาย 0105543012345 โทร"))
	assert.Equal(t, "0105543012345", out.Value)
	assert.Equal(t, "tax-id-bare", out.Strategy)

	out = cascade.Run(NewText("เลขประจำตัวผู้เสียภาษี 0 1355 63000 95"))
	assert.Empty(t, out.Value)
	require.Len(t, out.Issues, 1)
	assert.Equal(t, invoice.FieldTaxID, out.Issues[0].Field)
	assert.Equal(t, "0 1355 63000 95", out.Issues[0].Value)
	assert.Contains(t, out.Issues[0].Error(), "found 12")
}

func TestMalformedTaxIDIsWarning(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	e := New(Options{Now: fixedNow, Log: logrus.NewEntry(logger)})

	res := e.Extract("เลขประจำตัวผู้เสียภาษี 0 1355 63000 95\nวันที่ 1/8/2568")
	assert.Empty(t, res.Record.TaxID)
	require.Len(t, res.Warnings, 1)

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Data["field"] == invoice.FieldTaxID {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestContactCodeSkipsLeadingVowels(t *testing.T) {
	assert.Equal(t, "ตท", ContactCode("บริษัท ตัวอย่าง เทรดดิ้ง จำกัด"))
	assert.Equal(t, "ทม", ContactCode("ไทย โมเดิร์น"))
}

func TestTelephone(t *testing.T) {
	cascade := Cascade{invoice.FieldTelephone, TelephoneStrategies()}
	tests := []struct {
		text, want, strategy string
	}{
		{"โทร. 02-123-4567", "021234567", "landline"},
		{"Tel 038 123 456", "", ""},
		{"มือถือ 081-234-5678", "0812345678", "mobile"},
		{"mobile 0812345678", "0812345678", "mobile"},
		{"เลขประจำตัวผู้เสียภาษี 0135563000952", "", ""},
	}
	for _, tt := range tests {
		out := cascade.Run(NewText(tt.text))
		assert.Equal(t, tt.want, out.Value, tt.text)
		assert.Equal(t, tt.strategy, out.Strategy, tt.text)
	}
}

func TestHeaderFields(t *testing.T) {
	text := "ใบกำกับภาษี/ใบเสร็จรับเงิน\n" +
		"บริษัท ตัวอย่าง เทรดดิ้ง จำกัด (สำนักงานใหญ่)\n" +
		"ที่อยู่: 99/1 ถนนสุขุมวิท แขวงคลองเตย\n" +
		"เขตคลองเตย กรุงเทพฯ 10110\n" +
		"อีเมล: sales@example.co.th\n" +
		"อ้างอิง: PO-2025/001\n" +
		"ราคาไม่รวมภาษี ภาษีมูลค่าเพิ่ม 10 %\n"

	res := newTestExtractor().Extract(text)
	rec := res.Record

	assert.Equal(t, "บริษัท ตัวอย่าง เทรดดิ้ง จำกัด", rec.Organization)
	assert.Equal(t, rec.Organization, rec.Name)
	assert.Equal(t, "ตท", rec.Title)
	assert.Equal(t, HeadOffice, rec.Branch)
	assert.Equal(t, "99/1 ถนนสุขุมวิท แขวงคลองเตย เขตคลองเตย กรุงเทพฯ 10110", rec.Address)
	assert.Equal(t, "sales@example.co.th", rec.Email)
	assert.Equal(t, "PO-2025/001", rec.Reference)
	assert.Equal(t, invoice.TaxExclusive, rec.TaxOption)
	assert.Equal(t, "10", rec.VATRate)
}

func TestOrganizationOnlyInHeader(t *testing.T) {
	lines := "a\nb\nc\nd\ne\nf\ng\nh\ni\nj\nบริษัท ท้ายหน้า จำกัด"
	out := Cascade{invoice.FieldOrganization, OrganizationStrategies()}.Run(NewText(lines))
	assert.Empty(t, out.Value)
}

func TestBranchNumber(t *testing.T) {
	out := Cascade{invoice.FieldBranch, BranchStrategies()}.Run(NewText("สาขาที่ 12"))
	assert.Equal(t, "00012", out.Value)
}

func TestVATIgnoresTaxIDLabel(t *testing.T) {
	text := "เลขประจำตัวผู้เสียภาษี 3 1001 00123 45 6\n" +
		"ใบกำกับภาษี 0001\n" +
		"ภาษีมูลค่าเพิ่ม 70.00"

	res := newTestExtractor().Extract(text)
	assert.Equal(t, "70.00", res.Record.VATAmount)
	assert.Equal(t, "3100100123456", res.Record.TaxID)
}

func TestContactCode(t *testing.T) {
	assert.Equal(t, "ATC", ContactCode("ABC Trading Co., Ltd."))
	assert.Equal(t, "กขค", ContactCode("บริษัท ก ข ค ง จำกัด"))
	assert.Equal(t, "", ContactCode("บริษัท จำกัด"))
}

func TestAmounts(t *testing.T) {
	tests := []struct {
		name                 string
		text                 string
		subtotal, vat, total string
	}{
		{"missing total", "รวมเป็นเงิน 5,448.60\nภาษีมูลค่าเพิ่ม 7% 381.40", "5448.60", "381.40", "0.00"},
		{"english labels", "Subtotal: 1,000.50\nVAT 7% 70.04\nGrand Total: 1,070.54", "1000.50", "70.04", "1070.54"},
		{"vat over range rejected", "VAT 7% 1,234,567.00", "0.00", "0.00", "0.00"},
		{"rate is not an amount", "ภาษี 7 %", "0.00", "0.00", "0.00"},
		{"tax id is not vat", "เลขประจำตัวผู้เสียภาษี 0135563000952", "0.00", "0.00", "0.00"},
		{"plain sum label", "รวม 250\nยอด สุทธิ 267.50", "250.00", "0.00", "267.50"},
	}
	e := newTestExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.Extract(tt.text).Record
			assert.Equal(t, tt.subtotal, rec.Subtotal)
			assert.Equal(t, tt.vat, rec.VATAmount)
			assert.Equal(t, tt.total, rec.TotalAmount)
		})
	}
}

func TestCascadeOrder(t *testing.T) {
	var calls []string
	strategy := func(name, value string, issue bool) Strategy {
		return Strategy{Name: name, Find: func(*Text) (string, []MalformedField) {
			calls = append(calls, name)
			if issue {
				return value, []MalformedField{{Field: invoice.FieldTaxID, Value: name}}
			}
			return value, nil
		}}
	}
	c := Cascade{invoice.FieldTaxID, []Strategy{
		strategy("first", "", true),
		strategy("second", "hit", false),
		strategy("third", "late", false),
	}}

	out := c.Run(NewText("x"))
	assert.Equal(t, "hit", out.Value)
	assert.Equal(t, "second", out.Strategy)
	assert.Equal(t, []string{"first", "second"}, calls)
	assert.Len(t, out.Issues, 1)
}

func TestCascadesCoverExtractedFields(t *testing.T) {
	seen := map[invoice.Field]bool{}
	for _, c := range newTestExtractor().Cascades() {
		assert.False(t, seen[c.Field], "duplicate cascade for %s", c.Field)
		assert.NotEmpty(t, c.Strategies, c.Field)
		seen[c.Field] = true
	}
	for _, f := range []invoice.Field{invoice.FieldIssueDate, invoice.FieldInvoiceNumber, invoice.FieldTaxID,
		invoice.FieldOrganization, invoice.FieldSubtotal, invoice.FieldVATAmount, invoice.FieldTotalAmount} {
		assert.True(t, seen[f], f)
	}
}
