package invoice

// Default field values assigned when extraction finds nothing.
const (
	DefaultSeries    = "AP"
	DefaultTaxReport = "yes"
	DefaultVATRate   = "7"
	ZeroAmount       = "0.00"
)

// Defaults maps each defaulted field to its documented default. Fields not
// listed default to the empty string.
var Defaults = map[Field]string{
	FieldSeries:      DefaultSeries,
	FieldTaxOption:   TaxInclusive,
	FieldWHT:         ZeroAmount,
	FieldTaxReport:   DefaultTaxReport,
	FieldSubtotal:    ZeroAmount,
	FieldVATAmount:   ZeroAmount,
	FieldTotalAmount: ZeroAmount,
	FieldVATRate:     DefaultVATRate,
}

// ApplyDefaults fills every empty defaulted field of r and normalizes the
// amount fields to two decimals. Unparseable amounts are reset to 0.00.
func ApplyDefaults(r *Record) {
	for f, d := range Defaults {
		if r.Get(f) == "" {
			_ = r.Set(f, d)
		}
	}
	for _, f := range AmountFields {
		a, err := ParseAmount(r.Get(f))
		if err != nil {
			_ = r.Set(f, ZeroAmount)
			continue
		}
		_ = r.Set(f, a.String())
	}
}
