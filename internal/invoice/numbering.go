package invoice

import (
	"fmt"
	"strings"
	"time"
)

// Scheme selects the date prefix of locally numbered invoices.
type Scheme string

// Prefix schemes.
const (
	SchemeNone   Scheme = "none"
	SchemeYY     Scheme = "yy"
	SchemeYYMM   Scheme = "yymm"
	SchemeYYMMDD Scheme = "yymmdd"
)

// ParseScheme accepts the scheme names and the accounting-package spellings
// YYx, YYMMx, YYMMDDx and x.
func ParseScheme(s string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "x":
		return SchemeNone, nil
	case "yy", "yyx":
		return SchemeYY, nil
	case "yymm", "yymmx":
		return SchemeYYMM, nil
	case "yymmdd", "yymmddx":
		return SchemeYYMMDD, nil
	}
	return "", fmt.Errorf("unknown numbering scheme %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Scheme) UnmarshalText(b []byte) error {
	v, err := ParseScheme(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// NumberingPolicy rewrites numeric invoice numbers to a prefix scheme and a
// zero-padded running number.
type NumberingPolicy struct {
	Scheme Scheme `toml:"scheme" json:"scheme"`
	Digits int    `toml:"digits" json:"digits"`
}

// DefaultNumberingPolicy returns year+month prefixes with four running digits.
func DefaultNumberingPolicy() NumberingPolicy {
	return NumberingPolicy{Scheme: SchemeYYMM, Digits: 4}
}

// Prefix returns the expected prefix for numbers issued on day.
func (p NumberingPolicy) Prefix(day time.Time) string {
	switch p.Scheme {
	case SchemeYY:
		return day.Format("06")
	case SchemeYYMM:
		return day.Format("0601")
	case SchemeYYMMDD:
		return day.Format("060102")
	}
	return ""
}

// Apply normalizes number. Only all-digit numbers are touched: with a prefix
// scheme the running part after a matching prefix is padded to Digits, with
// SchemeNone the whole number is. Anything else is returned unchanged.
func (p NumberingPolicy) Apply(number string, day time.Time) string {
	if number == "" || !allDigits(number) {
		return number
	}
	prefix := p.Prefix(day)
	if prefix == "" {
		return pad(number, p.Digits)
	}
	running, ok := strings.CutPrefix(number, prefix)
	if !ok || running == "" {
		return number
	}
	return prefix + pad(running, p.Digits)
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
