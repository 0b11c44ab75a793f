package invoice

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidAmount is returned by ParseAmount for text that is not a number.
var ErrInvalidAmount = errors.New("invalid amount")

// Amount is a monetary value in satang (1/100 baht).
type Amount int64

// ParseAmount parses a decimal baht amount such as "5,448.60" or "381.4".
// Thousands separators and spaces are ignored. Digits beyond the second
// decimal place are rounded half away from zero.
func ParseAmount(s string) (Amount, error) {
	clean := strings.Map(func(r rune) rune {
		if r == ',' || r == ' ' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))

	neg := false
	switch {
	case strings.HasPrefix(clean, "-"):
		neg = true
		clean = clean[1:]
	case strings.HasPrefix(clean, "+"):
		clean = clean[1:]
	}

	whole, frac, _ := strings.Cut(clean, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !allDigits(whole) || !allDigits(frac) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	var baht int64
	if whole != "" {
		v, err := strconv.ParseInt(whole, 10, 64)
		if err != nil || v > (1<<62)/100 {
			return 0, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, s)
		}
		baht = v
	}

	var satang int64
	for i := 0; i < 2; i++ {
		satang *= 10
		if i < len(frac) {
			satang += int64(frac[i] - '0')
		}
	}
	if len(frac) > 2 && frac[2] >= '5' {
		satang++
	}

	total := baht*100 + satang
	if neg {
		total = -total
	}
	return Amount(total), nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// String renders a as a two-decimal string without separators.
func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Abs returns the absolute value of a.
func (a Amount) Abs() Amount {
	if a < 0 {
		return -a
	}
	return a
}

// IsZero reports whether a is 0.00.
func (a Amount) IsZero() bool {
	return a == 0
}

// Baht returns a as a float for display and range checks.
func (a Amount) Baht() float64 {
	return float64(a) / 100
}

// AmountOf parses the amount in field f of r, treating empty and malformed
// values as zero.
func AmountOf(r Record, f Field) Amount {
	a, err := ParseAmount(r.Get(f))
	if err != nil {
		return 0
	}
	return a
}
