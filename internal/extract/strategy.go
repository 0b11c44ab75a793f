package extract

import (
	"fmt"
	"regexp"

	"github.com/ironsheep/thai-invoice-ocr/internal/invoice"
)

// MalformedField records a pattern match that failed validation. The field
// keeps its default; the problem surfaces as a validation warning.
type MalformedField struct {
	Field  invoice.Field `json:"field"`
	Value  string        `json:"value"`
	Reason string        `json:"reason"`
}

func (m MalformedField) Error() string {
	return fmt.Sprintf("malformed %s %q: %s", m.Field, m.Value, m.Reason)
}

// Strategy is one way of finding a field value. Find returns "" when it
// does not match, plus any malformed candidates it rejected.
type Strategy struct {
	Name string
	Find func(t *Text) (string, []MalformedField)
}

// Cascade is the ordered strategy list for one field. The first strategy
// returning a value wins.
type Cascade struct {
	Field      invoice.Field
	Strategies []Strategy
}

// Outcome is the result of running a Cascade.
type Outcome struct {
	Value    string
	Strategy string
	Issues   []MalformedField
}

// Run tries each strategy in order.
func (c Cascade) Run(t *Text) Outcome {
	var out Outcome
	for _, s := range c.Strategies {
		v, issues := s.Find(t)
		out.Issues = append(out.Issues, issues...)
		if v != "" {
			out.Value = v
			out.Strategy = s.Name
			return out
		}
	}
	return out
}

// firstSubmatch builds a strategy returning the first capture group of re
// accepted by accept. A nil accept takes any non-empty capture; accept may
// rewrite the value.
func firstSubmatch(name string, re *regexp.Regexp, accept func(string) (string, bool)) Strategy {
	return Strategy{
		Name: name,
		Find: func(t *Text) (string, []MalformedField) {
			for _, m := range re.FindAllStringSubmatch(t.Full, -1) {
				if len(m) < 2 || m[1] == "" {
					continue
				}
				if accept == nil {
					return m[1], nil
				}
				if v, ok := accept(m[1]); ok {
					return v, nil
				}
			}
			return "", nil
		},
	}
}

// stripSeparators removes spaces and dashes.
func stripSeparators(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' || s[i] == '-' {
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}

func digitsOnly(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	return string(out)
}
