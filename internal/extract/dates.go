package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ironsheep/thai-invoice-ocr/internal/invoice"
)

// BuddhistEraOffset is the Thai solar calendar offset from the Gregorian year.
const BuddhistEraOffset = 543

var thaiMonths = map[string]time.Month{
	"มกราคม": time.January, "กุมภาพันธ์": time.February, "มีนาคม": time.March,
	"เมษายน": time.April, "พฤษภาคม": time.May, "มิถุนายน": time.June,
	"กรกฎาคม": time.July, "สิงหาคม": time.August, "กันยายน": time.September,
	"ตุลาคม": time.October, "พฤศจิกายน": time.November, "ธันวาคม": time.December,
	"ม.ค.": time.January, "ก.พ.": time.February, "มี.ค.": time.March,
	"เม.ย.": time.April, "พ.ค.": time.May, "มิ.ย.": time.June,
	"ก.ค.": time.July, "ส.ค.": time.August, "ก.ย.": time.September,
	"ต.ค.": time.October, "พ.ย.": time.November, "ธ.ค.": time.December,
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var (
	dateNumeric4 = regexp.MustCompile(`(\d{1,2})\s*[/\-.]\s*(\d{1,2})\s*[/\-.]\s*(\d{4})`)
	dateNumeric2 = regexp.MustCompile(`(\d{1,2})\s*[/\-.]\s*(\d{1,2})\s*[/\-.]\s*(\d{2})\b`)
	dateTextual  = regexp.MustCompile(`(\d{1,2})\s*([\p{Thai}A-Za-z.]{2,15})\s*(\d{4})`)

	dueLabelled = regexp.MustCompile(`(?i)(?:ครบกำหนด|กำหนดชำระ|กำหนด|due\s*date|due)[^\n\d]*(\d{1,2}\s*[/\-.]\s*\d{1,2}\s*[/\-.]\s*\d{2,4})`)
	duePayment  = regexp.MustCompile(`(?:ชำระ|จ่าย)[^\n\d]*(\d{1,2}\s*[/\-.]\s*\d{1,2}\s*[/\-.]\s*\d{2,4})`)
)

// NormalizeYear converts a Buddhist-era year (> 2400) to Gregorian and
// windows two-digit years: below 50 is 20xx, otherwise 19xx.
func NormalizeYear(year int) int {
	switch {
	case year > 2400:
		return year - BuddhistEraOffset
	case year < 50:
		return 2000 + year
	case year < 100:
		return 1900 + year
	}
	return year
}

// MonthFromName resolves a Thai or English month name or abbreviation.
func MonthFromName(name string) (time.Month, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if m, ok := thaiMonths[key]; ok {
		return m, true
	}
	if len(key) > 3 && isASCIILetters(key) {
		m, ok := thaiMonths[key[:3]]
		return m, ok
	}
	return 0, false
}

func isASCIILetters(s string) bool {
	for i := 0; i < len(s); i++ {
		if (s[i] < 'a' || s[i] > 'z') && s[i] != '.' {
			return false
		}
	}
	return true
}

// CalendarDate validates day, month and year parts and returns the date as
// YYYY-MM-DD. Month may be numeric or a month name.
func CalendarDate(day, month, year string) (string, bool) {
	d, err := strconv.Atoi(day)
	if err != nil {
		return "", false
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return "", false
	}
	y = NormalizeYear(y)

	m, ok := MonthFromName(month)
	if n, err := strconv.Atoi(month); err == nil {
		m, ok = time.Month(n), true
	}
	if !ok || m < time.January || m > time.December || d < 1 {
		return "", false
	}

	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || t.Month() != m {
		return "", false
	}
	return t.Format(invoice.DateLayout), true
}

// ParseDate parses a single numeric date such as "1/8/2568" or "01-08-25".
func ParseDate(s string) (string, bool) {
	for _, re := range []*regexp.Regexp{dateNumeric4, dateNumeric2} {
		if m := re.FindStringSubmatch(s); m != nil {
			if v, ok := CalendarDate(m[1], m[2], m[3]); ok {
				return v, true
			}
		}
	}
	return "", false
}

func dateStrategy(name string, re *regexp.Regexp) Strategy {
	return Strategy{
		Name: name,
		Find: func(t *Text) (string, []MalformedField) {
			for _, m := range re.FindAllStringSubmatch(t.Full, -1) {
				if v, ok := CalendarDate(m[1], m[2], m[3]); ok {
					return v, nil
				}
			}
			return "", nil
		},
	}
}

func labelledDateStrategy(name string, re *regexp.Regexp) Strategy {
	return firstSubmatch(name, re, ParseDate)
}

// IssueDateStrategies returns the issue date cascade: numeric with a
// four-digit year, numeric with a two-digit year, then textual months.
func IssueDateStrategies() []Strategy {
	return []Strategy{
		dateStrategy("numeric-4", dateNumeric4),
		dateStrategy("numeric-2", dateNumeric2),
		dateStrategy("textual-month", dateTextual),
	}
}

// DueDateStrategies returns the labelled due date cascade.
func DueDateStrategies() []Strategy {
	return []Strategy{
		labelledDateStrategy("due-label", dueLabelled),
		labelledDateStrategy("payment-label", duePayment),
	}
}
