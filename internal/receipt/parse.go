package receipt

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Extraction is what could be read off a receipt. Empty fields mean nothing
// usable was found.
type Extraction struct {
	Amount string `json:"amount"`
	Date   string `json:"date"`
	Text   string `json:"text,omitempty"`
}

var (
	totalLine   = regexp.MustCompile(`(?i)\b(grand\s*total|net\s*amount|amount\s*due|amount\s*payable|total)\b`)
	moneyToken  = regexp.MustCompile(`\d{1,3}(?:,\d{2,3})+(?:\.\d{1,2})?|\d+\.\d{1,2}|\d+`)
	numericDate = regexp.MustCompile(`\b(\d{1,4})[/.-](\d{1,2})[/.-](\d{2,4})\b`)
	wordDate    = regexp.MustCompile(`(?i)\b(\d{1,2})[\s-]*(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*[\s,-]*(\d{2,4})\b`)
)

// ParseReceiptText picks the amount from the last "total"-like line, falling
// back to the largest decimal figure, and the first recognisable date.
func ParseReceiptText(text string) Extraction {
	return Extraction{
		Amount: parseAmount(text),
		Date:   parseDate(text),
		Text:   text,
	}
}

func parseAmount(text string) string {
	lines := strings.Split(text, "\n")

	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		if !totalLine.MatchString(line) || strings.Contains(strings.ToLower(line), "subtotal") {
			continue
		}
		tokens := moneyToken.FindAllString(line, -1)
		if len(tokens) == 0 {
			continue
		}
		if amount, ok := toDecimal(tokens[len(tokens)-1]); ok {
			return amount.StringFixed(2)
		}
	}

	best := decimal.Zero
	for _, line := range lines {
		for _, token := range moneyToken.FindAllString(line, -1) {
			if !strings.Contains(token, ".") {
				continue
			}
			if amount, ok := toDecimal(token); ok && amount.GreaterThan(best) {
				best = amount
			}
		}
	}
	if best.IsZero() {
		return ""
	}
	return best.StringFixed(2)
}

func toDecimal(token string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.ReplaceAll(token, ",", ""))
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

func parseDate(text string) string {
	if m := numericDate.FindStringSubmatch(text); m != nil {
		if len(m[1]) == 4 {
			if t, ok := buildDate(m[1], m[2], m[3]); ok {
				return t
			}
		} else if t, ok := buildDate(m[3], m[2], m[1]); ok {
			return t
		}
	}
	if m := wordDate.FindStringSubmatch(text); m != nil {
		layout := "2 Jan 2006"
		year := m[3]
		if len(year) == 2 {
			layout = "2 Jan 06"
		}
		month := strings.ToUpper(m[2][:1]) + strings.ToLower(m[2][1:3])
		if t, err := time.Parse(layout, m[1]+" "+month+" "+year); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// buildDate reads day-first numeric dates, the receipt convention where the
// app is used.
func buildDate(year, month, day string) (string, bool) {
	if len(year) == 2 {
		year = "20" + year
	}
	if len(month) == 1 {
		month = "0" + month
	}
	if len(day) == 1 {
		day = "0" + day
	}
	t, err := time.Parse("2006-01-02", year+"-"+month+"-"+day)
	if err != nil {
		return "", false
	}
	return t.Format("2006-01-02"), true
}
