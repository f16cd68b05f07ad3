// src/parsers/amount.go
package parsers

import (
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/username/cashflowrisk/backend/src/models"
)

var nonNumericRe = regexp.MustCompile(`[^\d.\-]`)

// ParseAmount converts a raw cell into a monetary amount. Numbers pass through
// unchanged, text goes through ParseAmountString, anything else is absent.
// It never fails loudly: the caller decides what an absent amount means.
func ParseAmount(c models.Cell) (float64, bool) {
	switch c.Kind {
	case models.CellNumber:
		if math.IsNaN(c.Number) || math.IsInf(c.Number, 0) {
			return 0, false
		}
		return c.Number, true
	case models.CellText:
		return ParseAmountString(c.Text)
	default:
		return 0, false
	}
}

// ParseAmountString parses strings such as "2 908 937 442,38", "1 234,56" or
// "3500000000". A comma is treated as the decimal separator only when the
// string has no period.
func ParseAmountString(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "nan") {
		return 0, false
	}

	// Thousands are grouped with (non-breaking) spaces.
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.Join(strings.Fields(s), "")

	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	s = nonNumericRe.ReplaceAllString(s, "")
	if s == "" {
		return 0, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	v, _ := d.Float64()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
