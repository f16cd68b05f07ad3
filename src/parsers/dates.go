package parsers

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/username/cashflowrisk/backend/src/models"
)

// dateLayouts are tried in order. Day-first layouts win over month-first ones
// because the exports come from day-first locales.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"02.01.2006",
	"02.01.2006 15:04:05",
	"02/01/2006",
	"2006/01/02",
	"02-01-2006",
}

// ParseDateString parses a calendar date from text.
func ParseDateString(raw string) (civil.Date, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, "\u00a0", " "))
	if s == "" {
		return civil.Date{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), true
		}
	}
	return civil.Date{}, false
}

// ParseDateCell resolves a calendar date from a date cell or date-like text.
// Numbers are not treated as dates: a bare serial is indistinguishable from an amount.
func ParseDateCell(c models.Cell) (civil.Date, bool) {
	switch c.Kind {
	case models.CellDate:
		return c.Date, c.Date.IsValid()
	case models.CellText:
		return ParseDateString(c.Text)
	default:
		return civil.Date{}, false
	}
}
