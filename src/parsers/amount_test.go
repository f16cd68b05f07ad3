package parsers

import (
	"math"
	"strconv"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/cashflowrisk/backend/src/models"
)

func TestParseAmountString(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"2 908 937 442,38", 2908937442.38},
		{"3500000000", 3500000000.0},
		{"1 234,56", 1234.56},
		{"1\u00a0234,56", 1234.56},
		{"  -42,5 ", -42.5},
		{"$ 1 000.25", 1000.25},
		{"1 000 UZS", 1000},
		{"12.5", 12.5},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseAmountString(tt.in)
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseAmountStringMalformed(t *testing.T) {
	for _, in := range []string{"", "   ", "nan", "NaN", "---", "...", "€", "abc", "1-2"} {
		t.Run(in, func(t *testing.T) {
			assert.NotPanics(t, func() {
				_, ok := ParseAmountString(in)
				assert.False(t, ok)
			})
		})
	}
}

func TestParseAmountStringIdempotent(t *testing.T) {
	for _, in := range []string{"2 908 937 442,38", "3500000000", "1 234,56", "-0,75"} {
		first, ok := ParseAmountString(in)
		require.True(t, ok)
		second, ok := ParseAmountString(strconv.FormatFloat(first, 'f', -1, 64))
		require.True(t, ok)
		assert.Equal(t, first, second, in)
	}
}

func TestParseAmountCells(t *testing.T) {
	v, ok := ParseAmount(models.NumberCell(-12.25))
	require.True(t, ok)
	assert.Equal(t, -12.25, v)

	v, ok = ParseAmount(models.TextCell("7 000,5"))
	require.True(t, ok)
	assert.Equal(t, 7000.5, v)

	_, ok = ParseAmount(models.BlankCell())
	assert.False(t, ok)
	_, ok = ParseAmount(models.DateCell(civil.Date{Year: 2026, Month: 1, Day: 31}))
	assert.False(t, ok)
	_, ok = ParseAmount(models.NumberCell(math.NaN()))
	assert.False(t, ok)
}

func TestParseDateString(t *testing.T) {
	want := civil.Date{Year: 2026, Month: 1, Day: 31}
	for _, in := range []string{"2026-01-31", "31.01.2026", "31/01/2026", "2026-01-31 00:00:00", "2026-01-31T00:00:00Z", " 2026/01/31 "} {
		got, ok := ParseDateString(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "January", "2026-13-01", "Итого"} {
		_, ok := ParseDateString(in)
		assert.False(t, ok, in)
	}
}

func TestParseDateCell(t *testing.T) {
	d := civil.Date{Year: 2026, Month: 2, Day: 28}
	got, ok := ParseDateCell(models.DateCell(d))
	require.True(t, ok)
	assert.Equal(t, d, got)

	_, ok = ParseDateCell(models.NumberCell(46081))
	assert.False(t, ok)
}
