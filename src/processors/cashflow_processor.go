// backend/src/processors/cashflow_processor.go
package processors

import (
	"math"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/username/cashflowrisk/backend/src/logger"
	"github.com/username/cashflowrisk/backend/src/models"
	"github.com/username/cashflowrisk/backend/src/parsers"
	"github.com/username/cashflowrisk/backend/src/security/validation"
)

// CashflowOptions describes where the nominal header of a wide sheet sits.
type CashflowOptions struct {
	HeaderRows  int // Rows above the header row
	SentinelRow int // Data row, counted from the row under the header, that may hold the column dates
}

// labelCandidates is how many leading non-date columns may serve as the label column.
const labelCandidates = 3

// longColumns are the required columns of a long-format table.
var longColumns = []string{"Item", "Date", "Scenario", "Amount"}

// layout is where the data of a wide sheet lives.
type layout struct {
	dateCols []int
	dates    map[int]civil.Date
	skipRow  int // -1 when every row under the header is data
}

type layoutStrategy struct {
	name   string
	detect func(t models.RawTable, headerRow, sentinelRow int) (layout, bool)
}

var defaultStrategies = []layoutStrategy{
	{name: StrategySentinelRow, detect: detectSentinelRow},
	{name: StrategyHeaderDates, detect: detectHeaderDates},
	{name: StrategyHeaderDateText, detect: detectHeaderDateText},
}

type cashflowProcessorImpl struct {
	opts       CashflowOptions
	strategies []layoutStrategy
}

// NewCashflowProcessor creates a new instance of CashflowProcessor.
func NewCashflowProcessor(opts CashflowOptions) CashflowProcessor {
	if opts.HeaderRows < 0 {
		opts.HeaderRows = 0
	}
	if opts.SentinelRow < 0 {
		opts.SentinelRow = 0
	}
	return &cashflowProcessorImpl{opts: opts, strategies: defaultStrategies}
}

func (p *cashflowProcessorImpl) Process(table models.RawTable, scenario string) CashflowResult {
	result := CashflowResult{Strategy: StrategyNone}

	headerRow := p.opts.HeaderRows
	if headerRow >= len(table.Rows) {
		logger.L.Warn("Sheet is shorter than its header block", "sheet", table.Name, "rows", len(table.Rows), "headerRow", headerRow)
		return result
	}
	sentinelRow := headerRow + 1 + p.opts.SentinelRow

	var lay layout
	found := false
	for _, s := range p.strategies {
		if l, ok := s.detect(table, headerRow, sentinelRow); ok {
			lay, found = l, true
			result.Strategy = s.name
			break
		}
	}
	if !found {
		logger.L.Warn("No date columns detected in cashflow sheet", "sheet", table.Name)
		return result
	}

	labelCol := pickLabelColumn(table, headerRow, lay)
	scenario = strings.TrimSpace(scenario)

	for r := headerRow + 1; r < len(table.Rows); r++ {
		if r == lay.skipRow {
			continue
		}
		category := validation.CleanLabel(table.At(r, labelCol).String())

		for _, c := range lay.dateCols {
			cell := table.At(r, c)
			if cell.IsBlank() {
				continue // no observation
			}
			amount, ok := parsers.ParseAmount(cell)
			if !ok || category == "" || scenario == "" {
				result.Dropped++
				continue
			}
			result.Records = append(result.Records, models.CashflowRecord{
				Category:     category,
				Date:         lay.dates[c],
				Scenario:     scenario,
				AmountSigned: amount,
				AmountAbs:    math.Abs(amount),
			})
		}
	}

	logger.L.Debug("Cashflow sheet processed",
		"sheet", table.Name, "strategy", result.Strategy, "labelColumn", labelCol,
		"dateColumns", len(lay.dateCols), "records", len(result.Records), "dropped", result.Dropped)
	return result
}

func (p *cashflowProcessorImpl) ProcessLong(table models.RawTable) (CashflowResult, error) {
	result := CashflowResult{Strategy: StrategyLong}
	if len(table.Rows) == 0 {
		return result, &models.MissingColumnsError{Missing: append([]string(nil), longColumns...)}
	}

	index := make(map[string]int)
	for c, cell := range table.Rows[0] {
		name := normalizeHeader(cell.String())
		if _, dup := index[name]; !dup {
			index[name] = c
		}
	}

	var missing []string
	cols := make([]int, len(longColumns))
	for i, name := range longColumns {
		c, ok := index[strings.ToLower(name)]
		if !ok {
			missing = append(missing, name)
			continue
		}
		cols[i] = c
	}
	if len(missing) > 0 {
		return result, &models.MissingColumnsError{Missing: missing}
	}
	itemCol, dateCol, scenarioCol, amountCol := cols[0], cols[1], cols[2], cols[3]

	for r := 1; r < len(table.Rows); r++ {
		if rowIsBlank(table.Rows[r]) {
			continue
		}
		category := validation.CleanLabel(table.At(r, itemCol).String())
		scenario := validation.CleanLabel(table.At(r, scenarioCol).String())
		date, dateOK := parsers.ParseDateCell(table.At(r, dateCol))
		amount, amountOK := parsers.ParseAmount(table.At(r, amountCol))
		if category == "" || scenario == "" || !dateOK || !amountOK {
			result.Dropped++
			continue
		}
		result.Records = append(result.Records, models.CashflowRecord{
			Category:     category,
			Date:         date,
			Scenario:     scenario,
			AmountSigned: amount,
			AmountAbs:    math.Abs(amount),
		})
	}

	logger.L.Debug("Long-format table processed", "table", table.Name, "records", len(result.Records), "dropped", result.Dropped)
	return result, nil
}

// detectSentinelRow finds date columns from the date cells of the sentinel row.
func detectSentinelRow(t models.RawTable, headerRow, sentinelRow int) (layout, bool) {
	if sentinelRow >= len(t.Rows) {
		return layout{}, false
	}
	lay := layout{dates: make(map[int]civil.Date), skipRow: sentinelRow}
	for c := range t.Rows[sentinelRow] {
		if cell := t.At(sentinelRow, c); cell.Kind == models.CellDate {
			lay.dateCols = append(lay.dateCols, c)
			lay.dates[c] = cell.Date
		}
	}
	return lay, len(lay.dateCols) > 0
}

// detectHeaderDates finds date columns whose header cell is a date.
func detectHeaderDates(t models.RawTable, headerRow, _ int) (layout, bool) {
	return detectHeader(t, headerRow, func(c models.Cell) (civil.Date, bool) {
		return c.Date, c.Kind == models.CellDate
	})
}

// detectHeaderDateText finds date columns whose header is text that reads as a date.
func detectHeaderDateText(t models.RawTable, headerRow, _ int) (layout, bool) {
	return detectHeader(t, headerRow, func(c models.Cell) (civil.Date, bool) {
		if c.Kind != models.CellText {
			return civil.Date{}, false
		}
		return parsers.ParseDateString(c.Text)
	})
}

func detectHeader(t models.RawTable, headerRow int, asDate func(models.Cell) (civil.Date, bool)) (layout, bool) {
	lay := layout{dates: make(map[int]civil.Date), skipRow: -1}
	for c := range t.Rows[headerRow] {
		if d, ok := asDate(t.At(headerRow, c)); ok {
			lay.dateCols = append(lay.dateCols, c)
			lay.dates[c] = d
		}
	}
	return lay, len(lay.dateCols) > 0
}

// pickLabelColumn returns the first of the leading non-date columns whose header
// is set, or whose header is blank but which carries data. Defaults to column 0.
func pickLabelColumn(t models.RawTable, headerRow int, lay layout) int {
	seen := 0
	for c := 0; c < t.Width() && seen < labelCandidates; c++ {
		if _, isDate := lay.dates[c]; isDate {
			continue
		}
		seen++
		if !t.At(headerRow, c).IsBlank() {
			return c
		}
		for r := headerRow + 1; r < len(t.Rows); r++ {
			if r != lay.skipRow && !t.At(r, c).IsBlank() {
				return c
			}
		}
	}
	return 0
}

var headerReplacer = strings.NewReplacer("\ufeff", "", "\u00a0", " ")

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(headerReplacer.Replace(s)))
}

func rowIsBlank(row []models.Cell) bool {
	for _, c := range row {
		if !c.IsBlank() {
			return false
		}
	}
	return true
}
