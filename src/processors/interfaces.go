// backend/src/processors/interfaces.go
package processors

import "github.com/username/cashflowrisk/backend/src/models"

// Names of the cashflow layout strategies, in the order they are tried.
const (
	StrategySentinelRow    = "sentinel-row"
	StrategyHeaderDates    = "header-dates"
	StrategyHeaderDateText = "header-date-text"
	StrategyLong           = "long"
	StrategyNone           = "none"
)

// CashflowResult is the output of one cashflow extraction.
type CashflowResult struct {
	Records  []models.CashflowRecord
	Strategy string // Layout strategy that fired
	Dropped  int    // Observations excluded for a missing label, date or amount
}

// PayablesResult is the output of one payables extraction.
type PayablesResult struct {
	Records []models.PayableRecord
	Dropped int
}

// CashflowProcessor reshapes cashflow tables into long-format records.
type CashflowProcessor interface {
	// Process handles a wide sheet: one label column plus a run of date columns.
	Process(table models.RawTable, scenario string) CashflowResult
	// ProcessLong handles an already-long table with Item, Date, Scenario and Amount columns.
	ProcessLong(table models.RawTable) (CashflowResult, error)
}

// PayablesProcessor extracts payment obligations from the payables sheet.
type PayablesProcessor interface {
	Process(table models.RawTable) PayablesResult
}
