// src/models/cashflow.go
package models

import "cloud.google.com/go/civil"

const (
	ScenarioWithPartners = "With Partners"
	ScenarioNoPartners   = "No Partners"
)

// CashflowRecord is one row of the normalized long-format dataset.
type CashflowRecord struct {
	Category     string     `json:"category"`
	Date         civil.Date `json:"date"`
	Scenario     string     `json:"scenario"`
	AmountSigned float64    `json:"amount_signed"` // Sign as found in the source
	AmountAbs    float64    `json:"amount_abs"`    // Used for every magnitude display
}

// MonthlyKey identifies one monthly aggregate.
type MonthlyKey struct {
	Date     civil.Date
	Scenario string
}

// MonthlyTotals maps (Date, Scenario) to the summed absolute outflow.
type MonthlyTotals map[MonthlyKey]float64

// MonthlyAggregate is the flattened form of one MonthlyTotals entry.
type MonthlyAggregate struct {
	Date     civil.Date `json:"date"`
	Scenario string     `json:"scenario"`
	Amount   float64    `json:"amount"`
}

// PeakRecord is the date and amount of the largest monthly outflow of a scenario.
type PeakRecord struct {
	Date   civil.Date `json:"date"`
	Amount float64    `json:"amount"`
}

// ScenarioComparison is one row of the scenario comparison table.
type ScenarioComparison struct {
	Scenario   string      `json:"scenario"`
	PeakDate   *civil.Date `json:"peak_date"`
	PeakAmount *float64    `json:"peak_amount"`
}

// ScenarioSnapshot holds the headline figures for one scenario.
type ScenarioSnapshot struct {
	Scenario       string      `json:"scenario"`
	ValueAtRefDate float64     `json:"value_at_reference_date"`
	Peak           *PeakRecord `json:"peak"` // nil when the scenario has no records
}

// Summary is the executive overview computed from the monthly totals.
type Summary struct {
	ReferenceDate civil.Date           `json:"reference_date"`
	Scenarios     []ScenarioSnapshot   `json:"scenarios"`
	Comparison    []ScenarioComparison `json:"comparison"`
	FirstDate     *civil.Date          `json:"first_date"`
	DaysToPeak    int                  `json:"days_to_peak"`
}
