// backend/src/services/dataset.go
package services

import (
	"cloud.google.com/go/civil"

	"github.com/username/cashflowrisk/backend/src/models"
	"github.com/username/cashflowrisk/backend/src/processors"
)

// Dataset is the normalized result of one load. It is never mutated after
// construction; every accessor returns a copy.
type Dataset struct {
	cashflow  []models.CashflowRecord
	payables  []models.PayableRecord
	totals    models.MonthlyTotals
	report    models.LoadReport
	scenarios []string
	primary   string
}

// NewDataset builds a dataset and its monthly totals. scenarios fixes the
// display order of the known scenarios; scenarios found only in the data are
// appended after them. primary is the scenario used for the days-to-peak figure.
func NewDataset(cashflow []models.CashflowRecord, payables []models.PayableRecord, report models.LoadReport, scenarios []string, primary string) *Dataset {
	ds := &Dataset{
		cashflow: append([]models.CashflowRecord(nil), cashflow...),
		payables: append([]models.PayableRecord(nil), payables...),
		totals:   processors.MonthlyTotals(cashflow),
		report:   report,
		primary:  primary,
	}

	seen := make(map[string]bool)
	for _, s := range scenarios {
		if s != "" && !seen[s] {
			seen[s] = true
			ds.scenarios = append(ds.scenarios, s)
		}
	}
	for _, s := range processors.Scenarios(ds.totals) {
		if !seen[s] {
			seen[s] = true
			ds.scenarios = append(ds.scenarios, s)
		}
	}
	return ds
}

// Cashflow returns the normalized long-format records.
func (d *Dataset) Cashflow() []models.CashflowRecord {
	return append(make([]models.CashflowRecord, 0, len(d.cashflow)), d.cashflow...)
}

// Payables returns the payment obligations; empty when the workbook had none.
func (d *Dataset) Payables() []models.PayableRecord {
	return append(make([]models.PayableRecord, 0, len(d.payables)), d.payables...)
}

// MonthlyTotals returns the (Date, Scenario) -> amount mapping.
func (d *Dataset) MonthlyTotals() models.MonthlyTotals {
	out := make(models.MonthlyTotals, len(d.totals))
	for k, v := range d.totals {
		out[k] = v
	}
	return out
}

// Monthly returns the monthly totals ordered by date then scenario.
func (d *Dataset) Monthly() []models.MonthlyAggregate {
	return processors.MonthlySeries(d.totals)
}

// ScenarioPeak returns the peak of a scenario; ok is false when it has no records.
func (d *Dataset) ScenarioPeak(scenario string) (models.PeakRecord, bool) {
	return processors.ScenarioPeak(d.totals, scenario)
}

// ValueAt returns the total for an exact date and scenario, 0 when absent.
func (d *Dataset) ValueAt(date civil.Date, scenario string) float64 {
	return processors.ValueAt(d.totals, date, scenario)
}

// FilterPayables returns the payables matching the urgencies and inclusive due-date
// range, and the sum of their ToPay.
func (d *Dataset) FilterPayables(urgencies []string, from, to *civil.Date) ([]models.PayableRecord, float64) {
	return processors.FilterPayables(d.payables, models.PayablesFilter{Urgencies: urgencies, From: from, To: to})
}

// Urgencies returns the distinct urgency labels of the payables.
func (d *Dataset) Urgencies() []string {
	return processors.Urgencies(d.payables)
}

// DueDateBounds returns the earliest and latest payable due dates.
func (d *Dataset) DueDateBounds() (from, to *civil.Date) {
	return processors.DueDateBounds(d.payables)
}

// Scenarios returns the scenario labels in display order.
func (d *Dataset) Scenarios() []string {
	return append([]string(nil), d.scenarios...)
}

// Summary computes the executive overview at a reference date.
func (d *Dataset) Summary(ref civil.Date) models.Summary {
	return processors.Summarize(d.totals, ref, d.scenarios, d.primary)
}

// Report returns the ingestion facts of the load that built this dataset.
func (d *Dataset) Report() models.LoadReport {
	r := d.report
	r.Attempts = append([]models.ReadAttempt(nil), d.report.Attempts...)
	r.Sheets = append([]models.SheetReport{}, d.report.Sheets...)
	r.EmptySheets = append([]string{}, d.report.EmptySheets...)
	if d.report.UsedAttempt != nil {
		used := *d.report.UsedAttempt
		r.UsedAttempt = &used
	}
	return r
}
