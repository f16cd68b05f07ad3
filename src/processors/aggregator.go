// backend/src/processors/aggregator.go
package processors

import (
	"sort"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/username/cashflowrisk/backend/src/models"
	"github.com/username/cashflowrisk/backend/src/utils"
)

// MonthlyTotals groups records by (Date, Scenario) and sums AmountAbs.
func MonthlyTotals(records []models.CashflowRecord) models.MonthlyTotals {
	sums := make(map[models.MonthlyKey]decimal.Decimal)
	for _, rec := range records {
		key := models.MonthlyKey{Date: rec.Date, Scenario: rec.Scenario}
		sums[key] = sums[key].Add(decimal.NewFromFloat(rec.AmountAbs))
	}

	totals := make(models.MonthlyTotals, len(sums))
	for key, sum := range sums {
		totals[key], _ = sum.Float64()
	}
	return totals
}

// MonthlySeries flattens the totals, ordered by date then scenario.
func MonthlySeries(totals models.MonthlyTotals) []models.MonthlyAggregate {
	series := make([]models.MonthlyAggregate, 0, len(totals))
	for key, amount := range totals {
		series = append(series, models.MonthlyAggregate{Date: key.Date, Scenario: key.Scenario, Amount: amount})
	}
	sort.Slice(series, func(i, j int) bool {
		if series[i].Date != series[j].Date {
			return series[i].Date.Before(series[j].Date)
		}
		return series[i].Scenario < series[j].Scenario
	})
	return series
}

// ScenarioPeak returns the largest monthly total of a scenario. On equal
// amounts the earliest date wins. ok is false when the scenario has no totals.
func ScenarioPeak(totals models.MonthlyTotals, scenario string) (models.PeakRecord, bool) {
	var peak models.PeakRecord
	found := false
	for key, amount := range totals {
		if key.Scenario != scenario {
			continue
		}
		if !found || amount > peak.Amount || (amount == peak.Amount && key.Date.Before(peak.Date)) {
			peak = models.PeakRecord{Date: key.Date, Amount: amount}
			found = true
		}
	}
	return peak, found
}

// ValueAt returns the total for an exact date and scenario, or 0 when absent.
func ValueAt(totals models.MonthlyTotals, date civil.Date, scenario string) float64 {
	return totals[models.MonthlyKey{Date: date, Scenario: scenario}]
}

// Scenarios lists the distinct scenarios present in the totals, sorted.
func Scenarios(totals models.MonthlyTotals) []string {
	seen := make(map[string]bool)
	var out []string
	for key := range totals {
		if !seen[key.Scenario] {
			seen[key.Scenario] = true
			out = append(out, key.Scenario)
		}
	}
	sort.Strings(out)
	return out
}

// DateRange returns the first and last date present in the totals.
func DateRange(totals models.MonthlyTotals) (first, last civil.Date, ok bool) {
	for key := range totals {
		if !ok || key.Date.Before(first) {
			first = key.Date
		}
		if !ok || key.Date.After(last) {
			last = key.Date
		}
		ok = true
	}
	return first, last, ok
}

// FilterPayables keeps the payables whose urgency is in the set and whose due
// date lies in [filter.From, filter.To]. An empty urgency set and nil bounds do
// not restrict, and a missing due date always passes the range. The result is
// ordered by due date with undated items last; the total is the sum of ToPay.
func FilterPayables(payables []models.PayableRecord, filter models.PayablesFilter) ([]models.PayableRecord, float64) {
	urgencies := make(map[string]bool, len(filter.Urgencies))
	for _, u := range filter.Urgencies {
		urgencies[strings.TrimSpace(u)] = true
	}

	out := make([]models.PayableRecord, 0, len(payables))
	total := decimal.Zero
	for _, p := range payables {
		if len(urgencies) > 0 && !urgencies[strings.TrimSpace(p.Urgency)] {
			continue
		}
		if p.DueDate != nil {
			if filter.From != nil && p.DueDate.Before(*filter.From) {
				continue
			}
			if filter.To != nil && p.DueDate.After(*filter.To) {
				continue
			}
		}
		out = append(out, p)
		if p.ToPay != nil {
			total = total.Add(decimal.NewFromFloat(*p.ToPay))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].DueDate, out[j].DueDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})

	sum, _ := total.Float64()
	return out, sum
}

// Urgencies lists the distinct non-blank urgency labels, sorted.
func Urgencies(payables []models.PayableRecord) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, p := range payables {
		u := strings.TrimSpace(p.Urgency)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// DueDateBounds returns the earliest and latest due dates, nil when no payable has one.
func DueDateBounds(payables []models.PayableRecord) (from, to *civil.Date) {
	for _, p := range payables {
		if p.DueDate == nil {
			continue
		}
		d := *p.DueDate
		if from == nil || d.Before(*from) {
			from = &d
		}
		if to == nil || d.After(*to) {
			to = &d
		}
	}
	return from, to
}

// Summarize builds the executive overview. scenarios fixes the order of the
// per-scenario figures; primary is the scenario whose peak ends the days-to-peak
// countdown, falling back to the last date of the dataset.
func Summarize(totals models.MonthlyTotals, ref civil.Date, scenarios []string, primary string) models.Summary {
	summary := models.Summary{
		ReferenceDate: ref,
		Scenarios:     make([]models.ScenarioSnapshot, 0, len(scenarios)),
		Comparison:    make([]models.ScenarioComparison, 0, len(scenarios)),
	}

	for _, scn := range scenarios {
		snap := models.ScenarioSnapshot{Scenario: scn, ValueAtRefDate: ValueAt(totals, ref, scn)}
		row := models.ScenarioComparison{Scenario: scn}
		if peak, ok := ScenarioPeak(totals, scn); ok {
			p := peak
			snap.Peak = &p
			date := peak.Date
			amount := utils.RoundFloat(peak.Amount, 2)
			row.PeakDate, row.PeakAmount = &date, &amount
		}
		summary.Scenarios = append(summary.Scenarios, snap)
		summary.Comparison = append(summary.Comparison, row)
	}

	first, last, ok := DateRange(totals)
	if !ok {
		return summary
	}
	summary.FirstDate = &first

	end := last
	if peak, found := ScenarioPeak(totals, primary); found {
		end = peak.Date
	}
	summary.DaysToPeak = end.DaysSince(first)
	return summary
}
