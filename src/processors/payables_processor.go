// backend/src/processors/payables_processor.go
package processors

import (
	"github.com/username/cashflowrisk/backend/src/logger"
	"github.com/username/cashflowrisk/backend/src/models"
	"github.com/username/cashflowrisk/backend/src/parsers"
	"github.com/username/cashflowrisk/backend/src/security/validation"
)

// Positional contract of the payables sheet. Header names are not trusted.
const (
	colExpense = iota
	colAmount
	colPaid
	colUrgency
	colDueDate
	colToPay
	payablesColumns
)

type payablesProcessorImpl struct{}

// NewPayablesProcessor creates a new instance of PayablesProcessor.
func NewPayablesProcessor() PayablesProcessor {
	return &payablesProcessorImpl{}
}

// Process reads the first six columns of every row under the header row.
// Tables narrower than six columns yield no records.
func (p *payablesProcessorImpl) Process(table models.RawTable) PayablesResult {
	var result PayablesResult
	if table.Width() < payablesColumns {
		logger.L.Warn("Payables sheet has too few columns", "sheet", table.Name, "columns", table.Width(), "required", payablesColumns)
		return result
	}

	for r := 1; r < len(table.Rows); r++ {
		if leadingBlank(table, r) {
			continue // Empty line, not a drop
		}

		expense := validation.CleanLabel(table.At(r, colExpense).String())
		toPay, ok := parsers.ParseAmount(table.At(r, colToPay))
		if expense == "" || !ok {
			result.Dropped++
			continue
		}

		rec := models.PayableRecord{
			Expense: expense,
			Amount:  optionalAmount(table.At(r, colAmount)),
			Paid:    optionalAmount(table.At(r, colPaid)),
			Urgency: validation.CleanLabel(table.At(r, colUrgency).String()),
			ToPay:   &toPay,
		}
		if d, ok := parsers.ParseDateCell(table.At(r, colDueDate)); ok {
			rec.DueDate = &d
		}
		result.Records = append(result.Records, rec)
	}

	logger.L.Debug("Payables sheet processed", "sheet", table.Name, "records", len(result.Records), "dropped", result.Dropped)
	return result
}

func optionalAmount(c models.Cell) *float64 {
	v, ok := parsers.ParseAmount(c)
	if !ok {
		return nil
	}
	return &v
}

func leadingBlank(t models.RawTable, row int) bool {
	for c := 0; c < payablesColumns; c++ {
		if !t.At(row, c).IsBlank() {
			return false
		}
	}
	return true
}
