package models

import "cloud.google.com/go/civil"

// PayableRecord is an outstanding payment obligation from the payables sheet.
// Optional fields are nil when the source cell could not be parsed.
type PayableRecord struct {
	Expense string      `json:"expense"`
	Amount  *float64    `json:"amount"`
	Paid    *float64    `json:"paid"`
	Urgency string      `json:"urgency"`
	DueDate *civil.Date `json:"due_date"`
	ToPay   *float64    `json:"to_pay"`
}

// PayablesFilter selects payables by urgency and inclusive due-date range.
// An empty Urgencies set does not restrict; nil bounds are open.
type PayablesFilter struct {
	Urgencies []string
	From      *civil.Date
	To        *civil.Date
}

// PayablesView is the filtered payables subset plus its total.
type PayablesView struct {
	Items      []PayableRecord `json:"items"`
	TotalToPay float64         `json:"total_to_pay"`
}
