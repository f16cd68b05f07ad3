// backend/src/handlers/routes.go
package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the read-only query surface under the given router.
func RegisterRoutes(r chi.Router, cashflow *CashflowHandler, payables *PayablesHandler) {
	r.Get("/health", cashflow.HandleHealth)

	r.Get("/cashflow", cashflow.HandleGetCashflow)
	r.Get("/monthly", cashflow.HandleGetMonthly)
	r.Get("/scenarios", cashflow.HandleGetScenarios)
	r.Get("/scenarios/{scenario}/peak", cashflow.HandleGetScenarioPeak)
	r.Get("/value", cashflow.HandleGetValue)
	r.Get("/summary", cashflow.HandleGetSummary)
	r.Get("/report", cashflow.HandleGetReport)
	r.Post("/reload", cashflow.HandleReload)

	r.Get("/payables", payables.HandleGetPayables)
	r.Get("/payables/filter", payables.HandleFilterPayables)
	r.Get("/payables/export.csv", payables.HandleExportPayablesCSV)
}
