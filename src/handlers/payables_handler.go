// backend/src/handlers/payables_handler.go
package handlers

import (
	"encoding/csv"
	"net/http"
	"strconv"

	"cloud.google.com/go/civil"

	"github.com/username/cashflowrisk/backend/src/logger"
	"github.com/username/cashflowrisk/backend/src/models"
	"github.com/username/cashflowrisk/backend/src/security/validation"
	"github.com/username/cashflowrisk/backend/src/services"
	"github.com/username/cashflowrisk/backend/src/utils"
)

type PayablesHandler struct {
	datasetService services.DatasetService
}

func NewPayablesHandler(service services.DatasetService) *PayablesHandler {
	return &PayablesHandler{datasetService: service}
}

// payablesQuery reads ?urgency=a,b&urgency=c&from=YYYY-MM-DD&to=YYYY-MM-DD.
func payablesQuery(r *http.Request) (models.PayablesFilter, error) {
	q := r.URL.Query()
	var f models.PayablesFilter
	var err error
	if f.Urgencies, err = validation.ValidateUrgencies(q["urgency"]); err != nil {
		return f, err
	}
	if f.From, err = validation.ValidateDateParam(q.Get("from"), "from"); err != nil {
		return f, err
	}
	if f.To, err = validation.ValidateDateParam(q.Get("to"), "to"); err != nil {
		return f, err
	}
	return f, nil
}

func (h *PayablesHandler) filtered(w http.ResponseWriter, r *http.Request) (models.PayablesView, bool) {
	filter, err := payablesQuery(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return models.PayablesView{}, false
	}

	ds, err := h.datasetService.Load(r.Context())
	if err != nil {
		sendLoadError(w, r, err)
		return models.PayablesView{}, false
	}

	items, total := ds.FilterPayables(filter.Urgencies, filter.From, filter.To)
	if items == nil {
		items = []models.PayableRecord{}
	}
	logger.FromContext(r.Context()).Debug("Filtered payables", "urgencies", filter.Urgencies, "items", len(items))
	return models.PayablesView{Items: items, TotalToPay: total}, true
}

func (h *PayablesHandler) HandleGetPayables(w http.ResponseWriter, r *http.Request) {
	ds, err := h.datasetService.Load(r.Context())
	if err != nil {
		sendLoadError(w, r, err)
		return
	}
	utils.SendJSONWithETag(w, r, ds.Payables())
}

func (h *PayablesHandler) HandleFilterPayables(w http.ResponseWriter, r *http.Request) {
	view, ok := h.filtered(w, r)
	if !ok {
		return
	}
	utils.SendJSONWithETag(w, r, view)
}

// HandleExportPayablesCSV writes the filtered payables as a CSV download.
func (h *PayablesHandler) HandleExportPayablesCSV(w http.ResponseWriter, r *http.Request) {
	view, ok := h.filtered(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="payables.csv"`)

	cw := csv.NewWriter(w)
	rows := [][]string{{"Expense", "Amount", "Paid", "Urgency", "DueDate", "ToPay"}}
	for _, p := range view.Items {
		rows = append(rows, []string{
			validation.SanitizeForFormulaInjection(p.Expense),
			formatOptionalAmount(p.Amount),
			formatOptionalAmount(p.Paid),
			validation.SanitizeForFormulaInjection(p.Urgency),
			formatOptionalDate(p.DueDate),
			formatOptionalAmount(p.ToPay),
		})
	}
	rows = append(rows, []string{"Total", "", "", "", "", formatAmount(view.TotalToPay)})

	if err := cw.WriteAll(rows); err != nil {
		logger.FromContext(r.Context()).Error("Failed to write payables CSV", "error", err)
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(utils.RoundFloat(v, 2), 'f', -1, 64)
}

func formatOptionalAmount(v *float64) string {
	if v == nil {
		return ""
	}
	return formatAmount(*v)
}

func formatOptionalDate(d *civil.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}
