// backend/src/handlers/cashflow_handler.go
package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"

	"github.com/username/cashflowrisk/backend/src/logger"
	"github.com/username/cashflowrisk/backend/src/models"
	"github.com/username/cashflowrisk/backend/src/security/validation"
	"github.com/username/cashflowrisk/backend/src/services"
	"github.com/username/cashflowrisk/backend/src/utils"
)

type CashflowHandler struct {
	datasetService services.DatasetService
	referenceDate  civil.Date
}

// NewCashflowHandler creates a handler serving cashflow queries. referenceDate is
// used by the summary when the request carries no date.
func NewCashflowHandler(service services.DatasetService, referenceDate civil.Date) *CashflowHandler {
	return &CashflowHandler{datasetService: service, referenceDate: referenceDate}
}

type peakResponse struct {
	Scenario string             `json:"scenario"`
	Peak     *models.PeakRecord `json:"peak"`
}

type valueResponse struct {
	Date     civil.Date `json:"date"`
	Scenario string     `json:"scenario"`
	Value    float64    `json:"value"`
}

func (h *CashflowHandler) load(w http.ResponseWriter, r *http.Request) (*services.Dataset, bool) {
	ds, err := h.datasetService.Load(r.Context())
	if err != nil {
		sendLoadError(w, r, err)
		return nil, false
	}
	return ds, true
}

func (h *CashflowHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *CashflowHandler) HandleGetCashflow(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.load(w, r)
	if !ok {
		return
	}
	utils.SendJSONWithETag(w, r, ds.Cashflow())
}

func (h *CashflowHandler) HandleGetMonthly(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.load(w, r)
	if !ok {
		return
	}
	monthly := ds.Monthly()
	if monthly == nil {
		monthly = []models.MonthlyAggregate{}
	}
	utils.SendJSONWithETag(w, r, monthly)
}

func (h *CashflowHandler) HandleGetScenarios(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.load(w, r)
	if !ok {
		return
	}
	scenarios := ds.Scenarios()
	if scenarios == nil {
		scenarios = []string{}
	}
	utils.SendJSONWithETag(w, r, scenarios)
}

func (h *CashflowHandler) HandleGetScenarioPeak(w http.ResponseWriter, r *http.Request) {
	raw, err := url.PathUnescape(chi.URLParam(r, "scenario"))
	if err != nil {
		utils.SendJSONError(w, "invalid scenario in path", http.StatusBadRequest)
		return
	}
	scenario, err := validation.ValidateScenario(raw)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ds, ok := h.load(w, r)
	if !ok {
		return
	}

	resp := peakResponse{Scenario: scenario}
	if peak, found := ds.ScenarioPeak(scenario); found {
		resp.Peak = &peak
	}
	utils.SendJSONWithETag(w, r, resp)
}

func (h *CashflowHandler) HandleGetValue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date, err := validation.ValidateDateParam(q.Get("date"), "date")
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if date == nil {
		utils.SendJSONError(w, "date required", http.StatusBadRequest)
		return
	}
	scenario, err := validation.ValidateScenario(q.Get("scenario"))
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ds, ok := h.load(w, r)
	if !ok {
		return
	}
	utils.SendJSONWithETag(w, r, valueResponse{
		Date:     *date,
		Scenario: scenario,
		Value:    ds.ValueAt(*date, scenario),
	})
}

func (h *CashflowHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	ref := h.referenceDate
	date, err := validation.ValidateDateParam(r.URL.Query().Get("date"), "date")
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if date != nil {
		ref = *date
	}

	ds, ok := h.load(w, r)
	if !ok {
		return
	}
	utils.SendJSONWithETag(w, r, ds.Summary(ref))
}

func (h *CashflowHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.load(w, r)
	if !ok {
		return
	}
	utils.SendJSONWithETag(w, r, ds.Report())
}

// HandleReload drops the memoized dataset and loads the source again.
func (h *CashflowHandler) HandleReload(w http.ResponseWriter, r *http.Request) {
	logger.FromContext(r.Context()).Info("Reloading cashflow source on request")
	h.datasetService.Invalidate()

	ds, ok := h.load(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ds.Report())
}
