// backend/src/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/username/cashflowrisk/backend/src/logger"
	"github.com/username/cashflowrisk/backend/src/models"
	"github.com/username/cashflowrisk/backend/src/services"
	"github.com/username/cashflowrisk/backend/src/utils"
)

// loadErrorStatus maps a pipeline failure to an HTTP status.
func loadErrorStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrSourceNotFound):
		return http.StatusNotFound
	case services.IsClientError(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func sendLoadError(w http.ResponseWriter, r *http.Request, err error) {
	status := loadErrorStatus(err)
	log := logger.FromContext(r.Context())
	if status == http.StatusInternalServerError {
		log.Error("Dataset load failed", "path", r.URL.Path, "error", err)
		utils.SendJSONError(w, "internal error while loading the cashflow source", status)
		return
	}
	log.Warn("Dataset unavailable", "path", r.URL.Path, "error", err)
	utils.SendJSONError(w, err.Error(), status)
}
