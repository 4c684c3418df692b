package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Billy-Davies-2/draft-oracle/internal/draft"
	"github.com/Billy-Davies-2/draft-oracle/internal/logger"
	"github.com/Billy-Davies-2/draft-oracle/internal/models"
)

type errorBody struct {
	Error    string              `json:"error"`
	Kind     models.Kind         `json:"kind"`
	Outcomes []draft.PickOutcome `json:"outcomes,omitempty"`
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch models.KindOf(err) {
	case models.KindValidation:
		if models.IsNotFound(err) {
			return http.StatusNotFound
		}
		return http.StatusBadRequest
	case models.KindTerminal:
		return http.StatusConflict
	case models.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorFor(err error) errorBody {
	return errorBody{Error: err.Error(), Kind: models.KindOf(err)}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "status", status, "error", err)
	}
	writeJSON(w, status, errorFor(err))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}
