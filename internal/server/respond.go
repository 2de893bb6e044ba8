package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/leadpilot/internal/pipeline"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("server: encode response", zap.Error(err))
	}
}

func writeMessage(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}

// writeError maps pipeline sentinels to status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrInsufficientCredit):
		writeMessage(w, http.StatusPaymentRequired, "insufficient_credit", err.Error())
	case errors.Is(err, pipeline.ErrConfigurationRequired):
		writeMessage(w, http.StatusPreconditionFailed, "configuration_required", err.Error())
	case errors.Is(err, pipeline.ErrRunActive):
		writeMessage(w, http.StatusConflict, "run_active", err.Error())
	case errors.Is(err, pipeline.ErrInvalidParams):
		writeMessage(w, http.StatusBadRequest, "invalid_params", err.Error())
	case errors.Is(err, pipeline.ErrLeadNotFound):
		writeMessage(w, http.StatusNotFound, "not_found", err.Error())
	default:
		zap.L().Error("server: request failed", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return false
	}
	return true
}
