package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/jakechorley/activity-log/pkg/core/roster"
)

type statusEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, statusEnvelope{Status: "success"})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, statusEnvelope{Status: "error", Message: message})
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// statusFor maps a roster error kind to an HTTP status
func statusFor(err error) int {
	switch roster.KindOf(err) {
	case roster.KindValidation:
		return http.StatusBadRequest
	case roster.KindNotFound:
		return http.StatusNotFound
	case roster.KindInvalidTransition:
		return http.StatusConflict
	case roster.KindSchema, roster.KindStoreIO:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeRosterError writes err with the status of its kind. Server-side
// failures are logged.
func (h *Handlers) writeRosterError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.String("kind", roster.KindOf(err).String()),
			zap.Error(err))
	}
	writeError(w, status, err.Error())
}
