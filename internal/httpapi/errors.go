package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/atelier/internal/app"
	"github.com/dmitrijs2005/atelier/internal/backup"
	"github.com/dmitrijs2005/atelier/internal/common"
	"github.com/dmitrijs2005/atelier/internal/coordinator"
)

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorBody{Code: code, Message: msg})
}

// statusFor maps a dispatch error to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, app.ErrBackupDisabled):
		return http.StatusNotImplemented, "backup_disabled"
	case errors.Is(err, backup.ErrSnapshotNotFound):
		return http.StatusNotFound, "snapshot_not_found"
	}

	code := coordinator.Outcome(err)
	switch {
	case errors.Is(err, common.ErrDuplicateEmail),
		errors.Is(err, common.ErrAlreadyAuthenticated):
		return http.StatusConflict, code
	case errors.Is(err, common.ErrNoSuchAccount),
		errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, code
	case errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrUpdateWithoutSession):
		return http.StatusUnauthorized, code
	case code == "invalid_input":
		return http.StatusBadRequest, code
	}
	return http.StatusInternalServerError, "internal"
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		msg = "internal server error"
	}
	writeError(w, status, code, msg)
}
