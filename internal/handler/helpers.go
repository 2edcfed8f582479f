package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/helpdesk/internal/logger"
	"github.com/helpdesk/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("writeJSON encode: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps service sentinels to HTTP statuses. This is the
// only place that translation happens.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrBadCredentials), errors.Is(err, service.ErrInvalidUser):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrPastDate),
		errors.Is(err, service.ErrUnknownPreset),
		errors.Is(err, service.ErrAttachmentLimit),
		errors.Is(err, service.ErrUnsupportedFileType):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrChatNotJoinable):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "too many chat starts, please wait a few minutes")
	default:
		logger.Errorf("%s: %v", op, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
