package errors

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bisongoscar/apple-sales-dashboard/internal/observability"
)

type ErrorResponse struct {
	Error   *AppError `json:"error"`
	Success bool      `json:"success"`
}

type SuccessResponse struct {
	Data    any  `json:"data"`
	Success bool `json:"success"`
}

// WriteError sends err as a JSON envelope tagged with the request's ID.
// Client errors are logged as warnings, everything else as errors.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	appErr := FromDomain(err)
	appErr.RequestID = observability.GetRequestID(r.Context())

	level := slog.LevelError
	if appErr.StatusCode < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	logger.Log(r.Context(), level, "request failed",
		"error_code", appErr.Code,
		"error_message", appErr.Message,
		"status_code", appErr.StatusCode,
		"cause", appErr.Cause,
	)

	if encodeErr := writeJSON(w, appErr.StatusCode, ErrorResponse{Error: appErr}, nil); encodeErr != nil {
		logger.ErrorContext(r.Context(), "failed to encode error response", "error", encodeErr)
	}
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessWithHeaders(w, data, nil)
}

func WriteSuccessWithHeaders(w http.ResponseWriter, data any, headers map[string]string) {
	if err := writeJSON(w, http.StatusOK, SuccessResponse{Data: data, Success: true}, headers); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeJSON encodes before writing so a marshal failure still yields a
// well-formed 500 instead of a truncated body.
func writeJSON(w http.ResponseWriter, status int, body any, headers map[string]string) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return err
	}

	for key, value := range headers {
		w.Header().Set(key, value)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}
