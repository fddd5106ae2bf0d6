package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/iammorganparry/clive/apps/recall/internal/embedding"
	"github.com/iammorganparry/clive/apps/recall/internal/llm"
	"github.com/iammorganparry/clive/apps/recall/internal/memory"
	"github.com/iammorganparry/clive/apps/recall/internal/store"
)

const maxBodyBytes = 1 << 20

// statusClientClosedRequest is the non-standard status for requests whose
// client went away before the response was ready.
const statusClientClosedRequest = 499

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var genErr *llm.GenerationError
	switch {
	case errors.Is(err, memory.ErrInvalidRequest), errors.Is(err, memory.ErrSelfLink):
		return http.StatusBadRequest
	case errors.Is(err, memory.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, embedding.ErrEmbeddingUnavailable),
		errors.Is(err, memory.ErrNoGenerator),
		errors.As(err, &genErr):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError writes err with its mapped status. Server-side failures
// are logged and their details hidden from the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := statusFor(err)
	switch status {
	case statusClientClosedRequest:
		logger.Debug("client went away",
			"request_id", requestIDFrom(r.Context()),
			"path", r.URL.Path,
		)
	case http.StatusInternalServerError:
		logger.Error("request failed",
			"request_id", requestIDFrom(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}
