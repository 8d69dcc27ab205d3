// Package handlers provides HTTP handlers for the API.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	apierrors "github.com/narvanalabs/matchday/internal/api/errors"
	"github.com/narvanalabs/matchday/pkg/logger"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	apierrors.WriteJSON(w, status, data)
}

// WriteAPIError writes err tagged with the request's ID.
func WriteAPIError(w http.ResponseWriter, r *http.Request, err *apierrors.APIError) {
	apierrors.WriteErrorWithRequestID(w, err, middleware.GetReqID(r.Context()))
}

// WriteBadRequest writes a 400 validation error.
func WriteBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	WriteAPIError(w, r, apierrors.NewValidationError(message))
}

// WriteDomainError maps err to an API error and writes it. Server-side
// failures are logged with the request's context fields; client errors are not.
func WriteDomainError(w http.ResponseWriter, r *http.Request, log *slog.Logger, msg string, err error) {
	apiErr := apierrors.FromDomain(err)
	if apiErr.HTTPStatusCode() >= http.StatusInternalServerError {
		requestLog(r, log).Error(msg, "error", err, "error_code", apiErr.Code)
	}
	WriteAPIError(w, r, apiErr)
}

// requestLog returns log annotated with the request, user and activity IDs.
func requestLog(r *http.Request, log *slog.Logger) *slog.Logger {
	return logger.FromContext(r.Context(), log)
}

// decodeJSON decodes a bounded JSON body into v and rejects unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return errors.New("invalid request body: " + err.Error())
	}
	return nil
}
