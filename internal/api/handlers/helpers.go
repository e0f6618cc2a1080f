package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"distance-request-service/internal/domain"
	"distance-request-service/internal/platform/obs"
	"distance-request-service/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Str("req_id", obs.RequestID(r.Context())).
			Str("method", r.Method).Str("path", r.URL.Path).Msg("encode failed")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// decodeJSON reads exactly one JSON object into v, rejecting unknown fields.
// It writes the 400 response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return false
	}
	return true
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, domain.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidOrdering),
		errors.Is(err, domain.ErrWaypointIndex):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSubmitBlocked),
		errors.Is(err, domain.ErrTooManyWaypoints),
		errors.Is(err, domain.ErrAddressNotFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrSessionClosed):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError answers with the mapped status. Internal errors are logged and
// their message is not exposed.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("req_id", obs.RequestID(r.Context())).
			Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, r, status, "internal server error")
		return
	}
	writeError(w, r, status, err.Error())
}

func indexParam(r *http.Request) (int, bool) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	return i, err == nil && i >= 0
}
