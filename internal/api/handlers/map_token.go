package handlers

import (
	"net/http"
	"time"

	"distance-request-service/internal/api/dto"
)

// TokenSource exposes the currently held map token.
type TokenSource interface {
	Token() (string, time.Time)
}

type MapTokenHandler struct {
	Source TokenSource
}

// Get returns the token while at least one form holds it.
func (h *MapTokenHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Source == nil {
		writeError(w, r, http.StatusNotFound, "map token is not configured")
		return
	}

	token, exp := h.Source.Token()
	if token == "" {
		writeError(w, r, http.StatusServiceUnavailable, "no map token is active")
		return
	}
	writeJSON(w, r, http.StatusOK, dto.MapTokenResponse{Token: token, Expiration: exp})
}
