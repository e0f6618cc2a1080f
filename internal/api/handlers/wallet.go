package handlers

import (
	"fmt"
	"net/http"

	"distance-request-service/internal/domain"
	"distance-request-service/internal/ports"
)

// WalletHandler serves the wallet verification questionnaire state.
type WalletHandler struct {
	Store ports.WalletDetailsStore
}

func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	details, err := h.Store.GetWalletAdditionalDetails(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, details)
}

func (h *WalletHandler) Put(w http.ResponseWriter, r *http.Request) {
	var details domain.WalletAdditionalDetails
	if !decodeJSON(w, r, &details) {
		return
	}

	for i, q := range details.Questions {
		if q.Prompt == "" {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("questions[%d].prompt is required", i))
			return
		}
	}

	if err := h.Store.SetWalletAdditionalDetails(r.Context(), &details); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, &details)
}
