package handlers

import (
	"net/http"
	"strings"
	"time"

	"distance-request-service/internal/api/dto"
	"distance-request-service/internal/domain"
	"distance-request-service/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type TransactionHandler struct {
	Store           ports.TransactionStore
	DefaultCurrency string
}

// Create starts a draft distance transaction with two empty waypoints.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = h.DefaultCurrency
	}

	tx := &domain.Transaction{
		TransactionID: uuid.NewString(),
		ReportID:      strings.TrimSpace(req.ReportID),
		Currency:      currency,
		Comment:       domain.Comment{Comment: req.Comment},
		PendingAction: domain.PendingActionAdd,
		Created:       time.Now().UTC(),
	}

	ctx := r.Context()
	if err := h.Store.Put(ctx, tx, false); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := h.Store.CreateInitialWaypoints(ctx, tx.TransactionID); err != nil {
		writeDomainError(w, r, err)
		return
	}

	created, err := h.Store.Get(ctx, tx.TransactionID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, dto.NewTransactionResponse(created))
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	tx, err := h.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.NewTransactionResponse(tx))
}
