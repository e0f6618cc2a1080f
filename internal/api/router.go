package api

import (
	"net/http"

	"distance-request-service/internal/api/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups the HTTP handlers the router mounts.
type Handlers struct {
	Health       *handlers.Health
	Transactions *handlers.TransactionHandler
	Sessions     *handlers.SessionHandler
	Wallet       *handlers.WalletHandler
	MapToken     *handlers.MapTokenHandler
}

// NewRouter mounts every endpoint and returns an http.Handler.
// Handlers stay unaware of concrete adapters; main wires those.
func NewRouter(h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID, requestLogger, middleware.Recoverer)

	r.Get("/health", h.Health.Get)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/transactions", func(r chi.Router) {
		r.Post("/", h.Transactions.Create)
		r.Get("/{id}", h.Transactions.Get)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.Sessions.Open)
		r.Route("/{sid}", func(r chi.Router) {
			r.Get("/", h.Sessions.Get)
			r.Delete("/", h.Sessions.Close)
			r.Put("/waypoints/{index}", h.Sessions.SetWaypoint)
			r.Delete("/waypoints/{index}", h.Sessions.RemoveWaypoint)
			r.Post("/waypoints/{index}/edit", h.Sessions.EditWaypoint)
			r.Post("/reorder", h.Sessions.Reorder)
			r.Post("/submit", h.Sessions.Submit)
			r.Post("/stops", h.Sessions.AddStop)
			r.Post("/back", h.Sessions.Back)
		})
	})

	r.Get("/wallet/additional-details", h.Wallet.Get)
	r.Put("/wallet/additional-details", h.Wallet.Put)

	r.Get("/map-token", h.MapToken.Get)

	return r
}
