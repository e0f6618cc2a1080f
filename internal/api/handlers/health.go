package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger is a dependency whose reachability is part of readiness.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health reports liveness, plus the state of every named dependency.
type Health struct {
	Deps map[string]Pinger
}

func (h *Health) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	res := map[string]string{"status": "ok"}
	status := http.StatusOK
	for name, dep := range h.Deps {
		if err := dep.PingContext(ctx); err != nil {
			res[name] = err.Error()
			res["status"] = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		res[name] = "ok"
	}

	writeJSON(w, r, status, res)
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }
