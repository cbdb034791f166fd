package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/abaye123/yemot-router2/pkg/yemot"
)

// NewRouter wires the HTTP surface of the demo server: the yemot call-flow
// endpoint at the root and, when enabled, the websocket call monitor.
func NewRouter(yemotRouter *yemot.Router, monitorEnabled bool) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if monitorEnabled {
		monitor := NewMonitor(yemotRouter.Events())
		r.Get("/ws/calls", monitor.handleWebSocket)

		status := NewStatus(yemotRouter)
		r.Get("/api/status", status.handleStatus)
		r.Get("/sse/calls", status.handleSSE)
	}

	r.Mount("/", yemotRouter)

	return r
}
