package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Runbooks
	mux.Handle("GET /api/v1/runbooks", chain(http.HandlerFunc(h.ListRunbooks)))
	mux.Handle("POST /api/v1/runbooks", chain(http.HandlerFunc(h.CreateRunbook)))
	mux.Handle("GET /api/v1/runbooks/{id}", chain(http.HandlerFunc(h.GetRunbook)))
	mux.Handle("PUT /api/v1/runbooks/{id}", chain(http.HandlerFunc(h.UpdateRunbook)))
	mux.Handle("DELETE /api/v1/runbooks/{id}", chain(http.HandlerFunc(h.DeleteRunbook)))

	// Runs
	mux.Handle("POST /api/v1/runbooks/{id}/runs", chain(http.HandlerFunc(h.StartRun)))
	mux.Handle("GET /api/v1/runs", chain(http.HandlerFunc(h.ListRuns)))
	mux.Handle("GET /api/v1/runs/active", chain(http.HandlerFunc(h.ListActiveRuns)))
	mux.Handle("GET /api/v1/runs/{id}", chain(http.HandlerFunc(h.GetRun)))
	mux.Handle("POST /api/v1/runs/{id}/cancel", chain(http.HandlerFunc(h.CancelRun)))
	mux.Handle("POST /api/v1/runs/{id}/pause", chain(http.HandlerFunc(h.PauseRun)))
	mux.Handle("POST /api/v1/runs/{id}/resume", chain(http.HandlerFunc(h.ResumeRun)))
}
