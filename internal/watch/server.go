package watch

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes returns the status router: /healthz always, /metrics when the
// runner records metrics.
func (r *Runner) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Get("/healthz", r.handleHealth)
	if r.metrics != nil {
		router.Method(http.MethodGet, "/metrics", r.metrics.Handler())
	}
	return router
}

// StatusServer returns an http.Server for Routes on addr.
func (r *Runner) StatusServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           r.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (r *Runner) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := r.Status()
	resp := struct {
		State string `json:"status"`
		Status
	}{State: "ok", Status: status}
	if status.Last != nil && status.Last.Error != "" {
		resp.State = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
