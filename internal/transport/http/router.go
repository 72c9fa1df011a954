package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"checkout-trainer/internal/app"
	"checkout-trainer/internal/metrics"
)

// NewRouter wires every route. The websocket route is left out of the
// metrics middleware because the recorder would hide the Hijacker.
func NewRouter(trainer *app.Trainer, log *logrus.Entry, m *metrics.Metrics, gatherer prometheus.Gatherer) *http.ServeMux {
	ws := NewWSHandler(trainer, log)
	api := NewAPIHandler(trainer, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", ws.ServeWS)
	mux.Handle("GET /api/checkouts", m.Middleware("checkouts", http.HandlerFunc(api.Checkouts)))
	mux.Handle("POST /api/validate", m.Middleware("validate", http.HandlerFunc(api.Validate)))
	mux.Handle("GET /api/leaderboard", m.Middleware("leaderboard", http.HandlerFunc(api.Leaderboard)))
	mux.Handle("GET /api/rapid/leaderboard", m.Middleware("rapid_leaderboard", http.HandlerFunc(api.RapidLeaderboard)))
	mux.Handle("GET /api/stats", m.Middleware("stats", http.HandlerFunc(api.Stats)))
	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}
