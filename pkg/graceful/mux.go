package graceful

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Proton-105/worktime-bot/pkg/logger"
)

// Probes is the subset of lifecycle probes served over HTTP.
type Probes interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) error
}

const probeTimeout = 3 * time.Second

// NewMux serves /metrics, /healthz and /readyz. Extra middlewares run inside the
// correlation id middleware, the first one outermost.
func NewMux(probes Probes, middlewares ...func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", probeHandler(probes.Liveness))
	mux.HandleFunc("/readyz", probeHandler(probes.Readiness))

	var h http.Handler = mux
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}

	return logger.Middleware(h)
}

func probeHandler(probe func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")

		body := map[string]string{"status": "ok"}
		status := http.StatusOK
		if err := probe(ctx); err != nil {
			body = map[string]string{"status": "unavailable", "error": err.Error()}
			status = http.StatusServiceUnavailable
		}

		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
