package handler

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

func metricsHandler() http.Handler {
	return promhttp.Handler()
}

// healthCheck returns service health status
func healthCheck(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, map[string]string{"status": "healthy"})
}

// readyCheck reports ready once every dependency answers
func readyCheck(deps ...Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, d := range deps {
			if d == nil {
				continue
			}
			if err := d.Ping(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, APIResponse{
					Success: false,
					Error:   "not ready",
				})
				return
			}
		}
		writeSuccess(w, map[string]string{"status": "ready"})
	}
}
