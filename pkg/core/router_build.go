// core/router_build.go
package core

import (
	"context"
	"net/http"
	"time"

	chimd "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/justrach/turboAPI/pkg/manifest"
	hmetrics "github.com/justrach/turboAPI/pkg/middleware/metrics"
)

// BuildRouter assembles the outer mux: operational endpoints and ambient
// middleware on chi, with every other request falling through to the
// dispatch engine.
func BuildRouter(cfg manifest.Config, d BuildDeps) http.Handler {
	r := d.Router
	r.Use(chimd.RequestID, chimd.RealIP, chimd.Recoverer, chimd.Heartbeat("/ping"))
	if d.LogMW != nil {
		r.Use(d.LogMW.Middleware())
	}
	r.Use(hmetrics.Collect())

	if cfg.Limits.Enabled {
		r.Use(httprate.LimitByIP(cfg.Limits.RequestsPerMinute, time.Minute))
	}

	if d.Metrics != nil {
		r.Handle(http.MethodGet, "/metrics", d.Metrics)
	}

	r.NotFound(dispatchHandler(cfg, d))
	return r.Mux()
}

func withTimeout(next http.HandlerFunc, d time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), d)
		defer cancel()
		next(w, r.WithContext(ctx))
	}
}
