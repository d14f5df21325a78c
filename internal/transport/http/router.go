package httptransport

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter builds the chi router with the standard middleware chain and a
// /metrics endpoint, then lets register attach the API routes.
func NewRouter(logger *zap.Logger, register func(chi.Router)) chi.Router {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(AccessLog(logger))
	r.Use(middleware.Recoverer)
	r.Use(CORS)
	r.Use(Metrics)

	r.Handle("/metrics", promhttp.Handler())
	register(r)
	return r
}
