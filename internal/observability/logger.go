// Package observability wires structured logging and Prometheus collectors.
package observability

import (
	"strings"

	"go.uber.org/zap"
)

// NewLogger builds a zap logger. mode "production" (or "prod") emits JSON at
// info level; anything else uses the human readable development encoder.
func NewLogger(mode string) (*zap.Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	return cfg.Build(zap.Fields(zap.String("service", "chester-tracker")))
}
