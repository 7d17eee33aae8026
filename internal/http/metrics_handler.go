package http

import (
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/karloscodes/cartridge"

	"basicanalytics/internal/metrics"
)

var metricsHandler = adaptor.HTTPHandler(metrics.Default().Handler())

// MetricsAction serves Prometheus metrics.
func MetricsAction(ctx *cartridge.Context) error {
	return metricsHandler(ctx.Ctx)
}
