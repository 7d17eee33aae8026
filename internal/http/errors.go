package http

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"basicanalytics/internal/sites"
)

// handleError maps domain errors to JSON error responses.
func handleError(ctx *cartridge.Context, err error) error {
	switch {
	case errors.Is(err, sites.ErrSiteNotFound):
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Site not found"})
	case errors.Is(err, sites.ErrSiteExists):
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, sites.ErrInvalidBaseURL):
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		ctx.Logger.Error("Request failed",
			slog.String("method", ctx.Method()),
			slog.String("path", ctx.Path()),
			slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
}
