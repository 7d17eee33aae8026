package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// SessionChecker reports whether the request carries a valid operator session.
// *cartridge.SessionManager satisfies it.
type SessionChecker interface {
	IsAuthenticated(c *fiber.Ctx) bool
}

// RequireOperator rejects every request without an operator session with 403.
// Dashboards are JSON only, so there is no login redirect.
func RequireOperator(sessions SessionChecker, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sessions == nil || !sessions.IsAuthenticated(c) {
			logger.Debug("Rejected anonymous request",
				slog.String("method", c.Method()),
				slog.String("path", c.Path()))
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden",
			})
		}
		return c.Next()
	}
}
