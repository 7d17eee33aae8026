package http

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"basicanalytics/internal/operators"
)

type loginParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginAction starts an operator session.
func LoginAction(ctx *cartridge.Context) error {
	var params loginParams
	if err := ctx.BodyParser(&params); err != nil || params.Email == "" || params.Password == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Email and password are required",
		})
	}

	op, err := operators.Authenticate(ctx.DB(), params.Email, params.Password)
	if err != nil {
		if errors.Is(err, operators.ErrInvalidCredentials) {
			ctx.Logger.Debug("Invalid login attempt", slog.String("email", params.Email))
			// Generic message: do not reveal whether the email exists.
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid email or password",
			})
		}
		return handleError(ctx, err)
	}

	if err := ctx.Session.SetSession(ctx.Ctx, op.ID); err != nil {
		ctx.Logger.Error("Failed to set session", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Login failed",
		})
	}

	ctx.Logger.Debug("Login successful", slog.String("email", op.Email))
	return ctx.JSON(fiber.Map{"message": "Logged in"})
}

// LogoutAction ends the operator session.
func LogoutAction(ctx *cartridge.Context) error {
	userID, isAuthenticated := ctx.Session.GetUserID(ctx.Ctx)
	ctx.Logger.Debug("Logging out",
		slog.Uint64("operator_id", uint64(userID)),
		slog.Bool("authenticated", isAuthenticated))

	ctx.Session.ClearSession(ctx.Ctx)
	return ctx.JSON(fiber.Map{"message": "Logged out"})
}
