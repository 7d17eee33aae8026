package http

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"basicanalytics/internal/metrics"
	"basicanalytics/internal/pageviews"
)

const msgPageViewCreated = "PageView created"

// TrackParams is the body posted by tracked sites. request_meta carries the
// visitor's transport attributes as seen by the tracked site's server.
type TrackParams struct {
	DomainID    any            `json:"domain_id"`
	URL         string         `json:"url"`
	RequestMeta map[string]any `json:"request_meta"`
}

// TrackPageViewAction records one page view.
func TrackPageViewAction(ctx *cartridge.Context) error {
	var params TrackParams
	if err := ctx.BodyParser(&params); err != nil {
		ctx.Logger.Debug("Invalid track request body", slog.Any("error", err))
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Error: invalid request body",
		})
	}

	input := pageviews.Input{
		DomainID:    stringValue(params.DomainID),
		URL:         params.URL,
		RequestMeta: requestMeta(params.RequestMeta),
	}

	_, err := pageviews.Create(ctx.DB(), ctx.Logger, input)
	metrics.Default().RecordIngestion(err)
	if err != nil {
		var creationErr *pageviews.CreationError
		if errors.As(err, &creationErr) {
			ctx.Logger.Debug("Page view rejected",
				slog.String("domain_id", input.DomainID),
				slog.String("reason", creationErr.Error()))
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Error: " + creationErr.Error(),
			})
		}
		ctx.Logger.Error("Failed to record page view", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Error: failed to record page view",
		})
	}

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": msgPageViewCreated,
	})
}

// requestMeta flattens JSON values to strings. A missing object stays nil.
func requestMeta(raw map[string]any) map[string]string {
	if raw == nil {
		return nil
	}
	meta := make(map[string]string, len(raw))
	for k, v := range raw {
		meta[k] = stringValue(v)
	}
	return meta
}

func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
