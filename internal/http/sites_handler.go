package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/karloscodes/cartridge"

	"basicanalytics/internal/sites"
)

// SitesIndexAction lists every registered site.
func SitesIndexAction(ctx *cartridge.Context) error {
	siteList, err := sites.ListSites(ctx.DB())
	if err != nil {
		return handleError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"sites": siteList})
}

// SiteCreateAction registers a site from a JSON body {"base_url": "..."}.
func SiteCreateAction(ctx *cartridge.Context) error {
	var params struct {
		BaseURL string `json:"base_url"`
	}
	if err := ctx.BodyParser(&params); err != nil || params.BaseURL == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "base_url is required",
		})
	}

	site, err := sites.CreateSite(ctx.DB(), ctx.Logger, params.BaseURL)
	if err != nil {
		return handleError(ctx, err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{"site": site})
}

// SiteDeleteAction removes a site and all of its page views.
func SiteDeleteAction(ctx *cartridge.Context) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return handleError(ctx, sites.ErrSiteNotFound)
	}

	if err := sites.DeleteSite(ctx.DB(), ctx.Logger, id); err != nil {
		return handleError(ctx, err)
	}

	ctx.Logger.Info("Site deleted via admin", slog.String("site_id", id.String()))
	return ctx.JSON(fiber.Map{"message": "Site deleted"})
}
