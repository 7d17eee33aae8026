package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	"basicanalytics/internal/analytics"
	"basicanalytics/internal/config"
	"basicanalytics/internal/http"
	"basicanalytics/internal/http/middleware"
)

// trackCORSConfig is the permissive CORS setup of the ingestion endpoint.
var trackCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept",
}

// SetupSession configures operator sessions on the server.
func SetupSession(srv *cartridge.Server) {
	cfg := config.GetConfig()
	sessionMgr := cartridge.NewSessionManager(cartridge.SessionConfig{
		CookieName: cfg.AppName + "_session",
		Secret:     cfg.GetSessionSecret(),
		TTL:        time.Duration(cfg.GetLoginSessionTimeout()) * time.Second,
		Secure:     cfg.IsProduction(),
		LoginPath:  "/login",
	})
	srv.SetSession(sessionMgr)
}

// MountAppRoutes mounts all application routes using cartridge's route API
func MountAppRoutes(srv *cartridge.Server) {
	cfg := config.GetConfig()
	SetupSession(srv)

	// Rate limiting only applies in production; it would interfere with tests.
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	// Tracked sites post from their servers, often several views per second.
	trackRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(300),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// Prevents brute force login attempts
	authRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(10),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// Callers are servers, not browsers, so Sec-Fetch-Site is never sent.
	trackConfig := &cartridge.RouteConfig{
		EnableCORS:         true,
		CORSConfig:         trackCORSConfig,
		CustomMiddleware:   []fiber.Handler{trackRateLimiter},
		EnableSecFetchSite: cartridge.Bool(false),
	}

	operatorConfig := &cartridge.RouteConfig{
		CustomMiddleware: []fiber.Handler{
			middleware.RequireOperator(srv.Session(), srv.GetLogger()),
		},
	}

	loginConfig := &cartridge.RouteConfig{
		CustomMiddleware: []fiber.Handler{authRateLimiter},
	}

	// === PUBLIC ===
	srv.Post("/api/track/", http.TrackPageViewAction, trackConfig)
	srv.Options("/api/track/", func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}, trackConfig)

	srv.Get("/_health", http.HealthIndexAction)
	srv.Head("/_health", http.HealthIndexAction)
	srv.Get("/metrics", http.MetricsAction)

	// === AUTHENTICATION ===
	srv.Post("/login", http.LoginAction, loginConfig)
	srv.Post("/logout", http.LogoutAction)

	// === DASHBOARDS ===
	srv.Get("/", http.HomeIndexAction, operatorConfig)
	srv.Get("/domain/:id/page-views", http.PageViewsAction, operatorConfig)
	srv.Get("/domain/:id/page-views-by-url", http.PageViewsByURLAction, operatorConfig)
	srv.Get("/domain/:id/url-page-views", http.URLPageViewsAction, operatorConfig)
	for _, category := range analytics.Categories {
		srv.Get("/domain/:id/"+string(category)+"-analytics", http.BreakdownAction(category), operatorConfig)
	}
	srv.Get("/domain/:id/dashboard", http.DashboardAction, operatorConfig)

	// === ADMINISTRATION ===
	srv.Get("/admin/sites", http.SitesIndexAction, operatorConfig)
	srv.Post("/admin/sites", http.SiteCreateAction, operatorConfig)
	srv.Delete("/admin/sites/:id", http.SiteDeleteAction, operatorConfig)
}
