package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"basicanalytics/internal/analytics"
	"basicanalytics/internal/config"
	"basicanalytics/internal/metrics"
	"basicanalytics/internal/sites"
	"basicanalytics/internal/timeframe"
)

// dashboardContext is what every site dashboard needs before aggregating.
type dashboardContext struct {
	site   *sites.Site
	sites  []sites.Site
	params analytics.QueryParams
}

// props returns the navigation fields shared by every dashboard response.
func (d dashboardContext) props() fiber.Map {
	return fiber.Map{
		"domain":      fiber.Map{"id": d.site.ID, "base_url": d.site.BaseURL},
		"domains":     d.sites,
		"with_robots": d.params.IncludeRobots,
		"period":      d.params.Period,
	}
}

// clock anchors every dashboard window. Tests swap it for a fixed instant.
var clock timeframe.TimeProvider = &timeframe.DefaultTimeProvider{}

func robotPolicy() analytics.RobotPolicy {
	cfg := config.GetConfig()
	return analytics.NewRobotPolicy(cfg.RobotDevices, cfg.RobotBrowserPattern)
}

// withRobots reads the robot toggle. Anything but an explicit yes excludes robots.
func withRobots(raw string) bool {
	switch raw {
	case "true", "True", "1":
		return true
	default:
		return false
	}
}

func loadDashboardContext(ctx *cartridge.Context) (*dashboardContext, error) {
	db := ctx.DB()

	site, err := sites.ParseAndGetSite(db, ctx.Params("id"))
	if err != nil {
		return nil, err
	}

	siteList, err := sites.ListSites(db)
	if err != nil {
		return nil, err
	}

	params := analytics.NewQueryParams(site.ID, robotPolicy())
	params.Period = timeframe.ParsePeriod(ctx.Query("period"))
	params.IncludeRobots = withRobots(ctx.Query("with_robots"))
	params.Now = clock.Now()

	return &dashboardContext{site: site, sites: siteList, params: params}, nil
}

// HomeIndexAction lists every site with its mean monthly views, with and
// without robot traffic.
func HomeIndexAction(ctx *cartridge.Context) error {
	defer metrics.Default().TimeAggregation("sites_overview")()

	db := ctx.DB()
	siteList, err := sites.ListSites(db)
	if err != nil {
		return handleError(ctx, err)
	}

	overview, err := analytics.SitesOverview(ctx.UserContext(), db, robotPolicy(), siteList, clock.Now(), config.GetConfig().DashboardWorkers)
	if err != nil {
		return handleError(ctx, err)
	}

	return ctx.JSON(fiber.Map{"domains": overview})
}

// PageViewsAction returns monthly page views and their mean.
func PageViewsAction(ctx *cartridge.Context) error {
	defer metrics.Default().TimeAggregation("monthly")()

	d, err := loadDashboardContext(ctx)
	if err != nil {
		return handleError(ctx, err)
	}

	series, err := analytics.MonthlyPageViews(ctx.DB(), d.params)
	if err != nil {
		return handleError(ctx, err)
	}

	props := d.props()
	props["labels"] = series.Keys
	props["data"] = series.Counts
	props["mean_monthly_views"] = analytics.MeanMonthlyViews(series.Counts)
	return ctx.JSON(props)
}

// PageViewsByURLAction returns the page views of every URL, busiest first.
func PageViewsByURLAction(ctx *cartridge.Context) error {
	defer metrics.Default().TimeAggregation("by_url")()

	d, err := loadDashboardContext(ctx)
	if err != nil {
		return handleError(ctx, err)
	}

	urls, err := analytics.PageViewsByURL(ctx.DB(), d.params)
	if err != nil {
		return handleError(ctx, err)
	}

	props := d.props()
	props["urls"] = urls
	return ctx.JSON(props)
}

// URLPageViewsAction returns the daily page views of one URL.
func URLPageViewsAction(ctx *cartridge.Context) error {
	defer metrics.Default().TimeAggregation("daily_url")()

	d, err := loadDashboardContext(ctx)
	if err != nil {
		return handleError(ctx, err)
	}

	url := ctx.Query("url")
	if url == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "url query parameter is required",
		})
	}

	series, err := analytics.DailyPageViewsForURL(ctx.DB(), d.params, url)
	if err != nil {
		return handleError(ctx, err)
	}

	props := d.props()
	props["url"] = url
	props["labels"] = series.Keys
	props["data"] = series.Counts
	return ctx.JSON(props)
}

// BreakdownAction returns a handler serving the percentage breakdown of one
// classification attribute.
func BreakdownAction(category analytics.Category) func(ctx *cartridge.Context) error {
	return func(ctx *cartridge.Context) error {
		defer metrics.Default().TimeAggregation(string(category))()

		d, err := loadDashboardContext(ctx)
		if err != nil {
			return handleError(ctx, err)
		}

		breakdown, err := analytics.CategoryBreakdown(ctx.DB(), d.params, category)
		if err != nil {
			return handleError(ctx, err)
		}

		props := d.props()
		props["category"] = category
		props["title"] = categoryTitle(category) + " analytics"
		props["labels"] = breakdown.Labels
		props["data"] = breakdown.Data
		props["colors"] = breakdown.Colors
		return ctx.JSON(props)
	}
}

// DashboardAction returns every aggregation of a site in one response.
func DashboardAction(ctx *cartridge.Context) error {
	defer metrics.Default().TimeAggregation("dashboard")()

	d, err := loadDashboardContext(ctx)
	if err != nil {
		return handleError(ctx, err)
	}

	report, err := analytics.Dashboard(ctx.UserContext(), ctx.DB(), d.params, config.GetConfig().DashboardWorkers)
	if err != nil {
		return handleError(ctx, err)
	}

	ctx.Logger.Debug("Dashboard computed",
		slog.String("site_id", d.site.ID.String()),
		slog.Int("months", len(report.Monthly.Keys)),
		slog.Int("urls", len(report.URLs)))

	props := d.props()
	props["report"] = report
	return ctx.JSON(props)
}

func categoryTitle(category analytics.Category) string {
	if category == analytics.CategoryOS {
		return "OS"
	}
	return cases.Title(language.English).String(string(category))
}
