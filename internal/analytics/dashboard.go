package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"basicanalytics/internal/pkg/async"
	"basicanalytics/internal/sites"
	"basicanalytics/internal/timeframe"
)

// DashboardReport holds every aggregation shown on a site dashboard.
type DashboardReport struct {
	Monthly          Series                 `json:"monthly"`
	MeanMonthlyViews float64                `json:"mean_monthly_views"`
	URLs             []URLCount             `json:"urls"`
	Breakdowns       map[Category]Breakdown `json:"breakdowns"`
}

const monthlyTask = "monthly"
const urlsTask = "urls"

// Dashboard runs all site aggregations concurrently with the given number
// of workers.
func Dashboard(ctx context.Context, db *gorm.DB, params QueryParams, workers int) (*DashboardReport, error) {
	// Pin the window so every aggregation sees the same one.
	params.Now = params.now()

	tasks := []async.Task{
		{Name: monthlyTask, Execute: func(ctx context.Context) (any, error) {
			return MonthlyPageViews(db.WithContext(ctx), params)
		}},
		{Name: urlsTask, Execute: func(ctx context.Context) (any, error) {
			return PageViewsByURL(db.WithContext(ctx), params)
		}},
	}
	for _, category := range Categories {
		category := category
		tasks = append(tasks, async.Task{Name: string(category), Execute: func(ctx context.Context) (any, error) {
			return CategoryBreakdown(db.WithContext(ctx), params, category)
		}})
	}

	results := async.NewPool(workers).Execute(ctx, tasks)
	if err := async.FirstError(tasks, results); err != nil {
		return nil, err
	}

	monthly := results[monthlyTask].Data.(Series)
	report := &DashboardReport{
		Monthly:          monthly,
		MeanMonthlyViews: MeanMonthlyViews(monthly.Counts),
		URLs:             results[urlsTask].Data.([]URLCount),
		Breakdowns:       make(map[Category]Breakdown, len(Categories)),
	}
	for _, category := range Categories {
		report.Breakdowns[category] = results[string(category)].Data.(Breakdown)
	}
	return report, nil
}

// SiteAverage is the all-time mean monthly views of a site, with and
// without robot traffic.
type SiteAverage struct {
	SiteID     uuid.UUID `json:"id"`
	BaseURL    string    `json:"base_url"`
	WithRobots float64   `json:"with_robots"`
	NoRobots   float64   `json:"no_robots"`
}

// SitesOverview computes SiteAverage for each site, in the given order.
func SitesOverview(ctx context.Context, db *gorm.DB, robots RobotPolicy, siteList []sites.Site, now time.Time, workers int) ([]SiteAverage, error) {
	tasks := make([]async.Task, 0, len(siteList)*2)
	for _, site := range siteList {
		for _, includeRobots := range []bool{true, false} {
			params := QueryParams{
				SiteID:        site.ID,
				Period:        timeframe.PeriodAll,
				IncludeRobots: includeRobots,
				Robots:        robots,
				Now:           now,
			}
			tasks = append(tasks, async.Task{
				Name: overviewTaskName(site.ID, includeRobots),
				Execute: func(ctx context.Context) (any, error) {
					return MonthlyAverage(db.WithContext(ctx), params)
				},
			})
		}
	}

	results := async.NewPool(workers).Execute(ctx, tasks)
	if err := async.FirstError(tasks, results); err != nil {
		return nil, err
	}

	overview := make([]SiteAverage, 0, len(siteList))
	for _, site := range siteList {
		overview = append(overview, SiteAverage{
			SiteID:     site.ID,
			BaseURL:    site.BaseURL,
			WithRobots: results[overviewTaskName(site.ID, true)].Data.(float64),
			NoRobots:   results[overviewTaskName(site.ID, false)].Data.(float64),
		})
	}
	return overview, nil
}

func overviewTaskName(id uuid.UUID, includeRobots bool) string {
	if includeRobots {
		return id.String() + "/with_robots"
	}
	return id.String() + "/no_robots"
}
