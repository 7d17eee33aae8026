package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basicanalytics/internal/analytics"
	"basicanalytics/internal/sites"
	"basicanalytics/internal/testsupport"
)

func TestDashboard(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	site := testsupport.CreateTestSite(t, db, "https://mine.example")
	testsupport.CreatePageViews(t, db, site, site.BaseURL+"/", time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), testsupport.DefaultMeta(), 4)
	testsupport.CreatePageViews(t, db, site, site.BaseURL+"/blog", time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC), testsupport.Meta("Chrome", "Windows", "Other", "Germany"), 2)
	testsupport.CreatePageViews(t, db, site, site.BaseURL+"/", time.Date(2024, 2, 4, 0, 0, 0, 0, time.UTC), testsupport.Meta("Googlebot", "Other", "Spider", "US"), 5)

	params := analytics.NewQueryParams(site.ID, defaultRobots)
	params.Now = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("without robots", func(t *testing.T) {
		report, err := analytics.Dashboard(context.Background(), db, params, 3)
		require.NoError(t, err)

		assert.Equal(t, []string{"2024-01", "2024-02"}, report.Monthly.Keys)
		assert.Equal(t, []int64{4, 2}, report.Monthly.Counts)
		assert.Equal(t, 3.0, report.MeanMonthlyViews)
		assert.Equal(t, []analytics.URLCount{
			{URL: site.BaseURL + "/", Count: 4},
			{URL: site.BaseURL + "/blog", Count: 2},
		}, report.URLs)

		require.Len(t, report.Breakdowns, len(analytics.Categories))
		assert.Equal(t, []string{"iPhone", "Other"}, labels(report.Breakdowns[analytics.CategoryDevice]))
		assert.Equal(t, []float64{66.67, 33.33}, report.Breakdowns[analytics.CategoryDevice].Data)
	})

	t.Run("with robots", func(t *testing.T) {
		withRobots := params
		withRobots.IncludeRobots = true

		report, err := analytics.Dashboard(context.Background(), db, withRobots, 1)
		require.NoError(t, err)

		assert.Equal(t, []int64{4, 7}, report.Monthly.Counts)
		assert.Equal(t, 5.5, report.MeanMonthlyViews)
		assert.Equal(t, int64(9), report.URLs[0].Count)
		assert.Equal(t, []string{"Spider", "iPhone", "Other"}, labels(report.Breakdowns[analytics.CategoryDevice]))
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := analytics.Dashboard(ctx, db, params, 2)
		assert.Error(t, err)
	})
}

func TestSitesOverview(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	busy := testsupport.CreateTestSite(t, db, "https://busy.example")
	quiet := testsupport.CreateTestSite(t, db, "https://quiet.example")

	seedTwoYears(t, db, busy)
	testsupport.CreatePageViews(t, db, busy, busy.BaseURL+"/", time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), testsupport.Meta("UptimeRobot", "Other", "Other", "US"), 24)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	overview, err := analytics.SitesOverview(context.Background(), db, defaultRobots, []sites.Site{busy, quiet}, now, 4)
	require.NoError(t, err)

	assert.Equal(t, []analytics.SiteAverage{
		{SiteID: busy.ID, BaseURL: busy.BaseURL, WithRobots: 14, NoRobots: 13},
		{SiteID: quiet.ID, BaseURL: quiet.BaseURL, WithRobots: 0, NoRobots: 0},
	}, overview)
}

func TestSitesOverviewNoSites(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	overview, err := analytics.SitesOverview(context.Background(), db, defaultRobots, nil, time.Now(), 2)
	require.NoError(t, err)
	assert.Empty(t, overview)
}
