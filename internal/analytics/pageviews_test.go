package analytics_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"basicanalytics/internal/analytics"
	"basicanalytics/internal/sites"
	"basicanalytics/internal/testsupport"
	"basicanalytics/internal/timeframe"
)

var defaultRobots = analytics.NewRobotPolicy([]string{"Spider"}, "bot")

// seedTwoYears creates month*2 page views on the first of every month of
// 2022 and 2023.
func seedTwoYears(t *testing.T, db *gorm.DB, site sites.Site) {
	t.Helper()
	for _, year := range []int{2022, 2023} {
		for month := 1; month <= 12; month++ {
			ts := time.Date(year, time.Month(month), 1, 12, 0, 0, 0, time.UTC)
			url := fmt.Sprintf("%s/%d/%02d", site.BaseURL, year, month)
			testsupport.CreatePageViews(t, db, site, url, ts, testsupport.DefaultMeta(), month*2)
		}
	}
}

func TestMonthlyPageViews(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	site := testsupport.CreateTestSite(t, db, "https://mine.example")
	other := testsupport.CreateTestSite(t, db, "https://other.example")

	testsupport.CreatePageViews(t, db, site, "https://mine.example/a", time.Date(2023, 1, 5, 8, 0, 0, 0, time.UTC), testsupport.DefaultMeta(), 2)
	testsupport.CreatePageViews(t, db, site, "https://mine.example/b", time.Date(2023, 3, 31, 23, 59, 0, 0, time.UTC), testsupport.DefaultMeta(), 3)
	testsupport.CreatePageViews(t, db, other, "https://other.example/a", time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC), testsupport.DefaultMeta(), 4)

	series, err := analytics.MonthlyPageViews(db, analytics.NewQueryParams(site.ID, defaultRobots))
	require.NoError(t, err)

	assert.Equal(t, []string{"2023-01", "2023-03"}, series.Keys)
	assert.Equal(t, []int64{2, 3}, series.Counts)
}

func TestMonthlyPageViewsEmpty(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	site := testsupport.CreateTestSite(t, db, "https://empty.example")

	series, err := analytics.MonthlyPageViews(db, analytics.NewQueryParams(site.ID, defaultRobots))
	require.NoError(t, err)
	assert.Empty(t, series.Keys)
	assert.Empty(t, series.Counts)

	avg, err := analytics.MonthlyAverage(db, analytics.NewQueryParams(site.ID, defaultRobots))
	require.NoError(t, err)
	assert.Equal(t, 0.0, avg)
}

func TestMeanMonthlyViews(t *testing.T) {
	testCases := []struct {
		name     string
		counts   []int64
		expected float64
	}{
		{"empty", nil, 0},
		{"single", []int64{7}, 7},
		{"even", []int64{2, 4, 6}, 4},
		{"fraction", []int64{1, 2}, 1.5},
		{"rounded", []int64{1, 1, 2}, 1.33},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, analytics.MeanMonthlyViews(tc.counts))
		})
	}
}

func TestMonthlyAverageOverTwoYears(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	site := testsupport.CreateTestSite(t, db, "https://mine.example")
	seedTwoYears(t, db, site)

	avg, err := analytics.MonthlyAverage(db, analytics.NewQueryParams(site.ID, defaultRobots))
	require.NoError(t, err)
	assert.Equal(t, 13.0, avg)
}

func TestPeriodFiltering(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	site := testsupport.CreateTestSite(t, db, "https://mine.example")
	seedTwoYears(t, db, site)

	now := time.Date(2023, 12, 30, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		period    string
		months    int
		firstKey  string
		lastCount int64
	}{
		{"", 24, "2022-01", 24},
		{"all", 24, "2022-01", 24},
		{"0", 24, "2022-01", 24},
		{"1", 1, "2023-12", 24},
		{"3", 3, "2023-10", 24},
		{"6", 5, "2023-08", 24},
		{"12", 12, "2023-01", 24},
	}

	for _, tc := range testCases {
		t.Run("period="+tc.period, func(t *testing.T) {
			params := analytics.NewQueryParams(site.ID, defaultRobots)
			params.Period = timeframe.ParsePeriod(tc.period)
			params.Now = now

			series, err := analytics.MonthlyPageViews(db, params)
			require.NoError(t, err)

			require.Len(t, series.Keys, tc.months)
			require.Len(t, series.Counts, tc.months)
			assert.Equal(t, tc.firstKey, series.Keys[0])
			assert.Equal(t, tc.lastCount, series.Counts[len(series.Counts)-1])
		})
	}
}

func TestPageViewsByURL(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	site := testsupport.CreateTestSite(t, db, "https://mine.example")
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	testsupport.CreatePageViews(t, db, site, "https://mine.example/pricing", ts, testsupport.DefaultMeta(), 2)
	testsupport.CreatePageViews(t, db, site, "https://mine.example/", ts, testsupport.DefaultMeta(), 5)
	testsupport.CreatePageViews(t, db, site, "https://mine.example/blog", ts, testsupport.DefaultMeta(), 2)
	testsupport.CreatePageViews(t, db, site, "https://mine.example/about", ts, testsupport.DefaultMeta(), 1)

	urls, err := analytics.PageViewsByURL(db, analytics.NewQueryParams(site.ID, defaultRobots))
	require.NoError(t, err)

	assert.Equal(t, []analytics.URLCount{
		{URL: "https://mine.example/", Count: 5},
		{URL: "https://mine.example/blog", Count: 2},
		{URL: "https://mine.example/pricing", Count: 2},
		{URL: "https://mine.example/about", Count: 1},
	}, urls)
}

func TestPageViewsByURLEmpty(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	site := testsupport.CreateTestSite(t, db, "https://mine.example")

	urls, err := analytics.PageViewsByURL(db, analytics.NewQueryParams(site.ID, defaultRobots))
	require.NoError(t, err)
	assert.NotNil(t, urls)
	assert.Empty(t, urls)
}

func TestDailyPageViewsForURL(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	site := testsupport.CreateTestSite(t, db, "https://mine.example")
	target := "https://mine.example/pricing"

	testsupport.CreatePageViews(t, db, site, target, time.Date(2024, 5, 1, 0, 0, 1, 0, time.UTC), testsupport.DefaultMeta(), 2)
	testsupport.CreatePageViews(t, db, site, target, time.Date(2024, 5, 1, 23, 59, 59, 0, time.UTC), testsupport.DefaultMeta(), 1)
	testsupport.CreatePageViews(t, db, site, target, time.Date(2024, 5, 3, 9, 0, 0, 0, time.UTC), testsupport.DefaultMeta(), 4)
	testsupport.CreatePageViews(t, db, site, "https://mine.example/pricing?plan=pro", time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC), testsupport.DefaultMeta(), 6)

	series, err := analytics.DailyPageViewsForURL(db, analytics.NewQueryParams(site.ID, defaultRobots), target)
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-05-01", "2024-05-03"}, series.Keys)
	assert.Equal(t, []int64{3, 4}, series.Counts)
}
