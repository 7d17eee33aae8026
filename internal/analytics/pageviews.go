package analytics

import (
	"fmt"

	"gorm.io/gorm"

	"basicanalytics/internal/timeframe"
)

// Series is a time series of page view counts. Buckets without page views
// are absent rather than zero; Keys and Counts always have the same length.
type Series struct {
	Keys   []string `json:"labels"`
	Counts []int64  `json:"data"`
}

// URLCount is the number of page views of one exact URL.
type URLCount struct {
	URL   string `json:"url"`
	Count int64  `json:"count"`
}

func timeSeries(q *gorm.DB, bucket timeframe.Bucket) (Series, error) {
	var rows []struct {
		Bucket string
		Count  int64
	}

	err := q.Select(fmt.Sprintf("%s AS bucket, COUNT(DISTINCT id) AS count", bucket.GroupByExpression("timestamp"))).
		Group("bucket").
		Order("bucket ASC").
		Scan(&rows).Error
	if err != nil {
		return Series{}, err
	}

	series := Series{
		Keys:   make([]string, 0, len(rows)),
		Counts: make([]int64, 0, len(rows)),
	}
	for _, r := range rows {
		series.Keys = append(series.Keys, r.Bucket)
		series.Counts = append(series.Counts, r.Count)
	}
	return series, nil
}

// MonthlyPageViews counts page views per UTC calendar month ("YYYY-MM"),
// oldest first.
func MonthlyPageViews(db *gorm.DB, params QueryParams) (Series, error) {
	series, err := timeSeries(scope(db, params), timeframe.BucketMonth)
	if err != nil {
		return Series{}, fmt.Errorf("error fetching monthly page views: %w", err)
	}
	return series, nil
}

// DailyPageViewsForURL counts page views of a single URL per UTC day
// ("YYYY-MM-DD"), oldest first.
func DailyPageViewsForURL(db *gorm.DB, params QueryParams, url string) (Series, error) {
	series, err := timeSeries(scope(db, params).Where("url = ?", url), timeframe.BucketDay)
	if err != nil {
		return Series{}, fmt.Errorf("error fetching daily page views for %q: %w", url, err)
	}
	return series, nil
}

// MeanMonthlyViews is the mean of monthly counts rounded to two decimals.
// An empty sequence has a mean of 0.
func MeanMonthlyViews(counts []int64) float64 {
	if len(counts) == 0 {
		return 0
	}
	var sum int64
	for _, c := range counts {
		sum += c
	}
	return round2(float64(sum) / float64(len(counts)))
}

// MonthlyAverage computes the mean monthly views for the given parameters.
func MonthlyAverage(db *gorm.DB, params QueryParams) (float64, error) {
	series, err := MonthlyPageViews(db, params)
	if err != nil {
		return 0, err
	}
	return MeanMonthlyViews(series.Counts), nil
}

// PageViewsByURL counts page views per exact URL, most viewed first. Ties
// are ordered by URL.
func PageViewsByURL(db *gorm.DB, params QueryParams) ([]URLCount, error) {
	var rows []URLCount
	err := scope(db, params).
		Select("url, COUNT(DISTINCT id) AS count").
		Group("url").
		Order("count DESC").
		Order("url ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching page views by url: %w", err)
	}
	if rows == nil {
		rows = []URLCount{}
	}
	return rows, nil
}
