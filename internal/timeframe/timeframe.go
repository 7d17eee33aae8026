// Package timeframe turns dashboard period selectors into time windows and
// defines the calendar buckets used to group page views.
package timeframe

import (
	"fmt"
	"strings"
	"time"
)

type TimeProvider interface {
	Now() time.Time
}

// DefaultTimeProvider reads the system clock in UTC.
type DefaultTimeProvider struct{}

func (p *DefaultTimeProvider) Now() time.Time {
	return time.Now().UTC()
}

// Period selects how far back a dashboard looks.
type Period string

const (
	PeriodAll          Period = "all"
	PeriodOneMonth     Period = "1"
	PeriodThreeMonths  Period = "3"
	PeriodSixMonths    Period = "6"
	PeriodTwelveMonths Period = "12"
)

var periodDays = map[Period]int{
	PeriodOneMonth:     30,
	PeriodThreeMonths:  90,
	PeriodSixMonths:    180,
	PeriodTwelveMonths: 365,
}

// ParsePeriod maps a query value to a period. Unset, "all", "0" and any
// unrecognized value mean no lower bound.
func ParsePeriod(raw string) Period {
	p := Period(strings.TrimSpace(raw))
	if _, ok := periodDays[p]; ok {
		return p
	}
	return PeriodAll
}

// Days returns the length of the window, or 0 when unbounded.
func (p Period) Days() int {
	return periodDays[p]
}

// IsBounded reports whether the period restricts the window at all.
func (p Period) IsBounded() bool {
	return p.Days() > 0
}

// Since returns the inclusive lower bound of the window ending at now.
// The second result is false for unbounded periods.
func (p Period) Since(now time.Time) (time.Time, bool) {
	if !p.IsBounded() {
		return time.Time{}, false
	}
	return now.UTC().AddDate(0, 0, -p.Days()), true
}

// Bucket is a calendar grouping for time series.
type Bucket string

const (
	BucketMonth Bucket = "month"
	BucketDay   Bucket = "day"
)

// SQLiteFormat returns the strftime pattern producing the bucket key.
func (b Bucket) SQLiteFormat() string {
	switch b {
	case BucketDay:
		return "%Y-%m-%d"
	default:
		return "%Y-%m"
	}
}

// GroupByExpression returns the SQLite expression grouping column into buckets.
func (b Bucket) GroupByExpression(column string) string {
	return fmt.Sprintf("strftime('%s', %s)", b.SQLiteFormat(), column)
}
