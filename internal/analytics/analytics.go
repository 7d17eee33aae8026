// Package analytics aggregates stored page views into dashboard series and
// breakdowns. Every query is scoped to one site, an optional look-back
// window and the robot policy, applied identically through scope.
package analytics

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"basicanalytics/internal/pageviews"
	"basicanalytics/internal/timeframe"
)

// QueryParams selects the page views an aggregation runs over.
type QueryParams struct {
	SiteID        uuid.UUID
	Period        timeframe.Period
	IncludeRobots bool
	Robots        RobotPolicy
	// Now anchors the look-back window. The zero value means the current time.
	Now time.Time
}

// NewQueryParams returns all-time, robot-free parameters for a site.
func NewQueryParams(siteID uuid.UUID, robots RobotPolicy) QueryParams {
	return QueryParams{
		SiteID: siteID,
		Period: timeframe.PeriodAll,
		Robots: robots,
	}
}

func (p QueryParams) now() time.Time {
	if p.Now.IsZero() {
		return time.Now().UTC()
	}
	return p.Now.UTC()
}

// scope returns the page views of the site inside the window, without robots
// unless they were requested.
func scope(db *gorm.DB, params QueryParams) *gorm.DB {
	q := db.Model(&pageviews.PageView{}).Where("site_id = ?", params.SiteID)

	if since, ok := params.Period.Since(params.now()); ok {
		q = q.Where("timestamp >= ?", since)
	}

	if !params.IncludeRobots {
		if clause, args := params.Robots.exclusionClause(); clause != "" {
			q = q.Where(clause, args...)
		}
	}

	return q
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
