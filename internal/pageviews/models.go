package pageviews

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"basicanalytics/internal/sites"
)

// Metadata is the classification of a page view. Every key is always part
// of the record; a nil value means the request carried no user agent.
type Metadata struct {
	Browser *string `gorm:"column:browser;index" json:"browser"`
	OS      *string `gorm:"column:os;index" json:"os"`
	Device  *string `gorm:"column:device;index" json:"device"`
	Country *string `gorm:"column:country;index" json:"country"`
}

// IsEmpty reports whether no classification was recorded.
func (m Metadata) IsEmpty() bool {
	return m.Browser == nil && m.OS == nil && m.Device == nil && m.Country == nil
}

// PageView is one immutable page-view event.
type PageView struct {
	ID        uuid.UUID   `gorm:"type:text;primaryKey" json:"id"`
	SiteID    uuid.UUID   `gorm:"type:text;not null;index:idx_page_views_site_time,priority:1" json:"site_id"`
	Site      *sites.Site `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	URL       string      `gorm:"not null;index" json:"url"`
	IP        string      `json:"ip"`
	Metadata  `gorm:"embedded"`
	Timestamp time.Time `gorm:"not null;index:idx_page_views_site_time,priority:2" json:"timestamp"`
}

func (p *PageView) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now().UTC()
	}
	return nil
}
