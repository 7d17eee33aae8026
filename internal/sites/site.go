package sites

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

var (
	ErrSiteNotFound   = errors.New("site not found")
	ErrSiteExists     = errors.New("site already exists")
	ErrInvalidBaseURL = errors.New("invalid base url")
)

// Site is a tracked website. It is never mutated after creation.
type Site struct {
	ID        uuid.UUID `gorm:"type:text;primaryKey" json:"id"`
	BaseURL   string    `gorm:"uniqueIndex;not null" json:"base_url"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Site) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// NormalizeBaseURL validates an absolute http(s) address and strips any
// trailing slash so that page URLs can be matched by substring.
func NormalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidBaseURL, raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidBaseURL, raw)
	}
	return strings.TrimRight(raw, "/"), nil
}

// CreateSite registers a new site.
func CreateSite(db *gorm.DB, logger *slog.Logger, baseURL string) (*Site, error) {
	normalized, err := NormalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := db.Model(&Site{}).Where("base_url = ?", normalized).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing site: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: %s", ErrSiteExists, normalized)
	}

	site := &Site{BaseURL: normalized, CreatedAt: time.Now().UTC()}
	err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(site).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create site: %w", err)
	}

	logger.Info("Site created", slog.String("site_id", site.ID.String()), slog.String("base_url", site.BaseURL))
	return site, nil
}

// GetSiteByID looks up a site by its identifier.
func GetSiteByID(db *gorm.DB, id uuid.UUID) (*Site, error) {
	var site Site
	if err := db.Where("id = ?", id).First(&site).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSiteNotFound
		}
		return nil, fmt.Errorf("unexpected error querying site: %w", err)
	}
	return &site, nil
}

// ParseAndGetSite combines identifier parsing and lookup. Malformed
// identifiers are reported as ErrSiteNotFound.
func ParseAndGetSite(db *gorm.DB, rawID string) (*Site, error) {
	id, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return nil, ErrSiteNotFound
	}
	return GetSiteByID(db, id)
}

// ListSites returns every site ordered by base URL.
func ListSites(db *gorm.DB) ([]Site, error) {
	var sites []Site
	if err := db.Order("base_url ASC").Find(&sites).Error; err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	return sites, nil
}

// DeleteSite removes a site together with all of its page views.
func DeleteSite(db *gorm.DB, logger *slog.Logger, id uuid.UUID) error {
	if _, err := GetSiteByID(db, id); err != nil {
		return err
	}

	var deletedViews int64
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		views := tx.Exec("DELETE FROM page_views WHERE site_id = ?", id)
		if views.Error != nil {
			return views.Error
		}
		deletedViews = views.RowsAffected
		return tx.Where("id = ?", id).Delete(&Site{}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete site: %w", err)
	}

	logger.Info("Site deleted",
		slog.String("site_id", id.String()),
		slog.Int64("page_views_deleted", deletedViews))
	return nil
}
