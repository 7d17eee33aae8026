package seeder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"basicanalytics/internal/pageviews"
	"basicanalytics/internal/pkg/geoip"
	"basicanalytics/internal/sites"
)

const batchSize = 500

// Options controls what SeedSite generates.
type Options struct {
	// Robots adds crawler traffic on top of the regular page views.
	Robots bool
	// Clean removes every site and page view before seeding.
	Clean bool
	// Now anchors the seeded years. The zero value means the current time.
	Now time.Time
}

// Seeder generates deterministic test traffic for a site.
type Seeder struct {
	DBManager cartridge.DBManager
	Logger    *slog.Logger
}

// NewSeeder creates a new seeder instance
func NewSeeder(dbManager cartridge.DBManager, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		DBManager: dbManager,
		Logger:    logger,
	}
}

// SeedSite creates the site if needed and fills the previous two calendar
// years: month i of each year gets i*2 page views on its first day, each
// under its own URL. With Robots, month i also gets i crawler views.
func (s *Seeder) SeedSite(ctx context.Context, baseURL string, opts Options) (*sites.Site, error) {
	start := time.Now()
	db := s.DBManager.GetConnection()

	if opts.Clean {
		if err := s.clean(db); err != nil {
			return nil, err
		}
	}

	site, err := s.findOrCreateSite(db, baseURL)
	if err != nil {
		return nil, err
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	ipPool := generateIPPool(50)
	humans := humanUserAgents()
	robots := robotUserAgents()
	created := 0

	for _, year := range []int{now.Year() - 2, now.Year() - 1} {
		for month := 1; month <= 12; month++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			day := time.Date(year, time.Month(month), 1, 12, 0, 0, 0, time.UTC)
			var views []pageviews.PageView

			for j := 0; j < month*2; j++ {
				views = append(views, s.buildView(site, fmt.Sprintf("%s/%d/%02d/%d", site.BaseURL, year, month, j),
					day.Add(time.Duration(j)*time.Minute), humans[j%len(humans)], ipPool))
			}
			if opts.Robots {
				for j := 0; j < month; j++ {
					views = append(views, s.buildView(site, fmt.Sprintf("%s/%d/%02d/%d", site.BaseURL, year, month, j),
						day.Add(time.Duration(j)*time.Second), robots[j%len(robots)], ipPool))
				}
			}

			err := sqlite.PerformWrite(s.Logger, db, func(tx *gorm.DB) error {
				return tx.CreateInBatches(views, batchSize).Error
			})
			if err != nil {
				return nil, fmt.Errorf("failed to seed %d-%02d: %w", year, month, err)
			}
			created += len(views)
		}
	}

	s.Logger.Info("Site seeded",
		slog.String("site_id", site.ID.String()),
		slog.String("base_url", site.BaseURL),
		slog.Int("page_views", created),
		slog.Bool("robots", opts.Robots),
		slog.Duration("elapsed", time.Since(start)))
	return site, nil
}

func (s *Seeder) buildView(site *sites.Site, url string, ts time.Time, userAgent string, ipPool []string) pageviews.PageView {
	meta := map[string]string{
		pageviews.MetaRemoteAddr: ipPool[rand.IntN(len(ipPool))],
		pageviews.MetaUserAgent:  userAgent,
	}
	return pageviews.PageView{
		SiteID:    site.ID,
		URL:       url,
		IP:        pageviews.ClientIP(meta),
		Metadata:  pageviews.Classify(meta, geoip.CountryName),
		Timestamp: ts,
	}
}

func (s *Seeder) findOrCreateSite(db *gorm.DB, baseURL string) (*sites.Site, error) {
	normalized, err := sites.NormalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	var site sites.Site
	err = db.Where("base_url = ?", normalized).First(&site).Error
	if err == nil {
		s.Logger.Info("Seeding existing site", slog.String("base_url", site.BaseURL))
		return &site, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to find site: %w", err)
	}

	return sites.CreateSite(db, s.Logger, normalized)
}

func (s *Seeder) clean(db *gorm.DB) error {
	err := sqlite.PerformWrite(s.Logger, db, func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM page_views").Error; err != nil {
			return err
		}
		return tx.Exec("DELETE FROM sites").Error
	})
	if err != nil {
		return fmt.Errorf("failed to clean existing data: %w", err)
	}
	s.Logger.Info("Removed existing sites and page views")
	return nil
}

// generateIPPool creates a pool of unique IPv4 addresses
func generateIPPool(count int) []string {
	seen := make(map[string]bool)
	var ips []string
	for len(ips) < count {
		ip := fmt.Sprintf("%d.%d.%d.%d", rand.IntN(223)+1, rand.IntN(256), rand.IntN(256), rand.IntN(256))
		if !seen[ip] {
			seen[ip] = true
			ips = append(ips, ip)
		}
	}
	return ips
}

func humanUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.1 Safari/605.1.15",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 16_1_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.1 Mobile/15E148 Safari/605.1",
		"Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Mobile Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36",
		"Mozilla/5.0 (iPad; CPU OS 16_1_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.1 Mobile/15E148 Safari/605.1",
	}
}

func robotUserAgents() []string {
	return []string{
		"Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
		"Mozilla/5.0+(compatible; UptimeRobot/2.0; http://www.uptimerobot.com/)",
		"curl/7.81.0",
	}
}
