package pageviews

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"basicanalytics/internal/pkg/geoip"
	"basicanalytics/internal/sites"
)

// Rejection kinds. A *CreationError always unwraps to one of these.
var (
	ErrInvalidSite           = errors.New("invalid site")
	ErrMissingURL            = errors.New("missing url")
	ErrURLMismatch           = errors.New("url mismatch")
	ErrMissingRequestContext = errors.New("missing request context")
)

// CreationError describes why a page view was rejected.
type CreationError struct {
	Kind    error
	Message string
}

func (e *CreationError) Error() string {
	return e.Message
}

func (e *CreationError) Unwrap() error {
	return e.Kind
}

func rejection(kind error, format string, args ...any) *CreationError {
	return &CreationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Input is a page-view submission as received from a tracked site.
type Input struct {
	DomainID    string
	URL         string
	RequestMeta map[string]string
}

// Create validates a submission and stores exactly one page view. Checks run
// in a fixed order: site, url presence, url ownership, request context.
func Create(db *gorm.DB, logger *slog.Logger, input Input) (*PageView, error) {
	site, err := sites.ParseAndGetSite(db, input.DomainID)
	if err != nil {
		if errors.Is(err, sites.ErrSiteNotFound) {
			return nil, rejection(ErrInvalidSite, "Invalid domain_id: %q", input.DomainID)
		}
		return nil, err
	}

	if strings.TrimSpace(input.URL) == "" {
		return nil, rejection(ErrMissingURL, "URL is required for domain_id %s", site.ID)
	}

	if !strings.Contains(input.URL, site.BaseURL) {
		return nil, rejection(ErrURLMismatch, "URL %q does not belong to domain %s", input.URL, site.BaseURL)
	}

	if len(input.RequestMeta) == 0 {
		return nil, rejection(ErrMissingRequestContext, "Request metadata is required for URL %q", input.URL)
	}

	view := &PageView{
		SiteID:    site.ID,
		URL:       input.URL,
		IP:        ClientIP(input.RequestMeta),
		Metadata:  Classify(input.RequestMeta, geoip.CountryName),
		Timestamp: time.Now().UTC(),
	}

	err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(view).Error
	})
	if err != nil {
		logger.Error("Failed to store page view",
			slog.String("site_id", site.ID.String()),
			slog.String("url", input.URL),
			slog.Any("error", err))
		return nil, fmt.Errorf("failed to store page view: %w", err)
	}

	logger.Debug("Page view stored",
		slog.String("site_id", site.ID.String()),
		slog.String("url", view.URL),
		slog.Bool("classified", !view.Metadata.IsEmpty()))
	return view, nil
}
