package testsupport

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	ctestsupport "github.com/karloscodes/cartridge/testsupport"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"basicanalytics/internal"
	"basicanalytics/internal/config"
	"basicanalytics/internal/database"
	"basicanalytics/internal/operators"
	"basicanalytics/internal/pageviews"
	"basicanalytics/internal/sites"
)

// SessionCookieName matches the cookie configured in routes.go: cfg.AppName + "_session".
const SessionCookieName = "basicanalytics_session"

func init() {
	if os.Getenv("BASICANALYTICS_ENV") == "" {
		os.Setenv("BASICANALYTICS_ENV", config.Test)
	}
}

// testDBCache caches test databases by root test name so that helpers
// called from subtests share one database.
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// TestDBManager wraps cartridge's TestDBManager.
type TestDBManager struct {
	*ctestsupport.TestDBManager
}

func NewTestDBManager(db *gorm.DB) *TestDBManager {
	return &TestDBManager{
		TestDBManager: ctestsupport.NewTestDBManager(db),
	}
}

var _ cartridge.DBManager = (*TestDBManager)(nil)

// SetupTestDB creates a migrated in-memory database shared by all
// connections of the current root test.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	rootName := t.Name()
	if idx := strings.Index(rootName, "/"); idx > 0 {
		rootName = rootName[:idx]
	}

	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", rootName, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	db.Exec("PRAGMA foreign_keys = ON")

	if err := db.AutoMigrate(database.Models()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// SetupTestDBManager creates a test DB manager and logger.
func SetupTestDBManager(t *testing.T) (*TestDBManager, *slog.Logger) {
	cfg := config.GetConfig()
	if cfg.Environment != config.Test {
		t.Fatalf("CRITICAL: Tests must run in test environment! Current: %s. Set BASICANALYTICS_ENV=test", cfg.Environment)
	}

	return NewTestDBManager(SetupTestDB(t)), GetLogger()
}

// CleanAllTables deletes every row of every table.
func CleanAllTables(db *gorm.DB) {
	db.Exec("PRAGMA foreign_keys = OFF")
	defer db.Exec("PRAGMA foreign_keys = ON")

	db.Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{"page_views", "sites", "operators"} {
			tx.Exec("DELETE FROM " + table)
		}
		return nil
	})
}

// CreateTestSite returns the site with the given base URL, creating it if needed.
func CreateTestSite(t *testing.T, db *gorm.DB, baseURL string) sites.Site {
	t.Helper()

	var site sites.Site
	if db.Where("base_url = ?", baseURL).First(&site).Error == nil {
		return site
	}
	site = sites.Site{BaseURL: baseURL, CreatedAt: time.Now().UTC()}
	require.NoError(t, db.Create(&site).Error)
	return site
}

// Meta builds a classification record; empty strings become nil.
func Meta(browser, osName, device, country string) pageviews.Metadata {
	ptr := func(s string) *string {
		if s == "" {
			return nil
		}
		return &s
	}
	return pageviews.Metadata{
		Browser: ptr(browser),
		OS:      ptr(osName),
		Device:  ptr(device),
		Country: ptr(country),
	}
}

// DefaultMeta is the classification of Mobile Safari on an Austrian iPhone.
func DefaultMeta() pageviews.Metadata {
	return Meta("Mobile Safari", "iOS", "iPhone", "AT")
}

// CreatePageView inserts a page view at an explicit time.
func CreatePageView(t *testing.T, db *gorm.DB, site sites.Site, url string, ts time.Time, meta pageviews.Metadata) pageviews.PageView {
	t.Helper()

	view := pageviews.PageView{
		SiteID:    site.ID,
		URL:       url,
		IP:        "127.0.0.1",
		Metadata:  meta,
		Timestamp: ts.UTC(),
	}
	require.NoError(t, db.Create(&view).Error)
	return view
}

// CreatePageViews inserts n page views with the same attributes.
func CreatePageViews(t *testing.T, db *gorm.DB, site sites.Site, url string, ts time.Time, meta pageviews.Metadata, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		CreatePageView(t, db, site, url, ts, meta)
	}
}

// CreateTestOperator creates an operator with a bcrypt-hashed password.
func CreateTestOperator(t *testing.T, db *gorm.DB, email, password string) *operators.Operator {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)

	op := &operators.Operator{
		Email:             email,
		EncryptedPassword: string(hashedPassword),
	}
	require.NoError(t, db.Create(op).Error)
	return op
}

// GetLogger returns a test logger
func GetLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// CreateMinimalTestApp creates a test Fiber app with all routes
func CreateMinimalTestApp(t *testing.T, db *gorm.DB) *fiber.App {
	t.Helper()

	appConfig := config.GetConfig()
	appConfig.Environment = config.Test

	cfg := cartridge.DefaultServerConfig()
	cfg.Config = appConfig
	cfg.Logger = GetLogger()
	cfg.DBManager = NewTestDBManager(db)
	cfg.EnableSecFetchSite = true
	cfg.SecFetchSiteAllowedValues = []string{"cross-site", "same-site", "same-origin"}

	srv, err := cartridge.NewServer(cfg)
	require.NoError(t, err)

	internal.MountAppRoutes(srv)
	return srv.App()
}
