package geoip

import (
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/oschwald/geoip2-golang"
	"github.com/pariz/gountries"

	"basicanalytics/internal/config"
)

// Unknown is reported whenever a country cannot be resolved.
const Unknown = "Unknown"

var (
	geoDB  *geoip2.Reader
	once   sync.Once
	mu     sync.RWMutex
	logger *slog.Logger

	countriesOnce  sync.Once
	countriesQuery *gountries.Query
)

// CountryLookup is the subset of *geoip2.Reader used for country resolution.
type CountryLookup interface {
	Country(ipAddress net.IP) (*geoip2.Country, error)
}

// InitLogger sets the logger for the geoip package.
func InitLogger(l *slog.Logger) {
	logger = l
}

// InitGeoDB opens the GeoLite2 database at the configured path.
// Returns nil if the database is not configured or not found.
func InitGeoDB() *geoip2.Reader {
	cfg := config.GetConfig()
	if cfg.GeoDBPath == "" {
		if logger != nil {
			logger.Debug("GeoIP database path not configured, countries resolve to Unknown")
		}
		return nil
	}

	if _, err := os.Stat(cfg.GeoDBPath); err != nil {
		if logger != nil {
			logger.Info("GeoLite2 database not available, countries resolve to Unknown",
				slog.String("path", cfg.GeoDBPath),
				slog.Any("error", err))
		}
		return nil
	}

	db, err := geoip2.Open(cfg.GeoDBPath)
	if err != nil {
		if logger != nil {
			logger.Error("Failed to open GeoLite2 database",
				slog.String("path", cfg.GeoDBPath),
				slog.Any("error", err))
		}
		return nil
	}

	if logger != nil {
		logger.Info("GeoLite2 database initialized", slog.String("path", cfg.GeoDBPath))
	}
	return db
}

// GetGeoDB returns the GeoLite2 database reader, initializing it if necessary.
func GetGeoDB() *geoip2.Reader {
	once.Do(func() {
		mu.Lock()
		geoDB = InitGeoDB()
		mu.Unlock()
	})
	mu.RLock()
	defer mu.RUnlock()
	return geoDB
}

// CountryName resolves an address to an English country name using the
// shared database. It never fails; see LookupCountryName.
func CountryName(ip string) string {
	db := GetGeoDB()
	if db == nil {
		return Unknown
	}
	return LookupCountryName(db, ip)
}

// LookupCountryName resolves an address with the given lookup. Unparsable,
// private and reserved addresses, lookup errors and empty records all
// resolve to Unknown.
func LookupCountryName(lookup CountryLookup, ip string) string {
	if lookup == nil {
		return Unknown
	}

	addr := net.ParseIP(strings.TrimSpace(ip))
	if addr == nil || !isRoutable(addr) {
		return Unknown
	}

	record, err := lookup.Country(addr)
	if err != nil {
		if logger != nil {
			logger.Debug("GeoIP lookup failed", slog.String("ip", ip), slog.Any("error", err))
		}
		return Unknown
	}
	if record == nil {
		return Unknown
	}

	if name := record.Country.Names["en"]; name != "" {
		return name
	}
	if record.Country.IsoCode != "" {
		return nameFromISOCode(record.Country.IsoCode)
	}
	return Unknown
}

func nameFromISOCode(code string) string {
	countriesOnce.Do(func() {
		countriesQuery = gountries.New()
	})
	country, err := countriesQuery.FindCountryByAlpha(code)
	if err != nil || country.Name.Common == "" {
		return Unknown
	}
	return country.Name.Common
}

func isRoutable(ip net.IP) bool {
	return !(ip.IsPrivate() ||
		ip.IsLoopback() ||
		ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsMulticast())
}
