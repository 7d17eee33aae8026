package pageviews

import (
	"strings"

	"basicanalytics/internal/pkg/user_agent"
)

// Request attribute keys, named after the CGI variables the tracking
// snippets forward.
const (
	MetaForwardedFor = "HTTP_X_FORWARDED_FOR"
	MetaRemoteAddr   = "REMOTE_ADDR"
	MetaUserAgent    = "HTTP_USER_AGENT"
)

// CountryResolver maps a client address to a country label. It must not fail.
type CountryResolver func(ip string) string

// ClientIP returns the first forwarded-for address when present, otherwise
// the direct remote address.
func ClientIP(meta map[string]string) string {
	if forwarded := meta[MetaForwardedFor]; strings.TrimSpace(forwarded) != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	return strings.TrimSpace(meta[MetaRemoteAddr])
}

// Classify resolves the browser, operating system, device and country of a
// request. Without a usable user agent the whole record stays empty.
func Classify(meta map[string]string, resolveCountry CountryResolver) Metadata {
	families, ok := user_agent.Parse(meta[MetaUserAgent])
	if !ok {
		return Metadata{}
	}

	country := resolveCountry(ClientIP(meta))
	return Metadata{
		Browser: &families.Browser,
		OS:      &families.OS,
		Device:  &families.Device,
		Country: &country,
	}
}
