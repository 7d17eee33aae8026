package analytics

import (
	"slices"
	"strings"

	"basicanalytics/internal/pageviews"
)

// RobotPolicy decides whether a page view came from a robot: its device is
// one of Devices, or its browser contains BrowserPattern ignoring ASCII case.
// Only ASCII letters are case-folded, matching SQLite's LOWER().
// The rule is evaluated at query time and never stored, so changing it
// changes historical reports too.
type RobotPolicy struct {
	Devices        []string
	BrowserPattern string
}

// NewRobotPolicy builds a policy, dropping blank device labels.
func NewRobotPolicy(devices []string, browserPattern string) RobotPolicy {
	cleaned := make([]string, 0, len(devices))
	for _, d := range devices {
		if d = strings.TrimSpace(d); d != "" {
			cleaned = append(cleaned, d)
		}
	}
	return RobotPolicy{
		Devices:        cleaned,
		BrowserPattern: strings.TrimSpace(browserPattern),
	}
}

// IsRobot applies the policy to one classification. Missing labels never
// make a page view a robot.
func (p RobotPolicy) IsRobot(meta pageviews.Metadata) bool {
	if meta.Device != nil && slices.Contains(p.Devices, *meta.Device) {
		return true
	}
	if p.BrowserPattern != "" && meta.Browser != nil {
		return strings.Contains(asciiLower(*meta.Browser), asciiLower(p.BrowserPattern))
	}
	return false
}

// exclusionClause is IsRobot negated, as SQL. NULL labels are coalesced so
// unclassified page views are kept.
func (p RobotPolicy) exclusionClause() (string, []any) {
	var conditions []string
	var args []any

	if len(p.Devices) > 0 {
		conditions = append(conditions, "COALESCE(device, '') IN ?")
		args = append(args, p.Devices)
	}
	if p.BrowserPattern != "" {
		conditions = append(conditions, "INSTR(LOWER(COALESCE(browser, '')), ?) > 0")
		args = append(args, asciiLower(p.BrowserPattern))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "NOT (" + strings.Join(conditions, " OR ") + ")", args
}

// asciiLower lowercases A-Z and leaves every other rune untouched.
func asciiLower(s string) string {
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}
