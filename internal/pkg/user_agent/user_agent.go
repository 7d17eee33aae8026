// Package user_agent classifies user-agent strings into browser, operating
// system and device families using embedded regex rules.
package user_agent

import (
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.elara.ws/pcre"
	"gopkg.in/yaml.v3"
)

// Other is the family reported when no rule matches.
const Other = "Other"

// SpiderDevice is the device family assigned to every recognized crawler.
// Callers detect crawlers by comparing Families.Device against it.
const SpiderDevice = "Spider"

// Families is the result of classifying one user-agent string.
type Families struct {
	Browser string
	OS      string
	Device  string
}

//go:embed database/bots.yml
//go:embed database/browsers.yml
//go:embed database/oss.yml
//go:embed database/devices.yml
var databaseFiles embed.FS

// Rule maps a pattern to a family name. The name may reference capture
// groups as $1, $2, ...
type Rule struct {
	Regex string `yaml:"regex"`
	Name  string `yaml:"name"`
}

type RegexCache struct {
	compiled map[string]*pcre.Regexp
	mutex    sync.RWMutex
}

func newRegexCache() *RegexCache {
	return &RegexCache{
		compiled: make(map[string]*pcre.Regexp),
	}
}

func (rc *RegexCache) get(pattern string) (*pcre.Regexp, error) {
	rc.mutex.RLock()
	if regex, exists := rc.compiled[pattern]; exists {
		rc.mutex.RUnlock()
		return regex, nil
	}
	rc.mutex.RUnlock()

	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	if regex, exists := rc.compiled[pattern]; exists {
		return regex, nil
	}

	regex, err := pcre.Compile("(?i)" + pattern)
	if err != nil {
		return nil, err
	}
	rc.compiled[pattern] = regex
	return regex, nil
}

var (
	parser *Parser
	once   sync.Once
)

// Parser holds the rule sets and their compiled patterns.
type Parser struct {
	bots       []Rule
	browsers   []Rule
	oss        []Rule
	devices    []Rule
	regexCache *RegexCache
}

func loadRules(file string) []Rule {
	data, err := databaseFiles.ReadFile(file)
	if err != nil {
		slog.Default().Error("user agent rules missing", slog.String("file", file), slog.Any("error", err))
		return nil
	}
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		slog.Default().Error("user agent rules invalid", slog.String("file", file), slog.Any("error", err))
		return nil
	}
	return rules
}

func getParser() *Parser {
	once.Do(func() {
		parser = &Parser{
			bots:       loadRules("database/bots.yml"),
			browsers:   loadRules("database/browsers.yml"),
			oss:        loadRules("database/oss.yml"),
			devices:    loadRules("database/devices.yml"),
			regexCache: newRegexCache(),
		}
	})
	return parser
}

// match returns the expanded name of the first matching rule.
func (p *Parser) match(rules []Rule, userAgent string) (string, bool) {
	for _, rule := range rules {
		regex, err := p.regexCache.get(rule.Regex)
		if err != nil {
			continue
		}
		matches := regex.FindStringSubmatch(userAgent)
		if len(matches) == 0 {
			continue
		}
		name := rule.Name
		for i := len(matches) - 1; i >= 1; i-- {
			name = strings.ReplaceAll(name, fmt.Sprintf("$%d", i), matches[i])
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		return name, true
	}
	return "", false
}

func (p *Parser) family(rules []Rule, userAgent string) string {
	if name, ok := p.match(rules, userAgent); ok {
		return name
	}
	return Other
}

// Parse classifies a user-agent string. It returns false when the string is
// blank and there is nothing to classify.
func Parse(userAgent string) (Families, bool) {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return Families{}, false
	}

	p := getParser()

	if name, ok := p.match(p.bots, userAgent); ok {
		return Families{
			Browser: name,
			OS:      p.family(p.oss, userAgent),
			Device:  SpiderDevice,
		}, true
	}

	return Families{
		Browser: p.family(p.browsers, userAgent),
		OS:      p.family(p.oss, userAgent),
		Device:  p.family(p.devices, userAgent),
	}, true
}
