package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"basicanalytics/internal/analytics"
)

func TestWithRobots(t *testing.T) {
	testCases := []struct {
		raw      string
		expected bool
	}{
		{"", false},
		{"true", true},
		{"True", true},
		{"1", true},
		{"false", false},
		{"0", false},
		{"yes", false},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.expected, withRobots(tc.raw))
		})
	}
}

func TestRequestMeta(t *testing.T) {
	assert.Nil(t, requestMeta(nil))

	meta := requestMeta(map[string]any{
		"REMOTE_ADDR": "203.0.113.1",
		"SERVER_PORT": 8080.0,
		"HTTPS":       true,
		"EMPTY":       nil,
	})
	assert.Equal(t, map[string]string{
		"REMOTE_ADDR": "203.0.113.1",
		"SERVER_PORT": "8080",
		"HTTPS":       "true",
		"EMPTY":       "",
	}, meta)
}

func TestCategoryTitle(t *testing.T) {
	assert.Equal(t, "Browser", categoryTitle(analytics.CategoryBrowser))
	assert.Equal(t, "OS", categoryTitle(analytics.CategoryOS))
	assert.Equal(t, "Country", categoryTitle(analytics.CategoryCountry))
}

func TestClockIsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, clock.Now().Location())
}
