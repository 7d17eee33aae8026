package analytics

import (
	"fmt"
	"math/rand/v2"

	"gorm.io/gorm"
)

// Category is a classification attribute that can be broken down.
type Category string

const (
	CategoryBrowser Category = "browser"
	CategoryOS      Category = "os"
	CategoryDevice  Category = "device"
	CategoryCountry Category = "country"
)

// Categories lists every breakdown in display order.
var Categories = []Category{CategoryBrowser, CategoryOS, CategoryDevice, CategoryCountry}

// categoryColumns whitelists the columns that may be interpolated into SQL.
var categoryColumns = map[Category]string{
	CategoryBrowser: "browser",
	CategoryOS:      "os",
	CategoryDevice:  "device",
	CategoryCountry: "country",
}

// ParseCategory validates a category name.
func ParseCategory(raw string) (Category, error) {
	c := Category(raw)
	if _, ok := categoryColumns[c]; !ok {
		return "", fmt.Errorf("unknown category %q", raw)
	}
	return c, nil
}

// Breakdown is the percentage share of each label. Labels, Data and Colors
// are parallel; a nil label is the group of unclassified page views.
type Breakdown struct {
	Labels []*string `json:"labels"`
	Data   []float64 `json:"data"`
	Colors []string  `json:"colors"`
}

func emptyBreakdown() Breakdown {
	return Breakdown{Labels: []*string{}, Data: []float64{}, Colors: []string{}}
}

// CategoryBreakdown groups page views by one classification attribute and
// converts the counts to percentages, largest group first.
func CategoryBreakdown(db *gorm.DB, params QueryParams, category Category) (Breakdown, error) {
	column, ok := categoryColumns[category]
	if !ok {
		return Breakdown{}, fmt.Errorf("unknown category %q", category)
	}

	var rows []struct {
		Label *string
		Count int64
	}
	err := scope(db, params).
		Select(column + " AS label, COUNT(DISTINCT id) AS count").
		Group(column).
		Order("count DESC").
		Order(column + " ASC").
		Scan(&rows).Error
	if err != nil {
		return Breakdown{}, fmt.Errorf("error fetching %s breakdown: %w", category, err)
	}

	counts := make([]int64, len(rows))
	for i, r := range rows {
		counts[i] = r.Count
	}
	data := Percentages(counts)
	if len(data) == 0 {
		return emptyBreakdown(), nil
	}

	breakdown := Breakdown{
		Labels: make([]*string, len(rows)),
		Data:   data,
		Colors: RandomColors(len(rows)),
	}
	for i, r := range rows {
		breakdown.Labels[i] = r.Label
	}
	return breakdown, nil
}

// Percentages converts counts to shares of their total rounded to two
// decimals. A zero total yields an empty slice.
func Percentages(counts []int64) []float64 {
	var total int64
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return []float64{}
	}

	pct := make([]float64, len(counts))
	for i, c := range counts {
		pct[i] = round2(float64(c) * 100 / float64(total))
	}
	return pct
}

// RandomColors returns n opaque "#rrggbb" colors. They carry no meaning.
func RandomColors(n int) []string {
	colors := make([]string, n)
	for i := range colors {
		colors[i] = fmt.Sprintf("#%06x", rand.IntN(0x1000000))
	}
	return colors
}
