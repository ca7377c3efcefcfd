package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/spektr-org/immistat/schema"
)

// ============================================================================
// AGGREGATORS — Grouping, Summation, and Sorting via RecordView
// ============================================================================
// All functions operate on RecordView, zero-copy access to any data source.
// Grouping produces SubViews (index lists into parent view).
// ============================================================================

// GroupByGovernorate sums every category across records sharing a
// governorate. Groups are ordered by total desc, ties by governorate asc.
func GroupByGovernorate(view RecordView) []GroupSummary {
	groups := groupBy(view, schema.DimensionGovernorate)
	SortGroups(groups, SortTotalDesc)
	return groups
}

// ============================================================================
// GROUPING
// ============================================================================

// groupBy buckets records by one dimension, in first-seen order.
func groupBy(view RecordView, dimension string) []GroupSummary {
	grouped := make(map[string][]int)
	order := make([]string, 0)

	for i := 0; i < view.Len(); i++ {
		key := view.Dimension(i, dimension)
		if _, exists := grouped[key]; !exists {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], i)
	}

	categories := view.MeasureKeys()
	groups := make([]GroupSummary, 0, len(order))
	for _, key := range order {
		sub := newSubView(view, grouped[key])
		counts := make(Counts, len(categories))
		for _, cat := range categories {
			counts[cat] = SumMeasure(sub, cat)
		}
		groups = append(groups, GroupSummary{
			GovernorateID: key,
			Districts:     sub.Len(),
			counts:        counts,
		})
	}
	return groups
}

// ============================================================================
// AGGREGATION
// ============================================================================

// SumMeasure sums a named measure across a view.
func SumMeasure(view RecordView, measure string) int64 {
	var total int64
	for i := 0; i < view.Len(); i++ {
		total += view.Measure(i, measure)
	}
	return total
}

// CategoryTotals sums each category over the whole view. Categories whose
// grand total is zero are omitted.
func CategoryTotals(view RecordView) CategoryTotalMap {
	totals := make(CategoryTotalMap)
	for _, cat := range view.MeasureKeys() {
		if sum := SumMeasure(view, cat); sum > 0 {
			totals[cat] = sum
		}
	}
	return totals
}

// GrandTotal is the sum of every record total.
func GrandTotal(view RecordView) int64 {
	return SumMeasure(view, MeasureTotal)
}

// ActiveDistricts counts records with a positive total.
func ActiveDistricts(view RecordView) int {
	n := 0
	for i := 0; i < view.Len(); i++ {
		if view.Measure(i, MeasureTotal) > 0 {
			n++
		}
	}
	return n
}

// ActiveGovernorates counts groups with a positive total.
func ActiveGovernorates(groups []GroupSummary) int {
	n := 0
	for _, g := range groups {
		if g.Total() > 0 {
			n++
		}
	}
	return n
}

// PercentOfWhole returns part as a percentage of whole; whole == 0 gives 0.
func PercentOfWhole(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// TopGroupShare is the percentage of all group totals held by the first k
// groups, in the order given.
func TopGroupShare(groups []GroupSummary, k int) (float64, error) {
	if k <= 0 {
		return 0, invalidArgf("k must be positive, got %d", k)
	}
	var top, whole int64
	for i, g := range groups {
		t := g.Total()
		whole += t
		if i < k {
			top += t
		}
	}
	return PercentOfWhole(top, whole), nil
}

// ============================================================================
// SORTING
// ============================================================================

// Group sort modes.
const (
	SortTotalDesc = "total_desc"
	SortTotalAsc  = "total_asc"
	SortLabelAsc  = "label_asc"
	SortLabelDesc = "label_desc"
)

// sortModes lists every mode SortGroups understands, aliases included.
var sortModes = map[string]bool{
	SortTotalDesc: true,
	SortTotalAsc:  true,
	SortLabelAsc:  true,
	SortLabelDesc: true,
	"value_desc":  true,
	"value_asc":   true,
	"alpha_asc":   true,
}

// ValidSortMode reports whether SortGroups understands mode. The empty mode
// keeps grouping order.
func ValidSortMode(mode string) bool {
	return mode == "" || sortModes[mode]
}

// SortGroups sorts governorate groups by the specified sort mode.
// Unknown modes preserve grouping order; Execute rejects them first.
func SortGroups(groups []GroupSummary, sortBy string) {
	switch sortBy {
	case SortTotalDesc, "value_desc":
		sort.SliceStable(groups, func(i, j int) bool {
			ti, tj := groups[i].Total(), groups[j].Total()
			if ti != tj {
				return ti > tj
			}
			return groups[i].GovernorateID < groups[j].GovernorateID
		})
	case SortTotalAsc, "value_asc":
		sort.SliceStable(groups, func(i, j int) bool {
			ti, tj := groups[i].Total(), groups[j].Total()
			if ti != tj {
				return ti < tj
			}
			return groups[i].GovernorateID < groups[j].GovernorateID
		})
	case SortLabelAsc, "alpha_asc":
		sort.SliceStable(groups, func(i, j int) bool {
			return strings.ToLower(groups[i].GovernorateID) < strings.ToLower(groups[j].GovernorateID)
		})
	case SortLabelDesc:
		sort.SliceStable(groups, func(i, j int) bool {
			return strings.ToLower(groups[i].GovernorateID) > strings.ToLower(groups[j].GovernorateID)
		})
	default:
		// preserve grouping order
	}
}

// ============================================================================
// FORMATTING UTILITIES
// ============================================================================

// FormatInt formats an integer with comma separators.
func FormatInt(n int64) string {
	if n < 0 {
		return "-" + FormatInt(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%03d", FormatInt(n/1000), n%1000)
}

// RoundTo1 rounds to 1 decimal place.
func RoundTo1(v float64) float64 {
	return math.Round(v*10) / 10
}

// UniqueValues returns distinct values for a dimension across a view.
func UniqueValues(view RecordView, dimension string) []string {
	seen := make(map[string]bool)
	var result []string
	for i := 0; i < view.Len(); i++ {
		val := view.Dimension(i, dimension)
		if val != "" && !seen[val] {
			seen[val] = true
			result = append(result, val)
		}
	}
	return result
}
