package engine

import (
	"sort"
	"strings"
)

// ============================================================================
// QUERY VIEWS — Ranked and restricted projections of a Dataset
// ============================================================================

// TopN returns the n records with the largest totals, descending. Ties keep
// input order, so TopN(ds, n) is always a prefix of TopN(ds, n+1).
// n larger than the dataset returns every record.
func TopN(ds *Dataset, n int) ([]Record, error) {
	if n <= 0 {
		return nil, invalidArgf("n must be positive, got %d", n)
	}
	order := rankByTotal(ds)
	if n > len(order) {
		n = len(order)
	}
	out := make([]Record, n)
	for i := 0; i < n; i++ {
		out[i] = ds.records[order[i]]
	}
	return out, nil
}

// TopNShare is the percentage of the grand total held by TopN(ds, n).
func TopNShare(ds *Dataset, n int) (float64, error) {
	top, err := TopN(ds, n)
	if err != nil {
		return 0, err
	}
	var part int64
	for _, r := range top {
		part += r.Total()
	}
	return PercentOfWhole(part, GrandTotal(ds)), nil
}

// rankByTotal returns record indices sorted by total desc, stable.
func rankByTotal(ds *Dataset) []int {
	totals := make([]int64, len(ds.records))
	order := make([]int, len(ds.records))
	for i, r := range ds.records {
		totals[i] = r.Total()
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return totals[order[a]] > totals[order[b]]
	})
	return order
}

// FilteredCategoryView restricts ds to the selected categories. Names match
// case-insensitively and keep dataset order; duplicates collapse. Record
// totals in the result cover the selected categories only. Selecting nothing
// yields a valid view whose totals are all zero.
func FilteredCategoryView(ds *Dataset, selected []string) (*Dataset, error) {
	categories, err := resolveCategories(ds, selected)
	if err != nil {
		return nil, err
	}
	recs := make([]Record, len(ds.records))
	for i, r := range ds.records {
		recs[i] = r.restrict(categories)
	}
	return ds.derive(categories, recs), nil
}

// resolveCategories maps selected names onto ds categories in dataset order.
func resolveCategories(ds *Dataset, selected []string) ([]string, error) {
	want := make(map[string]bool, len(selected))
	for _, name := range selected {
		canonical, ok := ds.HasCategory(strings.TrimSpace(name))
		if !ok {
			return nil, invalidArgf("unknown category %q", name)
		}
		want[canonical] = true
	}
	out := make([]string, 0, len(want))
	for _, c := range ds.categories {
		if want[c] {
			out = append(out, c)
		}
	}
	return out, nil
}

// LeadingRecord returns the record with the largest total. The first
// occurrence wins ties.
func LeadingRecord(ds *Dataset) (Record, error) {
	if ds.Len() == 0 {
		return Record{}, ErrEmptyDataset
	}
	best := 0
	bestTotal := ds.records[0].Total()
	for i := 1; i < len(ds.records); i++ {
		if t := ds.records[i].Total(); t > bestTotal {
			best, bestTotal = i, t
		}
	}
	return ds.records[best], nil
}

// LeadingCategory returns the category with the largest grand total, ties
// broken by name.
func LeadingCategory(totals CategoryTotalMap) (CategoryTotal, error) {
	if len(totals) == 0 {
		return CategoryTotal{}, ErrEmptyDataset
	}
	return SortedCategoryTotals(totals)[0], nil
}
