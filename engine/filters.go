package engine

import (
	"strings"
)

// ============================================================================
// FILTERS — Identifier-Based Filtering via RecordView
// ============================================================================
// Single-pass filter: checks ALL dimension constraints per record in one loop.
// ApplyFilters returns a SubView (index list into parent) with zero data copy.
// FilterDataset materializes the same selection as a derived Dataset so the
// record-returning views can run on it.
// ============================================================================

// ApplyFilters returns a view of records matching all dimension filters.
// Dimensions are AND-combined; values within a dimension are OR-combined.
// Empty filter = no restriction (returns original view).
func ApplyFilters(view RecordView, filters Filters) RecordView {
	indices, ok := matchFilters(view, filters)
	if !ok {
		return view
	}
	return newSubView(view, indices)
}

// FilterDataset is ApplyFilters for a Dataset, keeping input order.
func FilterDataset(ds *Dataset, filters Filters) *Dataset {
	indices, ok := matchFilters(ds, filters)
	if !ok {
		return ds
	}
	return ds.subset(indices)
}

// matchFilters returns matching indices, or ok=false when nothing filters.
func matchFilters(view RecordView, filters Filters) ([]int, bool) {
	if filters.IsEmpty() {
		return nil, false
	}

	// Pre-build lowercase lookup sets for each dimension filter
	sets := make(map[string]map[string]bool)
	for dim, allowed := range filters.Dimensions {
		if len(allowed) > 0 {
			sets[strings.ToLower(dim)] = toLowerSet(allowed)
		}
	}

	// Single pass: a record passes if it matches ALL dimension filters
	n := view.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		pass := true
		for dim, set := range sets {
			val := strings.ToLower(view.Dimension(i, dim))
			if !set[val] {
				pass = false
				break
			}
		}
		if pass {
			indices = append(indices, i)
		}
	}
	return indices, true
}

// toLowerSet converts a string slice to a trimmed lowercase lookup set.
func toLowerSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[strings.ToLower(strings.TrimSpace(item))] = true
	}
	return set
}
