package engine

import "github.com/spektr-org/immistat/schema"

// ============================================================================
// RECORD VIEW — Zero-Copy Data Access Interface
// ============================================================================
// Aggregations read through this interface, never through concrete types.
//
// Implementations:
//   *Dataset  the loaded table
//   SubView   filtered subset (indices into parent, zero-copy)
//
// Dimensions: "district", "governorate".
// Measures:   any category name, plus the virtual "total".
// ============================================================================

// MeasureTotal is the virtual measure holding a record's total.
const MeasureTotal = "total"

// RecordView provides indexed access to a dataset.
// Aggregations call Dimension/Measure in tight loops; keep implementations fast.
type RecordView interface {
	Len() int
	Dimension(index int, key string) string
	Measure(index int, key string) int64
	DimensionKeys() []string // available dimension keys
	MeasureKeys() []string   // category names, in header order
}

// ============================================================================
// DATASET AS VIEW
// ============================================================================

func (ds *Dataset) Len() int { return len(ds.records) }

func (ds *Dataset) Dimension(i int, key string) string {
	if i < 0 || i >= len(ds.records) {
		return ""
	}
	switch key {
	case schema.DimensionDistrict:
		return ds.records[i].DistrictID
	case schema.DimensionGovernorate:
		return ds.records[i].GovernorateID
	}
	return ""
}

func (ds *Dataset) Measure(i int, key string) int64 {
	if i < 0 || i >= len(ds.records) {
		return 0
	}
	if key == MeasureTotal {
		return ds.records[i].Total()
	}
	return ds.records[i].Count(key)
}

func (ds *Dataset) DimensionKeys() []string {
	return []string{schema.DimensionDistrict, schema.DimensionGovernorate}
}

func (ds *Dataset) MeasureKeys() []string { return ds.Categories() }

// ============================================================================
// SUB VIEW — filtered subset (zero-copy)
// ============================================================================

// SubView is a filtered subset of a parent RecordView.
// Holds indices into the parent, no data copy.
type SubView struct {
	parent  RecordView
	indices []int
}

func newSubView(parent RecordView, indices []int) RecordView {
	return &SubView{parent: parent, indices: indices}
}

func (v *SubView) Len() int { return len(v.indices) }

func (v *SubView) Dimension(i int, key string) string {
	if i < 0 || i >= len(v.indices) {
		return ""
	}
	return v.parent.Dimension(v.indices[i], key)
}

func (v *SubView) Measure(i int, key string) int64 {
	if i < 0 || i >= len(v.indices) {
		return 0
	}
	return v.parent.Measure(v.indices[i], key)
}

func (v *SubView) DimensionKeys() []string { return v.parent.DimensionKeys() }
func (v *SubView) MeasureKeys() []string   { return v.parent.MeasureKeys() }
