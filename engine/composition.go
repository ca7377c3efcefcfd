package engine

// ============================================================================
// COMPOSITION — Per-category series for the top districts
// ============================================================================
// Data behind a stacked bar chart: one point per top district (ranked by its
// full total) and one series per selected category. No colours, no labels;
// rendering belongs to the consumer.
// ============================================================================

// CompositionSeries holds one series per category over the same districts.
type CompositionSeries struct {
	Districts    []string            `json:"districts"`
	Governorates []string            `json:"governorates"`
	Totals       []int64             `json:"totals"` // full record totals
	Series       []CompositionColumn `json:"series"`
}

// CompositionColumn is one category's values, aligned with Districts.
type CompositionColumn struct {
	Category string  `json:"category"`
	Values   []int64 `json:"values"`
	Sum      int64   `json:"sum"`
}

// Composition ranks districts by full total and breaks the top n down by the
// selected categories. A nil selection means every category; an empty one
// yields districts with no series.
func Composition(ds *Dataset, n int, selected []string) (*CompositionSeries, error) {
	top, err := TopN(ds, n)
	if err != nil {
		return nil, err
	}
	categories, err := selection(ds, selected)
	if err != nil {
		return nil, err
	}

	out := &CompositionSeries{
		Districts:    make([]string, len(top)),
		Governorates: make([]string, len(top)),
		Totals:       make([]int64, len(top)),
		Series:       make([]CompositionColumn, 0, len(categories)),
	}
	for i, r := range top {
		out.Districts[i] = r.DistrictID
		out.Governorates[i] = r.GovernorateID
		out.Totals[i] = r.Total()
	}

	for _, cat := range categories {
		col := CompositionColumn{Category: cat, Values: make([]int64, len(top))}
		for i, r := range top {
			col.Values[i] = r.Count(cat)
			col.Sum += col.Values[i]
		}
		out.Series = append(out.Series, col)
	}
	return out, nil
}

// selection resolves a category selection where nil means all categories.
func selection(ds *Dataset, selected []string) ([]string, error) {
	if selected == nil {
		return ds.Categories(), nil
	}
	return resolveCategories(ds, selected)
}
