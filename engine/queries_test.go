package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopN(t *testing.T) {
	ds := scenarioDataset()

	_, err := TopN(ds, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = TopN(ds, -2)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	all, err := TopN(ds, 1000)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "B"}, districtIDs(all))
}

func TestTopNStableOnTies(t *testing.T) {
	top, err := TopN(wideDataset(), 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"Baabda", "Beirut", "Zahle", "Aley"}, districtIDs(top))
}

func TestTopNPrefixProperty(t *testing.T) {
	ds := wideDataset()
	for n := 1; n < ds.Len(); n++ {
		a, err := TopN(ds, n)
		require.NoError(t, err)
		b, err := TopN(ds, n+1)
		require.NoError(t, err)

		require.Len(t, a, n)
		assert.Equal(t, districtIDs(a), districtIDs(b)[:n], "TopN(%d) must prefix TopN(%d)", n, n+1)
		for i := 1; i < len(b); i++ {
			assert.GreaterOrEqual(t, b[i-1].Total(), b[i].Total())
		}
	}
}

func TestTopNShare(t *testing.T) {
	share, err := TopNShare(scenarioDataset(), 1)
	require.NoError(t, err)
	assert.InDelta(t, 83.33, share, 0.01)

	share, err = TopNShare(emptyDataset(), 5)
	require.NoError(t, err)
	assert.Zero(t, share)

	_, err = TopNShare(scenarioDataset(), 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

// ============================================================================
// FILTERED CATEGORY VIEW
// ============================================================================

func TestFilteredCategoryViewRoundTrip(t *testing.T) {
	ds := wideDataset()
	view, err := FilteredCategoryView(ds, ds.Categories())
	require.NoError(t, err)

	require.Equal(t, ds.Len(), view.Len())
	for i := 0; i < ds.Len(); i++ {
		assert.Equal(t, ds.Record(i).Total(), view.Record(i).Total())
	}
}

func TestFilteredCategoryViewRecomputesTotals(t *testing.T) {
	ds := scenarioDataset()
	view, err := FilteredCategoryView(ds, []string{"iraqi", "IRAQI"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Iraqi"}, view.Categories())
	assert.Equal(t, int64(5), view.Record(0).Total())
	assert.Equal(t, int64(0), view.Record(2).Total())
	assert.Equal(t, int64(0), view.Record(0).Count("Bangladeshi"))

	// source untouched
	assert.Equal(t, int64(15), ds.Record(0).Total())
	assert.Equal(t, ds.ID, view.ID)
}

func TestFilteredCategoryViewKeepsDatasetOrder(t *testing.T) {
	ds := wideDataset()
	view, err := FilteredCategoryView(ds, []string{"Iraqi", "Bangladeshi"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bangladeshi", "Iraqi"}, view.Categories())
}

func TestFilteredCategoryViewEmptySelection(t *testing.T) {
	view, err := FilteredCategoryView(wideDataset(), nil)
	require.NoError(t, err)
	assert.Empty(t, view.Categories())
	for _, r := range view.Records() {
		assert.Zero(t, r.Total())
	}
	assert.Empty(t, CategoryTotals(view))
}

func TestFilteredCategoryViewUnknownCategory(t *testing.T) {
	_, err := FilteredCategoryView(scenarioDataset(), []string{"Martian"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "Martian")
}

// ============================================================================
// LEADING
// ============================================================================

func TestLeadingRecordFirstOccurrenceWins(t *testing.T) {
	lead, err := LeadingRecord(wideDataset())
	require.NoError(t, err)
	assert.Equal(t, "Baabda", lead.DistrictID)
}

func TestLeadingCategoryTieBreak(t *testing.T) {
	lead, err := LeadingCategory(CategoryTotalMap{"Sudanese": 7, "Egyptian": 7, "Iraqi": 1})
	require.NoError(t, err)
	assert.Equal(t, "Egyptian", lead.Category)
}

func TestEmptyDatasetScenario(t *testing.T) {
	ds := emptyDataset()

	_, err := LeadingRecord(ds)
	assert.ErrorIs(t, err, ErrEmptyDataset)

	totals := CategoryTotals(ds)
	assert.Empty(t, totals)

	_, err = LeadingCategory(totals)
	assert.ErrorIs(t, err, ErrEmptyDataset)

	assert.Empty(t, GroupByGovernorate(ds))
	assert.Zero(t, GrandTotal(ds))
}

func TestAllZeroCategoriesLeadingCategoryFails(t *testing.T) {
	ds := NewDataset("t", []string{"Iraqi"}, []Record{NewRecord("A", "X", nil)})
	_, err := LeadingCategory(CategoryTotals(ds))
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

// ============================================================================
// FILTERS
// ============================================================================

func TestApplyFilters(t *testing.T) {
	ds := wideDataset()

	view := ApplyFilters(ds, Filters{Dimensions: map[string][]string{
		"governorate": {"mount lebanon", "BEIRUT"},
	}})
	require.Equal(t, 3, view.Len())
	assert.Equal(t, "Baabda", view.Dimension(0, "district"))
	assert.Equal(t, "Aley", view.Dimension(2, "district"))
	assert.Equal(t, int64(750), GrandTotal(view))

	view = ApplyFilters(ds, Filters{Dimensions: map[string][]string{
		"governorate": {"Mount Lebanon"},
		"district":    {"aley"},
	}})
	assert.Equal(t, 1, view.Len())

	assert.Same(t, ds, ApplyFilters(ds, Filters{}).(*Dataset))
}

func TestFilterDataset(t *testing.T) {
	ds := wideDataset()
	sub := FilterDataset(ds, Filters{Dimensions: map[string][]string{"governorate": {"Beqaa"}}})
	require.Equal(t, 1, sub.Len())
	assert.Equal(t, "Zahle", sub.Record(0).DistrictID)
	assert.Equal(t, ds.Categories(), sub.Categories())

	none := FilterDataset(ds, Filters{Dimensions: map[string][]string{"governorate": {"Atlantis"}}})
	assert.Zero(t, none.Len())
}
