package engine

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposition(t *testing.T) {
	c, err := Composition(wideDataset(), 3, []string{"Sri Lankan", "Bangladeshi"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Baabda", "Beirut", "Zahle"}, c.Districts)
	assert.Equal(t, []string{"Mount Lebanon", "Beirut", "Beqaa"}, c.Governorates)
	assert.Equal(t, []int64{250, 250, 250}, c.Totals)
	require.Len(t, c.Series, 2)
	assert.Equal(t, "Bangladeshi", c.Series[0].Category)
	assert.Equal(t, []int64{120, 0, 0}, c.Series[0].Values)
	assert.Equal(t, "Sri Lankan", c.Series[1].Category)
	assert.Equal(t, int64(40), c.Series[1].Sum)
}

func TestCompositionSelections(t *testing.T) {
	ds := scenarioDataset()

	all, err := Composition(ds, 2, nil)
	require.NoError(t, err)
	assert.Len(t, all.Series, 2)

	none, err := Composition(ds, 2, []string{})
	require.NoError(t, err)
	assert.Empty(t, none.Series)
	assert.Len(t, none.Districts, 2)

	_, err = Composition(ds, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = Composition(ds, 2, []string{"nope"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestBuildInsights(t *testing.T) {
	in, err := BuildInsights(wideDataset(), 2, []string{"Egyptian"})
	require.NoError(t, err)

	assert.False(t, in.Empty)
	assert.Equal(t, int64(1080), in.GrandTotal)
	assert.Equal(t, 7, in.Districts)
	assert.Equal(t, 6, in.ActiveDistricts)
	require.NotNil(t, in.TopDistrict)
	assert.Equal(t, "Baabda", in.TopDistrict.DistrictID)
	require.NotNil(t, in.LargestCategory)
	assert.Equal(t, "Sri Lankan", in.LargestCategory.Category)
	assert.Equal(t, int64(330), in.LargestCategory.Total)

	assert.Equal(t, []string{"Egyptian"}, in.SelectedCategories)
	assert.False(t, in.NoSelection)
	assert.Equal(t, int64(230), in.SelectedTotal)
	assert.InDelta(t, 46.3, in.TopNShare, 0.1)

	assert.Equal(t, 6, in.Governorates)
	assert.Equal(t, 5, in.ActiveGovernorates)
	require.NotNil(t, in.TopGovernorate)
	assert.Equal(t, "Mount Lebanon", in.TopGovernorate.GovernorateID)
	assert.InDelta(t, 92.59, in.TopGovernoratesShare, 0.01)
}

func TestBuildInsightsEmptyStates(t *testing.T) {
	in, err := BuildInsights(emptyDataset(), 10, nil)
	require.NoError(t, err)
	assert.True(t, in.Empty)
	assert.Nil(t, in.TopDistrict)
	assert.Nil(t, in.LargestCategory)
	assert.Nil(t, in.TopGovernorate)
	assert.Zero(t, in.TopNShare)

	in, err = BuildInsights(scenarioDataset(), 10, []string{})
	require.NoError(t, err)
	assert.True(t, in.NoSelection)
	assert.Zero(t, in.SelectedTotal)

	_, err = BuildInsights(scenarioDataset(), 0, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

// ============================================================================
// EXECUTE
// ============================================================================

func TestExecuteDispatchesEveryView(t *testing.T) {
	ds := scenarioDataset()
	for _, view := range Views {
		t.Run(view, func(t *testing.T) {
			res, err := Execute(QuerySpec{View: view, N: 2}, ds)
			require.NoError(t, err)
			assert.Equal(t, view, res.View)
			assert.Equal(t, ds.ID, res.DatasetID)
			assert.Equal(t, 3, res.Matched)
		})
	}
}

func TestExecuteViews(t *testing.T) {
	ds := scenarioDataset()

	res, err := Execute(QuerySpec{View: "top-districts", N: 2}, ds)
	require.NoError(t, err)
	assert.Equal(t, ViewTopDistricts, res.View)
	assert.Equal(t, []string{"A", "C"}, districtIDs(res.Records))

	res, err = Execute(QuerySpec{View: ViewTopDistricts, N: 1, Categories: []string{"Iraqi"}}, ds)
	require.NoError(t, err)
	assert.Equal(t, []string{"Iraqi"}, res.Categories)
	assert.Equal(t, int64(5), res.Records[0].Total())

	res, err = Execute(QuerySpec{View: ViewGovernorates, SortBy: SortLabelAsc}, ds)
	require.NoError(t, err)
	require.Len(t, res.Groups, 2)
	assert.Equal(t, "X", res.Groups[0].GovernorateID)

	res, err = Execute(QuerySpec{View: ViewCategories}, ds)
	require.NoError(t, err)
	assert.Equal(t, []CategoryTotal{{"Bangladeshi", 13}, {"Iraqi", 5}}, res.CategoryTotals)

	res, err = Execute(QuerySpec{View: ViewLeadingCategory}, ds)
	require.NoError(t, err)
	assert.Equal(t, "Bangladeshi", res.LeadingCategory.Category)

	res, err = Execute(QuerySpec{
		View:    ViewLeadingDistrict,
		Filters: Filters{Dimensions: map[string][]string{"governorate": {"y"}}},
	}, ds)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Matched)
	assert.Equal(t, "C", res.LeadingRecord.DistrictID)
}

func TestExecuteErrors(t *testing.T) {
	ds := scenarioDataset()

	_, err := Execute(QuerySpec{View: "pie_chart"}, ds)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Execute(QuerySpec{View: ViewTopDistricts, N: -1}, ds)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Execute(QuerySpec{View: ViewCategories, Categories: []string{"Martian"}}, ds)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Execute(QuerySpec{
		View:    ViewLeadingDistrict,
		Filters: Filters{Dimensions: map[string][]string{"district": {"nowhere"}}},
	}, ds)
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestExecuteRejectsUnknownSort(t *testing.T) {
	ds := scenarioDataset()

	_, err := Execute(QuerySpec{View: ViewGovernorates, SortBy: "by_population"}, ds)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	res, err := Execute(QuerySpec{View: ViewGovernorates, SortBy: " Label_Desc "}, ds)
	require.NoError(t, err)
	require.Len(t, res.Groups, 2)
	assert.Equal(t, "Y", res.Groups[0].GovernorateID)
}

func TestExecuteDefaultTopNAndLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.DebugLevel)

	res, err := Execute(QuerySpec{View: ViewTopDistricts}, wideDataset(),
		WithDefaultTopN(2), WithLogger(logger))
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)
	assert.Contains(t, buf.String(), "view=top_districts")
}

func TestNormalizeQuerySpec(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{" Top ", ViewTopDistricts},
		{"Leading-District", ViewLeadingDistrict},
		{"nationality", ViewCategories},
		{"summary", ViewInsights},
		{"governorates", ViewGovernorates},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeQuerySpec(QuerySpec{View: tt.in}).View, tt.in)
	}
	assert.Equal(t, SortTotalDesc, NormalizeQuerySpec(QuerySpec{View: "governorates"}).SortBy)
}
