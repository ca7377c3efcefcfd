package engine

import (
	"github.com/go-faster/errors"
)

// ============================================================================
// INSIGHTS — Dashboard key metrics as numbers
// ============================================================================
// Everything a dashboard headline needs, computed in one pass over the
// engine's own operations. Empty states are flags plus nil pointers, never
// errors, so a presenter can render "no data" without error handling.
// ============================================================================

// TopGovernoratesK is how many leading governorates the share metric covers.
const TopGovernoratesK = 3

// Insights is the full set of headline metrics for a dataset.
type Insights struct {
	Empty bool `json:"empty"`

	// Key metrics
	GrandTotal      int64          `json:"grandTotal"`
	Districts       int            `json:"districts"`
	ActiveDistricts int            `json:"activeDistricts"`
	TopDistrict     *Record        `json:"topDistrict,omitempty"`
	LargestCategory *CategoryTotal `json:"largestCategory,omitempty"`

	// District analysis
	SelectedCategories []string `json:"selectedCategories"`
	NoSelection        bool     `json:"noSelection"`
	SelectedTotal      int64    `json:"selectedTotal"`
	TopN               int      `json:"topN"`
	TopNShare          float64  `json:"topNShare"` // percent of GrandTotal

	// Governorate analysis
	Governorates         int           `json:"governorates"`
	ActiveGovernorates   int           `json:"activeGovernorates"`
	TopGovernorate       *GroupSummary `json:"topGovernorate,omitempty"`
	TopGovernoratesShare float64       `json:"topGovernoratesShare"` // percent held by the first TopGovernoratesK
}

// BuildInsights computes headline metrics. n sizes the top-district share;
// selected restricts the selected-population total (nil means all).
func BuildInsights(ds *Dataset, n int, selected []string) (*Insights, error) {
	if n <= 0 {
		return nil, invalidArgf("n must be positive, got %d", n)
	}
	categories, err := selection(ds, selected)
	if err != nil {
		return nil, err
	}

	in := &Insights{
		Empty:              ds.Len() == 0,
		GrandTotal:         GrandTotal(ds),
		Districts:          ds.Len(),
		ActiveDistricts:    ActiveDistricts(ds),
		SelectedCategories: categories,
		NoSelection:        len(categories) == 0,
		TopN:               n,
	}

	if top, err := LeadingRecord(ds); err == nil {
		in.TopDistrict = &top
	} else if !errors.Is(err, ErrEmptyDataset) {
		return nil, err
	}

	if lead, err := LeadingCategory(CategoryTotals(ds)); err == nil {
		in.LargestCategory = &lead
	}

	for _, cat := range categories {
		in.SelectedTotal += SumMeasure(ds, cat)
	}

	if in.TopNShare, err = TopNShare(ds, n); err != nil {
		return nil, err
	}

	groups := GroupByGovernorate(ds)
	in.Governorates = len(groups)
	in.ActiveGovernorates = ActiveGovernorates(groups)
	if len(groups) > 0 {
		in.TopGovernorate = &groups[0]
	}
	if in.TopGovernoratesShare, err = TopGroupShare(groups, TopGovernoratesK); err != nil {
		return nil, err
	}

	return in, nil
}
