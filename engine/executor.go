package engine

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// ============================================================================
// EXECUTOR — QuerySpec Dispatcher
// ============================================================================
// Entry point: Execute(spec, dataset, opts...)
//
// Pipeline:
//   1. Normalize the QuerySpec (aliases, default N, default sort)
//   2. Apply identifier filters → derived Dataset
//   3. Dispatch to the requested view
//   4. Return Result
//
// Pure: no I/O besides logging, safe for concurrent use on one Dataset.
// ============================================================================

// Execute runs a QuerySpec against a Dataset.
//
// Options:
//   - WithLogger(l): structured logging of each dispatch
//   - WithDefaultTopN(n): N when QuerySpec.N is 0
func Execute(spec QuerySpec, ds *Dataset, opts ...Option) (*Result, error) {
	cfg := applyOptions(opts)
	spec = NormalizeQuerySpec(spec)
	if spec.N == 0 {
		spec.N = cfg.DefaultTopN
	}
	if spec.N < 0 {
		return nil, invalidArgf("n must be positive, got %d", spec.N)
	}
	if !ValidSortMode(spec.SortBy) {
		return nil, invalidArgf("unknown sort %q (want total_desc, total_asc, label_asc or label_desc)", spec.SortBy)
	}

	log := cfg.Logger.WithFields(logrus.Fields{
		"view":    spec.View,
		"n":       spec.N,
		"dataset": ds.ID,
	})

	filtered := FilterDataset(ds, spec.Filters)
	log.WithFields(logrus.Fields{
		"records": ds.Len(),
		"matched": filtered.Len(),
	}).Debug("executing query")

	result := &Result{
		View:      spec.View,
		DatasetID: ds.ID,
		Matched:   filtered.Len(),
	}

	var err error
	switch spec.View {
	case ViewComposition:
		result.Composition, err = Composition(filtered, spec.N, spec.Categories)
		if err == nil {
			result.Categories = seriesCategories(result.Composition)
		}

	case ViewInsights:
		result.Insights, err = BuildInsights(filtered, spec.N, spec.Categories)
		if err == nil {
			result.Categories = result.Insights.SelectedCategories
		}

	case ViewTopDistricts, ViewDistricts, ViewLeadingDistrict,
		ViewGovernorates, ViewCategories, ViewLeadingCategory:
		var view *Dataset
		if view, err = restrictCategories(filtered, spec.Categories); err != nil {
			break
		}
		result.Categories = view.Categories()
		err = dispatchRecordView(result, spec, view)

	default:
		err = invalidArgf("unknown view %q (want one of %s)", spec.View, strings.Join(Views, ", "))
	}

	if err != nil {
		log.WithError(err).Debug("query failed")
		return nil, err
	}
	return result, nil
}

// dispatchRecordView fills result for the views that run on a
// category-restricted Dataset.
func dispatchRecordView(result *Result, spec QuerySpec, view *Dataset) error {
	switch spec.View {
	case ViewTopDistricts:
		top, err := TopN(view, spec.N)
		if err != nil {
			return err
		}
		result.Records = top

	case ViewDistricts:
		result.Records = view.Records()

	case ViewLeadingDistrict:
		lead, err := LeadingRecord(view)
		if err != nil {
			return err
		}
		result.LeadingRecord = &lead

	case ViewGovernorates:
		groups := GroupByGovernorate(view)
		SortGroups(groups, spec.SortBy)
		result.Groups = groups

	case ViewCategories:
		result.CategoryTotals = SortedCategoryTotals(CategoryTotals(view))

	case ViewLeadingCategory:
		lead, err := LeadingCategory(CategoryTotals(view))
		if err != nil {
			return err
		}
		result.LeadingCategory = &lead
	}
	return nil
}

// restrictCategories applies FilteredCategoryView unless selected is nil.
func restrictCategories(ds *Dataset, selected []string) (*Dataset, error) {
	if selected == nil {
		return ds, nil
	}
	return FilteredCategoryView(ds, selected)
}

func seriesCategories(c *CompositionSeries) []string {
	out := make([]string, len(c.Series))
	for i, s := range c.Series {
		out[i] = s.Category
	}
	return out
}

// ============================================================================
// QUERYSPEC NORMALIZATION
// ============================================================================

var viewAliases = map[string]string{
	"top":          ViewTopDistricts,
	"top_district": ViewTopDistricts,
	"governorate":  ViewGovernorates,
	"category":     ViewCategories,
	"nationality":  ViewCategories,
	"leading":      ViewLeadingDistrict,
	"district":     ViewDistricts,
	"summary":      ViewInsights,
}

// NormalizeQuerySpec applies deterministic cleanup: view names are trimmed,
// lowercased and de-aliased ("top-districts" → "top_districts"), and the
// governorates view defaults to total-descending order.
func NormalizeQuerySpec(spec QuerySpec) QuerySpec {
	view := strings.ToLower(strings.TrimSpace(spec.View))
	view = strings.NewReplacer("-", "_", " ", "_").Replace(view)
	if alias, ok := viewAliases[view]; ok {
		view = alias
	}
	spec.View = view
	spec.SortBy = strings.ToLower(strings.TrimSpace(spec.SortBy))

	if spec.View == ViewGovernorates && spec.SortBy == "" {
		spec.SortBy = SortTotalDesc
	}
	return spec
}
