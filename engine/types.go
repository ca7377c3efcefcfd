package engine

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// IMMISTAT ENGINE TYPES — Immigrant population per district
// ============================================================================
// A Record is one district row: two normalized identifiers plus a count per
// nationality category. Totals are never stored; they are always derived
// from counts, so a filtered view recomputes them for free.
//
// Records, GroupSummaries and Datasets are immutable once built. Every
// accessor that exposes a map or slice returns a copy.
// ============================================================================

// ============================================================================
// COUNTS
// ============================================================================

// Counts maps a category name to a non-negative head count.
type Counts map[string]int64

// Total sums every category count.
func (c Counts) Total() int64 {
	var total int64
	for _, v := range c {
		total += v
	}
	return total
}

func (c Counts) clone() Counts {
	out := make(Counts, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// ============================================================================
// RECORD — One district row
// ============================================================================

// Record is a single district with its per-category counts.
type Record struct {
	DistrictID    string
	GovernorateID string
	counts        Counts
}

// NewRecord builds a Record. Negative counts are clamped to zero.
func NewRecord(district, governorate string, counts map[string]int64) Record {
	c := make(Counts, len(counts))
	for k, v := range counts {
		if v < 0 {
			v = 0
		}
		c[k] = v
	}
	return Record{DistrictID: district, GovernorateID: governorate, counts: c}
}

// Count returns the count for one category (0 when absent).
func (r Record) Count(category string) int64 { return r.counts[category] }

// Counts returns a copy of the per-category counts.
func (r Record) Counts() Counts { return r.counts.clone() }

// Total is the sum of all category counts.
func (r Record) Total() int64 { return r.counts.Total() }

// restrict keeps only the given categories; missing ones become 0.
func (r Record) restrict(categories []string) Record {
	c := make(Counts, len(categories))
	for _, cat := range categories {
		c[cat] = r.counts[cat]
	}
	return Record{DistrictID: r.DistrictID, GovernorateID: r.GovernorateID, counts: c}
}

type recordJSON struct {
	District    string `json:"district"`
	Governorate string `json:"governorate"`
	Counts      Counts `json:"counts"`
	Total       int64  `json:"total"`
}

// MarshalJSON emits the record with its derived total.
func (r Record) MarshalJSON() ([]byte, error) {
	counts := r.counts
	if counts == nil {
		counts = Counts{}
	}
	return json.Marshal(recordJSON{
		District:    r.DistrictID,
		Governorate: r.GovernorateID,
		Counts:      counts,
		Total:       r.Total(),
	})
}

// UnmarshalJSON reads a record; any "total" field is ignored and recomputed.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = NewRecord(raw.District, raw.Governorate, raw.Counts)
	return nil
}

// ============================================================================
// GROUP SUMMARY — Per-governorate aggregate
// ============================================================================

// GroupSummary aggregates every record of one governorate.
type GroupSummary struct {
	GovernorateID string
	Districts     int // member record count
	counts        Counts
}

// Count returns the summed count for one category.
func (g GroupSummary) Count(category string) int64 { return g.counts[category] }

// Counts returns a copy of the per-category sums.
func (g GroupSummary) Counts() Counts { return g.counts.clone() }

// Total is the sum of the group's category sums.
func (g GroupSummary) Total() int64 { return g.counts.Total() }

// MarshalJSON emits the group with its derived total.
func (g GroupSummary) MarshalJSON() ([]byte, error) {
	counts := g.counts
	if counts == nil {
		counts = Counts{}
	}
	return json.Marshal(struct {
		Governorate string `json:"governorate"`
		Districts   int    `json:"districts"`
		Counts      Counts `json:"counts"`
		Total       int64  `json:"total"`
	}{g.GovernorateID, g.Districts, counts, g.Total()})
}

// ============================================================================
// CATEGORY TOTALS
// ============================================================================

// CategoryTotalMap maps category → grand total. Zero totals are never present.
type CategoryTotalMap map[string]int64

// CategoryTotal is one entry of a CategoryTotalMap.
type CategoryTotal struct {
	Category string `json:"category"`
	Total    int64  `json:"total"`
}

// SortedCategoryTotals orders totals by value desc, then name asc.
func SortedCategoryTotals(totals CategoryTotalMap) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(totals))
	for k, v := range totals {
		out = append(out, CategoryTotal{Category: k, Total: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// ============================================================================
// DATASET — Immutable ordered record set
// ============================================================================

// Dataset is the loaded table: records in input order plus the ordered list
// of categories found in the source header. A Dataset is a RecordView.
type Dataset struct {
	ID       string
	Source   string
	LoadedAt time.Time

	records    []Record
	categories []string
}

// NewDataset builds an immutable Dataset with a fresh load ID.
// Duplicate category names are dropped, keeping first occurrence. Record
// counts are restricted to the category list, so counts under any other
// name are discarded and every record carries every category.
func NewDataset(source string, categories []string, records []Record) *Dataset {
	seen := make(map[string]bool, len(categories))
	cats := make([]string, 0, len(categories))
	for _, c := range categories {
		if seen[c] {
			continue
		}
		seen[c] = true
		cats = append(cats, c)
	}

	recs := make([]Record, len(records))
	for i, r := range records {
		recs[i] = r.restrict(cats)
	}

	return &Dataset{
		ID:         uuid.NewString(),
		Source:     source,
		LoadedAt:   time.Now().UTC(),
		records:    recs,
		categories: cats,
	}
}

// derive shares load metadata with the parent. Callers own records.
func (ds *Dataset) derive(categories []string, records []Record) *Dataset {
	return &Dataset{
		ID:         ds.ID,
		Source:     ds.Source,
		LoadedAt:   ds.LoadedAt,
		records:    records,
		categories: categories,
	}
}

// subset returns a Dataset holding the records at the given indices.
func (ds *Dataset) subset(indices []int) *Dataset {
	recs := make([]Record, len(indices))
	for i, idx := range indices {
		recs[i] = ds.records[idx]
	}
	return ds.derive(ds.categories, recs)
}

// Record returns the i-th record.
func (ds *Dataset) Record(i int) Record { return ds.records[i] }

// Records returns a copy of the records in input order.
func (ds *Dataset) Records() []Record {
	out := make([]Record, len(ds.records))
	copy(out, ds.records)
	return out
}

// Categories returns a copy of the category list in header order.
func (ds *Dataset) Categories() []string {
	out := make([]string, len(ds.categories))
	copy(out, ds.categories)
	return out
}

// HasCategory reports whether name is a category (case-insensitive),
// returning its canonical spelling.
func (ds *Dataset) HasCategory(name string) (string, bool) {
	for _, c := range ds.categories {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}

// MarshalJSON emits metadata, categories and records.
func (ds *Dataset) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID         string    `json:"id"`
		Source     string    `json:"source"`
		LoadedAt   time.Time `json:"loadedAt"`
		Categories []string  `json:"categories"`
		Records    []Record  `json:"records"`
	}{ds.ID, ds.Source, ds.LoadedAt, ds.categories, ds.records})
}

// ============================================================================
// QUERYSPEC — Declarative view request
// ============================================================================

// View names accepted by Execute.
const (
	ViewTopDistricts    = "top_districts"
	ViewGovernorates    = "governorates"
	ViewCategories      = "categories"
	ViewLeadingDistrict = "leading_district"
	ViewLeadingCategory = "leading_category"
	ViewComposition     = "composition"
	ViewInsights        = "insights"
	ViewDistricts       = "districts"
)

// Views lists every view name in a stable order.
var Views = []string{
	ViewTopDistricts, ViewGovernorates, ViewCategories, ViewLeadingDistrict,
	ViewLeadingCategory, ViewComposition, ViewInsights, ViewDistricts,
}

// QuerySpec defines what Execute should compute.
type QuerySpec struct {
	View       string   `json:"view" yaml:"view"`
	N          int      `json:"n,omitempty" yaml:"n,omitempty"`                   // 0 → default top-N
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty"` // nil → all categories
	Filters    Filters  `json:"filters" yaml:"filters"`
	SortBy     string   `json:"sortBy,omitempty" yaml:"sortBy,omitempty"` // governorates view only
}

// Filters restrict records by identifier value.
// Keys are dimension names ("district", "governorate"). Values are allowed
// values. OR within a dimension, AND across dimensions. Empty = all.
type Filters struct {
	Dimensions map[string][]string `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
}

// HasFilter returns true if a specific dimension filter is set.
func (f Filters) HasFilter(dimension string) bool {
	if f.Dimensions == nil {
		return false
	}
	vals, ok := f.Dimensions[dimension]
	return ok && len(vals) > 0
}

// IsEmpty returns true if no filters are set.
func (f Filters) IsEmpty() bool {
	for _, vals := range f.Dimensions {
		if len(vals) > 0 {
			return false
		}
	}
	return true
}

// ============================================================================
// RESULT — Output of Execute
// ============================================================================

// Result wraps the output of one view. Exactly one payload field is set.
type Result struct {
	View       string   `json:"view"`
	DatasetID  string   `json:"datasetId"`
	Matched    int      `json:"matched"` // records after filters
	Categories []string `json:"categories"`

	Records         []Record           `json:"records,omitempty"`
	Groups          []GroupSummary     `json:"groups,omitempty"`
	CategoryTotals  []CategoryTotal    `json:"categoryTotals,omitempty"`
	LeadingRecord   *Record            `json:"leadingRecord,omitempty"`
	LeadingCategory *CategoryTotal     `json:"leadingCategory,omitempty"`
	Composition     *CompositionSeries `json:"composition,omitempty"`
	Insights        *Insights          `json:"insights,omitempty"`
}
