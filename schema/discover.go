package schema

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-faster/errors"
)

// ============================================================================
// DISCOVERY — Header-driven column classification
// ============================================================================
// Classification per column:
//   1. Header equals the district / governorate column name → identifier
//   2. Header starts with the category prefix → nationality category
//   3. Anything else → skipped, with a reason derived from sampled values
//
// Sampled rows feed cardinality hints, non-numeric cell counts and the
// district → governorate hierarchy check. Discovery never parses counts;
// that is the loader's job.
// ============================================================================

// Default column conventions of the Lebanese immigration table.
const (
	DefaultDistrictColumn    = "District URI"
	DefaultGovernorateColumn = "Governorate URI"
	DefaultCategoryPrefix    = "Number of "
)

var (
	// ErrNoColumns is returned when the header row is missing or empty.
	ErrNoColumns = errors.New("no columns in header")
	// ErrNoCategories is returned when no header carries the category prefix.
	ErrNoCategories = errors.New("no category columns")
	// ErrMissingIdentifier is returned when a district or governorate column is absent.
	ErrMissingIdentifier = errors.New("missing identifier column")
)

// DiscoverOptions controls discovery behavior.
type DiscoverOptions struct {
	DistrictColumn    string
	GovernorateColumn string
	CategoryPrefix    string
	SampleSize        int    // Max rows to inspect (0 = all sampled rows given)
	Name              string // Dataset name override
	Source            string // Recorded in DiscoveredFrom
}

// DefaultDiscoverOptions returns the table conventions of the source data.
func DefaultDiscoverOptions() DiscoverOptions {
	return DiscoverOptions{
		DistrictColumn:    DefaultDistrictColumn,
		GovernorateColumn: DefaultGovernorateColumn,
		CategoryPrefix:    DefaultCategoryPrefix,
		SampleSize:        1000,
	}
}

func (o DiscoverOptions) withDefaults() DiscoverOptions {
	def := DefaultDiscoverOptions()
	if o.DistrictColumn == "" {
		o.DistrictColumn = def.DistrictColumn
	}
	if o.GovernorateColumn == "" {
		o.GovernorateColumn = def.GovernorateColumn
	}
	if o.CategoryPrefix == "" {
		o.CategoryPrefix = def.CategoryPrefix
	}
	return o
}

// DiscoverFromCSV generates a Config by inspecting CSV data.
func DiscoverFromCSV(data []byte, opts ...DiscoverOptions) (*Config, error) {
	opt := DefaultDiscoverOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}

	reader := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(data), "\ufeff")))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoColumns
		}
		return nil, errors.Wrap(err, "read CSV header")
	}

	var rows [][]string
	for opt.SampleSize <= 0 || len(rows) < opt.SampleSize {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			continue // skip malformed rows
		}
		rows = append(rows, row)
	}

	if opt.Source == "" {
		opt.Source = "CSV"
	}
	return Discover(headers, rows, opt)
}

// Discover classifies header columns using sampled rows.
func Discover(headers []string, rows [][]string, opt DiscoverOptions) (*Config, error) {
	opt = opt.withDefaults()
	if len(headers) == 0 {
		return nil, ErrNoColumns
	}
	if opt.SampleSize > 0 && len(rows) > opt.SampleSize {
		rows = rows[:opt.SampleSize]
	}

	config := &Config{
		Name:           opt.Name,
		Version:        "1.0",
		DiscoveredFrom: opt.Source,
		DiscoveredAt:   time.Now().UTC().Format(time.RFC3339),
		RowsSampled:    len(rows),
	}
	if config.Name == "" {
		config.Name = "Immigrant Population by District"
	}

	seenCategories := make(map[string]bool)
	var district, governorate *DimensionMeta

	for i, raw := range headers {
		header := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
		col := analyzeColumn(header, i, rows)

		switch {
		case strings.EqualFold(header, opt.DistrictColumn) && district == nil:
			d := col.toDimension(DimensionDistrict)
			district = &d

		case strings.EqualFold(header, opt.GovernorateColumn) && governorate == nil:
			d := col.toDimension(DimensionGovernorate)
			governorate = &d

		case hasPrefixFold(header, opt.CategoryPrefix):
			category := strings.TrimSpace(header[len(opt.CategoryPrefix):])
			switch {
			case category == "":
				config.SkippedColumns = append(config.SkippedColumns, SkippedColumn{
					Column: header, Reason: "Category prefix without a category name",
				})
			case seenCategories[strings.ToLower(category)]:
				config.SkippedColumns = append(config.SkippedColumns, SkippedColumn{
					Column: header, Reason: "Duplicate category column",
				})
			default:
				seenCategories[strings.ToLower(category)] = true
				config.Measures = append(config.Measures, col.toMeasure(category))
			}

		default:
			config.SkippedColumns = append(config.SkippedColumns, SkippedColumn{
				Column: header,
				Reason: col.skipReason(),
			})
		}
	}

	if district == nil {
		return nil, errors.Wrapf(ErrMissingIdentifier, "district column %q", opt.DistrictColumn)
	}
	if governorate == nil {
		return nil, errors.Wrapf(ErrMissingIdentifier, "governorate column %q", opt.GovernorateColumn)
	}
	if len(config.Measures) == 0 {
		return nil, errors.Wrapf(ErrNoCategories, "no header starts with %q", opt.CategoryPrefix)
	}

	if detectParent(rows, district.Index, governorate.Index) {
		district.Parent = DimensionGovernorate
	}
	config.Dimensions = []DimensionMeta{*district, *governorate}

	return config, nil
}

// ============================================================================
// COLUMN ANALYSIS
// ============================================================================

type columnAnalysis struct {
	header string
	key    string
	index  int

	uniqueCount  int
	nullCount    int
	numericCount int
	valueCount   int
	sampleVals   []string
}

func analyzeColumn(header string, index int, rows [][]string) columnAnalysis {
	col := columnAnalysis{
		header: header,
		key:    toSnakeCase(header),
		index:  index,
	}

	uniqueSet := make(map[string]bool)
	for _, row := range rows {
		if index >= len(row) {
			col.nullCount++
			continue
		}
		val := strings.TrimSpace(row[index])
		if isNull(val) {
			col.nullCount++
			continue
		}
		col.valueCount++
		if isNumeric(val) {
			col.numericCount++
		}
		uniqueSet[val] = true
	}

	col.uniqueCount = len(uniqueSet)
	col.sampleVals = collectSamples(uniqueSet, 10)
	return col
}

func (col columnAnalysis) cardinalityHint() string {
	switch {
	case col.uniqueCount <= 10:
		return "low"
	case col.uniqueCount <= 100:
		return "medium"
	default:
		return "high"
	}
}

func (col columnAnalysis) skipReason() string {
	switch {
	case col.header == "":
		return "Empty header"
	case col.valueCount == 0:
		return "All values are empty/null"
	case col.numericCount == col.valueCount:
		return "Numeric column without category prefix"
	default:
		return "Not an identifier or category column"
	}
}

func (col columnAnalysis) toDimension(key string) DimensionMeta {
	return DimensionMeta{
		Key:             key,
		Column:          col.header,
		Index:           col.index,
		DisplayName:     toDisplayName(key),
		SampleValues:    col.sampleVals,
		CardinalityHint: col.cardinalityHint(),
	}
}

func (col columnAnalysis) toMeasure(category string) MeasureMeta {
	return MeasureMeta{
		Key:                toSnakeCase(category),
		Column:             col.header,
		Index:              col.index,
		Category:           category,
		DisplayName:        category,
		Unit:               "people",
		DefaultAggregation: "sum",
		NonNumericCells:    col.valueCount - col.numericCount,
	}
}

// ============================================================================
// HIERARCHY DETECTION
// ============================================================================

// detectParent reports whether every child value maps to exactly one parent
// value across the sampled rows.
func detectParent(rows [][]string, childIdx, parentIdx int) bool {
	childToParent := make(map[string]string)
	for _, row := range rows {
		if childIdx >= len(row) || parentIdx >= len(row) {
			continue
		}
		child := strings.TrimSpace(row[childIdx])
		parent := strings.TrimSpace(row[parentIdx])
		if child == "" || parent == "" {
			continue
		}
		if existing, ok := childToParent[child]; ok {
			if existing != parent {
				return false
			}
		} else {
			childToParent[child] = parent
		}
	}
	return len(childToParent) > 0
}

// ============================================================================
// STRING UTILITIES
// ============================================================================

func isNull(s string) bool {
	switch s {
	case "", "null", "NULL", "N/A", "n/a", "NaN", "nan":
		return true
	}
	return false
}

func isNumeric(s string) bool {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "") // handle "1,234"
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// toSnakeCase converts "Sri Lankan" or "sriLankan" → "sri_lankan".
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) && i > 0 {
			prev := rune(s[i-1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				result.WriteRune('_')
			}
		}
		result.WriteRune(r)
	}

	s = result.String()
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "__", "_")
	s = strings.Trim(s, "_")
	return s
}

// toDisplayName cleans a key for human display.
// "governorate" → "Governorate", "sri_lankan" → "Sri Lankan"
func toDisplayName(s string) string {
	if strings.Contains(s, " ") {
		return strings.TrimSpace(s)
	}

	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")

	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
		}
	}
	return strings.Join(words, " ")
}

// collectSamples picks up to maxSamples values in sorted order.
func collectSamples(uniqueSet map[string]bool, maxSamples int) []string {
	samples := make([]string, 0, len(uniqueSet))
	for v := range uniqueSet {
		samples = append(samples, v)
	}
	sort.Strings(samples)

	if len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}
	return samples
}
