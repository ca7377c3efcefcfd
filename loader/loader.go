package loader

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/spektr-org/immistat/engine"
	"github.com/spektr-org/immistat/schema"
)

// ============================================================================
// LOADER — Source table → immutable Dataset
// ============================================================================
// Pipeline:
//   1. Open the source and decode CSV or XLSX into header + rows
//   2. Discover the schema (identifier columns, "Number of " categories)
//   3. Normalize identifiers, coerce counts, collect the coercion report
//   4. Build the Dataset
//
// Every failure before step 3 is an engine.DataSourceError. Step 3 never
// fails: bad cells become 0 and are reported.
// ============================================================================

// Coercion reports one cell that was not a clean non-negative integer.
type Coercion struct {
	Row    int    `json:"row"` // spreadsheet row number, header is row 1
	Column string `json:"column"`
	Raw    string `json:"raw"`
	Reason string `json:"reason"`
}

// Result is a loaded Dataset with its discovered schema and load report.
type Result struct {
	Dataset   *engine.Dataset
	Schema    *schema.Config
	Coercions []Coercion
	Skipped   int // blank rows dropped
}

// ============================================================================
// OPTIONS
// ============================================================================

// Option configures a load.
type Option func(*options)

type options struct {
	discover schema.DiscoverOptions
	format   string
	sheet    string
	strict   bool
	logger   logrus.FieldLogger
}

// WithColumns overrides the district and governorate header names.
// Empty values keep the defaults.
func WithColumns(district, governorate string) Option {
	return func(o *options) {
		o.discover.DistrictColumn = district
		o.discover.GovernorateColumn = governorate
	}
}

// WithCategoryPrefix overrides the "Number of " category header prefix.
func WithCategoryPrefix(prefix string) Option {
	return func(o *options) { o.discover.CategoryPrefix = prefix }
}

// WithFormat forces "csv" or "xlsx" instead of inferring from the name.
func WithFormat(format string) Option {
	return func(o *options) { o.format = strings.ToLower(format) }
}

// WithSheet selects the XLSX sheet. Defaults to the first sheet.
func WithSheet(sheet string) Option {
	return func(o *options) { o.sheet = sheet }
}

// WithStrict logs a warning for every row that had a coerced cell.
func WithStrict(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// WithLogger sets the logger. Defaults to a discard logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func applyOptions(opts []Option) *options {
	l := logrus.New()
	l.SetOutput(io.Discard)
	o := &options{
		discover: schema.DefaultDiscoverOptions(),
		logger:   l,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ============================================================================
// LOAD
// ============================================================================

// Load reads src and builds a Dataset.
func Load(ctx context.Context, src Source, opts ...Option) (*Result, error) {
	o := applyOptions(opts)
	name := src.Name()

	rc, err := src.Open(ctx)
	if err != nil {
		return nil, engine.NewDataSourceError(name, err)
	}
	defer func() { _ = rc.Close() }()

	format := o.format
	if format == "" {
		format = FormatFor(name)
	}

	var header []string
	var rows [][]string
	switch format {
	case FormatCSV:
		header, rows, err = readCSV(rc, o.logger.WithField("source", name))
	case FormatXLSX:
		header, rows, err = readXLSX(rc, o.sheet)
	default:
		err = errors.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, engine.NewDataSourceError(name, err)
	}

	return build(name, header, rows, o)
}

// LoadTable builds a Dataset from an already decoded header and rows.
func LoadTable(name string, header []string, rows [][]string, opts ...Option) (*Result, error) {
	return build(name, header, rows, applyOptions(opts))
}

func build(name string, header []string, rows [][]string, o *options) (*Result, error) {
	log := o.logger.WithField("source", name)

	disc := o.discover
	disc.Source = name
	cfg, err := schema.Discover(header, rows, disc)
	if err != nil {
		return nil, engine.NewDataSourceError(name, err)
	}

	district, _ := cfg.Dimension(schema.DimensionDistrict)
	governorate, _ := cfg.Dimension(schema.DimensionGovernorate)

	res := &Result{Schema: cfg}
	records := make([]engine.Record, 0, len(rows))
	for i, row := range rows {
		if isBlank(row) {
			res.Skipped++
			continue
		}
		rowNum := i + 2

		counts := make(map[string]int64, len(cfg.Measures))
		var rowCoercions []Coercion
		for _, m := range cfg.Measures {
			raw := cell(row, m.Index)
			n, reason := parseCount(raw)
			counts[m.Category] = n
			if reason != "" {
				rowCoercions = append(rowCoercions, Coercion{
					Row: rowNum, Column: m.Column, Raw: raw, Reason: reason,
				})
			}
		}

		rec := engine.NewRecord(
			NormalizeIdentifier(cell(row, district.Index)),
			NormalizeIdentifier(cell(row, governorate.Index)),
			counts,
		)
		records = append(records, rec)

		if len(rowCoercions) > 0 {
			res.Coercions = append(res.Coercions, rowCoercions...)
			if o.strict {
				log.WithFields(logrus.Fields{
					"row":      rowNum,
					"district": rec.DistrictID,
					"cells":    describe(rowCoercions),
				}).Warn("row has coerced counts")
			}
		}
	}

	res.Dataset = engine.NewDataset(name, cfg.Categories(), records)

	fields := logrus.Fields{
		"dataset":    res.Dataset.ID,
		"records":    res.Dataset.Len(),
		"categories": len(cfg.Measures),
		"coercions":  len(res.Coercions),
		"skipped":    res.Skipped,
	}
	log.WithFields(fields).Info("dataset loaded")
	if len(res.Coercions) > 0 && !o.strict {
		log.WithField("coercions", len(res.Coercions)).Debug("non-numeric counts coerced to 0")
	}
	return res, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func describe(cs []Coercion) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.Column + "=" + strconv.Quote(c.Raw) + " (" + c.Reason + ")"
	}
	return strings.Join(parts, "; ")
}
