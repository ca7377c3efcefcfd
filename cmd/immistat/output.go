package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/go-faster/errors"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/spektr-org/immistat/engine"
)

// ============================================================================
// OUTPUT — json, pretty, yaml, table and csv renderers
// ============================================================================
// Structured formats encode the value itself. Tabular formats go through a
// tabler, which lays the value out as titled grids; table pretty-prints them
// for a terminal and csv writes them ready for a spreadsheet.
// ============================================================================

const (
	formatJSON   = "json"
	formatPretty = "pretty"
	formatYAML   = "yaml"
	formatTable  = "table"
	formatCSV    = "csv"
)

func validFormat(format string) bool {
	switch format {
	case formatJSON, formatPretty, formatYAML, formatTable, formatCSV:
		return true
	}
	return false
}

// table is one titled grid of cells.
type table struct {
	Title  string
	Header []string
	Rows   [][]string
}

// tabler lays a value out as tables. count formats integers: grouped digits
// for terminals, plain digits for csv.
type tabler func(count func(int64) string) []table

func render(w io.Writer, format string, v any, tab tabler) error {
	switch format {
	case formatJSON, formatPretty:
		return writeJSON(w, v, format)
	case formatYAML:
		return writeYAML(w, v)
	case formatTable:
		return writeTables(w, tab(engine.FormatInt))
	case formatCSV:
		return writeCSV(w, tab(plainInt))
	}
	return withCode(exitUsage, errors.Errorf("unknown format %q", format))
}

// ============================================================================
// STRUCTURED
// ============================================================================

func writeJSON(w io.Writer, v any, format string) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if format == formatPretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return withCode(exitOutput, errors.Wrap(err, "json encode"))
	}
	return nil
}

// writeYAML encodes v through its JSON form so MarshalJSON methods shape the
// YAML document too.
func writeYAML(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return withCode(exitOutput, errors.Wrap(err, "json encode"))
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return withCode(exitOutput, errors.Wrap(err, "json decode"))
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(yamlNumbers(doc)); err != nil {
		return withCode(exitOutput, errors.Wrap(err, "yaml encode"))
	}
	if err := enc.Close(); err != nil {
		return withCode(exitOutput, errors.Wrap(err, "yaml encode"))
	}
	return nil
}

// yamlNumbers replaces json.Number values with int64 or float64 so YAML
// writes them as numbers rather than quoted strings.
func yamlNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = yamlNumbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = yamlNumbers(e)
		}
		return t
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	}
	return v
}

// ============================================================================
// TABULAR
// ============================================================================

func writeTables(w io.Writer, tables []table) error {
	heading := color.New(color.FgYellow, color.Bold)
	for i, t := range tables {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if t.Title != "" {
			if _, err := heading.Fprintln(w, t.Title); err != nil {
				return withCode(exitOutput, errors.Wrap(err, "write table"))
			}
		}
		tw := tablewriter.NewWriter(w)
		tw.SetHeader(t.Header)
		tw.SetAutoWrapText(false)
		tw.AppendBulk(t.Rows)
		tw.Render()
	}
	return nil
}

// writeCSV writes every table as a header plus rows, separated by an empty
// line.
func writeCSV(w io.Writer, tables []table) error {
	cw := csv.NewWriter(w)
	for i, t := range tables {
		if i > 0 {
			_ = cw.Write(nil)
		}
		_ = cw.Write(t.Header)
		_ = cw.WriteAll(t.Rows)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return withCode(exitOutput, errors.Wrap(err, "write csv"))
	}
	return nil
}

// ============================================================================
// RESULT LAYOUTS
// ============================================================================

var viewTitles = map[string]string{
	engine.ViewTopDistricts:    "Top districts",
	engine.ViewDistricts:       "Districts",
	engine.ViewLeadingDistrict: "Leading district",
	engine.ViewGovernorates:    "Governorates",
	engine.ViewCategories:      "Categories",
	engine.ViewLeadingCategory: "Leading category",
	engine.ViewComposition:     "Composition of top districts",
	engine.ViewInsights:        "Key metrics",
}

// resultTables lays out whichever payload r carries.
func resultTables(r *engine.Result) tabler {
	return func(count func(int64) string) []table {
		title := viewTitles[r.View]
		switch {
		case r.Insights != nil:
			return []table{insightsTable(title, r.Insights, count)}
		case r.Composition != nil:
			return []table{compositionTable(title, r.Composition, count)}
		case r.LeadingRecord != nil:
			return []table{recordTable(title, r.Categories, []engine.Record{*r.LeadingRecord}, count)}
		case r.LeadingCategory != nil:
			return []table{categoryTable(title, []engine.CategoryTotal{*r.LeadingCategory}, 0, count)}
		case r.View == engine.ViewGovernorates:
			return []table{groupTable(title, r.Categories, r.Groups, count)}
		case r.View == engine.ViewCategories:
			var whole int64
			for _, ct := range r.CategoryTotals {
				whole += ct.Total
			}
			return []table{categoryTable(title, r.CategoryTotals, whole, count)}
		}
		return []table{recordTable(title, r.Categories, r.Records, count)}
	}
}

func recordTable(title string, categories []string, records []engine.Record, count func(int64) string) table {
	t := table{Title: title, Header: append(append([]string{"#", "District", "Governorate"}, categories...), "Total")}
	for i, rec := range records {
		row := []string{strconv.Itoa(i + 1), rec.DistrictID, rec.GovernorateID}
		for _, c := range categories {
			row = append(row, count(rec.Count(c)))
		}
		t.Rows = append(t.Rows, append(row, count(rec.Total())))
	}
	return t
}

func groupTable(title string, categories []string, groups []engine.GroupSummary, count func(int64) string) table {
	t := table{Title: title, Header: append(append([]string{"#", "Governorate", "Districts"}, categories...), "Total")}
	for i, g := range groups {
		row := []string{strconv.Itoa(i + 1), g.GovernorateID, strconv.Itoa(g.Districts)}
		for _, c := range categories {
			row = append(row, count(g.Count(c)))
		}
		t.Rows = append(t.Rows, append(row, count(g.Total())))
	}
	return t
}

// categoryTable adds a share column when whole is positive.
func categoryTable(title string, totals []engine.CategoryTotal, whole int64, count func(int64) string) table {
	t := table{Title: title, Header: []string{"#", "Category", "Total"}}
	if whole > 0 {
		t.Header = append(t.Header, "Share %")
	}
	for i, ct := range totals {
		row := []string{strconv.Itoa(i + 1), ct.Category, count(ct.Total)}
		if whole > 0 {
			row = append(row, percent(engine.PercentOfWhole(ct.Total, whole)))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func compositionTable(title string, c *engine.CompositionSeries, count func(int64) string) table {
	t := table{Title: title, Header: []string{"District", "Governorate"}}
	for _, s := range c.Series {
		t.Header = append(t.Header, s.Category)
	}
	t.Header = append(t.Header, "Total")
	for i, d := range c.Districts {
		row := []string{d, c.Governorates[i]}
		for _, s := range c.Series {
			row = append(row, count(s.Values[i]))
		}
		t.Rows = append(t.Rows, append(row, count(c.Totals[i])))
	}
	return t
}

func insightsTable(title string, in *engine.Insights, count func(int64) string) table {
	t := table{Title: title, Header: []string{"Metric", "Value"}}
	add := func(k, v string) { t.Rows = append(t.Rows, []string{k, v}) }

	if in.Empty {
		add("Districts", "0")
		return t
	}
	add("Grand total", count(in.GrandTotal))
	add("Districts", fmt.Sprintf("%d (%d active)", in.Districts, in.ActiveDistricts))
	if in.TopDistrict != nil {
		add("Top district", fmt.Sprintf("%s, %s: %s", in.TopDistrict.DistrictID, in.TopDistrict.GovernorateID, count(in.TopDistrict.Total())))
	}
	if in.LargestCategory != nil {
		add("Largest category", fmt.Sprintf("%s: %s", in.LargestCategory.Category, count(in.LargestCategory.Total)))
	}
	if in.NoSelection {
		add("Selected categories", "none")
	} else {
		add("Selected categories", strconv.Itoa(len(in.SelectedCategories)))
	}
	add("Selected total", count(in.SelectedTotal))
	add(fmt.Sprintf("Top %d districts share", in.TopN), percent(in.TopNShare))
	add("Governorates", fmt.Sprintf("%d (%d active)", in.Governorates, in.ActiveGovernorates))
	if in.TopGovernorate != nil {
		add("Top governorate", fmt.Sprintf("%s: %s", in.TopGovernorate.GovernorateID, count(in.TopGovernorate.Total())))
	}
	add(fmt.Sprintf("Top %d governorates share", engine.TopGovernoratesK), percent(in.TopGovernoratesShare))
	return t
}

func plainInt(n int64) string { return strconv.FormatInt(n, 10) }

func percent(v float64) string { return strconv.FormatFloat(engine.RoundTo1(v), 'f', 1, 64) + "%" }
