package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/spektr-org/immistat/loader"
	"github.com/spektr-org/immistat/schema"
)

// discoverReport is the discovered schema plus the load report.
type discoverReport struct {
	Schema      *schema.Config    `json:"schema"`
	DatasetID   string            `json:"datasetId"`
	Records     int               `json:"records"`
	SkippedRows int               `json:"skippedRows"`
	Coercions   []loader.Coercion `json:"coercions"`
}

func newDiscoverCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Print the discovered columns and the cells that were coerced to 0",
		Example: `  immistat discover --source "leb immigrants.csv" --format pretty
  immistat discover --source s3://census/leb.xlsx --sheet 2021 --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			report := discoverReport{
				Schema:      res.Schema,
				DatasetID:   res.Dataset.ID,
				Records:     res.Dataset.Len(),
				SkippedRows: res.Skipped,
				Coercions:   res.Coercions,
			}
			if report.Coercions == nil {
				report.Coercions = []loader.Coercion{}
			}
			return a.write(cmd, report, report.tables)
		},
	}
}

func (r discoverReport) tables(_ func(int64) string) []table {
	cols := table{Title: r.Schema.Name, Header: []string{"Kind", "Key", "Column", "Index", "Name"}}
	for _, d := range r.Schema.Dimensions {
		cols.Rows = append(cols.Rows, []string{"identifier", d.Key, d.Column, strconv.Itoa(d.Index), d.DisplayName})
	}
	for _, m := range r.Schema.Measures {
		cols.Rows = append(cols.Rows, []string{"category", m.Key, m.Column, strconv.Itoa(m.Index), m.Category})
	}
	out := []table{cols}

	if len(r.Schema.SkippedColumns) > 0 {
		skipped := table{Title: "Skipped columns", Header: []string{"Column", "Reason"}}
		for _, s := range r.Schema.SkippedColumns {
			skipped.Rows = append(skipped.Rows, []string{s.Column, s.Reason})
		}
		out = append(out, skipped)
	}
	if len(r.Coercions) > 0 {
		coerced := table{Title: "Coerced cells", Header: []string{"Row", "Column", "Raw", "Reason"}}
		for _, c := range r.Coercions {
			coerced.Rows = append(coerced.Rows, []string{strconv.Itoa(c.Row), c.Column, c.Raw, c.Reason})
		}
		out = append(out, coerced)
	}
	return out
}
