package main

import (
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"github.com/spektr-org/immistat/engine"
)

// workbookSheets are the views written to an XLSX export, one sheet each.
var workbookSheets = []struct {
	Name string
	View string
}{
	{"Districts", engine.ViewDistricts},
	{"Governorates", engine.ViewGovernorates},
	{"Categories", engine.ViewCategories},
	{"Summary", engine.ViewInsights},
}

func newExportCmd(a *app) *cobra.Command {
	f := &viewFlags{}
	var view string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an XLSX workbook, or one view as CSV, to --out",
		Long: `Write the dataset to --out. A .xlsx file gets one sheet per view
(districts, governorates, categories, summary). A .csv file gets the view
chosen with --view.`,
		Example: `  immistat export --out lebanon.xlsx
  immistat export --out governorates.csv --view governorates --categories Syrian`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.out == "" {
				return withCode(exitUsage, errors.New("export needs --out with a .xlsx or .csv file"))
			}
			ext := strings.ToLower(filepath.Ext(a.out))
			if ext != ".xlsx" && ext != ".csv" {
				return withCode(exitUsage, errors.Errorf("export writes .xlsx or .csv, got %q", a.out))
			}
			spec, err := f.spec(cmd, view)
			if err != nil {
				return err
			}

			res, err := a.load(cmd.Context())
			if err != nil {
				return err
			}

			if ext == ".csv" {
				result, err := engine.Execute(spec, res.Dataset, a.engineOptions()...)
				if err != nil {
					return err
				}
				return a.output(cmd, func(w io.Writer) error {
					return writeCSV(w, resultTables(result)(plainInt))
				})
			}

			wb, err := buildWorkbook(res.Dataset, spec, a.engineOptions())
			if err != nil {
				return err
			}
			defer func() { _ = wb.Close() }()
			if err := wb.SaveAs(a.out); err != nil {
				return withCode(exitOutput, errors.Wrap(err, "save workbook"))
			}
			a.log.WithField("path", a.out).Info("workbook written")
			return nil
		},
	}
	f.register(cmd, "", "")
	cmd.Flags().StringVar(&view, "view", engine.ViewDistricts, "view written to a .csv export: "+strings.Join(engine.Views, ", "))
	return cmd
}

// buildWorkbook runs every workbook view with the categories and filters of
// base and writes each to its own sheet.
func buildWorkbook(ds *engine.Dataset, base engine.QuerySpec, opts []engine.Option) (*excelize.File, error) {
	f := excelize.NewFile()
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, withCode(exitOutput, errors.Wrap(err, "header style"))
	}

	for i, sheet := range workbookSheets {
		spec := base
		spec.View = sheet.View
		spec.SortBy = ""
		result, err := engine.Execute(spec, ds, opts...)
		if err != nil {
			_ = f.Close()
			return nil, err
		}

		if i == 0 {
			err = f.SetSheetName("Sheet1", sheet.Name)
		} else {
			_, err = f.NewSheet(sheet.Name)
		}
		if err == nil {
			err = writeSheet(f, sheet.Name, resultTables(result)(plainInt)[0], header)
		}
		if err != nil {
			_ = f.Close()
			return nil, withCode(exitOutput, errors.Wrapf(err, "sheet %s", sheet.Name))
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

// writeSheet writes t with a bold header row. Integer cells are stored as
// numbers.
func writeSheet(f *excelize.File, sheet string, t table, headerStyle int) error {
	for col, h := range t.Header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, name, name, 18); err != nil {
			return err
		}
	}
	last, err := excelize.CoordinatesToCellName(len(t.Header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}

	for r, row := range t.Rows {
		for col, v := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return err
			}
			var value any = v
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				value = n
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}
	return nil
}
