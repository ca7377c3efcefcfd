package loader

import (
	"io"
	"strings"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"
)

// readXLSX reads the named sheet (first sheet when empty). The first row is
// the header; blank rows are dropped by the caller.
func readXLSX(r io.Reader, sheet string) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open workbook")
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil, errNoHeader
		}
		sheet = sheets[0]
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "sheet %q", sheet)
	}
	defer func() { _ = rows.Close() }()

	var header []string
	var data [][]string
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return nil, nil, errors.Wrapf(err, "sheet %q", sheet)
		}
		if header == nil {
			header = make([]string, len(cols))
			for i, c := range cols {
				header[i] = strings.TrimSpace(c)
			}
			continue
		}
		data = append(data, cols)
	}
	if err := rows.Error(); err != nil {
		return nil, nil, errors.Wrapf(err, "sheet %q", sheet)
	}
	if len(header) == 0 {
		return nil, nil, errNoHeader
	}
	return header, data, nil
}
