package loader

import (
	"bufio"
	"encoding/csv"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
)

// errNoHeader is returned when a table has no header row.
var errNoHeader = errors.New("missing header")

// readCSV reads a header plus every data row. Rows may be ragged; rows the
// CSV reader cannot parse are logged and skipped.
func readCSV(r io.Reader, log logrus.FieldLogger) ([]string, [][]string, error) {
	cr := csv.NewReader(stripUTF8BOM(bufio.NewReader(r)))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := readHeader(cr)
	if err != nil {
		return nil, nil, err
	}

	var rows [][]string
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				log.WithField("line", perr.Line).WithError(err).Warn("skipping malformed csv row")
				continue
			}
			return nil, nil, errors.Wrap(err, "read csv")
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && len(b) == 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}

func readHeader(r *csv.Reader) ([]string, error) {
	h, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errNoHeader
		}
		return nil, errors.Wrap(err, "read header")
	}
	for i := range h {
		h[i] = strings.TrimSpace(h[i])
		if !utf8.ValidString(h[i]) {
			return nil, errors.New("invalid header encoding")
		}
	}
	return h, nil
}
