package engine

import "github.com/go-faster/errors"

// ============================================================================
// ERRORS
// ============================================================================
// Three kinds, inspected with errors.Is:
//   ErrInvalidArgument  caller passed a bad n, view or category name
//   ErrEmptyDataset     a "leading" lookup over nothing
//   ErrDataSource       the loader could not produce a Dataset
// ============================================================================

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrEmptyDataset    = errors.New("empty dataset")
	ErrDataSource      = errors.New("data source error")
)

// DataSourceError reports a source that could not be read or has no usable
// header. It matches ErrDataSource.
type DataSourceError struct {
	Source string
	Err    error
}

// NewDataSourceError wraps err for the named source.
func NewDataSourceError(source string, err error) *DataSourceError {
	return &DataSourceError{Source: source, Err: err}
}

func (e *DataSourceError) Error() string {
	if e.Err == nil {
		return "data source " + e.Source
	}
	return "data source " + e.Source + ": " + e.Err.Error()
}

func (e *DataSourceError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrDataSource) match any DataSourceError.
func (e *DataSourceError) Is(target error) bool { return target == ErrDataSource }

func invalidArgf(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}
