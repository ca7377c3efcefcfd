package main

import (
	"github.com/go-faster/errors"

	"github.com/spektr-org/immistat/engine"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK         = 0
	exitFailure    = 1
	exitUsage      = 3
	exitDataSource = 4
	exitEmpty      = 5
	exitOutput     = 6
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

// exitCode maps an error to the process exit status. An explicit cliError
// wins; otherwise the engine error kind decides.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	switch {
	case errors.Is(err, engine.ErrInvalidArgument):
		return exitUsage
	case errors.Is(err, engine.ErrDataSource):
		return exitDataSource
	case errors.Is(err, engine.ErrEmptyDataset):
		return exitEmpty
	}
	return exitFailure
}
