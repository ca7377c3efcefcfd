package engine

import (
	"io"

	"github.com/sirupsen/logrus"
)

// ============================================================================
// ENGINE OPTIONS — Functional options for Execute()
// ============================================================================

// DefaultTopN is the top-N size used when a QuerySpec leaves N unset.
const DefaultTopN = 10

// Option configures engine behavior via functional options pattern.
type Option func(*config)

type config struct {
	Logger      logrus.FieldLogger
	DefaultTopN int // used when QuerySpec.N is 0
}

// WithLogger routes executor logging to l.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithDefaultTopN sets N for specs that leave it unset. Non-positive values
// are ignored.
func WithDefaultTopN(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.DefaultTopN = n
		}
	}
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{
		Logger:      discardLogger(),
		DefaultTopN: DefaultTopN,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
