// Package config loads immistat settings from the environment.
package config

import (
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/spektr-org/immistat/loader"
	"github.com/spektr-org/immistat/schema"
)

// DefaultEnvFiles are loaded, when present, before the environment is parsed.
var DefaultEnvFiles = []string{".env", ".env.local"}

// Config holds every setting. Values come from the environment; CLI flags
// override them after Load.
type Config struct {
	Source            string `env:"IMMISTAT_SOURCE" envDefault:"leb immigrants.csv"`
	Sheet             string `env:"IMMISTAT_SHEET"`
	DistrictColumn    string `env:"IMMISTAT_DISTRICT_COLUMN" envDefault:"District URI"`
	GovernorateColumn string `env:"IMMISTAT_GOVERNORATE_COLUMN" envDefault:"Governorate URI"`
	CategoryPrefix    string `env:"IMMISTAT_CATEGORY_PREFIX" envDefault:"Number of "`
	Strict            bool   `env:"IMMISTAT_STRICT" envDefault:"false"`
	TopN              int    `env:"IMMISTAT_TOP_N" envDefault:"10"`

	HTTPAddr    string `env:"IMMISTAT_HTTP_ADDR" envDefault:":8080"`
	MetricsPath string `env:"IMMISTAT_METRICS_PATH" envDefault:"/metrics"`

	S3Region    string `env:"IMMISTAT_S3_REGION" envDefault:"us-east-1"`
	S3Endpoint  string `env:"IMMISTAT_S3_ENDPOINT"`
	S3PathStyle bool   `env:"IMMISTAT_S3_PATH_STYLE" envDefault:"false"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// LoadEnv loads the env files that exist and reports how many were found.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Load reads env files, parses the environment and validates the result.
func Load(envFiles ...string) (*Config, error) {
	if envFiles == nil {
		envFiles = DefaultEnvFiles
	}
	if _, err := LoadEnv(envFiles); err != nil {
		return nil, errors.Wrap(err, "load env files")
	}
	c := &Config{}
	if err := env.Parse(c); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate rejects settings no command can run with.
func (c *Config) Validate() error {
	if c.TopN <= 0 {
		return errors.Errorf("IMMISTAT_TOP_N must be positive, got %d", c.TopN)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return errors.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	switch strings.ToLower(c.LogLevel) {
	case "silent", "error", "warn", "info", "debug":
	default:
		return errors.Errorf("LOG_LEVEL must be silent, error, warn, info or debug, got %q", c.LogLevel)
	}
	if c.MetricsPath != "" && !strings.HasPrefix(c.MetricsPath, "/") {
		return errors.Errorf("IMMISTAT_METRICS_PATH must start with /, got %q", c.MetricsPath)
	}
	return nil
}

// LogrusLogLevel maps LOG_LEVEL onto logrus levels.
func (c *Config) LogrusLogLevel() logrus.Level {
	switch strings.ToLower(c.LogLevel) {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

// Logger builds the process logger. Output goes to stderr so stdout stays
// clean for command results.
func (c *Config) Logger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(c.LogrusLogLevel())
	if strings.EqualFold(c.LogFormat, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

// S3 returns the S3 client settings.
func (c *Config) S3() loader.S3Config {
	return loader.S3Config{Region: c.S3Region, Endpoint: c.S3Endpoint, PathStyle: c.S3PathStyle}
}

// LoaderOptions turns the table settings into loader options.
func (c *Config) LoaderOptions(log logrus.FieldLogger) []loader.Option {
	opts := []loader.Option{
		loader.WithColumns(c.DistrictColumn, c.GovernorateColumn),
		loader.WithStrict(c.Strict),
		loader.WithLogger(log),
	}
	if c.CategoryPrefix != "" && c.CategoryPrefix != schema.DefaultCategoryPrefix {
		opts = append(opts, loader.WithCategoryPrefix(c.CategoryPrefix))
	}
	if c.Sheet != "" {
		opts = append(opts, loader.WithSheet(c.Sheet))
	}
	return opts
}
