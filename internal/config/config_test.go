package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "leb immigrants.csv", c.Source)
	assert.Equal(t, "District URI", c.DistrictColumn)
	assert.Equal(t, "Governorate URI", c.GovernorateColumn)
	assert.Equal(t, "Number of ", c.CategoryPrefix)
	assert.Equal(t, 10, c.TopN)
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, "/metrics", c.MetricsPath)
	assert.False(t, c.Strict)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("IMMISTAT_SOURCE", "s3://bucket/leb.xlsx")
	t.Setenv("IMMISTAT_STRICT", "true")
	t.Setenv("IMMISTAT_TOP_N", "15")
	t.Setenv("IMMISTAT_S3_PATH_STYLE", "true")
	t.Setenv("IMMISTAT_S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	c, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "s3://bucket/leb.xlsx", c.Source)
	assert.True(t, c.Strict)
	assert.Equal(t, 15, c.TopN)
	assert.Equal(t, "http://localhost:9000", c.S3().Endpoint)
	assert.True(t, c.S3().PathStyle)

	l := c.Logger()
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("IMMISTAT_SHEET=Immigrants\n"), 0o600))
	t.Setenv("IMMISTAT_SHEET", "")
	require.NoError(t, os.Unsetenv("IMMISTAT_SHEET"))

	n, err := LoadEnv([]string{path, filepath.Join(dir, ".env.local")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Immigrants", c.Sheet)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{TopN: 10, LogLevel: "info", LogFormat: "text", MetricsPath: "/metrics"}
	}
	require.NoError(t, valid().Validate())

	c := valid()
	c.TopN = 0
	assert.ErrorContains(t, c.Validate(), "IMMISTAT_TOP_N")

	c = valid()
	c.LogFormat = "xml"
	assert.ErrorContains(t, c.Validate(), "LOG_FORMAT")

	c = valid()
	c.LogLevel = "trace"
	assert.ErrorContains(t, c.Validate(), "LOG_LEVEL")

	c = valid()
	c.MetricsPath = "metrics"
	assert.ErrorContains(t, c.Validate(), "IMMISTAT_METRICS_PATH")

	t.Setenv("IMMISTAT_TOP_N", "-1")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLogrusLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  logrus.Level
	}{
		{"silent", logrus.PanicLevel},
		{"error", logrus.ErrorLevel},
		{"warn", logrus.WarnLevel},
		{"INFO", logrus.InfoLevel},
		{"debug", logrus.DebugLevel},
		{"", logrus.ErrorLevel},
	}
	for _, tt := range tests {
		c := &Config{LogLevel: tt.level}
		assert.Equal(t, tt.want, c.LogrusLogLevel(), tt.level)
	}
}

func TestLoaderOptions(t *testing.T) {
	c := &Config{DistrictColumn: "D", GovernorateColumn: "G", CategoryPrefix: "Count: ", Sheet: "S", Strict: true}
	assert.Len(t, c.LoaderOptions(logrus.New()), 5)

	c = &Config{CategoryPrefix: "Number of "}
	assert.Len(t, c.LoaderOptions(logrus.New()), 3)
}
