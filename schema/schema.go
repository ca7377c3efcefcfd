package schema

import "strings"

// ============================================================================
// SCHEMA — Describes the shape of an immigrant-population table
// ============================================================================
// Discovered from the source header at load time. Categories are never
// hardcoded: any column carrying the category prefix ("Number of ") is a
// category, whatever its name and however many there are.
// ============================================================================

// Identifier dimension keys.
const (
	DimensionDistrict    = "district"
	DimensionGovernorate = "governorate"
)

// Config describes the complete shape of a dataset.
type Config struct {
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	Dimensions []DimensionMeta `json:"dimensions" yaml:"dimensions"`
	Measures   []MeasureMeta   `json:"measures" yaml:"measures"`

	// Auto-discovery metadata
	DiscoveredFrom string `json:"discoveredFrom,omitempty" yaml:"discoveredFrom,omitempty"`
	DiscoveredAt   string `json:"discoveredAt,omitempty" yaml:"discoveredAt,omitempty"`
	RowsSampled    int    `json:"rowsSampled" yaml:"rowsSampled"`

	// Columns that are neither identifiers nor categories
	SkippedColumns []SkippedColumn `json:"skippedColumns,omitempty" yaml:"skippedColumns,omitempty"`
}

// DimensionMeta describes an identifier column used for grouping.
type DimensionMeta struct {
	Key             string   `json:"key" yaml:"key"`
	Column          string   `json:"column" yaml:"column"`
	Index           int      `json:"index" yaml:"index"`
	DisplayName     string   `json:"displayName" yaml:"displayName"`
	SampleValues    []string `json:"sampleValues" yaml:"sampleValues"`
	Parent          string   `json:"parent,omitempty" yaml:"parent,omitempty"` // Parent dimension key for hierarchies
	CardinalityHint string   `json:"cardinalityHint,omitempty" yaml:"cardinalityHint,omitempty"`
}

// MeasureMeta describes one nationality category column.
type MeasureMeta struct {
	Key                string `json:"key" yaml:"key"`
	Column             string `json:"column" yaml:"column"`
	Index              int    `json:"index" yaml:"index"`
	Category           string `json:"category" yaml:"category"`
	DisplayName        string `json:"displayName" yaml:"displayName"`
	Unit               string `json:"unit" yaml:"unit"`
	DefaultAggregation string `json:"defaultAggregation" yaml:"defaultAggregation"`
	NonNumericCells    int    `json:"nonNumericCells" yaml:"nonNumericCells"`
}

// SkippedColumn records why a column was excluded during discovery.
type SkippedColumn struct {
	Column string `json:"column" yaml:"column"`
	Reason string `json:"reason" yaml:"reason"`
}

// Categories returns category names in header order.
func (c Config) Categories() []string {
	out := make([]string, len(c.Measures))
	for i, m := range c.Measures {
		out[i] = m.Category
	}
	return out
}

// Dimension returns the dimension with the given key.
func (c Config) Dimension(key string) (DimensionMeta, bool) {
	for _, d := range c.Dimensions {
		if d.Key == key {
			return d, true
		}
	}
	return DimensionMeta{}, false
}

// Measure looks up a category case-insensitively.
func (c Config) Measure(category string) (MeasureMeta, bool) {
	for _, m := range c.Measures {
		if strings.EqualFold(m.Category, category) {
			return m, true
		}
	}
	return MeasureMeta{}, false
}

// DimensionKeys returns all dimension keys.
func (c Config) DimensionKeys() []string {
	keys := make([]string, len(c.Dimensions))
	for i, d := range c.Dimensions {
		keys[i] = d.Key
	}
	return keys
}

// MeasureKeys returns all measure keys.
func (c Config) MeasureKeys() []string {
	keys := make([]string, len(c.Measures))
	for i, m := range c.Measures {
		keys[i] = m.Key
	}
	return keys
}
