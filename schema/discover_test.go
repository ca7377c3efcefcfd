package schema

import (
	"errors"
	"testing"
)

// ============================================================================
// TEST DATA — Lebanese immigrant table (subset)
// ============================================================================

const lebCSV = "\ufeffrefArea,District URI,Governorate URI,Number of Bangladeshi,Number of Sri Lankan,Number of Iraqi,Observation URI,Year\n" +
	"A1,http://ex.org/d/Baabda,http://ex.org/g/Mount_Lebanon,120,40,N/A,obs1,2021\n" +
	"A2,http://ex.org/d/Aley,http://ex.org/g/Mount_Lebanon,0,250,1,obs2,2021\n" +
	"A3,http://ex.org/d/Zahle,http://ex.org/g/Beqaa,\"1,200\",0,250,obs3,2021\n"

func TestDiscoverFromCSV(t *testing.T) {
	config, err := DiscoverFromCSV([]byte(lebCSV))
	if err != nil {
		t.Fatalf("DiscoverFromCSV failed: %v", err)
	}

	if config.Name != "Immigrant Population by District" {
		t.Errorf("unexpected default name %q", config.Name)
	}
	if config.RowsSampled != 3 {
		t.Errorf("RowsSampled = %d, want 3", config.RowsSampled)
	}

	dims := config.DimensionKeys()
	if len(dims) != 2 || dims[0] != DimensionDistrict || dims[1] != DimensionGovernorate {
		t.Fatalf("dimensions = %v", dims)
	}

	district, _ := config.Dimension(DimensionDistrict)
	if district.Column != "District URI" || district.Index != 1 {
		t.Errorf("district column = %q at %d", district.Column, district.Index)
	}
	if district.Parent != DimensionGovernorate {
		t.Errorf("district should roll up into governorate, got parent %q", district.Parent)
	}

	cats := config.Categories()
	want := []string{"Bangladeshi", "Sri Lankan", "Iraqi"}
	if len(cats) != len(want) {
		t.Fatalf("categories = %v, want %v", cats, want)
	}
	for i := range want {
		if cats[i] != want[i] {
			t.Errorf("category %d = %q, want %q", i, cats[i], want[i])
		}
	}

	assertContains(t, config.MeasureKeys(), "sri_lankan", "snake-case measure key")

	iraqi, ok := config.Measure("iraqi")
	if !ok {
		t.Fatal("Measure lookup should be case-insensitive")
	}
	if iraqi.NonNumericCells != 0 {
		t.Errorf("N/A is null, not non-numeric; got %d", iraqi.NonNumericCells)
	}
	if iraqi.Unit != "people" || iraqi.DefaultAggregation != "sum" {
		t.Errorf("unexpected measure meta %+v", iraqi)
	}
}

func TestDiscoverSkippedColumns(t *testing.T) {
	config, err := DiscoverFromCSV([]byte(lebCSV))
	if err != nil {
		t.Fatalf("DiscoverFromCSV failed: %v", err)
	}

	reasons := make(map[string]string)
	for _, s := range config.SkippedColumns {
		reasons[s.Column] = s.Reason
	}
	if reasons["Year"] != "Numeric column without category prefix" {
		t.Errorf("Year reason = %q", reasons["Year"])
	}
	if reasons["Observation URI"] != "Not an identifier or category column" {
		t.Errorf("Observation URI reason = %q", reasons["Observation URI"])
	}
	if _, ok := reasons["District URI"]; ok {
		t.Error("identifier column must not be skipped")
	}
}

func TestDiscoverDuplicateAndBlankCategories(t *testing.T) {
	headers := []string{"District URI", "Governorate URI", "Number of Iraqi", "number of IRAQI", "Number of ", "Notes"}
	config, err := Discover(headers, [][]string{{"a", "b", "1", "2", "3", ""}}, DiscoverOptions{})
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if got := config.Categories(); len(got) != 1 || got[0] != "Iraqi" {
		t.Errorf("categories = %v", got)
	}
	if len(config.SkippedColumns) != 3 {
		t.Fatalf("skipped = %+v", config.SkippedColumns)
	}
	if config.SkippedColumns[2].Reason != "All values are empty/null" {
		t.Errorf("Notes reason = %q", config.SkippedColumns[2].Reason)
	}
}

func TestDiscoverErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"empty", "", ErrNoColumns},
		{"no categories", "District URI,Governorate URI,Population\na,b,1\n", ErrNoCategories},
		{"no district", "Governorate URI,Number of Iraqi\nb,1\n", ErrMissingIdentifier},
		{"no governorate", "District URI,Number of Iraqi\na,1\n", ErrMissingIdentifier},
	}
	for _, tt := range tests {
		_, err := DiscoverFromCSV([]byte(tt.data))
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestDiscoverCustomConventions(t *testing.T) {
	data := "Area,Region,Count: Syrian\nx,y,3\n"
	config, err := DiscoverFromCSV([]byte(data), DiscoverOptions{
		DistrictColumn:    "area",
		GovernorateColumn: "REGION",
		CategoryPrefix:    "Count: ",
		Name:              "Custom",
	})
	if err != nil {
		t.Fatalf("DiscoverFromCSV failed: %v", err)
	}
	if config.Name != "Custom" {
		t.Errorf("Name = %q", config.Name)
	}
	if cats := config.Categories(); len(cats) != 1 || cats[0] != "Syrian" {
		t.Errorf("categories = %v", cats)
	}
}

func TestDiscoverSampleSize(t *testing.T) {
	config, err := DiscoverFromCSV([]byte(lebCSV), DiscoverOptions{SampleSize: 2})
	if err != nil {
		t.Fatalf("DiscoverFromCSV failed: %v", err)
	}
	if config.RowsSampled != 2 {
		t.Errorf("RowsSampled = %d, want 2", config.RowsSampled)
	}
}

func TestDetectParent(t *testing.T) {
	rows := [][]string{{"a", "X"}, {"b", "X"}, {"c", "Y"}}
	if !detectParent(rows, 0, 1) {
		t.Error("each district maps to one governorate")
	}
	rows = append(rows, []string{"a", "Y"})
	if detectParent(rows, 0, 1) {
		t.Error("district a maps to two governorates")
	}
	if detectParent(nil, 0, 1) {
		t.Error("no rows means no hierarchy")
	}
}

func TestSnakeCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Sri Lankan", "sri_lankan"},
		{"Bangladeshi", "bangladeshi"},
		{"sriLankan", "sri_lankan"},
		{"District URI", "district_uri"},
		{"Ethiopians", "ethiopians"},
		{"non-Lebanese", "non_lebanese"},
	}

	for _, tt := range tests {
		got := toSnakeCase(tt.input)
		if got != tt.expected {
			t.Errorf("toSnakeCase(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"governorate", "Governorate"},
		{"sri_lankan", "Sri Lankan"},
		{"Sri Lankan", "Sri Lankan"},
	}

	for _, tt := range tests {
		got := toDisplayName(tt.input)
		if got != tt.expected {
			t.Errorf("toDisplayName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

// ============================================================================
// HELPERS
// ============================================================================

func assertContains(t *testing.T, slice []string, item string, msg string) {
	t.Helper()
	for _, s := range slice {
		if s == item {
			return
		}
	}
	t.Errorf("%s: %q not found in %v", msg, item, slice)
}
