package building

import (
	"encoding/json"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/iwvelando/topgirl-optimizer/pkg/mathutil"
)

func sampleBuilding() Building {
	return Building{
		ID:              42,
		Name:            "Grand Hotel",
		CurrLevel:       3,
		NumEmployees:    12,
		CurrCoefficient: 1.2,
		NextCoefficient: 1.3,
		GoldToUpgrade:   25000,
		CurrTotalIncome: 10659.96,
	}
}

func TestDiffIdenticalFormsIsEmpty(t *testing.T) {
	original := FormFromBuilding(sampleBuilding())
	edited := original

	patch := Diff(&original, edited)
	if !patch.Empty() {
		t.Errorf("expected empty patch, got %v", patch)
	}
}

func TestDiffNameOnly(t *testing.T) {
	original := FormFromBuilding(sampleBuilding())
	edited := original
	edited.Name = "42 Tower"

	patch := Diff(&original, edited)
	expected := Patch{FieldName: "42 Tower"}
	if !reflect.DeepEqual(patch, expected) {
		t.Errorf("Diff() = %v, expected %v", patch, expected)
	}
}

func TestDiffCreateModeIncludesEveryField(t *testing.T) {
	form := FormSnapshot{
		Name:            "Cafe",
		CurrLevel:       "2",
		NumEmployees:    "1.5k",
		CurrCoefficient: "1.5k",
		NextCoefficient: "2.5m",
		GoldToUpgrade:   "10K",
		CurrTotalIncome: "",
	}

	patch := Diff(nil, form)

	if got := patch.Fields(); !reflect.DeepEqual(got, Fields()) {
		t.Fatalf("expected every field, got %v", got)
	}
	expected := Patch{
		FieldName:            "Cafe",
		FieldCurrLevel:       int64(2),
		FieldNumEmployees:    int64(1500),
		FieldCurrCoefficient: 1500.0,
		FieldNextCoefficient: 2500000.0,
		FieldGoldToUpgrade:   10000.0,
		FieldCurrTotalIncome: 0.0,
	}
	if !reflect.DeepEqual(patch, expected) {
		t.Errorf("Diff() = %#v, expected %#v", patch, expected)
	}
}

func TestDiffCoercion(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		value    string
		expected interface{}
	}{
		{"plain real", FieldCurrCoefficient, "1.25", 1.25},
		{"plain integer", FieldCurrLevel, "7", int64(7)},
		{"fractional integer field stays real", FieldCurrLevel, "2.5", 2.5},
		{"suffixed real", FieldGoldToUpgrade, "2.5m", 2500000.0},
		{"suffixed integer", FieldNumEmployees, "2k", int64(2000)},
		{"exponent", FieldCurrTotalIncome, "1e3", 1000.0},
		{"spaces around number", FieldGoldToUpgrade, " 12 ", 12.0},
		{"empty numeric field", FieldGoldToUpgrade, "", 0.0},
		{"literal text passes through", FieldCurrLevel, "abc", "abc"},
		{"name never converted", FieldName, "10k", "10k"},
		{"overflowing real passes through", FieldGoldToUpgrade, "1e999", "1e999"},
		{"overflow after unit passes through", FieldCurrTotalIncome, "1e308k", "1e308k"},
		{"huge integer stays real", FieldCurrLevel, "1e300k", 1e303},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := DefaultForm()
			edited, err := original.With(map[string]string{tt.field: tt.value})
			if err != nil {
				t.Fatalf("With() error = %v", err)
			}
			patch := Diff(&original, edited)
			got, ok := patch[tt.field]
			if !ok {
				t.Fatalf("expected %s in patch %v", tt.field, patch)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("patch[%s] = %#v, expected %#v", tt.field, got, tt.expected)
			}
			if len(patch) != 1 {
				t.Errorf("expected a single changed field, got %v", patch)
			}
		})
	}
}

func TestDiffNeverEmitsSuffixedStrings(t *testing.T) {
	form := FormSnapshot{
		Name:            "Spa",
		CurrLevel:       "1k",
		NumEmployees:    "3M",
		CurrCoefficient: "0.5b",
		NextCoefficient: "1t",
		GoldToUpgrade:   "4.2K",
		CurrTotalIncome: "9m",
	}
	for field, value := range Diff(nil, form) {
		if field == FieldName {
			continue
		}
		if _, isString := value.(string); isString {
			t.Errorf("field %s kept raw string %v", field, value)
		}
	}
}

func TestDiffValuesAreJSONSafe(t *testing.T) {
	form := FormSnapshot{
		Name:            "Vault",
		CurrLevel:       "1e999",
		NumEmployees:    "9e18",
		CurrCoefficient: "-1e999",
		NextCoefficient: "1e308t",
		GoldToUpgrade:   "1e308k",
		CurrTotalIncome: "NaN",
	}
	patch := Diff(nil, form)
	if _, err := json.Marshal(patch); err != nil {
		t.Fatalf("json.Marshal(%v) error = %v", patch, err)
	}
	for field, value := range patch {
		if f, ok := value.(float64); ok && (math.IsInf(f, 0) || math.IsNaN(f)) {
			t.Errorf("field %s holds non-finite %v", field, f)
		}
	}
}

func TestFormFromBuildingRoundTrip(t *testing.T) {
	b := sampleBuilding()
	form := FormFromBuilding(b)

	if form.CurrCoefficient != "1.2" || form.GoldToUpgrade != "25000" || form.CurrLevel != "3" {
		t.Errorf("unexpected form rendering %+v", form)
	}

	patch := Diff(nil, form)
	if patch[FieldCurrTotalIncome] != b.CurrTotalIncome {
		t.Errorf("expected income %v to survive the round trip, got %v", b.CurrTotalIncome, patch[FieldCurrTotalIncome])
	}
	if patch[FieldNumEmployees] != int64(b.NumEmployees) {
		t.Errorf("expected employees %v, got %v", b.NumEmployees, patch[FieldNumEmployees])
	}
}

func TestFormWith(t *testing.T) {
	form, err := DefaultForm().With(map[string]string{FieldName: "Bar", FieldGoldToUpgrade: "5k"})
	if err != nil {
		t.Fatalf("With() error = %v", err)
	}
	if form.Name != "Bar" || form.GoldToUpgrade != "5k" || form.CurrLevel != "1" {
		t.Errorf("unexpected form %+v", form)
	}

	_, err = DefaultForm().With(map[string]string{"id": "3", "colour": "red"})
	if err == nil {
		t.Fatal("expected error for unknown fields")
	}
	if !strings.Contains(err.Error(), "colour, id") {
		t.Errorf("expected sorted unknown fields in error, got %v", err)
	}
}

func TestFormGet(t *testing.T) {
	value, ok := DefaultForm().Get(FieldNextCoefficient)
	if !ok || value != "1.1" {
		t.Errorf("Get(next_coefficient) = %q, %v", value, ok)
	}
	if _, ok := DefaultForm().Get("id"); ok {
		t.Errorf("expected id to be absent from the form")
	}
}

func TestMatches(t *testing.T) {
	tower := Building{ID: 7, Name: "42 Tower"}
	hotel := Building{ID: 42, Name: "Hotel"}
	cafe := Building{ID: 3, Name: "Cafe"}

	tests := []struct {
		b        Building
		query    string
		expected bool
	}{
		{tower, "", true},
		{tower, "42", true},
		{hotel, "42", true},
		{cafe, "42", false},
		{tower, "tow", true},
		{tower, "TOWER", true},
		{cafe, "3", true},
		{cafe, "hotel", false},
	}

	for _, tt := range tests {
		if got := tt.b.Matches(tt.query); got != tt.expected {
			t.Errorf("%+v.Matches(%q) = %v, expected %v", tt.b, tt.query, got, tt.expected)
		}
	}
}

func TestWarnings(t *testing.T) {
	if warnings := sampleBuilding().Warnings(); len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}

	broken := Building{Name: "Broken", CurrLevel: 0, NumEmployees: -1, CurrCoefficient: 2, NextCoefficient: 2}
	if warnings := broken.Warnings(); len(warnings) != 3 {
		t.Errorf("expected three warnings, got %v", warnings)
	}
}

func TestLevelUp(t *testing.T) {
	b := Building{CurrLevel: 3, CurrCoefficient: 1.2, NextCoefficient: 1.3}
	before := b

	next := LevelUp(b)

	if next.CurrLevel != 4 {
		t.Errorf("expected level 4, got %d", next.CurrLevel)
	}
	if !mathutil.CoefficientsEqual(next.CurrCoefficient, 1.3) {
		t.Errorf("expected current coefficient 1.3, got %v", next.CurrCoefficient)
	}
	if !mathutil.CoefficientsEqual(next.NextCoefficient, 1.4) {
		t.Errorf("expected next coefficient 1.4, got %v", next.NextCoefficient)
	}
	if b != before {
		t.Errorf("LevelUp mutated its argument: %+v", b)
	}
}

func TestLevelUpRepeated(t *testing.T) {
	b := Building{CurrLevel: 1, CurrCoefficient: 1.0, NextCoefficient: 1.1}
	for i := 0; i < 10; i++ {
		next := LevelUp(b)
		if next.NextCoefficient <= next.CurrCoefficient {
			t.Fatalf("coefficients out of order after %d level ups: %+v", i+1, next)
		}
		b.CurrLevel, b.CurrCoefficient, b.NextCoefficient = next.CurrLevel, next.CurrCoefficient, next.NextCoefficient
	}
	if b.CurrLevel != 11 || !mathutil.CoefficientsEqual(b.NextCoefficient, 2.1) {
		t.Errorf("unexpected state after ten level ups: %+v", b)
	}
}
