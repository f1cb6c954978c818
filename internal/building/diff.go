package building

import (
	"math"
	"strings"

	"github.com/iwvelando/topgirl-optimizer/pkg/magnitude"
	"github.com/iwvelando/topgirl-optimizer/pkg/mathutil"
)

type fieldKind int

const (
	kindText fieldKind = iota
	kindInteger
	kindReal
)

type fieldSpec struct {
	name  string
	kind  fieldKind
	value func(*FormSnapshot) *string
}

var schema = []fieldSpec{
	{FieldName, kindText, func(f *FormSnapshot) *string { return &f.Name }},
	{FieldCurrLevel, kindInteger, func(f *FormSnapshot) *string { return &f.CurrLevel }},
	{FieldNumEmployees, kindInteger, func(f *FormSnapshot) *string { return &f.NumEmployees }},
	{FieldCurrCoefficient, kindReal, func(f *FormSnapshot) *string { return &f.CurrCoefficient }},
	{FieldNextCoefficient, kindReal, func(f *FormSnapshot) *string { return &f.NextCoefficient }},
	{FieldGoldToUpgrade, kindReal, func(f *FormSnapshot) *string { return &f.GoldToUpgrade }},
	{FieldCurrTotalIncome, kindReal, func(f *FormSnapshot) *string { return &f.CurrTotalIncome }},
}

func lookup(field string) (fieldSpec, bool) {
	for _, fld := range schema {
		if fld.name == field {
			return fld, true
		}
	}
	return fieldSpec{}, false
}

// Patch maps changed field names to their canonical values: string for the
// name (and for numeric fields holding text that is not a number), int64 for
// whole integer fields, float64 otherwise.
type Patch map[string]interface{}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return len(p) == 0
}

// Fields returns the patched field names in schema order.
func (p Patch) Fields() []string {
	fields := make([]string, 0, len(p))
	for _, fld := range schema {
		if _, ok := p[fld.name]; ok {
			fields = append(fields, fld.name)
		}
	}
	return fields
}

// Diff returns the fields of edited that differ from original, converted to
// canonical values. A nil original means a new record: every field is
// included.
func Diff(original *FormSnapshot, edited FormSnapshot) Patch {
	patch := make(Patch)
	for _, fld := range schema {
		value := *fld.value(&edited)
		if original != nil && *fld.value(original) == value {
			continue
		}
		patch[fld.name] = fld.coerce(value)
	}
	return patch
}

// coerce converts a raw form value into the field's canonical type. Text
// that is neither a plain number nor a number with a unit passes through.
func (s fieldSpec) coerce(raw string) interface{} {
	if s.kind == kindText {
		return raw
	}
	if strings.TrimSpace(raw) == "" {
		return s.number(0)
	}
	if value, ok := magnitude.Plain(raw); ok {
		return s.number(value)
	}
	if value, ok := magnitude.Parse(raw); ok {
		return s.number(value)
	}
	return raw
}

func (s fieldSpec) number(value float64) interface{} {
	if s.kind == kindInteger && mathutil.IsWhole(value) && math.Abs(value) < math.MaxInt64 {
		return int64(value)
	}
	return value
}
