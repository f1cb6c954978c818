// Package building defines the building record managed by the panel, the
// string-typed form used to edit it, and the pure transformations between
// the two: minimal update patches and level progression.
package building

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/iwvelando/topgirl-optimizer/pkg/mathutil"
)

// Field names as they appear on the wire.
const (
	FieldName            = "name"
	FieldCurrLevel       = "curr_level"
	FieldNumEmployees    = "num_employees"
	FieldCurrCoefficient = "curr_coefficient"
	FieldNextCoefficient = "next_coefficient"
	FieldGoldToUpgrade   = "gold_to_upgrade"
	FieldCurrTotalIncome = "curr_total_income"
)

// Building is a record owned by the backend.
type Building struct {
	ID              int     `json:"id" yaml:"id"`
	Name            string  `json:"name" yaml:"name"`
	CurrLevel       int     `json:"curr_level" yaml:"curr_level"`
	NumEmployees    int     `json:"num_employees" yaml:"num_employees"`
	CurrCoefficient float64 `json:"curr_coefficient" yaml:"curr_coefficient"`
	NextCoefficient float64 `json:"next_coefficient" yaml:"next_coefficient"`
	GoldToUpgrade   float64 `json:"gold_to_upgrade" yaml:"gold_to_upgrade"`
	CurrTotalIncome float64 `json:"curr_total_income" yaml:"curr_total_income"`
	IdolIncome      float64 `json:"idol_income,omitempty" yaml:"idol_income,omitempty"`
}

// Matches reports whether the building name contains query
// case-insensitively, or its id contains query. An empty query matches.
func (b Building) Matches(query string) bool {
	if query == "" {
		return true
	}
	if strings.Contains(strings.ToLower(b.Name), strings.ToLower(query)) {
		return true
	}
	return strings.Contains(strconv.Itoa(b.ID), query)
}

// Warnings lists record inconsistencies worth surfacing to the user.
func (b Building) Warnings() []string {
	var warnings []string
	if b.CurrLevel < 1 {
		warnings = append(warnings, fmt.Sprintf("Building '%s' has level %d below 1", b.Name, b.CurrLevel))
	}
	if b.NumEmployees < 0 {
		warnings = append(warnings, fmt.Sprintf("Building '%s' has negative employee count %d", b.Name, b.NumEmployees))
	}
	if b.NextCoefficient < b.CurrCoefficient || mathutil.CoefficientsEqual(b.NextCoefficient, b.CurrCoefficient) {
		warnings = append(warnings, fmt.Sprintf("Building '%s' next coefficient %v does not exceed current %v",
			b.Name, b.NextCoefficient, b.CurrCoefficient))
	}
	return warnings
}

// FormSnapshot is the raw, user-typed draft of a building's editable fields.
type FormSnapshot struct {
	Name            string `json:"name"`
	CurrLevel       string `json:"curr_level"`
	NumEmployees    string `json:"num_employees"`
	CurrCoefficient string `json:"curr_coefficient"`
	NextCoefficient string `json:"next_coefficient"`
	GoldToUpgrade   string `json:"gold_to_upgrade"`
	CurrTotalIncome string `json:"curr_total_income"`
}

// DefaultForm returns the values a fresh create form starts with.
func DefaultForm() FormSnapshot {
	return FormSnapshot{
		Name:            "",
		CurrLevel:       "1",
		NumEmployees:    "1",
		CurrCoefficient: "1.0",
		NextCoefficient: "1.1",
		GoldToUpgrade:   "1",
		CurrTotalIncome: "0",
	}
}

// FormFromBuilding renders a record into the form used to edit it.
func FormFromBuilding(b Building) FormSnapshot {
	return FormSnapshot{
		Name:            b.Name,
		CurrLevel:       strconv.Itoa(b.CurrLevel),
		NumEmployees:    strconv.Itoa(b.NumEmployees),
		CurrCoefficient: formatFloat(b.CurrCoefficient),
		NextCoefficient: formatFloat(b.NextCoefficient),
		GoldToUpgrade:   formatFloat(b.GoldToUpgrade),
		CurrTotalIncome: formatFloat(b.CurrTotalIncome),
	}
}

// Get returns the raw value of field.
func (f FormSnapshot) Get(field string) (string, bool) {
	fld, ok := lookup(field)
	if !ok {
		return "", false
	}
	return *fld.value(&f), true
}

// With returns a copy of f with values applied by field name.
func (f FormSnapshot) With(values map[string]string) (FormSnapshot, error) {
	var unknown []string
	for field, value := range values {
		fld, ok := lookup(field)
		if !ok {
			unknown = append(unknown, field)
			continue
		}
		*fld.value(&f) = value
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return f, fmt.Errorf("unknown building field(s) %s; expected one of %s",
			strings.Join(unknown, ", "), strings.Join(Fields(), ", "))
	}
	return f, nil
}

// Fields returns the editable field names in display order.
func Fields() []string {
	names := make([]string, len(schema))
	for i, fld := range schema {
		names[i] = fld.name
	}
	return names
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
