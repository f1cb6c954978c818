// Package output provides utilities for formatting and displaying building
// lists, optimization parameters and upgrade plans.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/iwvelando/topgirl-optimizer/internal/building"
	"github.com/iwvelando/topgirl-optimizer/pkg/constants"
	"github.com/iwvelando/topgirl-optimizer/pkg/format"
	"github.com/iwvelando/topgirl-optimizer/pkg/magnitude"
	"github.com/iwvelando/topgirl-optimizer/pkg/optimization"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// Report is what a command prints. Unset parts are skipped.
type Report struct {
	Buildings []building.Building   `yaml:"buildings,omitempty"`
	Request   *optimization.Request `yaml:"request,omitempty"`
	Result    *optimization.Result  `yaml:"result,omitempty"`
}

// Write renders report to w in format.
func Write(w io.Writer, outputFormat string, report Report) error {
	switch outputFormat {
	case constants.OutputFormatPretty:
		return PrettyFormat(w, report)
	case constants.OutputFormatCSV:
		return CsvFormat(w, report)
	case constants.OutputFormatYAML:
		return YamlFormat(w, report)
	case constants.OutputFormatXLSX:
		return XlsxFormat(w, report)
	default:
		return fmt.Errorf("unsupported output format %s", outputFormat)
	}
}

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(w io.Writer, report Report) error {
	p := message.NewPrinter(language.English)

	if report.Buildings != nil {
		_, _ = fmt.Fprintf(w, "--- Buildings (%d) ---\n", len(report.Buildings))
		_, _ = fmt.Fprintf(w, "ID   | Name                 | Level | Staff | Coefficient | Next  | Gold to upgrade | Income\n")
		_, _ = fmt.Fprintf(w, "__   | ____                 | _____ | _____ | ___________ | ____  | _______________ | ______\n")
		for _, b := range report.Buildings {
			_, _ = p.Fprintf(w, "%-4d | %-20s | %5d | %5d | %11.2f | %5.2f | %15s | %s\n",
				b.ID, b.Name, b.CurrLevel, b.NumEmployees, b.CurrCoefficient, b.NextCoefficient,
				magnitude.Format(b.GoldToUpgrade), magnitude.Format(b.CurrTotalIncome))
		}
		if report.Request != nil || report.Result != nil {
			_, _ = fmt.Fprintf(w, "\n")
		}
	}

	if report.Request != nil {
		req := report.Request
		_, _ = fmt.Fprintf(w, "--- Optimization parameters ---\n")
		_, _ = p.Fprintf(w, "Money:   %s (%.0f)\n", magnitude.Format(req.CurrentMoney), req.CurrentMoney)
		_, _ = p.Fprintf(w, "Gold:    %s (%.0f)\n", magnitude.Format(req.CurrentGold), req.CurrentGold)
		_, _ = p.Fprintf(w, "Trade:   %v gold for %v\n", req.TradeX, req.TradeY)
		_, _ = fmt.Fprintf(w, "Session: %s\n", format.Clock(req.SessionSeconds))
		if report.Result != nil {
			_, _ = fmt.Fprintf(w, "\n")
		}
	}

	if report.Result != nil {
		result := report.Result
		_, _ = fmt.Fprintf(w, "--- Upgrade plan ---\n")
		_, _ = p.Fprintf(w, "Total income earned:     %.2f\n", result.TotalIncomeEarned)
		_, _ = p.Fprintf(w, "Final income per second: %.2f\n", result.FinalIncomePerSecond)
		if result.Empty() {
			_, _ = fmt.Fprintf(w, "No upgrades recommended.\n")
			return nil
		}
		_, _ = fmt.Fprintf(w, "Step | Time     | Building             | Level | New income\n")
		_, _ = fmt.Fprintf(w, "____ | ____     | ________             | _____ | __________\n")
		for i, step := range result.UpgradePlan {
			_, _ = p.Fprintf(w, "%4d | %8s | %-20s | %5d | %s\n",
				i+1, format.Clock(step.UpgradeTime), step.BuildingName, step.CurrLevel, magnitude.Format(step.NewTotalIncome))
		}
	}
	return nil
}

var buildingHeader = []string{
	"id", building.FieldName, building.FieldCurrLevel, building.FieldNumEmployees,
	building.FieldCurrCoefficient, building.FieldNextCoefficient, building.FieldGoldToUpgrade,
	building.FieldCurrTotalIncome,
}

var planHeader = []string{"step", "upgrade_time", "building_id", "building_name", "curr_level", "new_total_income"}

func buildingRow(b building.Building) []string {
	return []string{
		strconv.Itoa(b.ID), b.Name, strconv.Itoa(b.CurrLevel), strconv.Itoa(b.NumEmployees),
		formatFloat(b.CurrCoefficient), formatFloat(b.NextCoefficient), formatFloat(b.GoldToUpgrade),
		formatFloat(b.CurrTotalIncome),
	}
}

func planRow(i int, step optimization.UpgradeStep) []string {
	return []string{
		strconv.Itoa(i + 1), strconv.Itoa(step.UpgradeTime), strconv.Itoa(step.BuildingID),
		step.BuildingName, strconv.Itoa(step.CurrLevel), formatFloat(step.NewTotalIncome),
	}
}

func requestRows(req optimization.Request) [][]string {
	return [][]string{
		{"current_money", formatFloat(req.CurrentMoney)},
		{"current_gold", formatFloat(req.CurrentGold)},
		{"trade_x", formatFloat(req.TradeX)},
		{"trade_y", formatFloat(req.TradeY)},
		{"session_seconds", strconv.Itoa(req.SessionSeconds)},
	}
}

func resultRows(result optimization.Result) [][]string {
	return [][]string{
		{"total_income_earned", formatFloat(result.TotalIncomeEarned)},
		{"final_income_per_second", formatFloat(result.FinalIncomePerSecond)},
	}
}

// CsvFormat outputs in comma-separated value format. Parameters and plan
// totals are name/value rows; buildings and plan steps are tables with a
// header row.
func CsvFormat(w io.Writer, report Report) error {
	cw := csv.NewWriter(w)

	if report.Buildings != nil {
		if err := cw.Write(buildingHeader); err != nil {
			return err
		}
		for _, b := range report.Buildings {
			if err := cw.Write(buildingRow(b)); err != nil {
				return err
			}
		}
	}

	if report.Request != nil {
		if err := cw.WriteAll(requestRows(*report.Request)); err != nil {
			return err
		}
	}

	if report.Result != nil {
		if err := cw.WriteAll(resultRows(*report.Result)); err != nil {
			return err
		}
		if err := cw.Write(planHeader); err != nil {
			return err
		}
		for i, step := range report.Result.UpgradePlan {
			if err := cw.Write(planRow(i, step)); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// YamlFormat outputs the report as a YAML document.
func YamlFormat(w io.Writer, report Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return enc.Close()
}

// Sheet names used by XlsxFormat.
const (
	SheetBuildings  = "Buildings"
	SheetParameters = "Parameters"
	SheetPlan       = "Plan"
)

// XlsxFormat outputs a spreadsheet with one sheet per report part.
func XlsxFormat(w io.Writer, report Report) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	var sheets []string
	var rows [][][]string

	if report.Buildings != nil {
		table := [][]string{buildingHeader}
		for _, b := range report.Buildings {
			table = append(table, buildingRow(b))
		}
		sheets = append(sheets, SheetBuildings)
		rows = append(rows, table)
	}
	if report.Request != nil {
		sheets = append(sheets, SheetParameters)
		rows = append(rows, requestRows(*report.Request))
	}
	if report.Result != nil {
		table := resultRows(*report.Result)
		table = append(table, planHeader)
		for i, step := range report.Result.UpgradePlan {
			table = append(table, planRow(i, step))
		}
		sheets = append(sheets, SheetPlan)
		rows = append(rows, table)
	}
	if len(sheets) == 0 {
		return fmt.Errorf("nothing to write")
	}

	defaultSheet := f.GetSheetName(0)
	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, sheet); err != nil {
				return fmt.Errorf("failed to name sheet %s: %w", sheet, err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", sheet, err)
		}
		if err := writeSheet(f, sheet, rows[i]); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write spreadsheet: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, rows [][]string) error {
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for i, v := range row {
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				values[i] = n
			} else {
				values[i] = v
			}
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write sheet %s: %w", sheet, err)
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
