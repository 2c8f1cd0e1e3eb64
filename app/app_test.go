// PTRA: Patient Trajectory Analysis Library
// Copyright (c) 2022 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/ptra/blob/master/LICENSE.txt>.

package app_test

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"allograph/app"
	"allograph/incidence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const registryHeader = "Long ID;Year;Treatment Date;First Relapse;First Relapse Date;Status Last Follow Up;" +
	"Date Of Last Follow Up\n"

func TestDetectSeparator(t *testing.T) {
	cases := map[string]rune{
		"a,b,c\n1,2,3\n":            ',',
		"a;b;c\n1;2,5;3\n":          ';',
		"a\tb\tc\n1\t2, 3\t3\n":     '\t',
		"a|b|c\n1|2|3\n":            '|',
		"single\nvalue\n":           ',',
		"a;b,c;d\n1;2,3;4\n5;6;7\n": ';',
	}
	for sample, expected := range cases {
		assert.Equal(t, string(expected), string(app.DetectSeparator([]byte(sample))), sample)
	}
}

func TestReadSampleStopsAfterLines(t *testing.T) {
	content := strings.Repeat("a;b\n", 50)
	sample := app.ReadSample(bufio.NewReader(strings.NewReader(content)))
	assert.Equal(t, strings.Repeat("a;b\n", 10), string(sample))
}

func TestParseRegistryCSV(t *testing.T) {
	content := "\uFEFF" + registryHeader +
		"P1;2020;2020-01-01;Yes;2020-03-01;Alive;2021-01-01\n" +
		"\n" +
		"P2;2021;2021-02-01;No\n"
	registry, err := app.ParseRegistryCSV(strings.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, "Long ID", registry.Columns[0])
	require.Len(t, registry.Rows, 2)
	assert.Len(t, registry.Rows[1], len(registry.Columns))
	assert.Equal(t, "", registry.Value(registry.Rows[1], app.FollowupDateColumn))
	assert.Equal(t, "2020-03-01", registry.Value(registry.Rows[0], app.RelapseDateColumn))

	_, err = app.ParseRegistryCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestLoadRegistry(t *testing.T) {
	dir := t.TempDir()
	registry := app.SyntheticRegistry(40, 3)
	for _, name := range []string{"registry.csv", "registry.xlsx"} {
		path := filepath.Join(dir, name)
		require.NoError(t, app.SaveRegistry(path, registry))
		loaded, err := app.LoadRegistry(path)
		require.NoError(t, err, name)
		assert.Equal(t, registry.Columns, loaded.Columns, name)
		require.Len(t, loaded.Rows, len(registry.Rows), name)
		for i := range registry.Rows {
			assert.Equal(t, registry.Rows[i], loaded.Rows[i], "%s row %d", name, i)
		}
	}
	_, err := app.LoadRegistry(filepath.Join(dir, "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadRegistryWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{" Treatment Date ", "First Relapse",
		"First Relapse Date", "Status Last Follow Up", "Date Of Last Follow Up"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"2020-01-01", "Yes", "2020-01-04", "Alive",
		"2020-03-01"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]interface{}{"2020-01-01", "No"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	registry, err := app.LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, app.TreatmentDateColumn, registry.Columns[0])
	require.Len(t, registry.Rows, 2)
	assert.Equal(t, []string{"2020-01-01", "No", "", "", ""}, registry.Rows[1])

	cfg := app.Relapse().Config
	result, err := incidence.Compute(registry, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, incidence.Resolution{EventType: "Relapse", EventTime: 3}, result.Resolved.Patients[0].Resolution)
	assert.Equal(t, 365, result.Resolved.Patients[1].Resolution.EventTime)
}

func TestLoadRegistryWorkbookDateCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Year", "Treatment Date", "First Relapse",
		"First Relapse Date", "Status Last Follow Up", "Date Of Last Follow Up"}))
	require.NoError(t, f.SetCellValue(sheet, "A2", 2020))
	require.NoError(t, f.SetCellValue(sheet, "B2", time.Date(2020, 1, 13, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, f.SetCellValue(sheet, "C2", "Yes"))
	require.NoError(t, f.SetCellValue(sheet, "D2", time.Date(2020, 1, 16, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, f.SetCellValue(sheet, "E2", "Alive"))
	require.NoError(t, f.SetCellValue(sheet, "F2", time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC)))
	// a day first display format must not change the stored date
	format := "dd/mm/yyyy"
	style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &format})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle(sheet, "F2", "F2", style))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	registry, err := app.LoadRegistry(path)
	require.NoError(t, err)
	require.Len(t, registry.Rows, 1)
	assert.Equal(t, []string{"2020", "2020-01-13", "Yes", "2020-01-16", "Alive", "2020-03-02"}, registry.Rows[0])

	result, err := incidence.Compute(registry, app.Relapse().Config, nil)
	require.NoError(t, err)
	require.Len(t, result.Resolved.Patients, 1)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, incidence.Resolution{EventType: "Relapse", EventTime: 3}, result.Resolved.Patients[0].Resolution)
}

func TestIsDateFormatCode(t *testing.T) {
	cases := map[string]bool{
		"dd/mm/yyyy":         true,
		"yyyy-mm-dd hh:mm":   true,
		"[$-40C]d mmmm yyyy": true,
		"mmm-yy":             true,
		"0.00":               false,
		"hh:mm:ss":           false,
		`"day "0`:            false,
		`[Red]\d0`:           false,
		"#,##0 \"days\"":     false,
	}
	for code, expected := range cases {
		assert.Equal(t, expected, app.IsDateFormatCode(code), code)
	}
}

func TestPresets(t *testing.T) {
	assert.Equal(t, []string{"agvhd", "cgvhd", "relapse"}, app.PresetNames())
	for _, name := range app.PresetNames() {
		a, err := app.Preset(name)
		require.NoError(t, err)
		assert.Equal(t, name, a.Name)
		require.NoError(t, a.Config.Validate())
		assert.True(t, a.Config.DeathAsCompetingRisk)
	}
	a, err := app.Preset(" AGVHD ")
	require.NoError(t, err)
	assert.Equal(t, 100, a.Config.MaxDays)
	_, err = app.Preset("survival")
	assert.Error(t, err)
}

const analysesYAML = `
analyses:
  - name: relapse-gvhd
    title: Relapse and acute GvHD
    reference: Treatment Date
    maxDays: 200
    missingReference: reject
    dateOrder: dayFirst
    events:
      - name: Relapse
        occurrence: First Relapse
        date: First Relapse Date
        color: orange
      - name: aGvHD
        occurrence: First Agvhd Occurrence
        date: First Agvhd Occurrence Date
        label: Acute GvHD
    followup:
      status: Status Last Follow Up
      date: Date Of Last Follow Up
      death: Dead
  - name: relapse-only
    reference: Treatment Date
    maxDays: 365
    deathAsCompetingRisk: false
    events:
      - name: Relapse
        occurrence: First Relapse
        date: First Relapse Date
    followup:
      status: Status Last Follow Up
      date: Date Of Last Follow Up
`

func TestLoadAnalyses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analyses.yaml")
	require.NoError(t, os.WriteFile(path, []byte(analysesYAML), 0600))
	analyses, err := app.LoadAnalyses(path)
	require.NoError(t, err)
	require.Len(t, analyses, 2)

	first := analyses[0]
	assert.Equal(t, "relapse-gvhd", first.Name)
	assert.Equal(t, "Relapse and acute GvHD", first.Title)
	assert.Equal(t, 200, first.Config.MaxDays)
	assert.True(t, first.Config.DeathAsCompetingRisk)
	assert.Equal(t, incidence.RejectMissingReference, first.Config.MissingReference)
	assert.Equal(t, incidence.DayFirst, first.Config.DateOrder)
	require.Len(t, first.Config.Events, 2)
	assert.Equal(t, "orange", first.Config.Events[0].Color)
	assert.Equal(t, "Acute GvHD", first.Config.Events[1].DisplayLabel())
	assert.Equal(t, "Dead", first.Config.Followup.DeathValue)

	second := analyses[1]
	assert.False(t, second.Config.DeathAsCompetingRisk)
	assert.Equal(t, incidence.DropMissingReference, second.Config.MissingReference)
	assert.Equal(t, incidence.AutoDateOrder, second.Config.DateOrder)

	result, err := incidence.Compute(app.SyntheticRegistry(100, 1), second.Config, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Relapse"}, result.Incidence.Outcomes)
}

func TestParseAnalysesErrors(t *testing.T) {
	cases := map[string]string{
		"empty":       "analyses: []",
		"no name":     "analyses:\n  - maxDays: 10",
		"zero days":   strings.Replace(analysesYAML, "maxDays: 200", "maxDays: 0", 1),
		"bad policy":  strings.Replace(analysesYAML, "missingReference: reject", "missingReference: keep", 1),
		"duplicate":   strings.Replace(analysesYAML, "relapse-only", "relapse-gvhd", 1),
		"bad order":   strings.Replace(analysesYAML, "dateOrder: dayFirst", "dateOrder: yearFirst", 1),
		"not yaml":    "analyses: [",
		"no followup": "analyses:\n  - name: x\n    reference: a\n    maxDays: 10\n    events:\n      - {name: e, occurrence: o, date: d}",
	}
	for name, content := range cases {
		_, err := app.ParseAnalyses([]byte(content))
		assert.Error(t, err, name)
	}
}

func TestYearFilters(t *testing.T) {
	registry := incidence.NewTable([]string{app.YearColumn, app.TreatmentDateColumn}, [][]string{
		{"2019", "2019-05-01"},
		{"2020.0", "2020-05-01"},
		{"", "2021-05-01"},
		{"2021", "n/a"},
	})
	byYear := incidence.ApplyRowFilter(app.YearFilter(app.YearColumn, []int{2020, 2021}), registry)
	assert.Equal(t, [][]string{{"2020.0", "2020-05-01"}, {"2021", "n/a"}}, byYear.Rows)

	byDate := incidence.ApplyRowFilter(app.ReferenceYearFilter(app.TreatmentDateColumn, []int{2020, 2021}), registry)
	assert.Equal(t, [][]string{{"2020.0", "2020-05-01"}, {"", "2021-05-01"}}, byDate.Rows)

	assert.Len(t, incidence.ApplyRowFilter(app.YearFilter(app.YearColumn, nil), registry).Rows, 4)

	noYear := incidence.NewTable([]string{app.TreatmentDateColumn}, [][]string{{"2019-05-01"}, {"2020-05-01"}})
	assert.Len(t, incidence.ApplyRowFilter(app.RegistryYearFilter(noYear, []int{2019}), noYear).Rows, 1)
	assert.Len(t, incidence.ApplyRowFilter(app.RegistryYearFilter(registry, []int{2019}), registry).Rows, 1)
}

func TestParseYear(t *testing.T) {
	for s, expected := range map[string]int{"2019": 2019, " 2020 ": 2020, "2021.0": 2021} {
		y, ok := app.ParseYear(s)
		assert.True(t, ok, s)
		assert.Equal(t, expected, y, s)
	}
	for _, s := range []string{"", "2020.5", "twenty"} {
		_, ok := app.ParseYear(s)
		assert.False(t, ok, s)
	}
}

func TestSyntheticRegistry(t *testing.T) {
	registry := app.SyntheticRegistry(200, 11)
	assert.Equal(t, app.SyntheticColumns, registry.Columns)
	require.Len(t, registry.Rows, 200)
	for _, row := range registry.Rows {
		require.Len(t, row, len(app.SyntheticColumns))
		status := registry.Value(row, app.StatusColumn)
		assert.Contains(t, []string{"Alive", app.DeadStatus}, status)
	}
	for _, a := range []app.Analysis{app.Relapse(), app.AcuteGvHD(), app.ChronicGvHD()} {
		_, err := incidence.Compute(registry, a.Config, nil)
		require.NoError(t, err, a.Name)
	}
}
