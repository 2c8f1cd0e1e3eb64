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

package incidence

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
)

// Printing of analysis results

func formatProbability(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// Header returns the column names of the incidence table: day, n_at_risk, event_free_survival, then
// cumulative_incidence_<outcome> and <outcome>_events per outcome, and censored_events.
func (tab *IncidenceTable) Header() []string {
	header := []string{"day", "n_at_risk", "event_free_survival"}
	for _, o := range tab.Outcomes {
		name := ColumnName(o)
		header = append(header, "cumulative_incidence_"+name, name+"_events")
	}
	return append(header, "censored_events")
}

// Record returns the cells of one day of the incidence table in the order of Header.
func (tab *IncidenceTable) Record(day int) []string {
	record := []string{
		strconv.Itoa(tab.Days[day]),
		strconv.Itoa(tab.AtRisk[day]),
		formatProbability(tab.EventFreeSurvival[day]),
	}
	for i := range tab.Outcomes {
		record = append(record, formatProbability(tab.Incidence[i][day]), strconv.Itoa(tab.Events[i][day]))
	}
	return append(record, strconv.Itoa(tab.Censored[day]))
}

func writeTabSeparated(w io.Writer, header []string, n int, record func(int) []string) error {
	tw := csv.NewWriter(w)
	tw.Comma = '\t'
	if err := tw.Write(header); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := tw.Write(record(i)); err != nil {
			return err
		}
	}
	tw.Flush()
	return tw.Error()
}

// WriteIncidenceTable prints the incidence table as tab separated values with a header line, one line per day.
func WriteIncidenceTable(w io.Writer, tab *IncidenceTable) error {
	return writeTabSeparated(w, tab.Header(), tab.NofDays(), tab.Record)
}

// WriteResolvedTable prints the resolved patients as tab separated values with a header line, in input order.
func WriteResolvedTable(w io.Writer, rt *ResolvedTable) error {
	return writeTabSeparated(w, rt.Header(), len(rt.Patients), rt.Record)
}

func percentage(p float64) string {
	return fmt.Sprintf("%.1f%%", 100*p)
}

// PrintSummary prints a human-readable summary of an analysis.
func PrintSummary(w io.Writer, name string, summary *Summary, diag Diagnostics) {
	fmt.Fprintf(w, "Analysis: %s\n", name)
	fmt.Fprintf(w, "Rows: %d, patients: %d, dropped (no reference date): %d, data quality warnings: %d\n",
		diag.TotalRows, diag.Patients, diag.Dropped, diag.Warnings)
	fmt.Fprintf(w, "Horizon: %d days, numeric dates read %s\n", summary.MaxDays, diag.DateOrder)
	fmt.Fprintln(w, "Outcomes:")
	for _, o := range summary.Outcomes {
		fmt.Fprintf(w, "\t%s: %d patients, cumulative incidence at day %d: %s\n", o.Name, o.Patients,
			summary.MaxDays, percentage(o.Final))
		for j, day := range summary.Landmarks {
			fmt.Fprintf(w, "\t\tday %d: %s\n", day, percentage(o.Landmarks[j]))
		}
	}
	fmt.Fprintf(w, "\tCensored: %d patients (%d without usable follow up)\n", summary.Censored,
		diag.ImputedCensoring)
	fmt.Fprintf(w, "Event free survival at day %d: %s\n", summary.MaxDays, percentage(summary.FinalSurvival))
	for j, day := range summary.Landmarks {
		fmt.Fprintf(w, "\tday %d: %s\n", day, percentage(summary.LandmarkSurvival[j]))
	}
	if math.IsNaN(summary.MedianCensoredFollowup) {
		fmt.Fprintln(w, "Median follow up of censored patients: n/a")
	} else {
		fmt.Fprintf(w, "Median follow up of censored patients: %.1f days\n", summary.MedianCensoredFollowup)
	}
	if len(diag.Events) > 0 {
		fmt.Fprintln(w, "Event occurrences (yes / valid / missing date / negative / beyond horizon):")
		for _, ed := range diag.Events {
			fmt.Fprintf(w, "\t%s: %d / %d / %d / %d / %d\n", ed.Name, ed.Yes, ed.Valid, ed.MissingDate,
				ed.Negative, ed.BeyondHorizon)
		}
	}
}

// printToFile creates a file and hands it to a print function. I/O failures are fatal.
func printToFile(name string, write func(w io.Writer) error) {
	file, err := os.Create(name)
	if err != nil {
		panic(err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			panic(err)
		}
	}()
	if err := write(file); err != nil {
		panic(err)
	}
}

// PrintResultToFiles prints the incidence table, the resolved patients and the summary of an analysis to
// <name>-incidence.tab, <name>-patients.tab and <name>-summary.txt in the output directory.
func PrintResultToFiles(result *Result, summary *Summary, outputPath, name string) {
	printToFile(filepath.Join(outputPath, fmt.Sprintf("%s-incidence.tab", name)), func(w io.Writer) error {
		return WriteIncidenceTable(w, result.Incidence)
	})
	printToFile(filepath.Join(outputPath, fmt.Sprintf("%s-patients.tab", name)), func(w io.Writer) error {
		return WriteResolvedTable(w, result.Resolved)
	})
	printToFile(filepath.Join(outputPath, fmt.Sprintf("%s-summary.txt", name)), func(w io.Writer) error {
		PrintSummary(w, name, summary, result.Diagnostics)
		return nil
	})
}
