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
	"strconv"

	"go.uber.org/zap"
	"gopkg.in/guregu/null.v3"
)

// ResolvedPatient is one row of the resolved patient table: the original registry row extended with the derived
// durations and the resolved outcome.
type ResolvedPatient struct {
	Row            int        //index of the row in the input table
	Values         []string   //original cells
	TimeToFollowup string     //days to last follow up, empty when unknown
	TimeToEvents   []string   //per configured event, empty when unknown
	Resolution     Resolution //resolved outcome
}

// ResolvedTable is the patient level output of an analysis.
type ResolvedTable struct {
	Columns  []string //original columns
	Events   []string //configured event names, in order
	Patients []ResolvedPatient
}

// Header returns the column names of the resolved table: the original columns followed by time_to_last_followup,
// time_to_<event> for every event, event_type and event_time_days.
func (rt *ResolvedTable) Header() []string {
	header := append([]string{}, rt.Columns...)
	header = append(header, "time_to_last_followup")
	for _, e := range rt.Events {
		header = append(header, "time_to_"+ColumnName(e))
	}
	return append(header, "event_type", "event_time_days")
}

// Record returns the cells of the i-th resolved patient in the order of Header.
func (rt *ResolvedTable) Record(i int) []string {
	p := rt.Patients[i]
	record := make([]string, 0, len(rt.Columns)+len(rt.Events)+3)
	values := p.Values
	if len(values) > len(rt.Columns) {
		values = values[:len(rt.Columns)]
	}
	record = append(record, values...)
	for len(record) < len(rt.Columns) {
		record = append(record, "")
	}
	record = append(record, p.TimeToFollowup)
	record = append(record, p.TimeToEvents...)
	return append(record, p.Resolution.EventType, strconv.Itoa(p.Resolution.EventTime))
}

// Result is everything an analysis produces.
type Result struct {
	Incidence   *IncidenceTable
	Resolved    *ResolvedTable
	Diagnostics Diagnostics
	Warnings    []DataQualityWarning
}

func formatDays(n null.Int) string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatInt(n.Int64, 10)
}

// makeResolvedTable joins the prepared patients with their resolutions.
func makeResolvedTable(t *Table, cfg Config, patients []*Patient, resolutions []Resolution) *ResolvedTable {
	rt := &ResolvedTable{
		Columns:  t.Columns,
		Patients: make([]ResolvedPatient, len(patients)),
	}
	for _, e := range cfg.Events {
		rt.Events = append(rt.Events, e.Name)
	}
	for i, p := range patients {
		times := make([]string, len(p.TimeToEvents))
		for k, tm := range p.TimeToEvents {
			times[k] = formatDays(tm)
		}
		rt.Patients[i] = ResolvedPatient{
			Row:            p.Row,
			Values:         t.Rows[p.Row],
			TimeToFollowup: formatDays(p.TimeToFollowup),
			TimeToEvents:   times,
			Resolution:     resolutions[i],
		}
	}
	return rt
}

// Compute runs a complete competing risks analysis on a registry table: rows are prepared, each patient is resolved to
// a single outcome, and the cumulative incidence of every outcome is accumulated day by day up to cfg.MaxDays.
// Compute does not modify the table and may be called concurrently. A nil logger disables logging.
func Compute(t *Table, cfg Config, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.DateOrder = ResolveDateOrder(t, cfg)
	patients, warnings, err := Prepare(t, cfg)
	if err != nil {
		logger.Error("cannot prepare registry", zap.Error(err))
		return nil, err
	}
	resolutions := ResolveAll(patients, cfg)
	for i, r := range resolutions {
		if r.ImputedCensoring {
			warnings = append(warnings, DataQualityWarning{Row: patients[i].Row, Column: cfg.Followup.DateColumn,
				Kind: ImputedCensoring})
		}
	}
	result := &Result{
		Incidence:   Accumulate(resolutions, cfg),
		Resolved:    makeResolvedTable(t, cfg, patients, resolutions),
		Diagnostics: collectDiagnostics(t, cfg, patients, resolutions, warnings),
		Warnings:    warnings,
	}
	result.Diagnostics.Log(logger)
	for _, w := range warnings {
		logger.Warn("data quality", zap.Int("row", w.Row), zap.String("column", w.Column),
			zap.Stringer("kind", w.Kind))
	}
	return result, nil
}
