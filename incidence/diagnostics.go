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
	"go.uber.org/zap"
)

// EventDiagnostics counts how the occurrences of one configured event were treated.
type EventDiagnostics struct {
	Name          string
	Yes           int //rows whose occurrence flag says Yes
	Valid         int //Yes with a date within [0, MaxDays]
	MissingDate   int //Yes without a usable date
	Negative      int //Yes with a date before the reference date
	BeyondHorizon int //Yes with a date after MaxDays
	Resolved      int //patients resolved to this event
}

// Diagnostics summarizes how the rows of a registry were turned into outcomes.
type Diagnostics struct {
	TotalRows        int
	Patients         int       //rows kept for the analysis
	Dropped          int       //rows without a usable reference date
	DateOrder        DateOrder //order in which numeric dates were read
	Events           []EventDiagnostics
	Deaths           int //patients resolved to death
	Censored         int //patients resolved to censoring
	ImputedCensoring int //patients censored at the horizon for lack of a follow up time
	Warnings         int
	Outcomes         map[string]int //patients per resolved outcome, including Censored
}

func collectDiagnostics(t *Table, cfg Config, patients []*Patient, resolutions []Resolution,
	warnings []DataQualityWarning) Diagnostics {
	diag := Diagnostics{
		TotalRows: len(t.Rows),
		Patients:  len(patients),
		Dropped:   len(t.Rows) - len(patients),
		DateOrder: cfg.DateOrder,
		Events:    make([]EventDiagnostics, len(cfg.Events)),
		Warnings:  len(warnings),
		Outcomes:  map[string]int{},
	}
	for k, e := range cfg.Events {
		ed := &diag.Events[k]
		ed.Name = e.Name
		for _, p := range patients {
			if !p.Occurred[k] {
				continue
			}
			ed.Yes++
			tm := p.TimeToEvents[k]
			switch {
			case !tm.Valid:
				ed.MissingDate++
			case tm.Int64 < 0:
				ed.Negative++
			case tm.Int64 > int64(cfg.MaxDays):
				ed.BeyondHorizon++
			default:
				ed.Valid++
			}
		}
	}
	eventIndex := map[string]int{}
	for k, e := range cfg.Events {
		eventIndex[e.Name] = k
	}
	for _, r := range resolutions {
		diag.Outcomes[r.EventType]++
		switch r.EventType {
		case Death:
			diag.Deaths++
		case Censored:
			diag.Censored++
			if r.ImputedCensoring {
				diag.ImputedCensoring++
			}
		default:
			diag.Events[eventIndex[r.EventType]].Resolved++
		}
	}
	return diag
}

// Log writes the diagnostics to a logger. Only counts are logged, never patient values.
func (diag Diagnostics) Log(logger *zap.Logger) {
	logger.Info("registry prepared",
		zap.Int("rows", diag.TotalRows),
		zap.Int("patients", diag.Patients),
		zap.Int("dropped", diag.Dropped),
		zap.Stringer("date_order", diag.DateOrder),
		zap.Int("warnings", diag.Warnings))
	for _, ed := range diag.Events {
		logger.Debug("event occurrences",
			zap.String("event", ed.Name),
			zap.Int("yes", ed.Yes),
			zap.Int("valid", ed.Valid),
			zap.Int("missing_date", ed.MissingDate),
			zap.Int("negative", ed.Negative),
			zap.Int("beyond_horizon", ed.BeyondHorizon),
			zap.Int("resolved", ed.Resolved))
	}
	logger.Info("outcomes resolved",
		zap.Int("deaths", diag.Deaths),
		zap.Int("censored", diag.Censored),
		zap.Int("imputed_censoring", diag.ImputedCensoring),
		zap.Any("outcomes", diag.Outcomes))
}
