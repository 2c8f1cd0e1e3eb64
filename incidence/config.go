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
	"fmt"
	"strings"
)

// Outcome names that are not configured events.
const (
	Death    = "Death"
	Censored = "Censored"
)

// OccurredValue is the occurrence flag value marking that an event took place. Comparison ignores case and
// surrounding white space.
const OccurredValue = "Yes"

// MissingReferencePolicy says what happens to rows without a usable reference date.
type MissingReferencePolicy int

const (
	// DropMissingReference removes the row from the analysis and records a data quality warning.
	DropMissingReference MissingReferencePolicy = iota
	// RejectMissingReference aborts the computation with a *DataQualityError.
	RejectMissingReference
)

// DateOrder is the order of day and month in numeric dates such as 05/01/2020.
type DateOrder int

const (
	// AutoDateOrder infers the order from the date columns of the registry.
	AutoDateOrder DateOrder = iota
	// MonthFirst reads 05/01/2020 as May 1.
	MonthFirst
	// DayFirst reads 05/01/2020 as January 5.
	DayFirst
)

var dateOrderNames = [...]string{"auto", "monthFirst", "dayFirst"}

func (o DateOrder) String() string {
	if o >= 0 && int(o) < len(dateOrderNames) {
		return dateOrderNames[o]
	}
	return fmt.Sprint("date order ", int(o))
}

// ParseDateOrder reads a date order name: auto, monthFirst or dayFirst. The empty string means auto.
func ParseDateOrder(s string) (DateOrder, error) {
	if strings.TrimSpace(s) == "" {
		return AutoDateOrder, nil
	}
	for i, name := range dateOrderNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return DateOrder(i), nil
		}
	}
	return AutoDateOrder, fmt.Errorf("unknown date order %q, expected auto, monthFirst or dayFirst", s)
}

// EventConfig describes one clinical event of interest, e.g. acute GvHD or relapse.
type EventConfig struct {
	Name             string `yaml:"name"`       //outcome name used in result columns
	OccurrenceColumn string `yaml:"occurrence"` //column holding the Yes/No occurrence flag
	DateColumn       string `yaml:"date"`       //column holding the event date
	Label            string `yaml:"label"`      //display label, defaults to Name
	Color            string `yaml:"color"`      //display color, CSS name or #rrggbb
}

// DisplayLabel returns the label to show for the event.
func (e EventConfig) DisplayLabel() string {
	if e.Label != "" {
		return e.Label
	}
	return e.Name
}

// FollowupConfig describes the last known status of a patient.
type FollowupConfig struct {
	StatusColumn string `yaml:"status"` //column with the status at last follow up
	DateColumn   string `yaml:"date"`   //column with the date of last follow up
	DeathValue   string `yaml:"death"`  //status value meaning the patient died, e.g. "Dead"
}

// Config holds everything the engine needs to compute cumulative incidences for one analysis.
type Config struct {
	ReferenceDateColumn  string                 //anchor date for all durations, e.g. transplant date
	Events               []EventConfig          //events of interest, declaration order breaks ties
	Followup             FollowupConfig         //censoring and death information
	MaxDays              int                    //analysis horizon in days
	DeathAsCompetingRisk bool                   //model death as an outcome instead of censoring it
	MissingReference     MissingReferencePolicy //treatment of rows without a reference date
	DateOrder            DateOrder              //day and month order of numeric dates, inferred when auto
}

// Outcomes returns the outcome categories of the analysis in column order: the configured events followed by death
// when death is modeled as a competing risk.
func (cfg Config) Outcomes() []string {
	outcomes := make([]string, 0, len(cfg.Events)+1)
	for _, e := range cfg.Events {
		outcomes = append(outcomes, e.Name)
	}
	if cfg.DeathAsCompetingRisk {
		outcomes = append(outcomes, Death)
	}
	return outcomes
}

// Validate checks the configuration without looking at any data.
func (cfg Config) Validate() error {
	if cfg.MaxDays <= 0 {
		return &ConfigurationError{Reason: fmt.Sprint("max days must be positive, got ", cfg.MaxDays)}
	}
	if cfg.ReferenceDateColumn == "" {
		return &ConfigurationError{Reason: "no reference date column"}
	}
	if len(cfg.Events) == 0 {
		return &ConfigurationError{Reason: "no events configured"}
	}
	seen := map[string]bool{}
	for i, e := range cfg.Events {
		switch {
		case strings.TrimSpace(e.Name) == "":
			return &ConfigurationError{Reason: fmt.Sprint("event ", i, " has no name")}
		case strings.EqualFold(e.Name, Death) || strings.EqualFold(e.Name, Censored):
			return &ConfigurationError{Reason: fmt.Sprintf("event name %q is reserved", e.Name)}
		case seen[strings.ToLower(e.Name)]:
			return &ConfigurationError{Reason: fmt.Sprintf("duplicate event name %q", e.Name)}
		case e.OccurrenceColumn == "" || e.DateColumn == "":
			return &ConfigurationError{Reason: fmt.Sprintf("event %q needs an occurrence and a date column", e.Name)}
		}
		seen[strings.ToLower(e.Name)] = true
	}
	if cfg.Followup.StatusColumn == "" || cfg.Followup.DateColumn == "" {
		return &ConfigurationError{Reason: "follow up needs a status and a date column"}
	}
	if cfg.DateOrder < AutoDateOrder || cfg.DateOrder > DayFirst {
		return &ConfigurationError{Reason: fmt.Sprint("invalid ", cfg.DateOrder)}
	}
	if cfg.DeathAsCompetingRisk && strings.TrimSpace(cfg.Followup.DeathValue) == "" {
		return &ConfigurationError{Reason: "death is a competing risk but no death value is configured"}
	}
	return nil
}

// requiredColumns lists every column the configuration refers to, without duplicates, in configuration order.
func (cfg Config) requiredColumns() []string {
	cols := []string{cfg.ReferenceDateColumn}
	for _, e := range cfg.Events {
		cols = append(cols, e.OccurrenceColumn, e.DateColumn)
	}
	cols = append(cols, cfg.Followup.StatusColumn, cfg.Followup.DateColumn)
	unique := cols[:0]
	seen := map[string]bool{}
	for _, c := range cols {
		if !seen[c] {
			seen[c] = true
			unique = append(unique, c)
		}
	}
	return unique
}

// dateColumns lists the date columns the configuration refers to, without duplicates.
func (cfg Config) dateColumns() []string {
	cols := []string{cfg.ReferenceDateColumn}
	seen := map[string]bool{cfg.ReferenceDateColumn: true}
	for _, c := range append(eventDateColumns(cfg.Events), cfg.Followup.DateColumn) {
		if !seen[c] {
			seen[c] = true
			cols = append(cols, c)
		}
	}
	return cols
}

func eventDateColumns(events []EventConfig) []string {
	cols := make([]string, len(events))
	for i, e := range events {
		cols[i] = e.DateColumn
	}
	return cols
}

// ColumnName turns an outcome name into the lower case form used in result column names.
func ColumnName(outcome string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(outcome)), " ", "_")
}
