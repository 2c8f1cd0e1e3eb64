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
	"regexp"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/araddon/dateparse"
	"gopkg.in/guregu/null.v3"
)

// Patient is the analysis view of one registry row: the reference date and every duration derived from it.
type Patient struct {
	Row            int        //index of the row in the input table
	Reference      civil.Date //reference date, e.g. day of transplant
	Occurred       []bool     //per configured event: the occurrence flag says Yes
	TimeToEvents   []null.Int //per configured event: days from reference to event date, null when unknown
	Dead           bool       //status at last follow up equals the death value
	TimeToFollowup null.Int   //days from reference to last follow up, null when unknown
}

// WarningKind classifies data quality warnings.
type WarningKind int

const (
	MissingReference WarningKind = iota //row dropped, no usable reference date
	UnparseableDate                     //date cell present but not understood, treated as unknown
	NegativeDuration                    //date before the reference date, ignored for resolution
	ImputedCensoring                    //no usable follow up time, censored at the horizon
)

var warningKindNames = [...]string{"missing reference date", "unparseable date", "negative duration",
	"no usable follow up, censored at horizon"}

func (k WarningKind) String() string {
	if int(k) < len(warningKindNames) {
		return warningKindNames[k]
	}
	return fmt.Sprint("warning kind ", int(k))
}

// nullCells are the spellings of a missing value found in registry exports.
var nullCells = map[string]bool{"": true, "nan": true, "nat": true, "na": true, "n/a": true, "null": true,
	"none": true, "-": true}

func isNullCell(s string) bool {
	return nullCells[strings.ToLower(strings.TrimSpace(s))]
}

// numericDate matches dates written as three numbers with the year last, e.g. 05/01/2020, 5.1.20 or 05-01-2020
// 10:30, whose day and month order is ambiguous.
var numericDate = regexp.MustCompile(`^(\d{1,2})([/.\-])(\d{1,2})([/.\-])(\d{4}|\d{2})((?:[ T].*)?)$`)

// numericDateFields returns the first two numbers of a numeric date cell.
func numericDateFields(s string) (first, second int, ok bool) {
	m := numericDate.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil || m[2] != m[4] {
		return 0, 0, false
	}
	first, _ = strconv.Atoi(m[1])
	second, _ = strconv.Atoi(m[3])
	return first, second, true
}

// InferDateOrder reads the day and month order of numeric dates from a set of date cells. Only a number above 12
// tells, as it can only be a day; the order with the most telling cells wins, month first when no cell tells.
func InferDateOrder(cells []string) DateOrder {
	dayFirst, monthFirst := 0, 0
	for _, cell := range cells {
		first, second, ok := numericDateFields(cell)
		switch {
		case !ok:
		case first > 12 && second <= 12:
			dayFirst++
		case second > 12 && first <= 12:
			monthFirst++
		}
	}
	if dayFirst > monthFirst {
		return DayFirst
	}
	return MonthFirst
}

// ResolveDateOrder returns the date order of an analysis. An auto order is inferred from all date columns of the
// configuration together, as a registry writes its dates one way.
func ResolveDateOrder(t *Table, cfg Config) DateOrder {
	if cfg.DateOrder != AutoDateOrder {
		return cfg.DateOrder
	}
	columns := cfg.dateColumns()
	cells := make([]string, 0, len(t.Rows)*len(columns))
	for _, row := range t.Rows {
		for _, c := range columns {
			cells = append(cells, t.Value(row, c))
		}
	}
	return InferDateOrder(cells)
}

// normalizeNumericDate rewrites a numeric date as year-month-day, keeping any time of day. Two digit years follow
// the Go convention: 69 to 99 are in the 1900s, 00 to 68 in the 2000s.
func normalizeNumericDate(s string, order DateOrder) (string, bool) {
	m := numericDate.FindStringSubmatch(s)
	if m == nil || m[2] != m[4] {
		return s, false
	}
	first, _ := strconv.Atoi(m[1])
	second, _ := strconv.Atoi(m[3])
	if order == AutoDateOrder {
		order = MonthFirst
		if first > 12 {
			order = DayFirst
		}
	}
	month, day := first, second
	if order == DayFirst {
		month, day = second, first
	}
	year, _ := strconv.Atoi(m[5])
	if len(m[5]) == 2 {
		year += 1900
		if year < 1969 {
			year += 100
		}
	}
	return fmt.Sprintf("%04d-%02d-%02d%s", year, month, day, m[6]), true
}

// ParseDate parses a registry date cell. Numeric dates such as 05/01/2020 are read in the given order; with
// AutoDateOrder each cell is read month first unless it can only be day first. Empty and NA-like cells give a null
// time without error.
func ParseDate(s string, order DateOrder) (null.Time, error) {
	s = strings.TrimSpace(s)
	if isNullCell(s) {
		return null.Time{}, nil
	}
	normalized, _ := normalizeNumericDate(s, order)
	t, err := dateparse.ParseAny(normalized)
	if err != nil {
		return null.Time{}, fmt.Errorf("unparseable date %q: %w", s, err)
	}
	return null.TimeFrom(t), nil
}

// isYes reports whether an occurrence flag marks an event.
func isYes(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), OccurredValue)
}

// daysBetween returns the number of calendar days from ref to t, null when t is null.
func daysBetween(ref civil.Date, t null.Time) null.Int {
	if !t.Valid {
		return null.Int{}
	}
	return null.IntFrom(int64(civil.DateOf(t.Time).DaysSince(ref)))
}

// Prepare validates the configuration against the table header and converts every row into a Patient, parsing all
// dates in the order given by ResolveDateOrder and computing all durations in one pass. Rows without a usable reference date are dropped with a warning,
// or rejected with a *DataQualityError, depending on cfg.MissingReference.
func Prepare(t *Table, cfg Config) ([]*Patient, []DataQualityWarning, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if missing := t.missingColumns(cfg.requiredColumns()); len(missing) > 0 {
		return nil, nil, &ConfigurationError{Missing: missing}
	}
	order := ResolveDateOrder(t, cfg)
	warnings := []DataQualityWarning{}
	patients := make([]*Patient, 0, len(t.Rows))
	deathValue := strings.TrimSpace(cfg.Followup.DeathValue)
	for i, row := range t.Rows {
		refCell := t.Value(row, cfg.ReferenceDateColumn)
		ref, err := ParseDate(refCell, order)
		if err != nil || !ref.Valid {
			w := DataQualityWarning{Row: i, Column: cfg.ReferenceDateColumn, Kind: MissingReference}
			if cfg.MissingReference == RejectMissingReference {
				return nil, nil, &DataQualityError{Warning: w}
			}
			warnings = append(warnings, w)
			continue
		}
		refDate := civil.DateOf(ref.Time)
		patient := &Patient{
			Row:          i,
			Reference:    refDate,
			Occurred:     make([]bool, len(cfg.Events)),
			TimeToEvents: make([]null.Int, len(cfg.Events)),
		}
		for k, e := range cfg.Events {
			patient.Occurred[k] = isYes(t.Value(row, e.OccurrenceColumn))
			date, err := ParseDate(t.Value(row, e.DateColumn), order)
			if err != nil {
				warnings = append(warnings, DataQualityWarning{Row: i, Column: e.DateColumn, Kind: UnparseableDate})
			}
			patient.TimeToEvents[k] = daysBetween(refDate, date)
			if patient.Occurred[k] && patient.TimeToEvents[k].Valid && patient.TimeToEvents[k].Int64 < 0 {
				warnings = append(warnings, DataQualityWarning{Row: i, Column: e.DateColumn, Kind: NegativeDuration})
			}
		}
		status := strings.TrimSpace(t.Value(row, cfg.Followup.StatusColumn))
		patient.Dead = deathValue != "" && strings.EqualFold(status, deathValue)
		followup, err := ParseDate(t.Value(row, cfg.Followup.DateColumn), order)
		if err != nil {
			warnings = append(warnings, DataQualityWarning{Row: i, Column: cfg.Followup.DateColumn, Kind: UnparseableDate})
		}
		patient.TimeToFollowup = daysBetween(refDate, followup)
		if patient.TimeToFollowup.Valid && patient.TimeToFollowup.Int64 < 0 {
			warnings = append(warnings, DataQualityWarning{Row: i, Column: cfg.Followup.DateColumn, Kind: NegativeDuration})
		}
		patients = append(patients, patient)
	}
	return patients, warnings, nil
}
