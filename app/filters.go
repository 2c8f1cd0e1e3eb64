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

package app

import (
	"strconv"
	"strings"

	"allograph/incidence"
)

// parseYear reads a year cell such as "2019" or "2019.0".
func parseYear(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if y, err := strconv.Atoi(s); err == nil {
		return y, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int(f)) {
		return int(f), true
	}
	return 0, false
}

func yearSet(years []int) map[int]bool {
	set := map[int]bool{}
	for _, y := range years {
		set[y] = true
	}
	return set
}

// YearFilter keeps the allografts whose year column holds one of the given years. An empty list of years keeps
// every row.
func YearFilter(column string, years []int) incidence.RowFilter {
	selected := yearSet(years)
	return func(t *incidence.Table, row []string) bool {
		if len(selected) == 0 {
			return true
		}
		y, ok := parseYear(t.Value(row, column))
		return ok && selected[y]
	}
}

// ReferenceYearFilter keeps the allografts whose date column falls in one of the given years, for registries without
// a year column. An empty list of years keeps every row.
func ReferenceYearFilter(column string, years []int) incidence.RowFilter {
	selected := yearSet(years)
	return func(t *incidence.Table, row []string) bool {
		if len(selected) == 0 {
			return true
		}
		date, err := incidence.ParseDate(t.Value(row, column), incidence.AutoDateOrder)
		return err == nil && date.Valid && selected[date.Time.Year()]
	}
}

// RegistryYearFilter selects allografts by year using the Year column when the registry has one, and the treatment
// date otherwise.
func RegistryYearFilter(t *incidence.Table, years []int) incidence.RowFilter {
	if _, ok := t.ColumnIndex(YearColumn); ok {
		return YearFilter(YearColumn, years)
	}
	return ReferenceYearFilter(TreatmentDateColumn, years)
}
