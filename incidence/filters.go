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

// RowFilter prescribes a function type for selecting registry rows before an analysis, e.g. patients transplanted in
// specific years. A row is kept when the filter returns true.
type RowFilter func(t *Table, row []string) bool

// ApplyRowFilter returns a new table holding the rows of t that pass the filter. The rows are shared, not copied.
func ApplyRowFilter(filter RowFilter, t *Table) *Table {
	return ApplyRowFilters([]RowFilter{filter}, t)
}

// ApplyRowFilters returns a new table holding the rows of t that pass all filters, in their original order.
func ApplyRowFilters(filters []RowFilter, t *Table) *Table {
	newT := NewTable(t.Columns, [][]string{})
	for _, row := range t.Rows {
		res := true
		for _, filter := range filters {
			res = filter(t, row) && res
			if !res {
				break
			}
		}
		if res {
			newT.Rows = append(newT.Rows, row)
		}
	}
	return newT
}

// ColumnEqualsFilter keeps rows whose value for a column is one of the given values.
func ColumnEqualsFilter(column string, values ...string) RowFilter {
	accepted := map[string]bool{}
	for _, v := range values {
		accepted[v] = true
	}
	return func(t *Table, row []string) bool {
		return accepted[t.Value(row, column)]
	}
}

// NonEmptyFilter removes rows with an empty value for a column, e.g. rows without a transplant date.
func NonEmptyFilter(column string) RowFilter {
	return func(t *Table, row []string) bool {
		return !isNullCell(t.Value(row, column))
	}
}
