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

// Table is a patient level registry extract: one row per patient, cells as found in the source file.
type Table struct {
	Columns []string
	Rows    [][]string
	index   map[string]int
}

// NewTable creates a table with the given header and rows. Rows shorter than the header read as empty cells. The
// header must not change afterwards.
func NewTable(columns []string, rows [][]string) *Table {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, ok := index[c]; !ok {
			index[c] = i
		}
	}
	return &Table{Columns: columns, Rows: rows, index: index}
}

// ColumnIndex returns the position of a column in the header. The first occurrence wins for duplicated names.
func (t *Table) ColumnIndex(column string) (int, bool) {
	if t.index != nil {
		i, ok := t.index[column]
		return i, ok
	}
	for i, c := range t.Columns {
		if c == column {
			return i, true
		}
	}
	return -1, false
}

// Value returns the cell of a row for a column, or "" when the row or the column has no such cell.
func (t *Table) Value(row []string, column string) string {
	i, ok := t.ColumnIndex(column)
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// missingColumns returns the columns that do not occur in the header.
func (t *Table) missingColumns(columns []string) []string {
	var missing []string
	for _, c := range columns {
		if _, ok := t.ColumnIndex(c); !ok {
			missing = append(missing, c)
		}
	}
	return missing
}
