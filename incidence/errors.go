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

// ConfigurationError reports a configuration that cannot be applied to the input, typically because referenced
// columns are absent. It is not recoverable by the engine.
type ConfigurationError struct {
	Missing []string //columns referenced by the configuration but absent from the input
	Reason  string   //set for configuration problems that are not about columns
}

func (e *ConfigurationError) Error() string {
	if len(e.Missing) > 0 {
		return "configuration error: missing column(s): " + strings.Join(e.Missing, ", ")
	}
	return "configuration error: " + e.Reason
}

// DataQualityError is returned instead of a warning when the configuration asks to reject bad rows.
type DataQualityError struct {
	Warning DataQualityWarning
}

func (e *DataQualityError) Error() string {
	return "data quality error: " + e.Warning.String()
}

// DataQualityWarning records an input problem that was absorbed by excluding a value or a row.
type DataQualityWarning struct {
	Row    int    //0-based index of the row in the input table
	Column string //offending column
	Kind   WarningKind
}

func (w DataQualityWarning) String() string {
	return fmt.Sprintf("row %d, column %q: %s", w.Row, w.Column, w.Kind)
}
