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

	"allograph/incidence"

	"cloud.google.com/go/civil"
	"github.com/valyala/fastrand"
)

// Synthetic registries reproduce the layout of the transplant registry with random but plausible allografts, for
// trying out analyses without patient data.

// SyntheticColumns are the columns of a synthetic registry.
var SyntheticColumns = []string{
	"Long ID", YearColumn, TreatmentDateColumn,
	RelapseColumn, RelapseDateColumn,
	AgvhdColumn, AgvhdDateColumn,
	CgvhdColumn, CgvhdDateColumn,
	StatusColumn, FollowupDateColumn,
}

var syntheticStart = civil.Date{Year: 2015, Month: 1, Day: 1}

const syntheticYears = 9

// percent draws true with the given probability in percent.
func percent(rng *fastrand.RNG, p uint32) bool {
	return rng.Uint32n(100) < p
}

// between draws a number of days in [low, high].
func between(rng *fastrand.RNG, low, high int) int {
	return low + int(rng.Uint32n(uint32(high-low+1)))
}

// syntheticEvent fills in an occurrence flag and date for an event with the given probability and delay range. The
// event only occurs before the end of follow up.
func syntheticEvent(rng *fastrand.RNG, ref civil.Date, followup int, p uint32, low, high int) (string, string) {
	if !percent(rng, p) {
		return "No", ""
	}
	delay := between(rng, low, high)
	if delay > followup {
		return "No", ""
	}
	if percent(rng, 1) {
		return "Yes", "" // occurrence reported without a date
	}
	return "Yes", ref.AddDays(delay).String()
}

// SyntheticRegistry generates a registry of n allografts. The same seed always gives the same registry. About 2% of
// the rows have a data quality problem of the kind found in real exports: a missing treatment date, a missing follow
// up date, or an event without a date.
func SyntheticRegistry(n int, seed uint32) *incidence.Table {
	var rng fastrand.RNG
	rng.Seed(seed)
	rows := make([][]string, n)
	for i := range rows {
		ref := syntheticStart.AddDays(between(&rng, 0, syntheticYears*365-1))
		followup := between(&rng, 0, 1500)
		status := "Alive"
		if percent(&rng, 25) {
			status = DeadStatus
			followup = between(&rng, 0, 700)
		}
		relapse, relapseDate := syntheticEvent(&rng, ref, followup, 25, 30, 900)
		agvhd, agvhdDate := syntheticEvent(&rng, ref, followup, 35, 7, 100)
		cgvhd, cgvhdDate := syntheticEvent(&rng, ref, followup, 30, 100, 700)
		treatmentDate := ref.String()
		if percent(&rng, 1) {
			treatmentDate = ""
		}
		followupDate := ref.AddDays(followup).String()
		if percent(&rng, 1) {
			followupDate = ""
		}
		rows[i] = []string{
			"P" + strconv.Itoa(i+1), strconv.Itoa(ref.Year), treatmentDate,
			relapse, relapseDate,
			agvhd, agvhdDate,
			cgvhd, cgvhdDate,
			status, followupDate,
		}
	}
	return incidence.NewTable(append([]string{}, SyntheticColumns...), rows)
}
