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
	"math"

	"gonum.org/v1/gonum/floats"
)

// Tolerance is the absolute error accepted when checking probabilities computed by the recursion.
const Tolerance = 1e-9

// IncidenceTable holds the cumulative incidence estimate for each day from 0 up to the horizon. All slices indexed by
// day have MaxDays+1 entries; Incidence and Events are indexed by outcome first, in the order of Outcomes.
type IncidenceTable struct {
	Outcomes          []string    //configured events, then Death when modeled
	Days              []int       //0..MaxDays
	AtRisk            []int       //patients whose resolved time is >= day
	EventFreeSurvival []float64   //probability to be free of every outcome at the start of the day
	Incidence         [][]float64 //cumulative incidence per outcome per day
	Events            [][]int     //patients resolving to the outcome on that day
	Censored          []int       //patients censored on that day
}

// NofDays returns the number of rows in the table.
func (tab *IncidenceTable) NofDays() int {
	return len(tab.Days)
}

// OutcomeIndex returns the position of an outcome in the table.
func (tab *IncidenceTable) OutcomeIndex(outcome string) (int, bool) {
	for i, o := range tab.Outcomes {
		if o == outcome {
			return i, true
		}
	}
	return -1, false
}

// CumulativeIncidence returns the cumulative incidence of an outcome on a day, 0 for unknown outcomes.
func (tab *IncidenceTable) CumulativeIncidence(outcome string, day int) float64 {
	i, ok := tab.OutcomeIndex(outcome)
	if !ok || day < 0 || day >= len(tab.Days) {
		return 0
	}
	return tab.Incidence[i][day]
}

// makeIncidenceTable allocates a table for the given outcomes and horizon, with survival 1 and everything else 0.
func makeIncidenceTable(outcomes []string, maxDays int) *IncidenceTable {
	n := maxDays + 1
	tab := &IncidenceTable{
		Outcomes:          outcomes,
		Days:              make([]int, n),
		AtRisk:            make([]int, n),
		EventFreeSurvival: make([]float64, n),
		Incidence:         make([][]float64, len(outcomes)),
		Events:            make([][]int, len(outcomes)),
		Censored:          make([]int, n),
	}
	for day := range tab.Days {
		tab.Days[day] = day
		tab.EventFreeSurvival[day] = 1.0
	}
	for i := range outcomes {
		tab.Incidence[i] = make([]float64, n)
		tab.Events[i] = make([]int, n)
	}
	return tab
}

// Accumulate runs the discrete time Kalbfleisch-Prentice (Aalen-Johansen) recursion over the resolved outcomes.
// For every day d >= 1 with n(d-1) patients at risk and e(d-1) outcomes of any cause on the previous day:
//
//	CI_c(d) = CI_c(d-1) + S(d-1) * count_c(d-1) / n(d-1)
//	S(d)    = S(d-1) * (n(d-1) - e(d-1)) / n(d-1)
//
// with S(0) = 1. A patient stays at risk through the day of their own outcome. Days without anyone at risk carry all
// values forward, so an empty input gives a table of zeros with survival 1.
func Accumulate(resolutions []Resolution, cfg Config) *IncidenceTable {
	outcomes := cfg.Outcomes()
	tab := makeIncidenceTable(outcomes, cfg.MaxDays)
	outcomeIndex := map[string]int{}
	for i, o := range outcomes {
		outcomeIndex[o] = i
	}
	// count outcomes per day and patients leaving the risk set per day
	exits := make([]int, len(tab.Days))
	for _, r := range resolutions {
		day := r.EventTime
		exits[day]++
		if i, ok := outcomeIndex[r.EventType]; ok {
			tab.Events[i][day]++
		} else {
			tab.Censored[day]++
		}
	}
	// n_at_risk(day) = #patients with resolved time >= day
	atRisk := 0
	for day := len(tab.Days) - 1; day >= 0; day-- {
		atRisk += exits[day]
		tab.AtRisk[day] = atRisk
	}
	for d := 1; d < len(tab.Days); d++ {
		n := tab.AtRisk[d-1]
		if n == 0 {
			for i := range outcomes {
				tab.Incidence[i][d] = tab.Incidence[i][d-1]
			}
			tab.EventFreeSurvival[d] = tab.EventFreeSurvival[d-1]
			continue
		}
		totalEvents := 0
		for i := range outcomes {
			totalEvents += tab.Events[i][d-1]
		}
		prevSurvival := tab.EventFreeSurvival[d-1]
		for i := range outcomes {
			hazard := float64(tab.Events[i][d-1]) / float64(n)
			tab.Incidence[i][d] = tab.Incidence[i][d-1] + prevSurvival*hazard
		}
		dailySurvival := float64(n-totalEvents) / float64(n)
		tab.EventFreeSurvival[d] = prevSurvival * dailySurvival
	}
	return tab
}

// Check verifies the invariants of the estimate: probabilities within [0, 1], non-decreasing incidences,
// non-increasing survival and survival plus all incidences summing to 1 on every day.
func (tab *IncidenceTable) Check() error {
	total := make([]float64, len(tab.Outcomes)+1)
	for d := range tab.Days {
		s := tab.EventFreeSurvival[d]
		if math.IsNaN(s) || s < -Tolerance || s > 1+Tolerance {
			return fmt.Errorf("day %d: event free survival %v out of range", d, s)
		}
		if d > 0 && s > tab.EventFreeSurvival[d-1]+Tolerance {
			return fmt.Errorf("day %d: event free survival increases from %v to %v", d, tab.EventFreeSurvival[d-1], s)
		}
		total[0] = s
		for i, o := range tab.Outcomes {
			ci := tab.Incidence[i][d]
			if math.IsNaN(ci) || ci < -Tolerance || ci > 1+Tolerance {
				return fmt.Errorf("day %d: cumulative incidence of %s %v out of range", d, o, ci)
			}
			if d > 0 && ci < tab.Incidence[i][d-1]-Tolerance {
				return fmt.Errorf("day %d: cumulative incidence of %s decreases from %v to %v", d, o, tab.Incidence[i][d-1], ci)
			}
			total[i+1] = ci
		}
		if sum := floats.Sum(total); math.Abs(sum-1) > Tolerance {
			return fmt.Errorf("day %d: survival and incidences sum to %v", d, sum)
		}
	}
	return nil
}
