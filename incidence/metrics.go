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
	"math"
	"sort"

	"allograph/utils"

	"gonum.org/v1/gonum/stat"
)

// Collecting metrics for the results of an analysis

// OutcomeSummary describes one outcome of an analysis.
type OutcomeSummary struct {
	Name      string
	Patients  int       //patients resolved to the outcome
	Landmarks []float64 //cumulative incidence at each landmark day
	Final     float64   //cumulative incidence at the horizon
}

// Summary collects the figures usually reported for a competing risks analysis.
type Summary struct {
	Patients               int
	MaxDays                int
	Landmarks              []int //landmark days, clamped to the horizon
	Outcomes               []OutcomeSummary
	LandmarkSurvival       []float64 //event free survival at each landmark day
	FinalSurvival          float64
	Censored               int
	MedianCensoredFollowup float64 //median time to censoring in days, NaN without observed censoring times
}

// Summarize computes the incidence of every outcome at the given landmark days (e.g. 100 and 365 days), the event
// free survival at the horizon, the number of patients per outcome and the median follow up time of censored
// patients. Patients censored at the horizon for lack of a follow up time count as censored but have no observed
// follow up, so they are left out of the median.
func Summarize(result *Result, landmarks ...int) *Summary {
	tab := result.Incidence
	last := tab.NofDays() - 1
	summary := &Summary{
		Patients:         len(result.Resolved.Patients),
		MaxDays:          last,
		Landmarks:        make([]int, len(landmarks)),
		Outcomes:         make([]OutcomeSummary, len(tab.Outcomes)),
		LandmarkSurvival: make([]float64, len(landmarks)),
		FinalSurvival:    tab.EventFreeSurvival[last],
	}
	for j, day := range landmarks {
		day = utils.MaxInt(0, utils.MinInt(day, last))
		summary.Landmarks[j] = day
		summary.LandmarkSurvival[j] = tab.EventFreeSurvival[day]
	}
	for i, o := range tab.Outcomes {
		outcome := OutcomeSummary{
			Name:      o,
			Landmarks: make([]float64, len(landmarks)),
			Final:     tab.Incidence[i][last],
		}
		for j, day := range summary.Landmarks {
			outcome.Landmarks[j] = tab.Incidence[i][day]
		}
		for _, n := range tab.Events[i] {
			outcome.Patients += n
		}
		summary.Outcomes[i] = outcome
	}
	censoredTimes := []float64{}
	for _, p := range result.Resolved.Patients {
		if p.Resolution.EventType != Censored {
			continue
		}
		summary.Censored++
		if !p.Resolution.ImputedCensoring {
			censoredTimes = append(censoredTimes, float64(p.Resolution.EventTime))
		}
	}
	summary.MedianCensoredFollowup = math.NaN()
	if len(censoredTimes) > 0 {
		sort.Float64s(censoredTimes)
		summary.MedianCensoredFollowup = stat.Quantile(0.5, stat.Empirical, censoredTimes, nil)
	}
	return summary
}
