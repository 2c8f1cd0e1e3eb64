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
	"allograph/utils"

	"github.com/exascience/pargo/parallel"
	"gopkg.in/guregu/null.v3"
)

// Resolution is the single outcome a patient contributes to the analysis: the first qualifying event, death, or
// censoring, together with its time in days since the reference date.
type Resolution struct {
	EventType        string //a configured event name, Death, or Censored
	EventTime        int    //days since the reference date, within [0, MaxDays]
	ImputedCensoring bool   //follow up time unknown or negative, censored at the horizon
}

// validTime returns a duration when it is known and within [0, maxDays].
func validTime(t null.Int, maxDays int) (int, bool) {
	if !t.Valid || t.Int64 < 0 || t.Int64 > int64(maxDays) {
		return 0, false
	}
	return int(t.Int64), true
}

// Resolve determines the outcome of a patient. The first event wins:
//   - an event counts when its flag says Yes and its time is within [0, MaxDays];
//   - death counts when it is modeled, the status says dead, the follow up time is within [0, MaxDays] and no event
//     occurred on or before that day, so a same day tie goes to the clinical event;
//   - among events the earliest time wins, equal times resolve to the event declared first in the configuration;
//   - without any of those the patient is censored at min(follow up time, MaxDays).
func Resolve(p *Patient, cfg Config) Resolution {
	first, firstTime := -1, 0
	for k := range cfg.Events {
		if !p.Occurred[k] {
			continue
		}
		tm, ok := validTime(p.TimeToEvents[k], cfg.MaxDays)
		if !ok {
			continue
		}
		if first == -1 || tm < firstTime {
			first, firstTime = k, tm
		}
	}
	if cfg.DeathAsCompetingRisk && p.Dead {
		if tm, ok := validTime(p.TimeToFollowup, cfg.MaxDays); ok && (first == -1 || firstTime > tm) {
			return Resolution{EventType: Death, EventTime: tm}
		}
	}
	if first != -1 {
		return Resolution{EventType: cfg.Events[first].Name, EventTime: firstTime}
	}
	if !p.TimeToFollowup.Valid || p.TimeToFollowup.Int64 < 0 {
		return Resolution{EventType: Censored, EventTime: cfg.MaxDays, ImputedCensoring: true}
	}
	return Resolution{EventType: Censored, EventTime: int(utils.MinInt64(p.TimeToFollowup.Int64, int64(cfg.MaxDays)))}
}

// ResolveAll resolves every patient. Patients are independent, so the work is divided over the available cores; the
// result is indexed like the input.
func ResolveAll(patients []*Patient, cfg Config) []Resolution {
	resolutions := make([]Resolution, len(patients))
	if len(patients) == 0 {
		return resolutions
	}
	parallel.Range(0, len(patients), 0, func(low, high int) {
		for i := low; i < high; i++ {
			resolutions[i] = Resolve(patients[i], cfg)
		}
	})
	return resolutions
}
