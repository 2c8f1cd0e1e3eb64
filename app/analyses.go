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
	"fmt"
	"os"
	"sort"
	"strings"

	"allograph/incidence"

	"gopkg.in/yaml.v3"
)

// Registry columns shared by the analyses of the transplant registry.
const (
	TreatmentDateColumn  = "Treatment Date"
	YearColumn           = "Year"
	StatusColumn         = "Status Last Follow Up"
	FollowupDateColumn   = "Date Of Last Follow Up"
	DeadStatus           = "Dead"
	RelapseColumn        = "First Relapse"
	RelapseDateColumn    = "First Relapse Date"
	AgvhdColumn          = "First Agvhd Occurrence"
	AgvhdDateColumn      = "First Agvhd Occurrence Date"
	CgvhdColumn          = "First Cgvhd Occurrence"
	CgvhdDateColumn      = "First Cgvhd Occurrence Date"
	defaultAnalysisTitle = "Competing risks analysis"
)

// Analysis is a named competing risks analysis.
type Analysis struct {
	Name   string //used in output file names
	Title  string //figure title
	Config incidence.Config
}

var registryFollowup = incidence.FollowupConfig{
	StatusColumn: StatusColumn,
	DateColumn:   FollowupDateColumn,
	DeathValue:   DeadStatus,
}

// Relapse is relapse against death over one year.
func Relapse() Analysis {
	return Analysis{
		Name:  "relapse",
		Title: "Competing risks: relapse vs death (365 days)",
		Config: incidence.Config{
			ReferenceDateColumn: TreatmentDateColumn,
			Events: []incidence.EventConfig{{
				Name:             "Relapse",
				OccurrenceColumn: RelapseColumn,
				DateColumn:       RelapseDateColumn,
				Label:            "Relapse",
				Color:            "orange",
			}},
			Followup:             registryFollowup,
			MaxDays:              365,
			DeathAsCompetingRisk: true,
		},
	}
}

// AcuteGvHD is acute graft versus host disease against death over the first 100 days.
func AcuteGvHD() Analysis {
	return Analysis{
		Name:  "agvhd",
		Title: "Competing risks: acute GvHD vs death (100 days)",
		Config: incidence.Config{
			ReferenceDateColumn: TreatmentDateColumn,
			Events: []incidence.EventConfig{{
				Name:             "aGvHD",
				OccurrenceColumn: AgvhdColumn,
				DateColumn:       AgvhdDateColumn,
				Label:            "Acute GvHD",
				Color:            "#e74c3c",
			}},
			Followup:             registryFollowup,
			MaxDays:              100,
			DeathAsCompetingRisk: true,
		},
	}
}

// ChronicGvHD is chronic graft versus host disease against death over one year.
func ChronicGvHD() Analysis {
	return Analysis{
		Name:  "cgvhd",
		Title: "Competing risks: chronic GvHD vs death (365 days)",
		Config: incidence.Config{
			ReferenceDateColumn: TreatmentDateColumn,
			Events: []incidence.EventConfig{{
				Name:             "cGvHD",
				OccurrenceColumn: CgvhdColumn,
				DateColumn:       CgvhdDateColumn,
				Label:            "Chronic GvHD",
				Color:            "#9b59b6",
			}},
			Followup:             registryFollowup,
			MaxDays:              365,
			DeathAsCompetingRisk: true,
		},
	}
}

var presets = map[string]func() Analysis{
	"relapse": Relapse,
	"agvhd":   AcuteGvHD,
	"cgvhd":   ChronicGvHD,
}

// PresetNames lists the names accepted by Preset, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset returns a predefined analysis by name: relapse, agvhd or cgvhd.
func Preset(name string) (Analysis, error) {
	if preset, ok := presets[strings.ToLower(strings.TrimSpace(name))]; ok {
		return preset(), nil
	}
	return Analysis{}, fmt.Errorf("unknown analysis preset %q, expected one of %s", name,
		strings.Join(PresetNames(), ", "))
}

// analysisEntry is the YAML representation of an analysis.
type analysisEntry struct {
	Name                 string                   `yaml:"name"`
	Title                string                   `yaml:"title,omitempty"`
	Reference            string                   `yaml:"reference"`
	MaxDays              int                      `yaml:"maxDays"`
	DeathAsCompetingRisk *bool                    `yaml:"deathAsCompetingRisk,omitempty"` // defaults to true
	MissingReference     string                   `yaml:"missingReference,omitempty"`     // drop (default) or reject
	DateOrder            string                   `yaml:"dateOrder,omitempty"`            // auto (default), dayFirst or monthFirst
	Events               []incidence.EventConfig  `yaml:"events"`
	Followup             incidence.FollowupConfig `yaml:"followup"`
}

type analysesFile struct {
	Analyses []analysisEntry `yaml:"analyses"`
}

func (entry analysisEntry) analysis() (Analysis, error) {
	if strings.TrimSpace(entry.Name) == "" {
		return Analysis{}, fmt.Errorf("analysis without a name")
	}
	cfg := incidence.Config{
		ReferenceDateColumn:  entry.Reference,
		Events:               entry.Events,
		Followup:             entry.Followup,
		MaxDays:              entry.MaxDays,
		DeathAsCompetingRisk: entry.DeathAsCompetingRisk == nil || *entry.DeathAsCompetingRisk,
	}
	switch strings.ToLower(entry.MissingReference) {
	case "", "drop":
		cfg.MissingReference = incidence.DropMissingReference
	case "reject":
		cfg.MissingReference = incidence.RejectMissingReference
	default:
		return Analysis{}, fmt.Errorf("analysis %s: unknown missing reference policy %q", entry.Name, entry.MissingReference)
	}
	order, err := incidence.ParseDateOrder(entry.DateOrder)
	if err != nil {
		return Analysis{}, fmt.Errorf("analysis %s: %w", entry.Name, err)
	}
	cfg.DateOrder = order
	if err := cfg.Validate(); err != nil {
		return Analysis{}, fmt.Errorf("analysis %s: %w", entry.Name, err)
	}
	title := entry.Title
	if title == "" {
		title = defaultAnalysisTitle
	}
	return Analysis{Name: entry.Name, Title: title, Config: cfg}, nil
}

// ParseAnalyses decodes YAML analysis definitions. Every analysis is validated; names must be unique.
func ParseAnalyses(data []byte) ([]Analysis, error) {
	file := analysesFile{}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("cannot decode analyses: %w", err)
	}
	if len(file.Analyses) == 0 {
		return nil, fmt.Errorf("no analyses defined")
	}
	analyses := make([]Analysis, 0, len(file.Analyses))
	names := map[string]bool{}
	for _, entry := range file.Analyses {
		a, err := entry.analysis()
		if err != nil {
			return nil, err
		}
		if names[a.Name] {
			return nil, fmt.Errorf("duplicate analysis name %q", a.Name)
		}
		names[a.Name] = true
		analyses = append(analyses, a)
	}
	return analyses, nil
}

// LoadAnalyses reads YAML analysis definitions from a file.
func LoadAnalyses(path string) ([]Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read analyses: %w", err)
	}
	return ParseAnalyses(data)
}
