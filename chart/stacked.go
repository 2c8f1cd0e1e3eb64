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

// Package chart draws the cumulative incidence estimates of an analysis.
package chart

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"allograph/incidence"

	"golang.org/x/image/colornames"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// DefaultPalette colors the outcomes that have no color of their own, in outcome order.
var DefaultPalette = []string{"#e74c3c", "#3498db", "#2ecc71", "#f39c12", "#9b59b6", "#1abc9c"}

// EventFreeLabel is the legend entry of the band above all outcomes.
const EventFreeLabel = "Event-free"

const (
	outcomeOpacity   = 0.7
	eventFreeColor   = "lightgray"
	eventFreeOpacity = 0.3
)

// Default figure size.
const (
	DefaultWidth  = 10 * vg.Inch
	DefaultHeight = 6 * vg.Inch
)

// Options control the presentation of a figure.
type Options struct {
	Title              string
	InitialDisplayDays int //last day shown, the whole horizon when 0 or beyond it
}

// ParseColor reads a color given as #rrggbb, #rgb or a CSS color name.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 {
			return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
		}
		return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
	}
	if c, ok := colornames.Map[s]; ok {
		return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 0xff}, nil
	}
	return color.NRGBA{}, fmt.Errorf("unknown color %q", s)
}

// overWhite returns the opaque color of c painted with the given opacity on a white background. Bands are filled down
// to the axis and overlap, so translucent fills would mix.
func overWhite(c color.NRGBA, opacity float64) color.NRGBA {
	blend := func(v uint8) uint8 {
		return uint8(float64(v)*opacity + 255*(1-opacity) + 0.5)
	}
	return color.NRGBA{R: blend(c.R), G: blend(c.G), B: blend(c.B), A: 0xff}
}

// outcomeStyles returns the legend label and color of each outcome of the table: configured events use their label
// and color, death and events without a valid color take the palette color of their position.
func outcomeStyles(tab *incidence.IncidenceTable, cfg incidence.Config) ([]string, []color.NRGBA) {
	labels := make([]string, len(tab.Outcomes))
	colors := make([]color.NRGBA, len(tab.Outcomes))
	events := map[string]incidence.EventConfig{}
	for _, e := range cfg.Events {
		events[e.Name] = e
	}
	for i, o := range tab.Outcomes {
		labels[i] = o
		c, _ := ParseColor(DefaultPalette[i%len(DefaultPalette)])
		if e, ok := events[o]; ok {
			labels[i] = e.DisplayLabel()
			if e.Color != "" {
				if ec, err := ParseColor(e.Color); err == nil {
					c = ec
				}
			}
		}
		colors[i] = c
	}
	return labels, colors
}

// StackedIncidence draws the cumulative incidences of a table as stacked areas in percent, one band per outcome in
// outcome order, topped by an event-free band that reaches 100%.
func StackedIncidence(tab *incidence.IncidenceTable, cfg incidence.Config, opts Options) (*plot.Plot, error) {
	nofDays := tab.NofDays()
	if nofDays == 0 {
		return nil, fmt.Errorf("empty incidence table")
	}
	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "Days after transplant"
	p.Y.Label.Text = "Cumulative incidence (%)"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	labels, colors := outcomeStyles(tab, cfg)
	// upper edge of every band, the event-free band last
	bands := make([]plotter.XYs, len(tab.Outcomes)+1)
	for i := range bands {
		bands[i] = make(plotter.XYs, nofDays)
	}
	for d := 0; d < nofDays; d++ {
		total := 0.0
		for i := range tab.Outcomes {
			total += 100 * tab.Incidence[i][d]
			bands[i][d].X, bands[i][d].Y = float64(tab.Days[d]), total
		}
		top := len(tab.Outcomes)
		bands[top][d].X, bands[top][d].Y = float64(tab.Days[d]), total+100*tab.EventFreeSurvival[d]
	}
	lines := make([]*plotter.Line, len(bands))
	for i, band := range bands {
		line, err := plotter.NewLine(band)
		if err != nil {
			return nil, err
		}
		if i < len(tab.Outcomes) {
			line.LineStyle.Color = colors[i]
			line.LineStyle.Width = vg.Points(2)
			line.FillColor = overWhite(colors[i], outcomeOpacity)
		} else {
			gray, _ := ParseColor(eventFreeColor)
			line.LineStyle.Color = gray
			line.LineStyle.Width = vg.Points(1)
			line.FillColor = overWhite(gray, eventFreeOpacity)
		}
		lines[i] = line
	}
	// every band is filled down to the axis, so the higher bands go first
	for i := len(lines) - 1; i >= 0; i-- {
		p.Add(lines[i])
	}
	// Add widens the axes to the data, so the limits go last
	p.Y.Min, p.Y.Max = 0, 105
	p.X.Min, p.X.Max = 0, float64(tab.Days[nofDays-1])
	if opts.InitialDisplayDays > 0 && opts.InitialDisplayDays < tab.Days[nofDays-1] {
		p.X.Max = float64(opts.InitialDisplayDays)
	}
	for i, label := range labels {
		p.Legend.Add(label, lines[i])
	}
	p.Legend.Add(EventFreeLabel, lines[len(lines)-1])
	return p, nil
}

// Save writes a figure to a file. The format follows the file extension, e.g. .png, .svg or .pdf.
func Save(p *plot.Plot, path string) error {
	return p.Save(DefaultWidth, DefaultHeight, path)
}
