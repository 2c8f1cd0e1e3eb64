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

package chart

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"allograph/app"
	"allograph/incidence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColor(t *testing.T) {
	cases := map[string]color.NRGBA{
		"#e74c3c": {R: 0xe7, G: 0x4c, B: 0x3c, A: 0xff},
		"#FFF":    {R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		"orange":  {R: 0xff, G: 0xa5, B: 0x00, A: 0xff},
		" Red ":   {R: 0xff, G: 0x00, B: 0x00, A: 0xff},
	}
	for s, expected := range cases {
		c, err := ParseColor(s)
		require.NoError(t, err, s)
		assert.Equal(t, expected, c, s)
	}
	for _, s := range []string{"#12345", "#gggggg", "blurple", ""} {
		_, err := ParseColor(s)
		assert.Error(t, err, s)
	}
}

func TestOutcomeStyles(t *testing.T) {
	a := app.Relapse()
	result, err := incidence.Compute(app.SyntheticRegistry(50, 1), a.Config, nil)
	require.NoError(t, err)
	labels, colors := outcomeStyles(result.Incidence, a.Config)
	assert.Equal(t, []string{"Relapse", incidence.Death}, labels)
	orange, _ := ParseColor("orange")
	palette, _ := ParseColor(DefaultPalette[1])
	assert.Equal(t, []color.NRGBA{orange, palette}, colors)
}

func TestStackedIncidence(t *testing.T) {
	a := app.AcuteGvHD()
	result, err := incidence.Compute(app.SyntheticRegistry(300, 2), a.Config, nil)
	require.NoError(t, err)
	p, err := StackedIncidence(result.Incidence, a.Config, Options{Title: a.Title, InitialDisplayDays: 60})
	require.NoError(t, err)
	assert.Equal(t, a.Title, p.Title.Text)
	assert.Equal(t, 60.0, p.X.Max)
	assert.Equal(t, 105.0, p.Y.Max)

	p, err = StackedIncidence(result.Incidence, a.Config, Options{InitialDisplayDays: 1000})
	require.NoError(t, err)
	assert.Equal(t, float64(a.Config.MaxDays), p.X.Max)

	path := filepath.Join(t.TempDir(), "agvhd-incidence.png")
	require.NoError(t, Save(p, path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestStackedIncidenceEmptyTable(t *testing.T) {
	_, err := StackedIncidence(&incidence.IncidenceTable{}, incidence.Config{}, Options{})
	assert.Error(t, err)
}
