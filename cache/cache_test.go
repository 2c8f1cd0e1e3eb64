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

package cache

import (
	"sync"
	"testing"

	"allograph/app"
	"allograph/incidence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestComputeCachesResults(t *testing.T) {
	results, err := New(4, zap.NewNop())
	require.NoError(t, err)
	registry := app.SyntheticRegistry(100, 1)
	cfg := app.Relapse().Config

	first, err := results.Compute(registry, cfg)
	require.NoError(t, err)
	second, err := results.Compute(registry, cfg)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, results.Len())

	// equal content in another table hits the same entry
	copied := incidence.NewTable(append([]string{}, registry.Columns...), append([][]string{}, registry.Rows...))
	third, err := results.Compute(copied, cfg)
	require.NoError(t, err)
	assert.Same(t, first, third)

	results.Purge()
	assert.Equal(t, 0, results.Len())
	fourth, err := results.Compute(registry, cfg)
	require.NoError(t, err)
	assert.NotSame(t, first, fourth)
	assert.Equal(t, first, fourth)
}

func TestEviction(t *testing.T) {
	results, err := New(2, nil)
	require.NoError(t, err)
	registry := app.SyntheticRegistry(50, 2)
	cfg := app.Relapse().Config
	computed := map[int]*incidence.Result{}
	for _, days := range []int{10, 20, 30} {
		cfg.MaxDays = days
		computed[days], err = results.Compute(registry, cfg)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, results.Len())
	cfg.MaxDays = 30
	recent, err := results.Compute(registry, cfg)
	require.NoError(t, err)
	assert.Same(t, computed[30], recent)
	cfg.MaxDays = 10
	evicted, err := results.Compute(registry, cfg)
	require.NoError(t, err)
	assert.NotSame(t, computed[10], evicted)
}

func TestDefaultSize(t *testing.T) {
	results, err := New(0, nil)
	require.NoError(t, err)
	registry := app.SyntheticRegistry(20, 3)
	cfg := app.AcuteGvHD().Config
	for days := 1; days <= DefaultSize+4; days++ {
		cfg.MaxDays = days
		_, err := results.Compute(registry, cfg)
		require.NoError(t, err)
	}
	assert.Equal(t, DefaultSize, results.Len())
}

func TestErrorsAreNotCached(t *testing.T) {
	results, err := New(4, nil)
	require.NoError(t, err)
	registry := incidence.NewTable([]string{app.TreatmentDateColumn}, nil)
	_, err = results.Compute(registry, app.Relapse().Config)
	var cfgErr *incidence.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, 0, results.Len())
}

func TestFingerprint(t *testing.T) {
	registry := app.SyntheticRegistry(30, 4)
	cfg := app.Relapse().Config
	fp := Fingerprint(registry, cfg)
	assert.Equal(t, fp, Fingerprint(app.SyntheticRegistry(30, 4), app.Relapse().Config))

	changed := app.SyntheticRegistry(30, 4)
	changed.Rows[7][2] = "1999-01-01"
	assert.NotEqual(t, fp, Fingerprint(changed, cfg))

	other := cfg
	other.DeathAsCompetingRisk = false
	assert.NotEqual(t, fp, Fingerprint(registry, other))
	other = app.Relapse().Config
	other.Events[0].Color = "red"
	assert.NotEqual(t, fp, Fingerprint(registry, other))
	other = app.Relapse().Config
	other.MissingReference = incidence.RejectMissingReference
	assert.NotEqual(t, fp, Fingerprint(registry, other))
	other = app.Relapse().Config
	other.DateOrder = incidence.DayFirst
	assert.NotEqual(t, fp, Fingerprint(registry, other))

	// cells do not run into each other
	a := incidence.NewTable([]string{"x", "y"}, [][]string{{"ab", "c"}})
	b := incidence.NewTable([]string{"x", "y"}, [][]string{{"a", "bc"}})
	assert.NotEqual(t, Fingerprint(a, cfg), Fingerprint(b, cfg))

	// separator characters inside cells do not move cell or row boundaries
	c := incidence.NewTable([]string{"x", "y"}, [][]string{{"a\x1fb", "c"}})
	d := incidence.NewTable([]string{"x", "y"}, [][]string{{"a", "b\x1fc"}})
	assert.NotEqual(t, Fingerprint(c, cfg), Fingerprint(d, cfg))
	e := incidence.NewTable([]string{"x", "y"}, [][]string{{"a", "b\x1e"}, {"c"}})
	f := incidence.NewTable([]string{"x", "y"}, [][]string{{"a", "b"}, {"\x1ec"}})
	assert.NotEqual(t, Fingerprint(e, cfg), Fingerprint(f, cfg))
	g := incidence.NewTable([]string{"x", "y"}, [][]string{{"a", "b"}, {"c"}})
	h := incidence.NewTable([]string{"x", "y"}, [][]string{{"a", "b", "c"}})
	assert.NotEqual(t, Fingerprint(g, cfg), Fingerprint(h, cfg))
}

func TestConcurrentComputeSharesResult(t *testing.T) {
	results, err := New(4, nil)
	require.NoError(t, err)
	registry := app.SyntheticRegistry(2000, 5)
	cfg := app.ChronicGvHD().Config
	const n = 16
	computed := make([]*incidence.Result, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			computed[i], _ = results.Compute(registry, cfg)
		}(i)
	}
	wg.Wait()
	require.NotNil(t, computed[0])
	for i := 1; i < n; i++ {
		assert.Same(t, computed[0], computed[i])
	}
	assert.Equal(t, 1, results.Len())
}
