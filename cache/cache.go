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

// Package cache keeps the results of recent analyses in memory, so that repeating an analysis on the same registry
// with the same configuration does not recompute it.
package cache

import (
	"strconv"

	"allograph/incidence"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultSize is the number of results kept when no size is given.
const DefaultSize = 16

// Results is a bounded, least recently used cache of analysis results keyed by the fingerprint of the registry and
// the configuration. Concurrent requests for the same fingerprint share one computation. Results are kept in memory
// only. A Results value is safe for concurrent use.
type Results struct {
	entries *lru.Cache[uint64, *incidence.Result]
	group   singleflight.Group
	logger  *zap.Logger
}

// New creates a cache holding at most size results, DefaultSize when size is not positive. A nil logger disables
// logging.
func New(size int, logger *zap.Logger) (*Results, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := lru.New[uint64, *incidence.Result](size)
	if err != nil {
		return nil, err
	}
	return &Results{entries: entries, logger: logger}, nil
}

// Fingerprint digests the content of a table together with an analysis configuration. Tables with the same cells and
// equal configurations have the same fingerprint; patient values cannot be recovered from it. Every record and every
// field is prefixed with its length, so no cell content can shift a boundary.
func Fingerprint(t *incidence.Table, cfg incidence.Config) uint64 {
	d := xxhash.New()
	length := func(n int) {
		_, _ = d.WriteString(strconv.Itoa(n))
		_, _ = d.WriteString(":")
	}
	write := func(fields ...string) {
		length(len(fields))
		for _, f := range fields {
			length(len(f))
			_, _ = d.WriteString(f)
		}
	}
	write(t.Columns...)
	length(len(t.Rows))
	for _, row := range t.Rows {
		write(row...)
	}
	write(cfg.ReferenceDateColumn, strconv.Itoa(cfg.MaxDays), strconv.FormatBool(cfg.DeathAsCompetingRisk),
		strconv.Itoa(int(cfg.MissingReference)), strconv.Itoa(int(cfg.DateOrder)))
	for _, e := range cfg.Events {
		write(e.Name, e.OccurrenceColumn, e.DateColumn, e.Label, e.Color)
	}
	write(cfg.Followup.StatusColumn, cfg.Followup.DateColumn, cfg.Followup.DeathValue)
	return d.Sum64()
}

// Compute returns the cached result for the table and configuration, or computes it with incidence.Compute. Errors
// are not cached.
func (r *Results) Compute(t *incidence.Table, cfg incidence.Config) (*incidence.Result, error) {
	key := Fingerprint(t, cfg)
	if result, ok := r.entries.Get(key); ok {
		r.logger.Debug("cache hit", zap.Uint64("fingerprint", key))
		return result, nil
	}
	v, err, shared := r.group.Do(strconv.FormatUint(key, 16), func() (interface{}, error) {
		if result, ok := r.entries.Get(key); ok {
			return result, nil
		}
		r.logger.Debug("cache miss", zap.Uint64("fingerprint", key))
		result, err := incidence.Compute(t, cfg, r.logger)
		if err != nil {
			return nil, err
		}
		r.entries.Add(key, result)
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		r.logger.Debug("shared computation", zap.Uint64("fingerprint", key))
	}
	return v.(*incidence.Result), nil
}

// Len returns the number of cached results.
func (r *Results) Len() int {
	return r.entries.Len()
}

// Purge removes every cached result.
func (r *Results) Purge() {
	r.entries.Purge()
}
