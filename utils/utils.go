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

package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// MinInt returns the smallest of two ints.
func MinInt(x, y int) int {
	if x < y {
		return x
	}
	return y
}

// MaxInt returns the largest of two ints.
func MaxInt(x, y int) int {
	if x > y {
		return x
	}
	return y
}

// MinInt64 returns the smallest of two int64s.
func MinInt64(x, y int64) int64 {
	if x < y {
		return x
	}
	return y
}

// ParseInts parses a comma separated list of integers, e.g. "100,365". Empty entries are skipped.
func ParseInts(s string) ([]int, error) {
	ints := []int{}
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q in list %q: %w", field, s, err)
		}
		ints = append(ints, n)
	}
	return ints, nil
}

// SplitList splits a comma separated list of names, trimming white space and skipping empty entries.
func SplitList(s string) []string {
	names := []string{}
	for _, field := range strings.Split(s, ",") {
		if field = strings.TrimSpace(field); field != "" {
			names = append(names, field)
		}
	}
	return names
}
