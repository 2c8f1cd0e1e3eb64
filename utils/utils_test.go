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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInts(t *testing.T) {
	ints, err := ParseInts("100, 365,,30")
	require.NoError(t, err)
	assert.Equal(t, []int{100, 365, 30}, ints)
	ints, err = ParseInts("")
	require.NoError(t, err)
	assert.Empty(t, ints)
	_, err = ParseInts("100,a year")
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"relapse", "agvhd"}, SplitList(" relapse,,agvhd "))
	assert.Empty(t, SplitList(""))
}

func TestMinMax(t *testing.T) {
	assert.Equal(t, 2, MinInt(2, 3))
	assert.Equal(t, 3, MaxInt(2, 3))
	assert.Equal(t, int64(-1), MinInt64(-1, 0))
}
