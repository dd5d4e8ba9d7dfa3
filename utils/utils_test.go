// elsomatic: a high-performance tool for phasing and filtering somatic variants.
// Copyright (c) 2021 imec vzw.

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
// <https://github.com/ExaScience/elprep/blob/master/LICENSE.txt>.

package utils

import (
	"testing"

	"github.com/exascience/pargo/parallel"
	"github.com/stretchr/testify/assert"
)

func TestIntern(t *testing.T) {
	results := make([]Symbol, 64)
	parallel.Range(0, len(results), 0, func(low, high int) {
		for i := low; i < high; i++ {
			results[i] = Intern("RC_CNT")
		}
	})
	for _, sym := range results {
		assert.True(t, sym == results[0])
	}
	assert.Equal(t, "RC_CNT", *results[0])
	assert.False(t, Intern("RC_JIT") == results[0])
}

func TestSmallMap(t *testing.T) {
	var m SmallMap
	tier, lps := Intern("TIER"), Intern("LPS")
	m.Set(tier, "PANEL")
	m.Set(lps, 3)
	m.Set(tier, "HOTSPOT")

	assert.Len(t, m, 2)
	assert.Equal(t, tier, m[0].Key)
	value, ok := m.Get(tier)
	assert.True(t, ok)
	assert.Equal(t, "HOTSPOT", value)

	assert.True(t, m.Delete(tier))
	assert.False(t, m.Delete(tier))
	_, ok = m.Get(tier)
	assert.False(t, ok)
	assert.Equal(t, lps, m[0].Key)
}
