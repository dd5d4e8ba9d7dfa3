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

package phase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exascience/elsomatic/variants"
)

type collector struct {
	variants []*variants.Variant
}

func (c *collector) Accept(v *variants.Variant) {
	c.variants = append(c.variants, v)
}

func (c *collector) positions() (result []int32) {
	for _, v := range c.variants {
		result = append(result, v.Position)
	}
	return result
}

func variant(pos int32, ref, alt string, lps int) *variants.Variant {
	return &variants.Variant{Chromosome: "1", Position: pos, Ref: ref, Alt: alt, LocalPhaseSet: lps}
}

func TestDedupMnvContainment(t *testing.T) {
	var out collector
	dedup := NewDedupMnv(10, &out)
	longer := variant(99, "CGCA", "GATC", 1)
	shorter := variant(100, "GC", "AT", 1)
	dedup.Accept(longer)
	dedup.Accept(shorter)
	dedup.Flush()

	require.Len(t, out.variants, 2)
	assert.True(t, shorter.Filters.Has(variants.Dedup))
	assert.True(t, longer.Passing())
}

func TestDedupMnvNonMatch(t *testing.T) {
	var out collector
	dedup := NewDedupMnv(10, &out)
	longer := variant(99, "CGCA", "GACC", 1)
	shorter := variant(100, "GC", "AT", 1)
	dedup.Accept(longer)
	dedup.Accept(shorter)
	dedup.Flush()

	assert.True(t, shorter.Passing())
	assert.True(t, longer.Passing())
}

func TestDedupMnvRequiresSamePhaseSet(t *testing.T) {
	var out collector
	dedup := NewDedupMnv(10, &out)
	longer := variant(99, "CGCA", "GATC", 1)
	shorter := variant(100, "GC", "AT", 2)
	unphased := variant(100, "GC", "AT", 0)
	dedup.Accept(longer)
	dedup.Accept(shorter)
	dedup.Accept(unphased)
	dedup.Flush()

	assert.True(t, shorter.Passing())
	assert.True(t, unphased.Passing())
}

func TestDedupMnvShorterArrivesFirst(t *testing.T) {
	var out collector
	dedup := NewDedupMnv(10, &out)
	snv := variant(100, "C", "T", 3)
	mnv := variant(100, "CG", "TA", 3)
	dedup.Accept(snv)
	dedup.Accept(mnv)
	dedup.Flush()

	assert.True(t, snv.Filters.Has(variants.Dedup))
	assert.True(t, mnv.Passing())
}

func TestDedupWindowEviction(t *testing.T) {
	var out collector
	dedup := NewDedupMnv(10, &out)
	dedup.Accept(variant(982, "A", "C", 0))
	dedup.Accept(variant(989, "A", "C", 0))
	dedup.Accept(variant(990, "A", "C", 0))
	dedup.Accept(variant(991, "A", "C", 0))
	assert.Empty(t, out.variants)

	dedup.Accept(variant(1000, "A", "C", 0))
	assert.Equal(t, []int32{982, 989}, out.positions())

	dedup.Flush()
	assert.Equal(t, []int32{982, 989, 990, 991, 1000}, out.positions())
}

func TestDedupEvictsOtherChromosome(t *testing.T) {
	var out collector
	dedup := NewDedupIndel(10, &out)
	dedup.Accept(variant(1000, "A", "AC", 0))
	next := variant(5, "A", "AC", 0)
	next.Chromosome = "2"
	dedup.Accept(next)
	assert.Equal(t, []int32{1000}, out.positions())
}

func TestDedupIndel(t *testing.T) {
	var out collector
	dedup := NewDedupIndel(10, &out)
	anchoredLeft := variant(99, "GA", "GAT", 4)
	minimal := variant(100, "A", "AT", 4)
	other := variant(100, "A", "AG", 4)
	dedup.Accept(anchoredLeft)
	dedup.Accept(minimal)
	dedup.Accept(other)
	dedup.Flush()

	assert.True(t, anchoredLeft.Filters.Has(variants.Dedup))
	assert.True(t, minimal.Passing())
	assert.True(t, other.Passing())
	assert.Equal(t, []int32{99, 100, 100}, out.positions())
}

func TestDedupIndelDeletions(t *testing.T) {
	var out collector
	dedup := NewDedupIndel(10, &out)
	first := variant(100, "AT", "A", 1)
	second := variant(100, "AT", "A", 1)
	dedup.Accept(first)
	dedup.Accept(second)
	dedup.Flush()

	assert.True(t, first.Passing())
	assert.True(t, second.Filters.Has(variants.Dedup))
}

func TestLocalPhaseAssigner(t *testing.T) {
	var out collector
	lps := NewLocalPhaseAssigner(10, &out)
	v1 := variant(100, "A", "C", 0)
	filtered := variant(102, "A", "C", 0)
	filtered.Filters.Add(variants.Jitter)
	v2 := variant(105, "A", "C", 0)
	v3 := variant(300, "A", "C", 0)
	v4 := variant(320, "A", "C", 0)
	lps.Accept(v1)
	lps.Accept(filtered)
	lps.Accept(v2)
	assert.Empty(t, out.variants)
	lps.Accept(v3)
	assert.Equal(t, []int32{100, 102, 105}, out.positions())
	lps.Accept(v4)
	lps.Flush()

	assert.Equal(t, []int32{100, 102, 105, 300, 320}, out.positions())
	assert.Equal(t, 1, v1.LocalPhaseSet)
	assert.Equal(t, 1, v2.LocalPhaseSet)
	assert.Equal(t, 0, filtered.LocalPhaseSet)
	assert.Equal(t, 2, v3.LocalPhaseSet)
	assert.Equal(t, 2, v4.LocalPhaseSet)
	assert.Equal(t, 2, lps.PhaseSets())
}

func TestLocalPhaseAssignerSingletons(t *testing.T) {
	var out collector
	lps := NewLocalPhaseAssigner(10, &out)
	v1 := variant(100, "A", "C", 0)
	v2 := variant(121, "A", "C", 0)
	v3 := variant(121, "A", "C", 0)
	v3.Chromosome = "2"
	lps.Accept(v1)
	lps.Accept(v2)
	lps.Accept(v3)
	lps.Flush()

	assert.Equal(t, 0, v1.LocalPhaseSet)
	assert.Equal(t, 0, v2.LocalPhaseSet)
	assert.Equal(t, 0, v3.LocalPhaseSet)
	assert.Len(t, out.variants, 3)
}

func TestLocalPhaseAssignerLongVariantExtendsWindow(t *testing.T) {
	var out collector
	lps := NewLocalPhaseAssigner(5, &out)
	deletion := variant(100, "ACGTACGTACGTACGTACGT", "A", 0)
	v := variant(125, "A", "C", 0)
	lps.Accept(deletion)
	lps.Accept(v)
	lps.Flush()

	assert.Equal(t, 1, deletion.LocalPhaseSet)
	assert.Equal(t, 1, v.LocalPhaseSet)
}

func TestPhaseChain(t *testing.T) {
	var out collector
	p := New(DefaultConfig(), &out)
	mnv := variant(100, "ACGTAC", "TCCCCG", 0)
	snv := variant(105, "C", "G", 0)
	far := variant(300, "A", "C", 0)
	p.Accept(mnv)
	p.Accept(snv)
	p.Accept(far)
	p.Flush()

	assert.Equal(t, []int32{100, 105, 300}, out.positions())
	assert.Equal(t, mnv.LocalPhaseSet, snv.LocalPhaseSet)
	assert.NotZero(t, mnv.LocalPhaseSet)
	assert.NotEqual(t, mnv.LocalPhaseSet, far.LocalPhaseSet)
	assert.True(t, mnv.Passing())
	assert.True(t, snv.Filters.Has(variants.Dedup))
	assert.Equal(t, 1, p.PhaseSets())
}

func TestPassingPhaseSet(t *testing.T) {
	var out collector
	p := New(DefaultConfig(), &out)
	p.Accept(variant(100, "AC", "TG", 0))
	p.Accept(variant(100, "A", "T", 0))
	p.Accept(variant(300, "A", "C", 0))
	assert.False(t, p.PassingPhaseSet(1))
	p.Flush()

	require.Len(t, out.variants, 3)
	assert.True(t, out.variants[1].Filters.Has(variants.Dedup))
	assert.True(t, p.PassingPhaseSet(1))
	assert.False(t, p.PassingPhaseSet(0))
	assert.False(t, p.PassingPhaseSet(2))
}
