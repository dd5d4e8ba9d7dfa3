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

package variants

import (
	"errors"
	"fmt"
)

// Tier is a priority classification of a variant site that controls
// how aggressively it is filtered.
type Tier uint8

// The different tiers, from most to least trusted.
const (
	Hotspot Tier = iota
	Panel
	HighConfidence
	LowConfidence
)

var tierNames = [...]string{
	Hotspot:        "HOTSPOT",
	Panel:          "PANEL",
	HighConfidence: "HIGH_CONFIDENCE",
	LowConfidence:  "LOW_CONFIDENCE",
}

func (t Tier) String() string {
	if int(t) < len(tierNames) {
		return tierNames[t]
	}
	return fmt.Sprintf("Tier(%d)", uint8(t))
}

// ParseTier returns the tier with the given name.
func ParseTier(name string) (Tier, error) {
	for t, n := range tierNames {
		if n == name {
			return Tier(t), nil
		}
	}
	return 0, fmt.Errorf("unknown tier %v", name)
}

type (
	// RepeatContext describes the repeat underlying a candidate variant.
	RepeatContext struct {
		// the repeat unit bases at the site
		Unit string
		// the number of times the unit is repeated
		Count int
		// all repeat units overlapping a small window around the site
		AllUnits []string
	}

	// ReadSupport tallies the reads supporting a variant's read context.
	ReadSupport struct {
		Full, Partial, Core, Realigned, Reference, Total int
	}

	// SupportCounter holds the evidence for a variant in one sample.
	SupportCounter struct {
		Sample string
		ReadSupport
		// reads that show the repeat shortened or lengthened by one unit
		Shortened, Lengthened int
		// nil when the site is not repeat-associated
		Repeat *RepeatContext

		// results of the jitter noise model
		JitterQualBoost                  float64
		FilterOnNoise, HardFilterOnNoise bool
	}

	// Variant is a candidate variant call.
	Variant struct {
		Chromosome    string
		Position      int32 // 1-based
		Ref, Alt      string
		Tier          Tier
		Filters       FilterSet
		LocalPhaseSet int // 0 if unassigned
		Normal, Tumor []*SupportCounter
	}
)

// IsTrinucleotide determines whether any of the repeat units around
// the site is three bases long.
func (r *RepeatContext) IsTrinucleotide() bool {
	if len(r.AllUnits) == 0 {
		return len(r.Unit) == 3
	}
	for _, unit := range r.AllUnits {
		if len(unit) == 3 {
			return true
		}
	}
	return false
}

// NewSupportCounter creates a counter for the given sample with a
// neutral jitter quality boost.
func NewSupportCounter(sample string) *SupportCounter {
	return &SupportCounter{Sample: sample, JitterQualBoost: 1}
}

// AltSupport returns the number of reads that support the alt allele.
func (c *SupportCounter) AltSupport() int {
	return c.Full + c.Partial + c.Realigned
}

// ErrNegativeCount is returned by Validate for counts below zero.
var ErrNegativeCount = errors.New("negative support count")

// Validate checks the invariants of the counts.
func (c *SupportCounter) Validate() error {
	if c.Full < 0 || c.Partial < 0 || c.Core < 0 || c.Realigned < 0 ||
		c.Reference < 0 || c.Total < 0 || c.Shortened < 0 || c.Lengthened < 0 {
		return fmt.Errorf("%w for sample %v", ErrNegativeCount, c.Sample)
	}
	if c.Repeat != nil && c.Repeat.Count < 0 {
		return fmt.Errorf("negative repeat count for sample %v", c.Sample)
	}
	return nil
}

// Copy returns a deep copy of the counter.
func (c *SupportCounter) Copy() *SupportCounter {
	result := *c
	if c.Repeat != nil {
		repeat := *c.Repeat
		repeat.AllUnits = append([]string(nil), c.Repeat.AllUnits...)
		result.Repeat = &repeat
	}
	return &result
}

// End returns the last reference position covered by the variant.
func (v *Variant) End() int32 {
	return v.Position + int32(len(v.Ref)) - 1
}

// IsIndel determines whether ref and alt differ in length.
func (v *Variant) IsIndel() bool {
	return len(v.Ref) != len(v.Alt)
}

// IsMNV determines whether the variant substitutes more than one base.
func (v *Variant) IsMNV() bool {
	return len(v.Ref) == len(v.Alt) && len(v.Ref) > 1
}

// Passing determines whether no filter is attached to the variant.
func (v *Variant) Passing() bool {
	return v.Filters.Empty()
}

// Validate checks the invariants of the variant and its counters.
func (v *Variant) Validate() error {
	if v.Position < 1 {
		return fmt.Errorf("invalid position %v for %v", v.Position, v)
	}
	if v.Ref == "" || v.Alt == "" {
		return fmt.Errorf("missing allele for %v", v)
	}
	for _, counters := range [2][]*SupportCounter{v.Normal, v.Tumor} {
		for _, c := range counters {
			if err := c.Validate(); err != nil {
				return fmt.Errorf("%w, in variant %v", err, v)
			}
		}
	}
	return nil
}

// Copy returns a deep copy of the variant.
func (v *Variant) Copy() *Variant {
	result := *v
	result.Filters = v.Filters.Clone()
	result.Normal = copyCounters(v.Normal)
	result.Tumor = copyCounters(v.Tumor)
	return &result
}

func copyCounters(counters []*SupportCounter) []*SupportCounter {
	if counters == nil {
		return nil
	}
	result := make([]*SupportCounter, len(counters))
	for i, c := range counters {
		result[i] = c.Copy()
	}
	return result
}

func (v *Variant) String() string {
	return fmt.Sprintf("%v:%v %v>%v", v.Chromosome, v.Position, v.Ref, v.Alt)
}
