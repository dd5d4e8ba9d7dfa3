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
	"fmt"

	"github.com/willf/bitset"
)

// Filter is a reason for a variant not to pass. The set of filters
// is closed: every filter that can be attached to a variant is listed
// below.
type Filter uint

// The filters that can be attached to a variant.
const (
	Dedup Filter = iota
	Jitter
	HardJitter
	MinTumorQual
	MinTumorVaf
	MinGermlineDepth
	MinGermlineVaf
	MaxGermlineVaf
	MaxGermlineRelRawBaseQual
	MaxGermlineAltSupport
	nFilters
)

var filterNames = [nFilters]string{
	Dedup:                     "dedup",
	Jitter:                    "jitter",
	HardJitter:                "hard_jitter",
	MinTumorQual:              "min_tumor_qual",
	MinTumorVaf:               "min_tumor_vaf",
	MinGermlineDepth:          "min_germline_depth",
	MinGermlineVaf:            "min_germline_vaf",
	MaxGermlineVaf:            "max_germline_vaf",
	MaxGermlineRelRawBaseQual: "max_germline_rel_raw_base_qual",
	MaxGermlineAltSupport:     "max_germline_alt_support",
}

var filterDescriptions = [nFilters]string{
	Dedup:                     "Variant was removed as duplicate",
	Jitter:                    "Full support is explainable as repeat jitter",
	HardJitter:                "Full support is explainable as repeat jitter with high probability",
	MinTumorQual:              "Insufficient tumor quality",
	MinTumorVaf:               "Insufficient tumor VAF",
	MinGermlineDepth:          "Insufficient germline depth",
	MinGermlineVaf:            "Insufficient germline VAF",
	MaxGermlineVaf:            "Excess germline VAF",
	MaxGermlineRelRawBaseQual: "Excess germline relative quality",
	MaxGermlineAltSupport:     "Excess germline alt support",
}

func (f Filter) String() string {
	if f < nFilters {
		return filterNames[f]
	}
	return fmt.Sprintf("Filter(%d)", uint(f))
}

// Description returns the text used for the filter in VCF headers.
func (f Filter) Description() string {
	if f < nFilters {
		return filterDescriptions[f]
	}
	return ""
}

// AllFilters returns the complete filter vocabulary in declaration order.
func AllFilters() []Filter {
	result := make([]Filter, nFilters)
	for f := range result {
		result[f] = Filter(f)
	}
	return result
}

// ParseFilter returns the filter with the given name.
func ParseFilter(name string) (Filter, error) {
	for f, n := range filterNames {
		if n == name {
			return Filter(f), nil
		}
	}
	return 0, fmt.Errorf("unknown filter %v", name)
}

// A FilterSet is a set of filters. The zero value is an empty set.
type FilterSet struct {
	bits *bitset.BitSet
}

// Add adds the given filter to the set.
func (s *FilterSet) Add(f Filter) {
	if s.bits == nil {
		s.bits = bitset.New(uint(nFilters))
	}
	s.bits.Set(uint(f))
}

// Has determines whether the given filter is in the set.
func (s FilterSet) Has(f Filter) bool {
	return s.bits != nil && s.bits.Test(uint(f))
}

// Len returns the number of filters in the set.
func (s FilterSet) Len() int {
	if s.bits == nil {
		return 0
	}
	return int(s.bits.Count())
}

// Empty determines whether no filter is in the set.
func (s FilterSet) Empty() bool {
	return s.bits == nil || s.bits.None()
}

// Filters returns the filters in the set in vocabulary order.
func (s FilterSet) Filters() (result []Filter) {
	if s.bits == nil {
		return nil
	}
	for i, ok := s.bits.NextSet(0); ok; i, ok = s.bits.NextSet(i + 1) {
		result = append(result, Filter(i))
	}
	return result
}

// Names returns the names of the filters in the set in vocabulary order.
func (s FilterSet) Names() (result []string) {
	for _, f := range s.Filters() {
		result = append(result, f.String())
	}
	return result
}

// Clone returns an independent copy of the set.
func (s FilterSet) Clone() FilterSet {
	if s.bits == nil {
		return FilterSet{}
	}
	return FilterSet{bits: s.bits.Clone()}
}
