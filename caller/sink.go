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

package caller

import (
	"github.com/exascience/elsomatic/variants"
)

// A Sink receives the called variants of a run, chromosome by
// chromosome, each chromosome in position order.
type Sink interface {
	Write(v *variants.Variant) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(v *variants.Variant) error

// Write calls f(v).
func (f SinkFunc) Write(v *variants.Variant) error {
	return f(v)
}

// Collector is a Sink that keeps all variants in memory.
type Collector struct {
	Variants []*variants.Variant
}

// Write implements Sink.
func (c *Collector) Write(v *variants.Variant) error {
	c.Variants = append(c.Variants, v)
	return nil
}

// mitochondrialChromosomes are exempt from the normal alt support rule.
var mitochondrialChromosomes = map[string]bool{"MT": true, "M": true, "chrM": true, "chrMT": true}

// emits applies the output policy of the configuration. By default,
// every variant is emitted, filtered or not. passingPhaseSet reports
// whether a local phase set of the variant's chromosome has a passing
// variant.
func (cfg *Config) emits(v *variants.Variant, passingPhaseSet func(id int) bool) bool {
	if cfg.PanelOnly && v.Tier != variants.Hotspot && v.Tier != variants.Panel {
		return false
	}
	if v.Passing() {
		return true
	}
	if cfg.HardFilter {
		return false
	}
	if v.Tier == variants.Hotspot {
		return true
	}
	if cfg.FilteredMaxNormalAltSupport >= 0 &&
		len(v.Normal) > 0 && len(v.Tumor) > 0 &&
		!mitochondrialChromosomes[v.Chromosome] &&
		(passingPhaseSet == nil || !passingPhaseSet(v.LocalPhaseSet)) &&
		v.Normal[0].AltSupport() > cfg.FilteredMaxNormalAltSupport {
		return false
	}
	return true
}
