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

// Package phase assigns local phase sets to nearby variants and
// removes duplicate representations of the same event within a phase
// set.
//
// All stages consume variants strictly in position order and are not
// safe for concurrent use. Every variant that enters a stage leaves it
// exactly once, possibly with an additional filter.
package phase

import (
	"errors"

	"github.com/willf/bitset"

	"github.com/exascience/elsomatic/variants"
)

// A Consumer receives variants in position order.
type Consumer interface {
	Accept(v *variants.Variant)
}

// ConsumerFunc adapts a function to the Consumer interface.
type ConsumerFunc func(v *variants.Variant)

// Accept calls f(v).
func (f ConsumerFunc) Accept(v *variants.Variant) {
	f(v)
}

// Config holds the distances used for phasing and deduplication.
type Config struct {
	// distance by which variant footprints are extended for linking
	FlankSize int32 `yaml:"flank-size" envconfig:"FLANK_SIZE"`
	// distance behind the current position that deduplication looks back
	DedupWindow int32 `yaml:"dedup-window" envconfig:"DEDUP_WINDOW"`
}

// DefaultConfig returns the default phasing distances.
func DefaultConfig() Config {
	return Config{FlankSize: 10, DedupWindow: 10}
}

// Validate checks the distances.
func (cfg Config) Validate() error {
	if cfg.FlankSize < 0 {
		return errors.New("negative phase flank size")
	}
	if cfg.DedupWindow < 0 {
		return errors.New("negative dedup window")
	}
	return nil
}

// Phase chains local phase set assignment, MNV deduplication, and
// indel deduplication, in that order.
type Phase struct {
	localPhaseSet *LocalPhaseAssigner
	dedupMnv      *DedupMnv
	dedupIndel    *DedupIndel
	// phase sets with at least one variant that left the chain passing
	passing bitset.BitSet
}

// New creates the chain of phasing stages, forwarding to the given
// consumer.
func New(cfg Config, consumer Consumer) *Phase {
	p := &Phase{}
	p.dedupIndel = NewDedupIndel(cfg.DedupWindow, ConsumerFunc(func(v *variants.Variant) {
		if v.LocalPhaseSet > 0 && v.Passing() {
			p.passing.Set(uint(v.LocalPhaseSet))
		}
		consumer.Accept(v)
	}))
	p.dedupMnv = NewDedupMnv(cfg.DedupWindow, p.dedupIndel)
	p.localPhaseSet = NewLocalPhaseAssigner(cfg.FlankSize, p.dedupMnv)
	return p
}

// Accept implements Consumer.
func (p *Phase) Accept(v *variants.Variant) {
	p.localPhaseSet.Accept(v)
}

// Flush forwards all buffered variants of all stages.
func (p *Phase) Flush() {
	p.localPhaseSet.Flush()
	p.dedupMnv.Flush()
	p.dedupIndel.Flush()
}

// PhaseSets returns the number of local phase sets assigned so far.
func (p *Phase) PhaseSets() int {
	return p.localPhaseSet.PhaseSets()
}

// PassingPhaseSet determines whether a variant of the given local phase
// set has left the chain without filters. The result is only final
// after Flush.
func (p *Phase) PassingPhaseSet(id int) bool {
	return id > 0 && p.passing.Test(uint(id))
}
