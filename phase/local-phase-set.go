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

import "github.com/exascience/elsomatic/variants"

// LocalPhaseAssigner links variants whose flanked footprints overlap
// into local phase sets. Only passing variants take part; other
// variants pass through in order.
type LocalPhaseAssigner struct {
	flank    int32
	consumer Consumer

	// all variants since the current window was opened, in order
	buffer []*variants.Variant
	// the passing variants that form the current window
	members []*variants.Variant
	// the last flanked position of the current window
	windowEnd int32
	lastID    int
}

// NewLocalPhaseAssigner creates a phase set assigner.
func NewLocalPhaseAssigner(flank int32, consumer Consumer) *LocalPhaseAssigner {
	return &LocalPhaseAssigner{flank: flank, consumer: consumer}
}

func (lps *LocalPhaseAssigner) open() bool {
	return len(lps.members) > 0
}

func (lps *LocalPhaseAssigner) links(v *variants.Variant) bool {
	return v.Chromosome == lps.members[0].Chromosome && v.Position-lps.flank <= lps.windowEnd
}

// Accept implements Consumer.
func (lps *LocalPhaseAssigner) Accept(v *variants.Variant) {
	if lps.open() && !lps.links(v) {
		lps.closeWindow()
	}
	if !v.Passing() {
		if lps.open() {
			lps.buffer = append(lps.buffer, v)
		} else {
			lps.consumer.Accept(v)
		}
		return
	}
	lps.buffer = append(lps.buffer, v)
	lps.members = append(lps.members, v)
	if end := v.End() + lps.flank; end > lps.windowEnd || len(lps.members) == 1 {
		lps.windowEnd = end
	}
}

func (lps *LocalPhaseAssigner) closeWindow() {
	if len(lps.members) > 1 {
		lps.lastID++
		for _, member := range lps.members {
			member.LocalPhaseSet = lps.lastID
		}
	}
	for i, v := range lps.buffer {
		lps.consumer.Accept(v)
		lps.buffer[i] = nil
	}
	lps.buffer = lps.buffer[:0]
	for i := range lps.members {
		lps.members[i] = nil
	}
	lps.members = lps.members[:0]
}

// Flush closes the current window and forwards all buffered variants.
func (lps *LocalPhaseAssigner) Flush() {
	if lps.open() {
		lps.closeWindow()
	}
}

// PhaseSets returns the number of phase sets assigned so far.
func (lps *LocalPhaseAssigner) PhaseSets() int {
	return lps.lastID
}
