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

// dedupBuffer holds the recently seen variants that may still be
// paired with an incoming variant.
type dedupBuffer struct {
	window   int32
	entries  []*variants.Variant
	consumer Consumer
}

// evictBefore forwards buffered variants from the front whose end lies
// more than the window distance behind the given variant, or that lie
// on a different chromosome. It stops at the first variant that must
// be retained, so that variants leave in the order they arrived.
func (b *dedupBuffer) evictBefore(v *variants.Variant) {
	i := 0
	for ; i < len(b.entries); i++ {
		entry := b.entries[i]
		if entry.Chromosome == v.Chromosome && entry.End() >= v.Position-b.window {
			break
		}
		b.consumer.Accept(entry)
		b.entries[i] = nil
	}
	if i > 0 {
		n := copy(b.entries, b.entries[i:])
		b.entries = b.entries[:n]
	}
}

func (b *dedupBuffer) add(v *variants.Variant) {
	b.entries = append(b.entries, v)
}

func (b *dedupBuffer) flush() {
	for i, entry := range b.entries {
		b.consumer.Accept(entry)
		b.entries[i] = nil
	}
	b.entries = b.entries[:0]
}

// DedupMnv marks shorter MNV or SNV representations that are contained
// in a longer MNV of the same phase set with the dedup filter.
type DedupMnv struct {
	buffer dedupBuffer
}

// NewDedupMnv creates an MNV deduplication stage.
func NewDedupMnv(window int32, consumer Consumer) *DedupMnv {
	return &DedupMnv{buffer: dedupBuffer{window: window, consumer: consumer}}
}

func mnvCandidate(v *variants.Variant) bool {
	return v.Passing() && !v.IsIndel() && v.LocalPhaseSet > 0
}

// Accept implements Consumer.
func (d *DedupMnv) Accept(v *variants.Variant) {
	d.buffer.evictBefore(v)
	if mnvCandidate(v) {
		for _, old := range d.buffer.entries {
			if !v.Passing() {
				break
			}
			if old.LocalPhaseSet != v.LocalPhaseSet || !mnvCandidate(old) || len(old.Alt) == len(v.Alt) {
				continue
			}
			shorter, longer := v, old
			if len(v.Alt) > len(old.Alt) {
				shorter, longer = old, v
			}
			if containsMnv(longer, shorter) {
				shorter.Filters.Add(variants.Dedup)
			}
		}
	}
	d.buffer.add(v)
}

// containsMnv determines whether the shorter variant lies within the
// longer one and its alt matches the longer alt at that offset.
func containsMnv(longer, shorter *variants.Variant) bool {
	if shorter.Position < longer.Position || shorter.End() > longer.End() {
		return false
	}
	offset := int(shorter.Position - longer.Position)
	if offset+len(shorter.Alt) > len(longer.Alt) {
		return false
	}
	return longer.Alt[offset:offset+len(shorter.Alt)] == shorter.Alt
}

// Flush forwards all buffered variants.
func (d *DedupMnv) Flush() {
	d.buffer.flush()
}

// DedupIndel marks indels of the same phase set that describe the same
// net change with different anchor bases with the dedup filter. The
// less parsimonious representation is filtered.
type DedupIndel struct {
	buffer dedupBuffer
}

// NewDedupIndel creates an indel deduplication stage.
func NewDedupIndel(window int32, consumer Consumer) *DedupIndel {
	return &DedupIndel{buffer: dedupBuffer{window: window, consumer: consumer}}
}

func indelCandidate(v *variants.Variant) bool {
	return v.Passing() && v.IsIndel() && v.LocalPhaseSet > 0
}

// Accept implements Consumer.
func (d *DedupIndel) Accept(v *variants.Variant) {
	d.buffer.evictBefore(v)
	if indelCandidate(v) {
		normalized := normalizeIndel(v)
		for _, old := range d.buffer.entries {
			if old.LocalPhaseSet != v.LocalPhaseSet || !indelCandidate(old) {
				continue
			}
			if normalizeIndel(old) != normalized {
				continue
			}
			if representationLength(old) > representationLength(v) {
				old.Filters.Add(variants.Dedup)
			} else {
				v.Filters.Add(variants.Dedup)
				break
			}
		}
	}
	d.buffer.add(v)
}

// Flush forwards all buffered variants.
func (d *DedupIndel) Flush() {
	d.buffer.flush()
}

func representationLength(v *variants.Variant) int {
	return len(v.Ref) + len(v.Alt)
}

type indelKey struct {
	position int32
	ref, alt string
}

// normalizeIndel strips the bases that ref and alt share, first at the
// end and then at the start, moving the position accordingly.
func normalizeIndel(v *variants.Variant) indelKey {
	ref, alt, pos := v.Ref, v.Alt, v.Position
	for len(ref) > 0 && len(alt) > 0 && ref[len(ref)-1] == alt[len(alt)-1] {
		ref, alt = ref[:len(ref)-1], alt[:len(alt)-1]
	}
	for len(ref) > 0 && len(alt) > 0 && ref[0] == alt[0] {
		ref, alt = ref[1:], alt[1:]
		pos++
	}
	return indelKey{position: pos, ref: ref, alt: alt}
}
