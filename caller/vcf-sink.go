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
	"bufio"
	"fmt"

	"github.com/google/uuid"

	"github.com/exascience/elsomatic/evidence"
	"github.com/exascience/elsomatic/internal"
	"github.com/exascience/elsomatic/utils"
	"github.com/exascience/elsomatic/variants"
	"github.com/exascience/elsomatic/vcf"
)

// VCF INFO and FORMAT keys.
const (
	TierKey           = "TIER"
	LocalPhaseSetKey  = "LPS"
	RepeatSequenceKey = "RC_REPS"
	RepeatCountKey    = "RC_REPC"
	AllelicDepthKey   = "AD"
	ReadDepthKey      = "DP"
	ReadContextKey    = "RC_CNT"
	JitterKey         = "RC_JIT"
	JitterBoostKey    = "RC_JQB"
)

var (
	tierKey           = utils.Intern(TierKey)
	localPhaseSetKey  = utils.Intern(LocalPhaseSetKey)
	repeatSequenceKey = utils.Intern(RepeatSequenceKey)
	repeatCountKey    = utils.Intern(RepeatCountKey)

	genotypeFormat = utils.Interned("GT", AllelicDepthKey, ReadDepthKey, ReadContextKey, JitterKey, JitterBoostKey)
)

// NewRunID returns a fresh identifier that is recorded in the VCF
// header.
func NewRunID() string {
	return uuid.New().String()
}

// VcfHeader creates the header for the given samples and contigs. The
// run id is left out if it is empty.
func VcfHeader(normal, tumor []string, contigs []evidence.Contig, runID string) *vcf.Header {
	header := vcf.NewHeader(append(append([]string(nil), normal...), tumor...)...)
	header.AddMeta("source", fmt.Sprint(utils.ProgramName, " ", utils.ProgramVersion))
	if runID != "" {
		header.AddMeta("elsomaticRunId", runID)
	}
	for _, filter := range variants.AllFilters() {
		header.AddFilter(filter.String(), filter.Description())
	}
	for _, contig := range contigs {
		header.AddContig(contig.Name, contig.Length)
	}
	header.AddInfo(TierKey, 1, vcf.String, "Tier: [HOTSPOT, PANEL, HIGH_CONFIDENCE, LOW_CONFIDENCE]")
	header.AddInfo(LocalPhaseSetKey, 1, vcf.Integer, "Local Phase Set")
	header.AddInfo(RepeatSequenceKey, 1, vcf.String, "Repeat sequence")
	header.AddInfo(RepeatCountKey, 1, vcf.Integer, "Repeat count")
	header.AddFormat("GT", 1, vcf.String, "Genotype")
	header.AddFormat(AllelicDepthKey, vcf.NumberR, vcf.Integer, "Allelic depths for the ref and alt alleles in the order listed")
	header.AddFormat(ReadDepthKey, 1, vcf.Integer, "Approximate read depth")
	header.AddFormat(ReadContextKey, 6, vcf.Integer, "Read context counts [Full, Partial, Core, Realigned, Reference, Total]")
	header.AddFormat(JitterKey, 2, vcf.Integer, "Read context jitter [Shortened, Lengthened]")
	header.AddFormat(JitterBoostKey, 1, vcf.Float, "Read context jitter quality boost")
	return header
}

// VcfSink writes variants as VCF records, with one genotype column per
// normal sample followed by one per tumor sample.
type VcfSink struct {
	out           *bufio.Writer
	normal, tumor []string
}

// NewVcfSink writes the header and returns a sink for the records.
func NewVcfSink(out *bufio.Writer, header *vcf.Header, normal, tumor []string) (*VcfSink, error) {
	if err := header.Format(out); err != nil {
		return nil, err
	}
	return &VcfSink{out: out, normal: normal, tumor: tumor}, nil
}

func findCounter(counters []*variants.SupportCounter, sample string) *variants.SupportCounter {
	for _, c := range counters {
		if c.Sample == sample {
			return c
		}
	}
	return nil
}

func genotypeData(c *variants.SupportCounter, genotype string) (data utils.SmallMap) {
	if c == nil {
		return nil
	}
	data = make(utils.SmallMap, 0, len(genotypeFormat))
	data.Set(genotypeFormat[0], genotype)
	data.Set(genotypeFormat[1], []interface{}{c.Reference, c.AltSupport()})
	data.Set(genotypeFormat[2], c.Total)
	data.Set(genotypeFormat[3], []interface{}{c.Full, c.Partial, c.Core, c.Realigned, c.Reference, c.Total})
	data.Set(genotypeFormat[4], []interface{}{c.Shortened, c.Lengthened})
	boost := c.JitterQualBoost
	if boost == 0 {
		// counters not created by NewSupportCounter
		boost = 1
	}
	data.Set(genotypeFormat[5], boost)
	return data
}

// repeatContext returns the repeat of the first counter that has one,
// tumor counters first.
func repeatContext(v *variants.Variant) *variants.RepeatContext {
	for _, counters := range [2][]*variants.SupportCounter{v.Tumor, v.Normal} {
		for _, c := range counters {
			if c.Repeat != nil {
				return c.Repeat
			}
		}
	}
	return nil
}

// Record converts a variant to a VCF record.
func (s *VcfSink) Record(v *variants.Variant) *vcf.Record {
	record := &vcf.Record{
		Chrom: v.Chromosome,
		Pos:   v.Position,
		Ref:   v.Ref,
		Alt:   []string{v.Alt},
	}
	if v.Passing() {
		record.Filter = []utils.Symbol{vcf.PASS}
	} else {
		record.Filter = utils.Interned(v.Filters.Names()...)
	}
	record.Info.Set(tierKey, v.Tier.String())
	if v.LocalPhaseSet > 0 {
		record.Info.Set(localPhaseSetKey, v.LocalPhaseSet)
	}
	if repeat := repeatContext(v); repeat != nil {
		record.Info.Set(repeatSequenceKey, repeat.Unit)
		record.Info.Set(repeatCountKey, repeat.Count)
	}
	if len(s.normal)+len(s.tumor) > 0 {
		record.GenotypeFormat = genotypeFormat
		for _, sample := range s.normal {
			record.GenotypeData = append(record.GenotypeData, genotypeData(findCounter(v.Normal, sample), "0/0"))
		}
		for _, sample := range s.tumor {
			record.GenotypeData = append(record.GenotypeData, genotypeData(findCounter(v.Tumor, sample), "0/1"))
		}
	}
	return record
}

// Write implements Sink.
func (s *VcfSink) Write(v *variants.Variant) error {
	buf := internal.ReserveByteBuffer()
	defer func() {
		internal.ReleaseByteBuffer(buf)
	}()
	var err error
	if buf, err = s.Record(v).Format(buf); err != nil {
		return fmt.Errorf("%w, while formatting variant %v", err, v)
	}
	_, err = s.out.Write(buf)
	return err
}
