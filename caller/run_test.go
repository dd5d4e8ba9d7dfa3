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
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exascience/elsomatic/evidence"
	"github.com/exascience/elsomatic/intervals"
	"github.com/exascience/elsomatic/jitter"
	"github.com/exascience/elsomatic/variants"
)

var testContigs = []evidence.Contig{{Name: "chr1", Length: 3000}, {Name: "chr2", Length: 1500}, {Name: "chr3", Length: 2500}}

func TestRunOrdersChromosomes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ParallelChromosomes = 3
	cfg.RegionSliceSize = 200
	var sink Collector
	require.NoError(t, Run(&cfg, syntheticCounter(true), nil, testContigs, nil, &sink))

	require.NotEmpty(t, sink.Variants)
	chromosome := 0
	for i, v := range sink.Variants {
		for testContigs[chromosome].Name != v.Chromosome {
			chromosome++
			require.Less(t, chromosome, len(testContigs), "chromosomes out of order")
		}
		if i > 0 && sink.Variants[i-1].Chromosome == v.Chromosome {
			require.LessOrEqual(t, sink.Variants[i-1].Position, v.Position)
		}
	}
	assert.Equal(t, "chr3", sink.Variants[len(sink.Variants)-1].Chromosome)
}

func TestRunFailure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ParallelChromosomes = 2
	cfg.RegionSliceSize = 500
	broken := errors.New("truncated evidence")
	counter := evidence.CounterFunc(func(chromosome string, region intervals.Interval) ([]*variants.Variant, error) {
		if chromosome == "chr2" && region.Start > 1 {
			return nil, broken
		}
		return syntheticCounter(false).Count(chromosome, region)
	})
	var sink Collector
	err := Run(&cfg, counter, nil, testContigs, nil, &sink)
	var cerr *ChromosomeError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "chr2", cerr.Chromosome)
	assert.True(t, errors.Is(err, broken))
	for _, v := range sink.Variants {
		assert.NotEqual(t, "chr2", v.Chromosome)
		assert.NotEqual(t, "chr3", v.Chromosome)
	}
}

func TestRunSinkFailure(t *testing.T) {
	cfg := DefaultConfig()
	full := errors.New("disk full")
	sink := SinkFunc(func(v *variants.Variant) error {
		return full
	})
	err := Run(&cfg, syntheticCounter(false), nil, testContigs, nil, sink)
	assert.True(t, errors.Is(err, full))
}

func TestRunSelection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Chromosomes = []string{"chr2", "chr3"}
	cfg.MinPosition = 100
	cfg.MaxPosition = 200
	targets := map[string][]intervals.Interval{"chr2": {{Start: 150, End: 400}}}
	var sink Collector
	require.NoError(t, Run(&cfg, syntheticCounter(false), nil, testContigs, targets, &sink))
	require.NotEmpty(t, sink.Variants)
	for _, v := range sink.Variants {
		assert.Equal(t, "chr2", v.Chromosome)
		assert.True(t, v.Position >= 150 && v.Position <= 200, v.String())
	}
}

func TestRunOutputPolicy(t *testing.T) {
	counter := evidence.CounterFunc(func(chromosome string, region intervals.Interval) ([]*variants.Variant, error) {
		hotspot := snv(chromosome, 100)
		hotspot.Tier = variants.Hotspot
		hotspot.Filters.Add(variants.MinTumorQual)
		panel := snv(chromosome, 200)
		panel.Tier = variants.Panel
		filteredPanel := snv(chromosome, 300)
		filteredPanel.Tier = variants.Panel
		filteredPanel.Filters.Add(variants.MinTumorVaf)
		low := snv(chromosome, 400)
		low.Tier = variants.LowConfidence
		return []*variants.Variant{hotspot, panel, filteredPanel, low}, nil
	})
	contigs := []evidence.Contig{{Name: "chr1", Length: 1000}}
	positions := func(cfg Config) (result []int32) {
		var sink Collector
		require.NoError(t, Run(&cfg, counter, nil, contigs, nil, &sink))
		for _, v := range sink.Variants {
			result = append(result, v.Position)
		}
		return result
	}

	cfg := DefaultConfig()
	assert.Equal(t, []int32{100, 200, 300, 400}, positions(cfg))
	cfg.PanelOnly = true
	assert.Equal(t, []int32{100, 200, 300}, positions(cfg))
	cfg.HardFilter = true
	assert.Equal(t, []int32{200}, positions(cfg))
	cfg.PanelOnly = false
	assert.Equal(t, []int32{200, 400}, positions(cfg))
}

func TestRunNormalAltSupportPolicy(t *testing.T) {
	withNormal := func(v *variants.Variant, altSupport int) *variants.Variant {
		normal := variants.NewSupportCounter("N1")
		normal.Full = altSupport
		normal.Total = 30
		tumor := variants.NewSupportCounter("T1")
		tumor.Full = 10
		tumor.Total = 30
		v.Normal = []*variants.SupportCounter{normal}
		v.Tumor = []*variants.SupportCounter{tumor}
		return v
	}
	counter := evidence.CounterFunc(func(chromosome string, region intervals.Interval) ([]*variants.Variant, error) {
		// the SNV is removed as duplicate of the MNV, whose phase set passes
		mnv := withNormal(&variants.Variant{Chromosome: chromosome, Position: 100, Ref: "AC", Alt: "TG", Tier: variants.HighConfidence}, 0)
		duplicate := withNormal(&variants.Variant{Chromosome: chromosome, Position: 100, Ref: "A", Alt: "T", Tier: variants.HighConfidence}, 5)
		// filtered, alone, normal support above and at the limit
		above := withNormal(snv(chromosome, 300), 4)
		above.Filters.Add(variants.MinTumorQual)
		atLimit := withNormal(snv(chromosome, 500), 3)
		atLimit.Filters.Add(variants.MinTumorQual)
		hotspot := withNormal(snv(chromosome, 700), 9)
		hotspot.Tier = variants.Hotspot
		hotspot.Filters.Add(variants.MinTumorQual)
		tumorOnly := snv(chromosome, 900)
		tumorOnly.Filters.Add(variants.MinTumorQual)
		return []*variants.Variant{mnv, duplicate, above, atLimit, hotspot, tumorOnly}, nil
	})
	run := func(cfg Config, chromosome string) (result []int32) {
		var sink Collector
		contigs := []evidence.Contig{{Name: chromosome, Length: 1000}}
		require.NoError(t, Run(&cfg, counter, nil, contigs, nil, &sink))
		for _, v := range sink.Variants {
			result = append(result, v.Position)
		}
		require.True(t, len(sink.Variants) > 1)
		assert.True(t, sink.Variants[1].Filters.Has(variants.Dedup))
		assert.Equal(t, 1, sink.Variants[1].LocalPhaseSet)
		return result
	}

	cfg := DefaultConfig()
	assert.Equal(t, []int32{100, 100, 300, 500, 700, 900}, run(cfg, "chr1"))
	cfg.FilteredMaxNormalAltSupport = 3
	assert.Equal(t, []int32{100, 100, 500, 700, 900}, run(cfg, "chr1"))
	assert.Equal(t, []int32{100, 100, 300, 500, 700, 900}, run(cfg, "MT"))
}

const runEvidence = evidence.TableHeader +
	"#contig\tchr1\t1000\n" +
	"chr1\t100\tACGTAC\tTCCCCG\tPANEL\tnormal\tN1\t0\t0\t0\t0\t30\t30\t0\t0\t.\t0\t.\t.\n" +
	"chr1\t100\tACGTAC\tTCCCCG\tPANEL\ttumor\tT1\t12\t2\t1\t0\t20\t35\t0\t0\t.\t0\t.\t.\n" +
	"chr1\t105\tC\tG\tPANEL\ttumor\tT1\t14\t1\t0\t0\t20\t35\t0\t0\t.\t0\t.\t.\n" +
	"chr1\t420\tAT\tA\tHIGH_CONFIDENCE\ttumor\tT1\t2\t0\t0\t0\t10\t42\t30\t0\tT\t10\tT\t.\n" +
	"chr1\t700\tG\tA\tLOW_CONFIDENCE\ttumor\tT1\t3\t0\t0\t0\t25\t28\t0\t0\t.\t0\t.\tmin_tumor_qual\n" +
	"chr2\t50\tA\tAT\tHOTSPOT\ttumor\tT1\t9\t0\t0\t0\t20\t29\t1\t1\tT\t5\tT,AT\t.\n" +
	"chr2\t52\tC\tT\tHOTSPOT\ttumor\tT1\t9\t0\t0\t0\t20\t29\t0\t0\t.\t0\t.\t.\n"

func callVcf(t *testing.T, table *evidence.Table, model *jitter.Model) string {
	cfg := DefaultConfig()
	cfg.ParallelChromosomes = 2
	cfg.RegionSliceSize = 100
	var buf bytes.Buffer
	out := bufio.NewWriter(&buf)
	normal, tumor := table.Samples()
	sink, err := NewVcfSink(out, VcfHeader(normal, tumor, table.Contigs(), ""), normal, tumor)
	require.NoError(t, err)
	require.NoError(t, Run(&cfg, table, model, table.Contigs(), nil, sink))
	require.NoError(t, out.Flush())
	return buf.String()
}

func TestRunVcfIdempotent(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "evidence.tsv")
	require.NoError(t, os.WriteFile(filename, []byte(runEvidence), 0666))
	table, err := evidence.LoadTable(filename)
	require.NoError(t, err)
	calibration := jitter.NewTable(0.0001)
	calibration.Set("T1", "T", 9, 1, 0.05)
	model := jitter.NewModel(jitter.DefaultConfig(), calibration)

	first := callVcf(t, table, model)
	second := callVcf(t, table, model)
	assert.Equal(t, first, second)

	lines := strings.Split(strings.TrimSuffix(first, "\n"), "\n")
	var records []string
	for _, line := range lines {
		if !strings.HasPrefix(line, "#") {
			records = append(records, line)
		}
	}
	require.Len(t, records, 6)
	assert.Equal(t, "chr1\t100\t.\tACGTAC\tTCCCCG\t.\tPASS\tTIER=PANEL;LPS=1\tGT:AD:DP:RC_CNT:RC_JIT:RC_JQB\t0/0:30,0:30:0,0,0,0,30,30:0,0:1\t0/1:20,14:35:12,2,1,0,20,35:0,0:1", records[0])
	assert.Equal(t, "chr1\t105\t.\tC\tG\t.\tdedup\tTIER=PANEL;LPS=1\tGT:AD:DP:RC_CNT:RC_JIT:RC_JQB\t.:.:.:.:.:.\t0/1:20,15:35:14,1,0,0,20,35:0,0:1", records[1])
	assert.Contains(t, records[2], "\thard_jitter\tTIER=HIGH_CONFIDENCE;RC_REPS=T;RC_REPC=10\t")
	assert.Contains(t, records[3], "\tmin_tumor_qual\tTIER=LOW_CONFIDENCE\t")
	assert.True(t, strings.HasPrefix(records[4], "chr2\t50\t.\tA\tAT\t.\tPASS\tTIER=HOTSPOT;LPS=1;RC_REPS=T;RC_REPC=5\t"))
	assert.True(t, strings.HasPrefix(records[5], "chr2\t52\t.\tC\tT\t.\tPASS\tTIER=HOTSPOT;LPS=1\t"))
	assert.Contains(t, first, "##contig=<ID=chr2,length=52>\n")
	assert.Contains(t, first, "##FILTER=<ID=hard_jitter,")
	assert.Contains(t, first, "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tN1\tT1\n")
}
