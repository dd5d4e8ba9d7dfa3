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
	"errors"
	"fmt"
	"sort"

	"github.com/exascience/pargo/pipeline"

	"github.com/exascience/elsomatic/evidence"
	"github.com/exascience/elsomatic/internal"
	"github.com/exascience/elsomatic/intervals"
	"github.com/exascience/elsomatic/jitter"
	"github.com/exascience/elsomatic/phase"
	"github.com/exascience/elsomatic/variants"
)

// ChromosomePipeline calls the variants of one chromosome. Evidence for
// the regions of the chromosome is counted concurrently, but the noise
// model and the phasing stages see the variants strictly in region
// order, and hence in position order.
type ChromosomePipeline struct {
	chromosome string
	cfg        *Config
	counter    evidence.Counter
	model      *jitter.Model
	phaser     *phase.Phase
}

// NewChromosomePipeline creates a pipeline for the given chromosome. A
// nil model disables the noise model.
func NewChromosomePipeline(chromosome string, cfg *Config, counter evidence.Counter, model *jitter.Model) *ChromosomePipeline {
	return &ChromosomePipeline{
		chromosome: chromosome,
		cfg:        cfg,
		counter:    counter,
		model:      model,
	}
}

// countRegion counts a single region and checks the result.
func (cp *ChromosomePipeline) countRegion(region intervals.Interval) (result []*variants.Variant, err error) {
	defer internal.RecoverPanic(&err)
	if result, err = cp.counter.Count(cp.chromosome, region); err != nil {
		return nil, err
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Position < result[j].Position
	})
	for _, v := range result {
		if v.Chromosome != cp.chromosome || !region.Contains(v.Position) {
			return nil, fmt.Errorf("variant %v outside of counted region", v)
		}
		if err = v.Validate(); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Process calls the variants of the given regions, which must not
// overlap. The regions are processed in order of their start
// positions. The variants are returned in position order, each with
// its final filters and local phase set. If any region fails, only a
// *ChromosomeError is returned.
func (cp *ChromosomePipeline) Process(regions []intervals.Interval) (output []*variants.Variant, err error) {
	regions = append([]intervals.Interval(nil), regions...)
	intervals.SortByStart(regions)
	if i := intervals.FirstOverlap(regions); i >= 0 {
		return nil, &ChromosomeError{
			Chromosome: cp.chromosome,
			Region:     regions[i],
			Err:        errors.New("region overlaps with the previous region"),
		}
	}

	phaser := phase.New(cp.cfg.Phase, phase.ConsumerFunc(func(v *variants.Variant) {
		output = append(output, v)
	}))
	cp.phaser = phaser

	var p pipeline.Pipeline
	next := 0
	p.Source(pipeline.NewFunc(-1, func(size int) (interface{}, int, error) {
		if next >= len(regions) {
			return nil, 0, nil
		}
		region := regions[next]
		next++
		return region, 1, nil
	}))
	p.SetVariableBatchSize(1, 1)
	p.Add(
		pipeline.LimitedPar(cp.cfg.Threads, pipeline.Receive(func(_ int, data interface{}) interface{} {
			region := data.(intervals.Interval)
			vars, err := cp.countRegion(region)
			if err != nil {
				p.SetErr(&ChromosomeError{Chromosome: cp.chromosome, Region: region, Err: err})
				return nil
			}
			return vars
		})),
		pipeline.StrictOrd(pipeline.ReceiveAndFinalize(func(_ int, data interface{}) interface{} {
			vars, _ := data.([]*variants.Variant)
			if err := cp.phaseVariants(phaser, vars); err != nil {
				p.SetErr(&ChromosomeError{Chromosome: cp.chromosome, Err: err})
			}
			return nil
		}, func() {
			if err := flushPhase(phaser); err != nil {
				p.SetErr(&ChromosomeError{Chromosome: cp.chromosome, Err: err})
			}
		})),
	)
	p.Run()
	if err = p.Err(); err != nil {
		return nil, err
	}
	return output, nil
}

// phaseVariants feeds the variants of one region through the noise
// model and the phasing stages.
func (cp *ChromosomePipeline) phaseVariants(phaser *phase.Phase, vars []*variants.Variant) (err error) {
	defer internal.RecoverPanic(&err)
	for _, v := range vars {
		if cp.model != nil {
			cp.model.ApplyVariant(v)
		}
		phaser.Accept(v)
	}
	return nil
}

func flushPhase(phaser *phase.Phase) (err error) {
	defer internal.RecoverPanic(&err)
	phaser.Flush()
	return nil
}

// PassingPhaseSet determines whether the given local phase set has a
// passing variant in the output of the last successful Process.
func (cp *ChromosomePipeline) PassingPhaseSet(id int) bool {
	return cp.phaser != nil && cp.phaser.PassingPhaseSet(id)
}
