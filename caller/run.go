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
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/exascience/elsomatic/evidence"
	"github.com/exascience/elsomatic/intervals"
	"github.com/exascience/elsomatic/jitter"
	"github.com/exascience/elsomatic/variants"
)

type chromosomeJob struct {
	contig  evidence.Contig
	regions []intervals.Interval
	output  []*variants.Variant
	passing func(id int) bool
	done    chan struct{}
}

// Regions partitions a contig according to the configuration. If
// targets is not nil, only regions inside the contig's targets are
// returned.
func (cfg *Config) Regions(contig evidence.Contig, targets map[string][]intervals.Interval) []intervals.Interval {
	var contigTargets []intervals.Interval
	if targets != nil {
		if contigTargets = targets[contig.Name]; contigTargets == nil {
			return nil
		}
	}
	return intervals.Partition(contig.Length, cfg.RegionSliceSize, cfg.MinPosition, cfg.MaxPosition, contigTargets)
}

// Run calls the variants of the given contigs and writes them to the
// sink, contig by contig in the given order. Up to
// cfg.ParallelChromosomes contigs are processed at the same time, each
// with its own pipeline stages; a contig is written as soon as it and
// all contigs before it are done. The first failure stops the run, and
// no variants of the failing contig are written.
func Run(cfg *Config, counter evidence.Counter, model *jitter.Model, contigs []evidence.Contig, targets map[string][]intervals.Interval, sink Sink) error {
	counter = evidence.Retrying(counter, cfg.Retries)

	var jobs []*chromosomeJob
	for _, contig := range contigs {
		if !cfg.includes(contig.Name) {
			continue
		}
		jobs = append(jobs, &chromosomeJob{
			contig:  contig,
			regions: cfg.Regions(contig, targets),
			done:    make(chan struct{}),
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	limit := cfg.ParallelChromosomes
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	launched := make(chan struct{})
	go func() {
		defer close(launched)
		for _, job := range jobs {
			job := job
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				log.Printf("Calling variants for chromosome %v in %v regions.\n", job.contig.Name, len(job.regions))
				cp := NewChromosomePipeline(job.contig.Name, cfg, counter, model)
				output, err := cp.Process(job.regions)
				if err != nil {
					return err
				}
				job.output = output
				job.passing = cp.PassingPhaseSet
				close(job.done)
				return nil
			})
		}
	}()

	writeErr := writeJobs(gctx, jobs, cfg, sink)
	if writeErr != nil {
		cancel()
	}
	<-launched
	if err := g.Wait(); err != nil && (writeErr == nil || err != context.Canceled) {
		return err
	}
	return writeErr
}

// writeJobs writes the output of the jobs in order, as they complete.
func writeJobs(ctx context.Context, jobs []*chromosomeJob, cfg *Config, sink Sink) error {
	for _, job := range jobs {
		select {
		case <-job.done:
		default:
			select {
			case <-job.done:
			case <-ctx.Done():
				return nil
			}
		}
		emitted := 0
		for _, v := range job.output {
			if !cfg.emits(v, job.passing) {
				continue
			}
			if err := sink.Write(v); err != nil {
				return fmt.Errorf("%w, while writing chromosome %v", err, job.contig.Name)
			}
			emitted++
		}
		log.Printf("Wrote %v variants for chromosome %v.\n", emitted, job.contig.Name)
		job.output = nil
		job.passing = nil
	}
	return nil
}
