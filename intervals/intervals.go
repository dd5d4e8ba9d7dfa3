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

// Package intervals implements closed genomic intervals, and the
// partitioning of chromosomes into the regions that are counted and
// phased one after the other.
package intervals

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/exascience/pargo/parallel"
	"github.com/exascience/pargo/pipeline"
	psort "github.com/exascience/pargo/sort"
)

// Interval is a closed range of 1-based positions on a chromosome.
type Interval struct {
	Start, End int32
}

// Length returns the number of positions in the interval.
func (interval Interval) Length() int32 {
	return interval.End - interval.Start + 1
}

// Contains determines whether pos lies inside the interval.
func (interval Interval) Contains(pos int32) bool {
	return interval.Start <= pos && pos <= interval.End
}

func (interval Interval) String() string {
	return fmt.Sprintf("%v-%v", interval.Start, interval.End)
}

// SortByStart sorts a slice of Interval by Start position.
func SortByStart(intervals []Interval) {
	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].Start < intervals[j].Start
	})
}

type byStart []Interval

func (s byStart) SequentialSort(i, j int) {
	SortByStart(s[i:j])
}

func (s byStart) NewTemp() psort.StableSorter {
	return make(byStart, len(s))
}

func (s byStart) Len() int {
	return len(s)
}

func (s byStart) Less(i, j int) bool {
	return s[i].Start < s[j].Start
}

func (s byStart) Assign(source psort.StableSorter) func(i, j, len int) {
	dst, src := s, source.(byStart)
	return func(i, j, len int) {
		copy(dst[i:i+len], src[j:j+len])
	}
}

// ParallelSortByStart sorts a slice of Interval by Start position using
// a parallel stable sort.
func ParallelSortByStart(intervals []Interval) {
	psort.StableSort(byStart(intervals))
}

// Extend stores max(interval1.End, interval2.End) in interval1.End if
// the two intervals overlap, and reports whether they do.
// interval2.Start >= interval1.Start must hold.
func (interval1 *Interval) Extend(interval2 Interval) bool {
	if interval2.Start > interval1.End {
		return false
	}
	if interval2.End > interval1.End {
		interval1.End = interval2.End
	}
	return true
}

// Flatten merges overlapping intervals. The intervals must be sorted by
// Start. The result is sorted by Start, has no overlapping intervals,
// and shares memory with the argument.
func Flatten(intervals []Interval) []Interval {
	for i, n := 0, len(intervals)-1; i < n; i++ {
		if intervals[i].Extend(intervals[i+1]) {
			n++
			for j := i + 1; j < n; j++ {
				if !intervals[i].Extend(intervals[j]) {
					i++
					intervals[i] = intervals[j]
				}
			}
			return intervals[:i+1]
		}
	}
	return intervals
}

const parallelFlattenGrainSize = 0x1000

// ParallelFlatten is Flatten with a parallel divide-and-conquer
// algorithm for large slices.
func ParallelFlatten(intervals []Interval) []Interval {
	if len(intervals) < parallelFlattenGrainSize {
		return Flatten(intervals)
	}
	half := len(intervals) >> 1
	left, right := intervals[:half], intervals[half:]
	parallel.Do(
		func() { left = ParallelFlatten(left) },
		func() { right = ParallelFlatten(right) },
	)
	for len(right) > 0 && left[len(left)-1].Extend(right[0]) {
		right = right[1:]
	}
	return append(left, right...)
}

// Intersect returns the intervals that overlap with [start, end]. The
// intervals must be flattened and sorted by Start. The result shares
// memory with the argument.
func Intersect(intervals []Interval, start, end int32) []Interval {
	n := len(intervals)
	return intervals[sort.Search(n, func(i int) bool {
		return intervals[i].End >= start
	}):sort.Search(n, func(i int) bool {
		return intervals[i].Start > end
	})]
}

// FirstOverlap returns the index of the first interval that overlaps
// with its predecessor, or -1 if there is none. The intervals must be
// sorted by Start.
func FirstOverlap(intervals []Interval) int {
	for i := 1; i < len(intervals); i++ {
		if intervals[i].Start <= intervals[i-1].End {
			return i
		}
	}
	return -1
}

// DefaultSliceSize is the default length of the regions a chromosome is
// partitioned into.
const DefaultSliceSize = 100000

// Partition splits the positions [1, length] of a chromosome into
// consecutive regions of at most size positions. A positive minPos or
// maxPos narrows the range. If targets is not nil, each region is
// further clipped to the target intervals it overlaps, which must be
// flattened and sorted by Start. The result is sorted and has no
// overlapping regions.
func Partition(length, size, minPos, maxPos int32, targets []Interval) (regions []Interval) {
	if size <= 0 {
		size = DefaultSliceSize
	}
	lo, hi := int32(1), length
	if minPos > lo {
		lo = minPos
	}
	if maxPos > 0 && maxPos < hi {
		hi = maxPos
	}
	for start := lo; start <= hi; {
		end := hi
		if size <= hi-start {
			end = start + size - 1
		}
		if targets == nil {
			regions = append(regions, Interval{start, end})
		} else {
			for _, target := range Intersect(targets, start, end) {
				if target.Start < start {
					target.Start = start
				}
				if target.End > end {
					target.End = end
				}
				regions = append(regions, target)
			}
		}
		if end == hi {
			break
		}
		start = end + 1
	}
	return regions
}

// ElsitesHeader is the header line that every .elsites file starts with.
const ElsitesHeader = "# elsites format version 1.0\n"

func parseElsitesLine(line string) (chrom string, interval Interval, err error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 3 || fields[0] == "" {
		return "", interval, fmt.Errorf("invalid sites line %v", line)
	}
	start, err := strconv.ParseInt(fields[1], 10, 32)
	if err != nil {
		return "", interval, fmt.Errorf("%w, in sites line %v", err, line)
	}
	end, err := strconv.ParseInt(fields[2], 10, 32)
	if err != nil {
		return "", interval, fmt.Errorf("%w, in sites line %v", err, line)
	}
	if end < start {
		return "", interval, fmt.Errorf("invalid sites line %v - end before start", line)
	}
	return fields[0], Interval{int32(start), int32(end)}, nil
}

// FromElsitesFile loads target regions from a .elsites file. The
// intervals of each chromosome are returned sorted and flattened.
func FromElsitesFile(filename string) (intervals map[string][]Interval, err error) {
	pathname, err := filepath.Abs(filename)
	if err != nil {
		return nil, err
	}
	in, err := os.Open(pathname)
	if err != nil {
		return nil, err
	}
	defer func() {
		if nerr := in.Close(); err == nil {
			err = nerr
		}
	}()
	input := bufio.NewReader(in)
	header, err := input.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("%v is not a .elsites file - %w", filename, err)
	}
	if header != ElsitesHeader {
		return nil, fmt.Errorf("%v is not a .elsites file - invalid header", filename)
	}
	var p pipeline.Pipeline
	p.Source(pipeline.NewScanner(input))
	p.Add(pipeline.LimitedPar(0, pipeline.Receive(func(_ int, data interface{}) interface{} {
		batch := make(map[string][]Interval)
		for _, line := range data.([]string) {
			if line == "" || line[0] == '#' {
				continue
			}
			chrom, interval, err := parseElsitesLine(line)
			if err != nil {
				p.SetErr(err)
				return batch
			}
			batch[chrom] = append(batch[chrom], interval)
		}
		return batch
	})))
	intervals = make(map[string][]Interval)
	p.Add(pipeline.Ord(pipeline.Receive(func(_ int, data interface{}) interface{} {
		for chrom, ivals := range data.(map[string][]Interval) {
			intervals[chrom] = append(intervals[chrom], ivals...)
		}
		return data
	})))
	p.Run()
	if err = p.Err(); err != nil {
		return nil, err
	}
	for chrom, ivals := range intervals {
		ParallelSortByStart(ivals)
		intervals[chrom] = ParallelFlatten(ivals)
	}
	return intervals, nil
}
