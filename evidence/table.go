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

package evidence

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/exascience/pargo/pipeline"

	"github.com/exascience/elsomatic/intervals"
	"github.com/exascience/elsomatic/variants"
)

// TableHeader is the header line that every evidence file starts with.
const TableHeader = "# elsomatic evidence format version 1.0\n"

// ContigPrefix starts an optional comment line that declares the
// length of a chromosome: "#contig<TAB>name<TAB>length".
const ContigPrefix = "#contig\t"

const (
	colChrom = iota
	colPos
	colRef
	colAlt
	colTier
	colRole
	colSample
	colFull
	colPartial
	colCore
	colRealigned
	colReference
	colTotal
	colShortened
	colLengthened
	colRepeatUnit
	colRepeatCount
	colAllUnits
	colFilters
	nColumns
)

// Contig is a chromosome name with its length.
type Contig struct {
	Name   string
	Length int32
}

// Table is a Counter that serves candidate variants loaded from an
// evidence file.
type Table struct {
	contigs       []Contig
	variants      map[string][]*variants.Variant
	normal, tumor []string
}

// row is either a contig declaration or the counts of one sample.
type row struct {
	contig   *Contig
	chrom    string
	pos      int32
	ref, alt string
	tier     variants.Tier
	tumor    bool
	counter  *variants.SupportCounter
	filters  []variants.Filter
}

func dotOr(field string) string {
	if field == "." {
		return ""
	}
	return field
}

func parseContig(line string) (Contig, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 3 || fields[1] == "" {
		return Contig{}, fmt.Errorf("invalid contig line %v", line)
	}
	length, err := strconv.ParseInt(fields[2], 10, 32)
	if err != nil || length < 1 {
		return Contig{}, fmt.Errorf("invalid contig length in line %v", line)
	}
	return Contig{Name: fields[1], Length: int32(length)}, nil
}

func parseRow(line string) (r row, err error) {
	fields := strings.Split(line, "\t")
	if len(fields) != nColumns {
		return r, fmt.Errorf("expected %v fields, got %v", nColumns, len(fields))
	}
	r.chrom, r.ref, r.alt = fields[colChrom], fields[colRef], fields[colAlt]
	if r.chrom == "" {
		return r, fmt.Errorf("missing chromosome")
	}
	pos, err := strconv.ParseInt(fields[colPos], 10, 32)
	if err != nil {
		return r, err
	}
	r.pos = int32(pos)
	if r.tier, err = variants.ParseTier(fields[colTier]); err != nil {
		return r, err
	}
	switch fields[colRole] {
	case "tumor":
		r.tumor = true
	case "normal":
	default:
		return r, fmt.Errorf("unknown sample role %v", fields[colRole])
	}
	c := variants.NewSupportCounter(fields[colSample])
	counts := [...]*int{
		colFull: &c.Full, colPartial: &c.Partial, colCore: &c.Core,
		colRealigned: &c.Realigned, colReference: &c.Reference, colTotal: &c.Total,
		colShortened: &c.Shortened, colLengthened: &c.Lengthened,
	}
	for col := colFull; col <= colLengthened; col++ {
		if *counts[col], err = strconv.Atoi(fields[col]); err != nil {
			return r, err
		}
	}
	if unit := dotOr(fields[colRepeatUnit]); unit != "" {
		count, err := strconv.Atoi(fields[colRepeatCount])
		if err != nil {
			return r, err
		}
		c.Repeat = &variants.RepeatContext{Unit: unit, Count: count}
		if units := dotOr(fields[colAllUnits]); units != "" {
			c.Repeat.AllUnits = strings.Split(units, ",")
		}
	}
	if err = c.Validate(); err != nil {
		return r, err
	}
	r.counter = c
	if filters := dotOr(fields[colFilters]); filters != "" && filters != "PASS" {
		for _, name := range strings.Split(filters, ";") {
			filter, err := variants.ParseFilter(name)
			if err != nil {
				return r, err
			}
			r.filters = append(r.filters, filter)
		}
	}
	return r, nil
}

func (r *row) sameVariant(v *variants.Variant) bool {
	return v != nil && r.chrom == v.Chromosome && r.pos == v.Position && r.ref == v.Ref && r.alt == v.Alt
}

// LoadTable reads an evidence file. Each line holds the counts of one
// sample for one candidate variant. Consecutive lines for the same
// chromosome, position, ref, and alt form a single variant, whose tier
// and initial filters are taken from its first line.
func LoadTable(filename string) (table *Table, err error) {
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
	if err != nil || header != TableHeader {
		return nil, fmt.Errorf("%v is not an evidence file - invalid header", filename)
	}
	table = &Table{variants: make(map[string][]*variants.Variant)}
	var (
		last    *variants.Variant
		lengths = make(map[string]int32)
	)
	var p pipeline.Pipeline
	p.Source(pipeline.NewScanner(input))
	p.Add(pipeline.LimitedPar(0, pipeline.Receive(func(_ int, data interface{}) interface{} {
		var batch []row
		for _, line := range data.([]string) {
			switch {
			case strings.HasPrefix(line, ContigPrefix):
				contig, err := parseContig(line)
				if err != nil {
					p.SetErr(fmt.Errorf("%w, in %v", err, filename))
					return batch
				}
				batch = append(batch, row{contig: &contig})
			case line == "" || line[0] == '#':
			default:
				r, err := parseRow(line)
				if err != nil {
					p.SetErr(fmt.Errorf("%v, in evidence line %q in %v", err, line, filename))
					return batch
				}
				batch = append(batch, r)
			}
		}
		return batch
	})))
	p.Add(pipeline.StrictOrd(pipeline.Receive(func(_ int, data interface{}) interface{} {
		batch := data.([]row)
		for i := range batch {
			r := &batch[i]
			if r.contig != nil {
				table.addContig(r.contig.Name)
				lengths[r.contig.Name] = r.contig.Length
				continue
			}
			if !r.sameVariant(last) {
				last = &variants.Variant{Chromosome: r.chrom, Position: r.pos, Ref: r.ref, Alt: r.alt, Tier: r.tier}
				for _, filter := range r.filters {
					last.Filters.Add(filter)
				}
				table.addContig(r.chrom)
				table.variants[r.chrom] = append(table.variants[r.chrom], last)
			}
			if r.tumor {
				last.Tumor = append(last.Tumor, r.counter)
				table.tumor = addSample(table.tumor, r.counter.Sample)
			} else {
				last.Normal = append(last.Normal, r.counter)
				table.normal = addSample(table.normal, r.counter.Sample)
			}
		}
		return nil
	})))
	p.Run()
	if err = p.Err(); err != nil {
		return nil, err
	}
	for i := range table.contigs {
		contig := &table.contigs[i]
		vars := table.variants[contig.Name]
		sort.SliceStable(vars, func(i, j int) bool {
			return vars[i].Position < vars[j].Position
		})
		for _, v := range vars {
			if err := v.Validate(); err != nil {
				return nil, fmt.Errorf("%w, in %v", err, filename)
			}
			if end := v.End(); end > contig.Length {
				contig.Length = end
			}
		}
		if length, ok := lengths[contig.Name]; ok {
			if length < contig.Length {
				return nil, fmt.Errorf("variant beyond declared length %v of contig %v in %v", length, contig.Name, filename)
			}
			contig.Length = length
		}
	}
	return table, nil
}

func (table *Table) addContig(name string) {
	if _, ok := table.variants[name]; ok {
		return
	}
	table.variants[name] = nil
	table.contigs = append(table.contigs, Contig{Name: name})
}

func addSample(samples []string, sample string) []string {
	for _, s := range samples {
		if s == sample {
			return samples
		}
	}
	return append(samples, sample)
}

// Samples returns the normal and tumor sample names in the order they
// first occur in the file.
func (table *Table) Samples() (normal, tumor []string) {
	return append([]string(nil), table.normal...), append([]string(nil), table.tumor...)
}

// Contigs returns the chromosomes of the table in the order they first
// occur in the file. A chromosome without a declared length extends to
// the end of its last variant.
func (table *Table) Contigs() []Contig {
	return append([]Contig(nil), table.contigs...)
}

// Variants returns the number of candidate variants in the table.
func (table *Table) Variants() (n int) {
	for _, vars := range table.variants {
		n += len(vars)
	}
	return n
}

// Count implements Counter. It returns fresh copies of the candidate
// variants that start inside the region, so that repeated counts of the
// same region are independent.
func (table *Table) Count(chromosome string, region intervals.Interval) ([]*variants.Variant, error) {
	vars := table.variants[chromosome]
	low := sort.Search(len(vars), func(i int) bool {
		return vars[i].Position >= region.Start
	})
	high := sort.Search(len(vars), func(i int) bool {
		return vars[i].Position > region.End
	})
	result := make([]*variants.Variant, 0, high-low)
	for _, v := range vars[low:high] {
		result = append(result, v.Copy())
	}
	return result, nil
}
