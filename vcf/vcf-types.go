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

// Package vcf writes VCF 4.3 files.
package vcf

import (
	"strconv"

	"github.com/exascience/elsomatic/utils"
)

// FileFormatVersionLine is the first line of every VCF file written by
// this package.
const FileFormatVersionLine = "##fileformat=VCFv4.3"

// DefaultHeaderColumns are the mandatory VCF columns.
var DefaultHeaderColumns = []string{"CHROM", "POS", "ID", "REF", "ALT", "QUAL", "FILTER", "INFO"}

// Type is an enumeration type for VCF field types.
type Type uint

// The VCF field types.
const (
	InvalidType Type = iota
	Integer          // represented as int
	Float            // represented as float64
	Flag             // represented as bool with fixed value true
	Character        // represented as rune
	String           // represented as string
)

var typeNames = [...]string{
	Integer:   "Integer",
	Float:     "Float",
	Flag:      "Flag",
	Character: "Character",
	String:    "String",
}

// Number values for header field declarations that are not counts.
const (
	NumberA int32 = -1 * (1 + iota)
	NumberR
	NumberG
	NumberDot
	InvalidNumber
)

// Commonly used VCF entries.
var (
	GT   = utils.Intern("GT")
	PASS = utils.Intern("PASS")
)

type (
	// MetaInformation is a structured meta-information value, as in
	// ##FILTER=<ID=...,Description="..."> or ##contig=<ID=...,length=...>.
	MetaInformation struct {
		ID          utils.Symbol
		Description string // "" if not present
		Fields      utils.SmallMap // string values, in output order
	}

	// FormatInformation declares an INFO or FORMAT field.
	FormatInformation struct {
		ID          utils.Symbol
		Description string
		Number      int32 // > InvalidNumber
		Type        Type
	}

	// MetaLine is a ##key=value header line. The value is a string or
	// a *MetaInformation.
	MetaLine struct {
		Key   string
		Value interface{}
	}

	// Header is the header section of a VCF file. Meta lines are
	// written in the order they were added.
	Header struct {
		FileFormat string
		Meta       []MetaLine
		Infos      []*FormatInformation
		Formats    []*FormatInformation
		Columns    []string
	}

	// Record is a data line of a VCF file.
	Record struct {
		Chrom          string
		Pos            int32    // < 0 if unknown
		ID             []string // nil/empty if missing
		Ref            string
		Alt            []string
		Qual           interface{}    // float64, or nil if missing
		Filter         []utils.Symbol // nil/empty if missing
		Info           utils.SmallMap // values are int, float64, bool, rune, string, or []interface{}
		GenotypeFormat []utils.Symbol
		GenotypeData   []utils.SmallMap
	}
)

// NewHeader creates a header with the mandatory columns, followed by
// FORMAT and the given sample columns if there are any.
func NewHeader(samples ...string) *Header {
	columns := append([]string(nil), DefaultHeaderColumns...)
	if len(samples) > 0 {
		columns = append(append(columns, "FORMAT"), samples...)
	}
	return &Header{FileFormat: FileFormatVersionLine, Columns: columns}
}

// AddMeta appends a ##key=value line.
func (header *Header) AddMeta(key string, value interface{}) {
	header.Meta = append(header.Meta, MetaLine{Key: key, Value: value})
}

// AddFilter declares a FILTER value.
func (header *Header) AddFilter(id, description string) {
	header.AddMeta("FILTER", &MetaInformation{ID: utils.Intern(id), Description: description})
}

// AddContig declares a contig with its length.
func (header *Header) AddContig(id string, length int32) {
	meta := &MetaInformation{ID: utils.Intern(id)}
	meta.Fields.Set(utils.Intern("length"), strconv.FormatInt(int64(length), 10))
	header.AddMeta("contig", meta)
}

// AddInfo declares an INFO field.
func (header *Header) AddInfo(id string, number int32, typ Type, description string) utils.Symbol {
	sym := utils.Intern(id)
	header.Infos = append(header.Infos, &FormatInformation{ID: sym, Description: description, Number: number, Type: typ})
	return sym
}

// AddFormat declares a FORMAT field.
func (header *Header) AddFormat(id string, number int32, typ Type, description string) utils.Symbol {
	sym := utils.Intern(id)
	header.Formats = append(header.Formats, &FormatInformation{ID: sym, Description: description, Number: number, Type: typ})
	return sym
}

// Pass determines whether the record passed all filters.
func (r *Record) Pass() bool {
	return len(r.Filter) == 1 && r.Filter[0] == PASS
}
