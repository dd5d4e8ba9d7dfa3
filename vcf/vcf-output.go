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

package vcf

import (
	"bufio"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"unicode/utf8"

	"github.com/biogo/hts/bgzf"

	"github.com/exascience/elsomatic/utils"
)

// FormatString writes a double-quoted string, escaping quotes and
// backslashes.
func FormatString(out io.ByteWriter, str string) error {
	_ = out.WriteByte('"')
	for i := 0; i < len(str); i++ {
		if b := str[i]; b == '"' || b == '\\' {
			_ = out.WriteByte('\\')
		}
		_ = out.WriteByte(str[i])
	}
	return out.WriteByte('"')
}

func needsQuotes(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"', ' ', ',':
			return true
		}
	}
	return false
}

func formatMetaInformation(out *bufio.Writer, meta interface{}) error {
	switch m := meta.(type) {
	case string:
		_, _ = out.WriteString(m)
	case *MetaInformation:
		_, _ = out.WriteString("<ID=")
		_, _ = out.WriteString(*m.ID)
		for _, field := range m.Fields {
			value, ok := field.Value.(string)
			if !ok {
				return errors.New("invalid meta-information field value")
			}
			_ = out.WriteByte(',')
			_, _ = out.WriteString(*field.Key)
			_ = out.WriteByte('=')
			if needsQuotes(value) {
				_ = FormatString(out, value)
			} else {
				_, _ = out.WriteString(value)
			}
		}
		if m.Description != "" {
			_, _ = out.WriteString(",Description=")
			_ = FormatString(out, m.Description)
		}
		_ = out.WriteByte('>')
	default:
		return errors.New("invalid meta-information type")
	}
	return out.WriteByte('\n')
}

func formatFormatInformation(out *bufio.Writer, format *FormatInformation) error {
	_, _ = out.WriteString("<ID=")
	_, _ = out.WriteString(*format.ID)
	_, _ = out.WriteString(",Number=")
	switch {
	case format.Number >= 0:
		_, _ = out.WriteString(strconv.FormatInt(int64(format.Number), 10))
	case format.Number == NumberA:
		_ = out.WriteByte('A')
	case format.Number == NumberR:
		_ = out.WriteByte('R')
	case format.Number == NumberG:
		_ = out.WriteByte('G')
	case format.Number == NumberDot:
		_ = out.WriteByte('.')
	default:
		return errors.New("unknown Number kind in a VCF meta-information line")
	}
	if format.Type == InvalidType || int(format.Type) >= len(typeNames) {
		return errors.New("invalid Type in a VCF meta-information line")
	}
	_, _ = out.WriteString(",Type=")
	_, _ = out.WriteString(typeNames[format.Type])
	_, _ = out.WriteString(",Description=")
	_ = FormatString(out, format.Description)
	_, err := out.WriteString(">\n")
	return err
}

// Format writes the header, including the column line.
func (header *Header) Format(out *bufio.Writer) error {
	_, _ = out.WriteString(header.FileFormat)
	_ = out.WriteByte('\n')
	for _, meta := range header.Meta {
		_, _ = out.WriteString("##")
		_, _ = out.WriteString(meta.Key)
		_ = out.WriteByte('=')
		if err := formatMetaInformation(out, meta.Value); err != nil {
			return err
		}
	}
	for _, info := range header.Infos {
		_, _ = out.WriteString("##INFO=")
		if err := formatFormatInformation(out, info); err != nil {
			return err
		}
	}
	for _, format := range header.Formats {
		_, _ = out.WriteString("##FORMAT=")
		if err := formatFormatInformation(out, format); err != nil {
			return err
		}
	}
	_ = out.WriteByte('#')
	for i, col := range header.Columns {
		if i > 0 {
			_ = out.WriteByte('\t')
		}
		_, _ = out.WriteString(col)
	}
	return out.WriteByte('\n')
}

func formatList(out []byte, list []string, separator byte) []byte {
	if len(list) == 0 {
		return append(out, '.')
	}
	out = append(out, list[0]...)
	for _, entry := range list[1:] {
		out = append(append(out, separator), entry...)
	}
	return out
}

func formatSymbols(out []byte, list []utils.Symbol, separator byte) []byte {
	if len(list) == 0 {
		return append(out, '.')
	}
	out = append(out, *list[0]...)
	for _, sym := range list[1:] {
		out = append(append(out, separator), *sym...)
	}
	return out
}

func formatValue(out []byte, value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return append(out, '.'), nil
	case int:
		return strconv.AppendInt(out, int64(v), 10), nil
	case float64:
		return strconv.AppendFloat(out, v, 'f', -1, 64), nil
	case rune:
		return utf8.AppendRune(out, v), nil
	case string:
		return append(out, v...), nil
	case []interface{}:
		var err error
		for i, entry := range v {
			if i > 0 {
				out = append(out, ',')
			}
			if out, err = formatValue(out, entry); err != nil {
				return nil, err
			}
		}
		return out, nil
	default:
		return nil, errors.New("invalid value type")
	}
}

func formatInfo(out []byte, info utils.SmallMap) ([]byte, error) {
	if len(info) == 0 {
		return append(out, '.'), nil
	}
	for i, entry := range info {
		if i > 0 {
			out = append(out, ';')
		}
		out = append(out, *entry.Key...)
		if flag, ok := entry.Value.(bool); ok {
			if !flag {
				return nil, errors.New("unexpected boolean value")
			}
			continue
		}
		var err error
		if out, err = formatValue(append(out, '='), entry.Value); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func formatGenotypeData(out []byte, format []utils.Symbol, data utils.SmallMap) ([]byte, error) {
	for i, key := range format {
		if i > 0 {
			out = append(out, ':')
		}
		value, _ := data.Get(key)
		var err error
		if out, err = formatValue(out, value); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Format appends the record as a VCF data line to out.
func (r *Record) Format(out []byte) ([]byte, error) {
	out = append(append(out, r.Chrom...), '\t')
	if r.Pos < 0 {
		out = append(out, '.')
	} else {
		out = strconv.AppendInt(out, int64(r.Pos), 10)
	}
	out = append(out, '\t')
	out = append(formatList(out, r.ID, ';'), '\t')
	out = append(append(out, r.Ref...), '\t')
	out = append(formatList(out, r.Alt, ','), '\t')
	if qual, ok := r.Qual.(float64); ok {
		out = strconv.AppendFloat(out, qual, 'f', -1, 64)
	} else {
		out = append(out, '.')
	}
	out = append(out, '\t')
	out = append(formatSymbols(out, r.Filter, ';'), '\t')
	var err error
	if out, err = formatInfo(out, r.Info); err != nil {
		return nil, err
	}
	if len(r.GenotypeFormat) > 0 {
		out = formatSymbols(append(out, '\t'), r.GenotypeFormat, ':')
		for _, data := range r.GenotypeData {
			if out, err = formatGenotypeData(append(out, '\t'), r.GenotypeFormat, data); err != nil {
				return nil, err
			}
		}
	}
	return append(out, '\n'), nil
}

// GzExt is the file extension of bgzip-compressed VCF files.
const GzExt = ".gz"

// OutputFile is a VCF file for output.
type OutputFile struct {
	wc io.WriteCloser
	*bufio.Writer
	bgzf *bgzf.Writer
}

// Create a VCF file for output.
//
// If the filename extension is .gz, the output is compressed in BGZF
// format, so that it can be indexed with tabix.
//
// If the name is "/dev/stdout", the output is written to os.Stdout.
func Create(name string) (*OutputFile, error) {
	if name == "/dev/stdout" {
		return &OutputFile{os.Stdout, bufio.NewWriter(os.Stdout), nil}, nil
	}
	file, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	if filepath.Ext(name) == GzExt {
		bg := bgzf.NewWriter(file, runtime.GOMAXPROCS(0))
		return &OutputFile{file, bufio.NewWriter(bg), bg}, nil
	}
	return &OutputFile{file, bufio.NewWriter(file), nil}, nil
}

// Close flushes and closes the output file, including the end-of-file
// marker of BGZF output.
func (output *OutputFile) Close() error {
	if err := output.Flush(); err != nil {
		return err
	}
	if output.bgzf != nil {
		if err := output.bgzf.Close(); err != nil {
			return err
		}
	}
	if output.wc != os.Stdout {
		return output.wc.Close()
	}
	return nil
}
