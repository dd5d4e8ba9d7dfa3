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

package jitter

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type (
	// Rates looks up calibrated sequencing error rates for one sample.
	Rates interface {
		// ErrorRate returns the rate at which a repeat of the given
		// unit and count is read with repeatChange units added.
		ErrorRate(repeatUnit string, repeatCount, repeatChange int) float64
	}

	// Calibration provides the error rates per sample.
	Calibration interface {
		SampleRates(sample string) (Rates, bool)
	}
)

type rateKey struct {
	unit          string
	count, change int
}

// A Table is a calibration backed by explicit per-sample error rates.
type Table struct {
	defaultRate float64
	samples     map[string]*sampleRates
}

type sampleRates struct {
	defaultRate float64
	rates       map[rateKey]float64
}

// NewTable creates an empty calibration table. Repeats without an
// explicit entry get the default rate.
func NewTable(defaultRate float64) *Table {
	return &Table{defaultRate: defaultRate, samples: make(map[string]*sampleRates)}
}

// Set records an error rate for the given sample and repeat.
func (t *Table) Set(sample, repeatUnit string, repeatCount, repeatChange int, rate float64) {
	rates, ok := t.samples[sample]
	if !ok {
		rates = &sampleRates{defaultRate: t.defaultRate, rates: make(map[rateKey]float64)}
		t.samples[sample] = rates
	}
	rates.rates[rateKey{repeatUnit, repeatCount, repeatChange}] = rate
}

// AddSample makes sure the sample is calibrated, even if all its
// repeats use the default rate.
func (t *Table) AddSample(sample string) {
	if _, ok := t.samples[sample]; !ok {
		t.samples[sample] = &sampleRates{defaultRate: t.defaultRate, rates: make(map[rateKey]float64)}
	}
}

// SampleRates implements Calibration.
func (t *Table) SampleRates(sample string) (Rates, bool) {
	rates, ok := t.samples[sample]
	if !ok {
		return nil, false
	}
	return rates, true
}

// Samples returns the number of calibrated samples.
func (t *Table) Samples() int {
	return len(t.samples)
}

func (r *sampleRates) ErrorRate(repeatUnit string, repeatCount, repeatChange int) float64 {
	if rate, ok := r.rates[rateKey{repeatUnit, repeatCount, repeatChange}]; ok {
		return rate
	}
	return r.defaultRate
}

// LoadTable reads a calibration table from a tab-separated file with
// the columns sample, repeat unit, repeat count, repeat change, and
// error rate. Lines starting with # are ignored.
func LoadTable(filename string, defaultRate float64) (table *Table, err error) {
	pathname, err := filepath.Abs(filename)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(pathname)
	if err != nil {
		return nil, err
	}
	defer func() {
		if nerr := file.Close(); err == nil {
			err = nerr
		}
	}()
	table = NewTable(defaultRate)
	scanner := bufio.NewScanner(file)
	for line := 1; scanner.Scan(); line++ {
		str := scanner.Text()
		if str == "" || strings.HasPrefix(str, "#") {
			continue
		}
		fields := strings.Split(str, "\t")
		if len(fields) != 5 {
			return nil, fmt.Errorf("invalid calibration line %v in %v: expected 5 fields, got %v", line, filename, len(fields))
		}
		count, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("%v, in calibration line %v in %v", err, line, filename)
		}
		change, err := strconv.Atoi(fields[3])
		if err != nil {
			return nil, fmt.Errorf("%v, in calibration line %v in %v", err, line, filename)
		}
		rate, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			return nil, fmt.Errorf("%v, in calibration line %v in %v", err, line, filename)
		}
		if rate < 0 || rate > 1 {
			return nil, fmt.Errorf("error rate %v out of range in calibration line %v in %v", rate, line, filename)
		}
		table.Set(fields[0], fields[1], count, change, rate)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return table, nil
}
