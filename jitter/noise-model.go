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
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/exascience/elsomatic/variants"
)

// Outcome classifies the jitter observed at a repeat site.
type Outcome uint8

// The possible outcomes of the noise model.
const (
	Noise Outcome = iota
	ShortenedNoise
	LengthenedNoise
	BothNoise
	FilterVariant
	HardFilterVariant
)

var outcomeNames = [...]string{
	Noise:             "NOISE",
	ShortenedNoise:    "SHORTENED_NOISE",
	LengthenedNoise:   "LENGTHENED_NOISE",
	BothNoise:         "BOTH_NOISE",
	FilterVariant:     "FILTER_VARIANT",
	HardFilterVariant: "HARD_FILTER_VARIANT",
}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("Outcome(%d)", uint8(o))
}

// IsFilter determines whether the outcome filters the variant.
func (o Outcome) IsFilter() bool {
	return o == FilterVariant || o == HardFilterVariant
}

// Config holds the thresholds of the noise model.
type Config struct {
	// tail probability above which full support is considered noise
	NoiseRate float64 `yaml:"noise-rate" envconfig:"NOISE_RATE"`
	// tail probability above which the variant is hard filtered
	HardFilterNoiseRate float64 `yaml:"hard-filter-noise-rate" envconfig:"HARD_FILTER_NOISE_RATE"`
	// lower bound on the error rate at trinucleotide repeats
	MinTrinucleotideErrorRate float64 `yaml:"min-trinucleotide-error-rate" envconfig:"MIN_TRINUCLEOTIDE_ERROR_RATE"`
	// upper bound on the jitter quality boost multiplier
	MaxQualBoost float64 `yaml:"max-qual-boost" envconfig:"MAX_QUAL_BOOST"`
	// error rate used for repeats missing from a calibration table
	DefaultErrorRate float64 `yaml:"default-error-rate" envconfig:"DEFAULT_ERROR_RATE"`
}

// DefaultConfig returns the default noise model thresholds.
func DefaultConfig() Config {
	return Config{
		NoiseRate:                 0.00025,
		HardFilterNoiseRate:       0.1,
		MinTrinucleotideErrorRate: 0.04,
		MaxQualBoost:              1.3,
		DefaultErrorRate:          0.0001,
	}
}

// Validate checks that the thresholds are consistent.
func (cfg Config) Validate() error {
	for _, p := range []float64{cfg.NoiseRate, cfg.HardFilterNoiseRate, cfg.MinTrinucleotideErrorRate, cfg.DefaultErrorRate} {
		if p < 0 || p > 1 {
			return fmt.Errorf("jitter probability %v out of range [0, 1]", p)
		}
	}
	if cfg.HardFilterNoiseRate < cfg.NoiseRate {
		return errors.New("jitter hard filter noise rate is smaller than the noise rate")
	}
	if cfg.MaxQualBoost < 1 {
		return fmt.Errorf("jitter maximum quality boost %v is smaller than 1", cfg.MaxQualBoost)
	}
	return nil
}

// A Model decides whether jitter at repeat sites is consistent with
// the calibrated sequencing error rates.
type Model struct {
	cfg         Config
	calibration Calibration
}

// NewModel creates a noise model.
func NewModel(cfg Config, calibration Calibration) *Model {
	return &Model{cfg: cfg, calibration: calibration}
}

// TailProbability returns the probability of observing at least k
// successes in n trials with success probability p.
func TailProbability(n int, p float64, k int) float64 {
	dist := distuv.Binomial{N: float64(n), P: p}
	return 1 - dist.CDF(float64(k-1))
}

// PairwiseOutcome checks whether support can be explained as noise
// relative to the jitter count.
func (m *Model) PairwiseOutcome(support, jitter int, errorRate float64, trinucleotide bool) Outcome {
	if trinucleotide && errorRate < m.cfg.MinTrinucleotideErrorRate {
		errorRate = m.cfg.MinTrinucleotideErrorRate
	}
	total := support + jitter
	prob := TailProbability(total, errorRate, minInt(support, jitter))
	if prob > m.cfg.HardFilterNoiseRate {
		return HardFilterVariant
	} else if prob > m.cfg.NoiseRate {
		return FilterVariant
	}
	// a low support count relative to the total is within noise
	if float64(support)/float64(total) < 2*errorRate {
		return FilterVariant
	}
	return Noise
}

// Outcome classifies the jitter of the given counter. It returns false
// if the site is not repeat-associated, or if the sample has no
// calibration.
func (m *Model) Outcome(c *variants.SupportCounter) (Outcome, bool) {
	if c.Repeat == nil {
		return Noise, false
	}
	rates, ok := m.calibration.SampleRates(c.Sample)
	if !ok {
		return Noise, false
	}
	unit, count := c.Repeat.Unit, c.Repeat.Count
	trinucleotide := c.Repeat.IsTrinucleotide()
	full, shortened, lengthened := c.Full, c.Shortened, c.Lengthened

	shortenedRate := rates.ErrorRate(unit, count-1, 1)
	lengthenedRate := rates.ErrorRate(unit, count+1, -1)

	outcome := Noise

	if shortened > full {
		if o := m.PairwiseOutcome(full, shortened, shortenedRate, trinucleotide); o != Noise {
			return o, true
		}
	} else if full > shortened {
		// roles reversed: is the shortened count noise next to full support?
		if m.PairwiseOutcome(shortened, full, rates.ErrorRate(unit, count, -1), trinucleotide) != Noise {
			outcome = ShortenedNoise
		}
	}

	if lengthened > full {
		if o := m.PairwiseOutcome(full, lengthened, lengthenedRate, trinucleotide); o != Noise {
			return o, true
		}
	} else if full > lengthened {
		if m.PairwiseOutcome(lengthened, full, rates.ErrorRate(unit, count, 1), trinucleotide) != Noise {
			if outcome == ShortenedNoise {
				outcome = BothNoise
			} else {
				outcome = LengthenedNoise
			}
		}
	}

	if minInt(shortened, lengthened) >= full {
		total := full + shortened + lengthened
		averageRate := (shortenedRate + lengthenedRate) * 0.5
		if float64(full)/float64(total) < 2*averageRate {
			return FilterVariant, true
		}
		prob := TailProbability(total, averageRate, full)
		if prob > m.cfg.HardFilterNoiseRate {
			return HardFilterVariant, true
		} else if prob > m.cfg.NoiseRate {
			return FilterVariant, true
		}
	}

	return outcome, true
}

// Apply runs the noise model on the given counter and records the
// filter state and quality boost in it.
func (m *Model) Apply(c *variants.SupportCounter) Outcome {
	outcome, ok := m.Outcome(c)
	if !ok {
		return outcome
	}
	switch outcome {
	case HardFilterVariant:
		c.FilterOnNoise = true
		c.HardFilterOnNoise = true
		return outcome
	case FilterVariant:
		c.FilterOnNoise = true
		return outcome
	}
	c.FilterOnNoise = false
	c.HardFilterOnNoise = false
	c.JitterQualBoost = 1
	if c.Full > 0 {
		full := float64(c.Full)
		if outcome == ShortenedNoise || outcome == BothNoise {
			c.JitterQualBoost += float64(c.Shortened) / full
		}
		if outcome == LengthenedNoise || outcome == BothNoise {
			c.JitterQualBoost += float64(c.Lengthened) / full
		}
	}
	if c.JitterQualBoost > m.cfg.MaxQualBoost {
		c.JitterQualBoost = m.cfg.MaxQualBoost
	}
	return outcome
}

// ApplyVariant runs the noise model on all counters of the variant,
// and attaches a jitter filter if a tumor counter is filtered. Without
// tumor counters, the normal counters decide.
func (m *Model) ApplyVariant(v *variants.Variant) {
	for _, c := range v.Normal {
		m.Apply(c)
	}
	for _, c := range v.Tumor {
		m.Apply(c)
	}
	deciding := v.Tumor
	if len(deciding) == 0 {
		deciding = v.Normal
	}
	var filter, hardFilter bool
	for _, c := range deciding {
		filter = filter || c.FilterOnNoise
		hardFilter = hardFilter || c.HardFilterOnNoise
	}
	if hardFilter {
		v.Filters.Add(variants.HardJitter)
	} else if filter {
		v.Filters.Add(variants.Jitter)
	}
}

func minInt(x, y int) int {
	if x < y {
		return x
	}
	return y
}
