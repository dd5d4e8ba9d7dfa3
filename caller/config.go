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

// Package caller turns per-region candidate variants into the ordered,
// phased, and filtered variant stream of a run, one chromosome at a
// time.
package caller

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/exascience/elsomatic/intervals"
	"github.com/exascience/elsomatic/jitter"
	"github.com/exascience/elsomatic/phase"
)

// EnvPrefix is the prefix of environment variables that override
// configuration settings, as in ELSOMATIC_REGION_SIZE.
const EnvPrefix = "ELSOMATIC"

// Config holds the settings of a run.
type Config struct {
	// evidence counting workers per chromosome, 0 for GOMAXPROCS
	Threads int `yaml:"nr-of-threads" envconfig:"NR_OF_THREADS"`
	// chromosomes processed at the same time
	ParallelChromosomes int `yaml:"parallel-chromosomes" envconfig:"PARALLEL_CHROMOSOMES"`
	// length of the regions a chromosome is partitioned into
	RegionSliceSize int32 `yaml:"region-size" envconfig:"REGION_SIZE"`
	// positions outside [MinPosition, MaxPosition] are skipped, 0 for no bound
	MinPosition int32 `yaml:"min-position" envconfig:"MIN_POSITION"`
	MaxPosition int32 `yaml:"max-position" envconfig:"MAX_POSITION"`
	// restricts the run to these chromosomes if not empty
	Chromosomes []string `yaml:"chromosomes" envconfig:"CHROMOSOMES"`
	// only emit hotspot and panel variants
	PanelOnly bool `yaml:"panel-only" envconfig:"PANEL_ONLY"`
	// drop all filtered variants
	HardFilter bool `yaml:"hard-filter" envconfig:"HARD_FILTER"`
	// drop filtered variants outside passing phase sets whose first normal
	// sample has more alt support than this, negative to keep them
	FilteredMaxNormalAltSupport int `yaml:"filtered-max-normal-alt-support" envconfig:"FILTERED_MAX_NORMAL_ALT_SUPPORT"`
	// retries of a failed evidence count
	Retries int `yaml:"retries" envconfig:"RETRIES"`

	Phase  phase.Config  `yaml:"phase" envconfig:"PHASE"`
	Jitter jitter.Config `yaml:"jitter" envconfig:"JITTER"`
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{
		ParallelChromosomes:         1,
		FilteredMaxNormalAltSupport: -1,
		RegionSliceSize:             intervals.DefaultSliceSize,
		Phase:                       phase.DefaultConfig(),
		Jitter:                      jitter.DefaultConfig(),
	}
}

// LoadConfigFile overrides settings with those present in a YAML file.
func (cfg *Config) LoadConfigFile(filename string) (err error) {
	pathname, err := filepath.Abs(filename)
	if err != nil {
		return err
	}
	f, err := os.Open(pathname)
	if err != nil {
		return err
	}
	defer func() {
		if nerr := f.Close(); err == nil {
			err = nerr
		}
	}()
	if err = yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("%w, in configuration file %v", err, filename)
	}
	return nil
}

// LoadEnv overrides settings with those present in the environment.
func (cfg *Config) LoadEnv() error {
	return envconfig.Process(EnvPrefix, cfg)
}

// Validate checks the settings.
func (cfg *Config) Validate() error {
	if cfg.Threads < 0 {
		return errors.New("negative number of threads")
	}
	if cfg.ParallelChromosomes < 1 {
		return errors.New("number of parallel chromosomes must be at least 1")
	}
	if cfg.RegionSliceSize < 1 {
		return errors.New("region size must be at least 1")
	}
	if cfg.MinPosition < 0 || cfg.MaxPosition < 0 {
		return errors.New("negative position bound")
	}
	if cfg.MaxPosition > 0 && cfg.MaxPosition < cfg.MinPosition {
		return fmt.Errorf("maximum position %v before minimum position %v", cfg.MaxPosition, cfg.MinPosition)
	}
	if cfg.Retries < 0 {
		return errors.New("negative number of retries")
	}
	if err := cfg.Phase.Validate(); err != nil {
		return err
	}
	return cfg.Jitter.Validate()
}

// includes determines whether variants on the given chromosome are
// called.
func (cfg *Config) includes(chromosome string) bool {
	if len(cfg.Chromosomes) == 0 {
		return true
	}
	for _, c := range cfg.Chromosomes {
		if c == chromosome {
			return true
		}
	}
	return false
}
