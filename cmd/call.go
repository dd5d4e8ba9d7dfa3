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

package cmd

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/exascience/elsomatic/caller"
	"github.com/exascience/elsomatic/evidence"
	"github.com/exascience/elsomatic/intervals"
	"github.com/exascience/elsomatic/jitter"
	"github.com/exascience/elsomatic/vcf"
)

// CallHelp is the help string for this command.
const CallHelp = "\ncall parameters:\n" +
	"elsomatic call evidence-file vcf-output-file\n" +
	"[--config yaml-file]\n" +
	"[--calibration jitter-file]\n" +
	"[--target-regions elsites-file]\n" +
	"[--chromosomes list]\n" +
	"[--region-size nr]\n" +
	"[--min-position nr]\n" +
	"[--max-position nr]\n" +
	"[--panel-only]\n" +
	"[--hard-filter]\n" +
	"[--filtered-max-normal-alt-support nr]\n" +
	"[--retries nr]\n" +
	"[--nr-of-threads nr]\n" +
	"[--parallel-chromosomes nr]\n" +
	"[--timed]\n" +
	"[--profile file]\n" +
	"[--log-path path]\n"

// Call implements the elsomatic call command.
func Call() error {
	var (
		configFile, calibrationFile, targetRegions, chromosomes string
		regionSize, minPosition, maxPosition                    int
		panelOnly, hardFilter                                   bool
		maxNormalAltSupport                                     int
		retries, nrOfThreads, parallelChromosomes               int
		timed                                                   bool
		profile, logPath                                        string
	)

	var flags flag.FlagSet

	flags.StringVar(&configFile, "config", "", "read settings from a YAML file")
	flags.StringVar(&calibrationFile, "calibration", "", "jitter error rates per sample and repeat")
	flags.StringVar(&targetRegions, "target-regions", "", "only call variants in the given regions (elsites format)")
	flags.StringVar(&chromosomes, "chromosomes", "", "comma-separated list of chromosomes to call")
	flags.IntVar(&regionSize, "region-size", intervals.DefaultSliceSize, "length of the regions counted in parallel")
	flags.IntVar(&minPosition, "min-position", 0, "skip positions before this one")
	flags.IntVar(&maxPosition, "max-position", 0, "skip positions after this one")
	flags.BoolVar(&panelOnly, "panel-only", false, "only output hotspot and panel variants")
	flags.BoolVar(&hardFilter, "hard-filter", false, "drop all filtered variants")
	flags.IntVar(&maxNormalAltSupport, "filtered-max-normal-alt-support", -1, "drop filtered variants outside passing phase sets with more normal alt support")
	flags.IntVar(&retries, "retries", 0, "number of retries of failed evidence counts")
	flags.IntVar(&nrOfThreads, "nr-of-threads", 0, "number of worker threads")
	flags.IntVar(&parallelChromosomes, "parallel-chromosomes", 1, "number of chromosomes called at the same time")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	parseFlags(&flags, 4, CallHelp)

	input := getFilename(os.Args[2], CallHelp)
	output := getFilename(os.Args[3], CallHelp)

	if err := setLogOutput(logPath); err != nil {
		return err
	}

	// sanity checks

	var sanityChecksFailed bool

	if !checkExist("", input) {
		sanityChecksFailed = true
	}
	if !checkCreate("", output) {
		sanityChecksFailed = true
	}
	if configFile != "" && !checkExist("--config", configFile) {
		sanityChecksFailed = true
	}
	if calibrationFile != "" && !checkExist("--calibration", calibrationFile) {
		sanityChecksFailed = true
	}
	if targetRegions != "" && !checkExist("--target-regions", targetRegions) {
		sanityChecksFailed = true
	}

	cfg := caller.DefaultConfig()
	if configFile != "" {
		if err := cfg.LoadConfigFile(configFile); err != nil {
			return err
		}
	}
	if err := cfg.LoadEnv(); err != nil {
		return err
	}

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " call ", input, " ", output)
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "chromosomes":
			cfg.Chromosomes = strings.Split(chromosomes, ",")
		case "region-size":
			cfg.RegionSliceSize = int32(regionSize)
		case "min-position":
			cfg.MinPosition = int32(minPosition)
		case "max-position":
			cfg.MaxPosition = int32(maxPosition)
		case "panel-only":
			cfg.PanelOnly = panelOnly
		case "hard-filter":
			cfg.HardFilter = hardFilter
		case "filtered-max-normal-alt-support":
			cfg.FilteredMaxNormalAltSupport = maxNormalAltSupport
		case "retries":
			cfg.Retries = retries
		case "nr-of-threads":
			cfg.Threads = nrOfThreads
		case "parallel-chromosomes":
			cfg.ParallelChromosomes = parallelChromosomes
		}
		if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
			fmt.Fprint(&command, " --", f.Name)
		} else {
			fmt.Fprint(&command, " --", f.Name, " ", f.Value)
		}
	})

	if err := cfg.Validate(); err != nil {
		sanityChecksFailed = true
		log.Println("Error:", err)
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, CallHelp)
		return errors.New("sanity checks failed")
	}

	if cfg.Threads > 0 {
		runtime.GOMAXPROCS(cfg.Threads)
	}

	log.Println("Executing command:\n", command.String())

	var (
		table       *evidence.Table
		calibration *jitter.Table
		targets     map[string][]intervals.Interval
	)
	phase := int64(1)
	err := timedRun(timed, profile, "Loading evidence.", phase, func() (err error) {
		if table, err = evidence.LoadTable(input); err != nil {
			return err
		}
		log.Printf("Loaded %v candidate variants.\n", table.Variants())
		if calibrationFile != "" {
			if calibration, err = jitter.LoadTable(calibrationFile, cfg.Jitter.DefaultErrorRate); err != nil {
				return err
			}
			log.Printf("Loaded jitter calibration for %v samples.\n", calibration.Samples())
		}
		if targetRegions != "" {
			targets, err = intervals.FromElsitesFile(targetRegions)
		}
		return err
	})
	if err != nil {
		return err
	}

	var model *jitter.Model
	if calibration != nil {
		model = jitter.NewModel(cfg.Jitter, calibration)
	} else {
		log.Println("Warning: No jitter calibration given, the jitter noise model is disabled.")
	}

	phase++
	return timedRun(timed, profile, "Calling variants.", phase, func() (err error) {
		pathname, err := filepath.Abs(output)
		if err != nil {
			return err
		}
		out, err := vcf.Create(pathname)
		if err != nil {
			return err
		}
		defer func() {
			if nerr := out.Close(); err == nil {
				err = nerr
			}
		}()
		normal, tumor := table.Samples()
		runID := caller.NewRunID()
		log.Println("Run id", runID)
		sink, err := caller.NewVcfSink(out.Writer, caller.VcfHeader(normal, tumor, table.Contigs(), runID), normal, tumor)
		if err != nil {
			return err
		}
		return caller.Run(&cfg, table, model, table.Contigs(), targets, sink)
	})
}
