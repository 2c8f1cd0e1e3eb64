// PTRA: Patient Trajectory Analysis Library
// Copyright (c) 2022 imec vzw.

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
// <https://github.com/ExaScience/ptra/blob/master/LICENSE.txt>.

package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"allograph/app"
	"allograph/cache"
	"allograph/chart"
	"allograph/incidence"
	"allograph/logging"
	"allograph/utils"

	"github.com/exascience/pargo/parallel"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

/*
Allograph is a tool for competing risks analysis of allograft registries.

Usage:
	allograph dataFile outputPath [flags]

Example:
	allograph registry.xlsx ./report/ --preset relapse,agvhd --years 2019,2020 --landmarks 100,365 --plot

The flags are:

--analyses file
	A YAML file with analysis definitions: reference date column, events with their occurrence and date columns,
	follow up columns, death value and horizon. Overrides --preset.
--preset relapse | agvhd | cgvhd
	A list of predefined analyses on the registry columns: relapse vs death over 365 days, acute GvHD vs death over
	100 days, chronic GvHD vs death over 365 days.
--maxDays nr
	Overrides the horizon of every analysis, in days after the reference date.
--years list
	Only analyse allografts of the given years, e.g. 2019,2020. The Year column is used when present, otherwise the
	year of the treatment date.
--noDeath
	Censor deaths instead of treating death as a competing risk.
--strictDates
	Abort when a row has no usable reference date instead of leaving the row out.
--dateOrder auto | dayFirst | monthFirst
	The order of day and month in numeric dates such as 05/01/2020. By default it is inferred from the date columns.
--plot
	Draw the stacked cumulative incidences of every analysis to a png file.
--displayDays nr
	Limits the x axis of the figures to the first nr days.
--landmarks list
	Days at which the summary reports the cumulative incidences, e.g. 100,365.
--cacheSize nr
	The number of analysis results kept in memory during the run.
--logLevel debug | info | warn | error
	Sets the log level.
--logFormat console | json
	Sets the log format.
--synthetic nr
	Generate a synthetic registry of nr allografts, write it to dataFile and analyse it.
--seed nr
	The seed for the synthetic registry.
--nrOfThreads nr
	The number of threads allograph uses.
*/

const (
	programVersion = 0.1
	programName    = "allograph"
)

func programMessage() string {
	return fmt.Sprint(programName, " version ", programVersion, " compiled with ", runtime.Version())
}

const allographHelp = "\nallograph parameters:\n" +
	"allograph dataFile outputPath \n" +
	"[--analyses file]\n" +
	"[--preset relapse | agvhd | cgvhd]\n" +
	"[--maxDays nr]\n" +
	"[--years list]\n" +
	"[--noDeath]\n" +
	"[--strictDates]\n" +
	"[--dateOrder auto | dayFirst | monthFirst]\n" +
	"[--plot]\n" +
	"[--displayDays nr]\n" +
	"[--landmarks list]\n" +
	"[--cacheSize nr]\n" +
	"[--logLevel debug | info | warn | error]\n" +
	"[--logFormat console | json]\n" +
	"[--synthetic nr]\n" +
	"[--seed nr]\n" +
	"[--nrOfThreads nr]\n"

func parseFlags(flags *flag.FlagSet, requiredArgs int, help string) {
	if len(os.Args) < requiredArgs {
		fmt.Fprintln(os.Stderr, "Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, help)
		os.Exit(1)
	}
	flags.SetOutput(io.Discard)
	if err := flags.Parse(os.Args[requiredArgs:]); err != nil {
		x := 0
		if err != flag.ErrHelp {
			fmt.Fprint(os.Stderr, err)
			x = 1
		}
		fmt.Fprint(os.Stderr, help)
		os.Exit(x)
	}
	if flags.NArg() > 0 {
		fmt.Fprint(os.Stderr, "Cannot parse remaining parameters:", flags.Args())
		fmt.Fprint(os.Stderr, help)
		os.Exit(1)
	}
}

func getFileName(s, help string) string {
	switch s {
	case "-h", "--h", "-help", "--help":
		fmt.Fprint(os.Stderr, help)
		os.Exit(1)
	}
	return s
}

// getAnalyses returns the analyses of the run: the definitions of the analyses file when given, the presets otherwise.
func getAnalyses(analysesFile, presets string) ([]app.Analysis, error) {
	if analysesFile != "" {
		return app.LoadAnalyses(analysesFile)
	}
	analyses := []app.Analysis{}
	for _, name := range utils.SplitList(presets) {
		a, err := app.Preset(name)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, a)
	}
	if len(analyses) == 0 {
		return nil, fmt.Errorf("no analyses selected")
	}
	return analyses, nil
}

func main() {
	var (
		// required parameters
		dataFile   string //The registry file, csv or xlsx.
		outputPath string //The path where output files are written.
		// optional flags
		analysesFile string
		presets      string
		maxDays      int
		years        string
		noDeath      bool
		strictDates  bool
		dateOrder    string
		plot         bool
		displayDays  int
		landmarks    string
		cacheSize    int
		logLevel     string
		logFormat    string
		synthetic    int
		seed         uint
		nrOfThreads  int
	)
	var flags flag.FlagSet
	// options for the allograph command
	flags.StringVar(&analysesFile, "analyses", "", "A YAML file with analysis definitions.")
	flags.StringVar(&presets, "preset", "relapse,agvhd,cgvhd", "A list of predefined analyses: "+
		strings.Join(app.PresetNames(), ", ")+".")
	flags.IntVar(&maxDays, "maxDays", 0, "Overrides the horizon of every analysis, in days.")
	flags.StringVar(&years, "years", "", "A list of years to restrict the analyses to.")
	flags.BoolVar(&noDeath, "noDeath", false, "Censor deaths instead of treating death as a competing risk.")
	flags.BoolVar(&strictDates, "strictDates", false, "Abort on rows without a usable reference date.")
	flags.StringVar(&dateOrder, "dateOrder", "", "The order of day and month in numeric dates.")
	flags.BoolVar(&plot, "plot", false, "Draw the stacked cumulative incidences to png files.")
	flags.IntVar(&displayDays, "displayDays", 0, "The number of days shown on the x axis of the figures.")
	flags.StringVar(&landmarks, "landmarks", "100,365", "Days at which the summary reports the cumulative "+
		"incidences.")
	flags.IntVar(&cacheSize, "cacheSize", cache.DefaultSize, "The number of analysis results kept in memory.")
	flags.StringVar(&logLevel, "logLevel", "info", "The log level.")
	flags.StringVar(&logFormat, "logFormat", "console", "The log format.")
	flags.IntVar(&synthetic, "synthetic", 0, "Generate a synthetic registry of this many allografts to dataFile.")
	flags.UintVar(&seed, "seed", 1, "The seed for the synthetic registry.")
	flags.IntVar(&nrOfThreads, "nrOfThreads", 0, "The number of threads allograph uses.")
	// parse optional arguments
	parseFlags(&flags, 3, allographHelp)
	// parse required arguments
	dataFile = getFileName(os.Args[1], allographHelp)
	outputPath, _ = filepath.Abs(getFileName(os.Args[2], allographHelp))
	outputPath = outputPath + string(filepath.Separator)
	fmt.Println("Output path: ", outputPath)
	// create output directory
	err := os.MkdirAll(filepath.Dir(outputPath), 0700)
	if err != nil {
		panic(err)
	}
	// build an output command line
	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " ", dataFile, " ", outputPath)
	if analysesFile != "" {
		fmt.Fprint(&command, " --analyses ", analysesFile)
	} else {
		fmt.Fprint(&command, " --preset ", presets)
	}
	if maxDays > 0 {
		fmt.Fprint(&command, " --maxDays ", maxDays)
	}
	if years != "" {
		fmt.Fprint(&command, " --years ", years)
	}
	if noDeath {
		fmt.Fprint(&command, " --noDeath")
	}
	if strictDates {
		fmt.Fprint(&command, " --strictDates")
	}
	if dateOrder != "" {
		fmt.Fprint(&command, " --dateOrder ", dateOrder)
	}
	if plot {
		fmt.Fprint(&command, " --plot")
		fmt.Fprint(&command, " --displayDays ", displayDays)
	}
	fmt.Fprint(&command, " --landmarks ", landmarks)
	fmt.Fprint(&command, " --cacheSize ", cacheSize)
	fmt.Fprint(&command, " --logLevel ", logLevel)
	fmt.Fprint(&command, " --logFormat ", logFormat)
	if synthetic > 0 {
		fmt.Fprint(&command, " --synthetic ", synthetic)
		fmt.Fprint(&command, " --seed ", seed)
	}
	if nrOfThreads > 0 {
		runtime.GOMAXPROCS(nrOfThreads)
		fmt.Fprint(&command, " --nrOfThreads ", nrOfThreads)
	}
	landmarkDays, err := utils.ParseInts(landmarks)
	if err != nil {
		log.Fatal(err)
	}
	selectedYears, err := utils.ParseInts(years)
	if err != nil {
		log.Fatal(err)
	}
	order, err := incidence.ParseDateOrder(dateOrder)
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(logLevel, logFormat, programName)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()
	runID := uuid.New().String()
	logger = logger.With(zap.String("run_id", runID))
	// start execution
	log.Println(programMessage())
	log.Println("Executing command:\n", command.String())
	log.Println("Run id:", runID)
	//1. Load the registry
	if synthetic > 0 {
		if err := app.SaveRegistry(dataFile, app.SyntheticRegistry(synthetic, uint32(seed))); err != nil {
			logger.Fatal("cannot save synthetic registry", zap.Error(err))
		}
		fmt.Println("Generated a synthetic registry of", synthetic, "allografts:", dataFile)
	}
	registry, err := app.LoadRegistry(dataFile)
	if err != nil {
		logger.Fatal("cannot load registry", zap.Error(err))
	}
	fmt.Println("Parsed registry with", len(registry.Rows), "allografts and", len(registry.Columns), "columns.")
	if len(selectedYears) > 0 {
		registry = incidence.ApplyRowFilter(app.RegistryYearFilter(registry, selectedYears), registry)
		fmt.Println("Selected", len(registry.Rows), "allografts of years", years)
	}
	//2. Collect the analyses
	analyses, err := getAnalyses(analysesFile, presets)
	if err != nil {
		logger.Fatal("cannot collect analyses", zap.Error(err))
	}
	for i := range analyses {
		cfg := &analyses[i].Config
		if maxDays > 0 {
			cfg.MaxDays = maxDays
		}
		if noDeath {
			cfg.DeathAsCompetingRisk = false
		}
		if strictDates {
			cfg.MissingReference = incidence.RejectMissingReference
		}
		if order != incidence.AutoDateOrder {
			cfg.DateOrder = order
		}
	}
	//3. Compute the analyses in parallel through a shared result cache
	results, err := cache.New(cacheSize, logger)
	if err != nil {
		logger.Fatal("cannot create result cache", zap.Error(err))
	}
	computed := make([]*incidence.Result, len(analyses))
	errs := make([]error, len(analyses))
	thunks := make([]func(), len(analyses))
	for i := range analyses {
		thunks[i] = func() {
			computed[i], errs[i] = results.Compute(registry, analyses[i].Config)
		}
	}
	parallel.Do(thunks...)
	//4. Print the results to file
	failed := false
	for i, a := range analyses {
		if errs[i] != nil {
			logger.Error("analysis failed", zap.String("analysis", a.Name), zap.Error(errs[i]))
			failed = true
			continue
		}
		result := computed[i]
		if err := result.Incidence.Check(); err != nil {
			logger.Error("inconsistent estimate", zap.String("analysis", a.Name), zap.Error(err))
		}
		summary := incidence.Summarize(result, landmarkDays...)
		incidence.PrintResultToFiles(result, summary, outputPath, a.Name)
		incidence.PrintSummary(os.Stdout, a.Name, summary, result.Diagnostics)
		if plot {
			p, err := chart.StackedIncidence(result.Incidence, a.Config, chart.Options{Title: a.Title,
				InitialDisplayDays: displayDays})
			if err != nil {
				logger.Error("cannot draw figure", zap.String("analysis", a.Name), zap.Error(err))
				continue
			}
			if err := chart.Save(p, filepath.Join(outputPath, fmt.Sprintf("%s-incidence.png", a.Name))); err != nil {
				panic(err)
			}
		}
	}
	logger.Info("run finished", zap.Int("analyses", len(analyses)), zap.Int("cached_results", results.Len()))
	if failed {
		os.Exit(1)
	}
}
