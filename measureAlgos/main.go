package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	frames "github.com/cernatschool/frames_go/pkg"
)

var configuration frames.Configuration

var logger frames.SlogLogger

func init() {
	logger = frames.NewSlogLogger(os.Stdout, os.Stderr)
}

func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	input := flag.String("input", "", "Unit file to rewrite")
	output := flag.String("output", "", "Scratch directory for the rewritten units")
	algorithms := flag.String("algorithms", "none,deflate,shuffle-deflate,fletcher32", "Comma separated compression settings")
	flag.Parse()

	var err error
	configuration, err = frames.LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		return
	}
	if *input != "" {
		configuration.InputPath = *input
	}
	if flag.NArg() > 0 {
		configuration.InputPath = flag.Arg(0)
	}
	if *output != "" {
		configuration.OutputDir = *output
	}
	frames.SetConfiguration(configuration)
	frames.SetLogger(logger)

	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Reading configuration file: %s", *configFilename)
		logger.Info(message, "main")
		frames.PrintConfiguration(configuration, logger)
	}

	settings, err := buildSettings(*algorithms)
	if err != nil {
		logger.Error(fmt.Sprintf("Invalid compression list: %v", err))
		return
	}

	unit, records, err := frames.ReadUnitFile(configuration.InputPath)
	if err != nil {
		message := fmt.Errorf("Error reading unit: %w", err)
		logger.Error(message.Error())
		return
	}
	logger.Info(fmt.Sprintf("Frames read: %d", len(records)), "main")

	dir := configuration.OutputDir
	if dir == "" {
		dir, err = os.MkdirTemp("", "measureAlgos")
		if err != nil {
			logger.Error(fmt.Sprintf("Error creating scratch directory: %v", err))
			return
		}
		defer os.RemoveAll(dir)
	}

	start := time.Now()
	measurements := runMeasurements(records, unit.DatasetID, dir, settings, configuration.NumWorkers)
	for _, m := range measurements {
		if m.Err != nil {
			logger.Error(fmt.Sprintf("(%s) failed: %v", m.Setting, m.Err))
			continue
		}
		logger.Info(fmt.Sprintf("(%s) Time: %d ms, size %d bytes", m.Setting, m.Duration.Milliseconds(), m.Size), "main")
	}
	duration := time.Since(start)
	logger.Info(fmt.Sprintf("Total time: %d ms", duration.Milliseconds()), "main")
}
