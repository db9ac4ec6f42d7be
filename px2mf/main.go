package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	frames "github.com/cernatschool/frames_go/pkg"
	"github.com/pkg/errors"
)

var configuration frames.Configuration

var logger frames.SlogLogger

func init() {
	logger = frames.NewSlogLogger(os.Stdout, os.Stderr)
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] [pathToData datasetID [outputDir [skip]]]\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	input := flag.String("input", "", "Directory with the payload and description files")
	dataset := flag.String("dataset", "", "Dataset id")
	output := flag.String("output", "", "Output directory")
	skip := flag.Int("skip", -1, "Number of files to skip")
	flag.Usage = usage
	flag.Parse()

	var err error
	configuration, err = frames.LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) > 0 {
		configuration.InputPath = args[0]
	}
	if len(args) > 1 {
		configuration.DatasetID = args[1]
	}
	if len(args) > 2 {
		configuration.OutputDir = args[2]
	}
	if len(args) > 3 {
		configuration.Skip, err = strconv.Atoi(args[3])
		if err != nil {
			logger.Error(fmt.Sprintf("Invalid skip value %q", args[3]))
			usage()
			os.Exit(1)
		}
	}
	if *input != "" {
		configuration.InputPath = *input
	}
	if *dataset != "" {
		configuration.DatasetID = *dataset
	}
	if *output != "" {
		configuration.OutputDir = *output
	}
	if *skip >= 0 {
		configuration.Skip = *skip
	}
	if configuration.OutputDir == "" {
		configuration.OutputDir = "."
	}

	if configuration.InputPath == "" {
		logger.Error("No input directory given")
		usage()
		os.Exit(1)
	}
	if err := frames.ValidateDatasetID(configuration.DatasetID); err != nil {
		logger.Error(err.Error())
		usage()
		os.Exit(1)
	}

	frames.SetConfiguration(configuration)
	frames.SetLogger(logger)
	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Reading configuration file: %s", *configFilename)
		logger.Info(message, "main")
		frames.PrintConfiguration(configuration, logger)
	}

	if err := run(); err != nil {
		if configuration.Verbosity > 1 {
			logger.Error(fmt.Sprintf("%+v", err))
		} else {
			logger.Error(err.Error())
		}
		os.Exit(1)
	}
}

func run() error {
	pairs, err := frames.PairFrameFiles(configuration.InputPath)
	if err != nil {
		return errors.Wrap(err, "listing input files")
	}
	logger.Info(fmt.Sprintf("Found %d payload files", len(pairs)), "main")

	scans := frames.ScanDescriptions(pairs, configuration.NumWorkers)

	writer := frames.NewWriter(configuration.OutputDir, configuration.DatasetID, 1)
	conversion := frames.NewPixelmanConversion(configuration.DatasetID, writer)
	conversion.Skip = configuration.Skip

	runErr := conversion.Run(scans)
	closeErr := writer.Close()
	if runErr != nil {
		return errors.WithStack(runErr)
	}
	if closeErr != nil {
		return errors.WithStack(closeErr)
	}

	logger.Info(fmt.Sprintf("Conversion finished: %d frames in %d files, %d payloads skipped, %d warnings",
		writer.FrameCounter, len(writer.Filenames), len(conversion.Skipped), conversion.Warnings), "main")
	for _, f := range writer.Filenames {
		logger.Info(fmt.Sprintf("Output file: %s", f), "main")
	}
	return nil
}
