package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	frames "github.com/cernatschool/frames_go/pkg"
	"github.com/pkg/errors"
)

var configuration frames.Configuration

var logger frames.SlogLogger

func init() {
	logger = frames.NewSlogLogger(os.Stdout, os.Stderr)
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] [unit.h5|dir metadata.xml]\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	input := flag.String("input", "", "Unit file or directory of units")
	metadata := flag.String("metadata", "", "Additional metadata XML file")
	output := flag.String("output", "", "Output directory (default: rewrite in place)")
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
		configuration.MetadataFile = args[1]
	}
	if *input != "" {
		configuration.InputPath = *input
	}
	if *metadata != "" {
		configuration.MetadataFile = *metadata
	}
	if *output != "" {
		configuration.OutputDir = *output
	}
	if configuration.InputPath == "" || configuration.MetadataFile == "" {
		logger.Error("An input and a metadata file are required")
		usage()
		os.Exit(1)
	}

	frames.SetConfiguration(configuration)
	frames.SetLogger(logger)
	if configuration.Verbosity > 0 {
		frames.PrintConfiguration(configuration, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx); err != nil {
		if configuration.Verbosity > 1 {
			logger.Error(fmt.Sprintf("%+v", err))
		} else {
			logger.Error(err.Error())
		}
		stop()
		os.Exit(1)
	}
}

func unitFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	return filepath.Glob(filepath.Join(path, "*.h5"))
}

func run(ctx context.Context) error {
	update, err := frames.LoadUpdateMetadata(configuration.MetadataFile)
	if err != nil {
		return errors.Wrap(err, "reading metadata")
	}
	if err := frames.ValidateDatasetID(update.DatasetID); err != nil {
		return errors.WithStack(err)
	}

	var geo frames.Geolocator
	if update.SourceID == "ISS" {
		timeout := time.Duration(configuration.HTTPTimeout) * time.Second
		geo = frames.NewHTTPGeolocator(configuration.GeolocationURL, timeout)
		logger.Info(fmt.Sprintf("ISS positions from %s", configuration.GeolocationURL), "main")
	}

	units, err := unitFiles(configuration.InputPath)
	if err != nil {
		return errors.Wrap(err, "listing units")
	}
	if configuration.OutputDir != "" {
		if err := os.MkdirAll(configuration.OutputDir, 0o755); err != nil {
			return errors.WithStack(err)
		}
	}
	for _, unit := range units {
		out := unit
		if configuration.OutputDir != "" {
			out = filepath.Join(configuration.OutputDir, filepath.Base(unit))
		}
		if err := frames.UpdateUnit(ctx, unit, out, update, geo); err != nil {
			return errors.Wrapf(err, "updating %s", unit)
		}
		logger.Info(fmt.Sprintf("Updated %s", unit), "main")
	}
	return nil
}
