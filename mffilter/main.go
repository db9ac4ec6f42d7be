package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	frames "github.com/cernatschool/frames_go/pkg"
	"github.com/pkg/errors"
)

var configuration frames.Configuration

var logger frames.SlogLogger

func init() {
	logger = frames.NewSlogLogger(os.Stdout, os.Stderr)
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] [unit.h5|dir filterFile filterName]\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	input := flag.String("input", "", "Unit file or directory of units")
	filterFile := flag.String("filter", "", "Filter file of x y C lines")
	filterName := flag.String("name", "", "Filter name stored in the frames")
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

	name := *filterName
	args := flag.Args()
	if len(args) > 0 {
		configuration.InputPath = args[0]
	}
	if len(args) > 1 {
		configuration.FilterFile = args[1]
	}
	if len(args) > 2 {
		name = args[2]
	}
	if *input != "" {
		configuration.InputPath = *input
	}
	if *filterFile != "" {
		configuration.FilterFile = *filterFile
	}
	if *output != "" {
		configuration.OutputDir = *output
	}
	if configuration.InputPath == "" || configuration.FilterFile == "" || name == "" {
		logger.Error("An input, a filter file and a filter name are required")
		usage()
		os.Exit(1)
	}

	frames.SetConfiguration(configuration)
	frames.SetLogger(logger)
	if configuration.Verbosity > 0 {
		frames.PrintConfiguration(configuration, logger)
	}

	if err := run(name); err != nil {
		if configuration.Verbosity > 1 {
			logger.Error(fmt.Sprintf("%+v", err))
		} else {
			logger.Error(err.Error())
		}
		os.Exit(1)
	}
}

// unitFiles expands a directory into the units it holds.
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

func outputPath(input string) string {
	if configuration.OutputDir == "" {
		return input
	}
	return filepath.Join(configuration.OutputDir, filepath.Base(input))
}

func run(name string) error {
	filter, err := frames.LoadPixelFilter(configuration.FilterFile, name)
	if err != nil {
		return errors.Wrap(err, "reading filter")
	}
	logger.Info(fmt.Sprintf("Filter %s: %d pixels", name, len(filter.Values)), "main")

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
		if err := frames.FilterUnit(unit, outputPath(unit), filter); err != nil {
			return errors.Wrapf(err, "filtering %s", unit)
		}
		logger.Info(fmt.Sprintf("Filtered %s", unit), "main")
	}
	return nil
}
