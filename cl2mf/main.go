package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
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
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] [clusterLog metadata.xml [outputDir [framesPerFile [numFrames]]]]\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	input := flag.String("input", "", "Cluster log file")
	metadata := flag.String("metadata", "", "Calibration metadata XML file")
	output := flag.String("output", "", "Output directory")
	perFile := flag.Int("frames-per-file", 0, "Frames per output file")
	maxFrames := flag.Int("max-frames", -1, "Number of frames to read (0 = all)")
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
	positional := []*string{&configuration.InputPath, &configuration.MetadataFile, &configuration.OutputDir}
	for i, p := range positional {
		if len(args) > i {
			*p = args[i]
		}
	}
	ints := []*int{&configuration.FramesPerFile, &configuration.MaxFrames}
	for i, p := range ints {
		if len(args) > i+3 {
			*p, err = strconv.Atoi(args[i+3])
			if err != nil {
				logger.Error(fmt.Sprintf("Invalid number %q", args[i+3]))
				usage()
				os.Exit(1)
			}
		}
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
	if *perFile > 0 {
		configuration.FramesPerFile = *perFile
	}
	if *maxFrames >= 0 {
		configuration.MaxFrames = *maxFrames
	}
	if configuration.OutputDir == "" {
		configuration.OutputDir = "."
	}
	if configuration.ValidationDir == "" {
		configuration.ValidationDir = configuration.OutputDir
	}
	if configuration.InputPath == "" || configuration.MetadataFile == "" {
		logger.Error("A cluster log and a metadata file are required")
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

func metadataProvider() (frames.MetadataProvider, string, error) {
	xmlMeta, err := frames.LoadXMLMetadata(configuration.MetadataFile)
	if err != nil {
		return nil, "", errors.Wrap(err, "reading calibration metadata")
	}
	if err := frames.ValidateDatasetID(xmlMeta.DatasetID()); err != nil {
		return nil, "", errors.WithStack(err)
	}
	if configuration.NoDB {
		return xmlMeta, xmlMeta.DatasetID(), nil
	}

	dbConn, err := frames.ConnectToDatabase(configuration)
	if err != nil {
		return nil, "", errors.Wrap(err, "connecting to the detector registry")
	}
	defer dbConn.Close()
	registry, err := frames.LoadRegistryMetadata(dbConn, xmlMeta)
	if err != nil {
		return nil, "", errors.WithStack(err)
	}
	return registry, xmlMeta.DatasetID(), nil
}

func run() error {
	provider, datasetID, err := metadataProvider()
	if err != nil {
		return err
	}

	file, err := os.Open(configuration.InputPath)
	if err != nil {
		return errors.Wrap(err, "opening cluster log")
	}
	defer file.Close()

	writer := frames.NewWriter(configuration.OutputDir, datasetID, 0)
	stats := &frames.ValidationStats{}
	runErr := frames.ProcessClusterLog(bufio.NewReader(file), provider, writer, configuration.MaxFrames, stats)
	closeErr := writer.Close()
	if runErr != nil {
		return errors.WithStack(runErr)
	}
	if closeErr != nil {
		return errors.WithStack(closeErr)
	}
	logger.Info(fmt.Sprintf("Conversion finished: %d frames in %d files", writer.FrameCounter, len(writer.Filenames)), "main")

	if err := os.MkdirAll(configuration.ValidationDir, 0o755); err != nil {
		return errors.Wrap(err, "creating validation directory")
	}
	summaryFile := filepath.Join(configuration.ValidationDir, fmt.Sprintf("%s_validation.json", datasetID))
	if err := stats.WriteJSON(summaryFile); err != nil {
		logger.Error(fmt.Sprintf("Error writing validation summary: %v", err))
	}
	plots, err := stats.SavePlots(configuration.ValidationDir, datasetID)
	if err != nil {
		logger.Error(fmt.Sprintf("Error writing validation plots: %v", err))
	}
	summary := stats.Summary()
	logger.Info(fmt.Sprintf("Validation: %d frames, %d clusters, %d pixel mismatches, %d cluster mismatches, %d plots",
		summary.Frames, summary.Clusters, summary.PixelMismatches, summary.ClusterMismatches, len(plots)), "main")
	return nil
}
