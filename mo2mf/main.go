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
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] [input.h5 metadata.xml [outputDir [framesPerFile [numFrames]]]]\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	input := flag.String("input", "", "MoEDAL HDF5 file")
	metadata := flag.String("metadata", "", "MoEDAL metadata XML file")
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
	if len(args) > 0 {
		configuration.InputPath = args[0]
	}
	if len(args) > 1 {
		configuration.MetadataFile = args[1]
	}
	if len(args) > 2 {
		configuration.OutputDir = args[2]
	}
	if len(args) > 3 {
		if configuration.FramesPerFile, err = strconv.Atoi(args[3]); err != nil {
			logger.Error(fmt.Sprintf("Invalid frames per file %q", args[3]))
			usage()
			os.Exit(1)
		}
	}
	if len(args) > 4 {
		if configuration.MaxFrames, err = strconv.Atoi(args[4]); err != nil {
			logger.Error(fmt.Sprintf("Invalid number of frames %q", args[4]))
			usage()
			os.Exit(1)
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
	if configuration.InputPath == "" || configuration.MetadataFile == "" {
		logger.Error("An input file and a metadata file are required")
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
	xmlMeta, err := frames.LoadXMLMetadata(configuration.MetadataFile)
	if err != nil {
		return errors.Wrap(err, "reading MoEDAL metadata")
	}
	if err := frames.ValidateDatasetID(xmlMeta.DatasetID()); err != nil {
		return errors.WithStack(err)
	}
	var provider frames.MetadataProvider = xmlMeta
	if !configuration.NoDB {
		dbConn, err := frames.ConnectToDatabase(configuration)
		if err != nil {
			return errors.Wrap(err, "connecting to the detector registry")
		}
		registry, err := frames.LoadRegistryMetadata(dbConn, xmlMeta)
		dbConn.Close()
		if err != nil {
			return errors.WithStack(err)
		}
		provider = registry
	}

	in, err := frames.ReadMoEDALInput(configuration.InputPath)
	if err != nil {
		return errors.Wrap(err, "reading MoEDAL input")
	}
	logger.Info(fmt.Sprintf("%s: %d frames", configuration.InputPath, in.NumFrames()), "main")

	writer := frames.NewWriter(configuration.OutputDir, xmlMeta.DatasetID(), 1)
	runErr := frames.ConvertMoEDAL(in, provider, writer, configuration.MaxFrames)
	closeErr := writer.Close()
	if runErr != nil {
		return errors.WithStack(runErr)
	}
	if closeErr != nil {
		return errors.WithStack(closeErr)
	}
	logger.Info(fmt.Sprintf("Conversion finished: %d frames in %d files", writer.FrameCounter, len(writer.Filenames)), "main")
	return nil
}
