package frames

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type Configuration struct {
	Verbosity        int         `json:"verbosity"`
	InputPath        string      `json:"input_path"`
	DatasetID        string      `json:"dataset_id"`
	OutputDir        string      `json:"output_dir"`
	MetadataFile     string      `json:"metadata_file"`
	FilterFile       string      `json:"filter_file"`
	FramesPerFile    int         `json:"frames_per_file"`
	MaxFrames        int         `json:"max_frames"`
	Skip             int         `json:"skip"`
	NumWorkers       int         `json:"num_workers"`
	NoDB             bool        `json:"no_db"`
	DBDriver         DBDriver    `json:"db_driver"`
	Host             string      `json:"host"`
	Port             string      `json:"port"`
	User             string      `json:"user"`
	Passwd           string      `json:"pass"`
	DBName           string      `json:"dbname"`
	Compression      Compression `json:"compression"`
	CompressionLevel int         `json:"compression_level"`
	ChunkSize        int         `json:"chunk_size"`
	ValidationDir    string      `json:"validation_dir"`
	GeolocationURL   string      `json:"geolocation_url"`
	HTTPTimeout      int         `json:"http_timeout"`
}

var configuration = DefaultConfiguration()

func GetConfiguration() Configuration {
	return configuration
}

func SetConfiguration(config Configuration) {
	configuration = config
}

func DefaultConfiguration() Configuration {
	var config Configuration
	config.Verbosity = 0
	config.FramesPerFile = 1000
	config.MaxFrames = 0
	config.Skip = 0
	config.NumWorkers = 1
	config.NoDB = true
	config.DBDriver = DBDriver{Name: "mysql", Code: DriverMySQL}
	config.Host = "localhost"
	config.Port = "3306"
	config.User = "reader"
	config.Passwd = "readonly"
	config.DBName = "detectors"
	config.Compression = Compression{Name: "deflate", Code: CompressionDeflate}
	config.CompressionLevel = 4
	config.ChunkSize = 4096
	config.GeolocationURL = "http://jimanning.com/issapi/"
	config.HTTPTimeout = 10
	return config
}

// LoadConfiguration reads a JSON configuration file on top of the defaults.
// An empty filename returns the defaults.
func LoadConfiguration(filename string) (Configuration, error) {
	config := DefaultConfiguration()
	if filename == "" {
		return config, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = json.Unmarshal(data, &config)
	if err != nil {
		return config, err
	}
	return config, nil
}

func PrintConfiguration(config Configuration, logger Logger) {
	logger.Info(fmt.Sprintf("Input path: %s", config.InputPath), "config")
	logger.Info(fmt.Sprintf("Dataset ID: %s", config.DatasetID), "config")
	logger.Info(fmt.Sprintf("Output dir: %s", config.OutputDir), "config")
	logger.Info(fmt.Sprintf("Metadata file: %s", config.MetadataFile), "config")
	logger.Info(fmt.Sprintf("Filter file: %s", config.FilterFile), "config")
	logger.Info(fmt.Sprintf("Frames per file: %d", config.FramesPerFile), "config")
	logger.Info(fmt.Sprintf("Max frames: %d", config.MaxFrames), "config")
	logger.Info(fmt.Sprintf("Skip: %d", config.Skip), "config")
	logger.Info(fmt.Sprintf("Number of workers: %d", config.NumWorkers), "config")
	logger.Info(fmt.Sprintf("No DB: %t", config.NoDB), "config")
	logger.Info(fmt.Sprintf("DB driver: %s", config.DBDriver), "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	logger.Info(fmt.Sprintf("Compression: %s", config.Compression), "config")
	logger.Info(fmt.Sprintf("Compression level: %d", config.CompressionLevel), "config")
	logger.Info(fmt.Sprintf("Chunk size: %d", config.ChunkSize), "config")
	logger.Info(fmt.Sprintf("Validation dir: %s", config.ValidationDir), "config")
	logger.Info(fmt.Sprintf("Geolocation URL: %s", config.GeolocationURL), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
}

// ValidateDatasetID rejects empty ids and ids containing spaces, which
// would break output file names.
func ValidateDatasetID(id string) error {
	if id == "" {
		return fmt.Errorf("dataset id is empty")
	}
	if strings.ContainsAny(id, " \t") {
		return fmt.Errorf("dataset id %q contains spaces", id)
	}
	return nil
}
