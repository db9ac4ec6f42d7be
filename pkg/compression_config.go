package frames

import (
	"encoding/json"
	"fmt"

	"github.com/robert-malhotra/go-hdf5/hdf5"
)

type CompressionCode int

const (
	CompressionNone CompressionCode = iota
	CompressionDeflate
	CompressionShuffleDeflate
	CompressionFletcher32
)

type Compression struct {
	Name string
	Code CompressionCode
}

var compressionStrings = []string{
	"none",
	"deflate",
	"shuffle-deflate",
	"fletcher32",
}

func (c Compression) String() string {
	if c.Code < CompressionNone || c.Code > CompressionFletcher32 {
		return "UNKNOWN"
	}
	return compressionStrings[c.Code]
}

func (c Compression) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Compression) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for i, v := range compressionStrings {
		if v == s {
			*c = Compression{Name: s, Code: CompressionCode(i)}
			return nil
		}
	}
	return fmt.Errorf("invalid Compression: %s", s)
}

func ParseCompression(s string) (Compression, error) {
	var c Compression
	err := c.UnmarshalJSON([]byte(fmt.Sprintf("%q", s)))
	return c, err
}

// datasetOptions returns the filter options for a column of n elements.
// Filters need a chunked layout, so empty columns are stored contiguous.
func (c Compression) datasetOptions(level int, chunkSize int, n int) []hdf5.DatasetOption {
	if c.Code == CompressionNone || n == 0 {
		return nil
	}
	chunk := chunkSize
	if chunk <= 0 || chunk > n {
		chunk = n
	}
	opts := []hdf5.DatasetOption{hdf5.WithChunks(uint64(chunk))}
	switch c.Code {
	case CompressionDeflate:
		opts = append(opts, hdf5.WithCompression(level))
	case CompressionShuffleDeflate:
		opts = append(opts, hdf5.WithShuffle(), hdf5.WithCompression(level))
	case CompressionFletcher32:
		opts = append(opts, hdf5.WithFletcher32())
	}
	return opts
}

type DriverCode int

const (
	DriverMySQL DriverCode = iota
	DriverSQLite
)

type DBDriver struct {
	Name string
	Code DriverCode
}

var dbDriverStrings = []string{
	"mysql",
	"sqlite",
}

func (d DBDriver) String() string {
	if d.Code < DriverMySQL || d.Code > DriverSQLite {
		return "UNKNOWN"
	}
	return dbDriverStrings[d.Code]
}

func (d DBDriver) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *DBDriver) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for i, v := range dbDriverStrings {
		if v == s {
			*d = DBDriver{Name: s, Code: DriverCode(i)}
			return nil
		}
	}
	return fmt.Errorf("invalid DBDriver: %s", s)
}
