package main

import (
	"fmt"
	"strings"

	frames "github.com/cernatschool/frames_go/pkg"
)

// setting is one compression setting under test.
type setting struct {
	Compression frames.Compression
	Level       int
}

func (s setting) String() string {
	switch s.Compression.Code {
	case frames.CompressionDeflate, frames.CompressionShuffleDeflate:
		return fmt.Sprintf("%s, level %d", s.Compression, s.Level)
	default:
		return s.Compression.String()
	}
}

// buildSettings expands a comma separated list of compression names into
// the settings to measure. Deflate based filters are measured at every
// level from 0 to 9.
func buildSettings(names string) ([]setting, error) {
	var settings []setting
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		c, err := frames.ParseCompression(name)
		if err != nil {
			return nil, err
		}
		switch c.Code {
		case frames.CompressionDeflate, frames.CompressionShuffleDeflate:
			for level := 0; level < 10; level++ {
				settings = append(settings, setting{Compression: c, Level: level})
			}
		default:
			settings = append(settings, setting{Compression: c})
		}
	}
	if len(settings) == 0 {
		return nil, fmt.Errorf("no compression settings given")
	}
	return settings, nil
}
