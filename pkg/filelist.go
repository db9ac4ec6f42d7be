package frames

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// FramePair is a payload file with its description and optional index.
type FramePair struct {
	Payload     string
	Description string
	Index       string
}

// PairFrameFiles lists dir and pairs every description (*.dsc) with its
// payload, the description name without the .dsc suffix. When payloads
// are themselves named *.dsc, descriptions end in .dsc.dsc. Index files
// are <payload>.idx.
func PairFrameFiles(dir string) ([]FramePair, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &ErrOpenFile{Filename: dir, Err: err}
	}

	var names []string
	doubled := false
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		names = append(names, e.Name())
		if strings.HasSuffix(e.Name(), ".dsc.dsc") {
			doubled = true
		}
	}
	if doubled {
		warn("the description files have extension .dsc.dsc", "files")
	}
	dscSuffix := ".dsc"
	if doubled {
		dscSuffix = ".dsc.dsc"
	}

	var descriptions []string
	payloads := 0
	indexes := make(map[string]bool)
	for _, name := range names {
		switch {
		case strings.HasSuffix(name, dscSuffix):
			descriptions = append(descriptions, name)
		case strings.HasSuffix(name, ".idx"):
			indexes[name] = true
		default:
			payloads++
		}
	}
	if len(descriptions) == 0 {
		return nil, fmt.Errorf("no description files found in %s", dir)
	}
	if payloads == 0 {
		return nil, fmt.Errorf("no payload files found in %s", dir)
	}
	if payloads != len(descriptions) {
		return nil, &ErrPairMismatch{Payloads: payloads, Descriptions: len(descriptions)}
	}

	slices.Sort(descriptions)
	pairs := make([]FramePair, 0, len(descriptions))
	for _, dsc := range descriptions {
		payload := strings.TrimSuffix(dsc, ".dsc")
		pair := FramePair{
			Payload:     filepath.Join(dir, payload),
			Description: filepath.Join(dir, dsc),
		}
		if indexes[payload+".idx"] {
			pair.Index = filepath.Join(dir, payload+".idx")
		}
		pairs = append(pairs, pair)
	}

	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Found %d description files, %d payload files, %d index files",
			len(descriptions), payloads, len(indexes)), "files")
	}
	return pairs, nil
}
