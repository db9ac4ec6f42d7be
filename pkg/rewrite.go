package frames

import (
	"fmt"
	"os"
	"path/filepath"
)

// FrameTransform modifies frame i of a unit in place.
type FrameTransform func(i int, frame *FrameRecord) error

// RewriteUnit reads the unit at input, applies transform to every frame and
// writes the result to output with the given compression. output may be
// input: the new unit is written next to it and renamed over it.
func RewriteUnit(input string, output string, compression Compression, level int, transform FrameTransform) error {
	unit, frames, err := ReadUnitFile(input)
	if err != nil {
		return err
	}
	for i, f := range frames {
		if err := transform(i, f); err != nil {
			return fmt.Errorf("%s frame %d: %w", input, i, err)
		}
	}

	tmp := filepath.Join(filepath.Dir(output), "."+filepath.Base(output)+".tmp")
	opts := UnitOptions{
		DatasetID:    unit.DatasetID,
		ConversionID: unit.ConversionID,
		Sequence:     unit.Sequence,
		Compression:  compression,
		Level:        level,
		ChunkSize:    configuration.ChunkSize,
	}
	if len(frames) > 0 && frames[0].DatasetID != "" {
		opts.DatasetID = frames[0].DatasetID
	}
	if err := WriteUnit(tmp, frames, opts); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, output); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("error replacing %s: %w", output, err)
	}
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Rewrote %d frames from %s to %s", len(frames), input, output), "rewrite")
	}
	return nil
}
