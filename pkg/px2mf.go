package frames

import "fmt"

// PixelmanConversion converts paired Pixelman payload and description files
// into dataset units.
type PixelmanConversion struct {
	DatasetID string
	Writer    *Writer
	// Skip is the number of pairs skipped at the start of the list.
	Skip int

	Frame    *FrameRecord
	NextID   int
	Skipped  []string
	Warnings int
}

func NewPixelmanConversion(datasetID string, w *Writer) *PixelmanConversion {
	return &PixelmanConversion{DatasetID: datasetID, Writer: w, Frame: NewFrameRecord()}
}

// Run converts every scanned pair. Pairs whose format could not be detected
// are skipped; if none is usable the conversion fails.
func (c *PixelmanConversion) Run(scans []FormatScan) error {
	usable := 0
	for _, s := range scans {
		if s.Err == nil {
			usable++
		}
	}
	if usable == 0 {
		return fmt.Errorf("none of the %d description files could be read", len(scans))
	}

	for i, s := range scans {
		if i < c.Skip {
			continue
		}
		if s.Err != nil {
			logger.Error(fmt.Sprintf("ERROR: skipping %s: %v", s.Pair.Payload, s.Err))
			c.Skipped = append(c.Skipped, s.Pair.Payload)
			continue
		}
		if err := c.convertSafely(s.Pair, s.Format); err != nil {
			return fmt.Errorf("%s: %w", s.Pair.Payload, err)
		}
	}
	return nil
}

func (c *PixelmanConversion) convertSafely(pair FramePair, format FrameFormat) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(fmt.Sprintf("recovered from panic on %s: %v", pair.Payload, r))
			logger.Error(fmt.Sprintf("discarding %s", pair.Payload))
			c.Skipped = append(c.Skipped, pair.Payload)
			c.Frame.CleanUpMatrix()
			c.Frame.ResetCounters()
			c.Frame.RewindMetaDataValues()
			err = nil
		}
	}()
	return c.ConvertPair(pair, format)
}

func (c *PixelmanConversion) prepareMetadata(pair FramePair, format FrameFormat) {
	frame := c.Frame
	frame.RewindMetaDataValues()
	if err := ParseDescriptionFile(pair.Description, &frame.MetadataFields); err != nil {
		logger.Error(fmt.Sprintf("ERROR: reading metadata from %s: %v", pair.Description, err))
	}
	frame.Width = format.Width
	frame.Height = format.Height
	frame.PayloadFormat = int(format.Encoding)
	frame.DatasetID = c.DatasetID
	frame.SetFrameAsData()
}

// ConvertPair decodes one payload, single or multi-frame, and appends its
// frames to the writer. A single-frame payload that fails to decode, a
// partial record included, is skipped whole. A multi-frame payload keeps the
// frames completed before the failure.
func (c *PixelmanConversion) ConvertPair(pair FramePair, format FrameFormat) error {
	c.prepareMetadata(pair, format)
	frame := c.Frame
	defer frame.RewindMetaDataValues()

	if configuration.Verbosity > 1 {
		logger.Info(fmt.Sprintf("%s: %dx%d %v, %d frames", pair.Payload, format.Width, format.Height,
			format.Encoding, format.FrameCount), "px2mf")
	}

	if !format.IsMultiFrame() {
		defer func() {
			frame.CleanUpMatrix()
			frame.ResetCounters()
		}()
		if err := DecodeFrameFile(pair.Payload, format, frame); err != nil {
			c.skip(pair, err)
			return nil
		}
		frame.ID = c.NextID
		c.NextID++
		frame.UpdateOccupancy()
		frame.CalculateDoseRates()
		return c.Writer.Append(frame)
	}

	var writeErr error
	d := &MultiFrameDecoder{
		Format: format,
		Frame:  frame,
		NextID: c.NextID,
		Sink: func(f *FrameRecord) error {
			f.CalculateDoseRates()
			writeErr = c.Writer.Append(f)
			return writeErr
		},
	}
	first := c.NextID
	err := d.DecodeFiles(pair.Payload, pair.Index)
	c.NextID = d.NextID
	frame.CleanUpMatrix()
	frame.ResetCounters()
	if writeErr != nil {
		return writeErr
	}
	if err == nil {
		return nil
	}
	if kept := d.NextID - first; kept > 0 {
		c.Warnings++
		logger.Error(fmt.Sprintf("ERROR: %s: %v; keeping the %d complete frames before it", pair.Payload, err, kept))
		return nil
	}
	c.skip(pair, err)
	return nil
}

// skip logs a payload that produced no frames.
func (c *PixelmanConversion) skip(pair FramePair, err error) {
	logger.Error(fmt.Sprintf("ERROR: skipping %s: %v", pair.Payload, err))
	c.Skipped = append(c.Skipped, pair.Payload)
}
