package frames

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// FrameSink receives every frame completed by a multi-frame decode. The
// frame is cleared as soon as the sink returns.
type FrameSink func(frame *FrameRecord) error

// IndexEntry is one frame boundary of a binary multi-frame index file.
type IndexEntry struct {
	DscOffset  int64
	DataOffset int64
	Reserved   int64
}

// ReadIndex reads every boundary of an index file.
func ReadIndex(r io.Reader) ([]IndexEntry, error) {
	entries := make([]IndexEntry, 0)
	for {
		var entry IndexEntry
		err := binary.Read(r, binary.LittleEndian, &entry)
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return entries, fmt.Errorf("error reading index entry %d: %w", len(entries), err)
		}
		entries = append(entries, entry)
	}
}

// MultiFrameDecoder splits a multi-frame payload into frames. Metadata set
// on Frame before Decode is shared by every frame; only the payload and the
// id change between frames.
type MultiFrameDecoder struct {
	Format FrameFormat
	Frame  *FrameRecord
	Sink   FrameSink
	// NextID is the id of the next frame handed to the sink.
	NextID int
	// Flushed counts the frames handed to the sink.
	Flushed int
}

// DecodeFiles decodes payloadFile; indexFile is required for binary
// payloads and ignored for ASCII ones.
func (d *MultiFrameDecoder) DecodeFiles(payloadFile string, indexFile string) error {
	payload, err := os.Open(payloadFile)
	if err != nil {
		return &ErrOpenFile{Filename: payloadFile, Err: err}
	}
	defer payload.Close()

	if d.Format.Encoding.Has(EncodingASCII) {
		return d.DecodeASCII(bufio.NewReader(payload))
	}

	idx, err := os.Open(indexFile)
	if err != nil {
		return &ErrOpenFile{Filename: indexFile, Err: err}
	}
	defer idx.Close()
	entries, err := ReadIndex(bufio.NewReader(idx))
	if err != nil {
		return err
	}
	return d.DecodeBinary(bufio.NewReader(payload), entries)
}

func (d *MultiFrameDecoder) flush() error {
	d.Frame.ID = d.NextID
	d.Frame.UpdateOccupancy()
	if configuration.Verbosity > 2 {
		message := fmt.Sprintf("Frame %d: %d hit pixels", d.Frame.ID, d.Frame.Pixels.HitPixelCount())
		logger.Info(message, "multiframe")
	}
	err := d.Sink(d.Frame)
	d.Frame.CleanUpMatrix()
	d.Frame.ResetCounters()
	d.NextID++
	d.Flushed++
	return err
}

// DecodeASCII reads tab or space separated X,C or X,Y,C lines. A line
// starting with '#' is a frame boundary. Text before the first boundary
// or after the last one forms a frame only if it holds pixels.
func (d *MultiFrameDecoder) DecodeASCII(r io.Reader) error {
	enc := d.Format.Encoding
	if !enc.Has(EncodingSparseX) && !enc.Has(EncodingSparseXY) {
		return &ErrUnsupportedEncoding{Encoding: enc}
	}
	width := d.Format.Width
	frameMap := make(map[int]int)
	seenBoundary := false
	lines := 0

	flushPending := func() error {
		if enc.Has(EncodingSparseX) {
			fillSorted(frameMap, d.Frame.Pixels)
			clear(frameMap)
		}
		return d.flush()
	}
	pending := func() bool {
		return len(frameMap) > 0 || d.Frame.Pixels.Len() > 0
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line[0] == '#' {
			if seenBoundary || pending() {
				if err := flushPending(); err != nil {
					return err
				}
			}
			seenBoundary = true
			continue
		}

		fields := strings.Fields(line)
		values := make([]int, len(fields))
		for i, f := range fields {
			v, err := parseCount(f)
			if err != nil {
				return fmt.Errorf("line %d: %w", lines, err)
			}
			values[i] = v
		}
		switch {
		case enc.Has(EncodingSparseXY) && len(values) == 3:
			d.Frame.Pixels.Fill(values[0], values[1], width, values[2])
		case enc.Has(EncodingSparseX) && len(values) == 2:
			frameMap[values[0]] += values[1]
		default:
			return &ErrTruncatedRecord{Offset: int64(lines), Field: "line", Err: fmt.Errorf("unexpected %d values", len(values))}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if pending() {
		if err := flushPending(); err != nil {
			return err
		}
	}
	d.checkFrameCount()
	return nil
}

// DecodeBinary reads sparse records, starting a new frame whenever the
// byte offset of a record reaches the next boundary of the index. The
// index starts at the second frame; boundaries at offset 0 are ignored.
func (d *MultiFrameDecoder) DecodeBinary(r io.Reader, index []IndexEntry) error {
	records, err := newBinaryRecordReader(r, d.Format.Encoding)
	if err != nil {
		return err
	}
	width := d.Format.Width

	boundaries := make([]int64, 0, len(index))
	for _, entry := range index {
		if entry.DataOffset > 0 {
			boundaries = append(boundaries, entry.DataOffset)
		}
	}
	nextBoundary := func() int64 {
		if len(boundaries) == 0 {
			return math.MaxInt64
		}
		return boundaries[0]
	}

	for {
		start := records.offset
		rec, err := records.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		for start >= nextBoundary() {
			if err := d.flush(); err != nil {
				return err
			}
			boundaries = boundaries[1:]
		}
		rec.fill(d.Frame.Pixels, width)
	}

	// Boundaries left at or before the end of data are frames without hits.
	for len(boundaries) > 0 && records.offset >= boundaries[0] {
		if err := d.flush(); err != nil {
			return err
		}
		boundaries = boundaries[1:]
	}
	if records.offset > 0 || d.Frame.Pixels.Len() > 0 {
		if err := d.flush(); err != nil {
			return err
		}
	}
	d.checkFrameCount()
	return nil
}

func (d *MultiFrameDecoder) checkFrameCount() {
	if d.Format.FrameCount > 0 && d.Flushed != d.Format.FrameCount {
		warn(fmt.Sprintf("description announces %d frames, payload held %d", d.Format.FrameCount, d.Flushed), "multiframe")
	}
}
