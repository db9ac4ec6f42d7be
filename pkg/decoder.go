package frames

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
)

// DecodeFrameFile decodes a single-frame payload file into frame.
func DecodeFrameFile(filename string, format FrameFormat, frame *FrameRecord) error {
	file, err := os.Open(filename)
	if err != nil {
		return &ErrOpenFile{Filename: filename, Err: err}
	}
	defer file.Close()

	if configuration.Verbosity > 1 {
		message := fmt.Sprintf("Reading single frame %s (%v, %dx%d)", filename, format.Encoding, format.Width, format.Height)
		logger.Info(message, "decoder")
	}
	if err := DecodeFrame(bufio.NewReader(file), format, frame); err != nil {
		return fmt.Errorf("error decoding %s: %w", filename, err)
	}
	return nil
}

// DecodeFrame fills frame.Pixels from a single-frame payload.
func DecodeFrame(r io.Reader, format FrameFormat, frame *FrameRecord) error {
	enc := format.Encoding
	pixels := frame.Pixels
	switch {
	case enc.Has(EncodingASCII) && enc.IsDense():
		return decodeASCIIMatrix(r, format.Width, format.Height, pixels)
	case enc.Has(EncodingASCII | EncodingSparseX):
		return decodeASCIISparseX(r, pixels)
	case enc.Has(EncodingASCII | EncodingSparseXY):
		return decodeASCIISparseXY(r, format.Width, pixels)
	case enc.Has(EncodingBinary):
		records, err := newBinaryRecordReader(r, enc)
		if err != nil {
			return err
		}
		for {
			rec, err := records.next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			rec.fill(pixels, format.Width)
		}
	}
	return &ErrUnsupportedEncoding{Encoding: enc}
}

// parseCount reads an integer token. Tokens written as reals are rounded.
func parseCount(tok string) (int, error) {
	if v, err := strconv.Atoi(tok); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid pixel value %q: %w", tok, err)
	}
	return int(math.Round(f)), nil
}

type tokenReader struct {
	scanner *bufio.Scanner
	n       int64
}

func newTokenReader(r io.Reader) *tokenReader {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)
	return &tokenReader{scanner: scanner}
}

// next returns io.EOF once the input is exhausted.
func (t *tokenReader) next() (int, error) {
	if !t.scanner.Scan() {
		if err := t.scanner.Err(); err != nil {
			return 0, err
		}
		return 0, io.EOF
	}
	t.n++
	return parseCount(t.scanner.Text())
}

// nextInRecord is next for the fields after the first one of a record.
func (t *tokenReader) nextInRecord(field string) (int, error) {
	v, err := t.next()
	if err == io.EOF {
		return 0, &ErrTruncatedRecord{Offset: t.n, Field: field, Err: io.ErrUnexpectedEOF}
	}
	return v, err
}

// decodeASCIIMatrix reads width*height values in row-major order. Zero
// values are not stored: a dense frame has no other way to say "no hit".
func decodeASCIIMatrix(r io.Reader, width, height int, pixels *PixelMap) error {
	tokens := newTokenReader(r)
	total := width * height
	for i := 0; i < total; i++ {
		v, err := tokens.next()
		if err == io.EOF {
			warn(fmt.Sprintf("dense payload ended after %d of %d values", i, total), "decoder")
			return nil
		}
		if err != nil {
			return err
		}
		if v != 0 {
			pixels.Fill(i%width, i/width, width, v)
		}
	}
	return nil
}

// decodeASCIISparseX reads (key, count) pairs. Every pair is stored, zero
// counts included, in ascending key order.
func decodeASCIISparseX(r io.Reader, pixels *PixelMap) error {
	tokens := newTokenReader(r)
	frameMap := make(map[int]int)
	for {
		key, err := tokens.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		count, err := tokens.nextInRecord("count")
		if err != nil {
			return err
		}
		frameMap[key] += count
	}
	fillSorted(frameMap, pixels)
	return nil
}

func fillSorted(frameMap map[int]int, pixels *PixelMap) {
	for _, key := range sortedKeys(frameMap) {
		pixels.FillKey(key, frameMap[key])
	}
}

func decodeASCIISparseXY(r io.Reader, width int, pixels *PixelMap) error {
	tokens := newTokenReader(r)
	for {
		x, err := tokens.next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		y, err := tokens.nextInRecord("y")
		if err != nil {
			return err
		}
		count, err := tokens.nextInRecord("count")
		if err != nil {
			return err
		}
		pixels.Fill(x, y, width, count)
	}
}

type pixelRecord struct {
	x, y, count int
	hasY        bool
}

func (p pixelRecord) fill(pixels *PixelMap, width int) {
	if p.hasY {
		pixels.Fill(p.x, p.y, width, p.count)
	} else {
		pixels.FillKey(p.x, p.count)
	}
}

// binaryRecordReader reads little-endian sparse records: a 32-bit X, a
// 32-bit Y for X,Y,C payloads, then a 16-bit (i16) or 32-bit (u32) count.
type binaryRecordReader struct {
	r          io.Reader
	hasY       bool
	countBytes int
	offset     int64
	buf        [4]byte
}

func newBinaryRecordReader(r io.Reader, enc Encoding) (*binaryRecordReader, error) {
	b := &binaryRecordReader{r: r}
	switch {
	case enc.Has(EncodingSparseXY):
		b.hasY = true
	case enc.Has(EncodingSparseX):
	default:
		return nil, &ErrUnsupportedEncoding{Encoding: enc}
	}
	switch {
	case enc.Has(EncodingI16):
		b.countBytes = 2
	case enc.Has(EncodingU32):
		b.countBytes = 4
	default:
		return nil, &ErrUnsupportedEncoding{Encoding: enc}
	}
	return b, nil
}

func (b *binaryRecordReader) recordSize() int64 {
	size := int64(4 + b.countBytes)
	if b.hasY {
		size += 4
	}
	return size
}

func (b *binaryRecordReader) read(n int, field string, first bool) ([]byte, error) {
	got, err := io.ReadFull(b.r, b.buf[:n])
	if err != nil {
		if first && got == 0 && err == io.EOF {
			return nil, io.EOF
		}
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, &ErrTruncatedRecord{Offset: b.offset, Field: field, Err: err}
	}
	b.offset += int64(n)
	return b.buf[:n], nil
}

// next returns io.EOF when the stream ends on a record boundary.
func (b *binaryRecordReader) next() (pixelRecord, error) {
	rec := pixelRecord{hasY: b.hasY}
	buf, err := b.read(4, "x", true)
	if err != nil {
		return rec, err
	}
	rec.x = int(int32(binary.LittleEndian.Uint32(buf)))

	if b.hasY {
		buf, err = b.read(4, "y", false)
		if err != nil {
			return rec, err
		}
		rec.y = int(int32(binary.LittleEndian.Uint32(buf)))
	}

	buf, err = b.read(b.countBytes, "count", false)
	if err != nil {
		return rec, err
	}
	if b.countBytes == 2 {
		rec.count = int(int16(binary.LittleEndian.Uint16(buf)))
	} else {
		rec.count = int(binary.LittleEndian.Uint32(buf))
	}
	return rec, nil
}

// IsTruncated reports whether err comes from a partial pixel record.
func IsTruncated(err error) bool {
	var t *ErrTruncatedRecord
	return errors.As(err, &t)
}
