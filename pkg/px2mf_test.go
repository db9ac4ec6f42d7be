package frames

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir string, name string, data []byte) string {
	t.Helper()
	fname := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(fname, data, 0o644))
	return fname
}

const asciiXCDescription = "A000000001\n[F0]\nType=i16 [X,C] width=256 height=256\n" +
	"\"ChipboardID\" (\"Chip ID\"):\nchar[9]\nB06-W0212\n" +
	"\"Start time\" (\"Acquisition start time\"):\ndouble[1]\n1342177280.25\n" +
	"\"Acq time\" (\"Acquisition time [s]\"):\ndouble[1]\n0.5\n"

func TestPairFrameFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", nil)
	writeFile(t, dir, "b.txt.dsc", nil)
	writeFile(t, dir, "a.txt", nil)
	writeFile(t, dir, "a.txt.dsc", nil)
	writeFile(t, dir, "a.txt.idx", nil)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	pairs, err := PairFrameFiles(dir)
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, FramePair{
		Payload:     filepath.Join(dir, "a.txt"),
		Description: filepath.Join(dir, "a.txt.dsc"),
		Index:       filepath.Join(dir, "a.txt.idx"),
	}, pairs[0])
	assert.Equal(t, filepath.Join(dir, "b.txt"), pairs[1].Payload)
	assert.Empty(t, pairs[1].Index)
}

func TestPairFrameFilesDoubledSuffix(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "frame.dsc", nil)
	writeFile(t, dir, "frame.dsc.dsc", nil)

	pairs, err := PairFrameFiles(dir)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, filepath.Join(dir, "frame.dsc"), pairs[0].Payload)
	assert.Equal(t, filepath.Join(dir, "frame.dsc.dsc"), pairs[0].Description)
}

func TestPairFrameFilesErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := PairFrameFiles(dir)
	assert.Error(t, err)

	writeFile(t, dir, "a.txt", nil)
	_, err = PairFrameFiles(dir)
	assert.Error(t, err, "no descriptions")

	writeFile(t, dir, "a.txt.dsc", nil)
	writeFile(t, dir, "b.txt", nil)
	_, err = PairFrameFiles(dir)
	var mismatch *ErrPairMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 2, mismatch.Payloads)
	assert.Equal(t, 1, mismatch.Descriptions)

	_, err = PairFrameFiles(filepath.Join(dir, "missing"))
	var openErr *ErrOpenFile
	assert.ErrorAs(t, err, &openErr)
}

func TestScanDescriptions(t *testing.T) {
	dir := t.TempDir()
	var pairs []FramePair
	for _, name := range []string{"a", "b", "c", "d"} {
		pairs = append(pairs, FramePair{
			Payload:     filepath.Join(dir, name),
			Description: writeFile(t, dir, name+".dsc", []byte(asciiXCDescription)),
		})
	}
	pairs[2].Description = writeFile(t, dir, "c.dsc", []byte("garbage\n"))

	scans := ScanDescriptions(pairs, 3)
	require.Len(t, scans, 4)
	for i, s := range scans {
		assert.Equal(t, i, s.Index)
		assert.Equal(t, pairs[i], s.Pair)
	}
	assert.NoError(t, scans[0].Err)
	assert.Equal(t, 256, scans[0].Format.Width)
	var unknown *ErrUnknownFormat
	assert.ErrorAs(t, scans[2].Err, &unknown)
}

func TestPixelmanConversion(t *testing.T) {
	data := t.TempDir()
	out := t.TempDir()
	withConfiguration(t, func(c *Configuration) {
		c.FramesPerFile = 10
	})

	// single frame ASCII X,C
	writeFile(t, data, "f0.txt", []byte("10 7 20 3\n"))
	writeFile(t, data, "f0.txt.dsc", []byte(asciiXCDescription))

	// binary multi-frame X,Y,C with an index
	var payload bytes.Buffer
	for _, r := range [][3]int{{1, 1, 4}, {2, 2, 5}, {3, 3, 6}} {
		binary.Write(&payload, binary.LittleEndian, int32(r[0]))
		binary.Write(&payload, binary.LittleEndian, int32(r[1]))
		binary.Write(&payload, binary.LittleEndian, int16(r[2]))
	}
	writeFile(t, data, "f1.bin", payload.Bytes())
	writeFile(t, data, "f1.bin.dsc", []byte("B000000002\n[F0]\nType=i16 [X,Y,C] width=256 height=256\n"))
	writeFile(t, data, "f1.bin.idx", indexBytes(IndexEntry{DataOffset: 0}, IndexEntry{DataOffset: 20}))

	// unsupported binary dense payload is skipped
	writeFile(t, data, "f2.bin", []byte{1, 2, 3, 4})
	writeFile(t, data, "f2.bin.dsc", []byte("B000000001\n[F0]\nType=i16 width=256 height=256\n"))

	pairs, err := PairFrameFiles(data)
	require.NoError(t, err)
	// the index files count as neither payload nor description
	require.Len(t, pairs, 3)

	w := NewWriter(out, "px", 1)
	conv := NewPixelmanConversion("px", w)
	require.NoError(t, conv.Run(ScanDescriptions(pairs, 2)))
	require.NoError(t, w.Close())

	assert.Equal(t, []string{filepath.Join(data, "f2.bin")}, conv.Skipped)
	assert.Equal(t, 3, conv.NextID)

	_, frames, err := ReadUnitFile(UnitFilename(out, "px", 1))
	require.NoError(t, err)
	require.Len(t, frames, 3)

	assert.Equal(t, 0, frames[0].ID)
	assert.Equal(t, map[int]int{10: 7, 20: 3}, frames[0].Pixels.Counts())
	assert.Equal(t, "B06-W0212", frames[0].ChipboardID)
	assert.Equal(t, 0.5, frames[0].AcqTime)
	assert.Equal(t, "px", frames[0].DatasetID)
	assert.Equal(t, int(EncodingASCII|EncodingI16|EncodingSparseX), frames[0].PayloadFormat)

	assert.Equal(t, 1, frames[1].ID)
	assert.Equal(t, 2, frames[1].Pixels.Len())
	assert.Equal(t, 2, frames[2].ID)
	assert.Equal(t, map[int]int{Linearize(3, 3, 256): 6}, frames[2].Pixels.Counts())
	assert.Empty(t, frames[1].ChipboardID, "metadata is rewound between pairs")
}

func TestPixelmanConversionSkip(t *testing.T) {
	data := t.TempDir()
	out := t.TempDir()
	writeFile(t, data, "a.txt", []byte("1 1\n"))
	writeFile(t, data, "a.txt.dsc", []byte(asciiXCDescription))
	writeFile(t, data, "b.txt", []byte("2 2\n"))
	writeFile(t, data, "b.txt.dsc", []byte(asciiXCDescription))

	pairs, err := PairFrameFiles(data)
	require.NoError(t, err)
	w := NewWriter(out, "px", 1)
	conv := NewPixelmanConversion("px", w)
	conv.Skip = 1
	require.NoError(t, conv.Run(ScanDescriptions(pairs, 1)))
	require.NoError(t, w.Close())
	assert.Equal(t, 1, w.FrameCounter)
}

func TestPixelmanConversionNothingUsable(t *testing.T) {
	conv := NewPixelmanConversion("px", NewWriter(t.TempDir(), "px", 1))
	err := conv.Run([]FormatScan{{Err: &ErrUnknownFormat{Reason: "bad"}}})
	assert.Error(t, err)
}

func TestPixelmanConversionPartialRecord(t *testing.T) {
	_, errs := captureLog(t)
	data := t.TempDir()
	out := t.TempDir()

	// one full i16 X,Y,C record followed by 5 bytes of the next
	payload := binaryXYC([3]int{1, 1, 4}, [3]int{2, 2, 5})
	writeFile(t, data, "a.bin", payload[:10+5])
	writeFile(t, data, "a.bin.dsc", []byte("B000000001\n[F0]\nType=i16 [X,Y,C] width=256 height=256\n"))
	writeFile(t, data, "b.txt", []byte("10 7\n"))
	writeFile(t, data, "b.txt.dsc", []byte(asciiXCDescription))

	pairs, err := PairFrameFiles(data)
	require.NoError(t, err)
	w := NewWriter(out, "px", 1)
	conv := NewPixelmanConversion("px", w)
	require.NoError(t, conv.Run(ScanDescriptions(pairs, 1)))
	require.NoError(t, w.Close())

	assert.Equal(t, []string{filepath.Join(data, "a.bin")}, conv.Skipped)
	assert.Contains(t, errs.String(), "ERROR: skipping")
	assert.Contains(t, errs.String(), "truncated pixel record")
	assert.Equal(t, 1, w.FrameCounter)
	assert.Equal(t, 1, conv.NextID)

	_, frames, err := ReadUnitFile(UnitFilename(out, "px", 1))
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, 0, frames[0].ID)
	assert.Equal(t, map[int]int{10: 7}, frames[0].Pixels.Counts())
}

func TestConvertPairUndecodableText(t *testing.T) {
	data := t.TempDir()
	writeFile(t, data, "a.txt", []byte("10 7 20 x\n"))
	dsc := writeFile(t, data, "a.txt.dsc", []byte(asciiXCDescription))
	format, err := DetectFormatFile(dsc)
	require.NoError(t, err)

	w := NewWriter(t.TempDir(), "px", 1)
	conv := NewPixelmanConversion("px", w)
	require.NoError(t, conv.ConvertPair(FramePair{Payload: filepath.Join(data, "a.txt"), Description: dsc}, format))
	assert.Zero(t, w.Pending())
	assert.Len(t, conv.Skipped, 1)
	assert.Zero(t, conv.Frame.Pixels.Len())
}
