package frames

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func calibrationProvider() StaticMetadata {
	m := NewMetadataFields()
	m.DatasetID = "cal"
	m.Width, m.Height = 256, 256
	m.ChipboardID = "B06-W0212"
	return StaticMetadata(m)
}

func TestPixelmanTime(t *testing.T) {
	assert.Equal(t, "Thu Jan 01 00:16:40.000000 1970", PixelmanTime(1000))
	assert.Equal(t, "Fri Jul 13 11:01:20.250000 2012", PixelmanTime(1342177280.25))
}

func TestClusterLogReaderSingleFrame(t *testing.T) {
	r := NewClusterLogReader(strings.NewReader("Frame 1 (1000.0, 0.02s)\n[0,0,5][1,0,3]\n\n"), 256)
	frame := NewFrameRecord()

	info, err := r.ReadFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Number)
	assert.Equal(t, 1, info.Headers)
	assert.Equal(t, 1, info.Clusters)
	assert.Equal(t, 2, info.Pixels)
	assert.Equal(t, []int{2}, info.PixelsPerCluster)
	assert.Equal(t, 1000.0, frame.StartTime)
	assert.Equal(t, 0.02, frame.AcqTime)
	assert.Equal(t, 1, frame.ID)

	bf := FindBlobs(frame.Pixels, 256, 256)
	require.Equal(t, 1, bf.Size())
	assert.Equal(t, 2, bf.Blobs[0].Size())
	assert.Equal(t, 8, bf.Blobs[0].TotalEnergy)

	_, err = r.ReadFrame(NewFrameRecord())
	assert.ErrorIs(t, err, io.EOF)
}

func TestClusterLogReaderMismatch(t *testing.T) {
	r := NewClusterLogReader(strings.NewReader("Frame 2 (1.0, 1.0s)\n\n"), 256)
	_, err := r.ReadFrame(NewFrameRecord())
	var mismatch *ErrFrameMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 1, mismatch.Expected)
	assert.Equal(t, 2, mismatch.Found)
}

func TestClusterLogReaderUnterminated(t *testing.T) {
	input := "Frame 1 (1.0, 1.0s)\n[3,3,1]\n\nFrame 2 (2.0, 1.0s)\r\n[4,4,1]\r\n"
	r := NewClusterLogReader(strings.NewReader(input), 256)

	first := NewFrameRecord()
	_, err := r.ReadFrame(first)
	require.NoError(t, err)

	second := NewFrameRecord()
	info, err := r.ReadFrame(second)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Number)
	assert.Equal(t, 1, second.Pixels.Len())
	assert.Equal(t, 3, r.FrameNumber())

	_, err = r.ReadFrame(NewFrameRecord())
	assert.ErrorIs(t, err, io.EOF)
}

func TestProcessClusterLog(t *testing.T) {
	dir := t.TempDir()
	withConfiguration(t, func(c *Configuration) {
		c.FramesPerFile = 2
	})
	input := "Frame 1 (1000.0, 0.02s)\n[0,0,5][1,0,3]\n[10,10,1]\n\n" +
		"Frame 2 (1000.5, 0.02s)\n\n" +
		"Frame 3 (1001.0, 0.02s)\n[7,7,2]\n\n"

	w := NewWriter(dir, "cal", 0)
	stats := &ValidationStats{}
	require.NoError(t, ProcessClusterLog(strings.NewReader(input), calibrationProvider(), w, 0, stats))
	require.NoError(t, w.Close())

	assert.Equal(t, 3, w.FrameCounter)
	assert.Len(t, w.Filenames, 2)

	_, frames, err := ReadUnitFile(w.Filenames[0])
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, 1, frames[0].ID)
	assert.Equal(t, 3, frames[0].Pixels.Len())
	assert.Equal(t, "B06-W0212", frames[0].ChipboardID)
	assert.Equal(t, 1000.5, frames[1].StartTime)
	assert.Zero(t, frames[1].Pixels.Len())

	assert.Equal(t, 3, stats.Frames)
	assert.Equal(t, []int{3, 0, 1}, stats.PixelsExtracted)
	assert.Equal(t, stats.PixelsExtracted, stats.PixelsInFrame)
	assert.Equal(t, []int{2, 0, 1}, stats.ClustersExtracted)
	assert.Equal(t, stats.ClustersExtracted, stats.ClustersFound)

	s := stats.Summary()
	assert.Zero(t, s.PixelMismatches)
	assert.Zero(t, s.ClusterMismatches)
	assert.InDelta(t, 1.02, s.Duration, 1e-9)
	assert.InDelta(t, 4.0/3.0, s.MeanPixelsPerCluster, 1e-9)
}

func TestProcessClusterLogMaxFrames(t *testing.T) {
	dir := t.TempDir()
	input := "Frame 1 (1.0, 1.0s)\n[0,0,1]\n\nFrame 2 (2.0, 1.0s)\n[0,0,1]\n\n"
	w := NewWriter(dir, "cal", 0)
	require.NoError(t, ProcessClusterLog(strings.NewReader(input), calibrationProvider(), w, 1, nil))
	require.NoError(t, w.Close())
	assert.Equal(t, 1, w.FrameCounter)
}

func TestValidationOutputs(t *testing.T) {
	dir := t.TempDir()
	stats := &ValidationStats{}
	stats.AddFrame(ClusterFrameInfo{Number: 1, StartTime: 10, AcqTime: 1, Clusters: 2, Pixels: 5,
		PixelsPerCluster: []int{2, 3}}, 5, 1)

	s := stats.Summary()
	assert.Equal(t, 1, s.ClusterMismatches)
	assert.Equal(t, 2.5, s.MeanPixelsPerCluster)

	fname := filepath.Join(dir, "validation.json")
	require.NoError(t, stats.WriteJSON(fname))
	data, err := os.ReadFile(fname)
	require.NoError(t, err)
	var doc struct {
		Stats   ValidationStats   `json:"stats"`
		Summary ValidationSummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, []int{2, 3}, doc.Stats.PixelsPerCluster)
	assert.Equal(t, 1, doc.Summary.ClusterMismatches)

	written, err := stats.SavePlots(dir, "cal")
	require.NoError(t, err)
	assert.Len(t, written, 5)
	for _, f := range written {
		assert.FileExists(t, f)
	}
}

func TestSavePlotsSkipsEmpty(t *testing.T) {
	written, err := (&ValidationStats{}).SavePlots(t.TempDir(), "none")
	require.NoError(t, err)
	assert.Empty(t, written)
}
