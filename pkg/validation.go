package frames

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ValidationStats collects the cross checks of a cluster log conversion:
// what was extracted from the text against what ended up in the frames.
type ValidationStats struct {
	Frames   int `json:"frames"`
	Lines    int `json:"lines"`
	Headers  int `json:"headers"`
	Clusters int `json:"clusters"`
	Blanks   int `json:"blanks"`

	PixelsExtracted   []int `json:"pixels_per_frame_extracted"`
	PixelsInFrame     []int `json:"pixels_per_frame_container"`
	ClustersExtracted []int `json:"clusters_per_frame_extracted"`
	ClustersFound     []int `json:"clusters_per_frame_blobfinder"`
	PixelsPerCluster  []int `json:"pixels_per_cluster"`

	FirstStartTime float64 `json:"first_start_time"`
	LastEndTime    float64 `json:"last_end_time"`
}

type ValidationSummary struct {
	Frames                 int     `json:"frames"`
	Clusters               int     `json:"clusters"`
	MeanPixelsPerCluster   float64 `json:"mean_pixels_per_cluster"`
	StdDevPixelsPerCluster float64 `json:"stddev_pixels_per_cluster"`
	MeanClustersPerFrame   float64 `json:"mean_clusters_per_frame"`
	StdDevClustersPerFrame float64 `json:"stddev_clusters_per_frame"`
	PixelMismatches        int     `json:"pixel_mismatches"`
	ClusterMismatches      int     `json:"cluster_mismatches"`
	Duration               float64 `json:"duration"`
}

// AddFrame records one frame: pixels is the number of pixels in the frame
// container and blobs the number of clusters found by the blob finder.
func (v *ValidationStats) AddFrame(info ClusterFrameInfo, pixels int, blobs int) {
	if v.Frames == 0 {
		v.FirstStartTime = info.StartTime
	}
	v.Frames++
	v.Lines += info.Lines
	v.Headers += info.Headers
	v.Clusters += info.Clusters
	v.Blanks += info.Blanks
	v.PixelsExtracted = append(v.PixelsExtracted, info.Pixels)
	v.PixelsInFrame = append(v.PixelsInFrame, pixels)
	v.ClustersExtracted = append(v.ClustersExtracted, info.Clusters)
	v.ClustersFound = append(v.ClustersFound, blobs)
	v.PixelsPerCluster = append(v.PixelsPerCluster, info.PixelsPerCluster...)
	v.LastEndTime = info.StartTime + info.AcqTime
}

func toFloats(values []int) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}

func meanStdDev(values []int) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	mean, std := stat.MeanStdDev(toFloats(values), nil)
	if math.IsNaN(std) {
		std = 0
	}
	return mean, std
}

func (v *ValidationStats) Summary() ValidationSummary {
	s := ValidationSummary{Frames: v.Frames, Clusters: v.Clusters}
	s.MeanPixelsPerCluster, s.StdDevPixelsPerCluster = meanStdDev(v.PixelsPerCluster)
	s.MeanClustersPerFrame, s.StdDevClustersPerFrame = meanStdDev(v.ClustersExtracted)
	for i := range v.PixelsExtracted {
		if v.PixelsExtracted[i] != v.PixelsInFrame[i] {
			s.PixelMismatches++
		}
		if v.ClustersExtracted[i] != v.ClustersFound[i] {
			s.ClusterMismatches++
		}
	}
	if v.Frames > 0 {
		s.Duration = v.LastEndTime - v.FirstStartTime
	}
	return s
}

// WriteJSON writes the counters and the summary to filename.
func (v *ValidationStats) WriteJSON(filename string) error {
	doc := struct {
		Stats   *ValidationStats  `json:"stats"`
		Summary ValidationSummary `json:"summary"`
	}{v, v.Summary()}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return &ErrOpenFile{Filename: filename, Err: err}
	}
	return nil
}

// SavePlots writes one PNG histogram per distribution to dir and returns
// the files written. Empty distributions are skipped.
func (v *ValidationStats) SavePlots(dir string, datasetID string) ([]string, error) {
	hists := []struct {
		name   string
		xlabel string
		values []int
	}{
		{"pixels_per_frame_extracted", "Pixels per frame (extracted)", v.PixelsExtracted},
		{"pixels_per_frame_container", "Pixels per frame (frame container)", v.PixelsInFrame},
		{"clusters_per_frame_extracted", "Clusters per frame (extracted)", v.ClustersExtracted},
		{"clusters_per_frame_blobfinder", "Clusters per frame (blob finder)", v.ClustersFound},
		{"pixels_per_cluster", "Pixels per cluster", v.PixelsPerCluster},
	}

	var written []string
	for _, h := range hists {
		if len(h.values) == 0 {
			continue
		}
		p := plot.New()
		p.Title.Text = datasetID
		p.X.Label.Text = h.xlabel
		p.Y.Label.Text = "Entries"

		bins := 0
		for _, x := range h.values {
			bins = max(bins, x+1)
		}
		bins = min(max(bins, 1), 256)
		hist, err := plotter.NewHist(plotter.Values(toFloats(h.values)), bins)
		if err != nil {
			return written, fmt.Errorf("histogram %s: %w", h.name, err)
		}
		p.Add(hist)

		fname := filepath.Join(dir, fmt.Sprintf("%s_%s.png", datasetID, h.name))
		if err := p.Save(6*vg.Inch, 4*vg.Inch, fname); err != nil {
			return written, fmt.Errorf("saving %s: %w", fname, err)
		}
		written = append(written, fname)
	}
	return written, nil
}
