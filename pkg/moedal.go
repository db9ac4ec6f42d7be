package frames

import (
	"fmt"

	"github.com/robert-malhotra/go-hdf5/hdf5"
)

const (
	moedalGroup     = "dscData"
	moedalWidth     = 256
	moedalFrameSize = moedalWidth * moedalWidth
)

// MoEDALInput is a dense MoEDAL acquisition file: per-frame start and
// acquisition times plus a 256x256 row-major hit matrix per frame.
type MoEDALInput struct {
	Filename   string
	StartTimes []float64
	AcqTimes   []float64
	Hits       []int32
}

func ReadMoEDALInput(filename string) (*MoEDALInput, error) {
	f, err := hdf5.Open(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	defer f.Close()

	g, err := f.OpenGroup("/" + moedalGroup)
	if err != nil {
		return nil, fmt.Errorf("%s has no %s group: %w", filename, moedalGroup, err)
	}
	in := &MoEDALInput{Filename: filename}
	if in.StartTimes, err = readColumn[float64](g, "Start_time"); err != nil {
		return nil, err
	}
	if in.AcqTimes, err = readColumn[float64](g, "Acq_time"); err != nil {
		return nil, err
	}
	if in.Hits, err = readColumn[int32](g, "hits"); err != nil {
		return nil, err
	}

	n := len(in.StartTimes)
	if len(in.AcqTimes) != n {
		return nil, fmt.Errorf("%s: %d start times but %d acquisition times", filename, n, len(in.AcqTimes))
	}
	if len(in.Hits) != n*moedalFrameSize {
		return nil, fmt.Errorf("%s: %d hit values for %d frames", filename, len(in.Hits), n)
	}
	return in, nil
}

func (in *MoEDALInput) NumFrames() int { return len(in.StartTimes) }

// FillFrame fills frame with the non-zero pixels of frame i (0-based) using
// the frame width, and sets its timing.
func (in *MoEDALInput) FillFrame(i int, frame *FrameRecord) {
	hits := in.Hits[i*moedalFrameSize : (i+1)*moedalFrameSize]
	for key, c := range hits {
		if c > 0 {
			frame.Pixels.Fill(key%moedalWidth, key/moedalWidth, frame.Width, int(c))
		}
	}
	frame.StartTime = in.StartTimes[i]
	frame.StartTimeString = PixelmanTime(in.StartTimes[i])
	frame.AcqTime = in.AcqTimes[i]
}

// ConvertMoEDAL writes up to maxFrames frames of in (all when maxFrames is
// 0) to w. Frames are numbered from 1.
func ConvertMoEDAL(in *MoEDALInput, provider MetadataProvider, w *Writer, maxFrames int) error {
	frame := NewFrameRecord()
	meta := provider.Metadata()
	n := in.NumFrames()
	if maxFrames > 0 && maxFrames < n {
		n = maxFrames
	}

	for i := 0; i < n; i++ {
		frame.Width = meta.Width
		in.FillFrame(i, frame)
		frame.SetFrameAsData()
		frame.ID = i + 1
		if err := AssembleMetadata(provider, frame); err != nil {
			logger.Error(fmt.Sprintf("ERROR: %v", err))
		}
		if err := w.Append(frame); err != nil {
			return fmt.Errorf("frame %d: %w", frame.ID, err)
		}
		if configuration.Verbosity > 1 {
			logger.Info(fmt.Sprintf("Frame %d: %d hit pixels", frame.ID, frame.Pixels.Len()), "mo2mf")
		}
		frame.ResetCounters()
		frame.CleanUpMatrix()
	}
	return nil
}
