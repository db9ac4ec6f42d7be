package frames

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// PixelmanTimeLayout is the layout of start time strings.
const PixelmanTimeLayout = "Mon Jan 02 15:04:05.000000 2006"

// PixelmanTime formats a Unix time in seconds the way Pixelman does, in UTC.
func PixelmanTime(seconds float64) string {
	sec, frac := math.Modf(seconds)
	nsec := int64(math.Round(frac * 1e9))
	return time.Unix(int64(sec), nsec).UTC().Format(PixelmanTimeLayout)
}

var (
	clusterHeader = regexp.MustCompile(`^\s*Frame\s+(\d+)\s*\(\s*([-+0-9.eE]+)\s*,\s*([-+0-9.eE]+)\s*s?\s*\)`)
	clusterPixel  = regexp.MustCompile(`\[\s*(-?\d+)\s*,\s*(-?\d+)\s*,\s*(-?\d+)\s*\]`)
)

// ClusterFrameInfo describes one frame read from a cluster log.
type ClusterFrameInfo struct {
	Number           int
	StartTime        float64
	AcqTime          float64
	Lines            int
	Headers          int
	Blanks           int
	Clusters         int
	Pixels           int
	PixelsPerCluster []int
}

// ClusterLogReader reads frames from a cluster log. Frames are numbered
// from 1 and every header must carry the expected number.
type ClusterLogReader struct {
	scanner *bufio.Scanner
	width   int
	next    int
	line    int
	done    bool
}

func NewClusterLogReader(r io.Reader, width int) *ClusterLogReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &ClusterLogReader{scanner: scanner, width: width, next: 1}
}

// FrameNumber is the number of the next frame to be read.
func (c *ClusterLogReader) FrameNumber() int { return c.next }

// ReadFrame fills frame with the next frame of the log. It returns io.EOF
// when no frame remains. A frame not terminated by a blank line at the end
// of the log is returned with a warning.
func (c *ClusterLogReader) ReadFrame(frame *FrameRecord) (ClusterFrameInfo, error) {
	info := ClusterFrameInfo{Number: c.next}
	if c.done {
		return info, io.EOF
	}
	started := false
	for c.scanner.Scan() {
		c.line++
		info.Lines++
		line := strings.TrimRight(c.scanner.Text(), "\r")

		switch {
		case strings.Contains(line, "("):
			info.Headers++
			m := clusterHeader.FindStringSubmatch(line)
			if m == nil {
				return info, fmt.Errorf("line %d: malformed frame header %q", c.line, line)
			}
			n, _ := strconv.Atoi(m[1])
			if n != c.next {
				return info, &ErrFrameMismatch{Expected: c.next, Found: n}
			}
			start, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				return info, fmt.Errorf("line %d: bad start time: %w", c.line, err)
			}
			acq, err := strconv.ParseFloat(m[3], 64)
			if err != nil {
				return info, fmt.Errorf("line %d: bad acquisition time: %w", c.line, err)
			}
			info.StartTime, info.AcqTime = start, acq
			frame.ID = n
			frame.StartTime = start
			frame.StartTimeString = PixelmanTime(start)
			frame.AcqTime = acq
			started = true

		case strings.TrimSpace(line) == "":
			info.Blanks++
			c.next++
			return info, nil

		default:
			matches := clusterPixel.FindAllStringSubmatch(line, -1)
			info.Clusters++
			info.PixelsPerCluster = append(info.PixelsPerCluster, len(matches))
			for _, m := range matches {
				x, _ := strconv.Atoi(m[1])
				y, _ := strconv.Atoi(m[2])
				count, _ := strconv.Atoi(m[3])
				frame.Pixels.Fill(x, y, c.width, count)
				info.Pixels++
			}
			started = true
		}
	}
	if err := c.scanner.Err(); err != nil {
		return info, fmt.Errorf("line %d: %w", c.line, err)
	}
	c.done = true
	if !started {
		return info, io.EOF
	}
	warn(fmt.Sprintf("frame %d is not terminated by a blank line", c.next), "cluster log")
	c.next++
	return info, nil
}

// ProcessClusterLog converts every frame of a cluster log into w using the
// calibration metadata of provider. maxFrames > 0 stops after that many
// frames. Frame statistics are added to stats when it is not nil.
func ProcessClusterLog(r io.Reader, provider MetadataProvider, w *Writer, maxFrames int, stats *ValidationStats) error {
	width := provider.Metadata().Width
	reader := NewClusterLogReader(r, width)
	frame := NewFrameRecord()

	for maxFrames <= 0 || reader.FrameNumber() <= maxFrames {
		info, err := reader.ReadFrame(frame)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		frame.SetFrameAsData()
		if err := AssembleMetadata(provider, frame); err != nil {
			logger.Error(fmt.Sprintf("ERROR: %v", err))
		}
		frame.UpdateOccupancy()
		if err := w.Append(frame); err != nil {
			return fmt.Errorf("frame %d: %w", info.Number, err)
		}

		blobs := FindBlobs(frame.Pixels, frame.Height, frame.Width)
		if stats != nil {
			stats.AddFrame(info, frame.Pixels.Len(), blobs.Size())
		}
		if configuration.Verbosity > 1 {
			logger.Info(fmt.Sprintf("Frame %d: %d clusters, %d pixels, %d blobs",
				info.Number, info.Clusters, frame.Pixels.Len(), blobs.Size()), "cl2mf")
		}

		frame.ResetCounters()
		frame.CleanUpMatrix()
	}
	return nil
}
