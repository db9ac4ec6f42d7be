package frames

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// filterWidth is the row length of the keys in a filter file.
const filterWidth = 256

// PixelFilter maps filter keys (256*y + x) to the trigger value set on that
// pixel.
type PixelFilter struct {
	Name   string
	Values map[int]int
}

func LoadPixelFilter(filename string, name string) (*PixelFilter, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	defer f.Close()
	filter, err := ParsePixelFilter(f, name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return filter, nil
}

// ParsePixelFilter reads whitespace separated "x y C" triples. Reading
// stops at the first token that is not an integer.
func ParsePixelFilter(r io.Reader, name string) (*PixelFilter, error) {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)
	filter := &PixelFilter{Name: name, Values: make(map[int]int)}

	var triple [3]int
	n := 0
	for scanner.Scan() {
		v, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err != nil {
			warn(fmt.Sprintf("filter %s: stopping at %q", name, scanner.Text()), "filter")
			break
		}
		triple[n] = v
		n++
		if n == 3 {
			filter.Values[filterWidth*triple[1]+triple[0]] = triple[2]
			n = 0
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return filter, nil
}

// Apply replaces the triggers of frame with the filter values and records
// the filter name.
func (p *PixelFilter) Apply(frame *FrameRecord) {
	frame.AppFilters = p.Name
	frame.Pixels.ClearTriggers()
	for _, key := range sortedKeys(p.Values) {
		x, y := key%filterWidth, key/filterWidth
		frame.Pixels.AddTrigger(Linearize(x, y, frame.Width), p.Values[key])
	}
}

// FilterUnit applies the filter to every frame of a unit.
func FilterUnit(input string, output string, filter *PixelFilter) error {
	return RewriteUnit(input, output, configuration.Compression, configuration.CompressionLevel,
		func(_ int, frame *FrameRecord) error {
			filter.Apply(frame)
			return nil
		})
}
