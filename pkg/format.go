package frames

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Encoding is a bit set describing how a payload is stored.
type Encoding uint32

const (
	EncodingASCII Encoding = 1 << iota
	EncodingBinary
	EncodingI16
	EncodingU32
	EncodingDouble
	EncodingSparseXY
	EncodingSparseX
)

var encodingNames = []struct {
	bit  Encoding
	name string
}{
	{EncodingASCII, "ASCII"},
	{EncodingBinary, "BINARY"},
	{EncodingI16, "I16"},
	{EncodingU32, "U32"},
	{EncodingDouble, "DOUBLE"},
	{EncodingSparseXY, "SPARSEXY"},
	{EncodingSparseX, "SPARSEX"},
}

func (e Encoding) Has(bits Encoding) bool {
	return e&bits == bits
}

func (e Encoding) IsDense() bool {
	return e&(EncodingSparseX|EncodingSparseXY) == 0
}

func (e Encoding) String() string {
	if e == 0 {
		return "UNKNOWN"
	}
	parts := make([]string, 0, 3)
	for _, n := range encodingNames {
		if e.Has(n.bit) {
			parts = append(parts, n.name)
		}
	}
	if e.IsDense() {
		parts = append(parts, "MATRIX")
	}
	return strings.Join(parts, "|")
}

func (e Encoding) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

// FrameFormat is what a description record says about its payload.
type FrameFormat struct {
	Width      int
	Height     int
	FrameCount int
	Encoding   Encoding
}

func (f FrameFormat) IsMultiFrame() bool {
	return f.FrameCount > 1
}

const (
	typeLabel   = "Type="
	widthLabel  = "width="
	heightLabel = "height="
)

var elementTypes = []struct {
	name string
	bit  Encoding
}{
	{"i16", EncodingI16},
	{"u32", EncodingU32},
	{"double", EncodingDouble},
}

var layoutTypes = []struct {
	tag string
	bit Encoding
}{
	{"[X,Y,C]", EncodingSparseXY},
	{"[X,C]", EncodingSparseX},
}

// DetectFormatFile runs DetectFormat on a description file.
func DetectFormatFile(filename string) (FrameFormat, error) {
	file, err := os.Open(filename)
	if err != nil {
		return FrameFormat{}, &ErrOpenFile{Filename: filename, Err: err}
	}
	defer file.Close()
	format, err := DetectFormat(file)
	if err != nil {
		if e, ok := err.(*ErrUnknownFormat); ok {
			e.Source = filename
		}
		return format, err
	}
	return format, nil
}

// DetectFormat reads the header of a description record. Line one is the
// encoding character followed by the frame count, line three the type line
// "Type=<elem> [<layout>] width=<W> height=<H>".
func DetectFormat(r io.Reader) (FrameFormat, error) {
	var format FrameFormat
	scanner := bufio.NewScanner(r)

	first, ok := nextNonEmptyLine(scanner)
	if !ok {
		return format, &ErrUnknownFormat{Reason: "empty description"}
	}

	var base Encoding
	switch first[0] {
	case 'A':
		base = EncodingASCII
	case 'B':
		base = EncodingBinary
	default:
		return format, &ErrUnknownFormat{Reason: fmt.Sprintf("unknown encoding character %q", first[0])}
	}

	count, err := strconv.Atoi(strings.TrimSpace(first[1:]))
	if err != nil {
		return format, &ErrUnknownFormat{Reason: fmt.Sprintf("bad frame count %q", first[1:])}
	}
	format.FrameCount = count

	// The second line is a frame label; the type line follows it.
	if !scanner.Scan() {
		return format, &ErrUnknownFormat{Reason: "missing type line"}
	}
	typeLine := ""
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), typeLabel) {
			typeLine = scanner.Text()
			break
		}
	}
	if typeLine == "" {
		return format, &ErrUnknownFormat{Reason: "missing type line"}
	}

	format.Width = scanLabelledInt(typeLine, widthLabel)
	format.Height = scanLabelledInt(typeLine, heightLabel)

	encoding, err := parseTypeLine(typeLine)
	if err != nil {
		return format, err
	}
	format.Encoding = base | encoding
	return format, nil
}

func nextNonEmptyLine(scanner *bufio.Scanner) (string, bool) {
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) != "" {
			return strings.TrimLeft(line, " \t"), true
		}
	}
	return "", false
}

// scanLabelledInt reads the digits after label up to the next space, CR or
// NUL. A missing label gives 0.
func scanLabelledInt(line string, label string) int {
	i := strings.Index(line, label)
	if i < 0 {
		return 0
	}
	rest := line[i+len(label):]
	end := strings.IndexAny(rest, " \r\x00")
	if end >= 0 {
		rest = rest[:end]
	}
	v, _ := strconv.Atoi(rest)
	return v
}

func parseTypeLine(line string) (Encoding, error) {
	i := strings.Index(line, typeLabel)
	if i < 0 {
		return 0, &ErrUnknownFormat{Reason: fmt.Sprintf("no %q in %q", typeLabel, line)}
	}
	fields := strings.Fields(line[i+len(typeLabel):])
	if len(fields) == 0 {
		return 0, &ErrUnknownFormat{Reason: "empty type"}
	}

	var encoding Encoding
	for _, t := range elementTypes {
		if fields[0] == t.name {
			encoding = t.bit
		}
	}
	if encoding == 0 {
		return 0, &ErrUnknownFormat{Reason: fmt.Sprintf("unknown element type %q", fields[0])}
	}

	if len(fields) > 1 && strings.HasPrefix(fields[1], "[") {
		found := false
		for _, l := range layoutTypes {
			if fields[1] == l.tag {
				encoding |= l.bit
				found = true
			}
		}
		if !found {
			return 0, &ErrUnknownFormat{Reason: fmt.Sprintf("unknown layout %q", fields[1])}
		}
	}
	return encoding, nil
}
