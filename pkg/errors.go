package frames

import "fmt"

// ErrOpenFile represents an error when opening a file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error { return e.Err }

// ErrCreateGroup represents an error when creating a group.
type ErrCreateGroup struct {
	GroupName string
	Err       error
}

func (e *ErrCreateGroup) Error() string {
	return fmt.Sprintf("error creating group %q: %v", e.GroupName, e.Err)
}

func (e *ErrCreateGroup) Unwrap() error { return e.Err }

// ErrCreateTable represents an error when creating a dataset column.
type ErrCreateTable struct {
	TableName string
	Err       error
}

func (e *ErrCreateTable) Error() string {
	return fmt.Sprintf("error creating table %q: %v", e.TableName, e.Err)
}

func (e *ErrCreateTable) Unwrap() error { return e.Err }

// ErrWriteUnit is returned when a unit file could not be written.
type ErrWriteUnit struct {
	Filename string
	Err      error
}

func (e *ErrWriteUnit) Error() string {
	return fmt.Sprintf("error writing unit %s: %v", e.Filename, e.Err)
}

func (e *ErrWriteUnit) Unwrap() error { return e.Err }

// ErrUnknownFormat is returned when a description record does not name a
// known payload encoding.
type ErrUnknownFormat struct {
	Source string
	Reason string
}

func (e *ErrUnknownFormat) Error() string {
	return fmt.Sprintf("unable to determine frame type of %q: %s", e.Source, e.Reason)
}

// ErrUnsupportedEncoding is returned for encodings that are recognised but
// have no decoder.
type ErrUnsupportedEncoding struct {
	Encoding Encoding
}

func (e *ErrUnsupportedEncoding) Error() string {
	return fmt.Sprintf("unsupported payload encoding %v", e.Encoding)
}

// ErrTruncatedRecord is returned when a payload ends in the middle of a pixel
// record.
type ErrTruncatedRecord struct {
	Offset int64
	Field  string
	Err    error
}

func (e *ErrTruncatedRecord) Error() string {
	return fmt.Sprintf("truncated pixel record at offset %d reading %s: %v", e.Offset, e.Field, e.Err)
}

func (e *ErrTruncatedRecord) Unwrap() error { return e.Err }

// ErrDACCount is returned when a DAC vector does not have NumDACs entries.
type ErrDACCount struct {
	Got int
}

func (e *ErrDACCount) Error() string {
	return fmt.Sprintf("DAC vector must have %d values, got %d", NumDACs, e.Got)
}

// ErrFrameMismatch is returned when a cluster log header names a frame other
// than the one expected.
type ErrFrameMismatch struct {
	Expected int
	Found    int
}

func (e *ErrFrameMismatch) Error() string {
	return fmt.Sprintf("frame number mismatch: expected %d, found %d", e.Expected, e.Found)
}

// ErrPairMismatch is returned when payload and description lists differ in
// length.
type ErrPairMismatch struct {
	Payloads     int
	Descriptions int
}

func (e *ErrPairMismatch) Error() string {
	return fmt.Sprintf("found %d payload files but %d description files", e.Payloads, e.Descriptions)
}
