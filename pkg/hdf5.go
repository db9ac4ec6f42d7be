package frames

import (
	"fmt"

	"github.com/robert-malhotra/go-hdf5/hdf5"
)

const (
	framesGroup        = "frames"
	pixelsGroup        = "pixels"
	stringsGroup       = "strings"
	stringOffsetsGroup = "string_offsets"
	primariesGroup     = "primaries"
	infoGroup          = "info"
)

type intField struct {
	name string
	get  func(*FrameRecord) int
	set  func(*FrameRecord, int)
}

type floatField struct {
	name string
	get  func(*FrameRecord) float64
	set  func(*FrameRecord, float64)
}

type stringField struct {
	name string
	get  func(*FrameRecord) string
	set  func(*FrameRecord, string)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Scalar columns of the frames group, one value per frame.
var intFields = []intField{
	{"width", func(f *FrameRecord) int { return f.Width }, func(f *FrameRecord, v int) { f.Width = v }},
	{"height", func(f *FrameRecord) int { return f.Height }, func(f *FrameRecord, v int) { f.Height = v }},
	{"payload_format", func(f *FrameRecord) int { return f.PayloadFormat }, func(f *FrameRecord, v int) { f.PayloadFormat = v }},
	{"is_mc", func(f *FrameRecord) int { return boolToInt(f.IsMC) }, func(f *FrameRecord, v int) { f.IsMC = v != 0 }},
	{"acq_mode", func(f *FrameRecord) int { return f.AcqMode }, func(f *FrameRecord, v int) { f.AcqMode = v }},
	{"hw_timer", func(f *FrameRecord) int { return f.HwTimerMode }, func(f *FrameRecord, v int) { f.HwTimerMode = v }},
	{"auto_erase_interval_counter", func(f *FrameRecord) int { return f.AutoEraseIntervalCounter }, func(f *FrameRecord, v int) { f.AutoEraseIntervalCounter = v }},
	{"coincidence_mode", func(f *FrameRecord) int { return f.CoincidenceMode }, func(f *FrameRecord, v int) { f.CoincidenceMode = v }},
	{"polarity", func(f *FrameRecord) int { return f.Polarity }, func(f *FrameRecord, v int) { f.Polarity = v }},
	{"bs_active", func(f *FrameRecord) int { return boolToInt(f.BSActive) }, func(f *FrameRecord, v int) { f.BSActive = v != 0 }},
	{"mpx_type", func(f *FrameRecord) int { return f.MpxType }, func(f *FrameRecord, v int) { f.MpxType = v }},
}

var floatFields = []floatField{
	{"start_time", func(f *FrameRecord) float64 { return f.StartTime }, func(f *FrameRecord, v float64) { f.StartTime = v }},
	{"acq_time", func(f *FrameRecord) float64 { return f.AcqTime }, func(f *FrameRecord, v float64) { f.AcqTime = v }},
	{"auto_erase_interval", func(f *FrameRecord) float64 { return f.AutoEraseInterval }, func(f *FrameRecord, v float64) { f.AutoEraseInterval = v }},
	{"last_trigger_time", func(f *FrameRecord) float64 { return f.LastTriggerTime }, func(f *FrameRecord, v float64) { f.LastTriggerTime = v }},
	{"coincidence_delay", func(f *FrameRecord) float64 { return f.CoincidenceDelay }, func(f *FrameRecord, v float64) { f.CoincidenceDelay = v }},
	{"coincidence_live_time", func(f *FrameRecord) float64 { return f.CoincidenceLiveTime }, func(f *FrameRecord, v float64) { f.CoincidenceLiveTime = v }},
	{"latitude", func(f *FrameRecord) float64 { return f.Latitude }, func(f *FrameRecord, v float64) { f.Latitude = v }},
	{"longitude", func(f *FrameRecord) float64 { return f.Longitude }, func(f *FrameRecord, v float64) { f.Longitude = v }},
	{"altitude", func(f *FrameRecord) float64 { return f.Altitude }, func(f *FrameRecord, v float64) { f.Altitude = v }},
	{"omega_x", func(f *FrameRecord) float64 { return f.OmegaX }, func(f *FrameRecord, v float64) { f.OmegaX = v }},
	{"omega_y", func(f *FrameRecord) float64 { return f.OmegaY }, func(f *FrameRecord, v float64) { f.OmegaY = v }},
	{"omega_z", func(f *FrameRecord) float64 { return f.OmegaZ }, func(f *FrameRecord, v float64) { f.OmegaZ = v }},
	{"roll", func(f *FrameRecord) float64 { return f.Roll }, func(f *FrameRecord, v float64) { f.Roll = v }},
	{"pitch", func(f *FrameRecord) float64 { return f.Pitch }, func(f *FrameRecord, v float64) { f.Pitch = v }},
	{"yaw", func(f *FrameRecord) float64 { return f.Yaw }, func(f *FrameRecord, v float64) { f.Yaw = v }},
	{"bias_voltage", func(f *FrameRecord) float64 { return f.BiasVoltage }, func(f *FrameRecord, v float64) { f.BiasVoltage = v }},
	{"mpx_clock", func(f *FrameRecord) float64 { return f.MpxClock }, func(f *FrameRecord, v float64) { f.MpxClock = v }},
	{"tpx_clock", func(f *FrameRecord) float64 { return f.TpxClock }, func(f *FrameRecord, v float64) { f.TpxClock = v }},
	{"det_x", func(f *FrameRecord) float64 { return f.DetX }, func(f *FrameRecord, v float64) { f.DetX = v }},
	{"det_y", func(f *FrameRecord) float64 { return f.DetY }, func(f *FrameRecord, v float64) { f.DetY = v }},
	{"det_z", func(f *FrameRecord) float64 { return f.DetZ }, func(f *FrameRecord, v float64) { f.DetZ = v }},
	{"euler_a", func(f *FrameRecord) float64 { return f.EulerA }, func(f *FrameRecord, v float64) { f.EulerA = v }},
	{"euler_b", func(f *FrameRecord) float64 { return f.EulerB }, func(f *FrameRecord, v float64) { f.EulerB = v }},
	{"euler_c", func(f *FrameRecord) float64 { return f.EulerC }, func(f *FrameRecord, v float64) { f.EulerC = v }},
	{"dose_rate", func(f *FrameRecord) float64 { return f.DoseRate }, func(f *FrameRecord, v float64) { f.DoseRate = v }},
	{"dose_equivalent_rate", func(f *FrameRecord) float64 { return f.DoseEquivalentRate }, func(f *FrameRecord, v float64) { f.DoseEquivalentRate = v }},
}

var stringFields = []stringField{
	{"dataset_id", func(f *FrameRecord) string { return f.DatasetID }, func(f *FrameRecord, v string) { f.DatasetID = v }},
	{"start_time_string", func(f *FrameRecord) string { return f.StartTimeString }, func(f *FrameRecord, v string) { f.StartTimeString = v }},
	{"pixelman_version", func(f *FrameRecord) string { return f.PixelmanVersion }, func(f *FrameRecord, v string) { f.PixelmanVersion = v }},
	{"chipboard_id", func(f *FrameRecord) string { return f.ChipboardID }, func(f *FrameRecord, v string) { f.ChipboardID = v }},
	{"custom_name", func(f *FrameRecord) string { return f.CustomName }, func(f *FrameRecord, v string) { f.CustomName = v }},
	{"firmware", func(f *FrameRecord) string { return f.Firmware }, func(f *FrameRecord, v string) { f.Firmware = v }},
	{"interface", func(f *FrameRecord) string { return f.Interface }, func(f *FrameRecord, v string) { f.Interface = v }},
	{"app_filters", func(f *FrameRecord) string { return f.AppFilters }, func(f *FrameRecord, v string) { f.AppFilters = v }},
	{"source_id", func(f *FrameRecord) string { return f.SourceID }, func(f *FrameRecord, v string) { f.SourceID = v }},
}

type columnType interface {
	int32 | int64 | uint8 | float64
}

func openFile(fname string) (*hdf5.File, error) {
	f, err := hdf5.Create(fname)
	if err != nil {
		return nil, &ErrOpenFile{Filename: fname, Err: err}
	}
	return f, nil
}

func createGroup(file *hdf5.File, groupName string) (*hdf5.Group, error) {
	g, err := file.Root().CreateGroup(groupName)
	if err != nil {
		return nil, &ErrCreateGroup{GroupName: groupName, Err: err}
	}
	return g, nil
}

// createColumn writes values as a one-dimensional dataset.
func createColumn[T columnType](group *hdf5.Group, name string, values []T, opts []hdf5.DatasetOption) error {
	if values == nil {
		values = []T{}
	}
	_, err := group.CreateDataset(name, values, opts...)
	if err != nil {
		return &ErrCreateTable{TableName: fmt.Sprintf("%s/%s", group.Path(), name), Err: err}
	}
	return nil
}

// readColumn reads a dataset written by createColumn.
func readColumn[T columnType](group *hdf5.Group, name string) ([]T, error) {
	ds, err := group.OpenDataset(name)
	if err != nil {
		return nil, fmt.Errorf("error opening column %s/%s: %w", group.Path(), name, err)
	}
	values := make([]T, 0)
	if ds.NumElements() == 0 {
		return values, nil
	}
	if err := ds.Read(&values); err != nil {
		return nil, fmt.Errorf("error reading column %s/%s: %w", group.Path(), name, err)
	}
	return values, nil
}

// encodeStrings packs strings into one byte column and len+1 offsets.
func encodeStrings(values []string) ([]uint8, []int64) {
	offsets := make([]int64, 0, len(values)+1)
	data := make([]uint8, 0)
	offsets = append(offsets, 0)
	for _, s := range values {
		data = append(data, s...)
		offsets = append(offsets, int64(len(data)))
	}
	return data, offsets
}

func decodeStrings(data []uint8, offsets []int64) ([]string, error) {
	if len(offsets) == 0 {
		return nil, fmt.Errorf("string column without offsets")
	}
	values := make([]string, len(offsets)-1)
	for i := range values {
		start, end := offsets[i], offsets[i+1]
		if start < 0 || end < start || end > int64(len(data)) {
			return nil, fmt.Errorf("string %d has invalid offsets [%d, %d)", i, start, end)
		}
		values[i] = string(data[start:end])
	}
	return values, nil
}
