package frames

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

type dscField int

const (
	fieldNone dscField = iota
	fieldAcqMode
	fieldAcqTime
	fieldChipboardID
	fieldDACs
	fieldHwTimer
	fieldInterface
	fieldPolarity
	fieldStartTime
	fieldStartTimeString
	fieldMpxClock
	fieldBiasVoltage
	fieldTimepixClock
	fieldTimepixClockMHz
	fieldFirmware
	fieldPixelmanVersion
	fieldMpxType
)

// Description keys are matched with their quotes so that "Start time"
// does not match "Start time (string)".
var dscKeys = []struct {
	key   string
	field dscField
}{
	{`"Acq mode"`, fieldAcqMode},
	{`"Acq time"`, fieldAcqTime},
	{`"ChipboardID"`, fieldChipboardID},
	{`"DACs"`, fieldDACs},
	{`"Hw timer"`, fieldHwTimer},
	{`"Interface"`, fieldInterface},
	{`"Polarity"`, fieldPolarity},
	{`"Start time"`, fieldStartTime},
	{`"Start time (string)"`, fieldStartTimeString},
	{`"Mpx clock"`, fieldMpxClock},
	{`"Bias voltage"`, fieldBiasVoltage},
	{`"Timepix clock"`, fieldTimepixClock},
	{`"Timepix clock [MHz]"`, fieldTimepixClockMHz},
	{`"Firmware"`, fieldFirmware},
	{`"Pixelman version"`, fieldPixelmanVersion},
	{`"Mpx type"`, fieldMpxType},
}

// Pixelman writes the value type, e.g. "i32[1]", between key and value.
var typeDeclaration = regexp.MustCompile(`^(i8|u8|i16|u16|i32|u32|i64|u64|byte|uchar|char|float|double|bool)\[\d+\]$`)

var timepixClocks = map[int]float64{0: 10, 1: 20, 2: 40, 3: 80}

// dscState is either idle (expecting == fieldNone) or waiting for the value
// of one field.
type dscState struct {
	expecting dscField
}

func matchDSCKey(line string) dscField {
	for _, k := range dscKeys {
		if strings.Contains(line, k.key) {
			return k.field
		}
	}
	return fieldNone
}

// step consumes one line and returns the next state.
func (s dscState) step(line string, fields *MetadataFields) dscState {
	line = strings.TrimRight(line, "\r")
	if s.expecting == fieldNone {
		field := matchDSCKey(line)
		if field == fieldNone && strings.HasPrefix(line, `"`) && configuration.Verbosity > 2 {
			logger.Info(fmt.Sprintf("Ignoring description key %s", line), "dsc")
		}
		return dscState{expecting: field}
	}
	if typeDeclaration.MatchString(strings.TrimSpace(line)) {
		return s
	}
	setDSCField(s.expecting, strings.TrimSpace(line), fields)
	return dscState{}
}

func atoiOrWarn(value string, name string) (int, bool) {
	v, err := strconv.Atoi(value)
	if err != nil {
		warn(fmt.Sprintf("couldn't parse %s from %q", name, value), "dsc")
		return 0, false
	}
	return v, true
}

func atofOrWarn(value string, name string) (float64, bool) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		warn(fmt.Sprintf("couldn't parse %s from %q", name, value), "dsc")
		return 0, false
	}
	return v, true
}

func setDSCField(field dscField, value string, m *MetadataFields) {
	switch field {
	case fieldAcqMode:
		if v, ok := atoiOrWarn(value, "acquisition mode"); ok {
			m.AcqMode = v
		}
	case fieldAcqTime:
		if v, ok := atofOrWarn(value, "acquisition time"); ok {
			m.AcqTime = v
		}
	case fieldChipboardID:
		m.ChipboardID = value
	case fieldDACs:
		tokens := strings.Fields(value)
		dacs := make([]int, 0, len(tokens))
		for _, t := range tokens {
			v, ok := atoiOrWarn(t, "DAC")
			if !ok {
				return
			}
			dacs = append(dacs, v)
		}
		if err := m.SetDACs(dacs); err != nil {
			warn(err.Error(), "dsc")
		}
	case fieldHwTimer:
		if v, ok := atoiOrWarn(value, "hardware timer mode"); ok {
			m.HwTimerMode = v
		}
	case fieldInterface:
		m.Interface = value
	case fieldPolarity:
		if v, ok := atoiOrWarn(value, "polarity"); ok {
			m.Polarity = v
		}
	case fieldStartTime:
		if v, ok := atofOrWarn(value, "start time"); ok {
			m.StartTime = v
		}
	case fieldStartTimeString:
		m.StartTimeString = value
	case fieldMpxClock:
		if v, ok := atofOrWarn(value, "Medipix clock"); ok {
			m.MpxClock = v
		}
	case fieldBiasVoltage:
		if v, ok := atofOrWarn(value, "bias voltage"); ok {
			m.BiasVoltage = v
		}
	case fieldTimepixClock:
		code, _ := strconv.Atoi(value)
		clock, ok := timepixClocks[code]
		if !ok {
			warn(fmt.Sprintf("couldn't determine the Timepix clock from %q", value), "dsc")
			clock = 10
		}
		m.TpxClock = clock
	case fieldTimepixClockMHz:
		if v, ok := atofOrWarn(value, "Timepix clock"); ok {
			m.TpxClock = v
		}
	case fieldFirmware:
		m.Firmware = value
	case fieldPixelmanVersion:
		m.PixelmanVersion = value
	case fieldMpxType:
		if v, ok := atoiOrWarn(value, "Medipix type"); ok {
			m.MpxType = v
		}
	}
}

// ParseDescriptionMetadata applies every key/value pair of a description
// record to fields. A read error stops parsing; fields parsed so far are
// kept.
func ParseDescriptionMetadata(r io.Reader, fields *MetadataFields) error {
	scanner := bufio.NewScanner(r)
	state := dscState{}
	for scanner.Scan() {
		state = state.step(scanner.Text(), fields)
	}
	if state.expecting != fieldNone {
		warn(fmt.Sprintf("description ended before the value of key %d", state.expecting), "dsc")
	}
	return scanner.Err()
}

func ParseDescriptionFile(filename string, fields *MetadataFields) error {
	file, err := os.Open(filename)
	if err != nil {
		return &ErrOpenFile{Filename: filename, Err: err}
	}
	defer file.Close()
	return ParseDescriptionMetadata(file, fields)
}
