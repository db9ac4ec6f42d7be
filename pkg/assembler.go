package frames

import (
	"fmt"
	"slices"
)

// AssembleMetadata copies the provider's metadata onto frame, section by
// section: payload, acquisition, geospatial, detector settings, detector
// information and source. Occupancy and dose rates are recomputed once the
// payload section, which holds the frame size, is in place. A frame that
// already carries its own timing keeps its start and acquisition times.
//
// Providers without DACs leave the frame's DACs alone. A DAC vector of the
// wrong length is returned as an *ErrDACCount after every other field has
// been copied.
func AssembleMetadata(provider MetadataProvider, frame *FrameRecord) error {
	m := provider.Metadata()

	frame.PayloadInfo = m.PayloadInfo
	frame.UpdateOccupancy()
	frame.CalculateDoseRates()

	start, startString, acqTime := frame.StartTime, frame.StartTimeString, frame.AcqTime
	frame.AcquisitionInfo = m.AcquisitionInfo
	frame.Counters = slices.Clone(m.Counters)
	if startString != "" || start != 0 || acqTime != 0 {
		frame.StartTime = start
		frame.StartTimeString = startString
		frame.AcqTime = acqTime
	}

	frame.GeoInfo = m.GeoInfo

	frame.Polarity = m.Polarity
	frame.BiasVoltage = m.BiasVoltage
	var dacErr error
	if m.dacs != nil {
		dacErr = frame.SetDACs(m.dacs)
	}
	frame.MpxClock = m.MpxClock
	frame.TpxClock = m.TpxClock
	frame.BSActive = m.BSActive

	frame.DetectorInfo = m.DetectorInfo

	frame.SourceInfo = m.SourceInfo

	if dacErr != nil {
		return fmt.Errorf("frame %d: %w", frame.ID, dacErr)
	}
	return nil
}
