package frames

import (
	"context"
	"fmt"
)

// Apply sets the additional metadata on frame i. Frames of the ISS source
// are positioned by geo at their start time; the others take the fixed
// position of the document.
func (u *UpdateMetadata) Apply(ctx context.Context, i int, frame *FrameRecord, geo Geolocator) error {
	if u.IsMC != 0 {
		frame.SetFrameAsMC()
	} else {
		frame.SetFrameAsData()
	}
	frame.DatasetID = u.DatasetID
	frame.ID = i
	frame.UpdateOccupancy()

	if u.SourceID == "ISS" && geo != nil {
		pos, err := geo.Position(ctx, int64(frame.StartTime))
		if err != nil {
			return fmt.Errorf("position at %d: %w", int64(frame.StartTime), err)
		}
		frame.Latitude = pos.Latitude
		frame.Longitude = pos.Longitude
		frame.Altitude = pos.Altitude
	} else {
		frame.Latitude = u.Lat
		frame.Longitude = u.Lon
		frame.Altitude = u.Alt
	}

	frame.Roll = u.Roll
	frame.Pitch = u.Pitch
	frame.Yaw = u.Yaw
	frame.OmegaX = u.OmegaX
	frame.OmegaY = u.OmegaY
	frame.OmegaZ = u.OmegaZ
	frame.CustomName = u.CustomName
	frame.AppFilters = u.AppFilters
	frame.DetX = u.DetX
	frame.DetY = u.DetY
	frame.DetZ = u.DetZ
	frame.EulerA = u.EulerA
	frame.EulerB = u.EulerB
	frame.EulerC = u.EulerC
	frame.SourceID = u.SourceID
	return nil
}

// UpdateUnit applies u to every frame of a unit.
func UpdateUnit(ctx context.Context, input string, output string, u *UpdateMetadata, geo Geolocator) error {
	return RewriteUnit(input, output, configuration.Compression, configuration.CompressionLevel,
		func(i int, frame *FrameRecord) error {
			return u.Apply(ctx, i, frame, geo)
		})
}
