package frames

import "slices"

const NumDACs = 14

// DAC names in the order they are stored.
var DACNames = [NumDACs]string{
	"ikrum", "disc", "preamp", "buffanaloga", "buffanalogb", "hist", "thl",
	"thlcoarse", "vcas", "fbk", "gnd", "ths", "biaslvds", "reflvds",
}

type PayloadInfo struct {
	Width         int
	Height        int
	PayloadFormat int
	DatasetID     string
}

type AcquisitionInfo struct {
	StartTime                float64
	StartTimeString          string
	AcqTime                  float64
	AcqMode                  int
	HwTimerMode              int
	Counters                 []int
	AutoEraseInterval        float64
	AutoEraseIntervalCounter int
	LastTriggerTime          float64
	CoincidenceMode          int
	CoincidenceDelay         float64
	CoincidenceLiveTime      float64
	PixelmanVersion          string
}

type GeoInfo struct {
	Latitude  float64
	Longitude float64
	Altitude  float64
	OmegaX    float64
	OmegaY    float64
	OmegaZ    float64
	Roll      float64
	Pitch     float64
	Yaw       float64
}

type DetectorSettings struct {
	Polarity    int
	BiasVoltage float64
	MpxClock    float64
	TpxClock    float64
	BSActive    bool
	dacs        []int
}

// DACs returns a copy of the DAC vector, nil if it was never set.
func (d *DetectorSettings) DACs() []int {
	return slices.Clone(d.dacs)
}

// SetDACs stores dacs if it has exactly NumDACs values. Otherwise the
// previous vector is kept and an *ErrDACCount is returned.
func (d *DetectorSettings) SetDACs(dacs []int) error {
	if len(dacs) != NumDACs {
		return &ErrDACCount{Got: len(dacs)}
	}
	d.dacs = slices.Clone(dacs)
	return nil
}

type DetectorInfo struct {
	ChipboardID string
	CustomName  string
	Firmware    string
	Interface   string
	MpxType     int
	AppFilters  string
	DetX        float64
	DetY        float64
	DetZ        float64
	EulerA      float64
	EulerB      float64
	EulerC      float64
}

type SourceInfo struct {
	SourceID string
}

// MetadataFields is the plain data carried both by frame records and by
// metadata providers.
type MetadataFields struct {
	PayloadInfo
	AcquisitionInfo
	GeoInfo
	DetectorSettings
	DetectorInfo
	SourceInfo
}

func (m MetadataFields) EndTime() float64 {
	return m.StartTime + m.AcqTime
}

// Clone returns a copy that shares no slices with m.
func (m MetadataFields) Clone() MetadataFields {
	c := m
	c.Counters = slices.Clone(m.Counters)
	c.dacs = slices.Clone(m.dacs)
	return c
}

// MetadataProvider is implemented by every metadata source.
type MetadataProvider interface {
	Metadata() MetadataFields
}

// StaticMetadata is a MetadataProvider returning fixed fields.
type StaticMetadata MetadataFields

func (s StaticMetadata) Metadata() MetadataFields {
	return MetadataFields(s).Clone()
}

// NewMetadataFields returns fields with the defaults of a rewound frame.
func NewMetadataFields() MetadataFields {
	return MetadataFields{
		DetectorSettings: DetectorSettings{Polarity: -1},
		DetectorInfo:     DetectorInfo{MpxType: -1},
	}
}
