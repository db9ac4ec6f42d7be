package frames

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
)

// xmlMetadataDoc is the dataset metadata document used by the calibration
// and MoEDAL converters. The root element name is not checked; its id
// attribute is the dataset id.
type xmlMetadataDoc struct {
	XMLName xml.Name
	ID      string `xml:"id,attr"`

	FrameWidth    int `xml:"framewidth"`
	FrameHeight   int `xml:"frameheight"`
	PayloadFormat int `xml:"payloadformat"`

	AcqMode                  int     `xml:"acqmode"`
	CounterStr               int     `xml:"counterstr"`
	CounterSvc               int     `xml:"countersvc"`
	CounterSic               int     `xml:"countersic"`
	HwTimer                  int     `xml:"hwtimer"`
	AutoEraseInterval        float64 `xml:"autoeraseint"`
	AutoEraseIntervalCounter int     `xml:"autoeraseintc"`
	TriggerTime              float64 `xml:"triggertime"`
	CoincMode                int     `xml:"coincmode"`
	CoincDelay               float64 `xml:"coincdelay"`
	CoincLiveTime            float64 `xml:"coinclivetime"`
	PixelmanVersion          string  `xml:"pixelmanversion"`

	Lat    float64 `xml:"lat"`
	Lon    float64 `xml:"lon"`
	Alt    float64 `xml:"alt"`
	Roll   float64 `xml:"roll"`
	Pitch  float64 `xml:"pitch"`
	Yaw    float64 `xml:"yaw"`
	OmegaX float64 `xml:"omegax"`
	OmegaY float64 `xml:"omegay"`
	OmegaZ float64 `xml:"omegaz"`

	Polarity    int     `xml:"polarity"`
	BiasVoltage float64 `xml:"biasvoltage"`
	IKrum       int     `xml:"ikrum"`
	Disc        int     `xml:"disc"`
	Preamp      int     `xml:"preamp"`
	BuffAnalogA int     `xml:"buffanaloga"`
	BuffAnalogB int     `xml:"buffanalogb"`
	Hist        int     `xml:"hist"`
	THL         int     `xml:"thl"`
	THLCoarse   int     `xml:"thlcoarse"`
	VCas        int     `xml:"vcas"`
	FBK         int     `xml:"fbk"`
	GND         int     `xml:"gnd"`
	THS         int     `xml:"ths"`
	BiasLVDS    int     `xml:"biaslvds"`
	RefLVDS     int     `xml:"reflvds"`
	MpxClock    float64 `xml:"mpxclock"`
	TpxClock    float64 `xml:"tpxclock"`
	BSActive    string  `xml:"bsactive"`

	ChipboardID string  `xml:"chipboardid"`
	CustomName  string  `xml:"customname"`
	Firmware    string  `xml:"firmware"`
	Interface   string  `xml:"interface"`
	MpxType     int     `xml:"mpxtype"`
	AppFilters  string  `xml:"appfilters"`
	DetX        float64 `xml:"detx"`
	DetY        float64 `xml:"dety"`
	DetZ        float64 `xml:"detz"`
	EulerA      float64 `xml:"eulera"`
	EulerB      float64 `xml:"eulerb"`
	EulerC      float64 `xml:"eulerc"`

	SourceID string `xml:"sourceid"`
}

// XMLMetadata is a MetadataProvider read from a dataset metadata document.
type XMLMetadata struct {
	Filename string
	fields   MetadataFields
}

func (x *XMLMetadata) Metadata() MetadataFields {
	return x.fields.Clone()
}

func (x *XMLMetadata) DatasetID() string {
	return x.fields.DatasetID
}

func LoadXMLMetadata(filename string) (*XMLMetadata, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	x, err := ParseXMLMetadata(data)
	if err != nil {
		return nil, fmt.Errorf("invalid metadata file %s: %w", filename, err)
	}
	x.Filename = filename
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Loaded metadata for dataset %q from %s", x.DatasetID(), filename), "metadata")
	}
	return x, nil
}

func ParseXMLMetadata(data []byte) (*XMLMetadata, error) {
	doc := xmlMetadataDoc{Polarity: 1}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	m := MetadataFields{}
	m.DatasetID = doc.ID
	m.Width = doc.FrameWidth
	m.Height = doc.FrameHeight
	m.PayloadFormat = doc.PayloadFormat

	m.AcqMode = doc.AcqMode
	m.Counters = []int{doc.CounterStr, doc.CounterSvc, doc.CounterSic}
	m.HwTimerMode = doc.HwTimer
	m.AutoEraseInterval = doc.AutoEraseInterval
	m.AutoEraseIntervalCounter = doc.AutoEraseIntervalCounter
	m.LastTriggerTime = doc.TriggerTime
	m.CoincidenceMode = doc.CoincMode
	m.CoincidenceDelay = doc.CoincDelay
	m.CoincidenceLiveTime = doc.CoincLiveTime
	m.PixelmanVersion = strings.TrimSpace(doc.PixelmanVersion)

	m.Latitude = doc.Lat
	m.Longitude = doc.Lon
	m.Altitude = doc.Alt
	m.Roll = doc.Roll
	m.Pitch = doc.Pitch
	m.Yaw = doc.Yaw
	m.OmegaX = doc.OmegaX
	m.OmegaY = doc.OmegaY
	m.OmegaZ = doc.OmegaZ

	m.Polarity = doc.Polarity
	m.BiasVoltage = doc.BiasVoltage
	dacs := []int{doc.IKrum, doc.Disc, doc.Preamp, doc.BuffAnalogA, doc.BuffAnalogB,
		doc.Hist, doc.THL, doc.THLCoarse, doc.VCas, doc.FBK, doc.GND, doc.THS,
		doc.BiasLVDS, doc.RefLVDS}
	if err := m.SetDACs(dacs); err != nil {
		return nil, err
	}
	m.MpxClock = doc.MpxClock
	m.TpxClock = doc.TpxClock
	m.BSActive = strings.TrimSpace(doc.BSActive) == "1"

	m.ChipboardID = strings.TrimSpace(doc.ChipboardID)
	m.CustomName = strings.TrimSpace(doc.CustomName)
	m.Firmware = strings.TrimSpace(doc.Firmware)
	m.Interface = strings.TrimSpace(doc.Interface)
	m.MpxType = doc.MpxType
	m.AppFilters = strings.TrimSpace(doc.AppFilters)
	m.DetX = doc.DetX
	m.DetY = doc.DetY
	m.DetZ = doc.DetZ
	m.EulerA = doc.EulerA
	m.EulerB = doc.EulerB
	m.EulerC = doc.EulerC

	m.SourceID = strings.TrimSpace(doc.SourceID)

	return &XMLMetadata{fields: m}, nil
}

// UpdateMetadata holds the fields applied to existing frames by the
// updater.
type UpdateMetadata struct {
	XMLName    xml.Name
	DatasetID  string  `xml:"id,attr"`
	IsMC       int     `xml:"ismc"`
	Lat        float64 `xml:"lat"`
	Lon        float64 `xml:"lon"`
	Alt        float64 `xml:"alt"`
	CustomName string  `xml:"customname"`
	AppFilters string  `xml:"appfilters"`
	DetX       float64 `xml:"detx"`
	DetY       float64 `xml:"dety"`
	DetZ       float64 `xml:"detz"`
	EulerA     float64 `xml:"eulera"`
	EulerB     float64 `xml:"eulerb"`
	EulerC     float64 `xml:"eulerc"`
	OmegaX     float64 `xml:"omegax"`
	OmegaY     float64 `xml:"omegay"`
	OmegaZ     float64 `xml:"omegaz"`
	Roll       float64 `xml:"roll"`
	Pitch      float64 `xml:"pitch"`
	Yaw        float64 `xml:"yaw"`
	SourceID   string  `xml:"sourceid"`
}

func LoadUpdateMetadata(filename string) (*UpdateMetadata, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	var u UpdateMetadata
	if err := xml.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("invalid metadata file %s: %w", filename, err)
	}
	u.CustomName = strings.TrimSpace(u.CustomName)
	u.AppFilters = strings.TrimSpace(u.AppFilters)
	u.SourceID = strings.TrimSpace(u.SourceID)
	return &u, nil
}
