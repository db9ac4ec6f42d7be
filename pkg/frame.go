package frames

// Primary is the generated particle of a simulated frame.
type Primary struct {
	PDG     int
	VertexX float64
	VertexY float64
	VertexZ float64
	Px      float64
	Py      float64
	Pz      float64
	Energy  float64
}

// FrameRecord is one frame: metadata plus the pixel map. A single record
// is reused across the frames of a conversion.
type FrameRecord struct {
	MetadataFields
	ID                 int
	IsMC               bool
	DoseRate           float64
	DoseEquivalentRate float64
	Primaries          []Primary
	Pixels             *PixelMap

	occupancy   int
	occupancyPc float64
}

func NewFrameRecord() *FrameRecord {
	f := &FrameRecord{Pixels: NewPixelMap()}
	f.RewindMetaDataValues()
	return f
}

// RewindMetaDataValues resets every metadata field to its default.
func (f *FrameRecord) RewindMetaDataValues() {
	f.MetadataFields = MetadataFields{}
	f.Polarity = -1
	f.MpxType = -1
	f.ID = -1
	f.DoseRate = -1
	f.DoseEquivalentRate = -1
	f.Primaries = nil
	f.occupancy = 0
	f.occupancyPc = 0
}

// CleanUpMatrix clears the payload, leaving metadata untouched.
func (f *FrameRecord) CleanUpMatrix() {
	f.Pixels.CleanUpMatrix()
}

func (f *FrameRecord) ResetCounters() {
	f.Pixels.ResetCounters()
	f.IsMC = false
}

func (f *FrameRecord) SetFrameAsData() { f.IsMC = false }
func (f *FrameRecord) SetFrameAsMC()   { f.IsMC = true }

// FillOneElement adds count at (x, y) using the frame width.
func (f *FrameRecord) FillOneElement(x, y, count int) {
	f.Pixels.Fill(x, y, f.Width, count)
}

func (f *FrameRecord) UpdateOccupancy() {
	f.occupancy = f.Pixels.Len()
	area := f.Width * f.Height
	if area > 0 {
		f.occupancyPc = 100 * float64(f.occupancy) / float64(area)
	} else {
		f.occupancyPc = 0
	}
}

func (f *FrameRecord) Occupancy() int {
	f.UpdateOccupancy()
	return f.occupancy
}

func (f *FrameRecord) OccupancyPc() float64 {
	f.UpdateOccupancy()
	return f.occupancyPc
}

// CalculateDoseRates sets the dose rate from the measured pixel energies.
// Frames without energies get -1.
func (f *FrameRecord) CalculateDoseRates() {
	f.DoseEquivalentRate = -1
	if !f.Pixels.HasEnergies() || f.AcqTime <= 0 {
		f.DoseRate = -1
		return
	}
	var total float64
	for _, e := range f.Pixels.Energies() {
		total += e
	}
	f.DoseRate = total / f.AcqTime
}

// Snapshot returns a deep copy of the record.
func (f *FrameRecord) Snapshot() *FrameRecord {
	c := *f
	c.MetadataFields = f.MetadataFields.Clone()
	c.Pixels = f.Pixels.Clone()
	if f.Primaries != nil {
		c.Primaries = append([]Primary(nil), f.Primaries...)
	}
	return &c
}
