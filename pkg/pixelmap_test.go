package frames

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearizeRoundTrip(t *testing.T) {
	for _, width := range []int{1, 7, 256} {
		for key := 0; key < 3*width; key++ {
			x, y := Unlinearize(key, width)
			assert.Less(t, x, width)
			assert.Equal(t, key, Linearize(x, y, width))
		}
	}
}

func TestPixelMapFillAccumulates(t *testing.T) {
	m := NewPixelMap()
	m.Fill(3, 2, 256, 5)
	m.Fill(3, 2, 256, 7)
	m.Fill(0, 0, 256, 1)

	c, ok := m.Count(Linearize(3, 2, 256))
	require.True(t, ok)
	assert.Equal(t, 12, c)
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, 2, m.HitPixelCount())
	assert.Equal(t, 3, m.TotalHitEvents())
	assert.Equal(t, 13, m.TotalCountSum())
	assert.Equal(t, []int{0, 515}, m.Keys())

	_, ok = m.Count(1)
	assert.False(t, ok)
}

func TestPixelMapEnergiesAndTriggers(t *testing.T) {
	m := NewPixelMap()
	assert.False(t, m.HasEnergies())

	m.FillEnergy(1, 1, 4, 2, 10.0, 9.5)
	m.FillEnergy(1, 1, 4, 1, 1.0, 0.5)
	m.AddTrigger(5, 1)
	m.AddTrigger(5, 2)

	assert.True(t, m.HasEnergies())
	assert.Equal(t, map[int]float64{5: 11.0}, m.TruthEnergies())
	assert.Equal(t, map[int]float64{5: 10.0}, m.Energies())
	v, ok := m.Trigger(5)
	require.True(t, ok)
	assert.Equal(t, 3, v)

	m.ClearTriggers()
	assert.Empty(t, m.Triggers())
	assert.Equal(t, 1, m.Len())
}

func TestPixelMapCloneIsIndependent(t *testing.T) {
	m := NewPixelMap()
	m.Fill(1, 0, 2, 4)
	c := m.Clone()

	m.Fill(1, 0, 2, 4)
	m.Fill(0, 1, 2, 1)

	if diff := cmp.Diff(map[int]int{1: 4}, c.Counts()); diff != "" {
		t.Errorf("clone changed (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, c.TotalHitEvents())
}

func TestPixelMapCleanUpAndReset(t *testing.T) {
	m := NewPixelMap()
	m.FillEnergy(0, 0, 2, 1, 1, 1)
	m.AddTrigger(0, 1)

	m.CleanUpMatrix()
	assert.Zero(t, m.Len())
	assert.Empty(t, m.Triggers())
	assert.False(t, m.HasEnergies())
	assert.Equal(t, 1, m.HitPixelCount())

	m.ResetCounters()
	assert.Zero(t, m.HitPixelCount())
	assert.Zero(t, m.TotalHitEvents())
	assert.Zero(t, m.TotalCountSum())
}

func TestSetDACs(t *testing.T) {
	var d DetectorSettings
	assert.Nil(t, d.DACs())
	assert.Error(t, d.SetDACs(make([]int, NumDACs+1)))
	assert.Nil(t, d.DACs(), "a rejected vector leaves an unset vector unset")

	dacs := make([]int, NumDACs)
	for i := range dacs {
		dacs[i] = i + 1
	}
	require.NoError(t, d.SetDACs(dacs))
	assert.Equal(t, dacs, d.DACs())

	err := d.SetDACs(make([]int, NumDACs-1))
	var countErr *ErrDACCount
	require.ErrorAs(t, err, &countErr)
	assert.Equal(t, NumDACs-1, countErr.Got)
	assert.Equal(t, dacs, d.DACs(), "a rejected vector keeps the previous one")

	dacs[0] = 99
	assert.Equal(t, 1, d.DACs()[0], "stored vector is a copy")
}

func TestFrameOccupancyAndDose(t *testing.T) {
	f := NewFrameRecord()
	f.Width, f.Height = 10, 10
	f.FillOneElement(1, 1, 3)
	f.FillOneElement(2, 1, 3)

	assert.Equal(t, 2, f.Occupancy())
	assert.InDelta(t, 2.0, f.OccupancyPc(), 1e-9)

	f.CalculateDoseRates()
	assert.Equal(t, -1.0, f.DoseRate)

	f.AcqTime = 0.5
	f.Pixels.FillEnergy(3, 3, 10, 1, 0, 2.0)
	f.CalculateDoseRates()
	assert.InDelta(t, 4.0, f.DoseRate, 1e-9)
}

func TestRewindMetaDataValues(t *testing.T) {
	f := NewFrameRecord()
	assert.Equal(t, -1, f.Polarity)
	assert.Equal(t, -1, f.MpxType)
	assert.Equal(t, -1, f.ID)

	f.ChipboardID = "B06-W0212"
	f.Polarity = 1
	f.FillOneElement(0, 0, 1)
	f.RewindMetaDataValues()

	assert.Empty(t, f.ChipboardID)
	assert.Equal(t, -1, f.Polarity)
	assert.Equal(t, 1, f.Pixels.Len(), "rewinding metadata keeps the payload")
}
