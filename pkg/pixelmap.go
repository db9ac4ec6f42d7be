package frames

import (
	"slices"

	"golang.org/x/exp/maps"
)

// Linearize returns the pixel map key of column x and row y.
func Linearize(x, y, width int) int {
	return y*width + x
}

// Unlinearize is the inverse of Linearize for 0 <= x < width.
func Unlinearize(key, width int) (x, y int) {
	return key % width, key / width
}

// PixelMap holds the hit pixels of one frame keyed by linear coordinate.
// Counts accumulate: filling the same key twice stores the sum.
type PixelMap struct {
	counts      map[int]int
	triggers    map[int]int
	truthEnergy map[int]float64
	energy      map[int]float64

	hitPixels int
	hitEvents int
	countSum  int
}

func NewPixelMap() *PixelMap {
	return &PixelMap{
		counts:      make(map[int]int),
		triggers:    make(map[int]int),
		truthEnergy: make(map[int]float64),
		energy:      make(map[int]float64),
	}
}

// Fill adds count at column x, row y of a frame of the given width.
func (m *PixelMap) Fill(x, y, width, count int) {
	m.FillKey(Linearize(x, y, width), count)
}

func (m *PixelMap) FillKey(key, count int) {
	if _, ok := m.counts[key]; !ok {
		m.hitPixels++
	}
	m.counts[key] += count
	m.hitEvents++
	m.countSum += count
}

// FillEnergy fills count like Fill and accumulates the truth and measured
// energies of the pixel.
func (m *PixelMap) FillEnergy(x, y, width, count int, truthE, e float64) {
	key := Linearize(x, y, width)
	m.FillKey(key, count)
	m.truthEnergy[key] += truthE
	m.energy[key] += e
}

func (m *PixelMap) setEnergy(key int, truthE, e float64) {
	m.truthEnergy[key] = truthE
	m.energy[key] = e
}

// AddTrigger adds value to the trigger of key.
func (m *PixelMap) AddTrigger(key, value int) {
	m.triggers[key] += value
}

func (m *PixelMap) ClearTriggers() {
	maps.Clear(m.triggers)
}

func (m *PixelMap) Count(key int) (int, bool) {
	c, ok := m.counts[key]
	return c, ok
}

func (m *PixelMap) Trigger(key int) (int, bool) {
	v, ok := m.triggers[key]
	return v, ok
}

// Counts returns the count map. Callers must not modify it.
func (m *PixelMap) Counts() map[int]int { return m.counts }
func (m *PixelMap) Triggers() map[int]int { return m.triggers }
func (m *PixelMap) TruthEnergies() map[int]float64 { return m.truthEnergy }
func (m *PixelMap) Energies() map[int]float64 { return m.energy }
func (m *PixelMap) Len() int { return len(m.counts) }
func (m *PixelMap) HitPixelCount() int { return m.hitPixels }
func (m *PixelMap) TotalHitEvents() int { return m.hitEvents }
func (m *PixelMap) TotalCountSum() int { return m.countSum }
func (m *PixelMap) HasEnergies() bool { return len(m.energy) > 0 }

// Keys returns the hit pixel keys in ascending order.
func (m *PixelMap) Keys() []int {
	return sortedKeys(m.counts)
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// CleanUpMatrix removes every pixel, trigger and energy entry.
func (m *PixelMap) CleanUpMatrix() {
	maps.Clear(m.counts)
	maps.Clear(m.triggers)
	maps.Clear(m.truthEnergy)
	maps.Clear(m.energy)
}

func (m *PixelMap) ResetCounters() {
	m.hitPixels = 0
	m.hitEvents = 0
	m.countSum = 0
}

// Clone returns an independent copy of the map and its counters.
func (m *PixelMap) Clone() *PixelMap {
	return &PixelMap{
		counts:      maps.Clone(m.counts),
		triggers:    maps.Clone(m.triggers),
		truthEnergy: maps.Clone(m.truthEnergy),
		energy:      maps.Clone(m.energy),
		hitPixels:   m.hitPixels,
		hitEvents:   m.hitEvents,
		countSum:    m.countSum,
	}
}
