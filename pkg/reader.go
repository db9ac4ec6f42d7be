package frames

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/robert-malhotra/go-hdf5/hdf5"
)

// DatasetUnit is an open unit written by Writer.
type DatasetUnit struct {
	Filename     string
	DatasetID    string
	ConversionID string
	Sequence     int
	FrameCount   int

	file *hdf5.File
}

func OpenDatasetUnit(filename string) (*DatasetUnit, error) {
	f, err := hdf5.Open(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	u := &DatasetUnit{Filename: filename, file: f}

	ds, err := f.OpenDataset("/" + infoGroup + "/frame_count")
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s is not a frame unit: %w", filename, err)
	}
	var count []int64
	if err := ds.Read(&count); err != nil || len(count) != 1 {
		f.Close()
		return nil, fmt.Errorf("%s has no frame count: %w", filename, err)
	}
	u.FrameCount = int(count[0])
	if a := ds.Attr("dataset_id"); a != nil {
		u.DatasetID, _ = a.ReadScalarString()
	}
	if a := ds.Attr("conversion_id"); a != nil {
		u.ConversionID, _ = a.ReadScalarString()
	}
	if a := ds.Attr("sequence"); a != nil {
		seq, _ := a.ReadScalarInt64()
		u.Sequence = int(seq)
	}
	return u, nil
}

func (u *DatasetUnit) Close() error {
	return u.file.Close()
}

func (u *DatasetUnit) openGroup(name string) (*hdf5.Group, error) {
	g, err := u.file.OpenGroup("/" + name)
	if err != nil {
		return nil, fmt.Errorf("%s: missing group %s: %w", u.Filename, name, err)
	}
	return g, nil
}

// checkOffsets validates an offsets column of n+1 increasing values ending
// at total.
func checkOffsets(name string, offsets []int64, n int, total int) error {
	if len(offsets) != n+1 {
		return fmt.Errorf("%s: %d offsets for %d frames", name, len(offsets), n)
	}
	if offsets[0] != 0 || offsets[n] != int64(total) {
		return fmt.Errorf("%s: offsets do not span %d values", name, total)
	}
	for i := 1; i <= n; i++ {
		if offsets[i] < offsets[i-1] {
			return fmt.Errorf("%s: decreasing offset at frame %d", name, i-1)
		}
	}
	return nil
}

// ReadFrames reconstructs every frame of the unit.
func (u *DatasetUnit) ReadFrames() ([]*FrameRecord, error) {
	framesG, err := u.openGroup(framesGroup)
	if err != nil {
		return nil, err
	}
	ids, err := readColumn[int64](framesG, "id")
	if err != nil {
		return nil, err
	}
	n := len(ids)
	if n != u.FrameCount {
		return nil, fmt.Errorf("%s: %d frame ids for frame count %d", u.Filename, n, u.FrameCount)
	}
	frames := make([]*FrameRecord, n)
	for i := range frames {
		frames[i] = NewFrameRecord()
		frames[i].ID = int(ids[i])
	}

	for _, field := range intFields {
		col, err := readColumn[int32](framesG, field.name)
		if err != nil {
			return nil, err
		}
		if len(col) != n {
			return nil, fmt.Errorf("%s: column %s has %d values", u.Filename, field.name, len(col))
		}
		for i, v := range col {
			field.set(frames[i], int(v))
		}
	}
	for _, field := range floatFields {
		col, err := readColumn[float64](framesG, field.name)
		if err != nil {
			return nil, err
		}
		if len(col) != n {
			return nil, fmt.Errorf("%s: column %s has %d values", u.Filename, field.name, len(col))
		}
		for i, v := range col {
			field.set(frames[i], v)
		}
	}

	dacs, err := readColumn[int32](framesG, "dacs")
	if err != nil {
		return nil, err
	}
	dacsSet, err := readColumn[uint8](framesG, "dacs_set")
	if err != nil {
		return nil, err
	}
	if len(dacs) != n*NumDACs || len(dacsSet) != n {
		return nil, fmt.Errorf("%s: DAC columns do not match %d frames", u.Filename, n)
	}
	for i, f := range frames {
		if dacsSet[i] == 0 {
			continue
		}
		values := make([]int, NumDACs)
		for j := range values {
			values[j] = int(dacs[i*NumDACs+j])
		}
		if err := f.SetDACs(values); err != nil {
			return nil, err
		}
	}

	counterOffs, err := readColumn[int64](framesG, "counter_offsets")
	if err != nil {
		return nil, err
	}
	counters, err := readColumn[int32](framesG, "counters")
	if err != nil {
		return nil, err
	}
	if err := checkOffsets("counters", counterOffs, n, len(counters)); err != nil {
		return nil, err
	}
	for i, f := range frames {
		for _, c := range counters[counterOffs[i]:counterOffs[i+1]] {
			f.Counters = append(f.Counters, int(c))
		}
	}

	if err := u.readStrings(frames); err != nil {
		return nil, err
	}
	if err := u.readPixels(frames); err != nil {
		return nil, err
	}
	if err := u.readPrimaries(frames); err != nil {
		return nil, err
	}

	for _, f := range frames {
		f.UpdateOccupancy()
	}
	return frames, nil
}

func (u *DatasetUnit) readStrings(frames []*FrameRecord) error {
	g, err := u.openGroup(stringsGroup)
	if err != nil {
		return err
	}
	offsetsG, err := u.openGroup(stringOffsetsGroup)
	if err != nil {
		return err
	}
	for _, field := range stringFields {
		data, err := readColumn[uint8](g, field.name)
		if err != nil {
			return err
		}
		offsets, err := readColumn[int64](offsetsG, field.name)
		if err != nil {
			return err
		}
		values, err := decodeStrings(data, offsets)
		if err != nil {
			return fmt.Errorf("%s: column %s: %w", u.Filename, field.name, err)
		}
		if len(values) != len(frames) {
			return fmt.Errorf("%s: column %s has %d values", u.Filename, field.name, len(values))
		}
		for i, v := range values {
			field.set(frames[i], v)
		}
	}
	return nil
}

func (u *DatasetUnit) readPixels(frames []*FrameRecord) error {
	g, err := u.openGroup(pixelsGroup)
	if err != nil {
		return err
	}
	n := len(frames)

	offsets, err := readColumn[int64](g, "offsets")
	if err != nil {
		return err
	}
	keys, err := readColumn[int32](g, "keys")
	if err != nil {
		return err
	}
	counts, err := readColumn[int64](g, "counts")
	if err != nil {
		return err
	}
	if len(keys) != len(counts) {
		return fmt.Errorf("%s: %d pixel keys for %d counts", u.Filename, len(keys), len(counts))
	}
	if err := checkOffsets("pixels", offsets, n, len(keys)); err != nil {
		return err
	}
	for i, f := range frames {
		for j := offsets[i]; j < offsets[i+1]; j++ {
			f.Pixels.FillKey(int(keys[j]), int(counts[j]))
		}
	}

	trigOffs, err := readColumn[int64](g, "trigger_offsets")
	if err != nil {
		return err
	}
	trigKeys, err := readColumn[int32](g, "trigger_keys")
	if err != nil {
		return err
	}
	trigVals, err := readColumn[int32](g, "trigger_values")
	if err != nil {
		return err
	}
	if len(trigKeys) != len(trigVals) {
		return fmt.Errorf("%s: %d trigger keys for %d values", u.Filename, len(trigKeys), len(trigVals))
	}
	if err := checkOffsets("triggers", trigOffs, n, len(trigKeys)); err != nil {
		return err
	}
	for i, f := range frames {
		for j := trigOffs[i]; j < trigOffs[i+1]; j++ {
			f.Pixels.AddTrigger(int(trigKeys[j]), int(trigVals[j]))
		}
	}

	energyOffs, err := readColumn[int64](g, "energy_offsets")
	if err != nil {
		return err
	}
	energyKeys, err := readColumn[int32](g, "energy_keys")
	if err != nil {
		return err
	}
	truth, err := readColumn[float64](g, "truth_energy")
	if err != nil {
		return err
	}
	energy, err := readColumn[float64](g, "energy")
	if err != nil {
		return err
	}
	if len(energyKeys) != len(truth) || len(energyKeys) != len(energy) {
		return fmt.Errorf("%s: energy columns differ in length", u.Filename)
	}
	if err := checkOffsets("energies", energyOffs, n, len(energyKeys)); err != nil {
		return err
	}
	for i, f := range frames {
		for j := energyOffs[i]; j < energyOffs[i+1]; j++ {
			f.Pixels.setEnergy(int(energyKeys[j]), truth[j], energy[j])
		}
	}
	return nil
}

func (u *DatasetUnit) readPrimaries(frames []*FrameRecord) error {
	g, err := u.openGroup(primariesGroup)
	if err != nil {
		return err
	}
	offsets, err := readColumn[int64](g, "offsets")
	if err != nil {
		return err
	}
	pdg, err := readColumn[int32](g, "pdg")
	if err != nil {
		return err
	}
	if err := checkOffsets("primaries", offsets, len(frames), len(pdg)); err != nil {
		return err
	}
	cols := make([][]float64, len(primaryFields))
	for i, field := range primaryFields {
		cols[i], err = readColumn[float64](g, field.name)
		if err != nil {
			return err
		}
		if len(cols[i]) != len(pdg) {
			return fmt.Errorf("%s: primaries column %s has %d values", u.Filename, field.name, len(cols[i]))
		}
	}
	for i, f := range frames {
		for j := offsets[i]; j < offsets[i+1]; j++ {
			p := Primary{PDG: int(pdg[j])}
			for k, field := range primaryFields {
				field.set(&p, cols[k][j])
			}
			f.Primaries = append(f.Primaries, p)
		}
	}
	return nil
}

// ReadUnitFile opens filename, reads every frame and closes it.
func ReadUnitFile(filename string) (*DatasetUnit, []*FrameRecord, error) {
	u, err := OpenDatasetUnit(filename)
	if err != nil {
		return nil, nil, err
	}
	defer u.Close()
	frames, err := u.ReadFrames()
	if err != nil {
		return nil, nil, err
	}
	return u, frames, nil
}

// ListUnits returns the units of datasetID in dir in sequence order.
func ListUnits(dir string, datasetID string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, datasetID+"_[0-9]*.h5"))
	if err != nil {
		return nil, err
	}
	slices.Sort(matches)
	return matches, nil
}
