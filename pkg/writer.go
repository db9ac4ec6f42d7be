package frames

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/robert-malhotra/go-hdf5/hdf5"
)

// Writer appends frame records to a sequence of dataset units named
// <dataset>_<10-digit sequence>.h5. A unit is written to disk when it is
// rotated.
//
// The current unit is held in memory until Rotate or Close, so frames
// appended since the last rotation are lost if the process dies.
type Writer struct {
	Dir              string
	DatasetID        string
	FramesPerFile    int
	Compression      Compression
	CompressionLevel int
	ChunkSize        int
	ConversionID     string
	Filenames        []string
	FrameCounter     int

	sequence int
	pending  []*FrameRecord
}

// NewWriter returns a writer whose first unit has sequence firstIndex.
// Compression and unit size come from the package configuration.
func NewWriter(dir string, datasetID string, firstIndex int) *Writer {
	perFile := configuration.FramesPerFile
	if perFile <= 0 {
		perFile = 1000
	}
	return &Writer{
		Dir:              dir,
		DatasetID:        datasetID,
		FramesPerFile:    perFile,
		Compression:      configuration.Compression,
		CompressionLevel: configuration.CompressionLevel,
		ChunkSize:        configuration.ChunkSize,
		ConversionID:     uuid.NewString(),
		sequence:         firstIndex,
	}
}

// UnitFilename returns the path of the unit with the given sequence.
func UnitFilename(dir string, datasetID string, sequence int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%010d.h5", datasetID, sequence))
}

func (w *Writer) Sequence() int { return w.sequence }

func (w *Writer) Pending() int { return len(w.pending) }

// Append stores a copy of frame in the current unit. A full unit is rotated
// first.
func (w *Writer) Append(frame *FrameRecord) error {
	if len(w.pending) >= w.FramesPerFile {
		if err := w.Rotate(); err != nil {
			return err
		}
	}
	w.pending = append(w.pending, frame.Snapshot())
	w.FrameCounter++
	return nil
}

// Rotate writes the current unit and starts the next one. Rotating an
// empty unit does nothing.
func (w *Writer) Rotate() error {
	if len(w.pending) == 0 {
		return nil
	}
	fname := UnitFilename(w.Dir, w.DatasetID, w.sequence)
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Writing %d frames to %s", len(w.pending), fname), "writer")
	}
	opts := UnitOptions{
		DatasetID:    w.DatasetID,
		ConversionID: w.ConversionID,
		Sequence:     w.sequence,
		Compression:  w.Compression,
		Level:        w.CompressionLevel,
		ChunkSize:    w.ChunkSize,
	}
	if err := WriteUnit(fname, w.pending, opts); err != nil {
		return err
	}
	w.Filenames = append(w.Filenames, fname)
	w.pending = nil
	w.sequence++
	return nil
}

func (w *Writer) Close() error {
	var errs []error
	if err := w.Rotate(); err != nil {
		errs = append(errs, fmt.Errorf("error writing last unit: %w", err))
	}
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("%d frames written in %d units", w.FrameCounter, len(w.Filenames)), "writer")
	}
	return errors.Join(errs...)
}

// UnitOptions are the identity and filter settings of a unit file.
type UnitOptions struct {
	DatasetID    string
	ConversionID string
	Sequence     int
	Compression  Compression
	Level        int
	ChunkSize    int
}

// unitColumns is the columnar form of a list of frames.
type unitColumns struct {
	ids          []int64
	ints         [][]int32
	floats       [][]float64
	strs         [][]string
	dacs         []int32
	dacsSet      []uint8
	counterOffs  []int64
	counters     []int32
	pixelOffs    []int64
	keys         []int32
	counts       []int64
	triggerOffs  []int64
	triggerKeys  []int32
	triggerVals  []int32
	energyOffs   []int64
	energyKeys   []int32
	truthEnergy  []float64
	energy       []float64
	primaryOffs  []int64
	primaryPDG   []int32
	primaryFloat [][]float64
}

var primaryFields = []struct {
	name string
	get  func(*Primary) float64
	set  func(*Primary, float64)
}{
	{"vertex_x", func(p *Primary) float64 { return p.VertexX }, func(p *Primary, v float64) { p.VertexX = v }},
	{"vertex_y", func(p *Primary) float64 { return p.VertexY }, func(p *Primary, v float64) { p.VertexY = v }},
	{"vertex_z", func(p *Primary) float64 { return p.VertexZ }, func(p *Primary, v float64) { p.VertexZ = v }},
	{"px", func(p *Primary) float64 { return p.Px }, func(p *Primary, v float64) { p.Px = v }},
	{"py", func(p *Primary) float64 { return p.Py }, func(p *Primary, v float64) { p.Py = v }},
	{"pz", func(p *Primary) float64 { return p.Pz }, func(p *Primary, v float64) { p.Pz = v }},
	{"energy", func(p *Primary) float64 { return p.Energy }, func(p *Primary, v float64) { p.Energy = v }},
}

func newUnitColumns(frames []*FrameRecord) *unitColumns {
	c := &unitColumns{
		ints:         make([][]int32, len(intFields)),
		floats:       make([][]float64, len(floatFields)),
		strs:         make([][]string, len(stringFields)),
		counterOffs:  []int64{0},
		pixelOffs:    []int64{0},
		triggerOffs:  []int64{0},
		energyOffs:   []int64{0},
		primaryOffs:  []int64{0},
		primaryFloat: make([][]float64, len(primaryFields)),
	}
	for _, f := range frames {
		c.ids = append(c.ids, int64(f.ID))
		for i, field := range intFields {
			c.ints[i] = append(c.ints[i], int32(field.get(f)))
		}
		for i, field := range floatFields {
			c.floats[i] = append(c.floats[i], field.get(f))
		}
		for i, field := range stringFields {
			c.strs[i] = append(c.strs[i], field.get(f))
		}

		dacs := f.DACs()
		if dacs == nil {
			c.dacsSet = append(c.dacsSet, 0)
			dacs = make([]int, NumDACs)
		} else {
			c.dacsSet = append(c.dacsSet, 1)
		}
		for _, d := range dacs {
			c.dacs = append(c.dacs, int32(d))
		}
		for _, counter := range f.Counters {
			c.counters = append(c.counters, int32(counter))
		}
		c.counterOffs = append(c.counterOffs, int64(len(c.counters)))

		for _, key := range f.Pixels.Keys() {
			count, _ := f.Pixels.Count(key)
			c.keys = append(c.keys, int32(key))
			c.counts = append(c.counts, int64(count))
		}
		c.pixelOffs = append(c.pixelOffs, int64(len(c.keys)))

		triggers := f.Pixels.Triggers()
		for _, key := range sortedKeys(triggers) {
			c.triggerKeys = append(c.triggerKeys, int32(key))
			c.triggerVals = append(c.triggerVals, int32(triggers[key]))
		}
		c.triggerOffs = append(c.triggerOffs, int64(len(c.triggerKeys)))

		energies := f.Pixels.Energies()
		truth := f.Pixels.TruthEnergies()
		for _, key := range sortedKeys(energies) {
			c.energyKeys = append(c.energyKeys, int32(key))
			c.truthEnergy = append(c.truthEnergy, truth[key])
			c.energy = append(c.energy, energies[key])
		}
		c.energyOffs = append(c.energyOffs, int64(len(c.energyKeys)))

		for i := range f.Primaries {
			p := &f.Primaries[i]
			c.primaryPDG = append(c.primaryPDG, int32(p.PDG))
			for j, field := range primaryFields {
				c.primaryFloat[j] = append(c.primaryFloat[j], field.get(p))
			}
		}
		c.primaryOffs = append(c.primaryOffs, int64(len(c.primaryPDG)))
	}
	return c
}

// unitColumn is one dataset of a unit file.
type unitColumn struct {
	name  string
	write func(g *hdf5.Group, opts UnitOptions) error
}

func column[T columnType](name string, values []T) unitColumn {
	return unitColumn{
		name: name,
		write: func(g *hdf5.Group, opts UnitOptions) error {
			filters := opts.Compression.datasetOptions(opts.Level, opts.ChunkSize, len(values))
			return createColumn(g, name, values, filters)
		},
	}
}

// unitGroup is a top-level group of a unit file and its columns in write
// order.
type unitGroup struct {
	name    string
	columns []unitColumn
}

// layout lists the groups of a unit. Only top-level groups are used: go-hdf5
// does not relink a nested group whose header moved.
func (c *unitColumns) layout() []unitGroup {
	framesCols := []unitColumn{column("id", c.ids)}
	for i, field := range intFields {
		framesCols = append(framesCols, column(field.name, c.ints[i]))
	}
	for i, field := range floatFields {
		framesCols = append(framesCols, column(field.name, c.floats[i]))
	}
	framesCols = append(framesCols,
		column("dacs", c.dacs),
		column("dacs_set", c.dacsSet),
		column("counter_offsets", c.counterOffs),
		column("counters", c.counters),
	)

	pixelsCols := []unitColumn{
		column("offsets", c.pixelOffs),
		column("trigger_offsets", c.triggerOffs),
		column("energy_offsets", c.energyOffs),
		column("keys", c.keys),
		column("counts", c.counts),
		column("trigger_keys", c.triggerKeys),
		column("trigger_values", c.triggerVals),
		column("energy_keys", c.energyKeys),
		column("truth_energy", c.truthEnergy),
		column("energy", c.energy),
	}

	primariesCols := []unitColumn{
		column("offsets", c.primaryOffs),
		column("pdg", c.primaryPDG),
	}
	for i, field := range primaryFields {
		primariesCols = append(primariesCols, column(field.name, c.primaryFloat[i]))
	}

	// String bytes and their offsets live in separate groups under the
	// same column names.
	var stringCols, offsetCols []unitColumn
	for i, field := range stringFields {
		data, offsets := encodeStrings(c.strs[i])
		stringCols = append(stringCols, column(field.name, data))
		offsetCols = append(offsetCols, column(field.name, offsets))
	}

	return []unitGroup{
		{framesGroup, framesCols},
		{pixelsGroup, pixelsCols},
		{primariesGroup, primariesCols},
		{stringsGroup, stringCols},
		{stringOffsetsGroup, offsetCols},
	}
}

// WriteUnit writes frames to a new file at fname.
func WriteUnit(fname string, frames []*FrameRecord, opts UnitOptions) error {
	return writeUnit(fname, newUnitColumns(frames).layout(), len(frames), opts)
}

// writeUnit writes groups and the unit info to fname. A panic inside the
// HDF5 library fails the unit; a partially written file is removed.
func writeUnit(fname string, groups []unitGroup, frameCount int, opts UnitOptions) (err error) {
	file, err := openFile(fname)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = &ErrWriteUnit{Filename: fname, Err: fmt.Errorf("hdf5 panic: %v", r)}
		}
		if err != nil {
			os.Remove(fname)
		}
	}()
	defer func() {
		if cerr := file.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("error closing %s: %w", fname, cerr))
		}
	}()

	for _, group := range groups {
		g, err := createGroup(file, group.name)
		if err != nil {
			return err
		}
		for _, col := range group.columns {
			if err := col.write(g, opts); err != nil {
				return err
			}
		}
	}

	infoG, err := createGroup(file, infoGroup)
	if err != nil {
		return err
	}
	_, err = infoG.CreateDataset("frame_count", []int64{int64(frameCount)},
		hdf5.WithAttribute("dataset_id", opts.DatasetID),
		hdf5.WithAttribute("conversion_id", opts.ConversionID),
		hdf5.WithAttribute("sequence", int64(opts.Sequence)),
		hdf5.WithAttribute("compression", opts.Compression.String()),
		hdf5.WithAttribute("created", time.Now().UTC().Format(time.RFC3339)),
	)
	if err != nil {
		return &ErrCreateTable{TableName: infoGroup + "/frame_count", Err: err}
	}
	return nil
}
