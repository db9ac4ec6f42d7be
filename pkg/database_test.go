package frames

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDetector() DetectorEntry {
	return DetectorEntry{
		ChipboardID: "B06-W0212",
		CustomName:  "LUCID TPX1",
		Firmware:    "3.1",
		Interface:   "USB",
		MpxType:     3,
		AppFilters:  "none",
		Polarity:    1,
		BiasVoltage: 100,
		MpxClock:    10,
		TpxClock:    40,
		BSActive:    true,
		DACs:        FormatDACs([]int{1, 100, 255, 127, 127, 0, 405, 7, 130, 128, 80, 85, 128, 128}),
		DetZ:        -1.5,
		EulerA:      90,
	}
}

func TestLocalRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detectors.db")
	db, err := OpenLocalRegistry(path)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, InsertDetector(db, sampleDetector()))

	entry, err := GetDetector(db, "B06-W0212")
	require.NoError(t, err)
	assert.Equal(t, sampleDetector(), *entry)

	_, err = GetDetector(db, "nope")
	var notFound *ErrDetectorNotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "nope", notFound.ChipboardID)

	// migrating an up to date registry is a no-op
	require.NoError(t, MigrateRegistry(db))
}

func TestConnectToDatabaseSQLite(t *testing.T) {
	config := DefaultConfiguration()
	config.DBDriver = DBDriver{Name: "sqlite", Code: DriverSQLite}
	config.DBName = filepath.Join(t.TempDir(), "registry.db")

	db, err := ConnectToDatabase(config)
	require.NoError(t, err)
	defer db.Close()
	_, err = GetDetector(db, "x")
	var notFound *ErrDetectorNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestRegistryMetadata(t *testing.T) {
	db, err := OpenLocalRegistry(filepath.Join(t.TempDir(), "detectors.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, InsertDetector(db, sampleDetector()))

	base := NewMetadataFields()
	base.DatasetID = "cal"
	base.Width = 256
	base.ChipboardID = "B06-W0212"
	base.CustomName = "from xml"

	r, err := LoadRegistryMetadata(db, StaticMetadata(base))
	require.NoError(t, err)
	m := r.Metadata()

	assert.Equal(t, "cal", m.DatasetID)
	assert.Equal(t, 256, m.Width)
	assert.Equal(t, "LUCID TPX1", m.CustomName)
	assert.Equal(t, 40.0, m.TpxClock)
	assert.True(t, m.BSActive)
	assert.Equal(t, -1.5, m.DetZ)
	assert.Equal(t, 405, m.DACs()[6])

	base.ChipboardID = "unknown"
	_, err = LoadRegistryMetadata(db, StaticMetadata(base))
	assert.Error(t, err)
}

func TestRegistryMetadataBadDACs(t *testing.T) {
	base := NewMetadataFields()
	dacs := make([]int, NumDACs)
	dacs[0] = 5
	require.NoError(t, base.SetDACs(dacs))

	entry := sampleDetector()
	entry.DACs = "1 2 x"
	m := RegistryMetadata{Base: StaticMetadata(base), Entry: entry}.Metadata()
	assert.Equal(t, dacs, m.DACs(), "invalid registry DACs keep the base vector")

	entry.DACs = "1 2 3"
	m = RegistryMetadata{Base: StaticMetadata(base), Entry: entry}.Metadata()
	assert.Equal(t, dacs, m.DACs())
}

func TestFormatDACs(t *testing.T) {
	assert.Equal(t, "1 2 3", FormatDACs([]int{1, 2, 3}))
	assert.Equal(t, "", FormatDACs(nil))
}
