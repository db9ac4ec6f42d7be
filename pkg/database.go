package frames

import (
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	sqlx "github.com/jmoiron/sqlx" //make alias name the package to sqlx
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DetectorEntry is one row of the Detectors table.
type DetectorEntry struct {
	ChipboardID string  `db:"ChipboardID"`
	CustomName  string  `db:"CustomName"`
	Firmware    string  `db:"Firmware"`
	Interface   string  `db:"Interface"`
	MpxType     int     `db:"MpxType"`
	AppFilters  string  `db:"AppFilters"`
	Polarity    int     `db:"Polarity"`
	BiasVoltage float64 `db:"BiasVoltage"`
	MpxClock    float64 `db:"MpxClock"`
	TpxClock    float64 `db:"TpxClock"`
	BSActive    bool    `db:"BSActive"`
	DACs        string  `db:"DACs"`
	DetX        float64 `db:"DetX"`
	DetY        float64 `db:"DetY"`
	DetZ        float64 `db:"DetZ"`
	EulerA      float64 `db:"EulerA"`
	EulerB      float64 `db:"EulerB"`
	EulerC      float64 `db:"EulerC"`
}

// ErrDetectorNotFound is returned when the registry has no entry for a
// chipboard.
type ErrDetectorNotFound struct {
	ChipboardID string
}

func (e *ErrDetectorNotFound) Error() string {
	return fmt.Sprintf("detector %q not found in the registry", e.ChipboardID)
}

// ConnectToDatabase opens the detector registry named by the configuration.
// For SQLite, DBName is the database file.
func ConnectToDatabase(config Configuration) (*sqlx.DB, error) {
	switch config.DBDriver.Code {
	case DriverSQLite:
		return OpenLocalRegistry(config.DBName)
	default:
		dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true",
			config.User, config.Passwd, config.Host, config.Port, config.DBName)
		return sqlx.Connect("mysql", dbURI)
	}
}

// OpenLocalRegistry opens a SQLite registry and brings its schema up to
// date.
func OpenLocalRegistry(path string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening registry %s: %w", path, err)
	}
	if err := MigrateRegistry(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...any) {
	logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)), "migrate")
}

func (migrateLogger) Verbose() bool {
	return configuration.Verbosity > 1
}

// MigrateRegistry applies the embedded migrations to a SQLite registry.
func MigrateRegistry(db *sqlx.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

func GetDetector(db *sqlx.DB, chipboardID string) (*DetectorEntry, error) {
	rows, err := db.Queryx("SELECT * FROM Detectors WHERE ChipboardID = ?", chipboardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, &ErrDetectorNotFound{ChipboardID: chipboardID}
	}
	var entry DetectorEntry
	if err := rows.StructScan(&entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func InsertDetector(db *sqlx.DB, entry DetectorEntry) error {
	_, err := db.NamedExec(`INSERT INTO Detectors (ChipboardID, CustomName, Firmware,
		Interface, MpxType, AppFilters, Polarity, BiasVoltage, MpxClock, TpxClock,
		BSActive, DACs, DetX, DetY, DetZ, EulerA, EulerB, EulerC)
		VALUES (:ChipboardID, :CustomName, :Firmware, :Interface, :MpxType,
		:AppFilters, :Polarity, :BiasVoltage, :MpxClock, :TpxClock, :BSActive,
		:DACs, :DetX, :DetY, :DetZ, :EulerA, :EulerB, :EulerC)`, entry)
	return err
}

// FormatDACs renders a DAC vector the way the registry stores it.
func FormatDACs(dacs []int) string {
	parts := make([]string, len(dacs))
	for i, d := range dacs {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, " ")
}

// RegistryMetadata overrides the detector sections of a base provider with
// a registry entry.
type RegistryMetadata struct {
	Base  MetadataProvider
	Entry DetectorEntry
}

func (r RegistryMetadata) Metadata() MetadataFields {
	m := r.Base.Metadata()
	e := r.Entry

	m.Polarity = e.Polarity
	m.BiasVoltage = e.BiasVoltage
	m.MpxClock = e.MpxClock
	m.TpxClock = e.TpxClock
	m.BSActive = e.BSActive
	if e.DACs != "" {
		var dacs []int
		for _, tok := range strings.Fields(e.DACs) {
			v, err := strconv.Atoi(tok)
			if err != nil {
				warn(fmt.Sprintf("detector %s: invalid DAC value %q", e.ChipboardID, tok), "registry")
				dacs = nil
				break
			}
			dacs = append(dacs, v)
		}
		if err := m.SetDACs(dacs); err != nil {
			warn(fmt.Sprintf("detector %s: %v", e.ChipboardID, err), "registry")
		}
	}

	m.DetectorInfo = DetectorInfo{
		ChipboardID: e.ChipboardID,
		CustomName:  e.CustomName,
		Firmware:    e.Firmware,
		Interface:   e.Interface,
		MpxType:     e.MpxType,
		AppFilters:  e.AppFilters,
		DetX:        e.DetX,
		DetY:        e.DetY,
		DetZ:        e.DetZ,
		EulerA:      e.EulerA,
		EulerB:      e.EulerB,
		EulerC:      e.EulerC,
	}
	return m
}

// LoadRegistryMetadata looks up the chipboard of base in the registry.
func LoadRegistryMetadata(db *sqlx.DB, base MetadataProvider) (RegistryMetadata, error) {
	id := base.Metadata().ChipboardID
	entry, err := GetDetector(db, id)
	if err != nil {
		return RegistryMetadata{}, fmt.Errorf("error getting detector from database: %w", err)
	}
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Detector %s loaded from the registry", id), "registry")
	}
	return RegistryMetadata{Base: base, Entry: *entry}, nil
}
