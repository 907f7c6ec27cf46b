package database

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB wraps the gorm handle together with the on-disk location and the
// operating mode. In memory-accelerated mode all reads and writes are
// served from an in-memory mirror which is written back on Close.
type DB struct {
	*gorm.DB
	path     string
	inMemory bool
}

// Open opens the database at dbPath. With inMemory set, the on-disk
// contents are copied into an in-memory database and served from
// there; Close writes the mirror back out. Migrations are applied in
// either mode, and a legacy JSON datafile is imported when no database
// file exists yet.
func Open(dbPath string, inMemory bool, verbose bool) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	_, statErr := os.Stat(dbPath)
	fresh := os.IsNotExist(statErr)

	if !inMemory {
		db, err := openSQLite(fileDSN(dbPath), verbose)
		if err != nil {
			return nil, err
		}
		if err := Migrate(db); err != nil {
			return nil, err
		}
		h := &DB{DB: db, path: dbPath}
		if fresh {
			if err := h.importLegacy(); err != nil {
				return nil, err
			}
		}
		return h, nil
	}

	mem, err := openSQLite(memoryDSN(), verbose)
	if err != nil {
		return nil, err
	}
	if err := Migrate(mem); err != nil {
		return nil, err
	}

	if !fresh {
		disk, err := openSQLite(fileDSN(dbPath), verbose)
		if err != nil {
			return nil, err
		}
		if err := Migrate(disk); err != nil {
			return nil, err
		}
		if err := copyData(disk, mem); err != nil {
			return nil, fmt.Errorf("copying database into memory: %w", err)
		}
		if err := closeGorm(disk); err != nil {
			return nil, err
		}
	}

	h := &DB{DB: mem, path: dbPath, inMemory: true}
	if fresh {
		if err := h.importLegacy(); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Close releases the database. In memory-accelerated mode the mirror
// is first dumped to a temp file and renamed into place; the previous
// file survives as a .old sibling.
func (db *DB) Close() error {
	if db.inMemory && db.path != "" {
		if err := db.writeBack(); err != nil {
			return err
		}
	}
	return closeGorm(db.DB)
}

// writeBack dumps the in-memory database through a temp file and an
// atomic rename so a crash mid-write cannot lose the previous state.
func (db *DB) writeBack() error {
	tmpPath := fmt.Sprintf("%s.tmp-%d", db.path, os.Getpid())
	defer os.Remove(tmpPath)

	tmp, err := openSQLite(fileDSN(tmpPath), false)
	if err != nil {
		return err
	}
	if err := Migrate(tmp); err != nil {
		return err
	}
	if err := copyData(db.DB, tmp); err != nil {
		return fmt.Errorf("writing database back to disk: %w", err)
	}
	if err := closeGorm(tmp); err != nil {
		return err
	}

	if _, err := os.Stat(db.path); err == nil {
		if err := os.Rename(db.path, db.path+".old"); err != nil {
			return fmt.Errorf("preserving previous database: %w", err)
		}
	}
	if err := os.Rename(tmpPath, db.path); err != nil {
		return fmt.Errorf("replacing database file: %w", err)
	}
	return nil
}

// HealthCheck verifies the database connection is working
func (db *DB) HealthCheck() error {
	if db == nil || db.DB == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL database: %w", err)
	}
	return sqlDB.Ping()
}

func fileDSN(path string) string {
	return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
}

var memSerial atomic.Int64

func memoryDSN() string {
	// Shared cache so every pooled connection sees the same database;
	// the serial keeps separate opens from aliasing each other.
	return fmt.Sprintf("file:casteromem%d?mode=memory&cache=shared&_foreign_keys=on", memSerial.Add(1))
}

func openSQLite(dsn string, verbose bool) (*gorm.DB, error) {
	logLevel := logger.Error
	if verbose {
		logLevel = logger.Info
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL database: %w", err)
	}

	// A single connection keeps sqlite access serialized; sync workers
	// hit the store concurrently and must not interleave writers.
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

func closeGorm(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL database: %w", err)
	}
	return sqlDB.Close()
}
