package database

import (
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migration is a single numbered schema script.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// loadMigrations reads the embedded NN-description.sql scripts sorted
// by ascending version.
func loadMigrations() ([]migration, error) {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("reading migrations: %w", err)
	}

	var migrations []migration
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".sql") {
			continue
		}
		sep := strings.Index(name, "-")
		if sep < 0 {
			return nil, fmt.Errorf("migration %s: name must be NN-description.sql", name)
		}
		version, err := strconv.Atoi(name[:sep])
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", name, err)
		}
		body, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", name, err)
		}
		migrations = append(migrations, migration{Version: version, Name: name, SQL: string(body)})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// Migrate applies every migration with a version greater than the
// stored user_version counter, each inside a transaction that also
// bumps the counter.
func Migrate(db *gorm.DB) error {
	migrations, err := loadMigrations()
	if err != nil {
		return err
	}

	current, err := userVersion(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(m.SQL).Error; err != nil {
				return fmt.Errorf("applying %s: %w", m.Name, err)
			}
			return tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)).Error
		})
		if err != nil {
			return err
		}
		current = m.Version
	}
	return nil
}

// SchemaVersion returns the database's stored migration version.
func SchemaVersion(db *gorm.DB) (int, error) {
	return userVersion(db)
}

// LatestVersion returns the highest embedded migration version.
func LatestVersion() (int, error) {
	migrations, err := loadMigrations()
	if err != nil {
		return 0, err
	}
	if len(migrations) == 0 {
		return 0, nil
	}
	return migrations[len(migrations)-1].Version, nil
}

func userVersion(db *gorm.DB) (int, error) {
	var version int
	if err := db.Raw("PRAGMA user_version").Scan(&version).Error; err != nil {
		return 0, fmt.Errorf("reading user_version: %w", err)
	}
	return version, nil
}
