package config

import (
	"os"
	"path/filepath"
)

const appName = "castero"

// ConfigDir returns $XDG_CONFIG_HOME/castero, defaulting to
// ~/.config/castero.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return appName
	}
	return filepath.Join(home, ".config", appName)
}

// ConfigPath returns the location of the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), appName+".conf")
}

// DataDir returns $XDG_DATA_HOME/castero, defaulting to
// ~/.local/share/castero.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return appName
	}
	return filepath.Join(home, ".local", "share", appName)
}

// DatabasePath returns the location of the sqlite database.
func DatabasePath() string {
	return filepath.Join(DataDir(), "castero.db")
}

// LegacyDataPath returns the location of the pre-database JSON
// datafile, imported once when no database exists yet.
func LegacyDataPath() string {
	return filepath.Join(DataDir(), appName+".json")
}
