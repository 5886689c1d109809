package config

import (
	"os"
	"path/filepath"
)

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), "fingertrack", "config.toml")
}

// DefaultOutputDir returns the default directory for session exports.
func DefaultOutputDir() string {
	return filepath.Join(XDGDataHome(), "fingertrack", "sessions")
}

// DefaultDBPath returns the default path for the SQLite database.
func DefaultDBPath() string {
	return filepath.Join(XDGDataHome(), "fingertrack", "fingertrack.db")
}

// DefaultCalibrationPath returns the default calibration file path.
func DefaultCalibrationPath() string {
	return filepath.Join(XDGDataHome(), "fingertrack", "calibration.json")
}
