// Package config loads the TOML configuration file and merges it over the
// built-in defaults.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/ayusman/fingertrack/internal/calib"
	"github.com/ayusman/fingertrack/internal/kinematics"
	"github.com/ayusman/fingertrack/internal/press"
	"github.com/ayusman/fingertrack/internal/track"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	Tracking    TrackingConfig
	Calibration CalibrationConfig
	Press       PressConfig
	Kinematics  KinematicsConfig
	Output      OutputConfig
	Server      ServerConfig
}

// TrackingConfig controls the camera and frame history.
type TrackingConfig struct {
	CameraDevice int
	BufferSpanMS int64
	PollHz       int
}

// CalibrationConfig controls the guided calibration run.
type CalibrationConfig struct {
	ThresholdDelta     float64
	BaselineDurationMS int64
	HoldDurationMS     int64
	MaxGapMS           int64
	HandDebounceMS     int64
}

// PressConfig controls press detection.
type PressConfig struct {
	HysteresisMargin float64
	CooldownMS       int64
}

// KinematicsConfig controls per-trial metric computation.
type KinematicsConfig struct {
	WindowPreMS      int64
	WindowPostMS     int64
	MLRThreshold     float64
	CoupledDelta     float64
	MinWindowSamples int
}

// OutputConfig controls where session artifacts land.
type OutputConfig struct {
	Dir             string
	DBPath          string
	CalibrationPath string
}

// ServerConfig controls the HTTP/WebSocket server.
type ServerConfig struct {
	Addr string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Tracking: TrackingConfig{
			CameraDevice: 0,
			BufferSpanMS: track.DefaultSpanMS,
			PollHz:       60,
		},
		Calibration: CalibrationConfig{
			ThresholdDelta:     30,
			BaselineDurationMS: 10000,
			HoldDurationMS:     500,
			MaxGapMS:           3000,
			HandDebounceMS:     500,
		},
		Press: PressConfig{
			HysteresisMargin: 5,
			CooldownMS:       250,
		},
		Kinematics: KinematicsConfig{
			WindowPreMS:      200,
			WindowPostMS:     400,
			MLRThreshold:     0.10,
			CoupledDelta:     30,
			MinWindowSamples: 5,
		},
		Output: OutputConfig{
			Dir:             DefaultOutputDir(),
			DBPath:          DefaultDBPath(),
			CalibrationPath: DefaultCalibrationPath(),
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8770",
		},
	}
}

// fileConfig mirrors the TOML layout. All fields are pointers so that an
// absent key leaves the default untouched.
type fileConfig struct {
	Tracking struct {
		CameraDevice *int   `toml:"camera-device"`
		BufferSpanMS *int64 `toml:"buffer-span-ms"`
		PollHz       *int   `toml:"poll-hz"`
	} `toml:"tracking"`

	Calibration struct {
		ThresholdDelta     *float64 `toml:"threshold-delta"`
		BaselineDurationMS *int64   `toml:"baseline-duration-ms"`
		HoldDurationMS     *int64   `toml:"hold-duration-ms"`
		MaxGapMS           *int64   `toml:"max-gap-ms"`
		HandDebounceMS     *int64   `toml:"hand-debounce-ms"`
	} `toml:"calibration"`

	Press struct {
		HysteresisMargin *float64 `toml:"hysteresis-margin"`
		CooldownMS       *int64   `toml:"cooldown-ms"`
	} `toml:"press"`

	Kinematics struct {
		WindowPreMS      *int64   `toml:"window-pre-ms"`
		WindowPostMS     *int64   `toml:"window-post-ms"`
		MLRThreshold     *float64 `toml:"mlr-threshold"`
		CoupledDelta     *float64 `toml:"coupled-delta"`
		MinWindowSamples *int     `toml:"min-window-samples"`
	} `toml:"kinematics"`

	Output struct {
		Dir             *string `toml:"dir"`
		DBPath          *string `toml:"db-path"`
		CalibrationPath *string `toml:"calibration-path"`
	} `toml:"output"`

	Server struct {
		Addr *string `toml:"addr"`
	} `toml:"server"`
}

// Load reads a TOML config from the given path and merges it over the
// defaults. A missing file is not an error; the defaults are returned as-is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to stat config: %w", err)
	}

	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	merge(&cfg, fc)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func merge(cfg *Config, fc fileConfig) {
	setInt(&cfg.Tracking.CameraDevice, fc.Tracking.CameraDevice)
	setInt64(&cfg.Tracking.BufferSpanMS, fc.Tracking.BufferSpanMS)
	setInt(&cfg.Tracking.PollHz, fc.Tracking.PollHz)

	setFloat(&cfg.Calibration.ThresholdDelta, fc.Calibration.ThresholdDelta)
	setInt64(&cfg.Calibration.BaselineDurationMS, fc.Calibration.BaselineDurationMS)
	setInt64(&cfg.Calibration.HoldDurationMS, fc.Calibration.HoldDurationMS)
	setInt64(&cfg.Calibration.MaxGapMS, fc.Calibration.MaxGapMS)
	setInt64(&cfg.Calibration.HandDebounceMS, fc.Calibration.HandDebounceMS)

	setFloat(&cfg.Press.HysteresisMargin, fc.Press.HysteresisMargin)
	setInt64(&cfg.Press.CooldownMS, fc.Press.CooldownMS)

	setInt64(&cfg.Kinematics.WindowPreMS, fc.Kinematics.WindowPreMS)
	setInt64(&cfg.Kinematics.WindowPostMS, fc.Kinematics.WindowPostMS)
	setFloat(&cfg.Kinematics.MLRThreshold, fc.Kinematics.MLRThreshold)
	setFloat(&cfg.Kinematics.CoupledDelta, fc.Kinematics.CoupledDelta)
	setInt(&cfg.Kinematics.MinWindowSamples, fc.Kinematics.MinWindowSamples)

	setString(&cfg.Output.Dir, fc.Output.Dir)
	setString(&cfg.Output.DBPath, fc.Output.DBPath)
	setString(&cfg.Output.CalibrationPath, fc.Output.CalibrationPath)

	setString(&cfg.Server.Addr, fc.Server.Addr)
}

func (c Config) validate() error {
	if c.Calibration.ThresholdDelta <= 0 {
		return fmt.Errorf("calibration.threshold-delta must be positive")
	}
	if c.Press.HysteresisMargin < 0 {
		return fmt.Errorf("press.hysteresis-margin must not be negative")
	}
	if c.Kinematics.WindowPreMS < 0 || c.Kinematics.WindowPostMS < 0 {
		return fmt.Errorf("kinematics window bounds must not be negative")
	}
	if c.Tracking.BufferSpanMS < c.Kinematics.WindowPreMS+c.Kinematics.WindowPostMS {
		return fmt.Errorf("tracking.buffer-span-ms must cover the kinematics window")
	}
	if c.Tracking.PollHz <= 0 {
		return fmt.Errorf("tracking.poll-hz must be positive")
	}
	return nil
}

// CalibConfig converts the calibration section to the state machine's config.
func (c Config) CalibConfig() calib.Config {
	return calib.Config{
		ThresholdDelta:     c.Calibration.ThresholdDelta,
		BaselineDurationMS: c.Calibration.BaselineDurationMS,
		HoldDurationMS:     c.Calibration.HoldDurationMS,
		MaxGapMS:           c.Calibration.MaxGapMS,
		HandDebounceMS:     c.Calibration.HandDebounceMS,
		CompatThreshold:    calib.DefaultCompatThreshold,
	}
}

// PressDetectorConfig converts the press section to the detector's config.
func (c Config) PressDetectorConfig() press.Config {
	return press.Config{
		HysteresisMargin: c.Press.HysteresisMargin,
		CooldownMS:       c.Press.CooldownMS,
	}
}

// KinematicsProcessorConfig converts the kinematics section to the
// processor's config.
func (c Config) KinematicsProcessorConfig() kinematics.Config {
	return kinematics.Config{
		WindowPreMS:      c.Kinematics.WindowPreMS,
		WindowPostMS:     c.Kinematics.WindowPostMS,
		MLRThreshold:     c.Kinematics.MLRThreshold,
		CoupledDelta:     c.Kinematics.CoupledDelta,
		MinWindowSamples: c.Kinematics.MinWindowSamples,
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setInt64(dst *int64, src *int64) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
