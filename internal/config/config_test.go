package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	def := Default()
	if cfg.Calibration.ThresholdDelta != def.Calibration.ThresholdDelta {
		t.Errorf("threshold delta = %v, want default %v",
			cfg.Calibration.ThresholdDelta, def.Calibration.ThresholdDelta)
	}
	if cfg.Press.CooldownMS != 250 {
		t.Errorf("cooldown = %v, want 250", cfg.Press.CooldownMS)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[calibration]
threshold-delta = 25.0
hold-duration-ms = 750

[press]
cooldown-ms = 300

[server]
addr = "0.0.0.0:9000"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Calibration.ThresholdDelta != 25 {
		t.Errorf("threshold delta = %v, want 25", cfg.Calibration.ThresholdDelta)
	}
	if cfg.Calibration.HoldDurationMS != 750 {
		t.Errorf("hold duration = %v, want 750", cfg.Calibration.HoldDurationMS)
	}
	if cfg.Press.CooldownMS != 300 {
		t.Errorf("cooldown = %v, want 300", cfg.Press.CooldownMS)
	}
	if cfg.Server.Addr != "0.0.0.0:9000" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}

	// Keys absent from the file keep their defaults.
	if cfg.Calibration.BaselineDurationMS != 10000 {
		t.Errorf("baseline duration = %v, want default 10000", cfg.Calibration.BaselineDurationMS)
	}
	if cfg.Kinematics.MLRThreshold != 0.10 {
		t.Errorf("mlr threshold = %v, want default 0.10", cfg.Kinematics.MLRThreshold)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[calibration]
threshold-delta = -5.0
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for negative threshold delta")
	}
}

func TestLoadRejectsWindowLargerThanBuffer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[tracking]
buffer-span-ms = 100
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error when buffer span cannot cover the window")
	}
}
