package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/codedphy/beacon/pkg/advdata"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default configuration failed validation: %s", err)
	}
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beacon.yaml")
	contents := []byte(`
device:
  name: "Test Beacon"
advertising:
  targetTotal: 1024
telemetry:
  periodMs: 500
`)
	if err := os.WriteFile(path, contents, 0644); err != nil {
		t.Fatalf("Failed to write config file: %s", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %s", err)
	}
	if cfg.Device.Name != "Test Beacon" {
		t.Errorf("Device name = %q", cfg.Device.Name)
	}
	if cfg.Advertising.TargetTotal != 1024 {
		t.Errorf("TargetTotal = %d, want 1024", cfg.Advertising.TargetTotal)
	}
	if cfg.Telemetry.PeriodMs != 500 {
		t.Errorf("PeriodMs = %d, want 500", cfg.Telemetry.PeriodMs)
	}
	// Untouched fields keep their defaults.
	if cfg.Advertising.StructureCap != 256 {
		t.Errorf("StructureCap = %d, want 256", cfg.Advertising.StructureCap)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BEACON_DEVICE_NAME", "Env Beacon")
	t.Setenv("BEACON_NOTIFY_PERIOD_MS", "250")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %s", err)
	}
	if cfg.Device.Name != "Env Beacon" {
		t.Errorf("Device name = %q", cfg.Device.Name)
	}
	if cfg.Telemetry.PeriodMs != 250 {
		t.Errorf("PeriodMs = %d, want 250", cfg.Telemetry.PeriodMs)
	}
}

func TestValidateRejectsBadChunkSizing(t *testing.T) {
	cfg := Default()
	cfg.Advertising.TargetTotal = 258 // remainder equals framing overhead
	err := cfg.Validate()
	var configErr *advdata.ConfigError
	if !errors.As(err, &configErr) {
		t.Errorf("Validate() = %v, want ConfigError", err)
	}
}

func TestValidateRejectsNonPositivePeriod(t *testing.T) {
	cfg := Default()
	cfg.Telemetry.PeriodMs = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate accepted a zero telemetry period")
	}
}

func TestValidateRejectsInvertedIntervals(t *testing.T) {
	cfg := Default()
	cfg.Advertising.FastIntervalMin = cfg.Advertising.FastIntervalMax + 1
	if err := cfg.Validate(); err == nil {
		t.Error("Validate accepted inverted interval bounds")
	}
}

func TestLoadFailsOnMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load succeeded with a missing config file")
	}
}

func TestPeripheralConversion(t *testing.T) {
	p := Default().Peripheral()
	if p.Advertising.TargetTotal != 1650 || p.Advertising.StructureCap != 256 {
		t.Errorf("Unexpected payload sizing: %d / %d", p.Advertising.TargetTotal, p.Advertising.StructureCap)
	}
	if len(p.Advertising.Services) != 3 {
		t.Errorf("Expected 3 advertised services, got %d", len(p.Advertising.Services))
	}
	if p.NotifyPeriod.Milliseconds() != 1000 {
		t.Errorf("NotifyPeriod = %s, want 1s", p.NotifyPeriod)
	}
}
