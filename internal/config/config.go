// Package config loads the beacon's configuration from YAML with environment
// overrides, and validates it before any radio call is made.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/codedphy/beacon/pkg/advdata"
	"github.com/codedphy/beacon/pkg/advertiser"
	"github.com/codedphy/beacon/pkg/peripheral"
	"github.com/codedphy/beacon/pkg/transport"
)

// Config is the complete configuration for the beacon daemon.
type Config struct {
	Device      DeviceConfig      `yaml:"device"`
	Advertising AdvertisingConfig `yaml:"advertising"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// DeviceConfig holds adapter and identity settings.
type DeviceConfig struct {
	Name    string `yaml:"name"`
	Adapter string `yaml:"adapter"`
}

// AdvertisingConfig holds payload sizing and interval settings. Intervals are
// in 0.625 ms units, matching the controller's encoding.
type AdvertisingConfig struct {
	TargetTotal  int    `yaml:"targetTotal"`
	StructureCap int    `yaml:"structureCap"`
	CompanyID    uint16 `yaml:"companyId"`

	FastIntervalMin uint16 `yaml:"fastIntervalMin"`
	FastIntervalMax uint16 `yaml:"fastIntervalMax"`
	SlowIntervalMin uint16 `yaml:"slowIntervalMin"`
	SlowIntervalMax uint16 `yaml:"slowIntervalMax"`
}

// TelemetryConfig holds the notification generator settings.
type TelemetryConfig struct {
	PeriodMs int `yaml:"periodMs"`
}

// LoggingConfig holds optional rotating-file log settings.
type LoggingConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment overrides, then validates it.
func Load(filename string) (*Config, error) {
	cfg := Default()

	if filename == "" {
		filename = os.Getenv("BEACON_CONFIG")
	}
	if filename != "" {
		if err := loadFromFile(cfg, filename); err != nil {
			return nil, fmt.Errorf("config: failed to load %s: %w", filename, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration matching the reference peripheral: a
// 1650-byte broadcast payload in 256-byte structures, one-second telemetry.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Name:    "HR Coded",
			Adapter: "hci0",
		},
		Advertising: AdvertisingConfig{
			TargetTotal:     1650,
			StructureCap:    256,
			CompanyID:       advdata.DefaultCompanyID,
			FastIntervalMin: uint16(transport.FastIntervalMin),
			FastIntervalMax: uint16(transport.FastIntervalMax),
			SlowIntervalMin: uint16(transport.SlowIntervalMin),
			SlowIntervalMax: uint16(transport.SlowIntervalMax),
		},
		Telemetry: TelemetryConfig{
			PeriodMs: 1000,
		},
		Logging: LoggingConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	if name := os.Getenv("BEACON_DEVICE_NAME"); name != "" {
		cfg.Device.Name = name
	}
	if adapter := os.Getenv("BEACON_ADAPTER"); adapter != "" {
		cfg.Device.Adapter = adapter
	}
	if period := os.Getenv("BEACON_NOTIFY_PERIOD_MS"); period != "" {
		if ms, err := strconv.Atoi(period); err == nil {
			cfg.Telemetry.PeriodMs = ms
		}
	}
}

// Validate rejects configurations the radio would choke on later. Chunk
// sizing in particular must fail here, before startup, never at runtime.
func (cfg *Config) Validate() error {
	if cfg.Device.Name == "" {
		return fmt.Errorf("config: device name must not be empty")
	}
	if cfg.Device.Adapter == "" {
		return fmt.Errorf("config: adapter must not be empty")
	}
	if _, err := advdata.Plan(cfg.Advertising.TargetTotal, cfg.Advertising.StructureCap, advdata.StructureOverhead); err != nil {
		return err
	}
	if cfg.Telemetry.PeriodMs <= 0 {
		return fmt.Errorf("config: telemetry period %d ms is not positive", cfg.Telemetry.PeriodMs)
	}
	a := cfg.Advertising
	if a.FastIntervalMin > a.FastIntervalMax || a.SlowIntervalMin > a.SlowIntervalMax {
		return fmt.Errorf("config: advertising interval bounds are inverted")
	}
	return nil
}

// Peripheral converts cfg into the peripheral's startup configuration.
func (cfg *Config) Peripheral() peripheral.Config {
	return peripheral.Config{
		Advertising: advertiser.Config{
			DeviceName: cfg.Device.Name,
			Services: []uint16{
				advdata.UUIDHeartRateService,
				advdata.UUIDBatteryService,
				advdata.UUIDDeviceInfoService,
			},
			TargetTotal:     cfg.Advertising.TargetTotal,
			StructureCap:    cfg.Advertising.StructureCap,
			CompanyID:       cfg.Advertising.CompanyID,
			Sentinel:        advdata.DefaultSentinel,
			FastIntervalMin: transport.Interval(cfg.Advertising.FastIntervalMin),
			FastIntervalMax: transport.Interval(cfg.Advertising.FastIntervalMax),
			SlowIntervalMin: transport.Interval(cfg.Advertising.SlowIntervalMin),
			SlowIntervalMax: transport.Interval(cfg.Advertising.SlowIntervalMax),
		},
		NotifyPeriod: time.Duration(cfg.Telemetry.PeriodMs) * time.Millisecond,
	}
}
