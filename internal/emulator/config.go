// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package emulator

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/helix/internal/transport"
	"github.com/Thermoquad/helix/pkg/thermistor"
)

// Config holds the emulator configuration
type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Thermal   ThermalConfig   `yaml:"thermal"`
	Transport TransportConfig `yaml:"transport"`
	Store     StoreConfig     `yaml:"store"`
}

// DeviceConfig describes the emulated firmware
type DeviceConfig struct {
	FirmwareVersion string        `yaml:"firmware_version"`
	Sensor          string        `yaml:"sensor"`        // thermistor profile name
	Startup         time.Duration `yaml:"startup"`       // time spent in the startup state
	TickInterval    time.Duration `yaml:"tick_interval"` // simulation step
	StallTimeout    time.Duration `yaml:"stall_timeout"` // abandon partial frames, 0 waits forever
	DefaultContrast uint8         `yaml:"default_contrast"`
}

// ThermalConfig describes the simulated plate and lid
type ThermalConfig struct {
	Ambient       float64 `yaml:"ambient"`        // °C
	HeatRate      float64 `yaml:"heat_rate"`      // plate °C/s
	CoolRate      float64 `yaml:"cool_rate"`      // plate °C/s
	LidHeatRate   float64 `yaml:"lid_heat_rate"`  // °C/s
	LidCoolRate   float64 `yaml:"lid_cool_rate"`  // °C/s
	HoldTolerance float64 `yaml:"hold_tolerance"` // °C from target counted as holding
	DefaultLid    int     `yaml:"default_lid"`    // lid target when a command sets none
	TimeScale     float64 `yaml:"time_scale"`     // simulated seconds per real second
}

// TransportConfig selects where the emulator listens
type TransportConfig struct {
	SerialPort string `yaml:"serial_port"`
	BaudRate   int    `yaml:"baud_rate"`
	ListenAddr string `yaml:"listen_addr"`
	Path       string `yaml:"path"`
}

// StoreConfig locates the program store file. An empty path keeps the
// store in memory.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			FirmwareVersion: "1.0.5",
			Sensor:          thermistor.Stock.Name,
			Startup:         2 * time.Second,
			TickInterval:    100 * time.Millisecond,
			StallTimeout:    0,
			DefaultContrast: 110,
		},
		Thermal: ThermalConfig{
			Ambient:       23,
			HeatRate:      3.0,
			CoolRate:      2.0,
			LidHeatRate:   1.0,
			LidCoolRate:   0.3,
			HoldTolerance: 0.5,
			DefaultLid:    110,
			TimeScale:     1,
		},
		Transport: TransportConfig{
			BaudRate:   transport.DefaultBaudRate,
			ListenAddr: "127.0.0.1:8765",
			Path:       "/pcr",
		},
	}
}

// LoadConfig reads a YAML config over the defaults. A missing file yields
// the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the config for values the simulation cannot run with
func (c *Config) Validate() error {
	if _, err := thermistor.ByName(c.Device.Sensor); err != nil {
		return err
	}
	if c.Device.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive")
	}
	if c.Device.StallTimeout < 0 {
		return fmt.Errorf("stall_timeout must not be negative")
	}
	if c.Thermal.HeatRate <= 0 || c.Thermal.CoolRate <= 0 {
		return fmt.Errorf("plate heat and cool rates must be positive")
	}
	if c.Thermal.LidHeatRate <= 0 || c.Thermal.LidCoolRate <= 0 {
		return fmt.Errorf("lid heat and cool rates must be positive")
	}
	if c.Thermal.HoldTolerance <= 0 {
		return fmt.Errorf("hold_tolerance must be positive")
	}
	if c.Thermal.TimeScale <= 0 {
		return fmt.Errorf("time_scale must be positive")
	}
	return nil
}

// Save writes the config as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
