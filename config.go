// go-cardbridge
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-cardbridge.
//
// go-cardbridge is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-cardbridge is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-cardbridge; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package cardbridge

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration file layout.
type Config struct {
	Reader     ReaderConfig    `yaml:"reader"`
	BLE        BLEConfig       `yaml:"ble"`
	Indicators IndicatorConfig `yaml:"indicators"`
	Log        LogConfig       `yaml:"log"`
	Loop       LoopConfig      `yaml:"loop"`
}

// ReaderConfig selects the reader transport.
type ReaderConfig struct {
	// Transport is "spi", "i2c", "uart", or empty for auto-detection
	Transport        string   `yaml:"transport"`
	Path             string   `yaml:"path"`
	IgnorePaths      []string `yaml:"ignore_paths"`
	AcceptedVersions []int    `yaml:"accepted_versions"`
	SpeedHz          int64    `yaml:"speed_hz"`
	BaudRate         int      `yaml:"baud_rate"`
	WriteBlock       uint8    `yaml:"write_block"`
}

// BLEConfig holds the advertised identity.
type BLEConfig struct {
	LocalName          string `yaml:"local_name"`
	ServiceUUID        string `yaml:"service_uuid"`
	CharacteristicUUID string `yaml:"characteristic_uuid"`
	// DeviceID selects the HCI adapter, 0 for hci0
	DeviceID int `yaml:"device_id"`
}

// IndicatorConfig holds the GPIO lines for the two LEDs (nil = not configured).
type IndicatorConfig struct {
	HeartbeatLine *int   `yaml:"heartbeat_line"`
	FaultLine     *int   `yaml:"fault_line"`
	Chip          string `yaml:"chip"`
}

// LoopConfig tunes the bridge loop.
type LoopConfig struct {
	Notification string        `yaml:"notification"`
	PaceInterval time.Duration `yaml:"pace_interval"`
}

// LogConfig controls the diagnostic sink.
type LogConfig struct {
	Level   string `yaml:"level"`
	Debug   bool   `yaml:"debug"`
	NoColor bool   `yaml:"no_color"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	heartbeat, fault := 12, 13
	return &Config{
		Reader: ReaderConfig{
			Transport:        "spi",
			Path:             "/dev/spidev0.0",
			SpeedHz:          1_000_000,
			BaudRate:         9600,
			AcceptedVersions: []int{0x91, 0x92},
		},
		BLE: BLEConfig{
			LocalName:          DefaultLocalName,
			ServiceUUID:        DefaultServiceUUID,
			CharacteristicUUID: DefaultCharacteristicUUID,
		},
		Indicators: IndicatorConfig{
			Chip:          "gpiochip0",
			HeartbeatLine: &heartbeat,
			FaultLine:     &fault,
		},
		Loop: LoopConfig{
			PaceInterval: DefaultPaceInterval,
			Notification: string(DefaultNotificationPayload),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads a YAML file over the defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML over the defaults and validates the result.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values the bridge cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Reader.Transport) {
	case "", "spi", "i2c", "uart":
	default:
		errs = append(errs, fmt.Errorf("reader.transport %q: %w", c.Reader.Transport, ErrInvalidParameter))
	}
	for _, v := range c.Reader.AcceptedVersions {
		if v < 0 || v > 0xFF {
			errs = append(errs, fmt.Errorf("reader.accepted_versions value %d: %w", v, ErrInvalidParameter))
		}
	}
	for name, value := range map[string]string{
		"ble.service_uuid":        c.BLE.ServiceUUID,
		"ble.characteristic_uuid": c.BLE.CharacteristicUUID,
	} {
		if _, err := uuid.Parse(value); err != nil {
			errs = append(errs, fmt.Errorf("%s %q: %w", name, value, err))
		}
	}
	if c.BLE.DeviceID < 0 {
		errs = append(errs, fmt.Errorf("ble.device_id %d: %w", c.BLE.DeviceID, ErrInvalidParameter))
	}
	if c.Loop.PaceInterval <= 0 {
		errs = append(errs, fmt.Errorf("loop.pace_interval %v: %w", c.Loop.PaceInterval, ErrInvalidParameter))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// SlogLevel maps log.level to a slog level; debug: true forces debug.
func (c *Config) SlogLevel() (slog.Level, error) {
	if c.Log.Debug {
		return slog.LevelDebug, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level %q: %w", c.Log.Level, err)
	}
	return level, nil
}

// Versions returns the accepted reader versions as bytes.
func (c *Config) Versions() []byte {
	out := make([]byte, 0, len(c.Reader.AcceptedVersions))
	for _, v := range c.Reader.AcceptedVersions {
		out = append(out, byte(v))
	}
	return out
}

// Profile returns the GATT profile for the configured UUIDs.
func (c *Config) Profile() Profile {
	p := DefaultProfile()
	p.ServiceUUID = c.BLE.ServiceUUID
	p.CharacteristicUUID = c.BLE.CharacteristicUUID
	return p
}

// Advertisement returns the advertising data for the configured identity.
func (c *Config) Advertisement() Advertisement {
	adv := DefaultAdvertisement()
	adv.LocalName = c.BLE.LocalName
	adv.ServiceUUIDs = []string{c.BLE.ServiceUUID}
	return adv
}
