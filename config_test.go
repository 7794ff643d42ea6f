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
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultAcceptedVersions, cfg.Versions())
	assert.Equal(t, DefaultProfile(), cfg.Profile())
	assert.Equal(t, DefaultAdvertisement(), cfg.Advertisement())
	assert.Equal(t, DefaultPaceInterval, cfg.Loop.PaceInterval)
	assert.Equal(t, uint8(0), cfg.Reader.WriteBlock)
}

func TestParseConfig(t *testing.T) {
	t.Parallel()

	data := []byte(`
reader:
  transport: uart
  path: /dev/ttyUSB0
  baud_rate: 115200
  write_block: 4
  accepted_versions: [0x92]
ble:
  local_name: door-reader
  device_id: 1
indicators:
  heartbeat_line: 5
  fault_line: null
loop:
  pace_interval: 500ms
  notification: ping
log:
  level: warn
`)

	cfg, err := ParseConfig(data)
	require.NoError(t, err)

	assert.Equal(t, "uart", cfg.Reader.Transport)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Reader.Path)
	assert.Equal(t, 115200, cfg.Reader.BaudRate)
	assert.Equal(t, uint8(4), cfg.Reader.WriteBlock)
	assert.Equal(t, []byte{0x92}, cfg.Versions())

	assert.Equal(t, "door-reader", cfg.Advertisement().LocalName)
	assert.Equal(t, []string{DefaultServiceUUID}, cfg.Advertisement().ServiceUUIDs)
	assert.Equal(t, 1, cfg.BLE.DeviceID)

	require.NotNil(t, cfg.Indicators.HeartbeatLine)
	assert.Equal(t, 5, *cfg.Indicators.HeartbeatLine)
	assert.Nil(t, cfg.Indicators.FaultLine)
	assert.Equal(t, "gpiochip0", cfg.Indicators.Chip)

	assert.Equal(t, 500*time.Millisecond, cfg.Loop.PaceInterval)
	assert.Equal(t, "ping", cfg.Loop.Notification)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}

func TestParseConfig_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
	}{
		{name: "bad yaml", yaml: "reader: [unterminated"},
		{name: "transport", yaml: "reader: {transport: usb}"},
		{name: "version range", yaml: "reader: {accepted_versions: [256]}"},
		{name: "service uuid", yaml: "ble: {service_uuid: not-a-uuid}"},
		{name: "characteristic uuid", yaml: "ble: {characteristic_uuid: 1234}"},
		{name: "device id", yaml: "ble: {device_id: -1}"},
		{name: "pace", yaml: "loop: {pace_interval: 0s}"},
		{name: "log level", yaml: "log: {level: chatty}"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseConfig([]byte(tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestConfig_DebugForcesLevel(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Log.Level = "error"
	cfg.Log.Debug = true

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cardbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reader: {transport: i2c, path: /dev/i2c-1}\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "i2c", cfg.Reader.Transport)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewLogger(&buf, slog.LevelInfo, true)

	log.Debug("hidden")
	log.Info("started advertising", "name", "cardbridge")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "started advertising")
	assert.Contains(t, out, "name=cardbridge")
	assert.Regexp(t, `^\d{2}:\d{2}\.\d{2} `, out)
}
