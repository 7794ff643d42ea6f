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

package connect

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"

	cardbridge "github.com/ZaparooProject/go-cardbridge"
	"github.com/ZaparooProject/go-cardbridge/detection"
	virt "github.com/ZaparooProject/go-cardbridge/internal/testing"
	"github.com/ZaparooProject/go-cardbridge/mfrc522"
)

type openCall struct {
	kind  string
	path  string
	speed physic.Frequency
	addr  uint16
	baud  int
}

type recorder struct {
	bus     mfrc522.Bus
	err     error
	calls   []openCall
	devices []detection.DeviceInfo
	detErr  error
	detOpts *detection.Options
}

func (r *recorder) opener() *opener {
	return &opener{
		spi: func(path string, speed physic.Frequency) (mfrc522.Bus, error) {
			r.calls = append(r.calls, openCall{kind: "spi", path: path, speed: speed})
			return r.bus, r.err
		},
		i2c: func(bus string, addr uint16) (mfrc522.Bus, error) {
			r.calls = append(r.calls, openCall{kind: "i2c", path: bus, addr: addr})
			return r.bus, r.err
		},
		uart: func(path string, baud int) (mfrc522.Bus, error) {
			r.calls = append(r.calls, openCall{kind: "uart", path: path, baud: baud})
			return r.bus, r.err
		},
		detect: func(_ context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
			r.detOpts = opts
			return r.devices, r.detErr
		},
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestOpener_Bus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  cardbridge.ReaderConfig
		want openCall
	}{
		{
			name: "spi",
			cfg:  cardbridge.ReaderConfig{Transport: "spi", Path: "/dev/spidev0.0", SpeedHz: 4_000_000},
			want: openCall{kind: "spi", path: "/dev/spidev0.0", speed: 4 * physic.MegaHertz},
		},
		{
			name: "i2c with address",
			cfg:  cardbridge.ReaderConfig{Transport: "I2C", Path: "/dev/i2c-1:0x2A"},
			want: openCall{kind: "i2c", path: "/dev/i2c-1", addr: 0x2A},
		},
		{
			name: "i2c default address",
			cfg:  cardbridge.ReaderConfig{Transport: "i2c", Path: "/dev/i2c-0"},
			want: openCall{kind: "i2c", path: "/dev/i2c-0", addr: 0x28},
		},
		{
			name: "uart",
			cfg:  cardbridge.ReaderConfig{Transport: "uart", Path: "/dev/ttyUSB0", BaudRate: 115200},
			want: openCall{kind: "uart", path: "/dev/ttyUSB0", baud: 115200},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := &recorder{bus: virt.NewVirtualChip(0x92, nil)}
			bus, err := r.opener().bus(context.Background(), tt.cfg)
			require.NoError(t, err)
			assert.NotNil(t, bus)
			require.Len(t, r.calls, 1)
			assert.Equal(t, tt.want, r.calls[0])
		})
	}
}

func TestOpener_BusErrors(t *testing.T) {
	t.Parallel()

	t.Run("unknown transport", func(t *testing.T) {
		t.Parallel()
		r := &recorder{}
		_, err := r.opener().bus(context.Background(), cardbridge.ReaderConfig{Transport: "usb"})
		require.ErrorIs(t, err, mfrc522.ErrUnknownBus)
		assert.Empty(t, r.calls)
	})

	t.Run("bad i2c address", func(t *testing.T) {
		t.Parallel()
		r := &recorder{}
		_, err := r.opener().bus(context.Background(), cardbridge.ReaderConfig{Transport: "i2c", Path: "/dev/i2c-1:zz"})
		require.Error(t, err)
		assert.Empty(t, r.calls)
	})

	t.Run("constructor failure", func(t *testing.T) {
		t.Parallel()
		openErr := errors.New("permission denied")
		r := &recorder{err: openErr}
		_, err := r.opener().bus(context.Background(), cardbridge.ReaderConfig{Transport: "spi"})
		require.ErrorIs(t, err, openErr)
		assert.Contains(t, err.Error(), "SPI")
	})
}

func TestOpener_AutoDetect(t *testing.T) {
	t.Parallel()

	r := &recorder{
		bus: virt.NewVirtualChip(0x92, nil),
		devices: []detection.DeviceInfo{
			{Transport: "uart", Path: "/dev/ttyUSB1", Confidence: detection.High},
			{Transport: "i2c", Path: "/dev/i2c-1:0x28", Confidence: detection.Medium},
		},
		detErr: errors.New("i2c: permission denied"),
	}
	cfg := cardbridge.ReaderConfig{
		IgnorePaths:      []string{"/dev/ttyUSB0"},
		AcceptedVersions: []int{0x92},
		BaudRate:         9600,
	}

	_, err := r.opener().bus(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, r.calls, 1)
	assert.Equal(t, openCall{kind: "uart", path: "/dev/ttyUSB1", baud: 9600}, r.calls[0])

	require.NotNil(t, r.detOpts)
	assert.Equal(t, []string{"/dev/ttyUSB0"}, r.detOpts.IgnorePaths)
	assert.Equal(t, []byte{0x92}, r.detOpts.AcceptedVersions)
}

func TestOpener_AutoDetectNothing(t *testing.T) {
	t.Parallel()

	r := &recorder{}
	_, err := r.opener().bus(context.Background(), cardbridge.ReaderConfig{})
	require.ErrorIs(t, err, detection.ErrNoDevicesFound)
	assert.Empty(t, r.calls)
}

func TestOpener_Open(t *testing.T) {
	t.Parallel()

	chip := virt.NewVirtualChip(0x92, virt.NewVirtualMIFARE1K(nil))
	r := &recorder{bus: chip}

	device, err := r.opener().open(context.Background(), cardbridge.ReaderConfig{Transport: "spi"})
	require.NoError(t, err)

	version, err := device.Version()
	require.NoError(t, err)
	assert.Equal(t, byte(0x92), version)

	uid, err := cardbridge.Identify(device)
	require.NoError(t, err)
	assert.Equal(t, virt.TestUID4, uid.Bytes())

	require.NoError(t, device.Close())
	assert.True(t, chip.Closed())
}
