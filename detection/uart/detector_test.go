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

package uart

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"

	"github.com/ZaparooProject/go-cardbridge/detection"
)

func newTestDetector(ports []*enumerator.PortDetails, versions map[string]byte) *detector {
	return &detector{
		list: func() ([]*enumerator.PortDetails, error) { return ports, nil },
		probe: func(path string) (byte, error) {
			if v, ok := versions[path]; ok {
				return v, nil
			}
			return 0, errors.New("no answer")
		},
	}
}

func testPorts() []*enumerator.PortDetails {
	return []*enumerator.PortDetails{
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "1a86", PID: "7523", Product: "USB Serial"},
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "2341", PID: "0043", Product: "Arduino Uno"},
		{Name: "/dev/ttyUSB1", IsUSB: true, VID: "0403", PID: "6001"},
		{Name: "/dev/ttyS0", IsUSB: false},
	}
}

func TestDetector_Safe(t *testing.T) {
	t.Parallel()

	d := newTestDetector(testPorts(), map[string]byte{
		"/dev/ttyUSB0": 0x92,
		"/dev/ttyACM0": 0x92, // blocked, must never be probed into the result
		"/dev/ttyUSB1": 0x12, // clone version, rejected
	})
	opts := detection.DefaultOptions()

	devices, err := d.Detect(context.Background(), &opts)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "/dev/ttyUSB0", devices[0].Path)
	assert.Equal(t, detection.High, devices[0].Confidence)
	assert.Equal(t, "0x92", devices[0].Metadata["version"])
	assert.Equal(t, "CH340", devices[0].Metadata["bridge"])
}

func TestDetector_Passive(t *testing.T) {
	t.Parallel()

	d := newTestDetector(testPorts(), nil)
	opts := detection.DefaultOptions()
	opts.Mode = detection.Passive
	opts.IgnorePaths = []string{"/dev/ttyUSB1"}

	devices, err := d.Detect(context.Background(), &opts)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "/dev/ttyUSB0", devices[0].Path)
	assert.Equal(t, detection.Medium, devices[0].Confidence)
}

func TestDetector_NothingFound(t *testing.T) {
	t.Parallel()

	d := newTestDetector(testPorts(), nil)
	opts := detection.DefaultOptions()

	_, err := d.Detect(context.Background(), &opts)
	require.ErrorIs(t, err, detection.ErrNoDevicesFound)
}

func TestDetector_EnumerationError(t *testing.T) {
	t.Parallel()

	enumErr := errors.New("udev unavailable")
	d := &detector{list: func() ([]*enumerator.PortDetails, error) { return nil, enumErr }}
	opts := detection.DefaultOptions()

	_, err := d.Detect(context.Background(), &opts)
	require.ErrorIs(t, err, enumErr)
	assert.Equal(t, "uart", d.Transport())
}
