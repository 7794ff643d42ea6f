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

package i2c

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"

	"github.com/ZaparooProject/go-cardbridge/mfrc522"
)

func TestTransport_ReadRegister(t *testing.T) {
	t.Parallel()

	bus := &i2ctest.Playback{Ops: []i2ctest.IO{
		{Addr: DefaultAddress, W: []byte{0x37}, R: []byte{0x91}},
	}}
	transport := newTransport(bus, "test", 0)

	v, err := transport.ReadRegister(0x37)
	require.NoError(t, err)
	assert.Equal(t, byte(0x91), v)
	require.NoError(t, transport.Close())
}

func TestTransport_WriteRegister(t *testing.T) {
	t.Parallel()

	bus := &i2ctest.Playback{Ops: []i2ctest.IO{
		{Addr: 0x2A, W: []byte{0x14, 0x83}},
	}}
	transport := newTransport(bus, "test", 0x2A)

	require.NoError(t, transport.WriteRegister(0x14, 0x83))
	require.NoError(t, transport.Close())
}

func TestTransport_BusError(t *testing.T) {
	t.Parallel()

	// An empty playback fails every transaction
	bus := &i2ctest.Playback{DontPanic: true}
	transport := newTransport(bus, "test", 0)

	_, err := transport.ReadRegister(0x37)
	require.Error(t, err)
	assert.True(t, mfrc522.IsRetryable(err))
}

func TestTransport_Closed(t *testing.T) {
	t.Parallel()

	transport := newTransport(&i2ctest.Playback{}, "test", 0)
	require.True(t, transport.IsConnected())
	require.NoError(t, transport.Close())
	assert.False(t, transport.IsConnected())

	_, err := transport.ReadRegister(0x37)
	require.ErrorIs(t, err, mfrc522.ErrBusClosed)
	assert.False(t, mfrc522.IsRetryable(err))
}

func TestTransport_Type(t *testing.T) {
	t.Parallel()
	assert.Equal(t, mfrc522.BusI2C, (&Transport{}).Type())
}
