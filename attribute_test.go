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
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBridge(reader *MockReader, opts ...BridgeOption) *Bridge {
	opts = append([]BridgeOption{WithBridgeLogger(discardLogger())}, opts...)
	return NewBridge(NewGuard(reader), opts...)
}

func filled(n int) []byte {
	return bytes.Repeat([]byte{0xFF}, n)
}

func TestBridgeRead(t *testing.T) {
	t.Parallel()

	uid7 := []byte{0x04, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66}
	uid10 := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A}

	tests := []struct {
		setup  func(*MockReader)
		uid    []byte
		name   string
		outLen int
		wantN  int
	}{
		{name: "4-byte UID", uid: testUID, outLen: 16, wantN: 4},
		{name: "7-byte UID", uid: uid7, outLen: 16, wantN: 7},
		{name: "10-byte UID exact buffer", uid: uid10, outLen: 10, wantN: 10},
		{name: "no card", uid: testUID, outLen: 16, setup: func(m *MockReader) { m.RemoveCard() }},
		{
			name: "select fails", uid: testUID, outLen: 16,
			setup: func(m *MockReader) { m.SelectErr = errors.New("collision") },
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reader := NewMockReader(tt.uid)
			if tt.setup != nil {
				tt.setup(reader)
			}
			out := filled(tt.outLen)

			n := newTestBridge(reader).Read(0, out)
			require.Equal(t, tt.wantN, n)
			assert.Equal(t, tt.uid[:n], out[:n])
			assert.Equal(t, filled(tt.outLen-n), out[n:], "bytes past the UID must be untouched")

			_, _, _, writes := reader.Calls()
			assert.Zero(t, writes)
		})
	}
}

func TestBridgeRead_NoCardLogsCause(t *testing.T) {
	t.Parallel()

	log, buf := newTestLogger()
	reader := NewMockReader(testUID)
	reader.RemoveCard()

	out := filled(4)
	n := NewBridge(NewGuard(reader), WithBridgeLogger(log.With("component", "bridge"))).Read(0, out)

	assert.Zero(t, n)
	assert.Contains(t, buf.String(), "read: no card present")
	assert.Contains(t, buf.String(), "component=bridge")
	assert.Contains(t, buf.String(), "timeout waiting for ATQA")
}

func TestBridgeRead_ShortBufferPanics(t *testing.T) {
	t.Parallel()

	reader := NewMockReader([]byte{1, 2, 3, 4, 5, 6, 7})
	bridge := newTestBridge(reader)

	defer func() {
		v := recover()
		cv, ok := v.(*ContractViolation)
		require.True(t, ok, "panic value %v", v)
		assert.Equal(t, "read", cv.Op)
		assert.Equal(t, 4, cv.Got)

		// the guard was released before the panic
		bridge.guard.Do(func(Reader) {})
	}()
	bridge.Read(0, make([]byte, 4))
}

func TestBridgeWrite(t *testing.T) {
	t.Parallel()

	reader := NewMockReader(testUID)
	data := make([]byte, BlockSize)
	for i := range data {
		data[i] = byte(0xA0 + i)
	}
	want := Block(data)

	newTestBridge(reader, WithWriteBlock(4)).Write(0, data)
	data[0] = 0x00

	require.Len(t, reader.Writes, 1)
	assert.Equal(t, uint8(4), reader.Writes[0].Block)
	assert.Equal(t, want, reader.Writes[0].Data)
}

func TestBridgeWrite_WrongLengthPanics(t *testing.T) {
	t.Parallel()

	for _, size := range []int{0, 1, 15, 17, 32} {
		size := size
		t.Run(fmt.Sprintf("%d bytes", size), func(t *testing.T) {
			t.Parallel()
			reader := NewMockReader(testUID)
			bridge := newTestBridge(reader)

			v := recoverPanic(func() { bridge.Write(0, make([]byte, size)) })
			cv, ok := v.(*ContractViolation)
			require.True(t, ok, "panic value %v", v)
			assert.Equal(t, &ContractViolation{Op: "write", Want: "16", Got: size}, cv)

			versions, requests, selects, writes := reader.Calls()
			assert.Zero(t, versions+requests+selects+writes, "reader touched for a %d-byte write", size)
		})
	}
}

func TestBridgeWrite_FailuresStayLocal(t *testing.T) {
	t.Parallel()

	t.Run("no card", func(t *testing.T) {
		t.Parallel()
		reader := NewMockReader(testUID)
		reader.RemoveCard()

		assert.NotPanics(t, func() { newTestBridge(reader).Write(0, make([]byte, BlockSize)) })
		assert.Empty(t, reader.Writes)
	})

	t.Run("card rejects", func(t *testing.T) {
		t.Parallel()
		log, buf := newTestLogger()
		reader := NewMockReader(testUID)
		reader.WriteErr = errors.New("NAK 0x04")

		assert.NotPanics(t, func() {
			NewBridge(NewGuard(reader), WithBridgeLogger(log)).Write(0, make([]byte, BlockSize))
		})
		assert.Len(t, reader.Writes, 1)
		assert.Contains(t, buf.String(), "write failed")
	})
}

func recoverPanic(f func()) (v any) {
	defer func() { v = recover() }()
	f()
	return nil
}
