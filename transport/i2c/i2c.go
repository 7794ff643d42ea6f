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

// Package i2c provides the I2C register bus for MFRC522
package i2c

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/ZaparooProject/go-cardbridge/mfrc522"
)

const (
	// DefaultAddress is the MFRC522 I2C address with EA tied high and
	// ADR_0..ADR_5 strapped low.
	DefaultAddress = 0x28

	// Max clock frequency (400 kHz).
	maxClockFreq = 400 * physic.KiloHertz
)

// Transport implements mfrc522.Bus over I2C
type Transport struct {
	bus     i2c.BusCloser
	dev     *i2c.Dev
	busName string
	mu      sync.Mutex
}

// New opens the named I2C bus ("" selects the first one) and addresses the
// reader at addr. A zero addr uses DefaultAddress.
func New(busName string, addr uint16) (*Transport, error) {
	// Initialize host
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", busName, err)
	}

	return newTransport(bus, busName, addr), nil
}

func newTransport(bus i2c.BusCloser, busName string, addr uint16) *Transport {
	if addr == 0 {
		addr = DefaultAddress
	}

	// Set maximum frequency
	_ = bus.SetSpeed(maxClockFreq) // Ignore error, continue with default speed

	return &Transport{
		bus:     bus,
		dev:     &i2c.Dev{Addr: addr, Bus: bus},
		busName: busName,
	}
}

// ReadRegister writes the register address then reads one byte
func (t *Transport) ReadRegister(reg byte) (byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dev == nil {
		return 0, t.closedError("read")
	}

	var r [1]byte
	if err := t.dev.Tx([]byte{reg}, r[:]); err != nil {
		return 0, t.txError("read", err)
	}
	return r[0], nil
}

// WriteRegister writes the register address followed by the value
func (t *Transport) WriteRegister(reg, value byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dev == nil {
		return t.closedError("write")
	}

	if err := t.dev.Tx([]byte{reg, value}, nil); err != nil {
		return t.txError("write", err)
	}
	return nil
}

// Close closes the I2C bus
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bus == nil {
		return nil
	}
	err := t.bus.Close()
	t.bus = nil
	t.dev = nil
	if err != nil {
		return fmt.Errorf("failed to close I2C bus %s: %w", t.busName, err)
	}
	return nil
}

// IsConnected returns true if the transport is connected
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dev != nil
}

// Type returns the transport type
func (*Transport) Type() mfrc522.BusType {
	return mfrc522.BusI2C
}

func (t *Transport) txError(op string, err error) error {
	return &mfrc522.TransportError{
		Op: op, Port: t.busName,
		Err:       err,
		Type:      mfrc522.ErrorTypeTransient,
		Retryable: true,
	}
}

func (t *Transport) closedError(op string) error {
	return &mfrc522.TransportError{
		Op: op, Port: t.busName,
		Err:  mfrc522.ErrBusClosed,
		Type: mfrc522.ErrorTypePermanent,
	}
}

// Ensure Transport implements mfrc522.Bus
var _ mfrc522.Bus = (*Transport)(nil)
