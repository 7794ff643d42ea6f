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

// Package spi provides the SPI register bus for MFRC522
package spi

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/ZaparooProject/go-cardbridge/mfrc522"
)

const (
	// MFRC522 address byte: bit 7 = read, bits 6-1 = register, bit 0 = 0
	readFlag    = 0x80
	addressMask = 0x7E

	// DefaultSpeed is a safe clock for jumper-wired modules.
	DefaultSpeed = physic.MegaHertz

	// Max clock frequency (10 MHz).
	maxClockFreq = 10 * physic.MegaHertz
)

// Transport implements mfrc522.Bus over an SPI port
type Transport struct {
	port     spi.PortCloser
	conn     spi.Conn
	portName string
	mu       sync.Mutex
}

// New opens the named SPI port ("" selects the first one) at speed.
// A zero speed uses DefaultSpeed.
func New(portName string, speed physic.Frequency) (*Transport, error) {
	// Initialize host
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	port, err := spireg.Open(portName)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %s: %w", portName, err)
	}

	t, err := newTransport(port, portName, speed)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return t, nil
}

func newTransport(port spi.PortCloser, portName string, speed physic.Frequency) (*Transport, error) {
	if speed <= 0 {
		speed = DefaultSpeed
	}
	if speed > maxClockFreq {
		speed = maxClockFreq
	}

	conn, err := port.Connect(speed, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("failed to connect SPI port %s: %w", portName, err)
	}

	return &Transport{
		port:     port,
		conn:     conn,
		portName: portName,
	}, nil
}

// ReadRegister reads one register
func (t *Transport) ReadRegister(reg byte) (byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return 0, t.closedError("read")
	}

	w := [2]byte{readFlag | (reg<<1)&addressMask, 0}
	var r [2]byte
	if err := t.conn.Tx(w[:], r[:]); err != nil {
		return 0, t.txError("read", err)
	}
	return r[1], nil
}

// WriteRegister writes one register
func (t *Transport) WriteRegister(reg, value byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return t.closedError("write")
	}

	w := [2]byte{(reg << 1) & addressMask, value}
	var r [2]byte
	if err := t.conn.Tx(w[:], r[:]); err != nil {
		return t.txError("write", err)
	}
	return nil
}

// Close closes the SPI port
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	t.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close SPI port %s: %w", t.portName, err)
	}
	return nil
}

// Type returns the transport type
func (*Transport) Type() mfrc522.BusType {
	return mfrc522.BusSPI
}

func (t *Transport) txError(op string, err error) error {
	return &mfrc522.TransportError{
		Op: op, Port: t.portName,
		Err:       err,
		Type:      mfrc522.ErrorTypeTransient,
		Retryable: true,
	}
}

func (t *Transport) closedError(op string) error {
	return &mfrc522.TransportError{
		Op: op, Port: t.portName,
		Err:  mfrc522.ErrBusClosed,
		Type: mfrc522.ErrorTypePermanent,
	}
}

// Ensure Transport implements mfrc522.Bus
var _ mfrc522.Bus = (*Transport)(nil)
