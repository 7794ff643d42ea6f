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

// Package uart provides the UART register bus for MFRC522
package uart

import (
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/ZaparooProject/go-cardbridge/internal/transport"
	"github.com/ZaparooProject/go-cardbridge/mfrc522"
)

const (
	// DefaultBaudRate is the MFRC522 UART speed after reset
	DefaultBaudRate = 9600

	readFlag    = 0x80
	addressMask = 0x3F

	defaultTimeout = 50 * time.Millisecond
	maxRetries     = 2
)

// port is the subset of serial.Port the transport drives
type port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// Transport implements mfrc522.Bus over a serial port. Every register
// access is one address byte (bit 7 set for reads) answered by one byte
// from the chip: the value for a read, the address echo for a write.
type Transport struct {
	port     port
	portName string
	timeout  time.Duration
	mu       sync.Mutex
}

// New opens the serial port at baud. A zero baud uses DefaultBaudRate.
func New(portName string, baud int) (*Transport, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}

	p, err := serial.Open(portName, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	t, err := newTransport(p, portName)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	return t, nil
}

func newTransport(p port, portName string) (*Transport, error) {
	t := &Transport{
		port:     p,
		portName: portName,
		timeout:  defaultTimeout,
	}
	if err := p.SetReadTimeout(t.timeout); err != nil {
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", portName, err)
	}
	if err := p.ResetInputBuffer(); err != nil {
		return nil, fmt.Errorf("failed to flush %s: %w", portName, err)
	}
	return t, nil
}

// ReadRegister reads one register
func (t *Transport) ReadRegister(reg byte) (byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return 0, t.closedError("read")
	}

	addr := readFlag | reg&addressMask
	return transport.Exchange(t.resync("read"), func() (byte, error) {
		return t.exchange([]byte{addr})
	})
}

// WriteRegister writes one register and checks the address echo
func (t *Transport) WriteRegister(reg, value byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return t.closedError("write")
	}

	addr := reg & addressMask
	_, err := transport.Exchange(t.resync("write"), func() (struct{}, error) {
		echo, err := t.exchange([]byte{addr, value})
		if err == nil && echo != addr {
			err = mfrc522.NewEchoError("write", t.portName, addr, echo)
		}
		return struct{}{}, err
	})
	return err
}

// exchange writes out and reads the single reply byte
func (t *Transport) exchange(out []byte) (byte, error) {
	if _, err := t.port.Write(out); err != nil {
		return 0, &mfrc522.TransportError{
			Op: "write", Port: t.portName,
			Err:  err,
			Type: mfrc522.ErrorTypePermanent,
		}
	}

	var in [1]byte
	n, err := t.port.Read(in[:])
	if err != nil {
		return 0, &mfrc522.TransportError{
			Op: "read", Port: t.portName,
			Err:  err,
			Type: mfrc522.ErrorTypePermanent,
		}
	}
	if n == 0 {
		return 0, mfrc522.NewTimeoutError("read", t.portName)
	}
	return in[0], nil
}

func (t *Transport) resync(op string) transport.Resync {
	return transport.Resync{
		Flush:   t.port,
		Op:      op,
		Port:    t.portName,
		Retries: maxRetries,
	}
}

// SetTimeout sets the read timeout for the transport
func (t *Transport) SetTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return t.closedError("set timeout")
	}
	if err := t.port.SetReadTimeout(timeout); err != nil {
		return fmt.Errorf("failed to set read timeout on %s: %w", t.portName, err)
	}
	t.timeout = timeout
	return nil
}

// Close closes the serial port
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	if err != nil {
		return fmt.Errorf("failed to close serial port %s: %w", t.portName, err)
	}
	return nil
}

// IsConnected returns true if the transport is connected
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil
}

// Type returns the transport type
func (*Transport) Type() mfrc522.BusType {
	return mfrc522.BusUART
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
