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

package mfrc522

// Bus is the register interface to the chip. This can be implemented by
// SPI, I2C or UART backends.
//
// A Bus is not safe for concurrent use.
type Bus interface {
	// ReadRegister reads one register
	ReadRegister(reg byte) (byte, error)

	// WriteRegister writes one register
	WriteRegister(reg, value byte) error

	// Close releases the underlying port
	Close() error
}

// BusType names a Bus backend
type BusType string

const (
	// BusSPI represents SPI bus transport.
	BusSPI BusType = "spi"
	// BusI2C represents I2C bus transport.
	BusI2C BusType = "i2c"
	// BusUART represents UART/serial transport.
	BusUART BusType = "uart"
)

// ParseBusType validates a configured transport name.
func ParseBusType(name string) (BusType, error) {
	switch t := BusType(name); t {
	case BusSPI, BusI2C, BusUART:
		return t, nil
	default:
		return "", &TransportError{Op: "parse", Port: name, Err: ErrUnknownBus, Type: ErrorTypePermanent}
	}
}
