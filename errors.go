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
)

// Bridge errors
var (
	// ErrNoCard means no card answered RequestA. Expected, not a failure.
	ErrNoCard = errors.New("no card present")
	// ErrDisconnected means the central went away; the loop stops.
	ErrDisconnected = errors.New("client disconnected")
	// ErrReaderReleased is the panic value when a lease is used outside its scope.
	ErrReaderReleased = errors.New("reader used outside of its guard scope")
	// ErrInvalidParameter reports a bad option or configuration value.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// ProtocolError means a card was present but selection or the transaction
// failed. The session is aborted and the caller gets no result.
type ProtocolError struct {
	Err error
	Op  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error during %s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// WriteFailedError means a selected card rejected or lost a block write.
type WriteFailedError struct {
	Err   error
	Block uint8
}

func (e *WriteFailedError) Error() string {
	return fmt.Sprintf("write of block %d failed: %v", e.Block, e.Err)
}

func (e *WriteFailedError) Unwrap() error {
	return e.Err
}

// TransportError wraps a failed attribute server work step. It is logged
// and the loop continues.
type TransportError struct {
	Err error
	Op  string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StartupFaultError means the reader did not identify as a known chip.
// The wireless stack is never started.
type StartupFaultError struct {
	Err     error
	Version byte
}

func (e *StartupFaultError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("could not find reader: %v", e.Err)
	}
	return fmt.Sprintf("could not find reader: version 0x%02X", e.Version)
}

func (e *StartupFaultError) Unwrap() error {
	return e.Err
}

// ContractViolation is the panic value raised when the attribute layer hands
// the bridge a buffer whose size disagrees with the characteristic's fixed
// sizes. It signals a programming error, never a runtime condition.
type ContractViolation struct {
	Op   string
	Want string
	Got  int
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("contract violation in %s: want %s bytes, got %d", e.Op, e.Want, e.Got)
}

// IsNoCard reports whether err means no card was in the field.
func IsNoCard(err error) bool {
	return errors.Is(err, ErrNoCard)
}

// IsProtocolError reports whether err is a ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
