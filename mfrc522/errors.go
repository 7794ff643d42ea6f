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

import (
	"errors"
	"fmt"
)

// Card-level errors. A timeout is what an empty field looks like.
var (
	ErrTimeout     = errors.New("card did not answer")
	ErrCollision   = errors.New("collision in the field")
	ErrCRC         = errors.New("CRC_A mismatch")
	ErrBCC         = errors.New("UID check byte mismatch")
	ErrNAK         = errors.New("card did not acknowledge")
	ErrProtocol    = errors.New("unexpected card response")
	ErrChipTimeout = errors.New("chip did not finish command")
)

// Transport-level errors
var (
	ErrUnknownBus        = errors.New("unknown bus type")
	ErrBusClosed         = errors.New("bus closed")
	ErrUnexpectedEcho    = errors.New("unexpected register address echo")
	ErrTransportTimeout  = errors.New("transport timeout")
	ErrCommunicationFail = errors.New("communication failed")
)

// ErrorType classifies transport failures for retry decisions
type ErrorType int

const (
	// ErrorTypePermanent will fail again on retry
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient may succeed on retry
	ErrorTypeTransient
	// ErrorTypeTimeout is a transient failure caused by a deadline
	ErrorTypeTimeout
)

// TransportError reports a register bus failure
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s on %s: %v", e.Op, e.Port, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTimeoutError creates a retryable timeout error
func NewTimeoutError(op, port string) *TransportError {
	return &TransportError{Op: op, Port: port, Err: ErrTransportTimeout, Type: ErrorTypeTimeout, Retryable: true}
}

// NewEchoError creates a retryable error for a UART address echo mismatch
func NewEchoError(op, port string, want, got byte) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       fmt.Errorf("%w: want 0x%02X, got 0x%02X", ErrUnexpectedEcho, want, got),
		Type:      ErrorTypeTransient,
		Retryable: true,
	}
}

// IsRetryable reports whether err is a transport error worth retrying
func IsRetryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}
	return false
}

// IsTimeout reports whether err means no card answered
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
