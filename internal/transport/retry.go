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


// Package transport holds the resync and power-up wait policies shared by
// the byte-stream register buses.
package transport

import (
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-cardbridge/mfrc522"
)

// readyPoll is the gap between attempts while waiting for a chip to answer
const readyPoll = time.Millisecond

// Flusher drops bytes already buffered on a serial line.
type Flusher interface {
	ResetInputBuffer() error
}

// Resync describes how one register exchange recovers from a lost byte.
type Resync struct {
	Flush   Flusher
	Op      string
	Port    string
	Retries int
	Delay   time.Duration
}

// Exchange runs attempt until it succeeds, fails permanently, or runs out of
// retries. Before each retry the input buffer is flushed so a late reply
// from the failed attempt cannot be read as the answer to the next one.
//
// A retries-exhausted error wraps both mfrc522.ErrCommunicationFail and the
// last attempt's error.
func Exchange[T any](r Resync, attempt func() (T, error)) (T, error) {
	var zero T

	for n := 0; ; n++ {
		v, err := attempt()
		if err == nil {
			return v, nil
		}
		if !Resyncable(err) {
			return zero, err
		}
		if n >= r.Retries {
			return zero, &mfrc522.TransportError{
				Op:   r.Op,
				Port: r.Port,
				Err:  fmt.Errorf("%w after %d attempts: %w", mfrc522.ErrCommunicationFail, n+1, err),
				Type: mfrc522.ErrorTypeTransient,
			}
		}
		if r.Flush != nil {
			if ferr := r.Flush.ResetInputBuffer(); ferr != nil {
				return zero, fmt.Errorf("failed to flush %s: %w", r.Port, ferr)
			}
		}
		if r.Delay > 0 {
			time.Sleep(r.Delay)
		}
	}
}

// Resyncable reports whether a failed exchange is worth repeating: a read
// timeout or an address echo that does not match.
func Resyncable(err error) bool {
	return mfrc522.IsRetryable(err) || errors.Is(err, mfrc522.ErrUnexpectedEcho)
}

// WaitReady polls attempt until it succeeds or timeout passes. A module that
// is still powering up either stays silent or answers out of step, so
// resyncable errors and exhausted exchanges both count as not ready yet.
// Any other error ends the wait.
func WaitReady[T any](timeout time.Duration, attempt func() (T, error)) (T, error) {
	var zero T
	deadline := time.Now().Add(timeout)

	for {
		v, err := attempt()
		switch {
		case err == nil:
			return v, nil
		case !Resyncable(err) && !errors.Is(err, mfrc522.ErrCommunicationFail):
			return zero, err
		}
		if !time.Now().Before(deadline) {
			return zero, mfrc522.NewTimeoutError("wait ready", "unknown")
		}
		time.Sleep(readyPoll)
	}
}
