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
	"log/slog"
	"strconv"
)

// AttributeHandler is the callback pair the attribute server invokes for the
// bridge characteristic. Both calls are synchronous.
type AttributeHandler interface {
	Read(offset int, out []byte) int
	Write(offset int, data []byte)
}

// Bridge adapts GATT read and write callbacks to card sessions run under
// the Guard.
type Bridge struct {
	guard      *Guard
	log        *slog.Logger
	writeBlock uint8
}

// NewBridge creates the attribute callbacks for the shared guard.
func NewBridge(guard *Guard, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		guard: guard,
		log:   componentLogger("bridge"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Read identifies the card in the field and copies its UID into out,
// returning the number of bytes written. With no card, or when selection
// fails, it returns 0 and leaves out untouched. The offset is ignored: the
// characteristic does not support partial reads.
//
// An out buffer shorter than the UID is a contract violation and panics.
func (b *Bridge) Read(_ int, out []byte) int {
	uid, err := WithReader(b.guard, func(r Reader) result[UID] {
		uid, err := Identify(r)
		return result[UID]{value: uid, err: err}
	}).unpack()

	switch {
	case IsNoCard(err):
		b.log.Debug("read: no card present", "cause", err)
		return 0
	case err != nil:
		b.log.Warn("read: identify failed", "error", err)
		return 0
	}

	if len(out) < uid.Len() {
		panic(&ContractViolation{Op: "read", Want: ">=" + strconv.Itoa(uid.Len()), Got: len(out)})
	}
	return copy(out, uid.Bytes())
}

// Write stores data on the card in the field at the configured block.
// data must be exactly BlockSize bytes; anything else is a contract violation
// and panics before the reader is touched. Failures are logged only: the
// central gets no response payload either way.
func (b *Bridge) Write(_ int, data []byte) {
	if len(data) != BlockSize {
		panic(&ContractViolation{Op: "write", Want: strconv.Itoa(BlockSize), Got: len(data)})
	}

	var staged Block
	copy(staged[:], data)

	err := WithReader(b.guard, func(r Reader) error {
		return WriteCard(r, b.writeBlock, staged)
	})
	switch {
	case err == nil:
		b.log.Info("block written", "block", b.writeBlock)
	case IsNoCard(err):
		b.log.Info("write: no card present", "cause", err)
	default:
		b.log.Error("write failed", "block", b.writeBlock, "error", err)
	}
}

type result[T any] struct {
	value T
	err   error
}

func (r result[T]) unpack() (T, error) {
	return r.value, r.err
}

var _ AttributeHandler = (*Bridge)(nil)
