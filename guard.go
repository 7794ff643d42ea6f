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
	"sync"
	"sync/atomic"
)

// Guard owns the only Reader and hands it out one scope at a time.
//
// All access goes through WithReader or Do. The Reader passed to the scope
// function is a lease that stops working once the scope returns, so a caller
// cannot keep the handle past its critical section. There is no timeout: keep
// scopes to a single card session.
type Guard struct {
	reader Reader
	mu     sync.Mutex
}

// NewGuard wraps the reader. Create it once at startup and share the pointer.
func NewGuard(reader Reader) *Guard {
	return &Guard{reader: reader}
}

// WithReader runs f with exclusive access to the reader and returns its result.
// The lock is released on every exit path, including a panic inside f.
func WithReader[T any](g *Guard, f func(Reader) T) T {
	g.mu.Lock()
	defer g.mu.Unlock()

	lease := &leasedReader{reader: g.reader}
	defer lease.release()

	return f(lease)
}

// Do runs f with exclusive access to the reader.
func (g *Guard) Do(f func(Reader)) {
	WithReader(g, func(r Reader) struct{} {
		f(r)
		return struct{}{}
	})
}

// leasedReader forwards to the guarded reader until released.
type leasedReader struct {
	reader   Reader
	released atomic.Bool
}

func (l *leasedReader) release() {
	l.released.Store(true)
}

func (l *leasedReader) check() {
	if l.released.Load() {
		panic(ErrReaderReleased)
	}
}

func (l *leasedReader) Version() (byte, error) {
	l.check()
	return l.reader.Version()
}

func (l *leasedReader) RequestA() (ATQA, error) {
	l.check()
	return l.reader.RequestA()
}

func (l *leasedReader) Select(atqa ATQA) (UID, error) {
	l.check()
	return l.reader.Select(atqa)
}

func (l *leasedReader) WriteBlock(block uint8, data Block) error {
	l.check()
	return l.reader.WriteBlock(block, data)
}

var _ Reader = (*leasedReader)(nil)
