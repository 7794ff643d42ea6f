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

package indicator

import (
	"fmt"
	"sync"
)

// line is the part of a requested GPIO line the indicator drives.
type line interface {
	SetValue(value int) error
	Close() error
}

// GPIO implements Output on one GPIO line, active high.
type GPIO struct {
	line   line
	name   string
	mu     sync.Mutex
	on     bool
	closed bool
}

// NewGPIO requests offset on chip as an output, starting low.
func NewGPIO(chip string, offset int) (*GPIO, error) {
	l, err := requestLine(chip, offset)
	if err != nil {
		return nil, fmt.Errorf("request %s line %d: %w", chip, offset, err)
	}
	return newGPIO(l, fmt.Sprintf("%s:%d", chip, offset)), nil
}

func newGPIO(l line, name string) *GPIO {
	return &GPIO{line: l, name: name}
}

// Set implements Output.Set.
func (g *GPIO) Set(on bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.setLocked(on)
}

// Toggle implements Output.Toggle.
func (g *GPIO) Toggle() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.setLocked(!g.on)
}

// On reports the last value driven.
func (g *GPIO) On() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.on
}

// Release implements Output.Release.
func (g *GPIO) Release() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	offErr := g.setLocked(false)
	g.closed = true
	if err := g.line.Close(); err != nil {
		return fmt.Errorf("close %s: %w", g.name, err)
	}
	return offErr
}

func (g *GPIO) setLocked(on bool) error {
	if g.closed {
		return fmt.Errorf("set %s: line released", g.name)
	}
	value := 0
	if on {
		value = 1
	}
	if err := g.line.SetValue(value); err != nil {
		return fmt.Errorf("set %s: %w", g.name, err)
	}
	g.on = on
	return nil
}
