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

// Package indicator drives the heartbeat and fault LEDs.
package indicator

import (
	"errors"
	"fmt"

	cardbridge "github.com/ZaparooProject/go-cardbridge"
)

// ErrUnsupportedPlatform is returned where GPIO character devices do not exist.
var ErrUnsupportedPlatform = errors.New("gpio character devices are not supported on this platform")

// Output is an indicator that holds a hardware resource.
type Output interface {
	cardbridge.Indicator
	// Release turns the output off and frees the line.
	Release() error
}

// Pair is the heartbeat and fault output pair used by the bridge.
type Pair struct {
	Heartbeat Output
	Fault     Output
}

// New requests the configured lines. An unset line becomes a Noop.
func New(cfg cardbridge.IndicatorConfig) (*Pair, error) {
	heartbeat, err := newOutput(cfg.Chip, cfg.HeartbeatLine)
	if err != nil {
		return nil, fmt.Errorf("heartbeat indicator: %w", err)
	}
	fault, err := newOutput(cfg.Chip, cfg.FaultLine)
	if err != nil {
		_ = heartbeat.Release()
		return nil, fmt.Errorf("fault indicator: %w", err)
	}
	return &Pair{Heartbeat: heartbeat, Fault: fault}, nil
}

func newOutput(chip string, line *int) (Output, error) {
	if line == nil {
		return &Noop{}, nil
	}
	return NewGPIO(chip, *line)
}

// Indicators returns the pair in the form the bridge loop drives.
func (p *Pair) Indicators() cardbridge.Indicators {
	return cardbridge.Indicators{Heartbeat: p.Heartbeat, Fault: p.Fault}
}

// Release frees both outputs.
func (p *Pair) Release() error {
	var lastErr error
	for _, out := range []Output{p.Heartbeat, p.Fault} {
		if out == nil {
			continue
		}
		if err := out.Release(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
