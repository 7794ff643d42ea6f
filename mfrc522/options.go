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
	"fmt"
	"log/slog"
	"time"
)

// DefaultTimeout bounds how long the host waits on the chip for one command.
// The chip's own timer ends a card exchange after about 25 ms.
const DefaultTimeout = 100 * time.Millisecond

// Option is a functional option for configuring a Device
type Option func(*Device) error

// WithTimeout sets the host-side deadline for one chip command
func WithTimeout(timeout time.Duration) Option {
	return func(d *Device) error {
		if timeout <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", timeout)
		}
		d.timeout = timeout
		return nil
	}
}

// WithLogger sets the device's debug logger
func WithLogger(log *slog.Logger) Option {
	return func(d *Device) error {
		if log != nil {
			d.log = log
		}
		return nil
	}
}
