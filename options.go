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
	"fmt"
	"log/slog"
	"time"
)

// DefaultPaceInterval is half of one heartbeat blink period.
const DefaultPaceInterval = time.Second

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithWriteBlock sets the card block written by the write callback.
func WithWriteBlock(block uint8) BridgeOption {
	return func(b *Bridge) {
		b.writeBlock = block
	}
}

// WithBridgeLogger sets the bridge's diagnostic logger.
func WithBridgeLogger(log *slog.Logger) BridgeOption {
	return func(b *Bridge) {
		if log != nil {
			b.log = log
		}
	}
}

// LoopOption configures a Loop.
type LoopOption func(*Loop) error

// WithPaceInterval sets the wait before and after each heartbeat toggle.
func WithPaceInterval(interval time.Duration) LoopOption {
	return func(l *Loop) error {
		if interval <= 0 {
			return fmt.Errorf("pace interval %v: %w", interval, ErrInvalidParameter)
		}
		l.pace = interval
		return nil
	}
}

// WithNotificationPayload replaces the payload pushed to subscribed clients.
func WithNotificationPayload(payload []byte) LoopOption {
	return func(l *Loop) error {
		l.payload = append([]byte(nil), payload...)
		return nil
	}
}

// WithLoopLogger sets the loop's diagnostic logger.
func WithLoopLogger(log *slog.Logger) LoopOption {
	return func(l *Loop) error {
		if log == nil {
			return fmt.Errorf("nil logger: %w", ErrInvalidParameter)
		}
		l.log = log
		return nil
	}
}
