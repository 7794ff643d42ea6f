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
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Loop is the top-level driver. Each tick runs strictly in order:
// serve (one attribute server work step, with any nested read/write
// callbacks), poll (one background probe under the guard), then pace
// (a two-phase heartbeat blink).
type Loop struct {
	guard      *Guard
	server     AttributeServer
	indicators Indicators
	log        *slog.Logger
	payload    []byte
	pace       time.Duration
}

// NewLoop creates a loop driving server and sharing guard with its callbacks.
func NewLoop(guard *Guard, server AttributeServer, indicators Indicators, opts ...LoopOption) (*Loop, error) {
	if guard == nil || server == nil {
		return nil, fmt.Errorf("loop needs a guard and a server: %w", ErrInvalidParameter)
	}

	l := &Loop{
		guard:      guard,
		server:     server,
		indicators: indicators,
		log:        componentLogger("loop"),
		payload:    DefaultNotificationPayload,
		pace:       DefaultPaceInterval,
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Run ticks until the client disconnects, returning nil, or ctx is done,
// returning the context error.
func (l *Loop) Run(ctx context.Context) error {
	for {
		more, err := l.Tick(ctx)
		if err != nil {
			return err
		}
		if !more {
			l.log.Info("loop stopped", "reason", ErrDisconnected)
			return nil
		}
	}
}

// Tick runs one serve/poll/pace iteration. It returns false once the client
// has disconnected; poll and pace are skipped on that tick.
func (l *Loop) Tick(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("loop cancelled: %w", err)
	}

	if !l.serve(ctx) {
		return false, nil
	}

	l.poll()

	if err := l.blink(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// serve re-reads the subscription flag, decides on a notification and runs
// one work step. Transport errors are logged and never stop the loop.
func (l *Loop) serve(ctx context.Context) bool {
	handle := l.server.NotifyHandle()

	var cccd [1]byte
	n, ok := l.server.DescriptorValue(handle, cccd[:])
	notification := DecideNotification(SubscriptionFromCCCD(n, ok, cccd[:]), handle, l.payload)

	res, err := l.server.Work(ctx, notification)
	if err != nil {
		l.log.Error("work step failed", "error", &TransportError{Op: "work", Err: err})
		return true
	}

	l.log.Info("work step", "result", res.String(), "notified", notification != nil)
	return res != WorkDisconnected
}

func (l *Loop) poll() {
	l.guard.Do(func(r Reader) {
		Probe(r, l.log)
	})
}

// blink holds for the pace interval, toggles both indicators, holds again
// and toggles back.
func (l *Loop) blink(ctx context.Context) error {
	for i := 0; i < 2; i++ {
		if err := sleepContext(ctx, l.pace); err != nil {
			return fmt.Errorf("loop cancelled: %w", err)
		}
		if err := l.indicators.ToggleAll(); err != nil {
			l.log.Warn("heartbeat toggle failed", "error", err)
		}
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
