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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loopFixture struct {
	reader    *MockReader
	server    *MockServer
	heartbeat *MockIndicator
	fault     *MockIndicator
	loop      *Loop
	logs      *syncBuffer
}

func newLoopFixture(t *testing.T, cccd byte, steps ...MockStep) *loopFixture {
	t.Helper()

	f := &loopFixture{
		reader:    NewMockReader(testUID),
		server:    NewMockServer(cccd, steps...),
		heartbeat: &MockIndicator{},
		fault:     &MockIndicator{},
	}
	guard := NewGuard(f.reader)
	f.server.Handler = NewBridge(guard, WithBridgeLogger(discardLogger()))

	log, buf := newTestLogger()
	f.logs = buf
	loop, err := NewLoop(guard, f.server, Indicators{Heartbeat: f.heartbeat, Fault: f.fault},
		WithPaceInterval(time.Millisecond),
		WithLoopLogger(log))
	require.NoError(t, err)
	f.loop = loop
	return f
}

func TestNewLoop_Validation(t *testing.T) {
	t.Parallel()

	guard := NewGuard(NewMockReader(testUID))
	server := NewMockServer(0)

	_, err := NewLoop(nil, server, Indicators{})
	require.ErrorIs(t, err, ErrInvalidParameter)
	_, err = NewLoop(guard, nil, Indicators{})
	require.ErrorIs(t, err, ErrInvalidParameter)
	_, err = NewLoop(guard, server, Indicators{}, WithPaceInterval(0))
	require.ErrorIs(t, err, ErrInvalidParameter)
	_, err = NewLoop(guard, server, Indicators{}, WithLoopLogger(nil))
	require.ErrorIs(t, err, ErrInvalidParameter)
}

// Subscribed client, normal work step: the result is logged, the loop keeps
// going and the background probe runs.
func TestLoop_SubscribedWorkStep(t *testing.T) {
	t.Parallel()

	f := newLoopFixture(t, 0x01, MockStep{Result: WorkDone})

	more, err := f.loop.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, more)

	require.Len(t, f.server.Notifications, 1)
	require.NotNil(t, f.server.Notifications[0])
	assert.Equal(t, DefaultNotificationPayload, f.server.Notifications[0].Data)
	assert.Equal(t, f.server.NotifyHandle(), f.server.Notifications[0].Handle)

	_, requests, _, _ := f.reader.Calls()
	assert.Equal(t, 1, requests, "poll phase must run")
	assert.Contains(t, f.logs.String(), "result=DidWork")
	assert.Contains(t, f.logs.String(), "card present")

	assert.Equal(t, 2, f.heartbeat.Toggles())
	assert.Equal(t, 2, f.fault.Toggles())
}

func TestLoop_UnsubscribedSendsNothing(t *testing.T) {
	t.Parallel()

	f := newLoopFixture(t, 0x00, MockStep{Result: WorkDone}, MockStep{Result: WorkDone})

	_, err := f.loop.Tick(context.Background())
	require.NoError(t, err)
	f.server.SetCCCD(0x01)
	_, err = f.loop.Tick(context.Background())
	require.NoError(t, err)

	require.Len(t, f.server.Notifications, 2)
	assert.Nil(t, f.server.Notifications[0])
	assert.NotNil(t, f.server.Notifications[1], "the flag is re-read every tick")
}

// Disconnect ends the serve/poll cycle: no probe, no more blinking.
func TestLoop_Disconnect(t *testing.T) {
	t.Parallel()

	f := newLoopFixture(t, 0x01,
		MockStep{Result: WorkDone},
		MockStep{Result: WorkDisconnected},
		MockStep{Result: WorkDone})

	require.NoError(t, f.loop.Run(context.Background()))

	assert.Equal(t, 2, f.server.Works())
	_, requests, _, _ := f.reader.Calls()
	assert.Equal(t, 1, requests)
	assert.Equal(t, 2, f.heartbeat.Toggles(), "indicators stop toggling after disconnect")
	assert.Contains(t, f.logs.String(), "client disconnected")
}

func TestLoop_WorkErrorContinues(t *testing.T) {
	t.Parallel()

	f := newLoopFixture(t, 0x00,
		MockStep{Err: errors.New("HCI command timeout")},
		MockStep{Result: WorkDone})

	require.NoError(t, f.loop.Run(context.Background()))

	assert.Equal(t, 3, f.server.Works())
	_, requests, _, _ := f.reader.Calls()
	assert.Equal(t, 2, requests)
	assert.Contains(t, f.logs.String(), "HCI command timeout")
}

// Callbacks run inside the serve phase, before the probe of the same tick.
func TestLoop_ServeBeforePoll(t *testing.T) {
	t.Parallel()

	var seen int
	f := newLoopFixture(t, 0x00)
	f.server.Steps = []MockStep{{
		Result: WorkDone,
		OnWork: func(h AttributeHandler) {
			_, seen, _, _ = f.reader.Calls()
			out := make([]byte, MaxUIDLen)
			assert.Equal(t, len(testUID), h.Read(0, out))
		},
	}}

	more, err := f.loop.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, more)

	assert.Zero(t, seen, "probe ran before the work step")
	_, requests, _, _ := f.reader.Calls()
	assert.Equal(t, 2, requests)
	assert.Zero(t, f.reader.Reentered())
}

func TestLoop_Cancelled(t *testing.T) {
	t.Parallel()

	f := newLoopFixture(t, 0x00, MockStep{Result: WorkDone})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.loop.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.server.Works())
}

func TestLoop_CancelledDuringPace(t *testing.T) {
	t.Parallel()

	reader := NewMockReader(testUID)
	server := NewMockServer(0x00, MockStep{Result: WorkDone})
	loop, err := NewLoop(NewGuard(reader), server, Indicators{},
		WithPaceInterval(time.Hour),
		WithLoopLogger(discardLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = loop.Tick(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
