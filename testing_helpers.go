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
	"sync"
	"sync/atomic"
	"time"
)

// MockReader is an instrumented Reader. It records every call, counts calls
// that overlap another call in flight, and can hold each call for Delay to
// widen any race window.
type MockReader struct {
	VersionErr  error
	RequestErr  error
	SelectErr   error
	WriteErr    error
	Writes      []MockWrite
	UID         []byte
	ATQA        ATQA
	Delay       time.Duration
	VersionVal  byte
	mu          sync.Mutex
	active      atomic.Int32
	reentered   atomic.Int32
	versions    int
	requests    int
	selects     int
	writeBlocks int
}

// MockWrite is one recorded WriteBlock call.
type MockWrite struct {
	Data  Block
	Block uint8
}

// NewMockReader creates a reader with a card present and a known-good version.
func NewMockReader(uid []byte) *MockReader {
	return &MockReader{
		UID:        uid,
		ATQA:       ATQA{0x04, 0x00},
		VersionVal: 0x92,
	}
}

// RemoveCard makes every RequestA fail as if the field were empty.
func (m *MockReader) RemoveCard() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestErr = errors.New("timeout waiting for ATQA")
}

func (m *MockReader) enter() func() {
	if m.active.Add(1) > 1 {
		m.reentered.Add(1)
	}
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}
	return func() { m.active.Add(-1) }
}

// Version implements Reader
func (m *MockReader) Version() (byte, error) {
	defer m.enter()()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.versions++
	return m.VersionVal, m.VersionErr
}

// RequestA implements Reader
func (m *MockReader) RequestA() (ATQA, error) {
	defer m.enter()()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests++
	if m.RequestErr != nil {
		return ATQA{}, m.RequestErr
	}
	return m.ATQA, nil
}

// Select implements Reader
func (m *MockReader) Select(_ ATQA) (UID, error) {
	defer m.enter()()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selects++
	if m.SelectErr != nil {
		return UID{}, m.SelectErr
	}
	return NewUID(m.UID), nil
}

// WriteBlock implements Reader
func (m *MockReader) WriteBlock(block uint8, data Block) error {
	defer m.enter()()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeBlocks++
	m.Writes = append(m.Writes, MockWrite{Block: block, Data: data})
	return m.WriteErr
}

// Calls returns the number of Version, RequestA, Select and WriteBlock calls.
func (m *MockReader) Calls() (versions, requests, selects, writes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.versions, m.requests, m.selects, m.writeBlocks
}

// Reentered returns how many calls started while another was in flight.
func (m *MockReader) Reentered() int {
	return int(m.reentered.Load())
}

// MockStep scripts one MockServer.Work result.
type MockStep struct {
	Err    error
	Result WorkResult
	// OnWork runs inside Work, standing in for a read or write callback
	OnWork func(AttributeHandler)
}

// MockServer is a scripted AttributeServer. Steps are consumed one per Work
// call; once exhausted Work reports WorkDisconnected.
type MockServer struct {
	Handler       AttributeHandler
	Steps         []MockStep
	Notifications []*Notification
	CCCD          []byte
	mu            sync.Mutex
	works         int
	descriptorOK  bool
}

// NewMockServer creates a server with the given CCCD value and script.
func NewMockServer(cccd byte, steps ...MockStep) *MockServer {
	return &MockServer{CCCD: []byte{cccd}, Steps: steps, descriptorOK: true}
}

// NotifyHandle implements AttributeServer
func (*MockServer) NotifyHandle() uint16 {
	return 0x0004
}

// DescriptorValue implements AttributeServer
func (m *MockServer) DescriptorValue(handle uint16, buf []byte) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.descriptorOK || handle != 0x0004 {
		return 0, false
	}
	return copy(buf, m.CCCD), true
}

// SetCCCD changes the subscription flag seen on the next tick.
func (m *MockServer) SetCCCD(v byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CCCD = []byte{v}
}

// Work implements AttributeServer
func (m *MockServer) Work(_ context.Context, n *Notification) (WorkResult, error) {
	m.mu.Lock()
	m.works++
	m.Notifications = append(m.Notifications, n)
	if len(m.Steps) == 0 {
		m.mu.Unlock()
		return WorkDisconnected, nil
	}
	step := m.Steps[0]
	m.Steps = m.Steps[1:]
	handler := m.Handler
	m.mu.Unlock()

	if step.OnWork != nil && handler != nil {
		step.OnWork(handler)
	}
	return step.Result, step.Err
}

// Works returns the number of Work calls.
func (m *MockServer) Works() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.works
}

// MockStack records which stack operations ran.
type MockStack struct {
	Server     *MockServer
	InitErr    error
	Advertised []Advertisement
	Profiles   []Profile
	mu         sync.Mutex
	initCalls  int
	serveCalls int
}

// NewMockStack creates a stack serving the given mock server.
func NewMockStack(server *MockServer) *MockStack {
	return &MockStack{Server: server}
}

// Init implements Stack
func (m *MockStack) Init(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initCalls++
	return m.InitErr
}

// Advertise implements Stack
func (m *MockStack) Advertise(_ context.Context, adv Advertisement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Advertised = append(m.Advertised, adv)
	return nil
}

// Serve implements Stack
func (m *MockStack) Serve(profile Profile, handler AttributeHandler) (AttributeServer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.serveCalls++
	m.Profiles = append(m.Profiles, profile)
	m.Server.mu.Lock()
	m.Server.Handler = handler
	m.Server.mu.Unlock()
	return m.Server, nil
}

// Touched reports whether any stack operation ran.
func (m *MockStack) Touched() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initCalls > 0 || m.serveCalls > 0 || len(m.Advertised) > 0
}

// MockIndicator counts state changes.
type MockIndicator struct {
	mu      sync.Mutex
	on      bool
	toggles int
	sets    int
}

// Set implements Indicator
func (m *MockIndicator) Set(on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.on = on
	return nil
}

// Toggle implements Indicator
func (m *MockIndicator) Toggle() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toggles++
	m.on = !m.on
	return nil
}

// Toggles returns the number of Toggle calls.
func (m *MockIndicator) Toggles() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.toggles
}

// On returns the current state.
func (m *MockIndicator) On() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.on
}
