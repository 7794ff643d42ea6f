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

package gatt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-ble/ble"

	cardbridge "github.com/ZaparooProject/go-cardbridge"
)

// ErrUnsupportedPlatform is returned by Init where go-ble has no HCI backend
var ErrUnsupportedPlatform = errors.New("BLE peripheral not supported on this platform")

// ErrNotInitialized is returned when Advertise or Serve run before Init
var ErrNotInitialized = errors.New("BLE stack not initialized")

// advertiseSettle is how long Advertise waits for an immediate failure
const advertiseSettle = 200 * time.Millisecond

// device is the part of ble.Device the stack drives
type device interface {
	AddService(svc *ble.Service) error
	AdvertiseNameAndServices(ctx context.Context, name string, uuids ...ble.UUID) error
	Stop() error
}

// Stack implements cardbridge.Stack on a go-ble HCI device.
type Stack struct {
	dev       device
	newDevice func(opts ...ble.Option) (device, error)
	log       *slog.Logger
	advDone   chan struct{}
	servers   []*Server
	devOpts   []ble.Option
	srvOpts   []Option
	mu        sync.Mutex
}

// StackOption configures a Stack
type StackOption func(*Stack)

// WithStackLogger sets the stack's logger
func WithStackLogger(log *slog.Logger) StackOption {
	return func(s *Stack) {
		if log != nil {
			s.log = log
			s.srvOpts = append(s.srvOpts, WithLogger(log))
		}
	}
}

// WithDeviceID selects the HCI adapter, e.g. 0 for hci0
func WithDeviceID(id int) StackOption {
	return func(s *Stack) {
		s.devOpts = append(s.devOpts, ble.OptDeviceID(id))
	}
}

// WithServerOptions passes options to every Server the stack creates
func WithServerOptions(opts ...Option) StackOption {
	return func(s *Stack) {
		s.srvOpts = append(s.srvOpts, opts...)
	}
}

// NewStack creates a stack; nothing is opened until Init.
func NewStack(opts ...StackOption) *Stack {
	s := &Stack{
		newDevice: defaultDevice,
		log:       slog.Default().With("component", "gatt"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init opens the HCI device.
func (s *Stack) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dev != nil {
		return nil
	}
	dev, err := s.newDevice(s.devOpts...)
	if err != nil {
		return err
	}
	s.dev = dev
	return nil
}

// Advertise starts advertising the local name and service UUIDs until ctx
// is done. The controller sets the LE General Discoverable and BR/EDR Not
// Supported flags itself.
func (s *Stack) Advertise(ctx context.Context, adv cardbridge.Advertisement) error {
	s.mu.Lock()
	dev := s.dev
	s.mu.Unlock()
	if dev == nil {
		return ErrNotInitialized
	}

	uuids := make([]ble.UUID, 0, len(adv.ServiceUUIDs))
	for _, u := range adv.ServiceUUIDs {
		parsed, err := ble.Parse(u)
		if err != nil {
			return fmt.Errorf("invalid advertised UUID %q: %w", u, err)
		}
		uuids = append(uuids, parsed)
	}
	s.log.Debug("advertising", "name", adv.LocalName, "services", adv.ServiceUUIDs, "flags", fmt.Sprintf("0x%02X", adv.Flags))

	errc := make(chan error, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		errc <- dev.AdvertiseNameAndServices(ctx, adv.LocalName, uuids...)
	}()

	s.mu.Lock()
	s.advDone = done
	s.mu.Unlock()

	timer := time.NewTimer(advertiseSettle)
	defer timer.Stop()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("advertise: %w", err)
		}
		return nil
	case <-timer.C:
		return nil
	}
}

// Serve registers the bridge service on the device and returns its
// attribute server.
func (s *Stack) Serve(profile cardbridge.Profile, handler cardbridge.AttributeHandler) (cardbridge.AttributeServer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dev == nil {
		return nil, ErrNotInitialized
	}

	server, svc, err := NewServer(profile, handler, s.srvOpts...)
	if err != nil {
		return nil, err
	}
	if err := s.dev.AddService(svc); err != nil {
		return nil, fmt.Errorf("add service: %w", err)
	}
	s.servers = append(s.servers, server)
	return server, nil
}

// Close stops the device and releases any handler blocked on a server.
// Advertising ends when the context given to Advertise is done.
func (s *Stack) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, server := range s.servers {
		_ = server.Close()
	}
	s.servers = nil

	if s.dev == nil {
		return nil
	}
	err := s.dev.Stop()
	s.dev = nil
	if err != nil {
		return fmt.Errorf("stop device: %w", err)
	}
	return nil
}

// Advertising returns a channel closed once advertising has ended, or nil
// if Advertise never ran.
func (s *Stack) Advertising() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advDone
}

var _ cardbridge.Stack = (*Stack)(nil)
