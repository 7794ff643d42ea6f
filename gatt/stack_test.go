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
	"sync"
	"testing"
	"time"

	"github.com/go-ble/ble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cardbridge "github.com/ZaparooProject/go-cardbridge"
)

type fakeDevice struct {
	advErr   error
	mu       sync.Mutex
	services []*ble.Service
	names    []string
	uuids    [][]ble.UUID
	stopped  bool
}

func (d *fakeDevice) AddService(svc *ble.Service) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.services = append(d.services, svc)
	return nil
}

func (d *fakeDevice) AdvertiseNameAndServices(ctx context.Context, name string, uuids ...ble.UUID) error {
	d.mu.Lock()
	d.names = append(d.names, name)
	d.uuids = append(d.uuids, uuids)
	err := d.advErr
	d.mu.Unlock()

	if err != nil {
		return err
	}
	<-ctx.Done()
	return ctx.Err()
}

func (d *fakeDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	return nil
}

func newFakeStack(dev *fakeDevice) *Stack {
	s := NewStack()
	s.newDevice = func(...ble.Option) (device, error) { return dev, nil }
	return s
}

func TestStack_Lifecycle(t *testing.T) {
	t.Parallel()

	dev := &fakeDevice{}
	stack := newFakeStack(dev)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, stack.Init(ctx))
	require.NoError(t, stack.Advertise(ctx, cardbridge.DefaultAdvertisement()))

	server, err := stack.Serve(cardbridge.DefaultProfile(), &recordingHandler{})
	require.NoError(t, err)
	require.NotNil(t, server)

	dev.mu.Lock()
	assert.Equal(t, []string{cardbridge.DefaultLocalName}, dev.names)
	require.Len(t, dev.uuids, 1)
	assert.Equal(t, ble.MustParse(cardbridge.DefaultServiceUUID).String(), dev.uuids[0][0].String())
	assert.Len(t, dev.services, 1)
	dev.mu.Unlock()

	cancel()
	select {
	case <-stack.Advertising():
	case <-time.After(time.Second):
		t.Fatal("advertising did not stop with its context")
	}

	require.NoError(t, stack.Close())
	assert.True(t, dev.stopped)
}

func TestStack_NotInitialized(t *testing.T) {
	t.Parallel()

	stack := newFakeStack(&fakeDevice{})
	require.ErrorIs(t, stack.Advertise(context.Background(), cardbridge.DefaultAdvertisement()), ErrNotInitialized)

	_, err := stack.Serve(cardbridge.DefaultProfile(), &recordingHandler{})
	require.ErrorIs(t, err, ErrNotInitialized)
	require.NoError(t, stack.Close())
}

func TestStack_AdvertiseFailure(t *testing.T) {
	t.Parallel()

	advErr := errors.New("command disallowed")
	stack := newFakeStack(&fakeDevice{advErr: advErr})
	require.NoError(t, stack.Init(context.Background()))

	err := stack.Advertise(context.Background(), cardbridge.DefaultAdvertisement())
	require.ErrorIs(t, err, advErr)

	err = stack.Advertise(context.Background(), cardbridge.Advertisement{ServiceUUIDs: []string{"bogus"}})
	require.Error(t, err)
}

func TestStack_InitFailure(t *testing.T) {
	t.Parallel()

	hciErr := errors.New("no adapter")
	stack := NewStack()
	stack.newDevice = func(...ble.Option) (device, error) { return nil, hciErr }

	require.ErrorIs(t, stack.Init(context.Background()), hciErr)
}
