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

// Package gatt serves the bridge characteristic over BLE with go-ble.
//
// go-ble calls attribute handlers on its own goroutines. The Server queues
// those requests instead, and Work runs at most one of them per call on the
// caller's goroutine, so the bridge callbacks only ever run inside the
// loop's serve step.
package gatt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-ble/ble"

	cardbridge "github.com/ZaparooProject/go-cardbridge"
)

// DefaultRequestWait is how long Work waits for a queued request.
const DefaultRequestWait = 20 * time.Millisecond

type requestKind int

const (
	readRequest requestKind = iota
	writeRequest
)

// pending is one request parked until Work serves it
type pending struct {
	req  ble.Request
	rsp  ble.ResponseWriter
	done chan struct{}
	kind requestKind
}

// Server is the attribute server for a single bridge characteristic.
type Server struct {
	handler   cardbridge.AttributeHandler
	log       *slog.Logger
	char      *ble.Characteristic
	conn      ble.Conn
	notifier  ble.Notifier
	requests  chan *pending
	closed    chan struct{}
	wait      time.Duration
	mu        sync.Mutex
	closeOnce sync.Once
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the server's logger
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithRequestWait sets how long Work blocks for a request; zero polls.
func WithRequestWait(d time.Duration) Option {
	return func(s *Server) {
		if d >= 0 {
			s.wait = d
		}
	}
}

// NewServer builds the service declared by profile with its handlers wired
// to this server. The service still has to be added to a device.
func NewServer(profile cardbridge.Profile, handler cardbridge.AttributeHandler, opts ...Option) (*Server, *ble.Service, error) {
	if handler == nil {
		return nil, nil, fmt.Errorf("gatt: nil attribute handler: %w", cardbridge.ErrInvalidParameter)
	}
	svcUUID, err := ble.Parse(profile.ServiceUUID)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid service UUID %q: %w", profile.ServiceUUID, err)
	}
	charUUID, err := ble.Parse(profile.CharacteristicUUID)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid characteristic UUID %q: %w", profile.CharacteristicUUID, err)
	}

	s := &Server{
		handler:  handler,
		log:      slog.Default().With("component", "gatt"),
		requests: make(chan *pending),
		closed:   make(chan struct{}),
		wait:     DefaultRequestWait,
	}
	for _, opt := range opts {
		opt(s)
	}

	svc := ble.NewService(svcUUID)
	s.char = svc.NewCharacteristic(charUUID)
	if profile.Read {
		s.char.HandleRead(ble.ReadHandlerFunc(s.handleRead))
	}
	if profile.Write {
		s.char.HandleWrite(ble.WriteHandlerFunc(s.handleWrite))
	}
	if profile.Notify {
		s.char.HandleNotify(ble.NotifyHandlerFunc(s.handleNotify))
	}
	return s, svc, nil
}

// NotifyHandle returns the handle of the characteristic's CCCD. go-ble
// creates the descriptor when the service is added to a device; before
// that the handle is 0.
func (s *Server) NotifyHandle() uint16 {
	if s.char.CCCD == nil {
		return 0
	}
	return s.char.CCCD.Handle
}

// DescriptorValue reads the low CCCD byte: 0x01 while a central holds a
// notification subscription, 0x00 otherwise.
func (s *Server) DescriptorValue(handle uint16, buf []byte) (int, bool) {
	if handle != s.NotifyHandle() {
		return 0, false
	}

	s.mu.Lock()
	subscribed := s.notifier != nil
	s.mu.Unlock()

	var v byte
	if subscribed {
		v = 0x01
	}
	return copy(buf, []byte{v}), true
}

// Work reports a disconnect or a closed server first. Otherwise it pushes n
// to a subscribed central, then serves at most one queued read or write.
func (s *Server) Work(ctx context.Context, n *cardbridge.Notification) (cardbridge.WorkResult, error) {
	select {
	case <-s.closed:
		return cardbridge.WorkDisconnected, nil
	default:
	}
	if s.disconnected() {
		return cardbridge.WorkDisconnected, nil
	}

	if n != nil {
		if err := s.push(n); err != nil {
			return cardbridge.WorkDone, err
		}
	}

	if s.wait == 0 {
		select {
		case p := <-s.requests:
			s.serve(p)
		default:
		}
		return cardbridge.WorkDone, nil
	}

	timer := time.NewTimer(s.wait)
	defer timer.Stop()

	select {
	case p := <-s.requests:
		s.serve(p)
	case <-ctx.Done():
		return cardbridge.WorkDone, ctx.Err()
	case <-timer.C:
	}
	return cardbridge.WorkDone, nil
}

// Close releases handlers still waiting on Work.
func (s *Server) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *Server) push(n *cardbridge.Notification) error {
	s.mu.Lock()
	notifier := s.notifier
	s.mu.Unlock()

	if notifier == nil {
		return nil
	}
	if _, err := notifier.Write(n.Data); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

func (s *Server) serve(p *pending) {
	defer close(p.done)

	switch p.kind {
	case readRequest:
		buf := make([]byte, p.rsp.Cap())
		n := s.handler.Read(p.req.Offset(), buf)
		if _, err := p.rsp.Write(buf[:n]); err != nil {
			s.log.Warn("read response failed", "error", err)
		}
	case writeRequest:
		s.handler.Write(p.req.Offset(), p.req.Data())
	}
}

func (s *Server) disconnected() bool {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return false
	}
	select {
	case <-conn.Disconnected():
		return true
	default:
		return false
	}
}

func (s *Server) observe(conn ble.Conn) {
	if conn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != conn {
		s.conn = conn
		s.log.Info("central connected", "addr", conn.RemoteAddr().String())
	}
}

// dispatch parks a request for Work and blocks the go-ble goroutine until
// it has been served.
func (s *Server) dispatch(p *pending) {
	s.observe(p.req.Conn())
	p.done = make(chan struct{})

	select {
	case s.requests <- p:
	case <-s.closed:
		p.rsp.SetStatus(ble.ErrUnlikely)
		return
	}

	select {
	case <-p.done:
	case <-s.closed:
	}
}

func (s *Server) handleRead(req ble.Request, rsp ble.ResponseWriter) {
	s.dispatch(&pending{kind: readRequest, req: req, rsp: rsp})
}

func (s *Server) handleWrite(req ble.Request, rsp ble.ResponseWriter) {
	if len(req.Data()) != cardbridge.BlockSize {
		s.log.Warn("write rejected", "length", len(req.Data()), "want", cardbridge.BlockSize)
		rsp.SetStatus(ble.ErrInvalAttrValueLen)
		return
	}
	s.dispatch(&pending{kind: writeRequest, req: req, rsp: rsp})
}

func (s *Server) handleNotify(req ble.Request, n ble.Notifier) {
	s.observe(req.Conn())

	s.mu.Lock()
	s.notifier = n
	s.mu.Unlock()
	s.log.Info("notifications enabled")

	select {
	case <-n.Context().Done():
	case <-s.closed:
	}

	s.mu.Lock()
	if s.notifier == n {
		s.notifier = nil
	}
	s.mu.Unlock()
	s.log.Info("notifications disabled")
}

var _ cardbridge.AttributeServer = (*Server)(nil)
