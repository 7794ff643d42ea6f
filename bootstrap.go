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
	"bytes"
	"context"
	"fmt"
	"log/slog"
)

// DefaultAcceptedVersions are the MFRC522 VersionReg values of known-good
// readers (chip versions 1.0 and 2.0).
var DefaultAcceptedVersions = []byte{0x91, 0x92}

// StartConfig wires the bridge together. Guard, Stack and Indicators are
// required; zero-valued Profile and Advertisement fall back to defaults.
type StartConfig struct {
	Guard            *Guard
	Stack            Stack
	Logger           *slog.Logger
	Indicators       Indicators
	Advertisement    Advertisement
	Profile          Profile
	AcceptedVersions []byte
	BridgeOptions    []BridgeOption
	LoopOptions      []LoopOption
}

// CheckReader reads the chip identification under the guard and verifies it
// against accepted.
func CheckReader(guard *Guard, accepted []byte) (byte, error) {
	if len(accepted) == 0 {
		accepted = DefaultAcceptedVersions
	}

	version, err := WithReader(guard, func(r Reader) result[byte] {
		v, err := r.Version()
		return result[byte]{value: v, err: err}
	}).unpack()
	if err != nil {
		return 0, &StartupFaultError{Err: fmt.Errorf("read version: %w", err)}
	}
	if !bytes.Contains(accepted, []byte{version}) {
		return version, &StartupFaultError{Version: version}
	}
	return version, nil
}

// Start verifies the reader and, only if it is recognised, brings up the
// wireless stack and runs the loop until the client disconnects.
//
// A reader that fails identification toggles both indicators once and
// returns a *StartupFaultError without touching the stack. Callers should
// then Idle: the device never serves an empty bridge.
func Start(ctx context.Context, cfg StartConfig) error {
	if cfg.Guard == nil || cfg.Stack == nil {
		return fmt.Errorf("start needs a guard and a stack: %w", ErrInvalidParameter)
	}
	log := cfg.Logger
	if log == nil {
		log = componentLogger("bridge")
	}

	if cfg.Indicators.Heartbeat != nil {
		if err := cfg.Indicators.Heartbeat.Set(true); err != nil {
			log.Warn("heartbeat indicator unavailable", "error", err)
		}
	}

	version, err := CheckReader(cfg.Guard, cfg.AcceptedVersions)
	if err != nil {
		log.Error("could not find reader", "version", fmt.Sprintf("0x%02X", version), "error", err)
		if toggleErr := cfg.Indicators.ToggleAll(); toggleErr != nil {
			log.Warn("fault indicator toggle failed", "error", toggleErr)
		}
		return err
	}
	log.Info("reader found", "version", fmt.Sprintf("0x%02X", version))

	server, err := startStack(ctx, cfg, log)
	if err != nil {
		return err
	}

	loop, err := NewLoop(cfg.Guard, server, cfg.Indicators, cfg.LoopOptions...)
	if err != nil {
		return fmt.Errorf("failed to create loop: %w", err)
	}
	return loop.Run(ctx)
}

func startStack(ctx context.Context, cfg StartConfig, log *slog.Logger) (AttributeServer, error) {
	adv := cfg.Advertisement
	if adv.LocalName == "" && len(adv.ServiceUUIDs) == 0 {
		adv = DefaultAdvertisement()
	}
	profile := cfg.Profile
	if profile.ServiceUUID == "" {
		profile = DefaultProfile()
	}

	err := cfg.Stack.Init(ctx)
	log.Info("init", "result", resultString(err))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize wireless stack: %w", err)
	}

	err = cfg.Stack.Advertise(ctx, adv)
	log.Info("advertise", "result", resultString(err))
	if err != nil {
		return nil, fmt.Errorf("failed to start advertising: %w", err)
	}
	log.Info("started advertising", "name", adv.LocalName)

	bridge := NewBridge(cfg.Guard, cfg.BridgeOptions...)
	server, err := cfg.Stack.Serve(profile, bridge)
	if err != nil {
		return nil, fmt.Errorf("failed to start attribute server: %w", err)
	}
	return server, nil
}

// Idle is the terminal state after a startup fault or a disconnect: nothing
// runs until ctx is done.
func Idle(ctx context.Context) {
	<-ctx.Done()
}

func resultString(err error) string {
	if err != nil {
		return "Err(" + err.Error() + ")"
	}
	return "Ok"
}
