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
	"errors"
	"fmt"
	"log/slog"
	"time"

	cardbridge "github.com/ZaparooProject/go-cardbridge"
)

// Device represents an MFRC522 reader on a register bus.
//
// Thread Safety: Device is NOT thread-safe. Share it through a
// cardbridge.Guard.
type Device struct {
	bus     Bus
	log     *slog.Logger
	timeout time.Duration
}

// New creates a device on bus. It does not touch the chip; call Init.
func New(bus Bus, opts ...Option) (*Device, error) {
	if bus == nil {
		return nil, errors.New("mfrc522: nil bus")
	}

	d := &Device{
		bus:     bus,
		log:     slog.Default().With("component", "mfrc522"),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Init soft-resets the chip, programs the card timeout timer and the
// modulation settings, and switches the antenna on.
func (d *Device) Init() error {
	if err := d.write(regCommand, cmdSoftReset); err != nil {
		return fmt.Errorf("soft reset: %w", err)
	}
	if err := d.waitReset(); err != nil {
		return err
	}

	settings := []struct {
		reg byte
		val byte
	}{
		{regTMode, initTMode},
		{regTPrescaler, initTPrescaler},
		{regTReloadH, byte(initTReload >> 8)},
		{regTReloadL, byte(initTReload & 0xFF)},
		{regTxASK, initTxASK},
		{regMode, initMode},
	}
	for _, s := range settings {
		if err := d.write(s.reg, s.val); err != nil {
			return fmt.Errorf("init register 0x%02X: %w", s.reg, err)
		}
	}

	if err := d.AntennaOn(); err != nil {
		return err
	}
	d.log.Debug("reader initialized")
	return nil
}

// waitReset polls CommandReg until the power-down bit set by a soft reset
// clears.
func (d *Device) waitReset() error {
	deadline := time.Now().Add(d.timeout)
	for {
		v, err := d.read(regCommand)
		if err != nil {
			return fmt.Errorf("soft reset: %w", err)
		}
		if v&powerDown == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("soft reset: %w", ErrChipTimeout)
		}
		time.Sleep(time.Millisecond)
	}
}

// AntennaOn enables both antenna drivers if they are not already on.
func (d *Device) AntennaOn() error {
	v, err := d.read(regTxControl)
	if err != nil {
		return fmt.Errorf("antenna on: %w", err)
	}
	if v&antennaBits == antennaBits {
		return nil
	}
	if err := d.write(regTxControl, v|antennaBits); err != nil {
		return fmt.Errorf("antenna on: %w", err)
	}
	return nil
}

// AntennaOff disables both antenna drivers.
func (d *Device) AntennaOff() error {
	v, err := d.read(regTxControl)
	if err != nil {
		return fmt.Errorf("antenna off: %w", err)
	}
	if err := d.write(regTxControl, v&^antennaBits); err != nil {
		return fmt.Errorf("antenna off: %w", err)
	}
	return nil
}

// Version returns VersionReg. 0x91 and 0x92 are chip versions 1.0 and 2.0;
// clones report other values.
func (d *Device) Version() (byte, error) {
	v, err := d.read(regVersion)
	if err != nil {
		return 0, fmt.Errorf("read version: %w", err)
	}
	return v, nil
}

// Close switches the antenna off and closes the bus.
func (d *Device) Close() error {
	if err := d.AntennaOff(); err != nil {
		d.log.Debug("antenna off failed during close", "error", err)
	}
	if err := d.bus.Close(); err != nil {
		return fmt.Errorf("close bus: %w", err)
	}
	return nil
}

func (d *Device) read(reg byte) (byte, error) {
	v, err := d.bus.ReadRegister(reg)
	if err != nil {
		return 0, fmt.Errorf("read register 0x%02X: %w", reg, err)
	}
	return v, nil
}

func (d *Device) write(reg, val byte) error {
	if err := d.bus.WriteRegister(reg, val); err != nil {
		return fmt.Errorf("write register 0x%02X: %w", reg, err)
	}
	return nil
}

func (d *Device) clearBits(reg, mask byte) error {
	v, err := d.read(reg)
	if err != nil {
		return err
	}
	return d.write(reg, v&^mask)
}

// Ensure Device implements cardbridge.Reader
var _ cardbridge.Reader = (*Device)(nil)
