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
)

// Identify runs request-present then select and returns the card UID.
//
// A failed RequestA resolves to ErrNoCard, wrapping the reader's cause, and
// nothing else is sent to the card. A failed Select after a card answered
// returns a *ProtocolError.
func Identify(r Reader) (UID, error) {
	atqa, err := r.RequestA()
	if err != nil {
		return UID{}, fmt.Errorf("%w: %w", ErrNoCard, err)
	}

	uid, err := r.Select(atqa)
	if err != nil {
		return UID{}, &ProtocolError{Op: "select", Err: err}
	}
	return uid, nil
}

// WriteCard runs request-present, select, then writes data to block.
func WriteCard(r Reader, block uint8, data Block) error {
	if _, err := Identify(r); err != nil {
		return err
	}

	if err := r.WriteBlock(block, data); err != nil {
		return &WriteFailedError{Block: block, Err: err}
	}
	return nil
}

// Probe identifies the card in the field for diagnostics only. Failures are
// logged and reported as ok=false; an absent card is logged at debug level.
func Probe(r Reader, log *slog.Logger) (UID, bool) {
	uid, err := Identify(r)
	switch {
	case err == nil:
		log.Info("card present", "uid", uid.String(), "bytes", fmt.Sprintf("%v", uid.Bytes()))
		return uid, true
	case IsNoCard(err):
		log.Debug("no card in field", "cause", err)
	default:
		log.Warn("probe failed", "error", err)
	}
	return UID{}, false
}
