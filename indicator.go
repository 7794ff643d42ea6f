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

// Indicator is a binary visual output such as an LED.
type Indicator interface {
	Set(on bool) error
	Toggle() error
}

// Indicators holds the two outputs the bridge drives. During normal
// operation both blink in alternation; on a startup fault both toggle once.
type Indicators struct {
	Heartbeat Indicator
	Fault     Indicator
}

func (i Indicators) each(f func(Indicator) error) error {
	var firstErr error
	for _, ind := range []Indicator{i.Heartbeat, i.Fault} {
		if ind == nil {
			continue
		}
		if err := f(ind); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ToggleAll flips both outputs.
func (i Indicators) ToggleAll() error {
	return i.each(func(ind Indicator) error { return ind.Toggle() })
}
