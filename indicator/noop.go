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

package indicator

// Noop implements Output but does nothing.
// Used when a line is not configured.
type Noop struct {
	on bool
}

// Set implements Output.Set.
func (n *Noop) Set(on bool) error {
	n.on = on
	return nil
}

// Toggle implements Output.Toggle.
func (n *Noop) Toggle() error {
	n.on = !n.on
	return nil
}

// Release implements Output.Release.
func (*Noop) Release() error {
	return nil
}
