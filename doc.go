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

/*
Package cardbridge bridges an MFRC522 contactless card reader to a Bluetooth
Low Energy GATT characteristic.

A central reads the characteristic to get the UID of the card in the field,
and writes 16 bytes to it to store one block on that card. The peripheral also
pushes a fixed notification every loop tick while the central is subscribed.

The reader is a single resource used from three places: the read callback,
the write callback and a background probe run by the loop. A Guard owns it
and hands it out one scope at a time:

	guard := cardbridge.NewGuard(device)

	uid, err := cardbridge.WithReader(guard, func(r cardbridge.Reader) result {
	    ...
	})

The Reader passed to a scope stops working when the scope returns.

Startup:

Start checks the chip version under the guard first. Only 0x91 and 0x92
(MFRC522 v1.0 and v2.0) are accepted by default. Any other value, or a failed
read, toggles both indicators once and returns a *StartupFaultError without
touching the wireless stack:

	err := cardbridge.Start(ctx, cardbridge.StartConfig{
	    Guard:      guard,
	    Stack:      gatt.NewStack(),
	    Indicators: leds.Indicators(),
	})
	var fault *cardbridge.StartupFaultError
	if errors.As(err, &fault) {
	    cardbridge.Idle(ctx)
	}

Loop:

Each tick serves one unit of attribute server work, with any read or write
callbacks running inside it, then probes the card field for the log, then
blinks the heartbeat pair. A disconnect ends the loop.

Transport Selection:

The reader can sit on any of three buses:

  - SPI: the usual wiring on single-board computers
  - I2C: address 0x28 by default
  - UART: for modules behind a USB serial bridge

Leave the transport empty in the config to auto-detect it.

Error Handling:

An empty field is not a failure; sessions report it as ErrNoCard:

	if cardbridge.IsNoCard(err) {
	    // nothing to read
	}
*/
package cardbridge
