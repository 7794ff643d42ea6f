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

// DefaultNotificationPayload is pushed to a subscribed central every tick.
var DefaultNotificationPayload = []byte("Notification")

// cccdNotify is the notifications-enabled bit of a CCCD value.
const cccdNotify = 0x01

// Notification is one outgoing value push.
type Notification struct {
	Data   []byte
	Handle uint16
}

// DecideNotification returns the notification to push this tick, or nil when
// the client is not subscribed. Each call builds a fresh value; there is no
// memory of earlier ticks, so a subscribed client is notified every tick.
func DecideNotification(subscribed bool, handle uint16, payload []byte) *Notification {
	if !subscribed {
		return nil
	}
	data := make([]byte, len(payload))
	copy(data, payload)
	return &Notification{Handle: handle, Data: data}
}

// SubscriptionFromCCCD interprets a descriptor read: subscribed only when
// exactly one byte was read and its notify bit is set.
func SubscriptionFromCCCD(n int, ok bool, cccd []byte) bool {
	if !ok || n != 1 || len(cccd) < 1 {
		return false
	}
	return cccd[0]&cccdNotify != 0
}
