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
	"context"
)

// Default GATT identity. The service and its single characteristic share one UUID.
const (
	DefaultServiceUUID        = "937312e0-2354-11eb-9f10-fbc30a62cf38"
	DefaultCharacteristicUUID = DefaultServiceUUID
	DefaultLocalName          = "cardbridge"
)

// WorkResult is the outcome of one attribute server work step.
type WorkResult int

const (
	// WorkDone means the step completed normally.
	WorkDone WorkResult = iota
	// WorkDisconnected means the client went away.
	WorkDisconnected
)

func (w WorkResult) String() string {
	switch w {
	case WorkDone:
		return "DidWork"
	case WorkDisconnected:
		return "GotDisconnected"
	default:
		return "Unknown"
	}
}

// AttributeServer is the wireless stack's attribute server as the loop sees it.
type AttributeServer interface {
	// NotifyHandle returns the CCCD handle of the bridge characteristic.
	NotifyHandle() uint16

	// DescriptorValue reads a descriptor value into buf. ok is false when
	// the handle is unknown.
	DescriptorValue(handle uint16, buf []byte) (n int, ok bool)

	// Work runs one unit of server work, pushing n first when it is non-nil.
	// Pending read and write callbacks run synchronously inside this call.
	Work(ctx context.Context, n *Notification) (WorkResult, error)
}

// Advertising flags
const (
	AdvFlagLEGeneralDiscoverable byte = 0x02
	AdvFlagBREDRNotSupported     byte = 0x04
)

// Advertisement is the one-time advertising configuration.
type Advertisement struct {
	LocalName    string
	ServiceUUIDs []string
	Flags        byte
}

// DefaultAdvertisement returns the advertising data for the bridge service.
func DefaultAdvertisement() Advertisement {
	return Advertisement{
		LocalName:    DefaultLocalName,
		ServiceUUIDs: []string{DefaultServiceUUID},
		Flags:        AdvFlagLEGeneralDiscoverable | AdvFlagBREDRNotSupported,
	}
}

// Profile declares the bridge service and characteristic.
type Profile struct {
	ServiceUUID        string
	CharacteristicUUID string
	Read               bool
	Write              bool
	Notify             bool
}

// DefaultProfile returns the single read/write/notify characteristic.
func DefaultProfile() Profile {
	return Profile{
		ServiceUUID:        DefaultServiceUUID,
		CharacteristicUUID: DefaultCharacteristicUUID,
		Read:               true,
		Write:              true,
		Notify:             true,
	}
}

// Stack is the wireless stack collaborator. It is only touched after the
// reader passed its startup check.
type Stack interface {
	Init(ctx context.Context) error
	Advertise(ctx context.Context, adv Advertisement) error
	Serve(profile Profile, handler AttributeHandler) (AttributeServer, error)
}
