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

const hexChars = "0123456789ABCDEF"

const (
	// MaxUIDLen is the longest UID an ISO14443A card reports (triple size).
	MaxUIDLen = 10
	// BlockSize is the size of one written card block and of the GATT write payload.
	BlockSize = 16
)

// Reader is the card reader collaborator. The core depends on nothing else:
// bus wiring, timing and protocol framing belong to the implementation.
//
// A Reader is not safe for concurrent use; share it through a Guard.
type Reader interface {
	// Version returns the chip identification value.
	Version() (byte, error)

	// RequestA asks for a card in the field (REQA). An error means no card
	// answered, which is the common case.
	RequestA() (ATQA, error)

	// Select runs anticollision and selection for the card that answered
	// RequestA and returns its UID.
	Select(atqa ATQA) (UID, error)

	// WriteBlock writes one 16-byte block to the selected card.
	WriteBlock(block uint8, data Block) error
}

// ATQA is the card class returned by RequestA.
type ATQA [2]byte

// UIDSize returns the UID size announced in bits 7-6 of the ATQA
// (4, 7 or 10 bytes).
func (a ATQA) UIDSize() int {
	switch a[0] >> 6 {
	case 1:
		return 7
	case 2:
		return 10
	default:
		return 4
	}
}

// Block is one 16-byte card block.
type Block [BlockSize]byte

// UID represents a card unique identifier.
//
// UID is a fixed-size value type that can be freely copied and compared
// without aliasing the reader's buffers. Its String method returns
// colon-separated uppercase hex (e.g. "04:A3:2B:1C").
type UID struct {
	data [MaxUIDLen]byte
	len  byte
}

// NewUID creates a UID from a byte slice. Bytes beyond MaxUIDLen are dropped.
func NewUID(b []byte) UID {
	var u UID
	u.len = byte(copy(u.data[:], b))
	return u
}

// Bytes returns the UID bytes as a slice of a copy of the UID.
func (u UID) Bytes() []byte {
	return u.data[:u.len]
}

// Len returns the UID length in bytes.
func (u UID) Len() int {
	return int(u.len)
}

// IsZero reports whether the UID is empty.
func (u UID) IsZero() bool {
	return u.len == 0
}

// Equal reports whether two UIDs are identical in both length and content.
func (u UID) Equal(other UID) bool {
	if u.len != other.len {
		return false
	}
	for i := byte(0); i < u.len; i++ {
		if u.data[i] != other.data[i] {
			return false
		}
	}
	return true
}

// String returns the UID as colon-separated uppercase hex.
// Returns an empty string for a zero-length UID.
func (u UID) String() string {
	if u.len == 0 {
		return ""
	}

	buf := make([]byte, int(u.len)*3-1)
	for i := 0; i < int(u.len); i++ {
		if i > 0 {
			buf[i*3-1] = ':'
		}
		buf[i*3] = hexChars[u.data[i]>>4]
		buf[i*3+1] = hexChars[u.data[i]&0x0F]
	}
	return string(buf)
}
