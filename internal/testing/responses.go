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

package testing

import "github.com/ZaparooProject/go-cardbridge/internal/frame"

// ISO14443A command and response bytes used by the simulated card
const (
	PiccReqA   = frame.ReqA
	PiccWupA   = frame.WupA
	PiccHalt   = frame.HaltA
	PiccWrite  = frame.Write
	SelCL1     = frame.SelCL1
	SelCL2     = frame.SelCL2
	SelCL3     = frame.SelCL3
	CascadeTag = frame.CascadeTag
	SakCascade = frame.SAKCascadeBit
	Ack        = frame.Ack
	Nak        = 0x04
)

// Test UIDs for each cascade size
var (
	TestUID4  = []byte{0xDE, 0xAD, 0xBE, 0xEF}
	TestUID7  = []byte{0x04, 0xA3, 0x2B, 0x1C, 0x5D, 0x80, 0x01}
	TestUID10 = []byte{0x04, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99}
)

// BuildATQA creates a REQA answer encoding the UID size in bits 7-6
func BuildATQA(uidLen int) []byte {
	switch {
	case uidLen > 7:
		return []byte{0x84, 0x00}
	case uidLen > 4:
		return []byte{0x44, 0x00}
	default:
		return []byte{0x04, 0x00}
	}
}

// BuildAnticollisionResponse appends the BCC to four UID bytes
func BuildAnticollisionResponse(uid4 []byte) []byte {
	resp := make([]byte, 0, frame.UIDCLLength)
	resp = append(resp, uid4...)
	return append(resp, frame.BCC(uid4))
}

// CRCA computes the ISO14443A CRC, low byte first
func CRCA(data []byte) [2]byte {
	return frame.CRCA(data)
}

// AppendCRC returns a copy of data with its CRC_A appended
func AppendCRC(data []byte) []byte {
	return frame.AppendCRC(data)
}

// CheckCRC reports whether the last two bytes of frm are a valid CRC_A
func CheckCRC(frm []byte) bool {
	return frame.CheckCRC(frm)
}
