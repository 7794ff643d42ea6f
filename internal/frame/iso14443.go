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

// Package frame provides ISO14443A framing helpers shared by the MFRC522
// driver and its simulator
package frame

// PICC commands
const (
	ReqA  = 0x26 // REQA, sent as a 7-bit short frame
	WupA  = 0x52 // WUPA, sent as a 7-bit short frame
	HaltA = 0x50
	Write = 0xA0 // MIFARE WRITE, two-phase
)

// Select cascade level codes
const (
	SelCL1 = 0x93
	SelCL2 = 0x95
	SelCL3 = 0x97
)

// Anticollision and select framing
const (
	NVBAnticollision = 0x20 // NVB for "send me the whole UID CLn"
	NVBSelect        = 0x70 // NVB for a full 7-byte select frame
	CascadeTag       = 0x88 // first UID CLn byte when more levels follow
	SAKCascadeBit    = 0x04 // SAK bit meaning UID not complete
)

// MIFARE acknowledge values, carried in a 4-bit frame
const (
	Ack      = 0x0A
	AckMask  = 0x0F
	ShortBit = 7 // valid bits in the last byte of a REQA/WUPA frame
	AckBits  = 4 // valid bits in the last byte of an ACK/NAK
)

// Frame size limits
const (
	ATQALength  = 2
	UIDCLLength = 5 // 4 UID bytes + BCC
	SAKLength   = 3 // SAK + CRC_A
	CRCLength   = 2
)

// SelCodes lists the cascade level select codes in order.
var SelCodes = [3]byte{SelCL1, SelCL2, SelCL3}

// BCC returns the block check character of four UID CLn bytes.
func BCC(uid4 []byte) byte {
	var bcc byte
	for _, b := range uid4 {
		bcc ^= b
	}
	return bcc
}

// CRCA computes the ISO14443A CRC (initial value 0x6363), low byte first.
func CRCA(data []byte) [2]byte {
	crc := uint16(0x6363)
	for _, b := range data {
		b ^= byte(crc)
		b ^= b << 4
		crc = (crc >> 8) ^ (uint16(b) << 8) ^ (uint16(b) << 3) ^ (uint16(b) >> 4)
	}
	return [2]byte{byte(crc), byte(crc >> 8)}
}

// AppendCRC returns a copy of data with its CRC_A appended.
func AppendCRC(data []byte) []byte {
	crc := CRCA(data)
	out := make([]byte, 0, len(data)+CRCLength)
	out = append(out, data...)
	return append(out, crc[0], crc[1])
}

// CheckCRC reports whether the last two bytes of frm are a valid CRC_A
// over the bytes before them.
func CheckCRC(frm []byte) bool {
	if len(frm) < CRCLength+1 {
		return false
	}
	crc := CRCA(frm[:len(frm)-CRCLength])
	return crc[0] == frm[len(frm)-2] && crc[1] == frm[len(frm)-1]
}
