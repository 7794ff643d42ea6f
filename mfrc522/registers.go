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

// MFRC522 register addresses (datasheet section 9)
const (
	regCommand    = 0x01
	regComIrq     = 0x04
	regDivIrq     = 0x05
	regError      = 0x06
	regFIFOData   = 0x09
	regFIFOLevel  = 0x0A
	regControl    = 0x0C
	regBitFraming = 0x0D
	regColl       = 0x0E
	regMode       = 0x11
	regTxControl  = 0x14
	regTxASK      = 0x15
	regCRCResultH = 0x21
	regCRCResultL = 0x22
	regTMode      = 0x2A
	regTPrescaler = 0x2B
	regTReloadH   = 0x2C
	regTReloadL   = 0x2D
	regVersion    = 0x37
)

// Chip commands written to CommandReg
const (
	cmdIdle       = 0x00
	cmdCalcCRC    = 0x03
	cmdTransceive = 0x0C
	cmdSoftReset  = 0x0F
)

// Register bits
const (
	powerDown = 0x10 // CommandReg: soft power-down, set until reset completes

	irqTimer = 0x01 // ComIrqReg
	irqIdle  = 0x10
	irqRx    = 0x20
	irqAll   = 0x7F
	irqCRC   = 0x04 // DivIrqReg

	errProtocol   = 0x01 // ErrorReg
	errParity     = 0x02
	errCRC        = 0x04
	errCollision  = 0x08
	errBufferOvfl = 0x10

	flushBuffer    = 0x80 // FIFOLevelReg
	startSend      = 0x80 // BitFramingReg
	rxLastBitsMask = 0x07 // ControlReg
	valuesAfterCol = 0x80 // CollReg
	antennaBits    = 0x03 // TxControlReg: Tx1RFEn | Tx2RFEn
)

// Timer and modulation settings applied by Init: a 25 ms card timeout
// (prescaler 0xA9 against a 13.56 MHz clock, reload 1000), forced 100% ASK
// and a CRC preset of 0x6363.
const (
	initTMode      = 0x80
	initTPrescaler = 0xA9
	initTReload    = 0x03E8
	initTxASK      = 0x40
	initMode       = 0x3D
)
