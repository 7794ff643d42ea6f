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

import (
	"errors"
	"sync"
)

// MFRC522 register addresses driven by the simulator
const (
	RegCommand    = 0x01
	RegComIrq     = 0x04
	RegDivIrq     = 0x05
	RegError      = 0x06
	RegFIFOData   = 0x09
	RegFIFOLevel  = 0x0A
	RegControl    = 0x0C
	RegBitFraming = 0x0D
	RegColl       = 0x0E
	RegTxControl  = 0x14
	RegCRCResultH = 0x21
	RegCRCResultL = 0x22
	RegVersion    = 0x37
)

const (
	cmdIdle       = 0x00
	cmdCalcCRC    = 0x03
	cmdTransceive = 0x0C
	cmdSoftReset  = 0x0F

	irqTimer = 0x01
	irqIdle  = 0x10
	irqRx    = 0x20
	irqCRC   = 0x04

	startSend = 0x80
	flushFIFO = 0x80
)

// ErrBusFault is returned by a VirtualChip with FailBus set
var ErrBusFault = errors.New("virtual bus fault")

// VirtualChip simulates the register interface of an MFRC522 closely enough
// to exercise a register-level driver: FIFO, command register, interrupt
// flags, the CRC coprocessor and transceive against a VirtualTag.
type VirtualChip struct {
	Tag *VirtualTag

	FailBus bool

	regs       [64]byte
	fifo       []byte
	version    byte
	mu         sync.Mutex
	reads      int
	writes     int
	transceive int
	closed     bool
}

// NewVirtualChip creates a chip reporting the given VersionReg value
func NewVirtualChip(version byte, tag *VirtualTag) *VirtualChip {
	c := &VirtualChip{Tag: tag, version: version}
	c.reset()
	return c
}

func (c *VirtualChip) reset() {
	c.regs = [64]byte{}
	c.regs[RegVersion] = c.version
	c.regs[RegFIFOLevel] = 0
	c.fifo = nil
}

// ReadRegister implements the register bus read
func (c *VirtualChip) ReadRegister(reg byte) (byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.FailBus {
		return 0, ErrBusFault
	}
	c.reads++

	switch reg {
	case RegFIFOData:
		if len(c.fifo) == 0 {
			return 0, nil
		}
		b := c.fifo[0]
		c.fifo = c.fifo[1:]
		return b, nil
	case RegFIFOLevel:
		return byte(len(c.fifo)), nil
	default:
		return c.regs[reg&0x3F], nil
	}
}

// WriteRegister implements the register bus write
func (c *VirtualChip) WriteRegister(reg, value byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.FailBus {
		return ErrBusFault
	}
	c.writes++

	switch reg {
	case RegFIFOData:
		c.fifo = append(c.fifo, value)
	case RegFIFOLevel:
		if value&flushFIFO != 0 {
			c.fifo = nil
		}
	case RegComIrq, RegDivIrq:
		// Set1 bit selects set or clear of the marked bits
		if value&0x80 != 0 {
			c.regs[reg] |= value & 0x7F
		} else {
			c.regs[reg] &^= value
		}
	case RegCommand:
		c.command(value & 0x0F)
	case RegBitFraming:
		c.regs[reg] = value
		if value&startSend != 0 && c.regs[RegCommand] == cmdTransceive {
			c.doTransceive(value & 0x07)
		}
	default:
		c.regs[reg&0x3F] = value
	}
	return nil
}

func (c *VirtualChip) command(cmd byte) {
	switch cmd {
	case cmdSoftReset:
		c.reset()
	case cmdCalcCRC:
		crc := CRCA(c.fifo)
		c.regs[RegCRCResultL] = crc[0]
		c.regs[RegCRCResultH] = crc[1]
		c.regs[RegDivIrq] |= irqCRC
		c.regs[RegCommand] = cmdIdle
	default:
		c.regs[RegCommand] = cmd
	}
}

func (c *VirtualChip) doTransceive(txLastBits byte) {
	c.transceive++
	frame := c.fifo
	c.fifo = nil
	c.regs[RegError] = 0

	antennaOn := c.regs[RegTxControl]&0x03 == 0x03
	if c.Tag == nil || !antennaOn {
		c.regs[RegComIrq] |= irqTimer
		return
	}

	resp, rxLastBits, ok := c.Tag.Respond(frame, txLastBits)
	if !ok {
		c.regs[RegComIrq] |= irqTimer
		return
	}
	c.fifo = append([]byte(nil), resp...)
	c.regs[RegControl] = rxLastBits & 0x07
	c.regs[RegComIrq] |= irqRx | irqIdle
}

// Transceives returns how many frames were sent to the field
func (c *VirtualChip) Transceives() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transceive
}

// Register returns a raw register value for assertions
func (c *VirtualChip) Register(reg byte) byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.regs[reg&0x3F]
}

// Close implements the register bus close
func (c *VirtualChip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Closed reports whether Close was called
func (c *VirtualChip) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// BusOps returns the number of register reads and writes served
func (c *VirtualChip) BusOps() (reads, writes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads, c.writes
}
