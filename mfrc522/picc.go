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

import (
	"fmt"
	"time"

	cardbridge "github.com/ZaparooProject/go-cardbridge"
	"github.com/ZaparooProject/go-cardbridge/internal/frame"
)

// RequestA sends REQA and returns the ATQA. ErrTimeout means no idle card
// is in the field.
func (d *Device) RequestA() (cardbridge.ATQA, error) {
	if err := d.clearBits(regColl, valuesAfterCol); err != nil {
		return cardbridge.ATQA{}, err
	}

	resp, rxBits, err := d.transceive([]byte{frame.ReqA}, frame.ShortBit)
	if err != nil {
		return cardbridge.ATQA{}, fmt.Errorf("REQA: %w", err)
	}
	if len(resp) != frame.ATQALength || rxBits != 0 {
		return cardbridge.ATQA{}, fmt.Errorf("REQA: %d bytes, %d bits: %w", len(resp), rxBits, ErrProtocol)
	}
	return cardbridge.ATQA{resp[0], resp[1]}, nil
}

// Select runs anticollision and selection through up to three cascade
// levels and returns the complete UID.
func (d *Device) Select(atqa cardbridge.ATQA) (cardbridge.UID, error) {
	uid := make([]byte, 0, cardbridge.MaxUIDLen)

	for level, sel := range frame.SelCodes {
		cl, err := d.anticollision(sel)
		if err != nil {
			return cardbridge.UID{}, fmt.Errorf("anticollision CL%d: %w", level+1, err)
		}

		sak, err := d.selectLevel(sel, cl)
		if err != nil {
			return cardbridge.UID{}, fmt.Errorf("select CL%d: %w", level+1, err)
		}

		if sak&frame.SAKCascadeBit == 0 {
			uid = append(uid, cl[:4]...)
			if len(uid) != atqa.UIDSize() {
				d.log.Debug("UID size differs from ATQA", "atqa", atqa.UIDSize(), "uid", len(uid))
			}
			return cardbridge.NewUID(uid), nil
		}

		if cl[0] != frame.CascadeTag {
			return cardbridge.UID{}, fmt.Errorf("select CL%d: cascade without cascade tag: %w", level+1, ErrProtocol)
		}
		uid = append(uid, cl[1:4]...)
	}

	return cardbridge.UID{}, fmt.Errorf("select: UID incomplete after CL3: %w", ErrProtocol)
}

// anticollision asks for the full UID CLn of the given level and checks
// its BCC.
func (d *Device) anticollision(sel byte) ([]byte, error) {
	resp, _, err := d.transceive([]byte{sel, frame.NVBAnticollision}, 0)
	if err != nil {
		return nil, err
	}
	if len(resp) != frame.UIDCLLength {
		return nil, fmt.Errorf("%d bytes: %w", len(resp), ErrProtocol)
	}
	if frame.BCC(resp[:4]) != resp[4] {
		return nil, ErrBCC
	}
	return resp, nil
}

// selectLevel selects the card at one cascade level and returns its SAK.
func (d *Device) selectLevel(sel byte, cl []byte) (byte, error) {
	cmd := make([]byte, 0, 2+frame.UIDCLLength+frame.CRCLength)
	cmd = append(cmd, sel, frame.NVBSelect)
	cmd = append(cmd, cl...)
	cmd, err := d.appendCRC(cmd)
	if err != nil {
		return 0, err
	}

	resp, _, err := d.transceive(cmd, 0)
	if err != nil {
		return 0, err
	}
	if len(resp) != frame.SAKLength {
		return 0, fmt.Errorf("SAK %d bytes: %w", len(resp), ErrProtocol)
	}
	if !frame.CheckCRC(resp) {
		return 0, ErrCRC
	}
	return resp[0], nil
}

// WriteBlock writes 16 bytes to block of the selected card using the
// two-phase MIFARE WRITE: command, ACK, data, ACK.
func (d *Device) WriteBlock(block uint8, data cardbridge.Block) error {
	cmd, err := d.appendCRC([]byte{frame.Write, block})
	if err != nil {
		return fmt.Errorf("write command: %w", err)
	}
	if err := d.transceiveAck(cmd); err != nil {
		return fmt.Errorf("write command block %d: %w", block, err)
	}

	payload, err := d.appendCRC(data[:])
	if err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	if err := d.transceiveAck(payload); err != nil {
		return fmt.Errorf("write data block %d: %w", block, err)
	}
	return nil
}

func (d *Device) transceiveAck(send []byte) error {
	resp, rxBits, err := d.transceive(send, 0)
	if err != nil {
		return err
	}
	if len(resp) != 1 || rxBits != frame.AckBits || resp[0]&frame.AckMask != frame.Ack {
		return ErrNAK
	}
	return nil
}

// appendCRC has the chip's coprocessor compute CRC_A over data.
func (d *Device) appendCRC(data []byte) ([]byte, error) {
	if err := d.write(regCommand, cmdIdle); err != nil {
		return nil, err
	}
	if err := d.write(regDivIrq, irqCRC); err != nil {
		return nil, err
	}
	if err := d.write(regFIFOLevel, flushBuffer); err != nil {
		return nil, err
	}
	for _, b := range data {
		if err := d.write(regFIFOData, b); err != nil {
			return nil, err
		}
	}
	if err := d.write(regCommand, cmdCalcCRC); err != nil {
		return nil, err
	}

	if _, err := d.waitIRQ(regDivIrq, irqCRC, 0); err != nil {
		return nil, fmt.Errorf("calc CRC: %w", err)
	}
	if err := d.write(regCommand, cmdIdle); err != nil {
		return nil, err
	}

	lo, err := d.read(regCRCResultL)
	if err != nil {
		return nil, err
	}
	hi, err := d.read(regCRCResultH)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(data)+frame.CRCLength)
	out = append(out, data...)
	return append(out, lo, hi), nil
}

// transceive sends a frame to the card and returns its answer. txLastBits
// is the number of valid bits in the last byte sent (0 means all eight);
// rxLastBits is the same for the last byte received.
func (d *Device) transceive(send []byte, txLastBits byte) (resp []byte, rxLastBits byte, err error) {
	if err := d.write(regCommand, cmdIdle); err != nil {
		return nil, 0, err
	}
	if err := d.write(regComIrq, irqAll); err != nil {
		return nil, 0, err
	}
	if err := d.write(regFIFOLevel, flushBuffer); err != nil {
		return nil, 0, err
	}
	for _, b := range send {
		if err := d.write(regFIFOData, b); err != nil {
			return nil, 0, err
		}
	}
	if err := d.write(regCommand, cmdTransceive); err != nil {
		return nil, 0, err
	}
	if err := d.write(regBitFraming, startSend|txLastBits&rxLastBitsMask); err != nil {
		return nil, 0, err
	}

	_, waitErr := d.waitIRQ(regComIrq, irqRx|irqIdle, irqTimer)
	if err := d.clearBits(regBitFraming, startSend); err != nil {
		return nil, 0, err
	}
	if waitErr != nil {
		return nil, 0, waitErr
	}

	if err := d.checkError(); err != nil {
		return nil, 0, err
	}

	n, err := d.read(regFIFOLevel)
	if err != nil {
		return nil, 0, err
	}
	ctrl, err := d.read(regControl)
	if err != nil {
		return nil, 0, err
	}

	resp = make([]byte, n)
	for i := range resp {
		if resp[i], err = d.read(regFIFOData); err != nil {
			return nil, 0, err
		}
	}
	return resp, ctrl & rxLastBitsMask, nil
}

func (d *Device) checkError() error {
	e, err := d.read(regError)
	if err != nil {
		return err
	}
	switch {
	case e&errCollision != 0:
		return ErrCollision
	case e&errCRC != 0:
		return ErrCRC
	case e&(errBufferOvfl|errParity|errProtocol) != 0:
		return fmt.Errorf("error register 0x%02X: %w", e, ErrProtocol)
	}
	return nil
}

// waitIRQ polls reg until any bit in done is set. A bit in fail means the
// chip's timer expired with no answer from the card. The host deadline
// catches a chip that never finishes.
func (d *Device) waitIRQ(reg, done, fail byte) (byte, error) {
	deadline := time.Now().Add(d.timeout)
	for {
		v, err := d.read(reg)
		if err != nil {
			return 0, err
		}
		if v&done != 0 {
			return v, nil
		}
		if v&fail != 0 {
			return v, ErrTimeout
		}
		if time.Now().After(deadline) {
			return v, ErrChipTimeout
		}
	}
}
