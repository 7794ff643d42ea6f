package testing

import (
	"encoding/hex"
	"fmt"
)

// cardState follows the ISO14443-3 PICC states the bridge actually drives.
type cardState int

const (
	stateIdle cardState = iota
	stateReady
	stateActive
	stateHalt
)

// VirtualTag represents a simulated ISO14443A card in the field of a
// VirtualChip. It answers REQA, cascade anticollision/select and the
// two-phase MIFARE WRITE command.
type VirtualTag struct {
	Type    string
	UID     []byte
	Memory  [][]byte // 16-byte blocks
	Writes  []WriteRecord
	Present bool // Whether the tag is currently in the field

	// Fault injection
	FailSelect bool // never answer SELECT
	NakWrites  bool // answer WRITE with a NAK instead of ACK

	state        cardState
	level        int
	pendingBlock int
}

// WriteRecord captures one completed block write.
type WriteRecord struct {
	Data  []byte
	Block int
}

// NewVirtualMIFARE1K creates a virtual MIFARE Classic 1K card with a 4-byte UID
func NewVirtualMIFARE1K(uid []byte) *VirtualTag {
	if uid == nil {
		uid = TestUID4
	}
	return newVirtualTag("MIFARE1K", uid, 64)
}

// NewVirtualUltralight creates a virtual card with a 7-byte UID
func NewVirtualUltralight(uid []byte) *VirtualTag {
	if uid == nil {
		uid = TestUID7
	}
	return newVirtualTag("ULTRALIGHT", uid, 16)
}

// NewVirtualTriple creates a virtual card with a 10-byte (triple size) UID
func NewVirtualTriple(uid []byte) *VirtualTag {
	if uid == nil {
		uid = TestUID10
	}
	return newVirtualTag("TRIPLE", uid, 64)
}

func newVirtualTag(typ string, uid []byte, blocks int) *VirtualTag {
	tag := &VirtualTag{
		Type:         typ,
		UID:          append([]byte(nil), uid...),
		Memory:       make([][]byte, blocks),
		Present:      true,
		pendingBlock: -1,
	}
	for i := range tag.Memory {
		tag.Memory[i] = make([]byte, 16)
	}
	copy(tag.Memory[0], uid)
	return tag
}

// GetUIDString returns the UID as a hex string
func (v *VirtualTag) GetUIDString() string {
	return hex.EncodeToString(v.UID)
}

// ReadBlock reads a specific memory block
func (v *VirtualTag) ReadBlock(block int) ([]byte, error) {
	if block < 0 || block >= len(v.Memory) {
		return nil, fmt.Errorf("block %d out of range", block)
	}
	data := make([]byte, len(v.Memory[block]))
	copy(data, v.Memory[block])
	return data, nil
}

// Remove takes the tag out of the field
func (v *VirtualTag) Remove() {
	v.Present = false
	v.state = stateIdle
}

// Insert puts the tag back in the field
func (v *VirtualTag) Insert() {
	v.Present = true
	v.state = stateIdle
}

// cascadeLevels returns the number of anticollision levels the UID needs.
func (v *VirtualTag) cascadeLevels() int {
	switch {
	case len(v.UID) > 7:
		return 3
	case len(v.UID) > 4:
		return 2
	default:
		return 1
	}
}

// levelBytes returns the 4 UID bytes sent at the given cascade level (0-based),
// prefixed with the cascade tag when more levels follow.
func (v *VirtualTag) levelBytes(level int) []byte {
	levels := v.cascadeLevels()
	out := make([]byte, 0, 4)
	switch {
	case levels == 1:
		out = append(out, v.UID[0:4]...)
	case levels == 2 && level == 0:
		out = append(out, CascadeTag)
		out = append(out, v.UID[0:3]...)
	case levels == 2:
		out = append(out, v.UID[3:7]...)
	case level == 0:
		out = append(out, CascadeTag)
		out = append(out, v.UID[0:3]...)
	case level == 1:
		out = append(out, CascadeTag)
		out = append(out, v.UID[3:6]...)
	default:
		out = append(out, v.UID[6:10]...)
	}
	return out
}

// Respond handles one frame from the reader. ok is false when the card stays
// silent, which the chip reports as a timer timeout.
func (v *VirtualTag) Respond(frame []byte, txLastBits byte) (resp []byte, rxLastBits byte, ok bool) {
	if !v.Present || len(frame) == 0 {
		return nil, 0, false
	}

	if txLastBits == 7 && len(frame) == 1 {
		return v.respondRequest(frame[0])
	}

	switch {
	case v.pendingBlock >= 0:
		return v.respondWriteData(frame)
	case isSelCode(frame[0]) && len(frame) == 2 && frame[1] == 0x20:
		return v.respondAnticollision(frame[0])
	case isSelCode(frame[0]) && len(frame) == 9 && frame[1] == 0x70:
		return v.respondSelect(frame)
	case frame[0] == PiccWrite && len(frame) == 4:
		return v.respondWriteCommand(frame)
	case frame[0] == PiccHalt && len(frame) == 4:
		v.state = stateHalt
		return nil, 0, false
	}
	return nil, 0, false
}

func (v *VirtualTag) respondRequest(cmd byte) ([]byte, byte, bool) {
	if cmd == PiccReqA && v.state == stateHalt {
		return nil, 0, false
	}
	if cmd != PiccReqA && cmd != PiccWupA {
		return nil, 0, false
	}
	v.state = stateReady
	v.level = 0
	v.pendingBlock = -1
	return BuildATQA(len(v.UID)), 0, true
}

func (v *VirtualTag) respondAnticollision(sel byte) ([]byte, byte, bool) {
	if v.state != stateReady || selLevel(sel) != v.level {
		return nil, 0, false
	}
	return BuildAnticollisionResponse(v.levelBytes(v.level)), 0, true
}

func (v *VirtualTag) respondSelect(frame []byte) ([]byte, byte, bool) {
	if v.FailSelect || v.state != stateReady || selLevel(frame[0]) != v.level {
		return nil, 0, false
	}
	if !CheckCRC(frame) {
		return nil, 0, false
	}
	expected := BuildAnticollisionResponse(v.levelBytes(v.level))
	for i := range expected {
		if frame[2+i] != expected[i] {
			return nil, 0, false
		}
	}

	last := v.level == v.cascadeLevels()-1
	var sak byte = SakCascade
	if last {
		sak = 0x08
		v.state = stateActive
	} else {
		v.level++
	}
	return AppendCRC([]byte{sak}), 0, true
}

func (v *VirtualTag) respondWriteCommand(frame []byte) ([]byte, byte, bool) {
	if v.state != stateActive || !CheckCRC(frame) {
		return nil, 0, false
	}
	block := int(frame[1])
	if block >= len(v.Memory) || v.NakWrites {
		return []byte{Nak}, 4, true
	}
	v.pendingBlock = block
	return []byte{Ack}, 4, true
}

func (v *VirtualTag) respondWriteData(frame []byte) ([]byte, byte, bool) {
	block := v.pendingBlock
	v.pendingBlock = -1
	if len(frame) != 18 || !CheckCRC(frame) {
		return []byte{Nak}, 4, true
	}
	data := make([]byte, 16)
	copy(data, frame[:16])
	v.Memory[block] = data
	v.Writes = append(v.Writes, WriteRecord{Block: block, Data: data})
	return []byte{Ack}, 4, true
}

func isSelCode(b byte) bool {
	return b == SelCL1 || b == SelCL2 || b == SelCL3
}

func selLevel(b byte) int {
	switch b {
	case SelCL2:
		return 1
	case SelCL3:
		return 2
	default:
		return 0
	}
}
