package header

import (
	"encoding/binary"
	"errors"

	"github.com/marmos91/iscsiprobe/internal/protocol/iscsi/types"
)

var (
	// ErrMessageTooShort indicates the message is too short to contain a BHS
	ErrMessageTooShort = errors.New("message too short for iSCSI BHS")
)

// Parse extracts a BHS from wire format (big-endian).
//
// Only the first Size bytes are inspected; anything after the header
// (AHS, data segment, trailing bytes) is ignored.
func Parse(data []byte) (*BHS, error) {
	if len(data) < Size {
		return nil, ErrMessageTooShort
	}

	h := &BHS{
		Opcode:            data[OffsetOpcode] & types.OpcodeMask,
		Immediate:         data[OffsetOpcode]&types.FlagImmediate != 0,
		Flags:             data[OffsetFlags],
		VersionMax:        data[OffsetVersionMax],
		VersionMin:        data[OffsetVersionMin],
		TotalAHSLength:    data[OffsetTotalAHSLength],
		DataSegmentLength: readUint24(data[OffsetDataSegmentLength:]),
		ITT:               binary.BigEndian.Uint32(data[OffsetITT : OffsetITT+4]),
	}

	copy(h.LUN[:], data[OffsetLUN:OffsetLUN+LUNSize])
	copy(h.Specific[:], data[OffsetSpecific:Size])

	return h, nil
}

// PeekOpcode returns the masked opcode of a message without parsing the
// rest of the header.
func PeekOpcode(data []byte) (uint8, bool) {
	if len(data) < 1 {
		return 0, false
	}
	return data[OffsetOpcode] & types.OpcodeMask, true
}

func readUint24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}
