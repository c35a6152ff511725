package header

import (
	"encoding/binary"

	"github.com/marmos91/iscsiprobe/internal/protocol/iscsi/types"
)

// Encode serializes the header to wire format (big-endian).
//
// DataSegmentLength is truncated to its low 24 bits.
func (h *BHS) Encode() []byte {
	buf := make([]byte, Size)

	buf[OffsetOpcode] = h.Opcode & types.OpcodeMask
	if h.Immediate {
		buf[OffsetOpcode] |= types.FlagImmediate
	}
	buf[OffsetFlags] = h.Flags
	buf[OffsetVersionMax] = h.VersionMax
	buf[OffsetVersionMin] = h.VersionMin
	buf[OffsetTotalAHSLength] = h.TotalAHSLength
	putUint24(buf[OffsetDataSegmentLength:], h.DataSegmentLength)
	copy(buf[OffsetLUN:OffsetLUN+LUNSize], h.LUN[:])
	binary.BigEndian.PutUint32(buf[OffsetITT:OffsetITT+4], h.ITT)
	copy(buf[OffsetSpecific:Size], h.Specific[:])

	return buf
}

// putUint24 writes the low 24 bits of v, most significant byte first.
func putUint24(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}
