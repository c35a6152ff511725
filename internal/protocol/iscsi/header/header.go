// Package header provides iSCSI Basic Header Segment (BHS) parsing and encoding.
//
// Every iSCSI PDU starts with a 48-byte BHS. The first 20 bytes share one
// layout across all opcodes; bytes 20-47 are opcode-specific and are carried
// here as an opaque Specific block that the per-opcode codecs fill in.
//
// # Header Structure (48 bytes)
//
//	┌─────────────────────────────────────────────────────────────────────┐
//	│ Offset │ Size │ Field             │ Description                     │
//	├────────┼──────┼───────────────────┼─────────────────────────────────┤
//	│   0    │  1   │ Opcode            │ bit 6 = Immediate, bits 0-5 op  │
//	│   1    │  1   │ Flags             │ Opcode-specific flags           │
//	│   2    │  2   │ (opcode-specific) │ Version fields for login        │
//	│   4    │  1   │ TotalAHSLength    │ In 4-byte words                 │
//	│   5    │  3   │ DataSegmentLength │ Big-endian, 24 bits             │
//	│   8    │  8   │ LUN               │ ISID + TSIH for login PDUs      │
//	│  16    │  4   │ ITT               │ Initiator Task Tag              │
//	│  20    │ 28   │ Specific          │ Opcode-specific fields          │
//	└────────┴──────┴───────────────────┴─────────────────────────────────┘
//
// All multi-byte fields are big-endian (network byte order).
//
// Reference: RFC 3720 Section 10.2.1
package header

// Size is the fixed size of the iSCSI BHS.
const Size = 48

// Field offsets within the BHS.
const (
	OffsetOpcode            = 0
	OffsetFlags             = 1
	OffsetVersionMax        = 2
	OffsetVersionMin        = 3
	OffsetTotalAHSLength    = 4
	OffsetDataSegmentLength = 5
	OffsetLUN               = 8
	OffsetITT               = 16
	OffsetSpecific          = 20

	// DataSegmentLengthSize is the width of the length field in bytes.
	DataSegmentLengthSize = 3

	// LUNSize is the width of the LUN field in bytes.
	LUNSize = 8

	// SpecificSize is the width of the opcode-specific block.
	SpecificSize = Size - OffsetSpecific

	// MaxDataSegmentLength is the largest value the 24-bit field can carry.
	MaxDataSegmentLength = 1<<24 - 1
)

// BHS represents an iSCSI Basic Header Segment.
type BHS struct {
	// Opcode is the 6-bit operation code (byte 0 masked with 0x3F).
	Opcode uint8

	// Immediate is bit 6 of byte 0.
	Immediate bool

	// Flags is byte 1. Its meaning depends on the opcode.
	Flags uint8

	// VersionMax and VersionMin are bytes 2 and 3. For login responses
	// these are Version-max and Version-active.
	VersionMax uint8
	VersionMin uint8

	// TotalAHSLength is the total length of additional header segments in
	// 4-byte words. Always zero here; AHS are not supported.
	TotalAHSLength uint8

	// DataSegmentLength is the unpadded length of the data segment.
	// Only the low 24 bits are encoded.
	DataSegmentLength uint32

	// LUN carries ISID (6 bytes) + TSIH (2 bytes) in login PDUs.
	LUN [LUNSize]byte

	// ITT is the Initiator Task Tag.
	ITT uint32

	// Specific holds bytes 20-47 verbatim.
	Specific [SpecificSize]byte
}

// PadLength returns n rounded up to the next multiple of 4, the iSCSI
// word-alignment rule for data segments.
func PadLength(n int) int {
	return (n + 3) &^ 3
}
