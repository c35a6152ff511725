package header

import (
	"bytes"
	"errors"
	"testing"
)

func TestOffsets(t *testing.T) {
	// Offsets are fixed by RFC 3720 10.2.1; the format has no self-describing
	// schema so every one is pinned here.
	tests := []struct {
		name string
		got  int
		want int
	}{
		{"Opcode", OffsetOpcode, 0},
		{"Flags", OffsetFlags, 1},
		{"VersionMax", OffsetVersionMax, 2},
		{"VersionMin", OffsetVersionMin, 3},
		{"TotalAHSLength", OffsetTotalAHSLength, 4},
		{"DataSegmentLength", OffsetDataSegmentLength, 5},
		{"DataSegmentLengthSize", DataSegmentLengthSize, 3},
		{"LUN", OffsetLUN, 8},
		{"LUNSize", LUNSize, 8},
		{"ITT", OffsetITT, 16},
		{"Specific", OffsetSpecific, 20},
		{"SpecificSize", SpecificSize, 28},
		{"Size", Size, 48},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    *BHS
		wantErr error
	}{
		{
			name:    "Empty",
			data:    nil,
			wantErr: ErrMessageTooShort,
		},
		{
			name:    "TooShort",
			data:    make([]byte, Size-1),
			wantErr: ErrMessageTooShort,
		},
		{
			name: "LoginResponse",
			data: func() []byte {
				d := make([]byte, Size)
				// Opcode with reserved/immediate bits set; must be masked
				d[0] = 0xE3
				// Flags: Transit, CSG=0, NSG=3
				d[1] = 0x83
				// Version-max, Version-active
				d[2] = 0x00
				d[3] = 0x00
				// TotalAHSLength
				d[4] = 0x00
				// DataSegmentLength = 0x010203
				d[5] = 0x01
				d[6] = 0x02
				d[7] = 0x03
				// ISID
				d[8] = 0x01
				d[9] = 0x02
				d[10] = 0x03
				d[11] = 0x04
				d[12] = 0x05
				d[13] = 0x06
				// TSIH
				d[14] = 0x00
				d[15] = 0x01
				// ITT
				d[16] = 0xDE
				d[17] = 0xAD
				d[18] = 0xBE
				d[19] = 0xEF
				// Status-Class, Status-Detail
				d[36] = 0x02
				d[37] = 0x07
				return d
			}(),
			want: &BHS{
				Opcode:            0x23,
				Immediate:         true,
				Flags:             0x83,
				DataSegmentLength: 0x010203,
				LUN:               [8]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x00, 0x01},
				ITT:               0xDEADBEEF,
				Specific: func() [SpecificSize]byte {
					var s [SpecificSize]byte
					s[36-OffsetSpecific] = 0x02
					s[37-OffsetSpecific] = 0x07
					return s
				}(),
			},
		},
		{
			name: "TrailingBytesIgnored",
			data: func() []byte {
				d := make([]byte, Size+16)
				d[0] = 0x23
				for i := Size; i < len(d); i++ {
					d[i] = 0xFF
				}
				return d
			}(),
			want: &BHS{Opcode: 0x23},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.data)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Parse() error = %v, want %v", err, tt.wantErr)
				}
				if got != nil {
					t.Errorf("Parse() = %+v, want nil", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() unexpected error: %v", err)
			}
			if *got != *tt.want {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	h := &BHS{
		Opcode:            0x03,
		Immediate:         true,
		Flags:             0x83,
		DataSegmentLength: 0x000040,
		LUN:               [8]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x12, 0x34},
		ITT:               0x00000007,
	}
	h.Specific[0] = 0xAB
	h.Specific[27] = 0xCD

	buf := h.Encode()

	if len(buf) != Size {
		t.Fatalf("Encode() length = %d, want %d", len(buf), Size)
	}
	if buf[0] != 0x43 {
		t.Errorf("byte 0 = 0x%02x, want 0x43", buf[0])
	}
	if buf[1] != 0x83 {
		t.Errorf("byte 1 = 0x%02x, want 0x83", buf[1])
	}
	if buf[4] != 0 {
		t.Errorf("TotalAHSLength = %d, want 0", buf[4])
	}
	if !bytes.Equal(buf[5:8], []byte{0x00, 0x00, 0x40}) {
		t.Errorf("DataSegmentLength bytes = % x, want 00 00 40", buf[5:8])
	}
	if !bytes.Equal(buf[8:16], h.LUN[:]) {
		t.Errorf("LUN bytes = % x, want % x", buf[8:16], h.LUN[:])
	}
	if !bytes.Equal(buf[16:20], []byte{0x00, 0x00, 0x00, 0x07}) {
		t.Errorf("ITT bytes = % x, want 00 00 00 07", buf[16:20])
	}
	if buf[20] != 0xAB || buf[47] != 0xCD {
		t.Errorf("Specific block not copied: byte20=0x%02x byte47=0x%02x", buf[20], buf[47])
	}
}

func TestEncode_ImmediateClearedWhenUnset(t *testing.T) {
	// Opcode bits above the mask must never leak into the wire byte.
	h := &BHS{Opcode: 0xC3}
	buf := h.Encode()
	if buf[0] != 0x03 {
		t.Errorf("byte 0 = 0x%02x, want 0x03", buf[0])
	}
}

func TestEncode_DataSegmentLengthTruncated(t *testing.T) {
	h := &BHS{DataSegmentLength: 0x01ABCDEF}
	buf := h.Encode()
	if !bytes.Equal(buf[5:8], []byte{0xAB, 0xCD, 0xEF}) {
		t.Errorf("DataSegmentLength bytes = % x, want ab cd ef", buf[5:8])
	}
}

func TestRoundTrip(t *testing.T) {
	original := &BHS{
		Opcode:            0x23,
		Flags:             0x87,
		VersionMax:        0x00,
		VersionMin:        0x00,
		DataSegmentLength: MaxDataSegmentLength,
		LUN:               [8]byte{0x80, 0, 0x3D, 0, 0, 0, 0, 1},
		ITT:               42,
	}
	original.Specific[16] = 0x03
	original.Specific[17] = 0x01

	parsed, err := Parse(original.Encode())
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if *parsed != *original {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", parsed, original)
	}
}

func TestPeekOpcode(t *testing.T) {
	if _, ok := PeekOpcode(nil); ok {
		t.Error("PeekOpcode(nil) ok = true, want false")
	}
	op, ok := PeekOpcode([]byte{0xE3})
	if !ok || op != 0x23 {
		t.Errorf("PeekOpcode() = 0x%02x, %v; want 0x23, true", op, ok)
	}
}

func TestPadLength(t *testing.T) {
	tests := map[int]int{0: 0, 1: 4, 3: 4, 4: 4, 5: 8, 47: 48, 48: 48}
	for in, want := range tests {
		if got := PadLength(in); got != want {
			t.Errorf("PadLength(%d) = %d, want %d", in, got, want)
		}
	}
}
