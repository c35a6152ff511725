// Package login builds iSCSI Login Request PDUs and parses Login Response
// PDUs.
//
// Only a single-PDU login is modeled: the request always asks to move
// straight from SecurityNegotiation to FullFeaturePhase with the Transit
// bit set, and the response parser reads the BHS only.
//
// Reference: RFC 3720 Sections 10.12 and 10.13
package login

import (
	"encoding/binary"
	"fmt"

	"github.com/marmos91/iscsiprobe/internal/protocol/iscsi/header"
	"github.com/marmos91/iscsiprobe/internal/protocol/iscsi/types"
)

// Login Request opcode-specific field offsets (absolute BHS offsets).
//
//	┌────────┬──────┬───────────┐
//	│ Offset │ Size │ Field     │
//	├────────┼──────┼───────────┤
//	│   8    │  6   │ ISID      │
//	│  14    │  2   │ TSIH      │
//	│  16    │  4   │ ITT       │
//	│  20    │  2   │ CID       │
//	│  24    │  4   │ CmdSN     │
//	│  28    │  4   │ ExpStatSN │
//	└────────┴──────┴───────────┘
const (
	OffsetISID      = header.OffsetLUN
	ISIDSize        = 6
	OffsetTSIH      = OffsetISID + ISIDSize
	OffsetCID       = 20
	OffsetCmdSN     = 24
	OffsetExpStatSN = 28
)

// RequestFlags is the login flags byte sent on every request:
// Transit=1, CSG=SecurityNegotiation, NSG=FullFeaturePhase (0x83).
var RequestFlags = types.LoginFlags(true, false, types.StageSecurityNegotiation, types.StageFullFeature)

// Request describes a Login Request PDU.
type Request struct {
	// ISID is the initiator part of the session identifier.
	ISID [ISIDSize]byte

	// TSIH is the target session handle; zero for a new session.
	TSIH uint16

	// CID is the connection identifier.
	CID uint16

	// CmdSN is the command sequence number. It is also used as the ITT.
	CmdSN uint32

	// ExpStatSN is the expected status sequence number.
	ExpStatSN uint32

	// Params is the login text segment, sent in order. No key is required
	// here; probing the target's validation is the point.
	Params TextParams
}

// BHS returns the header for the request given the encoded text segment
// length.
func (r *Request) BHS(dataLen int) *header.BHS {
	h := &header.BHS{
		Opcode:            types.OpLoginRequest,
		Immediate:         true,
		Flags:             RequestFlags,
		TotalAHSLength:    0,
		DataSegmentLength: uint32(dataLen) & header.MaxDataSegmentLength,
		ITT:               r.CmdSN,
	}

	copy(h.LUN[:ISIDSize], r.ISID[:])
	binary.BigEndian.PutUint16(h.LUN[ISIDSize:], r.TSIH)

	binary.BigEndian.PutUint16(h.Specific[OffsetCID-header.OffsetSpecific:], r.CID)
	binary.BigEndian.PutUint32(h.Specific[OffsetCmdSN-header.OffsetSpecific:], r.CmdSN)
	binary.BigEndian.PutUint32(h.Specific[OffsetExpStatSN-header.OffsetSpecific:], r.ExpStatSN)

	return h
}

// Encode serializes the request: the 48-byte BHS followed by the padded
// text segment. It cannot fail.
func (r *Request) Encode() []byte {
	data := r.Params.Encode()

	buf := make([]byte, 0, header.Size+len(data))
	buf = append(buf, r.BHS(len(data)).Encode()...)
	buf = append(buf, data...)
	return buf
}

// EncodeRequest is a convenience wrapper around Request.Encode for callers
// that hold the fields separately. cmdSN doubles as the ITT.
func EncodeRequest(isid [ISIDSize]byte, tsih, cid uint16, cmdSN, expStatSN uint32, params TextParams) []byte {
	r := &Request{
		ISID:      isid,
		TSIH:      tsih,
		CID:       cid,
		CmdSN:     cmdSN,
		ExpStatSN: expStatSN,
		Params:    params,
	}
	return r.Encode()
}

// ParseRequest decodes a Login Request PDU: the BHS plus the text segment
// declared by DataSegmentLength.
func ParseRequest(data []byte) (*Request, error) {
	h, err := header.Parse(data)
	if err != nil {
		return nil, err
	}
	if h.Opcode != types.OpLoginRequest {
		return nil, fmt.Errorf("%w: got 0x%02x, want 0x%02x", ErrUnexpectedOpcode, h.Opcode, types.OpLoginRequest)
	}

	end := header.Size + int(h.DataSegmentLength)
	if end > len(data) {
		return nil, fmt.Errorf("%w: data segment declares %d bytes, %d available",
			ErrTruncatedData, h.DataSegmentLength, len(data)-header.Size)
	}

	params, err := ParseText(data[header.Size:end])
	if err != nil {
		return nil, err
	}

	r := &Request{
		TSIH:      binary.BigEndian.Uint16(h.LUN[ISIDSize:]),
		CID:       binary.BigEndian.Uint16(h.Specific[OffsetCID-header.OffsetSpecific:]),
		CmdSN:     binary.BigEndian.Uint32(h.Specific[OffsetCmdSN-header.OffsetSpecific:]),
		ExpStatSN: binary.BigEndian.Uint32(h.Specific[OffsetExpStatSN-header.OffsetSpecific:]),
		Params:    params,
	}
	copy(r.ISID[:], h.LUN[:ISIDSize])

	return r, nil
}
