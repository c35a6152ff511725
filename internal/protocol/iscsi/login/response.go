package login

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/marmos91/iscsiprobe/internal/protocol/iscsi/header"
	"github.com/marmos91/iscsiprobe/internal/protocol/iscsi/types"
)

var (
	// ErrUnexpectedOpcode indicates the PDU is not the expected login opcode
	ErrUnexpectedOpcode = errors.New("unexpected iSCSI opcode")
	// ErrTruncatedData indicates the data segment extends past the buffer
	ErrTruncatedData = errors.New("iSCSI data segment truncated")
)

// Login Response opcode-specific field offsets (absolute BHS offsets).
const (
	OffsetStatSN       = 24
	OffsetExpCmdSN     = 28
	OffsetMaxCmdSN     = 32
	OffsetStatusClass  = 36
	OffsetStatusDetail = 37
)

// Response is the decoded header of a Login Response PDU.
//
// Only the BHS is decoded by ParseResponse. Negotiated parameters carried in
// the data segment are left in Params, which ParseResponseText fills in.
type Response struct {
	Opcode       uint8        `json:"opcode" yaml:"opcode"`
	StatusClass  uint8        `json:"status_class" yaml:"status_class"`
	StatusDetail uint8        `json:"status_detail" yaml:"status_detail"`
	Status       types.Status `json:"status" yaml:"status"`

	Transit           bool    `json:"transit" yaml:"transit"`
	Continue          bool    `json:"continue" yaml:"continue"`
	CSG               uint8   `json:"csg" yaml:"csg"`
	NSG               uint8   `json:"nsg" yaml:"nsg"`
	VersionMax        uint8   `json:"version_max" yaml:"version_max"`
	VersionActive     uint8   `json:"version_active" yaml:"version_active"`
	DataSegmentLength uint32  `json:"data_segment_length" yaml:"data_segment_length"`
	ISID              [6]byte `json:"-" yaml:"-"`
	TSIH              uint16  `json:"tsih" yaml:"tsih"`
	ITT               uint32  `json:"itt" yaml:"itt"`
	StatSN            uint32  `json:"stat_sn" yaml:"stat_sn"`
	ExpCmdSN          uint32  `json:"exp_cmd_sn" yaml:"exp_cmd_sn"`
	MaxCmdSN          uint32  `json:"max_cmd_sn" yaml:"max_cmd_sn"`

	Params TextParams `json:"params,omitempty" yaml:"params,omitempty"`
}

// ParseResponse decodes the BHS of a Login Response.
//
// It never panics. A buffer shorter than the BHS returns
// header.ErrMessageTooShort; a PDU whose masked opcode is not Login Response
// returns ErrUnexpectedOpcode. Either error means "no result".
func ParseResponse(data []byte) (*Response, error) {
	h, err := header.Parse(data)
	if err != nil {
		return nil, err
	}
	if h.Opcode != types.OpLoginResponse {
		return nil, fmt.Errorf("%w: got 0x%02x, want 0x%02x", ErrUnexpectedOpcode, h.Opcode, types.OpLoginResponse)
	}

	class := data[OffsetStatusClass]
	detail := data[OffsetStatusDetail]

	r := &Response{
		Opcode:            h.Opcode,
		StatusClass:       class,
		StatusDetail:      detail,
		Status:            types.NewStatus(class, detail),
		Transit:           h.Flags&types.LoginFlagTransit != 0,
		Continue:          h.Flags&types.LoginFlagContinue != 0,
		CSG:               types.CSG(h.Flags),
		NSG:               types.NSG(h.Flags),
		VersionMax:        h.VersionMax,
		VersionActive:     h.VersionMin,
		DataSegmentLength: h.DataSegmentLength,
		TSIH:              binary.BigEndian.Uint16(h.LUN[ISIDSize:]),
		ITT:               h.ITT,
		StatSN:            binary.BigEndian.Uint32(data[OffsetStatSN:]),
		ExpCmdSN:          binary.BigEndian.Uint32(data[OffsetExpCmdSN:]),
		MaxCmdSN:          binary.BigEndian.Uint32(data[OffsetMaxCmdSN:]),
	}
	copy(r.ISID[:], h.LUN[:ISIDSize])

	return r, nil
}

// ParseResponseText decodes the text segment that follows the BHS into
// r.Params. Only the bytes actually present are used: if the declared
// DataSegmentLength exceeds the buffer, the available prefix is decoded and
// ErrTruncatedData is returned alongside it.
func ParseResponseText(data []byte, r *Response) error {
	if len(data) <= header.Size || r.DataSegmentLength == 0 {
		return nil
	}

	end := header.Size + int(r.DataSegmentLength)
	var truncated bool
	if end > len(data) {
		end = len(data)
		truncated = true
	}

	params, err := ParseText(data[header.Size:end])
	r.Params = params
	if err != nil && !truncated {
		return err
	}
	if truncated {
		return fmt.Errorf("%w: declared %d bytes, %d available",
			ErrTruncatedData, r.DataSegmentLength, len(data)-header.Size)
	}
	return nil
}

// Succeeded reports whether the login was accepted.
func (r *Response) Succeeded() bool {
	return r.Status == types.StatusSuccess
}

// Encode serializes a Login Response (BHS + padded Params). Status is taken
// from StatusClass/StatusDetail.
func (r *Response) Encode() []byte {
	data := r.Params.Encode()

	h := &header.BHS{
		Opcode:            types.OpLoginResponse,
		Flags:             types.LoginFlags(r.Transit, r.Continue, r.CSG, r.NSG),
		VersionMax:        r.VersionMax,
		VersionMin:        r.VersionActive,
		DataSegmentLength: uint32(len(data)) & header.MaxDataSegmentLength,
		ITT:               r.ITT,
	}
	copy(h.LUN[:ISIDSize], r.ISID[:])
	binary.BigEndian.PutUint16(h.LUN[ISIDSize:], r.TSIH)

	binary.BigEndian.PutUint32(h.Specific[OffsetStatSN-header.OffsetSpecific:], r.StatSN)
	binary.BigEndian.PutUint32(h.Specific[OffsetExpCmdSN-header.OffsetSpecific:], r.ExpCmdSN)
	binary.BigEndian.PutUint32(h.Specific[OffsetMaxCmdSN-header.OffsetSpecific:], r.MaxCmdSN)
	h.Specific[OffsetStatusClass-header.OffsetSpecific] = r.StatusClass
	h.Specific[OffsetStatusDetail-header.OffsetSpecific] = r.StatusDetail

	buf := make([]byte, 0, header.Size+len(data))
	buf = append(buf, h.Encode()...)
	buf = append(buf, data...)
	return buf
}
