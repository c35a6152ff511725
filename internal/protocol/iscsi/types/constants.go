// Package types holds iSCSI protocol constants shared by the PDU codecs.
//
// Only the subset needed for the login phase is defined here.
//
// Reference: RFC 3720 Section 10
package types

// Opcodes [RFC 3720] 10.2.1.2
const (
	// OpLoginRequest is the initiator opcode for a Login Request PDU.
	OpLoginRequest uint8 = 0x03

	// OpLoginResponse is the target opcode for a Login Response PDU.
	OpLoginResponse uint8 = 0x23

	// OpcodeMask selects the opcode from byte 0 of the BHS.
	// The two high bits carry the reserved bit and the Immediate flag.
	OpcodeMask uint8 = 0x3F

	// FlagImmediate marks a request for immediate delivery (byte 0, bit 6).
	FlagImmediate uint8 = 0x40
)

// Login flags (byte 1 of Login Request/Response) [RFC 3720] 10.12.1
const (
	// LoginFlagTransit requests (or grants) a stage transition.
	LoginFlagTransit uint8 = 0x80

	// LoginFlagContinue signals that the text segment continues in the next PDU.
	LoginFlagContinue uint8 = 0x40

	// loginCSGShift is the bit offset of the 2-bit CSG field.
	loginCSGShift = 2

	// loginStageMask masks a 2-bit stage value.
	loginStageMask uint8 = 0x03
)

// Login stages [RFC 3720] 10.12.3
const (
	StageSecurityNegotiation         uint8 = 0
	StageLoginOperationalNegotiation uint8 = 1
	StageFullFeature                 uint8 = 3
)

// LoginFlags packs the Transit, Continue, CSG and NSG fields into byte 1.
func LoginFlags(transit, cont bool, csg, nsg uint8) uint8 {
	var f uint8
	if transit {
		f |= LoginFlagTransit
	}
	if cont {
		f |= LoginFlagContinue
	}
	f |= (csg & loginStageMask) << loginCSGShift
	f |= nsg & loginStageMask
	return f
}

// CSG extracts the current stage from a login flags byte.
func CSG(flags uint8) uint8 {
	return (flags >> loginCSGShift) & loginStageMask
}

// NSG extracts the next stage from a login flags byte.
func NSG(flags uint8) uint8 {
	return flags & loginStageMask
}

// StageName returns a human-readable name for a login stage.
func StageName(stage uint8) string {
	switch stage {
	case StageSecurityNegotiation:
		return "SecurityNegotiation"
	case StageLoginOperationalNegotiation:
		return "LoginOperationalNegotiation"
	case StageFullFeature:
		return "FullFeaturePhase"
	default:
		return "Reserved"
	}
}

// Text keys used during login [RFC 3720] 12
const (
	KeyInitiatorName = "InitiatorName"
	KeyTargetName    = "TargetName"
	KeyAuthMethod    = "AuthMethod"
	KeySessionType   = "SessionType"

	AuthMethodNone = "None"

	SessionTypeNormal    = "Normal"
	SessionTypeDiscovery = "Discovery"
)
