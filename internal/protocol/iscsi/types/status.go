package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Status is a combined login status code: Status-Class in the high byte,
// Status-Detail in the low byte.
//
// [RFC 3720] Section 10.13.5
type Status uint16

// Status classes
const (
	ClassSuccess        uint8 = 0x00
	ClassRedirection    uint8 = 0x01
	ClassInitiatorError uint8 = 0x02
	ClassTargetError    uint8 = 0x03
)

// Login status codes
const (
	StatusSuccess                 Status = 0x0000
	StatusTargetMovedTemporarily  Status = 0x0101
	StatusTargetMovedPermanently  Status = 0x0102
	StatusInitiatorError          Status = 0x0200
	StatusAuthenticationFailure   Status = 0x0201
	StatusAuthorizationFailure    Status = 0x0202
	StatusTargetNotFound          Status = 0x0203
	StatusTargetRemoved           Status = 0x0204
	StatusUnsupportedVersion      Status = 0x0205
	StatusTooManyConnections      Status = 0x0206
	StatusMissingParameter        Status = 0x0207
	StatusCantIncludeInSession    Status = 0x0208
	StatusSessionTypeNotSupported Status = 0x0209
	StatusSessionDoesNotExist     Status = 0x020A
	StatusInvalidDuringLogin      Status = 0x020B
	StatusTargetError             Status = 0x0300
	StatusServiceUnavailable      Status = 0x0301
	StatusOutOfResources          Status = 0x0302
)

var statusNames = map[Status]string{
	StatusSuccess:                 "SUCCESS",
	StatusTargetMovedTemporarily:  "TARGET_MOVED_TEMPORARILY",
	StatusTargetMovedPermanently:  "TARGET_MOVED_PERMANENTLY",
	StatusInitiatorError:          "INITIATOR_ERROR",
	StatusAuthenticationFailure:   "AUTHENTICATION_FAILURE",
	StatusAuthorizationFailure:    "AUTHORIZATION_FAILURE",
	StatusTargetNotFound:          "TARGET_NOT_FOUND",
	StatusTargetRemoved:           "TARGET_REMOVED",
	StatusUnsupportedVersion:      "UNSUPPORTED_VERSION",
	StatusTooManyConnections:      "TOO_MANY_CONNECTIONS",
	StatusMissingParameter:        "MISSING_PARAMETER",
	StatusCantIncludeInSession:    "CANT_INCLUDE_IN_SESSION",
	StatusSessionTypeNotSupported: "SESSION_TYPE_NOT_SUPPORTED",
	StatusSessionDoesNotExist:     "SESSION_DOES_NOT_EXIST",
	StatusInvalidDuringLogin:      "INVALID_DURING_LOGIN",
	StatusTargetError:             "TARGET_ERROR",
	StatusServiceUnavailable:      "SERVICE_UNAVAILABLE",
	StatusOutOfResources:          "OUT_OF_RESOURCES",
}

var statusDescriptions = map[Status]string{
	StatusSuccess:                 "Login successful",
	StatusTargetMovedTemporarily:  "Target moved temporarily; retry at the portal returned in TargetAddress",
	StatusTargetMovedPermanently:  "Target moved permanently; update the initiator configuration with the new TargetAddress",
	StatusInitiatorError:          "Initiator error (generic)",
	StatusAuthenticationFailure:   "Authentication failed; check the CHAP username and password",
	StatusAuthorizationFailure:    "Authorization failure; the initiator is not allowed by the target ACL",
	StatusTargetNotFound:          "Target not found; the requested TargetName doesn't exist, run discovery to list targets",
	StatusTargetRemoved:           "Target removed; the target no longer exists at this portal",
	StatusUnsupportedVersion:      "Unsupported version; the target rejects the requested iSCSI version range",
	StatusTooManyConnections:      "Too many connections; the session reached its MaxConnections limit",
	StatusMissingParameter:        "Missing required parameter; InitiatorName and, for normal sessions, TargetName are required",
	StatusCantIncludeInSession:    "Connection can't be included in the session",
	StatusSessionTypeNotSupported: "Session type not supported; only Normal and Discovery are valid",
	StatusSessionDoesNotExist:     "Session does not exist; the TSIH refers to an unknown session",
	StatusInvalidDuringLogin:      "Request invalid during login",
	StatusTargetError:             "Target error (generic)",
	StatusServiceUnavailable:      "Service unavailable; the target is temporarily unable to accept logins",
	StatusOutOfResources:          "Out of resources; the target cannot allocate a session",
}

// NewStatus combines a status class and detail.
func NewStatus(class, detail uint8) Status {
	return Status(uint16(class)<<8 | uint16(detail))
}

// Class returns the Status-Class byte.
func (s Status) Class() uint8 {
	return uint8(s >> 8)
}

// Detail returns the Status-Detail byte.
func (s Status) Detail() uint8 {
	return uint8(s)
}

// Hex returns the status as a 0x-prefixed, 4-digit hex string.
func (s Status) Hex() string {
	return fmt.Sprintf("0x%04x", uint16(s))
}

// String returns the RFC name of the status, or its hex value when unknown.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return s.Hex()
}

// Known reports whether s is one of the RFC 3720 login status codes.
func (s Status) Known() bool {
	_, ok := statusNames[s]
	return ok
}

// Describe returns a human-readable explanation of the status.
func (s Status) Describe() string {
	if desc, ok := statusDescriptions[s]; ok {
		return desc
	}
	switch s.Class() {
	case ClassRedirection:
		return fmt.Sprintf("Redirection (unknown detail 0x%02x)", s.Detail())
	case ClassInitiatorError:
		return fmt.Sprintf("Initiator error (unknown detail 0x%02x)", s.Detail())
	case ClassTargetError:
		return fmt.Sprintf("Target error (unknown detail 0x%02x)", s.Detail())
	default:
		return fmt.Sprintf("Unknown status class 0x%02x detail 0x%02x", s.Class(), s.Detail())
	}
}

// ParseStatus parses a status from a hex string ("0x0203", "0203") or an
// RFC name ("TARGET_NOT_FOUND", case-insensitive).
func ParseStatus(raw string) (Status, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("empty status")
	}

	upper := strings.ToUpper(raw)
	for code, name := range statusNames {
		if name == upper {
			return code, nil
		}
	}

	digits := strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X")
	v, err := strconv.ParseUint(digits, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid status %q: expected hex code or status name", raw)
	}
	return Status(v), nil
}

// MarshalText encodes the status as its hex form, e.g. "0x0203".
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.Hex()), nil
}

// UnmarshalText accepts any form understood by ParseStatus.
func (s *Status) UnmarshalText(text []byte) error {
	v, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
