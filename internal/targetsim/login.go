package targetsim

import (
	"slices"
	"strconv"
	"strings"

	"github.com/marmos91/iscsiprobe/internal/protocol/iscsi/login"
	"github.com/marmos91/iscsiprobe/internal/protocol/iscsi/types"
)

// Decision is the outcome of validating one Login Request.
type Decision struct {
	Status types.Status

	// Reason is a short explanation for logs.
	Reason string

	// SessionType is the session type the request asked for.
	SessionType string

	// Params are returned in the response text segment.
	Params login.TextParams
}

// Evaluate validates the keys of a single-PDU login the way the reference
// target does, in this order:
//
//  1. InitiatorName missing: MISSING_PARAMETER
//  2. Normal session without TargetName: MISSING_PARAMETER
//  3. Normal session for another TargetName: TARGET_NOT_FOUND
//  4. SessionType neither Normal nor Discovery: SESSION_TYPE_NOT_SUPPORTED
//  5. CHAP required and not offered: AUTH_FAILURE
//  6. Initiator not in AllowedInitiators: AUTHORIZATION_FAILURE
//
// Anything else succeeds. Evaluate is pure; session handles are assigned
// by the caller.
func (c *Config) Evaluate(params login.TextParams) Decision {
	initiator, hasInitiator := params.Get(types.KeyInitiatorName)
	if !hasInitiator {
		return reject(types.StatusMissingParameter, "missing InitiatorName")
	}

	sessionType, _ := params.Get(types.KeySessionType)
	if sessionType == "" {
		sessionType = types.SessionTypeNormal
	}
	validType := sessionType == types.SessionTypeNormal || sessionType == types.SessionTypeDiscovery

	// Unknown session types are checked as normal ones first.
	if sessionType != types.SessionTypeDiscovery {
		target, ok := params.Get(types.KeyTargetName)
		if !ok {
			return reject(types.StatusMissingParameter, "missing TargetName for normal session")
		}
		if target != c.TargetName {
			return reject(types.StatusTargetNotFound, "unknown target "+strconv.Quote(target))
		}
	}

	if !validType {
		return reject(types.StatusSessionTypeNotSupported, "unsupported SessionType "+strconv.Quote(sessionType))
	}

	authMethod, hasAuth := params.Get(types.KeyAuthMethod)
	if c.RequireCHAP && !strings.Contains(authMethod, "CHAP") {
		return reject(types.StatusAuthenticationFailure, "CHAP required")
	}

	if len(c.AllowedInitiators) > 0 && !slices.Contains(c.AllowedInitiators, initiator) {
		return reject(types.StatusAuthorizationFailure, "initiator "+strconv.Quote(initiator)+" not allowed")
	}

	d := Decision{Status: types.StatusSuccess, Reason: "accepted", SessionType: sessionType}

	switch {
	case c.RequireCHAP:
		// The challenge is sent without a stage transition.
		d.Params = login.Params(types.KeyAuthMethod, "CHAP", "CHAP_A", "5")
		return d
	case hasAuth:
		d.Params = login.Params(types.KeyAuthMethod, types.AuthMethodNone)
	}

	if sessionType == types.SessionTypeDiscovery {
		d.Params = append(d.Params, c.discoveryParams(params)...)
	} else {
		d.Params = append(d.Params, c.operationalParams()...)
	}
	return d
}

func reject(status types.Status, reason string) Decision {
	return Decision{Status: status, Reason: reason}
}

// operationalParams are the values declared for a normal session.
func (c *Config) operationalParams() login.TextParams {
	var p login.TextParams
	if c.TargetAlias != "" {
		p = append(p, login.TextParam{Key: "TargetAlias", Value: c.TargetAlias})
	}
	return append(p, login.Params(
		"MaxRecvDataSegmentLength", strconv.Itoa(c.MaxRecvDataSegmentLength),
		"MaxBurstLength", "262144",
		"FirstBurstLength", "65536",
		"DefaultTime2Wait", "2",
		"DefaultTime2Retain", "20",
		"MaxOutstandingR2T", "1",
		"DataPDUInOrder", "Yes",
		"DataSequenceInOrder", "Yes",
		"ErrorRecoveryLevel", "0",
		"ImmediateData", "Yes",
		"InitialR2T", "Yes",
	)...)
}

// discoveryParams echoes only the digest and segment length keys the
// initiator offered.
func (c *Config) discoveryParams(req login.TextParams) login.TextParams {
	var p login.TextParams
	for _, param := range req {
		switch param.Key {
		case "MaxRecvDataSegmentLength":
			p = append(p, login.TextParam{Key: param.Key, Value: strconv.Itoa(c.MaxRecvDataSegmentLength)})
		case "HeaderDigest", "DataDigest":
			p = append(p, login.TextParam{Key: param.Key, Value: "None"})
		}
	}
	return p
}
