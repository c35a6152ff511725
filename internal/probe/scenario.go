// Package probe runs iSCSI login scenarios against a target portal.
//
// Each scenario opens its own TCP connection, sends exactly one Login
// Request, reads one Login Response and compares the returned status with
// the expected one. Scenarios run strictly in order and a failure in one
// never prevents the next from running.
package probe

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/marmos91/iscsiprobe/internal/protocol/iscsi/login"
	"github.com/marmos91/iscsiprobe/internal/protocol/iscsi/types"
)

// Scenario is one login attempt and the status it must produce.
type Scenario struct {
	Name        string           `json:"name" yaml:"name"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	ISID        [6]byte          `json:"-" yaml:"-"`
	Params      login.TextParams `json:"params" yaml:"params"`
	Expected    types.Status     `json:"expected" yaml:"expected"`
}

// Names identify the initiator and targets used by the built-in suites.
type Names struct {
	InitiatorName     string
	TargetName        string
	UnknownTargetName string
}

// Suite names.
const (
	SuiteCore     = "core"
	SuiteExtended = "extended"
	SuiteCustom   = "custom"
	SuiteAll      = "all"
)

// Built-in scenario names.
const (
	ScenarioLoginSuccess           = "login_success"
	ScenarioTargetNotFound         = "target_not_found"
	ScenarioMissingInitiatorName   = "missing_initiator_name"
	ScenarioMissingTargetName      = "missing_target_name"
	ScenarioUnsupportedSessionType = "unsupported_session_type"
	ScenarioDiscoverySession       = "discovery_session"
)

// CoreScenarios returns the three scenarios every run performs by
// default, in order: a valid login, an unknown target and a request
// without InitiatorName.
func CoreScenarios(n Names) []Scenario {
	return []Scenario{
		{
			Name:        ScenarioLoginSuccess,
			Description: "Valid login to the configured target",
			ISID:        [6]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x08},
			Params: login.Params(
				types.KeyInitiatorName, n.InitiatorName,
				types.KeyTargetName, n.TargetName,
				types.KeyAuthMethod, types.AuthMethodNone,
			),
			Expected: types.StatusSuccess,
		},
		{
			Name:        ScenarioTargetNotFound,
			Description: "Login to a target name the portal does not serve",
			ISID:        [6]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06},
			Params: login.Params(
				types.KeyInitiatorName, n.InitiatorName,
				types.KeyTargetName, n.UnknownTargetName,
				types.KeyAuthMethod, types.AuthMethodNone,
			),
			Expected: types.StatusTargetNotFound,
		},
		{
			Name:        ScenarioMissingInitiatorName,
			Description: "Login without the mandatory InitiatorName key",
			ISID:        [6]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x07},
			Params: login.Params(
				types.KeyTargetName, n.TargetName,
				types.KeyAuthMethod, types.AuthMethodNone,
			),
			Expected: types.StatusMissingParameter,
		},
	}
}

// ExtendedScenarios returns the core scenarios followed by checks of
// TargetName and SessionType handling.
func ExtendedScenarios(n Names) []Scenario {
	return append(CoreScenarios(n),
		Scenario{
			Name:        ScenarioMissingTargetName,
			Description: "Normal session login without TargetName",
			ISID:        [6]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x09},
			Params: login.Params(
				types.KeyInitiatorName, n.InitiatorName,
				types.KeyAuthMethod, types.AuthMethodNone,
			),
			Expected: types.StatusMissingParameter,
		},
		Scenario{
			Name:        ScenarioUnsupportedSessionType,
			Description: "SessionType other than Normal or Discovery",
			ISID:        [6]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x0a},
			Params: login.Params(
				types.KeyInitiatorName, n.InitiatorName,
				types.KeyTargetName, n.TargetName,
				types.KeySessionType, "Bogus",
				types.KeyAuthMethod, types.AuthMethodNone,
			),
			Expected: types.StatusSessionTypeNotSupported,
		},
		Scenario{
			Name:        ScenarioDiscoverySession,
			Description: "Discovery session, which needs no TargetName",
			ISID:        [6]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x0b},
			Params: login.Params(
				types.KeyInitiatorName, n.InitiatorName,
				types.KeySessionType, types.SessionTypeDiscovery,
				types.KeyAuthMethod, types.AuthMethodNone,
			),
			Expected: types.StatusSuccess,
		},
	)
}

// CustomISID is the ISID given to the i-th custom scenario that does not
// set one.
func CustomISID(i int) [6]byte {
	return [6]byte{0x01, 0x02, 0x03, 0x04, 0x06, byte(i + 1)}
}

// Suite returns the scenarios of the named suite. custom is appended for
// the custom and all suites.
func Suite(name string, n Names, custom []Scenario) ([]Scenario, error) {
	switch strings.ToLower(name) {
	case SuiteCore, "":
		return CoreScenarios(n), nil
	case SuiteExtended:
		return ExtendedScenarios(n), nil
	case SuiteCustom:
		if len(custom) == 0 {
			return nil, fmt.Errorf("suite %q has no scenarios configured", SuiteCustom)
		}
		return append([]Scenario(nil), custom...), nil
	case SuiteAll:
		return append(ExtendedScenarios(n), custom...), nil
	default:
		return nil, fmt.Errorf("unknown suite %q (valid: core, extended, custom, all)", name)
	}
}

// Request builds the Login Request sent for s: a new session (TSIH 0) on
// connection 0 with CmdSN and ExpStatSN both 0.
func (s Scenario) Request() *login.Request {
	return &login.Request{
		ISID:   s.ISID,
		Params: s.Params,
	}
}

// ISIDHex returns the ISID as 12 lowercase hex digits.
func (s Scenario) ISIDHex() string {
	return hex.EncodeToString(s.ISID[:])
}
