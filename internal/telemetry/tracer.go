package telemetry

import (
	"context"
	"encoding/hex"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for probe spans. Network keys follow the OpenTelemetry
// semantic conventions; iSCSI keys use the "iscsi." prefix.
const (
	AttrServerAddress = "server.address"
	AttrServerPort    = "server.port"
	AttrNetPeer       = "network.peer.address"
	AttrNetTransport  = "network.transport"

	AttrRunID     = "probe.run_id"
	AttrSuite     = "probe.suite"
	AttrOutcome   = "probe.outcome"
	AttrScenarios = "probe.scenarios"
	AttrPassed    = "probe.passed"
	AttrFailed    = "probe.failed"

	AttrScenario       = "iscsi.scenario"
	AttrISID           = "iscsi.isid"
	AttrTSIH           = "iscsi.tsih"
	AttrITT            = "iscsi.itt"
	AttrCmdSN          = "iscsi.cmd_sn"
	AttrStatus         = "iscsi.status"
	AttrStatusName     = "iscsi.status_name"
	AttrExpectedStatus = "iscsi.expected_status"
	AttrBytesSent      = "iscsi.bytes_sent"
	AttrBytesRead      = "iscsi.bytes_read"
	AttrInitiatorName  = "iscsi.initiator_name"
	AttrTargetName     = "iscsi.target_name"
	AttrSessionType    = "iscsi.session_type"
)

// Span names.
const (
	SpanProbeRun      = "probe.run"
	SpanProbeScenario = "probe.scenario"
	SpanLoginExchange = "iscsi.login"
	SpanTargetLogin   = "targetsim.login"
)

// Event names recorded on scenario spans.
const (
	EventDialed       = "dialed"
	EventRequestSent  = "request_sent"
	EventResponseRead = "response_read"
)

// StartRunSpan starts the root span of one probe run.
func StartRunSpan(ctx context.Context, runID, host string, port int, scenarios int) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanProbeRun,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			RunID(runID),
			ServerAddress(host),
			ServerPort(port),
			attribute.Int(AttrScenarios, scenarios),
		))
}

// StartScenarioSpan starts a span for one scenario of a run.
func StartScenarioSpan(ctx context.Context, scenario string, isid []byte, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := make([]attribute.KeyValue, 0, 3+len(attrs))
	all = append(all, Scenario(scenario), ISID(isid), attribute.String(AttrNetTransport, "tcp"))
	all = append(all, attrs...)
	return StartSpan(ctx, SpanProbeScenario,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(all...))
}

// StartTargetLoginSpan starts a server-side span for a login handled by
// the simulated target.
func StartTargetLoginSpan(ctx context.Context, peer string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{NetPeer(peer)}, attrs...)
	return StartSpan(ctx, SpanTargetLogin,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(all...))
}

// RunID returns an attribute for the run identifier
func RunID(id string) attribute.KeyValue {
	return attribute.String(AttrRunID, id)
}

// ServerAddress returns an attribute for the probed host
func ServerAddress(host string) attribute.KeyValue {
	return attribute.String(AttrServerAddress, host)
}

// ServerPort returns an attribute for the probed port
func ServerPort(port int) attribute.KeyValue {
	return attribute.Int(AttrServerPort, port)
}

// NetPeer returns an attribute for a remote peer address
func NetPeer(addr string) attribute.KeyValue {
	return attribute.String(AttrNetPeer, addr)
}

// Suite returns an attribute for the scenario suite
func Suite(name string) attribute.KeyValue {
	return attribute.String(AttrSuite, name)
}

// Outcome returns an attribute for a scenario outcome
func Outcome(o string) attribute.KeyValue {
	return attribute.String(AttrOutcome, o)
}

// Passed returns an attribute for the number of passing scenarios
func Passed(n int) attribute.KeyValue {
	return attribute.Int(AttrPassed, n)
}

// Failed returns an attribute for the number of failing scenarios
func Failed(n int) attribute.KeyValue {
	return attribute.Int(AttrFailed, n)
}

// Scenario returns an attribute for a scenario name
func Scenario(name string) attribute.KeyValue {
	return attribute.String(AttrScenario, name)
}

// ISID returns an attribute with the ISID in hex
func ISID(isid []byte) attribute.KeyValue {
	return attribute.String(AttrISID, hex.EncodeToString(isid))
}

// TSIH returns an attribute for a target session handle
func TSIH(tsih uint16) attribute.KeyValue {
	return attribute.Int(AttrTSIH, int(tsih))
}

// ITT returns an attribute for an initiator task tag
func ITT(itt uint32) attribute.KeyValue {
	return attribute.Int64(AttrITT, int64(itt))
}

// CmdSN returns an attribute for a command sequence number
func CmdSN(sn uint32) attribute.KeyValue {
	return attribute.Int64(AttrCmdSN, int64(sn))
}

// Status returns an attribute for the observed login status (hex form)
func Status(hex string) attribute.KeyValue {
	return attribute.String(AttrStatus, hex)
}

// StatusName returns an attribute for the symbolic status name
func StatusName(name string) attribute.KeyValue {
	return attribute.String(AttrStatusName, name)
}

// ExpectedStatus returns an attribute for the expected login status
func ExpectedStatus(hex string) attribute.KeyValue {
	return attribute.String(AttrExpectedStatus, hex)
}

// BytesSent returns an attribute for request size
func BytesSent(n int) attribute.KeyValue {
	return attribute.Int(AttrBytesSent, n)
}

// BytesRead returns an attribute for bytes received
func BytesRead(n int) attribute.KeyValue {
	return attribute.Int(AttrBytesRead, n)
}

// InitiatorName returns an attribute for the InitiatorName key
func InitiatorName(name string) attribute.KeyValue {
	return attribute.String(AttrInitiatorName, name)
}

// TargetName returns an attribute for the TargetName key
func TargetName(name string) attribute.KeyValue {
	return attribute.String(AttrTargetName, name)
}

// SessionType returns an attribute for the SessionType key
func SessionType(t string) attribute.KeyValue {
	return attribute.String(AttrSessionType, t)
}
