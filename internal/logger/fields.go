package logger

import (
	"encoding/hex"
	"log/slog"
)

// Standard field keys for structured logging. Use these consistently so
// JSON logs from different runs can be queried the same way.
const (
	// Tracing and correlation
	KeyRunID   = "run_id"
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Probe
	KeyTarget   = "target"   // host:port
	KeyScenario = "scenario" // scenario name
	KeySuite    = "suite"    // core or extended
	KeyOutcome  = "outcome"  // pass, mismatch, no_result, error
	KeyStatus   = "status"   // observed login status (hex)
	KeyExpected = "expected" // expected login status (hex)

	// iSCSI session identifiers
	KeyISID      = "isid"
	KeyTSIH      = "tsih"
	KeyITT       = "itt"
	KeyOpcode    = "opcode"
	KeyBytesRead = "bytes_read"
	KeyDataLen   = "data_len"

	// Simulated target
	KeyListen     = "listen"
	KeyClientAddr = "client_addr"
	KeyInitiator  = "initiator"

	// Operation metadata
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyCount      = "count"
	KeyPath       = "path"
)

// RunID returns a slog.Attr for the run identifier
func RunID(id string) slog.Attr {
	return slog.String(KeyRunID, id)
}

// TraceID returns a slog.Attr for trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// Target returns a slog.Attr for the probed endpoint
func Target(addr string) slog.Attr {
	return slog.String(KeyTarget, addr)
}

// Scenario returns a slog.Attr for a scenario name
func Scenario(name string) slog.Attr {
	return slog.String(KeyScenario, name)
}

// Suite returns a slog.Attr for the scenario suite
func Suite(name string) slog.Attr {
	return slog.String(KeySuite, name)
}

// Outcome returns a slog.Attr for a scenario outcome
func Outcome(o string) slog.Attr {
	return slog.String(KeyOutcome, o)
}

// Status returns a slog.Attr for an observed status. fmt.Stringer values
// keep their own formatting.
func Status(s any) slog.Attr {
	return slog.Any(KeyStatus, s)
}

// Expected returns a slog.Attr for an expected status
func Expected(s any) slog.Attr {
	return slog.Any(KeyExpected, s)
}

// ISID returns a slog.Attr with the ISID in hex
func ISID(isid []byte) slog.Attr {
	return slog.String(KeyISID, hex.EncodeToString(isid))
}

// TSIH returns a slog.Attr for a target session handle
func TSIH(tsih uint16) slog.Attr {
	return slog.Int(KeyTSIH, int(tsih))
}

// ITT returns a slog.Attr for an initiator task tag
func ITT(itt uint32) slog.Attr {
	return slog.Uint64(KeyITT, uint64(itt))
}

// Opcode returns a slog.Attr for a PDU opcode
func Opcode(op uint8) slog.Attr {
	return slog.Int(KeyOpcode, int(op))
}

// BytesRead returns a slog.Attr for bytes received
func BytesRead(n int) slog.Attr {
	return slog.Int(KeyBytesRead, n)
}

// DataLen returns a slog.Attr for a data segment length
func DataLen(n int) slog.Attr {
	return slog.Int(KeyDataLen, n)
}

// Listen returns a slog.Attr for a listen address
func Listen(addr string) slog.Attr {
	return slog.String(KeyListen, addr)
}

// ClientAddr returns a slog.Attr for a remote peer address
func ClientAddr(addr string) slog.Attr {
	return slog.String(KeyClientAddr, addr)
}

// Initiator returns a slog.Attr for an initiator IQN
func Initiator(name string) slog.Attr {
	return slog.String(KeyInitiator, name)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// Count returns a slog.Attr for a count
func Count(n int) slog.Attr {
	return slog.Int(KeyCount, n)
}

// Path returns a slog.Attr for a file path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}
