package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// withRecorder routes spans to an in-memory recorder for the duration of
// the test.
func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	prevTracer, prevEnabled := tracer, enabled
	sr := tracetest.NewSpanRecorder()
	UseTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))

	t.Cleanup(func() {
		tracer, enabled = prevTracer, prevEnabled
	})
	return sr
}

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value
	}
	return m
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "iscsiprobe", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()

	shutdown, err := Init(ctx, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	assert.NoError(t, shutdown(ctx))
	assert.False(t, IsEnabled())
	assert.NotNil(t, Tracer())
}

func TestTracerReturnsNoOpWhenUnset(t *testing.T) {
	prev := tracer
	tracer = nil
	defer func() { tracer = prev }()

	tr := Tracer()
	require.NotNil(t, tr)

	ctx, span := StartSpan(context.Background(), "noop")
	defer span.End()
	assert.Empty(t, TraceID(ctx))
	assert.False(t, span.SpanContext().IsValid())
}

func TestSamplerFor(t *testing.T) {
	assert.Contains(t, samplerFor(1).Description(), "AlwaysOn")
	assert.Contains(t, samplerFor(2).Description(), "AlwaysOn")
	assert.Contains(t, samplerFor(0).Description(), "AlwaysOff")
	assert.Contains(t, samplerFor(0.25).Description(), "TraceIDRatioBased")
}

func TestSpanHelpersWithoutActiveSpan(t *testing.T) {
	ctx := context.Background()

	require.NotPanics(t, func() {
		AddEvent(ctx, EventDialed)
		RecordError(ctx, nil)
		RecordError(ctx, errors.New("boom"))
	})
	assert.Empty(t, TraceID(ctx))
	assert.Empty(t, SpanID(ctx))
}

func TestRunAndScenarioSpans(t *testing.T) {
	sr := withRecorder(t)
	assert.True(t, IsEnabled())

	ctx, run := StartRunSpan(context.Background(), "run-1", "127.0.0.1", 3260, 3)
	require.NotEmpty(t, TraceID(ctx))
	require.NotEmpty(t, SpanID(ctx))

	sctx, scenario := StartScenarioSpan(ctx, "login_success", []byte{0x00, 0x02, 0x3d, 0x00, 0x00, 0x01},
		ExpectedStatus("0x0000"))
	AddEvent(sctx, EventRequestSent, BytesSent(96))
	RecordError(sctx, errors.New("read: connection reset"))
	scenario.End()
	run.End()

	ended := sr.Ended()
	require.Len(t, ended, 2)

	s := ended[0]
	assert.Equal(t, SpanProbeScenario, s.Name())
	assert.Equal(t, run.SpanContext().SpanID(), s.Parent().SpanID())
	assert.Equal(t, codes.Error, s.Status().Code)

	attrs := attrMap(s.Attributes())
	assert.Equal(t, "login_success", attrs[AttrScenario].AsString())
	assert.Equal(t, "00023d000001", attrs[AttrISID].AsString())
	assert.Equal(t, "0x0000", attrs[AttrExpectedStatus].AsString())
	assert.Equal(t, "tcp", attrs[AttrNetTransport].AsString())

	require.Len(t, s.Events(), 2) // request_sent + exception
	assert.Equal(t, EventRequestSent, s.Events()[0].Name)

	r := ended[1]
	assert.Equal(t, SpanProbeRun, r.Name())
	rattrs := attrMap(r.Attributes())
	assert.Equal(t, "run-1", rattrs[AttrRunID].AsString())
	assert.Equal(t, "127.0.0.1", rattrs[AttrServerAddress].AsString())
	assert.Equal(t, int64(3260), rattrs[AttrServerPort].AsInt64())
	assert.Equal(t, int64(3), rattrs[AttrScenarios].AsInt64())
}

func TestTargetLoginSpan(t *testing.T) {
	sr := withRecorder(t)

	_, span := StartTargetLoginSpan(context.Background(), "127.0.0.1:50000", InitiatorName("iqn.x"), TSIH(1))
	span.End()

	ended := sr.Ended()
	require.Len(t, ended, 1)
	attrs := attrMap(ended[0].Attributes())
	assert.Equal(t, "127.0.0.1:50000", attrs[AttrNetPeer].AsString())
	assert.Equal(t, "iqn.x", attrs[AttrInitiatorName].AsString())
	assert.Equal(t, int64(1), attrs[AttrTSIH].AsInt64())
}

func TestAttributeHelpers(t *testing.T) {
	tests := []struct {
		attr attribute.KeyValue
		key  string
		want any
	}{
		{Suite("core"), AttrSuite, "core"},
		{Outcome("pass"), AttrOutcome, "pass"},
		{ITT(0xFFFFFFFF), AttrITT, int64(0xFFFFFFFF)},
		{CmdSN(7), AttrCmdSN, int64(7)},
		{Status("0x0203"), AttrStatus, "0x0203"},
		{StatusName("TARGET_NOT_FOUND"), AttrStatusName, "TARGET_NOT_FOUND"},
		{BytesRead(48), AttrBytesRead, int64(48)},
		{TargetName("iqn.t"), AttrTargetName, "iqn.t"},
		{SessionType("Discovery"), AttrSessionType, "Discovery"},
		{NetPeer("10.0.0.1:3260"), AttrNetPeer, "10.0.0.1:3260"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.key, string(tt.attr.Key))
			assert.Equal(t, tt.want, tt.attr.Value.AsInterface())
		})
	}
}

func TestProfilingDisabled(t *testing.T) {
	shutdown, err := InitProfiling(DefaultProfilingConfig())
	require.NoError(t, err)
	assert.NoError(t, shutdown())
	assert.False(t, IsProfilingEnabled())
}

func TestParseProfileType(t *testing.T) {
	for _, name := range DefaultProfilingConfig().ProfileTypes {
		_, err := parseProfileType(name)
		assert.NoError(t, err, name)
	}
	_, err := parseProfileType("heap")
	assert.Error(t, err)

	_, err = InitProfiling(ProfilingConfig{Enabled: true, ProfileTypes: []string{"heap"}})
	assert.Error(t, err)
}
