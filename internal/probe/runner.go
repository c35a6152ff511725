package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/marmos91/iscsiprobe/internal/logger"
	"github.com/marmos91/iscsiprobe/internal/protocol/iscsi/header"
	"github.com/marmos91/iscsiprobe/internal/protocol/iscsi/login"
	"github.com/marmos91/iscsiprobe/internal/telemetry"
	"github.com/marmos91/iscsiprobe/pkg/metrics"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultTimeout        = 5 * time.Second
	DefaultReadBufferSize = 1024
)

// ErrNoResponse wraps every failure to decode a Login Response from the
// bytes the target returned.
var ErrNoResponse = errors.New("no login response")

// Options configures a Runner.
type Options struct {
	// Host and Port locate the target portal.
	Host string
	Port int

	// Timeout bounds the dial and, as a connection deadline, the whole
	// exchange of each scenario.
	Timeout time.Duration

	// ReadBufferSize is the most bytes read for a response. Values below
	// the 48-byte header are raised to it.
	ReadBufferSize int

	// Suite is recorded on reports and spans only.
	Suite string
}

// Runner executes scenarios against one target.
type Runner struct {
	host    string
	port    int
	addr    string
	timeout time.Duration
	bufSize int
	suite   string
	dialer  net.Dialer
	metrics metrics.ProbeMetrics
}

// NewRunner creates a Runner. m may be nil to disable metrics.
func NewRunner(opts Options, m metrics.ProbeMetrics) *Runner {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.ReadBufferSize <= 0 {
		opts.ReadBufferSize = DefaultReadBufferSize
	}
	if opts.ReadBufferSize < header.Size {
		opts.ReadBufferSize = header.Size
	}

	return &Runner{
		host:    opts.Host,
		port:    opts.Port,
		addr:    net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
		timeout: opts.Timeout,
		bufSize: opts.ReadBufferSize,
		suite:   opts.Suite,
		dialer:  net.Dialer{Timeout: opts.Timeout},
		metrics: m,
	}
}

// Addr returns the host:port being probed.
func (r *Runner) Addr() string {
	return r.addr
}

// Run executes scenarios in order and returns the report. Every scenario
// gets a result: once ctx is done the remaining ones fail with the
// context error without touching the network.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) *Report {
	report := newReport(r.addr)
	report.Suite = r.suite

	ctx, span := telemetry.StartRunSpan(ctx, report.RunID, r.host, r.port, len(scenarios))
	defer span.End()
	if r.suite != "" {
		span.SetAttributes(telemetry.Suite(r.suite))
	}

	lc := logger.NewLogContext(report.RunID, r.addr)
	if telemetry.IsEnabled() {
		lc = lc.WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))
	}
	ctx = logger.WithContext(ctx, lc)

	logger.InfoCtx(ctx, "Probe run started", logger.Suite(r.suite), logger.Count(len(scenarios)))

	for _, s := range scenarios {
		if err := ctx.Err(); err != nil {
			res := newResult(s)
			res.fail(fmt.Errorf("scenario not run: %w", err))
			report.add(res)
			continue
		}
		report.add(r.runScenario(ctx, s))
	}

	report.Duration = time.Since(report.StartedAt)
	report.DurationMs = milliseconds(report.Duration)

	span.SetAttributes(
		telemetry.Passed(report.Passed),
		telemetry.Failed(report.Failed),
	)
	if report.AllPassed() {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, fmt.Sprintf("%d of %d scenarios failed", report.Failed, report.Total()))
	}

	if r.metrics != nil {
		r.metrics.RecordRun(report.Passed, report.Failed, report.Duration)
	}

	logger.InfoCtx(ctx, "Probe run finished",
		"passed", report.Passed,
		"failed", report.Failed,
		logger.DurationMs(report.DurationMs),
	)

	return report
}

// runScenario performs one exchange. The connection never outlives it.
func (r *Runner) runScenario(ctx context.Context, s Scenario) Result {
	res := newResult(s)
	start := time.Now()

	ctx, span := telemetry.StartScenarioSpan(ctx, s.Name, s.ISID[:],
		telemetry.ExpectedStatus(s.Expected.Hex()),
	)
	defer span.End()

	lc := logger.FromContext(ctx).WithScenario(s.Name)
	ctx = logger.WithContext(ctx, lc)

	resp, err := r.exchange(ctx, s, &res)

	res.Duration = time.Since(start)
	res.DurationMs = milliseconds(res.Duration)

	status := ""
	if err != nil {
		res.fail(err)
		telemetry.RecordError(ctx, err)
		logger.WarnCtx(ctx, "Scenario failed without a status",
			logger.Outcome(string(res.Outcome)),
			logger.Err(err),
		)
	} else {
		res.judge(resp)
		status = resp.Status.Hex()
		span.SetAttributes(
			telemetry.Status(status),
			telemetry.StatusName(resp.Status.String()),
			telemetry.TSIH(resp.TSIH),
		)
		logger.DebugCtx(ctx, "Scenario finished",
			logger.Outcome(string(res.Outcome)),
			logger.Status(resp.Status),
			logger.Expected(s.Expected),
			logger.TSIH(resp.TSIH),
			logger.DurationMs(res.DurationMs),
		)
	}

	span.SetAttributes(telemetry.Outcome(string(res.Outcome)))
	if res.Passed() {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, res.Verdict())
	}

	if r.metrics != nil {
		r.metrics.RecordScenario(s.Name, string(res.Outcome), status, res.Duration)
	}

	return res
}

// exchange dials, writes the request, reads the response and decodes its
// header. Byte counts are recorded on res as they happen.
func (r *Runner) exchange(ctx context.Context, s Scenario, res *Result) (*login.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	conn, err := r.dialer.DialContext(ctx, "tcp", r.addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", r.addr, err)
	}
	defer func() { _ = conn.Close() }()

	telemetry.AddEvent(ctx, telemetry.EventDialed, telemetry.NetPeer(conn.RemoteAddr().String()))

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, fmt.Errorf("set deadline: %w", err)
		}
	}
	// Cancellation unblocks a pending read or write.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	req := s.Request()
	pdu := req.Encode()

	n, err := conn.Write(pdu)
	res.BytesSent = n
	r.recordBytes("sent", n)
	if err != nil {
		return nil, fmt.Errorf("write login request: %w", err)
	}
	telemetry.AddEvent(ctx, telemetry.EventRequestSent,
		telemetry.BytesSent(n),
		telemetry.ITT(req.CmdSN),
		telemetry.CmdSN(req.CmdSN),
	)
	logger.DebugCtx(ctx, "Login request sent",
		logger.ISID(s.ISID[:]),
		logger.DataLen(n-header.Size),
		"params", s.Params.String(),
	)

	buf := make([]byte, r.bufSize)
	n, err = io.ReadAtLeast(conn, buf, header.Size)
	res.BytesRead = n
	r.recordBytes("received", n)
	telemetry.AddEvent(ctx, telemetry.EventResponseRead, telemetry.BytesRead(n))
	if err != nil {
		return nil, classifyReadError(n, err)
	}
	buf = buf[:n]

	resp, err := login.ParseResponse(buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoResponse, err)
	}

	// The text segment is informational; a truncated one still leaves the
	// status usable.
	if err := login.ParseResponseText(buf, resp); err != nil {
		logger.DebugCtx(ctx, "Login response text segment incomplete", logger.Err(err))
	}

	logger.DebugCtx(ctx, "Login response received",
		logger.BytesRead(n),
		logger.Opcode(resp.Opcode),
		logger.Status(resp.Status),
		logger.ITT(resp.ITT),
	)

	return resp, nil
}

// classifyReadError separates a response that ended early, which is a
// decode failure, from a transport failure such as a timeout or reset.
func classifyReadError(n int, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: connection closed after %d bytes: %w", ErrNoResponse, n, header.ErrMessageTooShort)
	}
	var netErr net.Error
	if n > 0 && errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %d bytes before timeout: %w", ErrNoResponse, n, header.ErrMessageTooShort)
	}
	return fmt.Errorf("read login response: %w", err)
}

func (r *Runner) recordBytes(direction string, n int) {
	if r.metrics != nil && n > 0 {
		r.metrics.RecordBytes(direction, n)
	}
}
