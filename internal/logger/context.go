package logger

import (
	"context"
	"time"
)

type ctxKey struct{}

// LogContext carries the fields every log line of a probe run repeats.
// The *Ctx logging functions read it from the context.
type LogContext struct {
	RunID    string
	Target   string // host:port
	Scenario string // empty outside a scenario

	TraceID string
	SpanID  string

	StartTime time.Time
}

// NewLogContext starts the clock for one run against target.
func NewLogContext(runID, target string) *LogContext {
	return &LogContext{RunID: runID, Target: target, StartTime: time.Now()}
}

// WithContext attaches lc to ctx.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, lc)
}

// FromContext returns the LogContext attached to ctx, or nil.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(ctxKey{}).(*LogContext)
	return lc
}

// Clone returns a shallow copy. A nil receiver yields nil.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	c := *lc
	return &c
}

// WithScenario scopes a copy to one scenario and restarts its clock.
func (lc *LogContext) WithScenario(name string) *LogContext {
	return lc.with(func(c *LogContext) {
		c.Scenario = name
		c.StartTime = time.Now()
	})
}

// WithTrace returns a copy tagged with the active span.
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	return lc.with(func(c *LogContext) {
		c.TraceID, c.SpanID = traceID, spanID
	})
}

func (lc *LogContext) with(set func(*LogContext)) *LogContext {
	c := lc.Clone()
	if c != nil {
		set(c)
	}
	return c
}

// DurationMs is the time since StartTime in milliseconds.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return Duration(lc.StartTime)
}
