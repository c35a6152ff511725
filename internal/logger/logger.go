// Package logger is a thin process-wide wrapper around log/slog.
//
// Everything the probe prints for humans or machines (the report, the final
// summary) goes to stdout through the output package; diagnostics go through
// this package and default to stderr so they never interleave with the
// report.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Level represents log levels
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Config holds logger configuration
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or file path
}

var (
	currentLevel  atomic.Int32
	currentFormat atomic.Value // "text" or "json"

	mu       sync.RWMutex
	handler  slog.Handler
	slogger  *slog.Logger
	output   io.Writer = os.Stderr
	useColor bool
	closer   io.Closer
)

func init() {
	currentLevel.Store(int32(LevelWarn))
	currentFormat.Store("text")

	if f, ok := output.(*os.File); ok {
		useColor = isTerminal(f.Fd())
	}

	reconfigure()
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name to a Level. Unknown names report false.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	default:
		return LevelInfo, false
	}
}

func toSlogLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// reconfigure rebuilds the slog handler based on current settings
func reconfigure() {
	mu.Lock()
	defer mu.Unlock()

	format, _ := currentFormat.Load().(string)

	levelVar := new(slog.LevelVar)
	levelVar.Set(toSlogLevel(Level(currentLevel.Load())))

	opts := &slog.HandlerOptions{Level: levelVar}

	if format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = NewColorTextHandler(output, opts, useColor)
	}

	slogger = slog.New(handler)
}

// Init initializes the logger with the given configuration.
// Output can be "stdout", "stderr", or a file path.
func Init(cfg Config) error {
	if cfg.Output != "" {
		var newOutput io.Writer
		var newUseColor bool
		var newCloser io.Closer

		switch strings.ToLower(cfg.Output) {
		case "stdout":
			newOutput = os.Stdout
			newUseColor = isTerminal(os.Stdout.Fd())
		case "stderr":
			newOutput = os.Stderr
			newUseColor = isTerminal(os.Stderr.Fd())
		default:
			f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return fmt.Errorf("failed to open log file %q: %w", cfg.Output, err)
			}
			newOutput = f
			newCloser = f
		}

		mu.Lock()
		if closer != nil {
			_ = closer.Close()
		}
		output = newOutput
		useColor = newUseColor
		closer = newCloser
		mu.Unlock()
	}

	if cfg.Level != "" {
		if _, ok := ParseLevel(cfg.Level); !ok {
			return fmt.Errorf("invalid log level %q", cfg.Level)
		}
	}
	if cfg.Format != "" {
		if f := strings.ToLower(cfg.Format); f != "text" && f != "json" {
			return fmt.Errorf("invalid log format %q", cfg.Format)
		}
	}

	SetLevel(cfg.Level)
	SetFormat(cfg.Format)
	reconfigure()
	return nil
}

// InitWithWriter initializes the logger with a custom io.Writer.
// This is primarily useful for testing.
func InitWithWriter(w io.Writer, level, format string, enableColor bool) {
	mu.Lock()
	output = w
	useColor = enableColor
	mu.Unlock()

	SetLevel(level)
	SetFormat(format)
	reconfigure()
}

// SetLevel sets the minimum log level. Invalid levels are ignored.
func SetLevel(level string) {
	l, ok := ParseLevel(level)
	if !ok {
		return
	}
	currentLevel.Store(int32(l))
	reconfigure()
}

// GetLevel returns the current minimum level.
func GetLevel() Level {
	return Level(currentLevel.Load())
}

// SetFormat sets the output format (text or json)
func SetFormat(format string) {
	format = strings.ToLower(format)
	if format != "text" && format != "json" {
		return
	}
	currentFormat.Store(format)
	reconfigure()
}

func getLogger() *slog.Logger {
	mu.RLock()
	l := slogger
	mu.RUnlock()
	return l
}

func enabled(l Level) bool {
	return l >= Level(currentLevel.Load())
}

// Debug logs at debug level with structured fields
// Usage: Debug("message", "key1", value1, "key2", value2)
func Debug(msg string, args ...any) {
	if !enabled(LevelDebug) {
		return
	}
	getLogger().Debug(msg, args...)
}

// Info logs at info level with structured fields
func Info(msg string, args ...any) {
	if !enabled(LevelInfo) {
		return
	}
	getLogger().Info(msg, args...)
}

// Warn logs at warn level with structured fields
func Warn(msg string, args ...any) {
	if !enabled(LevelWarn) {
		return
	}
	getLogger().Warn(msg, args...)
}

// Error logs at error level with structured fields
func Error(msg string, args ...any) {
	getLogger().Error(msg, args...)
}

// DebugCtx logs at debug level, prefixing the LogContext fields from ctx.
func DebugCtx(ctx context.Context, msg string, args ...any) {
	if !enabled(LevelDebug) {
		return
	}
	getLogger().Debug(msg, appendContextFields(ctx, args)...)
}

// InfoCtx logs at info level with context
func InfoCtx(ctx context.Context, msg string, args ...any) {
	if !enabled(LevelInfo) {
		return
	}
	getLogger().Info(msg, appendContextFields(ctx, args)...)
}

// WarnCtx logs at warn level with context
func WarnCtx(ctx context.Context, msg string, args ...any) {
	if !enabled(LevelWarn) {
		return
	}
	getLogger().Warn(msg, appendContextFields(ctx, args)...)
}

// ErrorCtx logs at error level with context
func ErrorCtx(ctx context.Context, msg string, args ...any) {
	getLogger().Error(msg, appendContextFields(ctx, args)...)
}

// appendContextFields prepends LogContext fields so they appear first.
func appendContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	ctxArgs := make([]any, 0, 10+len(args))

	if lc.RunID != "" {
		ctxArgs = append(ctxArgs, KeyRunID, lc.RunID)
	}
	if lc.TraceID != "" {
		ctxArgs = append(ctxArgs, KeyTraceID, lc.TraceID)
	}
	if lc.SpanID != "" {
		ctxArgs = append(ctxArgs, KeySpanID, lc.SpanID)
	}
	if lc.Target != "" {
		ctxArgs = append(ctxArgs, KeyTarget, lc.Target)
	}
	if lc.Scenario != "" {
		ctxArgs = append(ctxArgs, KeyScenario, lc.Scenario)
	}

	return append(ctxArgs, args...)
}

// With returns a new slog.Logger with additional attributes
func With(args ...any) *slog.Logger {
	return getLogger().With(args...)
}

// Duration returns duration since start time in milliseconds
func Duration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// Debugf logs at debug level with printf-style formatting
func Debugf(format string, v ...any) {
	if !enabled(LevelDebug) {
		return
	}
	getLogger().Debug(fmt.Sprintf(format, v...))
}

// Infof logs at info level with printf-style formatting
func Infof(format string, v ...any) {
	if !enabled(LevelInfo) {
		return
	}
	getLogger().Info(fmt.Sprintf(format, v...))
}

// Warnf logs at warn level with printf-style formatting
func Warnf(format string, v ...any) {
	if !enabled(LevelWarn) {
		return
	}
	getLogger().Warn(fmt.Sprintf(format, v...))
}

// Errorf logs at error level with printf-style formatting
func Errorf(format string, v ...any) {
	getLogger().Error(fmt.Sprintf(format, v...))
}

// IsTerminal reports whether f is attached to a terminal. The CLI uses it to
// decide whether verdict lines are colored.
func IsTerminal(f *os.File) bool {
	return f != nil && isTerminal(f.Fd())
}
