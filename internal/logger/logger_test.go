package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects logger output to a buffer for testing.
// Returns the buffer and a cleanup function to restore original output.
func captureOutput() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)

	mu.Lock()
	originalOutput := output
	originalColor := useColor
	output = buf
	useColor = false
	mu.Unlock()

	originalLevel := Level(currentLevel.Load())
	originalFormat, _ := currentFormat.Load().(string)

	reconfigure()

	cleanup := func() {
		mu.Lock()
		output = originalOutput
		useColor = originalColor
		mu.Unlock()
		currentLevel.Store(int32(originalLevel))
		currentFormat.Store(originalFormat)
		reconfigure()
	}

	return buf, cleanup
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level   string
		present []string
		absent  []string
	}{
		{"DEBUG", []string{"DEBUG", "INFO", "WARN", "ERROR"}, nil},
		{"INFO", []string{"INFO", "WARN", "ERROR"}, []string{"DEBUG"}},
		{"WARN", []string{"WARN", "ERROR"}, []string{"DEBUG", "INFO"}},
		{"ERROR", []string{"ERROR"}, []string{"DEBUG", "INFO", "WARN"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf, cleanup := captureOutput()
			defer cleanup()

			SetLevel(tt.level)

			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message")

			out := buf.String()
			for _, s := range tt.present {
				assert.Contains(t, out, "["+s+"]")
			}
			for _, s := range tt.absent {
				assert.NotContains(t, out, "["+s+"]")
			}
		})
	}
}

func TestSetLevel(t *testing.T) {
	_, cleanup := captureOutput()
	defer cleanup()

	SetLevel("debug")
	assert.Equal(t, LevelDebug, GetLevel())

	SetLevel("warning")
	assert.Equal(t, LevelWarn, GetLevel())

	SetLevel("bogus")
	assert.Equal(t, LevelWarn, GetLevel(), "invalid level must be ignored")
}

func TestParseLevel(t *testing.T) {
	l, ok := ParseLevel(" Error ")
	assert.True(t, ok)
	assert.Equal(t, LevelError, l)

	_, ok = ParseLevel("trace")
	assert.False(t, ok)

	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestTextFormat(t *testing.T) {
	t.Run("KeyValuePairs", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()
		SetLevel("INFO")
		SetFormat("text")

		Info("scenario finished", KeyScenario, "login_success", KeyBytesRead, 48)

		out := buf.String()
		assert.Contains(t, out, "[INFO] scenario finished")
		assert.Contains(t, out, "scenario=login_success")
		assert.Contains(t, out, "bytes_read=48")
		assert.True(t, strings.HasSuffix(out, "\n"))
	})

	t.Run("QuotesValuesWithSpaces", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()
		SetLevel("INFO")

		Info("dial failed", Err(errors.New("connection refused")), KeyTarget, "")

		out := buf.String()
		assert.Contains(t, out, `error="connection refused"`)
		assert.Contains(t, out, `target=""`)
	})

	t.Run("Groups", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()
		SetLevel("INFO")

		With(KeyRunID, "r1").WithGroup("login").Info("response", "tsih", 1, slog.Group("status", "class", 2))

		out := buf.String()
		assert.Contains(t, out, "run_id=r1")
		assert.Contains(t, out, "login.tsih=1")
		assert.Contains(t, out, "login.status.class=2")
	})

	t.Run("Color", func(t *testing.T) {
		var buf bytes.Buffer
		h := NewColorTextHandler(&buf, nil, true)
		slog.New(h).Warn("careful", "k", "v")

		out := buf.String()
		assert.Contains(t, out, colorYellow+"WARN"+colorReset)
		assert.Contains(t, out, colorCyan+"k"+colorReset+"=v")
	})
}

func TestJSONFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	SetFormat("json")

	Info("scenario finished", Scenario("login_missing_initiator"), Status("0x0207"), DurationMs(1.5))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "scenario finished", entry["msg"])
	assert.Equal(t, "login_missing_initiator", entry[KeyScenario])
	assert.Equal(t, "0x0207", entry[KeyStatus])
	assert.InDelta(t, 1.5, entry[KeyDurationMs], 0.0001)
}

func TestFormatSwitching(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()
	SetLevel("INFO")

	SetFormat("json")
	Info("first")
	SetFormat("xml") // ignored
	Info("second")
	SetFormat("text")
	Info("third")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, json.Valid([]byte(lines[0])))
	assert.True(t, json.Valid([]byte(lines[1])))
	assert.Contains(t, lines[2], "[INFO] third")
}

func TestContextLogging(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()
	SetLevel("DEBUG")

	lc := NewLogContext("run-1", "127.0.0.1:3260").
		WithScenario("login_success").
		WithTrace("abc", "def")
	ctx := WithContext(context.Background(), lc)

	DebugCtx(ctx, "sending login", KeyDataLen, 80)
	InfoCtx(ctx, "info")
	WarnCtx(ctx, "warn")
	ErrorCtx(ctx, "error")
	InfoCtx(context.Background(), "no context")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	first := lines[0]
	assert.Contains(t, first, "run_id=run-1")
	assert.Contains(t, first, "trace_id=abc")
	assert.Contains(t, first, "span_id=def")
	assert.Contains(t, first, "target=127.0.0.1:3260")
	assert.Contains(t, first, "scenario=login_success")
	assert.Contains(t, first, "data_len=80")
	assert.Less(t, strings.Index(first, "run_id"), strings.Index(first, "data_len"))

	assert.NotContains(t, lines[4], "run_id")
}

func TestLogContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	//nolint:staticcheck // nil context is tolerated
	assert.Nil(t, FromContext(nil))

	var nilLC *LogContext
	assert.Nil(t, nilLC.Clone())
	assert.Nil(t, nilLC.WithScenario("x"))
	assert.Zero(t, nilLC.DurationMs())

	lc := NewLogContext("run", "host:1")
	scoped := lc.WithScenario("s1")
	assert.Empty(t, lc.Scenario, "WithScenario must not mutate the receiver")
	assert.Equal(t, "s1", scoped.Scenario)
	assert.Equal(t, "run", scoped.RunID)
	assert.GreaterOrEqual(t, scoped.DurationMs(), 0.0)
}

func TestFieldHelpers(t *testing.T) {
	assert.Equal(t, "00023d000001", ISID([]byte{0x00, 0x02, 0x3d, 0x00, 0x00, 0x01}).Value.String())
	assert.Equal(t, "", Err(nil).Value.String())
	assert.Equal(t, "boom", Err(errors.New("boom")).Value.String())
	assert.Equal(t, KeyTSIH, TSIH(1).Key)
	assert.Equal(t, uint64(7), ITT(7).Value.Uint64())
}

func TestConcurrentLogging(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()
	SetLevel("INFO")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				Info("concurrent", KeyCount, n)
			}
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 200)
}

func TestPrintfStyleLogging(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()
	SetLevel("DEBUG")

	Debugf("sent %d bytes", 80)
	Infof("listening on %s", "127.0.0.1:3260")
	Warnf("scenario %q mismatched", "x")
	Errorf("fatal: %v", errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "sent 80 bytes")
	assert.Contains(t, out, "listening on 127.0.0.1:3260")
	assert.Contains(t, out, `scenario "x" mismatched`)
	assert.Contains(t, out, "fatal: boom")
}

func TestInit(t *testing.T) {
	t.Run("FileOutput", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		path := filepath.Join(t.TempDir(), "probe.log")
		require.NoError(t, Init(Config{Level: "info", Format: "json", Output: path}))
		Info("to file")
		require.NoError(t, Init(Config{Output: "stderr"}))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"msg":"to file"`)
	})

	t.Run("InvalidLevel", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()
		assert.Error(t, Init(Config{Level: "loud"}))
	})

	t.Run("InvalidFormat", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()
		assert.Error(t, Init(Config{Format: "xml"}))
	})

	t.Run("UnwritablePath", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()
		err := Init(Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
		assert.Error(t, err)
	})
}

func TestInitWithWriter(t *testing.T) {
	_, cleanup := captureOutput()
	defer cleanup()

	var buf bytes.Buffer
	InitWithWriter(&buf, "WARN", "text", false)
	Info("hidden")
	Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
