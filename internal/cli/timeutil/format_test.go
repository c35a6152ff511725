package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{-time.Second, "0s"},
		{42 * time.Second, "42s"},
		{5*time.Minute + 3*time.Second, "5m 3s"},
		{2*time.Hour + 30*time.Second, "2h 0m 30s"},
		{72*time.Hour + 30*time.Minute + 15*time.Second, "3d 0h 30m 15s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatUptime(tt.in), tt.in.String())
	}
}

func TestFormatMillis(t *testing.T) {
	assert.Equal(t, "0.4ms", FormatMillis(0.4))
	assert.Equal(t, "12.3ms", FormatMillis(12.34))
	assert.Equal(t, "1.50s", FormatMillis(1500))
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "-", FormatTime(time.Time{}))
	ts := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, ts.Local().Format(LocalTimeFormat), FormatTime(ts))
}
