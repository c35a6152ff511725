package commands

import (
	"bytes"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/iscsiprobe/internal/probe"
	"github.com/marmos91/iscsiprobe/internal/protocol/iscsi/login"
	"github.com/marmos91/iscsiprobe/internal/protocol/iscsi/types"
)

func httpGet(url string) (int, error) {
	client := &http.Client{Timeout: time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

func sampleReport() *probe.Report {
	return &probe.Report{
		Target: "127.0.0.1:3260",
		Passed: 1,
		Failed: 1,
		Results: []probe.Result{
			{
				Scenario:   "target_not_found",
				Outcome:    probe.OutcomePass,
				Expected:   types.StatusTargetNotFound,
				DurationMs: 1.24,
				Response:   &login.Response{Status: types.StatusTargetNotFound},
			},
			{
				Scenario: "login_success",
				Outcome:  probe.OutcomeError,
				Expected: types.StatusSuccess,
				Err:      errors.New("dial tcp 127.0.0.1:3260: connect: connection refused"),
				Error:    "dial tcp 127.0.0.1:3260: connect: connection refused",
			},
		},
	}
}

func TestReportView_RenderText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, reportView{sampleReport()}.RenderText(&buf, false))

	want := "Testing target at 127.0.0.1:3260\n" +
		"  [PASS] target_not_found: got 0x0203 (TARGET_NOT_FOUND), expected 0x0203 (TARGET_NOT_FOUND)\n" +
		"  [FAIL] login_success: error: dial tcp 127.0.0.1:3260: connect: connection refused\n" +
		"Results: 1/2 scenarios passed\n"
	assert.Equal(t, want, buf.String())
}

func TestReportView_RenderTextColor(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, reportView{sampleReport()}.RenderText(&buf, true))
	assert.Contains(t, buf.String(), "\033[32m[PASS]\033[0m")
	assert.Contains(t, buf.String(), "\033[31m[FAIL]\033[0m")
}

func TestReportView_Rows(t *testing.T) {
	rows := reportView{sampleReport()}.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"target_not_found", "PASS", "0x0203", "0x0203", "1.2ms", "TARGET_NOT_FOUND"}, rows[0])
	assert.Equal(t, "FAIL", rows[1][1])
	assert.Equal(t, "-", rows[1][2])
	assert.Contains(t, rows[1][5], "connection refused")
}
