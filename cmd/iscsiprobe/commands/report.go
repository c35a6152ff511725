package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/marmos91/iscsiprobe/internal/cli/output"
	"github.com/marmos91/iscsiprobe/internal/cli/timeutil"
	"github.com/marmos91/iscsiprobe/internal/probe"
)

// reportView renders a probe report for people.
type reportView struct {
	*probe.Report
}

// RenderText prints the verdict lines:
//
//	Testing target at 127.0.0.1:3260
//	  [PASS] target_not_found: got 0x0203 (TARGET_NOT_FOUND), expected 0x0203 (TARGET_NOT_FOUND)
//	Results: 3/3 scenarios passed
func (v reportView) RenderText(w io.Writer, color bool) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Testing target at %s\n", v.Target)

	for i := range v.Results {
		r := &v.Results[i]
		tag := output.Colorize("[PASS]", output.Green, color)
		if !r.Passed() {
			tag = output.Colorize("[FAIL]", output.Red, color)
		}
		fmt.Fprintf(&b, "  %s %s: %s\n", tag, r.Scenario, r.Verdict())
	}

	summary := fmt.Sprintf("Results: %d/%d scenarios passed", v.Passed, v.Total())
	if v.AllPassed() {
		summary = output.Colorize(summary, output.Green, color)
	} else {
		summary = output.Colorize(summary, output.Red, color)
	}
	fmt.Fprintln(&b, summary)

	_, err := io.WriteString(w, b.String())
	return err
}

// Headers implements output.TableRenderer.
func (v reportView) Headers() []string {
	return []string{"Scenario", "Result", "Got", "Expected", "Time", "Detail"}
}

// Rows implements output.TableRenderer.
func (v reportView) Rows() [][]string {
	rows := make([][]string, 0, len(v.Results))
	for i := range v.Results {
		r := &v.Results[i]

		result := "PASS"
		if !r.Passed() {
			result = "FAIL"
		}

		got, detail := "-", ""
		if status, ok := r.Got(); ok {
			got = status.Hex()
			detail = status.String()
		}
		if r.Error != "" {
			detail = r.Error
		}

		rows = append(rows, []string{
			r.Scenario,
			result,
			got,
			r.Expected.Hex(),
			timeutil.FormatMillis(r.DurationMs),
			detail,
		})
	}
	return rows
}

// printReport writes the report in the printer's format.
func printReport(p *output.Printer, report *probe.Report) error {
	if p.Format().Structured() {
		return p.Print(report)
	}
	return p.Print(reportView{report})
}
