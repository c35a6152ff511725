package probe

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/iscsiprobe/internal/protocol/iscsi/login"
	"github.com/marmos91/iscsiprobe/internal/protocol/iscsi/types"
)

// Outcome classifies a scenario verdict.
type Outcome string

const (
	// OutcomePass means a response was parsed and its status matched.
	OutcomePass Outcome = "pass"
	// OutcomeMismatch means a response was parsed with a different status.
	OutcomeMismatch Outcome = "mismatch"
	// OutcomeNoResult means bytes arrived but did not decode as a Login
	// Response (short read, wrong opcode).
	OutcomeNoResult Outcome = "no_result"
	// OutcomeError means the exchange failed at the transport level.
	OutcomeError Outcome = "error"
)

// Passed reports whether the outcome counts as a pass.
func (o Outcome) Passed() bool { return o == OutcomePass }

// Result is the verdict of one scenario.
type Result struct {
	Scenario    string        `json:"scenario" yaml:"scenario"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	ISID        string        `json:"isid" yaml:"isid"`
	Outcome     Outcome       `json:"outcome" yaml:"outcome"`
	Expected    types.Status  `json:"expected" yaml:"expected"`
	Duration    time.Duration `json:"-" yaml:"-"`
	DurationMs  float64       `json:"duration_ms" yaml:"duration_ms"`
	BytesSent   int           `json:"bytes_sent" yaml:"bytes_sent"`
	BytesRead   int           `json:"bytes_read" yaml:"bytes_read"`

	// Response is nil unless a Login Response was decoded.
	Response *login.Response `json:"response,omitempty" yaml:"response,omitempty"`

	// Err is the transport or decode error; nil on pass and mismatch.
	Err error `json:"-" yaml:"-"`

	// Error mirrors Err for serialized reports.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

func newResult(s Scenario) Result {
	return Result{
		Scenario:    s.Name,
		Description: s.Description,
		ISID:        s.ISIDHex(),
		Expected:    s.Expected,
	}
}

// fail records err and picks the outcome from its kind.
func (r *Result) fail(err error) {
	r.Err = err
	r.Error = err.Error()
	if IsNoResult(err) {
		r.Outcome = OutcomeNoResult
	} else {
		r.Outcome = OutcomeError
	}
}

// judge sets the outcome for a decoded response.
func (r *Result) judge(resp *login.Response) {
	r.Response = resp
	if resp.Status == r.Expected {
		r.Outcome = OutcomePass
		return
	}
	r.Outcome = OutcomeMismatch
}

// Passed reports whether the scenario passed.
func (r *Result) Passed() bool { return r.Outcome.Passed() }

// Got returns the observed status. ok is false when nothing was decoded.
func (r *Result) Got() (status types.Status, ok bool) {
	if r.Response == nil {
		return 0, false
	}
	return r.Response.Status, true
}

// Verdict returns the one-line human description of the result, without
// the PASS/FAIL marker.
func (r *Result) Verdict() string {
	switch r.Outcome {
	case OutcomePass, OutcomeMismatch:
		got := r.Response.Status
		return fmt.Sprintf("got %s (%s), expected %s (%s)", got.Hex(), got, r.Expected.Hex(), r.Expected)
	case OutcomeNoResult:
		return fmt.Sprintf("no result (%s), expected %s (%s)", r.Error, r.Expected.Hex(), r.Expected)
	default:
		return fmt.Sprintf("error: %s", r.Error)
	}
}

// IsNoResult reports whether err means bytes were read but no Login
// Response could be decoded from them.
func IsNoResult(err error) bool {
	return errors.Is(err, ErrNoResponse)
}

// Report aggregates the results of one run.
type Report struct {
	RunID      string        `json:"run_id" yaml:"run_id"`
	Target     string        `json:"target" yaml:"target"`
	Suite      string        `json:"suite,omitempty" yaml:"suite,omitempty"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	Duration   time.Duration `json:"-" yaml:"-"`
	DurationMs float64       `json:"duration_ms" yaml:"duration_ms"`
	Results    []Result      `json:"results" yaml:"results"`
	Passed     int           `json:"passed" yaml:"passed"`
	Failed     int           `json:"failed" yaml:"failed"`

	// Success is true iff at least one scenario ran and all passed.
	Success bool `json:"success" yaml:"success"`
}

func newReport(target string) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		Target:    target,
		StartedAt: time.Now().UTC(),
		Results:   make([]Result, 0),
	}
}

// add appends r and updates the counters.
func (rep *Report) add(r Result) {
	rep.Results = append(rep.Results, r)
	if r.Passed() {
		rep.Passed++
	} else {
		rep.Failed++
	}
	rep.Success = rep.Failed == 0
}

func milliseconds(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

// Total returns the number of scenarios in the run.
func (rep *Report) Total() int { return len(rep.Results) }

// AllPassed reports whether every scenario passed. An empty run has not
// passed.
func (rep *Report) AllPassed() bool {
	return rep != nil && rep.Success
}

// Result returns the result of the named scenario.
func (rep *Report) Result(name string) (*Result, bool) {
	for i := range rep.Results {
		if rep.Results[i].Scenario == name {
			return &rep.Results[i], true
		}
	}
	return nil, false
}
