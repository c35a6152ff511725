package probe

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/iscsiprobe/internal/logger"
)

// ScenarioSource returns the scenarios for the next run. It is consulted
// before every run so configuration reloads take effect without a restart.
type ScenarioSource func() []Scenario

// StaticScenarios returns a ScenarioSource that always yields scenarios.
func StaticScenarios(scenarios []Scenario) ScenarioSource {
	return func() []Scenario { return scenarios }
}

// Watcher runs a suite repeatedly and keeps the most recent report.
//
// Runs never overlap: the next one starts Interval after the previous one
// started, or immediately after it finished if it took longer.
type Watcher struct {
	runner   *Runner
	source   ScenarioSource
	interval time.Duration

	latest atomic.Pointer[Report]
	runs   atomic.Uint64

	mu       sync.Mutex
	onReport []func(*Report)
}

// NewWatcher creates a Watcher. interval <= 0 falls back to 30s.
func NewWatcher(runner *Runner, source ScenarioSource, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Watcher{
		runner:   runner,
		source:   source,
		interval: interval,
	}
}

// OnReport registers fn to be called after every completed run.
func (w *Watcher) OnReport(fn func(*Report)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReport = append(w.onReport, fn)
}

// LatestReport returns the report of the last completed run, or nil
// before the first one finishes.
func (w *Watcher) LatestReport() *Report {
	return w.latest.Load()
}

// Runs returns the number of completed runs.
func (w *Watcher) Runs() uint64 {
	return w.runs.Load()
}

// Run probes once immediately and then every interval until ctx is done.
// It returns ctx.Err() on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.runOnce(ctx)

		select {
		case <-ctx.Done():
			logger.Info("Watch stopped", "runs", w.Runs())
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Watcher) runOnce(ctx context.Context) {
	scenarios := w.source()
	report := w.runner.Run(ctx, scenarios)

	// A run cut short by shutdown says nothing about the target.
	if ctx.Err() != nil {
		return
	}

	w.latest.Store(report)
	n := w.runs.Add(1)

	if report.AllPassed() {
		logger.Info("Watch run passed", logger.RunID(report.RunID), "run", n,
			"passed", report.Passed, "failed", report.Failed)
	} else {
		logger.Warn("Watch run failed", logger.RunID(report.RunID), "run", n,
			"passed", report.Passed, "failed", report.Failed)
	}

	w.mu.Lock()
	callbacks := slices.Clone(w.onReport)
	w.mu.Unlock()
	for _, fn := range callbacks {
		fn(report)
	}
}
