package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/marmos91/iscsiprobe/internal/logger"
	"github.com/marmos91/iscsiprobe/internal/probe"
	"github.com/marmos91/iscsiprobe/internal/telemetry"
	"github.com/marmos91/iscsiprobe/pkg/api"
	"github.com/marmos91/iscsiprobe/pkg/config"
	prommetrics "github.com/marmos91/iscsiprobe/pkg/metrics/prometheus"
)

const (
	flagInterval = "interval"
	flagListen   = "listen"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch HOST PORT",
		Short: "Probe a target periodically and serve the results over HTTP",
		Long: `Run the selected suite against the target every --interval until
interrupted, and serve the results:

  GET /health        liveness
  GET /health/ready  200 once the last completed run passed every scenario
  GET /report        the last completed report as JSON
  GET /metrics       Prometheus metrics

When a configuration file is in use, edits to it are picked up before the
next run.

Examples:
  iscsiprobe watch 10.0.0.5 3260
  iscsiprobe watch 10.0.0.5 3260 --interval 1m --listen 127.0.0.1:9464`,
		Args: targetArgs,
		RunE: runWatch,
	}

	addProbeFlags(cmd)
	cmd.Flags().Duration(flagInterval, config.DefaultWatchInterval, "Time between the start of consecutive runs")
	cmd.Flags().String(flagListen, api.DefaultListen, "Status server listen address")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	host, port, err := parseTarget(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed(flagInterval) {
		cfg.Watch.Interval, _ = cmd.Flags().GetDuration(flagInterval)
	}
	if cmd.Flags().Changed(flagListen) {
		cfg.Watch.API.Listen, _ = cmd.Flags().GetString(flagListen)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(runContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := initTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdownTelemetry()

	target := hostPort(host, port)
	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    telemetry.DefaultServiceName,
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
		Tags:           map[string]string{"target": target},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.Err(err))
		}
	}()

	// The status server always exposes /metrics in watch mode.
	cfg.Metrics.Enabled = true
	initMetrics(cfg)

	initial, err := scenariosFor(cfg)
	if err != nil {
		return err
	}
	var current atomic.Pointer[[]probe.Scenario]
	current.Store(&initial)

	if path := watchedConfigPath(cmd); path != "" {
		if err := watchScenarios(cmd, path, &current); err != nil {
			return err
		}
	}

	printer, err := newPrinter(cmd, cfg)
	if err != nil {
		return err
	}

	runner := probe.NewRunner(probeOptions(cfg, host, port), prommetrics.NewProbeMetrics())
	watcher := probe.NewWatcher(runner, func() []probe.Scenario { return *current.Load() }, cfg.Watch.Interval)
	watcher.OnReport(func(r *probe.Report) {
		if err := printReport(printer, r); err != nil {
			logger.Warn("Failed to print report", logger.Err(err))
		}
		if err := writeMetricsFile(cfg); err != nil {
			logger.Warn("Failed to write metrics file", logger.Err(err))
		}
	})

	server := api.NewServer(cfg.Watch.API, watcher)
	if err := server.Listen(); err != nil {
		return err
	}

	logger.Info("Watching target",
		logger.Target(target),
		logger.Suite(cfg.Probe.Suite),
		"interval", cfg.Watch.Interval.String(),
		logger.Listen(server.Addr()),
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Start(gCtx) })
	g.Go(func() error {
		err := watcher.Run(gCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// watchedConfigPath returns the configuration file to follow: --config,
// or the default file when it exists.
func watchedConfigPath(cmd *cobra.Command) string {
	if path, _ := cmd.Flags().GetString(flagConfig); path != "" {
		return path
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return ""
}

// watchScenarios reloads the scenario list whenever the file changes.
// Flag overrides are reapplied to every reload; a reload that fails keeps
// the previous scenarios.
func watchScenarios(cmd *cobra.Command, path string, current *atomic.Pointer[[]probe.Scenario]) error {
	_, err := config.Watch(path, func(cfg *config.Config, err error) {
		if err == nil {
			err = applyFlagOverrides(cmd, cfg)
		}
		var scenarios []probe.Scenario
		if err == nil {
			scenarios, err = scenariosFor(cfg)
		}
		if err != nil {
			logger.Warn("Configuration reload rejected, keeping previous scenarios", logger.Path(path), logger.Err(err))
			return
		}
		current.Store(&scenarios)
		logger.Info("Scenarios reloaded", logger.Path(path), logger.Count(len(scenarios)))
	})
	if err != nil {
		return fmt.Errorf("watch configuration: %w", err)
	}
	return nil
}
