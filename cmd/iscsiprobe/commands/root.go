// Package commands implements the iscsiprobe command line.
package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/iscsiprobe/cmd/iscsiprobe/commands/config"
	"github.com/marmos91/iscsiprobe/internal/logger"
	"github.com/marmos91/iscsiprobe/internal/probe"
	prommetrics "github.com/marmos91/iscsiprobe/pkg/metrics/prometheus"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// ErrScenariosFailed is returned when at least one scenario did not pass.
// The report has already been printed when it is returned.
var ErrScenariosFailed = errors.New("one or more scenarios failed")

// NewRootCmd builds the command tree. Each call returns independent
// commands and flags.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "iscsiprobe HOST PORT",
		Short: "iSCSI login conformance probe",
		Long: `iscsiprobe connects to an iSCSI target portal, sends hand-built Login
Request PDUs and checks that each Login Response carries the expected
status class and detail.

The core suite checks that the target:
  - accepts a valid login                     (0x0000 SUCCESS)
  - rejects an unknown TargetName             (0x0203 TARGET_NOT_FOUND)
  - rejects a login without InitiatorName     (0x0207 MISSING_PARAMETER)

Exit status is 0 when every scenario passed and 1 otherwise.

Examples:
  # Probe a local target
  iscsiprobe 127.0.0.1 3260

  # Run the extended suite and print JSON
  iscsiprobe 10.0.0.5 3260 --suite extended -o json

  # Probe a target with other names
  iscsiprobe tgt.lan 3260 --target-name iqn.2003-01.org.linux-iscsi:disk1`,
		Args:          targetArgs,
		RunE:          runProbe,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String(flagConfig, "", "config file (default: $XDG_CONFIG_HOME/iscsiprobe/config.yaml)")
	rootCmd.PersistentFlags().String(flagLogLevel, "", "log level: DEBUG, INFO, WARN, ERROR (default WARN)")
	addProbeFlags(rootCmd)

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newScenariosCmd())
	rootCmd.AddCommand(newSelftestCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(config.NewCmd())
	rootCmd.AddCommand(newCompletionCmd())

	// Hide the default completion command (we provide our own)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	return rootCmd
}

// Execute runs the command line with the process arguments.
func Execute() error {
	return NewRootCmd().Execute()
}

func runProbe(cmd *cobra.Command, args []string) error {
	host, port, err := parseTarget(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
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

	initMetrics(cfg)

	scenarios, err := scenariosFor(cfg)
	if err != nil {
		return err
	}

	printer, err := newPrinter(cmd, cfg)
	if err != nil {
		return err
	}

	runner := probe.NewRunner(probeOptions(cfg, host, port), prommetrics.NewProbeMetrics())
	report := runner.Run(ctx, scenarios)

	if err := printReport(printer, report); err != nil {
		return err
	}
	if err := writeMetricsFile(cfg); err != nil {
		return err
	}

	if !report.AllPassed() {
		logger.Debug("Probe failed", logger.Target(hostPort(host, port)), "failed", report.Failed)
		return ErrScenariosFailed
	}
	return nil
}

// runContext returns cmd's context, or Background when run outside Execute.
func runContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
