package commands

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/iscsiprobe/internal/logger"
	"github.com/marmos91/iscsiprobe/internal/probe"
	"github.com/marmos91/iscsiprobe/internal/targetsim"
	prommetrics "github.com/marmos91/iscsiprobe/pkg/metrics/prometheus"
)

func newSelftestCmd() *cobra.Command {
	var (
		alias       string
		requireCHAP bool
	)

	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Probe a built-in simulated target",
		Long: `Start a simulated iSCSI target on a loopback port and probe it.

The simulated target answers logins the way a conforming target does, so
every built-in scenario is expected to pass. It is useful to check the
probe itself, an installation or a custom scenario file.

Without --suite the extended suite is used.

Examples:
  iscsiprobe selftest
  iscsiprobe selftest --suite all --config ./scenarios.yaml -o table`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed(flagSuite) && cfg.Probe.Suite == probe.SuiteCore {
				cfg.Probe.Suite = probe.SuiteExtended
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

			target := targetsim.NewServer(targetsim.Config{
				TargetName:  cfg.Probe.TargetName,
				TargetAlias: alias,
				RequireCHAP: requireCHAP,
			}, prommetrics.NewTargetMetrics())
			if err := target.Listen(); err != nil {
				return fmt.Errorf("start simulated target: %w", err)
			}

			serveCtx, cancel := context.WithCancel(ctx)
			served := make(chan error, 1)
			go func() { served <- target.Serve(serveCtx) }()
			defer func() {
				cancel()
				if err := <-served; err != nil {
					logger.Warn("Simulated target stopped with error", logger.Err(err))
				}
			}()

			addr := target.Addr().(*net.TCPAddr)
			runner := probe.NewRunner(probeOptions(cfg, addr.IP.String(), addr.Port), prommetrics.NewProbeMetrics())
			report := runner.Run(ctx, scenarios)

			if err := printReport(printer, report); err != nil {
				return err
			}
			if err := writeMetricsFile(cfg); err != nil {
				return err
			}
			if !report.AllPassed() {
				return ErrScenariosFailed
			}
			return nil
		},
	}

	addProbeFlags(cmd)
	cmd.Flags().StringVar(&alias, "target-alias", "", "TargetAlias declared by the simulated target")
	cmd.Flags().BoolVar(&requireCHAP, "require-chap", false, "Make the simulated target reject logins that do not offer CHAP")
	return cmd
}
