package commands

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/iscsiprobe/internal/cli/output"
	"github.com/marmos91/iscsiprobe/internal/logger"
	"github.com/marmos91/iscsiprobe/internal/probe"
	"github.com/marmos91/iscsiprobe/internal/telemetry"
	"github.com/marmos91/iscsiprobe/pkg/config"
	"github.com/marmos91/iscsiprobe/pkg/metrics"
)

// Flag names shared by the commands that probe a target.
const (
	flagConfig            = "config"
	flagLogLevel          = "log-level"
	flagTimeout           = "timeout"
	flagSuite             = "suite"
	flagOutput            = "output"
	flagInitiatorName     = "initiator-name"
	flagTargetName        = "target-name"
	flagUnknownTargetName = "unknown-target-name"
	flagMetricsFile       = "metrics-file"
	flagNoColor           = "no-color"
)

// addProbeFlags registers the flags that override the probe section of the
// configuration. Defaults shown in help are the built-in ones; a flag only
// takes effect when given explicitly.
func addProbeFlags(cmd *cobra.Command) {
	d := config.GetDefaultConfig()
	f := cmd.Flags()
	f.Duration(flagTimeout, d.Probe.Timeout, "Connect and exchange timeout per scenario")
	f.String(flagSuite, d.Probe.Suite, "Scenario suite: core, extended, custom or all")
	f.StringP(flagOutput, "o", d.Probe.Output, "Report format: text, table, json or yaml")
	f.String(flagInitiatorName, d.Probe.InitiatorName, "InitiatorName sent by the built-in scenarios")
	f.String(flagTargetName, d.Probe.TargetName, "TargetName the success scenario logs in to")
	f.String(flagUnknownTargetName, d.Probe.UnknownTargetName, "TargetName that must not exist on the target")
	f.String(flagMetricsFile, "", "Write Prometheus metrics to this file after the run (textfile collector)")
	f.Bool(flagNoColor, false, "Disable colored verdicts")

	_ = cmd.RegisterFlagCompletionFunc(flagSuite, cobra.FixedCompletions(
		[]string{probe.SuiteCore, probe.SuiteExtended, probe.SuiteCustom, probe.SuiteAll}, cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc(flagOutput, cobra.FixedCompletions(
		[]string{"text", "table", "json", "yaml"}, cobra.ShellCompDirectiveNoFileComp))
}

// loadConfig loads the configuration named by --config and applies every
// explicitly set flag on top, then validates the result again.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString(flagConfig)

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := applyFlagOverrides(cmd, cfg); err != nil {
		return nil, err
	}

	config.ApplyDefaults(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return cfg, nil
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	changed := func(name string) bool {
		fl := f.Lookup(name)
		return fl != nil && fl.Changed
	}

	var err error
	if changed(flagLogLevel) {
		cfg.Logging.Level, err = f.GetString(flagLogLevel)
	}
	if err == nil && changed(flagTimeout) {
		cfg.Probe.Timeout, err = f.GetDuration(flagTimeout)
	}
	if err == nil && changed(flagSuite) {
		cfg.Probe.Suite, err = f.GetString(flagSuite)
	}
	if err == nil && changed(flagOutput) {
		var format output.Format
		var raw string
		raw, err = f.GetString(flagOutput)
		if err == nil {
			format, err = output.ParseFormat(raw)
			cfg.Probe.Output = format.String()
		}
	}
	if err == nil && changed(flagInitiatorName) {
		cfg.Probe.InitiatorName, err = f.GetString(flagInitiatorName)
	}
	if err == nil && changed(flagTargetName) {
		cfg.Probe.TargetName, err = f.GetString(flagTargetName)
	}
	if err == nil && changed(flagUnknownTargetName) {
		cfg.Probe.UnknownTargetName, err = f.GetString(flagUnknownTargetName)
	}
	if err == nil && changed(flagMetricsFile) {
		cfg.Metrics.File, err = f.GetString(flagMetricsFile)
	}
	return err
}

// parseTarget validates the HOST PORT positional arguments.
func parseTarget(args []string) (host string, port int, err error) {
	host = strings.TrimSpace(args[0])
	if host == "" {
		return "", 0, fmt.Errorf("host must not be empty")
	}
	port, err = strconv.Atoi(args[1])
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port %q: must be a number between 1 and 65535", args[1])
	}
	return host, port, nil
}

// targetArgs is the positional argument validator of commands taking
// HOST PORT. It fails before any network activity.
func targetArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(2)(cmd, args); err != nil {
		return fmt.Errorf("%w\nUsage: %s", err, cmd.UseLine())
	}
	_, _, err := parseTarget(args)
	return err
}

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// initTelemetry starts tracing when enabled and returns its shutdown.
func initTelemetry(ctx context.Context, cfg *config.Config) (func(), error) {
	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    telemetry.DefaultServiceName,
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	return func() {
		// The run context may already be cancelled; flush on a fresh one.
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logger.Error("telemetry shutdown error", logger.Err(err))
		}
	}, nil
}

// initMetrics enables the registry when configured.
func initMetrics(cfg *config.Config) bool {
	if !cfg.Metrics.Enabled {
		metrics.Reset()
		return false
	}
	metrics.InitRegistry()
	return true
}

// writeMetricsFile exports the registry for the textfile collector.
func writeMetricsFile(cfg *config.Config) error {
	if cfg.Metrics.File == "" {
		return nil
	}
	if err := metrics.WriteTextfile(cfg.Metrics.File); err != nil {
		return err
	}
	logger.Debug("Metrics written", logger.Path(cfg.Metrics.File))
	return nil
}

// probeNames maps the probe section onto scenario names.
func probeNames(cfg *config.Config) probe.Names {
	return probe.Names{
		InitiatorName:     cfg.Probe.InitiatorName,
		TargetName:        cfg.Probe.TargetName,
		UnknownTargetName: cfg.Probe.UnknownTargetName,
	}
}

// probeOptions builds runner options for one target.
func probeOptions(cfg *config.Config, host string, port int) probe.Options {
	return probe.Options{
		Host:           host,
		Port:           port,
		Timeout:        cfg.Probe.Timeout,
		ReadBufferSize: cfg.Probe.ReadBufferSize,
		Suite:          cfg.Probe.Suite,
	}
}

// customScenarios converts the configured scenarios. Entries without an
// ISID get one derived from their position.
func customScenarios(cfg *config.Config) ([]probe.Scenario, error) {
	out := make([]probe.Scenario, 0, len(cfg.Scenarios))
	for i, sc := range cfg.Scenarios {
		isid, ok, err := sc.ISIDBytes()
		if err != nil {
			return nil, err
		}
		if !ok {
			isid = probe.CustomISID(i)
		}
		out = append(out, probe.Scenario{
			Name:        sc.Name,
			Description: sc.Description,
			ISID:        isid,
			Params:      sc.Params,
			Expected:    sc.Expected,
		})
	}
	return out, nil
}

// scenariosFor resolves the configured suite.
func scenariosFor(cfg *config.Config) ([]probe.Scenario, error) {
	custom, err := customScenarios(cfg)
	if err != nil {
		return nil, err
	}
	return probe.Suite(cfg.Probe.Suite, probeNames(cfg), custom)
}

// newPrinter builds the report printer for stdout of cmd.
func newPrinter(cmd *cobra.Command, cfg *config.Config) (*output.Printer, error) {
	format, err := output.ParseFormat(cfg.Probe.Output)
	if err != nil {
		return nil, err
	}
	noColor, _ := cmd.Flags().GetBool(flagNoColor)
	out := cmd.OutOrStdout()
	color := false
	if f, ok := out.(*os.File); ok && !noColor && os.Getenv("NO_COLOR") == "" {
		color = logger.IsTerminal(f)
	}
	return output.NewPrinter(out, format, color), nil
}

// hostPort formats a target for messages.
func hostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
