package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/iscsiprobe/pkg/config"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		Long: `Validate the iscsiprobe configuration file.

Checks for syntax errors, unknown status names, malformed ISIDs, duplicate
scenario names and invalid values.

Examples:
  # Validate default config
  iscsiprobe config validate

  # Validate specific config file
  iscsiprobe config validate --config ./iscsiprobe.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath(cmd)
			displayPath := path
			if displayPath == "" {
				displayPath = config.GetDefaultConfigPath()
			}

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			var warnings []string
			if !config.DefaultConfigExists() && path == "" {
				warnings = append(warnings, "no configuration file found, built-in defaults are in use")
			}
			if cfg.Probe.Suite == "core" && len(cfg.Scenarios) > 0 {
				warnings = append(warnings, fmt.Sprintf("%d custom scenarios are ignored by the core suite", len(cfg.Scenarios)))
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
			_, _ = fmt.Fprintln(out, "Validation: OK")

			if len(warnings) > 0 {
				_, _ = fmt.Fprintln(out, "\nWarnings:")
				for _, w := range warnings {
					_, _ = fmt.Fprintf(out, "  - %s\n", w)
				}
			}

			_, _ = fmt.Fprintf(out, "\nConfiguration summary:\n")
			_, _ = fmt.Fprintf(out, "  Suite:            %s\n", cfg.Probe.Suite)
			_, _ = fmt.Fprintf(out, "  Target name:      %s\n", cfg.Probe.TargetName)
			_, _ = fmt.Fprintf(out, "  Initiator name:   %s\n", cfg.Probe.InitiatorName)
			_, _ = fmt.Fprintf(out, "  Timeout:          %s\n", cfg.Probe.Timeout)
			_, _ = fmt.Fprintf(out, "  Custom scenarios: %d\n", len(cfg.Scenarios))
			_, _ = fmt.Fprintf(out, "  Log level:        %s\n", cfg.Logging.Level)
			return nil
		},
	}
}
