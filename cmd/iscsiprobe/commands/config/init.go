package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/iscsiprobe/internal/cli/prompt"
	"github.com/marmos91/iscsiprobe/internal/logger"
	"github.com/marmos91/iscsiprobe/internal/probe"
	"github.com/marmos91/iscsiprobe/pkg/config"
)

// stdinIsTerminal decides whether an overwrite may be confirmed
// interactively.
var stdinIsTerminal = func() bool { return logger.IsTerminal(os.Stdin) }

func newInitCmd() *cobra.Command {
	var (
		force       bool
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sample configuration file",
		Long: `Write a configuration file with the defaults and one example custom
scenario, at --config or $XDG_CONFIG_HOME/iscsiprobe/config.yaml.

With --interactive the target name, initiator name and suite are asked
for first.

Examples:
  iscsiprobe config init
  iscsiprobe config init --interactive
  iscsiprobe config init --config ./iscsiprobe.yaml --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath(cmd)
			if path == "" {
				path = config.GetDefaultConfigPath()
			}

			cfg := config.SampleConfig()
			if interactive {
				if err := askSettings(cfg); err != nil {
					if prompt.IsAborted(err) {
						return errors.New("aborted")
					}
					return err
				}
			}

			if _, err := os.Stat(path); err == nil && !force {
				if !stdinIsTerminal() {
					return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
				}
				ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Overwrite %s", path), force)
				if err != nil {
					return err
				}
				if !ok {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Keeping the existing configuration.")
					return nil
				}
			}

			if err := config.SaveConfig(cfg, path); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file without asking")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Ask for the main settings")
	return cmd
}

// askSettings fills the probe section from prompts.
func askSettings(cfg *config.Config) error {
	var err error

	cfg.Probe.TargetName, err = prompt.Input("Target name", cfg.Probe.TargetName, prompt.ValidateISCSIName)
	if err != nil {
		return err
	}
	cfg.Probe.InitiatorName, err = prompt.Input("Initiator name", cfg.Probe.InitiatorName, prompt.ValidateISCSIName)
	if err != nil {
		return err
	}
	cfg.Probe.UnknownTargetName, err = prompt.Input("Name of a target that does not exist", cfg.Probe.UnknownTargetName,
		func(s string) error {
			if err := prompt.ValidateISCSIName(s); err != nil {
				return err
			}
			if s == cfg.Probe.TargetName {
				return errors.New("must differ from the target name")
			}
			return nil
		})
	if err != nil {
		return err
	}
	cfg.Probe.Suite, err = prompt.Select("Suite", []string{probe.SuiteCore, probe.SuiteExtended, probe.SuiteAll}, cfg.Probe.Suite)
	return err
}
