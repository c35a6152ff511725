// Package config implements the configuration management subcommands.
package config

import (
	"github.com/spf13/cobra"
)

// NewCmd builds the config command and its subcommands.
func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long: `Manage iscsiprobe configuration files.

The configuration file is optional: without one iscsiprobe runs the core
suite with built-in names and a 5s timeout.

Subcommands:
  init      Create a sample configuration file
  validate  Validate a configuration file
  schema    Generate JSON schema for IDE/validation`,
	}

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newSchemaCmd())
	return cmd
}

// configPath reads the inherited --config flag.
func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}
