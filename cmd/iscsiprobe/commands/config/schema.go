package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/marmos91/iscsiprobe/pkg/config"
)

func newSchemaCmd() *cobra.Command {
	var schemaOutput string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Generate JSON schema for configuration",
		Long: `Generate a JSON schema for the iscsiprobe configuration file.

The schema can be used for IDE autocompletion and validation of the YAML
file.

Examples:
  # Print schema to stdout
  iscsiprobe config schema

  # Save schema to file
  iscsiprobe config schema --output config.schema.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			schemaJSON, err := GenerateSchema()
			if err != nil {
				return err
			}

			if schemaOutput != "" {
				if err := os.WriteFile(schemaOutput, schemaJSON, 0644); err != nil {
					return fmt.Errorf("failed to write schema file: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "JSON schema written to %s\n", schemaOutput)
				return nil
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(schemaJSON))
			return nil
		},
	}

	cmd.Flags().StringVarP(&schemaOutput, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

// GenerateSchema reflects the configuration types into a JSON schema keyed
// by their YAML names.
func GenerateSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		FieldNameTag:              "yaml",
	}

	schema := reflector.Reflect(&config.Config{})
	schema.Version = "https://json-schema.org/draft/2020-12/schema"
	schema.Title = "iscsiprobe Configuration"
	schema.Description = "Configuration schema for the iscsiprobe iSCSI login probe"

	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema: %w", err)
	}
	return schemaJSON, nil
}
