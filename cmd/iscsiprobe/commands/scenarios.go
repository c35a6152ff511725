package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/iscsiprobe/internal/cli/output"
	"github.com/marmos91/iscsiprobe/internal/probe"
)

// scenarioList renders the scenarios of a suite.
type scenarioList []probe.Scenario

func (l scenarioList) Headers() []string {
	return []string{"Scenario", "ISID", "Expected", "Parameters"}
}

func (l scenarioList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, s := range l {
		rows = append(rows, []string{
			s.Name,
			s.ISIDHex(),
			s.Expected.Hex() + " " + s.Expected.String(),
			s.Params.String(),
		})
	}
	return rows
}

// scenarioEntry is the structured form of a listed scenario.
type scenarioEntry struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	ISID        string `json:"isid" yaml:"isid"`
	Params      any    `json:"params" yaml:"params"`
	Expected    string `json:"expected" yaml:"expected"`
	Status      string `json:"status" yaml:"status"`
}

func (l scenarioList) entries() []scenarioEntry {
	out := make([]scenarioEntry, 0, len(l))
	for _, s := range l {
		out = append(out, scenarioEntry{
			Name:        s.Name,
			Description: s.Description,
			ISID:        s.ISIDHex(),
			Params:      s.Params,
			Expected:    s.Expected.Hex(),
			Status:      s.Expected.String(),
		})
	}
	return out
}

func newScenariosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "List the scenarios of a suite",
		Long: `List the scenarios the selected suite would run, with the ISID, the
expected status and the login parameters sent, without contacting a target.

Examples:
  iscsiprobe scenarios
  iscsiprobe scenarios --suite all -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Probe.Output == string(output.FormatText) {
				cfg.Probe.Output = string(output.FormatTable)
			}

			scenarios, err := scenariosFor(cfg)
			if err != nil {
				return err
			}
			printer, err := newPrinter(cmd, cfg)
			if err != nil {
				return err
			}

			list := scenarioList(scenarios)
			if printer.Format().Structured() {
				return printer.Print(list.entries())
			}
			return printer.Print(list)
		},
	}

	addProbeFlags(cmd)
	return cmd
}
