// Package cli implements the incidentloop command-line interface: a single
// investigation run rendered live to the terminal.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the incidentloop root command.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "incidentloop",
		Short: "Confidence-gated incident investigation",
		Long: `incidentloop drives an iterative THINK → ACT → OBSERVE → EVALUATE
investigation loop: a reasoner forms hypotheses, evidence tools gather data,
findings are extracted, and a confidence score decides whether the proposed
resolution auto-executes, executes with review, or waits for human approval.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd())
	return root
}
