package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newLintCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Report configuration settings that are valid but likely unintended",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.clientConfig()
			if err != nil {
				return err
			}
			ws := cfg.Lint()
			if len(ws) == 0 {
				color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "no findings")
				return nil
			}
			for _, w := range ws {
				fmt.Fprintf(cmd.OutOrStdout(), "%-5s %s: %s\n", w.Severity, w.Code, w.Message)
			}
			return nil
		},
	}
}
