package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLintCmd(opts *rootOptions) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Validate the config and report risky settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			warnings := cfg.Lint()
			if len(warnings) == 0 {
				okColor.Fprintln(out, "✓ config is valid, no warnings")
				return nil
			}

			for _, w := range warnings {
				warnColor.Fprintf(out, "warning %s: ", w.Code)
				fmt.Fprintln(out, w.Message)
			}
			if strict {
				return errCheckFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any warning is reported")
	return cmd
}
