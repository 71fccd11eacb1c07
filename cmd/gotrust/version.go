package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show gotrust version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "gotrust v%s\n", version)

			if opts.verbose {
				cfg, err := opts.loadConfig()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, "\nHashing:")
				fmt.Fprintf(out, "  default:  %s\n", cfg.Hashing.DefaultAlgorithm)
				fmt.Fprintf(out, "  pbkdf2:   it=%d\n", cfg.Hashing.PBKDF2Iterations)
				fmt.Fprintf(out, "  argon2id: m=%d,t=%d,p=%d\n", cfg.Hashing.Argon2.Memory, cfg.Hashing.Argon2.Time, cfg.Hashing.Argon2.Parallelism)
				if cfg.Throttle.Enabled {
					fmt.Fprintf(out, "\nThrottle: %d failures per %s\n", cfg.Throttle.MaxFailures, cfg.Throttle.Window)
				}
			}
			return nil
		},
	}
}
