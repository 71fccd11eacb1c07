package main

import (
	"github.com/spf13/cobra"
)

func newVerifyCmd(opts *rootOptions) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "verify <hash-string>",
		Short: "Check a password against a hash string",
		Long: `Re-derive the hash in <hash-string> and compare it with the password.

Exits non-zero when the password does not match.

Examples:
  gotrust verify '$pbkdf2$it=10000$c2FsdA==$...' --password hunter2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				if password, err = readPassword(cmd.InOrStdin()); err != nil {
					return err
				}
			}

			engine, _, err := opts.offlineEngine(cmd, nil)
			if err != nil {
				return err
			}
			defer engine.Close()

			ok, err := engine.VerifyHash(args[0], password)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !ok {
				failColor.Fprintln(out, "✗ password does not match")
				return errCheckFailed
			}
			okColor.Fprintln(out, "✓ password matches")
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "password (read from stdin when empty)")
	return cmd
}
