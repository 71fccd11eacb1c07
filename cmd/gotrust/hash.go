package main

import (
	"fmt"
	"strings"

	"github.com/MrEthical07/goTrust/hashing"
	"github.com/spf13/cobra"
)

func newHashCmd(opts *rootOptions) *cobra.Command {
	var (
		algorithm string
		params    []string
		salt      string
		password  string
	)

	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Derive a password hash string",
		Long: `Derive a $id$params$salt$hash string.

Without --algorithm, --param or --salt the configured default algorithm and
costs are used with a fresh random salt. Parameters an algorithm does not
recognize are dropped; malformed ones fall back to the algorithm default and
are reported on stderr.

Examples:
  gotrust hash --password hunter2
  echo hunter2 | gotrust hash -a pbkdf2 -p it=20000 --salt c2FsdA==`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				if password, err = readPassword(cmd.InOrStdin()); err != nil {
					return err
				}
			}

			engine, cfg, err := opts.offlineEngine(cmd, nil)
			if err != nil {
				return err
			}
			defer engine.Close()

			var encoded string
			if algorithm == "" && len(params) == 0 && salt == "" {
				encoded, err = engine.NewHash(password)
			} else {
				if algorithm == "" {
					algorithm = cfg.Hashing.DefaultAlgorithm
				}
				parsed, perr := parseParamFlags(params)
				if perr != nil {
					return perr
				}
				if salt == "" {
					if salt, err = hashing.NewSalt(16); err != nil {
						return err
					}
				}
				encoded, err = engine.HashPassword(algorithm, parsed, salt, password)
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), encoded)
			return nil
		},
	}

	cmd.Flags().StringVarP(&algorithm, "algorithm", "a", "", "algorithm id (pbkdf2, argon2id)")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "cost parameter as key=value (repeatable)")
	cmd.Flags().StringVar(&salt, "salt", "", "base64 salt (random when empty)")
	cmd.Flags().StringVar(&password, "password", "", "password (read from stdin when empty)")
	return cmd
}

func parseParamFlags(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}

	out := make(map[string]string, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q: want key=value", v)
		}
		out[key] = value
	}
	return out, nil
}
