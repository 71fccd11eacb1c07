package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/MrEthical07/goTrust/metadata"
	"github.com/spf13/cobra"
)

func newEntryCmd(opts *rootOptions) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "entry <toc-entry.json> <statement-blob>",
		Short: "Evaluate one metadata TOC entry against its statement blob",
		Long: `Check the statement blob digest against the TOC entry hash and
evaluate the entry's status history.

The blob file holds the base64 statement exactly as served; surrounding
whitespace is ignored. Exits non-zero when the authenticator is rejected.

Examples:
  gotrust entry entry.json statement.b64
  gotrust entry entry.json statement.b64 --at 2024-06-01`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if at != "" {
				var err error
				if now, err = metadata.ParseEffectiveDate(at); err != nil {
					return fmt.Errorf("invalid --at date: %w", err)
				}
			}

			record, err := readTOCEntry(args[0])
			if err != nil {
				return err
			}
			blob, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read statement blob: %w", err)
			}

			logger := log.New(io.Discard, "", 0)
			if opts.verbose {
				logger = log.New(cmd.ErrOrStderr(), "", 0)
			}

			entry, err := metadata.NewEntryFromBlob(record, bytes.TrimSpace(blob), "", metadata.WithLogger(logger))
			if err != nil {
				return err
			}

			verdict, err := entry.CheckValidAt(now)
			return printVerdict(cmd.OutOrStdout(), record.Key(), entry.Statement().Description(), verdict, err)
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "evaluate as of this date (YYYY-MM-DD) instead of now")
	return cmd
}

func readTOCEntry(path string) (*metadata.TOCEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read TOC entry: %w", err)
	}

	var record metadata.TOCEntry
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode TOC entry: %w", err)
	}
	return &record, nil
}

// printVerdict reports one evaluation and returns errCheckFailed for a
// rejection. Errors other than *metadata.TrustError are returned unchanged.
func printVerdict(w io.Writer, key, description string, verdict metadata.Verdict, err error) error {
	label := key
	if description != "" {
		label = fmt.Sprintf("%s (%s)", key, description)
	}

	if err != nil {
		var trustErr *metadata.TrustError
		if !errors.As(err, &trustErr) {
			return err
		}
		failColor.Fprint(w, "REJECTED ")
		fmt.Fprintf(w, "%s: %s\n", label, trustErr.Reason)
		return errCheckFailed
	}

	okColor.Fprint(w, "TRUSTED  ")
	fmt.Fprint(w, label)
	if verdict.Status != "" {
		infoColor.Fprintf(w, " [%s]", verdict.Status)
	}
	fmt.Fprintln(w)
	if verdict.Advisory != "" {
		warnColor.Fprint(w, "  advisory: ")
		fmt.Fprintln(w, verdict.Advisory)
	}
	return nil
}
