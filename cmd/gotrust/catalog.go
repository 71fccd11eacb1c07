package main

import (
	"bytes"
	"context"
	"crypto"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	goTrust "github.com/MrEthical07/goTrust"
	"github.com/MrEthical07/goTrust/metadata"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
)

func newCatalogCmd(opts *rootOptions) *cobra.Command {
	var (
		blobDir string
		pubKey  string
		keys    []string
	)

	cmd := &cobra.Command{
		Use:   "catalog <toc-file>",
		Short: "Ingest a metadata TOC and evaluate its entries",
		Long: `Ingest a TOC with statement blobs read from --blobs and print a verdict
for every entry (or only the --key entries).

The TOC file is a JSON payload, or a signed JWS when --pubkey names a PEM
public key (ES256, RS256, PS256 or EdDSA). Blob files are named by the
path-escaped entry key. Exits non-zero when any evaluated entry is rejected.

Examples:
  gotrust catalog toc.json --blobs ./statements
  gotrust catalog toc.jwt --pubkey mds-root.pem --blobs ./statements --key 0132d110-bf4e-4208-a403-ab4f5f12efe5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if blobDir == "" {
				return errors.New("--blobs is required")
			}

			toc, err := readTOC(args[0], pubKey)
			if err != nil {
				return err
			}

			engine, _, err := opts.offlineEngine(cmd, func(b *goTrust.Builder) {
				b.WithBlobStore(dirBlobSource{dir: blobDir})
			})
			if err != nil {
				return err
			}
			defer engine.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			snap, err := engine.RefreshCatalog(ctx, toc)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			infoColor.Fprintf(out, "catalog #%d, next update %s, %d entries, %d failing integrity checks\n",
				snap.Serial(), snap.NextUpdate(), snap.Len(), snap.Failures())

			if len(keys) == 0 {
				for i := range toc.Entries {
					if k := toc.Entries[i].Key(); k != "" {
						keys = append(keys, k)
					}
				}
			}

			failed := false
			for _, key := range keys {
				var description string
				if entry, lerr := engine.LookupAuthenticator(key); lerr == nil {
					description = entry.Statement().Description()
				}
				verdict, cerr := engine.CheckAuthenticator(ctx, key)
				if perr := printVerdict(out, key, description, verdict, cerr); perr != nil {
					if !errors.Is(perr, errCheckFailed) {
						failColor.Fprint(out, "ERROR    ")
						fmt.Fprintf(out, "%s: %v\n", key, perr)
					}
					failed = true
				}
			}

			if failed {
				return errCheckFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&blobDir, "blobs", "", "directory holding one statement blob file per entry key")
	cmd.Flags().StringVar(&pubKey, "pubkey", "", "PEM public key verifying a signed TOC")
	cmd.Flags().StringArrayVarP(&keys, "key", "k", nil, "evaluate only this entry key (repeatable)")
	return cmd
}

func readTOC(path, pubKeyPath string) (*metadata.TOC, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read TOC: %w", err)
	}
	data = bytes.TrimSpace(data)

	if pubKeyPath == "" {
		var toc metadata.TOC
		if err := json.Unmarshal(data, &toc); err != nil {
			return nil, fmt.Errorf("decode TOC: %w", err)
		}
		return &toc, nil
	}

	key, err := readPublicKey(pubKeyPath)
	if err != nil {
		return nil, err
	}
	return metadata.DecodeTOC(string(data), func(*jwt.Token) (any, error) {
		return key, nil
	})
}

func readPublicKey(path string) (crypto.PublicKey, error) {
	pemData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	if key, err := jwt.ParseECPublicKeyFromPEM(pemData); err == nil {
		return key, nil
	}
	if key, err := jwt.ParseRSAPublicKeyFromPEM(pemData); err == nil {
		return key, nil
	}
	if key, err := jwt.ParseEdPublicKeyFromPEM(pemData); err == nil {
		return key, nil
	}
	return nil, fmt.Errorf("public key %s is not a PEM encoded EC, RSA or Ed25519 key", path)
}

// dirBlobSource reads statement blobs from files named by the escaped key.
type dirBlobSource struct {
	dir string
}

func (d dirBlobSource) Blob(_ context.Context, key string) ([]byte, error) {
	raw, err := os.ReadFile(filepath.Join(d.dir, url.PathEscape(key)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, metadata.ErrBlobNotFound
		}
		return nil, err
	}
	return bytes.TrimSpace(raw), nil
}
