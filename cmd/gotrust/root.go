package main

import (
	"bufio"
	"errors"
	"io"
	"log"
	"strings"

	goTrust "github.com/MrEthical07/goTrust"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

// errCheckFailed is returned after a command has already reported a negative
// result; main exits non-zero without printing it again.
var errCheckFailed = errors.New("check failed")

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	infoColor = color.New(color.FgCyan)
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "gotrust",
		Short: "Password hashing and authenticator metadata tooling",
		Long: `gotrust derives and checks password hash strings and evaluates
authenticator metadata entries the same way the goTrust engine does.

Hashing costs are read from --config (YAML); without it the defaults apply.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newHashCmd(opts),
		newVerifyCmd(opts),
		newEntryCmd(opts),
		newCatalogCmd(opts),
		newLintCmd(opts),
		newBenchCmd(opts),
		newVersionCmd(opts),
	)
	return root
}

func (o *rootOptions) loadConfig() (goTrust.Config, error) {
	if o.configPath == "" {
		return goTrust.DefaultConfig(), nil
	}
	return goTrust.LoadConfigFile(o.configPath)
}

// offlineEngine builds an engine from the configured hashing settings with
// every storage backend and audit turned off.
func (o *rootOptions) offlineEngine(cmd *cobra.Command, configure func(*goTrust.Builder)) (*goTrust.Engine, goTrust.Config, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, cfg, err
	}
	cfg.Credentials.Backend = goTrust.BackendNone
	cfg.Metadata.BlobBackend = goTrust.BackendNone
	cfg.Audit.Enabled = false

	b := goTrust.New().WithConfig(cfg).WithLogger(log.New(cmd.ErrOrStderr(), "", 0))
	if configure != nil {
		configure(b)
	}

	engine, err := b.Build()
	if err != nil {
		return nil, cfg, err
	}
	return engine, cfg, nil
}

// readPassword returns the first line of r without its line terminator.
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("no password given: use --password or pipe it on stdin")
	}
	return line, nil
}
