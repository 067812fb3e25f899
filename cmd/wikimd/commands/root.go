// Package commands implements the CLI commands for wikimd.
package commands

import (
	"fmt"
	"io"
	"os"

	"wikimd/internal/config"
	"wikimd/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
)

// app holds the state shared by every subcommand of one invocation.
type app struct {
	log        *logger.Logger
	stderr     io.Writer
	configPath string
	logLevel   string
	// levelFlagSet is true when --log-level was given on the command line.
	levelFlagSet bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{stderr: os.Stderr}

	rootCmd := &cobra.Command{
		Use:   "wikimd",
		Short: "Convert MediaWiki XML dumps into a clean Markdown corpus",
		Long: `wikimd streams a MediaWiki XML export, cleans the wikitext of every
article and writes the result as one Markdown (or JSONL) corpus.

Examples:
  # Convert a dump described by a config file
  wikimd convert --config wikimd.yaml

  # Convert a compressed dump straight from a URL
  wikimd convert -i https://example.org/dumps/pages.xml.bz2 -o corpus.md

  # Try the cleaner on one page of wikitext
  wikimd page dragon.wiki --title "Red Dragon"

  # Check a signed corpus
  wikimd verify corpus.md`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.stderr = cmd.ErrOrStderr()
			a.levelFlagSet = cmd.Flags().Changed("log-level")
			a.log = logger.NewLoggerWithWriter(a.logLevel, a.stderr)

			// maxprocs.Set only fails on an invalid GOMAXPROCS value, in
			// which case the runtime default stays in place.
			_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
				a.log.Debug(fmt.Sprintf(format, args...))
			}))

			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn, error")

	rootCmd.AddCommand(
		newConvertCmd(a),
		newPageCmd(a),
		newFormatCmd(a),
		newSignCmd(a),
		newVerifyCmd(a),
		newValidateCmd(a),
		newConfigCmd(a),
	)

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig returns the configured settings, or the defaults when no
// config file was given. The result is not validated yet.
func (a *app) loadConfig() (*config.Config, error) {
	if a.configPath == "" {
		return config.DefaultConfig(), nil
	}

	cfg, err := config.ReadConfig(a.configPath)
	if err != nil {
		return nil, err
	}

	a.log.Debug("Configuration loaded", "path", a.configPath, "config", cfg.String())

	return cfg, nil
}
