package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"wikimd/internal/config"
	"wikimd/internal/corpus"
	"wikimd/internal/dump"
	"wikimd/internal/logger"
	"wikimd/internal/runner"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

type convertFlags struct {
	input    string
	output   string
	format   string
	workers  int
	start    int
	end      int
	sign     bool
	validate bool
	align    bool
}

func newConvertCmd(a *app) *cobra.Command {
	var f convertFlags

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a MediaWiki XML dump into a corpus",
		Long: `Convert reads every page of a MediaWiki XML dump, drops talk pages and
excluded namespaces, cleans the wikitext and writes the pages in dump
order. Flags override the matching config file settings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			f.apply(cmd, cfg)

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return a.convert(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&f.input, "input", "i", "", "dump path or http(s) URL (.xml, .bz2, .gz)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "corpus output path")
	cmd.Flags().StringVar(&f.format, "format", "", "output format: markdown or jsonl")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "page workers (0 = GOMAXPROCS)")
	cmd.Flags().IntVar(&f.start, "start", 0, "first 1-based page index to convert")
	cmd.Flags().IntVar(&f.end, "end", 0, "last 1-based page index to convert (0 = no limit)")
	cmd.Flags().BoolVar(&f.sign, "sign", false, "append an integrity block to the corpus")
	cmd.Flags().BoolVar(&f.validate, "validate", false, "check every page as CommonMark")
	cmd.Flags().BoolVar(&f.align, "align-tables", false, "pad table columns to equal width")

	return cmd
}

// apply copies every flag the user set onto cfg.
func (f *convertFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("input") {
		cfg.Input.Path = f.input
	}

	if flags.Changed("output") {
		cfg.Output.Path = f.output
	}

	if flags.Changed("format") {
		cfg.Output.Format = f.format
	}

	if flags.Changed("workers") {
		cfg.Parser.Workers = f.workers
	}

	if flags.Changed("start") {
		cfg.Parser.StartIndex = f.start
	}

	if flags.Changed("end") {
		cfg.Parser.EndIndex = f.end
	}

	if flags.Changed("sign") {
		cfg.Output.Sign = f.sign
	}

	if flags.Changed("validate") {
		cfg.Validation.Enabled = f.validate
	}

	if flags.Changed("align-tables") {
		cfg.Output.AlignTables = f.align
	}
}

func (a *app) convert(ctx context.Context, cfg *config.Config) error {
	log := a.log

	if cfg.Logging.File != "" {
		file, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer file.Close()

		log = logger.NewLoggerWithWriter(a.logLevel, io.MultiWriter(a.stderr, file))
	}

	// An explicit --log-level wins over the config file
	if !a.levelFlagSet {
		log.SetLevel(cfg.Logging.Level)
	}

	fetcher := dump.NewFetcherWithConfig(&cfg.Input.Retry)

	src, err := fetcher.Open(ctx, cfg.Input.Path)
	if err != nil {
		return err
	}
	defer src.Close()

	size := "unknown size"
	if src.Size >= 0 {
		size = humanize.Bytes(uint64(src.Size))
	}

	log.Info("Dump opened",
		"source", src.Name,
		"size", size,
		"compression", src.Compression,
		"attempts", src.Attempts,
	)

	out, err := corpus.Create(cfg.Output.Path, corpus.OptionsFromConfig(cfg.Output))
	if err != nil {
		return err
	}

	r := runner.New(cfg, log)
	log.Info("Converting", "workers", r.Workers(), "output", cfg.Output.Path, "format", cfg.Output.Format)

	reader := dump.NewReader(src)

	report, err := r.Run(ctx, reader, out)
	if err != nil {
		out.Abort()
		return err
	}

	site := reader.SiteInfo()
	log.Debug("Dump read", "site", site.Name, "base", site.Base, "namespaces", len(site.Namespaces), "pages_read", reader.Count())

	validated := cfg.Validation.Enabled && report.Invalid == 0
	if err := out.Close(validated); err != nil {
		return err
	}

	report.BytesOut = out.Bytes()
	report.Log(log)

	return nil
}
