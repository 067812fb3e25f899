package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"wikimd/internal/formatter"
	"wikimd/internal/models"
	"wikimd/internal/normalizer"
	"wikimd/internal/validator"

	"github.com/spf13/cobra"
)

// ErrPageSkipped is returned when the converter produced no Markdown.
var ErrPageSkipped = errors.New("page skipped")

func newPageCmd(a *app) *cobra.Command {
	var (
		title    string
		align    bool
		validate bool
	)

	cmd := &cobra.Command{
		Use:   "page FILE",
		Short: "Convert one file of wikitext and print the Markdown",
		Long: `Page runs the cleaning passes over a single wikitext file ("-" reads
stdin) and prints the Markdown. Diagnostics go to stderr.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			text, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			if title == "" {
				title = titleFromPath(args[0])
			}

			p := normalizer.NewProcessor(normalizer.OptionsFromConfig(cfg.Cleaning))
			result := p.Process(models.Page{Title: title, Text: text, Index: 1})

			for _, d := range result.Diagnostics {
				a.log.Warn("Conversion diagnostic", "page", d.PageTitle, "component", string(d.Component), "message", d.Message)
			}

			if !result.OK() {
				return fmt.Errorf("%w: %s", ErrPageSkipped, result.Reason)
			}

			markdown := result.Markdown
			if align || cfg.Output.AlignTables {
				markdown = formatter.AlignTables(markdown)
			}

			if validate {
				check := validator.NewMarkdownValidator(cfg.Validation).ValidateMarkdown(markdown)
				check.PrintErrors(cmd.ErrOrStderr())
				check.PrintWarnings(cmd.ErrOrStderr())
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), markdown)

			return err
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "page title (default: file name)")
	cmd.Flags().BoolVar(&align, "align-tables", false, "pad table columns to equal width")
	cmd.Flags().BoolVar(&validate, "validate", false, "report structural problems on stderr")

	return cmd
}

func readInput(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}

		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	return string(data), nil
}

func titleFromPath(path string) string {
	if path == "-" {
		return "stdin"
	}

	base := filepath.Base(path)

	return strings.ReplaceAll(strings.TrimSuffix(base, filepath.Ext(base)), "_", " ")
}
