package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"wikimd/internal/formatter"
	"wikimd/internal/normalizer"
	"wikimd/pkg/metadata"

	"github.com/spf13/cobra"
)

// ErrUnformatted is returned by a dry run that found files to change.
var ErrUnformatted = errors.New("files need formatting")

type formatSummary struct {
	scanned int
	changed int
	failed  int
}

func newFormatCmd(a *app) *cobra.Command {
	var (
		write     bool
		normalize bool
	)

	cmd := &cobra.Command{
		Use:   "format PATH...",
		Short: "Align the tables of Markdown files",
		Long: `Format pads the table columns of every .md file under PATH. Signed
files are re-signed with their validation flag kept. Without --write
it only reports which files would change and fails if any would.
--normalize also re-runs the list and whitespace passes of the
converter, for pages edited by hand.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				sum    formatSummary
				passes []func(string) string
			)

			if normalize {
				cfg, err := a.loadConfig()
				if err != nil {
					return err
				}

				passes = append(passes, normalizer.NewProcessor(normalizer.OptionsFromConfig(cfg.Cleaning)).Renormalize)
			}

			for _, root := range args {
				err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
					if err != nil {
						a.log.Error("Cannot access path", "path", path, "error", err)
						sum.failed++

						return nil
					}

					if d.IsDir() {
						if strings.HasPrefix(d.Name(), ".") && path != root {
							return filepath.SkipDir
						}

						return nil
					}

					if !strings.EqualFold(filepath.Ext(path), ".md") {
						return nil
					}

					sum.scanned++

					changed, err := formatFile(path, write, passes...)
					switch {
					case err != nil:
						a.log.Error("Failed to format", "path", path, "error", err)
						sum.failed++
					case changed && write:
						sum.changed++
						a.log.Info("Formatted", "path", path)
					case changed:
						sum.changed++
						a.log.Info("Would format", "path", path)
					}

					return nil
				})
				if err != nil {
					return fmt.Errorf("failed to walk %s: %w", root, err)
				}
			}

			a.log.Info("Format summary", "scanned", sum.scanned, "changed", sum.changed, "errors", sum.failed)

			if sum.failed > 0 {
				return fmt.Errorf("%d files failed", sum.failed)
			}

			if sum.changed > 0 && !write {
				return ErrUnformatted
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&write, "write", false, "write changes back (default: dry run)")
	cmd.Flags().BoolVar(&normalize, "normalize", false, "re-run block and whitespace normalization before aligning")

	return cmd
}

// formatFile formats one file and reports whether its content changed.
func formatFile(path string, write bool, passes ...func(string) string) (bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	formatted, err := formatter.FormatMarkdown(string(content), passes...)
	if err != nil {
		return false, err
	}

	// Re-signing stamps a new time, so compare the bodies only.
	_, before := metadata.Extract(string(content))
	_, after := metadata.Extract(formatted)

	if before == after {
		return false, nil
	}

	if !write {
		return true, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}

	if err := os.WriteFile(path, []byte(formatted+"\n"), info.Mode().Perm()); err != nil {
		return false, err
	}

	return true, nil
}
