package commands

import (
	"fmt"
	"os"
	"time"

	"wikimd/internal/validator"
	"wikimd/pkg/metadata"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newSignCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sign FILE...",
		Short: "Validate Markdown files and append an integrity block",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			v := validator.NewMarkdownValidator(cfg.Validation)

			for _, path := range args {
				content, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}

				result := v.ValidateMarkdown(string(content))
				if !result.IsValid {
					result.PrintErrors(cmd.ErrOrStderr())
				}

				info, err := os.Stat(path)
				if err != nil {
					return err
				}

				signed := metadata.Sign(string(content), result.IsValid)
				if err := os.WriteFile(path, []byte(signed+"\n"), info.Mode().Perm()); err != nil {
					return fmt.Errorf("failed to write %s: %w", path, err)
				}

				a.log.Info("Signed", "path", path, "validated", result.IsValid)
			}

			return nil
		},
	}
}

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify FILE...",
		Short: "Check the integrity block of signed files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0

			for _, path := range args {
				meta, err := metadata.VerifyFile(path)
				if err != nil {
					failed++

					fmt.Fprintf(cmd.OutOrStdout(), "❌ %s: %v\n", path, err)

					continue
				}

				fmt.Fprintf(cmd.OutOrStdout(), "✅ %s: %d pages, validated=%t, signed %s\n",
					path, meta.Pages, meta.Validation, humanize.Time(meta.LastModify))
				a.log.Debug("Verified", "path", path, "hash", meta.Hash, "signed_at", meta.LastModify.Format(time.RFC3339))
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d files failed verification", failed, len(args))
			}

			return nil
		},
	}
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Parse Markdown files and report structural problems",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			v := validator.NewMarkdownValidator(cfg.Validation)
			invalid := 0

			for _, path := range args {
				content, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}

				result := v.ValidateMarkdown(string(content))

				if meta, _ := metadata.Extract(string(content)); meta != nil {
					integrity := v.ValidateIntegrity(string(content))
					result.Errors = append(result.Errors, integrity.Errors...)
					result.IsValid = result.IsValid && integrity.IsValid
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", path, result)

				result.PrintErrors(cmd.OutOrStdout())
				result.PrintWarnings(cmd.OutOrStdout())

				if !result.IsValid {
					invalid++
				}

				a.log.Debug("Validated", "path", path, "tables", result.Stats.Tables, "headings", result.Stats.Headings)
			}

			if invalid > 0 {
				return fmt.Errorf("%d of %d files are invalid", invalid, len(args))
			}

			return nil
		},
	}
}
