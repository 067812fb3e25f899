package commands

import (
	"errors"
	"fmt"
	"os"

	"wikimd/internal/config"

	"github.com/spf13/cobra"
)

// ErrConfigExists is returned by config init when the target exists.
var ErrConfigExists = errors.New("config file already exists")

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check configuration files",
	}

	cmd.AddCommand(newConfigInitCmd(a), newConfigCheckCmd(a))

	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init PATH",
		Short: "Write the default configuration to PATH",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := args[0]

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%w: %s", ErrConfigExists, path)
			}

			if err := config.DefaultConfig().SaveConfig(path); err != nil {
				return err
			}

			a.log.Info("Default configuration written", "path", path)

			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	return cmd
}

func newConfigCheckCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check PATH",
		Short: "Parse and validate a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(args[0])
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), cfg)

			return err
		},
	}
}
