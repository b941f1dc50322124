package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/von/internal/config"
	vonerrors "github.com/Aman-CERP/von/internal/errors"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage the user configuration file and inspect the effective one.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/von/config.yaml)
  3. Archive config (.von.yaml in the base path)
  4. Environment variables (VON_*)`,
		Example: `  # Create user config with defaults
  von config init

  # Show effective configuration
  von config show

  # Print user config file path
  von config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create user configuration file",
		Long: `Write the default configuration to ~/.config/von/config.yaml
(or $XDG_CONFIG_HOME/von/config.yaml if XDG_CONFIG_HOME is set).

An existing file is kept unless --force is given; then it is backed up
next to the new one and the oldest backups are pruned.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	out := writer(cmd.OutOrStdout())

	backup, err := config.InitUserConfig(config.NewConfig(), force)
	if err != nil {
		return err
	}

	out.Success("Created user configuration")
	out.Statusf("📁", "Location: %s", config.GetUserConfigPath())
	if backup != "" {
		out.Statusf("💾", "Backup: %s", backup)
	}
	return nil
}

func newConfigShowCmd() *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Example: `  # Show merged configuration
  von config show

  # Show only the user config as JSON
  von config show --source user --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, jsonOutput, source)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, user, defaults")

	return cmd
}

func runConfigShow(cmd *cobra.Command, jsonOutput bool, source string) error {
	var cfg *config.Config
	switch source {
	case "merged":
		_, merged, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = merged
	case "user":
		user, err := config.LoadUserConfig()
		if err != nil {
			return err
		}
		if user == nil {
			writer(cmd.ErrOrStderr()).Warningf("No user config at %s; run 'von config init'", config.GetUserConfigPath())
			return nil
		}
		cfg = user
	case "defaults":
		cfg = config.NewConfig()
	default:
		return vonerrors.ValidationError(fmt.Sprintf("unknown config source %q", source), nil).
			WithSuggestion("Use one of: merged, user, defaults")
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}
