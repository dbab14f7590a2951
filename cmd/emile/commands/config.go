package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/emile/config"
	"github.com/teranos/emile/errors"
)

// ConfigCmd groups the configuration subcommands.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the site's emile.toml",
	Long: `Manage emile's per-site configuration.

Configuration sources (later overrides earlier):
1. Built-in defaults
2. emile.toml in the site root (searched upwards)
3. EMILE_* environment variables (EMILE_PUBLISH_DEST, EMILE_GIT_ENABLED...)

base_url and default_language are read from Zola's config.toml.

Examples:
  emile config init               # Write emile.toml with every default
  emile config show               # Show the effective configuration
  emile config show --format yaml
  emile config validate`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default emile.toml",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.WriteDefault(siteRoot(cmd, args))
		if err != nil {
			return err
		}
		success("Wrote %s", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, args)
		if err != nil {
			return err
		}
		success("Configuration of %s is valid", cfg.Root)
		return nil
	},
}

var configFormat string

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, yaml")

	ConfigCmd.AddCommand(configInitCmd)
	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configValidateCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	var data []byte
	switch configFormat {
	case "toml":
		data, err = cfg.Marshal()
	case "yaml":
		data, err = yaml.Marshal(cfg)
	default:
		return errors.NewConfigError("unsupported format: %s (supported: toml, yaml)", configFormat)
	}
	if err != nil {
		return errors.Wrapf(err, "marshal config to %s", configFormat)
	}

	pterm.Fprintln(cmd.OutOrStdout(), pterm.Gray("# "+cfg.Root))
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}
