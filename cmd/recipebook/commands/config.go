package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/recipebook/recipebook/config"
	"github.com/recipebook/recipebook/errors"
)

// ConfigCmd represents the config command
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage recipebook configuration",
	Long: `Display and manage recipebook configuration settings.

Configuration sources (in order of precedence):
1. Environment variables (RECIPEBOOK_* prefix, DATABASE_URL for the dsn)
2. Project config (./recipebook.toml, searched up directories)
3. User config (~/.recipebook/config.toml)
4. System config (/etc/recipebook/config.toml)
5. Default values

Examples:
  recipebook config show                  # Show current configuration
  recipebook config show --format json    # Show configuration as JSON
  recipebook config get reconcile.max_attempts
  recipebook config init                  # Write ./recipebook.toml with defaults
  recipebook config check recipebook.toml # Report unknown keys`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., database.path, reconcile.max_attempts)",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runConfigValidate,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with default values",
	RunE:  runConfigInit,
}

var configCheckCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Check a config file for unknown keys and invalid values",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigCheck,
}

var configWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show which config files are consulted",
	RunE:  runConfigWhere,
}

var (
	configFormat string
	initUser     bool
	initForce    bool
)

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")
	configInitCmd.Flags().BoolVar(&initUser, "user", false, "Write ~/.recipebook/config.toml instead of ./recipebook.toml")
	configInitCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing file (keeps rotating backups)")

	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configGetCmd)
	ConfigCmd.AddCommand(configValidateCmd)
	ConfigCmd.AddCommand(configInitCmd)
	ConfigCmd.AddCommand(configCheckCmd)
	ConfigCmd.AddCommand(configWhereCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	redacted := cfg.Redacted()
	out := cmd.OutOrStdout()

	switch configFormat {
	case "json":
		data, err := json.MarshalIndent(redacted, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to JSON")
		}
		fmt.Fprintln(out, string(data))

	case "yaml":
		data, err := yaml.Marshal(redacted)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to YAML")
		}
		fmt.Fprintf(out, "# recipebook configuration\n%s", data)

	case "toml":
		data, err := config.MarshalTOML(&redacted)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "# recipebook configuration\n%s", data)

	default:
		return errors.NewInvalidRequestError("unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	if !config.GetViper().IsSet(key) {
		return errors.NewNotFoundError("configuration key %q", key)
	}
	if key == "database.dsn" {
		fmt.Fprintln(cmd.OutOrStdout(), "********")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), config.Get(key))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}
	pterm.Success.Println("Configuration is valid")
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.ProjectConfigName
	if initUser {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "failed to locate home directory")
		}
		path = filepath.Join(home, ".recipebook", "config.toml")
	}

	if err := config.WriteFile(path, config.Defaults(), initForce); err != nil {
		return err
	}
	pterm.Success.Printf("Wrote %s\n", path)
	return nil
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	path := args[0]

	unknown, err := config.UnknownKeys(path)
	if err != nil {
		return err
	}
	for _, key := range unknown {
		pterm.Warning.Printf("Unknown key %q\n", key)
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrapf(err, "%s is invalid", path)
	}
	if len(unknown) > 0 {
		return errors.NewInvalidRequestError("%s has %d unknown key(s)", path, len(unknown))
	}

	pterm.Success.Printf("%s is valid\n", path)
	return nil
}

func runConfigWhere(cmd *cobra.Command, args []string) error {
	data := pterm.TableData{{"Precedence", "File", "Status"}}
	for i, path := range config.ConfigPaths() {
		status := "missing"
		if _, err := os.Stat(path); err == nil {
			status = "loaded"
		}
		data = append(data, []string{fmt.Sprint(i + 1), path, status})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Environment variables (RECIPEBOOK_*) override all files.")
	return nil
}
