package main

import (
	"fmt"

	"github.com/tositrino/arch-bootstrap/internal/config"
	"github.com/spf13/cobra"
)

// createConfigCommand creates the config subcommand
func createConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage global configuration for arch-bootstrap.

Available commands:
  init    Initialize a new configuration file with default values
  show    Print the effective configuration`,
	}

	configCmd.AddCommand(createConfigInitCommand())
	configCmd.AddCommand(createConfigShowCommand())

	return configCmd
}

// createConfigInitCommand creates the config init subcommand
func createConfigInitCommand() *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init [config-file]",
		Short: "Initialize a new configuration file",
		Long: `Initialize a new configuration file with default values.

If no path is specified, the config will be created in the current
directory as arch-bootstrap.yml

Examples:
  # Create config in current directory
  arch-bootstrap config init

  # Create config at specific location
  arch-bootstrap config init ~/.config/arch-bootstrap/config.yml`,
		Args: cobra.MaximumNArgs(1),
		RunE: executeConfigInit,
	}

	return initCmd
}

// executeConfigInit handles the config init command logic
func executeConfigInit(cmd *cobra.Command, args []string) error {
	configPath := "arch-bootstrap.yml"
	if len(args) > 0 {
		configPath = args[0]
	}

	defaultConfig := config.DefaultGlobalConfig()
	if err := defaultConfig.SaveGlobalConfigWithComments(configPath); err != nil {
		return fmt.Errorf("failed to save config file: %v", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	fmt.Fprintf(out, "\nDefault configuration settings:\n")
	fmt.Fprintf(out, "  Architecture: %s\n", defaultConfig.Arch)
	fmt.Fprintf(out, "  Mirror URL: %s\n", defaultConfig.RepoURL)
	fmt.Fprintf(out, "  Cache Directory: %s\n", defaultConfig.CacheDir)
	fmt.Fprintf(out, "  Log Level: %s\n", defaultConfig.Logging.Level)
	fmt.Fprintf(out, "\nEdit the configuration file to customize these settings.\n")

	return nil
}

// createConfigShowCommand creates the config show subcommand
func createConfigShowCommand() *cobra.Command {
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE:  executeConfigShow,
	}

	return showCmd
}

// executeConfigShow prints the merged configuration currently in effect
func executeConfigShow(cmd *cobra.Command, args []string) error {
	cfg := config.Global()
	cacheDir, err := config.CacheDir()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "arch: %s\n", cfg.Arch)
	fmt.Fprintf(out, "repo_url: %s\n", cfg.RepoURL)
	fmt.Fprintf(out, "cache_dir: %s\n", cacheDir)
	fmt.Fprintf(out, "logging:\n")
	fmt.Fprintf(out, "  level: %s\n", cfg.Logging.Level)
	if cfg.Logging.File != "" {
		fmt.Fprintf(out, "  file: %s\n", cfg.Logging.File)
	}
	return nil
}
