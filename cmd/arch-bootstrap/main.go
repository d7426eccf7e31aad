package main

import (
	"fmt"
	"os"

	"github.com/tositrino/arch-bootstrap/internal/config"
	"github.com/tositrino/arch-bootstrap/internal/utils/logger"
	"github.com/tositrino/arch-bootstrap/internal/utils/security"
	"github.com/spf13/cobra"
)

// Command-line flags that can override config file settings
var (
	configFile string = "" // Path to config file
	logLevel   string = "" // Empty means use config file value
)

func main() {
	configFilePath := configFile
	if configFilePath == "" {
		configFilePath = config.FindConfigFile()
	}

	globalConfig, err := config.LoadGlobalConfig(configFilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	config.SetGlobal(globalConfig)

	_, cleanup, err := logger.InitWithConfig(logger.Config{
		Level:    globalConfig.Logging.Level,
		FilePath: globalConfig.Logging.File,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	rootCmd := createRootCommand()
	security.AttachRecursive(rootCmd, security.DefaultLimits())

	// Handle log level override after flag parsing
	cobra.OnInitialize(func() {
		if logLevel != "" {
			globalConfig.Logging.Level = logLevel
			config.SetGlobal(globalConfig)
			logger.SetLogLevel(logLevel)
		}
	})

	log := logger.Logger()
	if configFilePath != "" {
		log.Infof("Using configuration from: %s", configFilePath)
	}
	cacheDir, _ := config.CacheDir()
	log.Debugf("Config: arch=%s, repo_url=%s, cache_dir=%s",
		config.Arch(), config.RepoURL(), cacheDir)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// createRootCommand creates and configures the root cobra command with all subcommands
func createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "arch-bootstrap",
		Short: "Bootstrap a minimal Arch Linux root filesystem",
		Long: `arch-bootstrap builds a minimal Arch Linux root filesystem inside a
directory, without requiring pacman on the host. It downloads packages
straight from a mirror, extracts them, initializes pacman's keyring
without operator interaction, and finishes with a verified re-install
of every package through pacman itself.

Use 'arch-bootstrap --help' to see available commands.
Use 'arch-bootstrap <command> --help' for more information about a command.`,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level (debug, info, warn, error)")

	rootCmd.AddCommand(createBootstrapCommand())
	rootCmd.AddCommand(createVersionCommand())
	rootCmd.AddCommand(createConfigCommand())
	rootCmd.AddCommand(createCacheCommand())
	rootCmd.AddCommand(createInstallCompletionCommand())

	return rootCmd
}
