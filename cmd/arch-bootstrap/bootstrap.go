package main

import (
	"fmt"
	"path/filepath"

	"github.com/tositrino/arch-bootstrap/internal/config"
	"github.com/tositrino/arch-bootstrap/internal/installer"
	"github.com/tositrino/arch-bootstrap/internal/repoindex"
	"github.com/tositrino/arch-bootstrap/internal/rootfs"
	"github.com/tositrino/arch-bootstrap/internal/sandbox"
	"github.com/tositrino/arch-bootstrap/internal/utils/logger"
	"github.com/spf13/cobra"
)

// Bootstrap command flags
var (
	archFlag    string = "" // Empty means use config file value
	repoURLFlag string = ""
	cacheDir    string = ""
	profileFile string = ""
)

// createBootstrapCommand creates the bootstrap subcommand
func createBootstrapCommand() *cobra.Command {
	bootstrapCmd := &cobra.Command{
		Use:   "bootstrap [flags] DEST_DIR",
		Short: "Build a minimal Arch Linux system in DEST_DIR",
		Long: `Build a minimal Arch Linux root filesystem in DEST_DIR.

Packages are resolved against the mirror's directory listing, downloaded
into the cache, verified, and extracted. The pacman keyring is then
initialized and populated inside the new root, and every package is
re-installed through pacman so the result is a fully registered system.

Requires sudo access for chroot and for writing root-owned files.`,
		Args: cobra.ExactArgs(1),
		RunE: executeBootstrap,
	}

	bootstrapCmd.Flags().StringVarP(&archFlag, "arch", "a", "",
		"Target architecture (x86_64, i686, aarch64, ...)")
	bootstrapCmd.Flags().StringVarP(&repoURLFlag, "repo-url", "r", "",
		"Mirror base URL (http, https or ftp)")
	bootstrapCmd.Flags().StringVarP(&cacheDir, "cache-dir", "d", "",
		"Package cache directory")
	bootstrapCmd.Flags().StringVar(&profileFile, "profile", "",
		"Package profile file (YAML); defaults to the built-in minimal set")

	return bootstrapCmd
}

// executeBootstrap handles the bootstrap command execution logic
func executeBootstrap(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("arch") {
		currentConfig := config.Global()
		currentConfig.Arch = archFlag
		config.SetGlobal(currentConfig)
	}
	if cmd.Flags().Changed("repo-url") {
		currentConfig := config.Global()
		currentConfig.RepoURL = repoURLFlag
		config.SetGlobal(currentConfig)
	}
	if cmd.Flags().Changed("cache-dir") {
		currentConfig := config.Global()
		currentConfig.CacheDir = cacheDir
		config.SetGlobal(currentConfig)
	}
	if err := config.Global().Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	destRoot, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving destination directory: %w", err)
	}
	if destRoot == "/" {
		return fmt.Errorf("refusing to bootstrap into /")
	}

	profile, err := config.LoadProfile(profileFile)
	if err != nil {
		return fmt.Errorf("loading package profile: %w", err)
	}

	if err := runBootstrap(destRoot, profile); err != nil {
		logger.Logger().Errorf("bootstrap failed: %v", err)
		return err
	}

	logger.Logger().Infof("minimal Arch Linux system ready in %s", destRoot)
	return nil
}

// runBootstrap is the whole pipeline: extract the package sets, lay down
// the root skeleton, bootstrap the keyring, then re-install through pacman.
func runBootstrap(destRoot string, profile *config.BootstrapProfile) error {
	log := logger.Logger()

	if err := config.EnsureCacheDir(); err != nil {
		return fmt.Errorf("preparing cache directory: %w", err)
	}
	cacheDir, err := config.CacheDir()
	if err != nil {
		return err
	}

	arch := config.Arch()
	baseURL := config.RepoURL()
	engine := installer.New(cacheDir)

	basicRepo := repoindex.Repository{BaseURL: baseURL, Name: profile.BasicRepo, Arch: arch}
	log.Infof("installing %d basic packages from %s", len(profile.Basic), profile.BasicRepo)
	if err := engine.Install(basicRepo, profile.Basic, destRoot); err != nil {
		return fmt.Errorf("installing basic packages: %w", err)
	}

	if len(profile.Community) > 0 {
		communityRepo := repoindex.Repository{BaseURL: baseURL, Name: profile.CommunityRepo, Arch: arch}
		log.Infof("installing %d packages from %s", len(profile.Community), profile.CommunityRepo)
		if err := engine.Install(communityRepo, profile.Community, destRoot); err != nil {
			return fmt.Errorf("installing %s packages: %w", profile.CommunityRepo, err)
		}
	}

	serverURL := fmt.Sprintf("%s/%s/os/%s", baseURL, profile.BasicRepo, arch)
	if err := rootfs.New(destRoot).Build(serverURL); err != nil {
		return fmt.Errorf("preparing root skeleton: %w", err)
	}

	session := sandbox.NewSession(destRoot)
	if err := session.Bootstrap(); err != nil {
		return fmt.Errorf("bootstrapping keyring: %w", err)
	}

	if err := session.Reinstall(arch, profile.Basic); err != nil {
		return fmt.Errorf("re-installing packages: %w", err)
	}

	return nil
}
