package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/tositrino/arch-bootstrap/internal/config/validate"
	"github.com/tositrino/arch-bootstrap/internal/utils/security"
	"gopkg.in/yaml.v3"
)

// The config package stays logger-free: it loads before the logger is
// configured, since the logging settings come from here.

// GlobalConfig holds tool-level configuration parameters.
type GlobalConfig struct {
	Arch     string `yaml:"arch" json:"arch"`           // Target architecture (default: x86_64)
	RepoURL  string `yaml:"repo_url" json:"repo_url"`   // Mirror base URL, http/https/ftp (default: kernel.org mirror)
	CacheDir string `yaml:"cache_dir" json:"cache_dir"` // Directory for downloaded listings and packages (default: ./cache)

	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// LoggingConfig controls basic logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`                   // debug, info (default), warn, error
	File  string `yaml:"file,omitempty" json:"file,omitempty"` // Optional log file path for teeing output to disk
}

var (
	globalInstance *GlobalConfig
	globalMutex    sync.RWMutex
	once           sync.Once
)

// SetGlobal sets the global config instance (call once at startup in main.go).
func SetGlobal(config *GlobalConfig) {
	globalMutex.Lock()
	defer globalMutex.Unlock()
	globalInstance = config
}

// Global returns the global config instance.
func Global() *GlobalConfig {
	once.Do(func() {
		globalMutex.Lock()
		defer globalMutex.Unlock()
		if globalInstance == nil {
			globalInstance = DefaultGlobalConfig()
		}
	})

	globalMutex.RLock()
	defer globalMutex.RUnlock()
	return globalInstance
}

// DefaultGlobalConfig returns a GlobalConfig with sensible defaults.
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		Arch:     "x86_64",
		RepoURL:  "http://mirrors.kernel.org/archlinux",
		CacheDir: "./cache",

		Logging: LoggingConfig{
			Level: "info",
			File:  "arch-bootstrap.log",
		},
	}
}

// LoadGlobalConfig loads configuration from the specified path, merging the
// file's values over the defaults.
func LoadGlobalConfig(configPath string) (*GlobalConfig, error) {
	config := DefaultGlobalConfig()

	if configPath == "" {
		return config, nil
	}

	if _, err := os.Stat(configPath); err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		if errors.Is(err, os.ErrPermission) {
			// fall back to defaults rather than refusing to run
			return config, nil
		}
		return nil, fmt.Errorf("accessing config file %s: %w", configPath, err)
	}

	data, err := security.SafeReadFile(configPath, security.RejectSymlinks)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
	}

	ext := strings.ToLower(filepath.Ext(configPath))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}

		jsonData, err := json.Marshal(config)
		if err != nil {
			return nil, fmt.Errorf("converting config to JSON for validation: %w", err)
		}
		if err := validate.ValidateConfigJSON(jsonData); err != nil {
			return nil, fmt.Errorf("schema validation failed: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported config file format: %s (supported: .yaml, .yml)", ext)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// SaveGlobalConfigWithComments writes the configuration with descriptive
// comments. Used by the CLI config init command to create a starting file.
func (gc *GlobalConfig) SaveGlobalConfigWithComments(configPath string) error {
	if configPath == "" {
		return fmt.Errorf("config path is empty")
	}

	dir := filepath.Dir(configPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	jsonData, err := json.Marshal(gc)
	if err != nil {
		return fmt.Errorf("converting config to JSON for validation: %w", err)
	}
	if err := validate.ValidateConfigJSON(jsonData); err != nil {
		return fmt.Errorf("config validation failed before save: %w", err)
	}

	if err := security.SafeWriteFile(configPath, []byte(gc.renderCommentedYAML()), 0600, security.RejectSymlinks); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func (gc *GlobalConfig) renderCommentedYAML() string {
	var b strings.Builder

	b.WriteString("# arch-bootstrap - Global Configuration\n")
	b.WriteString("# Tool-level settings that apply to every bootstrap run.\n")
	b.WriteString("# Package selection lives in a profile file (see --profile).\n\n")

	fmt.Fprintf(&b, "arch: %q\n", gc.Arch)
	b.WriteString("# Target architecture: x86_64, i686, arm, armv6h, armv7h, aarch64\n\n")

	fmt.Fprintf(&b, "repo_url: %q\n", gc.RepoURL)
	b.WriteString("# Mirror base URL (http, https or ftp). Repository listings are fetched\n")
	b.WriteString("# from <repo_url>/<repo>/os/<arch>/\n\n")

	fmt.Fprintf(&b, "cache_dir: %q\n", gc.CacheDir)
	b.WriteString("# Where downloaded directory listings and package archives are kept.\n")
	b.WriteString("# Persists between runs so packages are not re-downloaded.\n\n")

	b.WriteString("logging:\n")
	fmt.Fprintf(&b, "  level: %q\n", gc.Logging.Level)
	b.WriteString("  # Log verbosity: debug, info, warn, error\n")
	if gc.Logging.File != "" {
		fmt.Fprintf(&b, "  file: %q\n", gc.Logging.File)
		b.WriteString("  # Tee logs to this file in addition to stdout/stderr\n")
	}

	return b.String()
}

var validArchs = []string{"x86_64", "i686", "arm", "armv6h", "armv7h", "aarch64"}

// Validate checks the configuration for consistency.
func (gc *GlobalConfig) Validate() error {
	if !slices.Contains(validArchs, gc.Arch) {
		return fmt.Errorf("invalid arch %q, must be one of: %s",
			gc.Arch, strings.Join(validArchs, ", "))
	}

	u, err := url.Parse(gc.RepoURL)
	if err != nil {
		return fmt.Errorf("invalid repo URL %q: %w", gc.RepoURL, err)
	}
	switch u.Scheme {
	case "http", "https", "ftp":
	default:
		return fmt.Errorf("unsupported repo URL scheme %q (supported: http, https, ftp)", u.Scheme)
	}

	if gc.CacheDir == "" {
		return fmt.Errorf("cache_dir cannot be empty")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, gc.Logging.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s",
			gc.Logging.Level, strings.Join(validLevels, ", "))
	}
	gc.Logging.File = strings.TrimSpace(gc.Logging.File)

	return nil
}

// GetConfigPaths returns the standard configuration file paths to check.
func GetConfigPaths() []string {
	homeDir, _ := os.UserHomeDir()

	paths := []string{
		"arch-bootstrap.yml",
		".arch-bootstrap.yml",
		"arch-bootstrap.yaml",
		".arch-bootstrap.yaml",
	}

	if homeDir != "" {
		paths = append(paths,
			filepath.Join(homeDir, ".arch-bootstrap", "config.yml"),
			filepath.Join(homeDir, ".arch-bootstrap", "config.yaml"),
			filepath.Join(homeDir, ".config", "arch-bootstrap", "config.yml"),
			filepath.Join(homeDir, ".config", "arch-bootstrap", "config.yaml"),
		)
	}

	paths = append(paths,
		"/etc/arch-bootstrap/config.yml",
		"/etc/arch-bootstrap/config.yaml",
	)

	return paths
}

// FindConfigFile searches for a configuration file in standard locations.
func FindConfigFile() string {
	for _, path := range GetConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Convenience accessors usable anywhere in the codebase.

func Arch() string {
	return Global().Arch
}

func RepoURL() string {
	return strings.TrimRight(Global().RepoURL, "/")
}

func CacheDir() (string, error) {
	cacheDir, err := filepath.Abs(Global().CacheDir)
	if err != nil {
		return "", fmt.Errorf("resolving cache directory: %w", err)
	}
	return cacheDir, nil
}

func LogLevel() string {
	return Global().Logging.Level
}

func IsDebugMode() bool {
	return Global().Logging.Level == "debug"
}

// EnsureCacheDir creates the cache directory if it does not exist.
func EnsureCacheDir() error {
	cacheDir, err := CacheDir()
	if err != nil {
		return err
	}
	if _, err := os.Stat(cacheDir); os.IsNotExist(err) {
		return os.MkdirAll(cacheDir, 0700)
	}
	return nil
}
