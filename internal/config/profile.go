package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tositrino/arch-bootstrap/internal/config/validate"
	"github.com/tositrino/arch-bootstrap/internal/utils/security"
	yamlv3 "gopkg.in/yaml.v3"
	sigsyaml "sigs.k8s.io/yaml"
)

// BootstrapProfile is the package manifest for a run. Packages are
// installed in list order, so dependencies must precede their dependents;
// the default profile is ordered that way.
type BootstrapProfile struct {
	Basic     []string `yaml:"basic" json:"basic"`
	Community []string `yaml:"community,omitempty" json:"community,omitempty"`

	BasicRepo     string `yaml:"basic_repo,omitempty" json:"basic_repo,omitempty"`
	CommunityRepo string `yaml:"community_repo,omitempty" json:"community_repo,omitempty"`
}

// defaultBasicPackages is the minimal closure needed to run pacman inside
// the new root, ordered so shared libraries land before their consumers.
var defaultBasicPackages = []string{
	"filesystem",
	"glibc",
	"zlib",
	"bzip2",
	"xz",
	"zstd",
	"lz4",
	"lzo",
	"attr",
	"acl",
	"expat",
	"openssl",
	"libssh2",
	"keyutils",
	"krb5",
	"e2fsprogs",
	"libunistring",
	"libidn2",
	"icu",
	"libpsl",
	"libnghttp2",
	"curl",
	"libgpg-error",
	"libassuan",
	"gpgme",
	"libarchive",
	"gcc-libs",
	"pacman",
	"pacman-mirrorlist",
	"archlinux-keyring",
	"ncurses",
	"readline",
	"bash",
	"coreutils",
	"grep",
	"gawk",
	"sed",
	"file",
	"tar",
}

// defaultCommunityPackages carries the entropy daemon the keyring
// bootstrap depends on.
var defaultCommunityPackages = []string{
	"haveged",
}

// DefaultProfile returns the stock package profile.
func DefaultProfile() *BootstrapProfile {
	return &BootstrapProfile{
		Basic:         append([]string(nil), defaultBasicPackages...),
		Community:     append([]string(nil), defaultCommunityPackages...),
		BasicRepo:     "core",
		CommunityRepo: "extra",
	}
}

// LoadProfile reads and validates a profile file. An empty path returns
// the default profile.
func LoadProfile(path string) (*BootstrapProfile, error) {
	if path == "" {
		return DefaultProfile(), nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported profile file format: %s (supported: .yaml, .yml)", ext)
	}

	data, err := security.SafeReadFile(path, security.RejectSymlinks)
	if err != nil {
		return nil, fmt.Errorf("reading profile %s: %w", path, err)
	}

	// validate the raw document, not the decoded struct, so unknown
	// fields are rejected
	jsonData, err := sigsyaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("converting profile to JSON for validation: %w", err)
	}
	if err := validate.ValidateProfileJSON(jsonData); err != nil {
		return nil, fmt.Errorf("profile validation failed: %w", err)
	}

	profile := &BootstrapProfile{}
	if err := yamlv3.Unmarshal(data, profile); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	profile.applyDefaults()

	return profile, nil
}

func (p *BootstrapProfile) applyDefaults() {
	if p.BasicRepo == "" {
		p.BasicRepo = "core"
	}
	if p.CommunityRepo == "" {
		p.CommunityRepo = "extra"
	}
}

// AllPackages returns the combined install set in order, basic first.
func (p *BootstrapProfile) AllPackages() []string {
	all := make([]string, 0, len(p.Basic)+len(p.Community))
	all = append(all, p.Basic...)
	all = append(all, p.Community...)
	return all
}
