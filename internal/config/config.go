// Package config handles the user configuration file and the per-user
// directories forgedeck writes to. Config lives at
// ~/.config/forgedeck/config.yaml; the cache database and log file live
// under ~/.cache/forgedeck/. A missing or empty config falls back to a
// GitHub default so the tool works out of the box.
package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"forgedeck/internal/forge"
)

// AppDir is the directory name used under the user config and cache roots.
const AppDir = "forgedeck"

// ForgeType names a supported backend implementation.
type ForgeType string

const (
	ForgeGitHub ForgeType = "github"
	ForgeGitea  ForgeType = "gitea"
)

// ForgeEntry declares one configured forge in config.yaml.
type ForgeEntry struct {
	Name string    `yaml:"name"`
	Type ForgeType `yaml:"type"`
	Host string    `yaml:"host"`
	// TokenEnv names an environment variable holding the API token.
	TokenEnv string `yaml:"token_env,omitempty"`
	// TokenCommand is a shell command printing the token (e.g. "gh auth token").
	TokenCommand string `yaml:"token_command,omitempty"`
}

// GeneralConfig captures top-level preferences.
type GeneralConfig struct {
	DefaultForge string `yaml:"default_forge,omitempty"`
}

// CacheConfig allows per-kind TTL overrides, e.g. "checks: 10s".
type CacheConfig struct {
	TTL map[string]string `yaml:"ttl,omitempty"`
}

// Config models the whole config.yaml.
type Config struct {
	General GeneralConfig `yaml:"general"`
	Forges  []ForgeEntry  `yaml:"forges"`
	Cache   CacheConfig   `yaml:"cache"`
}

const exampleYAML = `# forgedeck configuration
general:
  # Which forge to use when the current directory gives no hint.
  default_forge: github

forges:
  - name: github
    type: github
    host: github.com
    token_env: GITHUB_TOKEN
    token_command: gh auth token
  # - name: work-gitea
  #   type: gitea
  #   host: gitea.example.com
  #   token_env: GITEA_TOKEN

cache:
  ttl:
    # Max staleness before a background refresh, per resource kind.
    # Kinds: repos, home, pulls, pull, diff, issues, commits, commit,
    # runs, checks.
    # checks: 30s
    # pulls: 5m
`

// Default returns the built-in single-GitHub configuration.
func Default() Config {
	return Config{
		General: GeneralConfig{DefaultForge: "github"},
		Forges: []ForgeEntry{{
			Name:         "github",
			Type:         ForgeGitHub,
			Host:         "github.com",
			TokenEnv:     "GITHUB_TOKEN",
			TokenCommand: "gh auth token",
		}},
	}
}

// ExampleYAML returns the documented starter config for `config init`.
func ExampleYAML() string { return exampleYAML }

// Path returns the config file location.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: no user config dir: %w", err)
	}
	return filepath.Join(dir, AppDir, "config.yaml"), nil
}

// CacheDir returns (and creates) the per-user cache directory.
func CacheDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("config: no user cache dir: %w", err)
	}
	dir = filepath.Join(dir, AppDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("config: ensure cache dir: %w", err)
	}
	return dir, nil
}

// TokenPath returns the stored-token location for a forge entry.
func TokenPath(name string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: no user config dir: %w", err)
	}
	return filepath.Join(dir, AppDir, "token-"+name), nil
}

// Load reads the config file, falling back to Default when it is missing,
// unreadable, or declares no forges. Configuration trouble never stops
// startup.
func Load() Config {
	path, err := Path()
	if err != nil {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Default()
	}
	return Parse(data)
}

// Parse decodes YAML config bytes with Default as the fallback.
func Parse(data []byte) Config {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default()
	}
	if len(cfg.Forges) == 0 {
		return Default()
	}
	return cfg
}

// Entry finds a forge entry by name.
func (c Config) Entry(name string) (ForgeEntry, bool) {
	for _, f := range c.Forges {
		if f.Name == name {
			return f, true
		}
	}
	return ForgeEntry{}, false
}

// TTLOverrides converts the cache.ttl section into typed durations.
// Unparseable values are skipped; overrides must never break startup.
func (c Config) TTLOverrides() map[forge.Kind]time.Duration {
	if len(c.Cache.TTL) == 0 {
		return nil
	}
	out := make(map[forge.Kind]time.Duration, len(c.Cache.TTL))
	for kind, raw := range c.Cache.TTL {
		d, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil || d <= 0 {
			continue
		}
		out[forge.Kind(kind)] = d
	}
	return out
}

// DetectForge picks the forge entry matching the current directory's git
// origin host, falling back to the configured default and then the first
// entry.
func DetectForge(cfg Config) (ForgeEntry, bool) {
	if host, ok := originHost(); ok {
		for _, f := range cfg.Forges {
			if f.Host == host {
				return f, true
			}
		}
	}
	if f, ok := cfg.Entry(cfg.General.DefaultForge); ok {
		return f, true
	}
	if len(cfg.Forges) > 0 {
		return cfg.Forges[0], true
	}
	return ForgeEntry{}, false
}

func originHost() (string, bool) {
	out, err := exec.Command("git", "remote", "get-url", "origin").Output()
	if err != nil {
		return "", false
	}
	return ExtractHost(strings.TrimSpace(string(out)))
}

// ExtractHost pulls the hostname out of SSH and HTTP(S) remote URLs.
func ExtractHost(url string) (string, bool) {
	switch {
	case strings.HasPrefix(url, "git@"):
		// git@host:owner/repo.git
		rest := strings.TrimPrefix(url, "git@")
		host, _, ok := strings.Cut(rest, ":")
		return host, ok && host != ""
	case strings.HasPrefix(url, "ssh://"):
		// ssh://git@host[:port]/owner/repo.git
		rest := strings.TrimPrefix(url, "ssh://")
		if _, after, ok := strings.Cut(rest, "@"); ok {
			rest = after
		}
		host, _, _ := strings.Cut(rest, "/")
		host, _, _ = strings.Cut(host, ":")
		return host, host != ""
	case strings.HasPrefix(url, "https://"), strings.HasPrefix(url, "http://"):
		_, rest, _ := strings.Cut(url, "://")
		host, _, _ := strings.Cut(rest, "/")
		return host, host != ""
	default:
		return "", false
	}
}
