package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvPrefix prefixes environment overrides, e.g. POSSEMARK_EXPORT_SCALE or
// POSSEMARK_TOOLS_STROKE.
const EnvPrefix = "POSSEMARK_"

// Loader handles loading the configuration.
type Loader struct {
	Version      string // Build version, used to determine dev mode
	OverridePath string // Set at compile time or by -config
	Getenv       func(string) string
}

// NewLoader creates a new Loader.
func NewLoader(version string, overridePath string) *Loader {
	return &Loader{
		Version:      version,
		OverridePath: overridePath,
		Getenv:       os.Getenv,
	}
}

// Load reads the config file, if any, and applies environment overrides.
func (l *Loader) Load() (*Config, error) {
	cfg := New()
	if path := l.GetConfigPath(); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		cfg, err = Parse(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(l.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetConfigPath returns the path to the configuration file, or empty string if not found.
func (l *Loader) GetConfigPath() string {
	// 1. Variable override path
	if l.OverridePath != "" {
		if _, err := os.Stat(l.OverridePath); err == nil {
			return l.OverridePath
		}
	}

	// 2. Local run directory (dev mode)
	if l.Version == "dev" {
		wd, _ := os.Getwd()
		localPath := filepath.Join(wd, ".possemarkrc")
		if _, err := os.Stat(localPath); err == nil {
			return localPath
		}
	}

	// 3. XDG Config Path
	if xdgPath := DefaultPath(); xdgPath != "" {
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath
		}
	}

	return ""
}

// DefaultPath is where "config save" writes when no path is given.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "possemark", "config.rc")
}

// Save writes cfg to path in RC format, creating parent directories.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(cfg.String()), 0o644)
}

var envKeys = map[string][]string{
	"":       {"output", "export_dir", "export_scale", "page_width_mm", "settle_delay"},
	"tools":  {"stroke", "fill", "width", "highlight", "highlight_opacity", "highlight_width", "highlight_height", "image_width", "text_size"},
	"notify": {"export", "copy"},
	"source": {"renderer", "dpi", "cache_ttl"},
}

// EnvName returns the environment variable overriding section.key.
func EnvName(section, key string) string {
	if section == "" {
		return EnvPrefix + strings.ToUpper(key)
	}
	return EnvPrefix + strings.ToUpper(section+"_"+key)
}

// ApplyEnv overrides values from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		return nil
	}
	for _, section := range []string{"", "tools", "notify", "source"} {
		for _, key := range envKeys[section] {
			name := EnvName(section, key)
			v := strings.TrimSpace(getenv(name))
			if v == "" {
				continue
			}
			if err := c.Set(section, key, v); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	return nil
}
