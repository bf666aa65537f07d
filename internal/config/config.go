// Package config loads and saves the CLI's persistent defaults: the
// header options a bare `exi encode`/`exi decode` invocation falls back
// to when flags don't override them. Grounded on the config.go of
// lookbusy1344-arm_emulator (BurntSushi/toml, platform config-dir
// lookup, Default/Load/Save trio).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/hexbind/exi/internal/exi"
)

// Config is the on-disk shape of the CLI's defaults file.
type Config struct {
	Options struct {
		Alignment     string `toml:"alignment"` // bit-packed, byte-aligned, pre-compression, compression
		Compression   bool   `toml:"compression"`
		Strict        bool   `toml:"strict"`
		SelfContained bool   `toml:"self_contained"`
		ValueCapacity int    `toml:"value_capacity"` // -1 unbounded, 0 disabled, >0 bounded
		BlockSize     int    `toml:"block_size"`
		SchemaID      string `toml:"schema_id"`
	} `toml:"options"`

	Preserve struct {
		Comments      bool `toml:"comments"`
		DTDs          bool `toml:"dtds"`
		LexicalValues bool `toml:"lexical_values"`
		PIs           bool `toml:"pis"`
		Prefixes      bool `toml:"prefixes"`
	} `toml:"preserve"`

	CLI struct {
		WithCookie bool `toml:"with_cookie"`
		Version    int  `toml:"version"`
	} `toml:"cli"`
}

// DefaultConfig returns the CLI's built-in defaults, independent of any
// file on disk.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Options.Alignment = "bit-packed"
	cfg.Options.ValueCapacity = exi.UnboundedCapacity
	cfg.Options.BlockSize = 1000000
	cfg.CLI.WithCookie = false
	cfg.CLI.Version = 1
	return cfg
}

// GetConfigPath returns the platform-specific path of the CLI's config
// file, creating its directory if necessary.
func GetConfigPath() string {
	var dir string
	switch runtime.GOOS {
	case "windows":
		dir = os.Getenv("APPDATA")
		if dir == "" {
			dir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		dir = filepath.Join(dir, "exi")
	case "darwin", "linux":
		home, err := os.UserHomeDir()
		if err != nil {
			return "exi.toml"
		}
		dir = filepath.Join(home, ".config", "exi")
	default:
		return "exi.toml"
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "exi.toml"
	}
	return filepath.Join(dir, "exi.toml")
}

// Load reads the CLI's default config file, falling back silently to
// DefaultConfig when it doesn't exist.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("config: create directory for %s: %w", path, err)
	}
	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("config: create %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("config: encode %s: %w", path, err)
	}
	return nil
}

var alignmentByName = map[string]exi.Alignment{
	"bit-packed":      exi.AlignmentBitPacked,
	"byte-aligned":    exi.AlignmentByteAligned,
	"pre-compression": exi.AlignmentPreCompression,
	"compression":     exi.AlignmentCompression,
}

// HeaderOptions translates the config's flat TOML shape into an
// exi.HeaderOptions, ready for exi.HeaderOptions.Validate.
func (c *Config) HeaderOptions() (exi.HeaderOptions, error) {
	align, ok := alignmentByName[c.Options.Alignment]
	if !ok {
		return exi.HeaderOptions{}, fmt.Errorf("config: unknown alignment %q", c.Options.Alignment)
	}
	return exi.HeaderOptions{
		Alignment:     align,
		Compression:   c.Options.Compression,
		Strict:        c.Options.Strict,
		SelfContained: c.Options.SelfContained,
		Preserve: exi.Preserve{
			Comments:      c.Preserve.Comments,
			DTDs:          c.Preserve.DTDs,
			LexicalValues: c.Preserve.LexicalValues,
			PIs:           c.Preserve.PIs,
			Prefixes:      c.Preserve.Prefixes,
		},
		SchemaID:      c.Options.SchemaID,
		ValueCapacity: c.Options.ValueCapacity,
		BlockSize:     c.Options.BlockSize,
	}, nil
}
