package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"

	"shelftags/internal/tags"
)

//go:embed sample_config.toml
var sampleConfig string

// Tags contains the shelf mapping and the two threshold passes.
type Tags struct {
	// AbsoluteThreshold drops tags with fewer accumulated votes.
	AbsoluteThreshold int `toml:"absolute_threshold"`
	// PercentageThreshold is applied relative to the average vote count of the
	// tags at PercentageOf ranks.
	PercentageThreshold float64 `toml:"percentage_threshold"`
	// PercentageOf lists 1-based tag ranks used for the percentage base.
	PercentageOf []int `toml:"percentage_of"`
	// ShelfMappings maps vendor shelf names to tags. When omitted the built-in
	// mapping is used.
	ShelfMappings map[string][]string `toml:"shelf_mappings"`
}

// Integration contains settings for merging into a companion lookup pool.
// Timeouts are expressed in seconds.
type Integration struct {
	Enabled      bool    `toml:"enabled"`
	WaitTimeout  float64 `toml:"wait_timeout"`
	ItemTimeout  float64 `toml:"item_timeout"`
	MergeTimeout float64 `toml:"merge_timeout"`
}

// Fetch contains settings for retrieving vendor shelves pages.
type Fetch struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	UserAgent      string `toml:"user_agent"`
}

// Cache contains configuration for the shelves page cache.
type Cache struct {
	Enabled  bool   `toml:"enabled"` // Default: false
	Path     string `toml:"path"`    // Default: ~/.cache/shelftags/shelves.db
	TTLHours int    `toml:"ttl_hours"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Config encapsulates all configuration values for shelftags.
//
// Configuration sections by subsystem:
//   - Tags: shelf mapping and threshold passes
//   - Integration: merge behaviour with a companion lookup pool
//   - Fetch: vendor base URL, per-request timeout, user agent
//   - Cache: optional SQLite page cache
//   - Logging: log format, level, and directory
type Config struct {
	Tags        Tags        `toml:"tags"`
	Integration Integration `toml:"integration"`
	Fetch       Fetch       `toml:"fetch"`
	Cache       Cache       `toml:"cache"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	var data []byte
	if exists {
		data, err = os.ReadFile(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, "", false, err
	}
	return cfg, resolvedPath, exists, nil
}

// Parse decodes TOML content on top of the defaults, then normalizes and
// validates the result. Empty input yields the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	// Decoding merges into existing maps, so a configured mapping must start empty.
	cfg.Tags.ShelfMappings = nil

	if len(bytes.TrimSpace(data)) > 0 {
		decoder := toml.NewDecoder(bytes.NewReader(data))
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("shelftags.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// Save validates cfg and writes it to path as TOML. Concurrent writers are
// serialized through an advisory lock file next to the target, and the file
// is replaced atomically.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("save config: nil config")
	}
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}

	clone := cfg.Clone()
	if err := clone.normalize(); err != nil {
		return err
	}
	if err := clone.Validate(); err != nil {
		return err
	}

	data, err := toml.Marshal(clone)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	dir := filepath.Dir(expanded)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	lock := flock.New(expanded + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock config: %w", err)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	tmp, err := os.CreateTemp(dir, ".shelftags-config-*.toml")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close config: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod config: %w", err)
	}
	if err := os.Rename(tmpName, expanded); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	out.Tags.PercentageOf = append([]int(nil), c.Tags.PercentageOf...)
	out.Tags.ShelfMappings = tags.Mapping(c.Tags.ShelfMappings).Clone()
	return &out
}

// Thresholds returns the threshold passes described by the tags section.
func (c *Config) Thresholds() tags.Thresholds {
	return tags.Thresholds{
		Absolute:   c.Tags.AbsoluteThreshold,
		Percentage: c.Tags.PercentageThreshold,
		Ranks:      append([]int(nil), c.Tags.PercentageOf...),
	}
}

// Mapping returns a copy of the configured shelf mapping.
func (c *Config) Mapping() tags.Mapping {
	return tags.Mapping(c.Tags.ShelfMappings).Clone()
}

// FetchTimeout returns the per-request fetch timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// CacheTTL returns how long cached pages stay fresh. Zero disables expiry.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// WaitDuration returns how long a session waits for the companion pool queue.
func (i Integration) WaitDuration() time.Duration { return seconds(i.WaitTimeout) }

// ItemDuration returns how long a session waits for the next announced item.
func (i Integration) ItemDuration() time.Duration { return seconds(i.ItemTimeout) }

// MergeDuration returns how long a session waits for a companion result.
func (i Integration) MergeDuration() time.Duration { return seconds(i.MergeTimeout) }

func seconds(value float64) time.Duration {
	return time.Duration(value * float64(time.Second))
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
