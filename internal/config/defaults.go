package config

import (
	"os"
	"path/filepath"
	"strings"

	"shelftags/internal/tags"
)

const (
	defaultConfigPath          = "~/.config/shelftags/config.toml"
	defaultBaseURL             = "https://www.goodreads.com"
	defaultUserAgent           = "shelftags/1.0 (+https://github.com/shelftags/shelftags)"
	defaultFetchTimeoutSeconds = 30
	defaultAbsoluteThreshold   = 10
	defaultPercentage          = 50
	defaultWaitTimeout         = 10
	defaultItemTimeout         = 30
	defaultMergeTimeout        = 60
	defaultCacheTTLHours       = 24
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Tags: Tags{
			AbsoluteThreshold:   defaultAbsoluteThreshold,
			PercentageThreshold: defaultPercentage,
			PercentageOf:        []int{3, 4},
			ShelfMappings:       tags.DefaultMapping(),
		},
		Integration: Integration{
			Enabled:      true,
			WaitTimeout:  defaultWaitTimeout,
			ItemTimeout:  defaultItemTimeout,
			MergeTimeout: defaultMergeTimeout,
		},
		Fetch: Fetch{
			BaseURL:        defaultBaseURL,
			TimeoutSeconds: defaultFetchTimeoutSeconds,
			UserAgent:      defaultUserAgent,
		},
		Cache: Cache{
			Enabled:  false,
			Path:     defaultCachePath(),
			TTLHours: defaultCacheTTLHours,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultCachePath() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "shelftags", "shelves.db")
	}
	return "~/.cache/shelftags/shelves.db"
}
