package config

import (
	"fmt"
	"os"
	"strings"

	"shelftags/internal/tags"
	"shelftags/internal/textutil"
)

func (c *Config) normalize() error {
	c.normalizeTags()
	c.normalizeFetch()
	if err := c.normalizeCache(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) normalizeTags() {
	if c.Tags.ShelfMappings == nil {
		c.Tags.ShelfMappings = tags.DefaultMapping()
		return
	}
	cleaned := make(map[string][]string, len(c.Tags.ShelfMappings))
	for shelf, mapped := range c.Tags.ShelfMappings {
		shelf = strings.TrimSpace(shelf)
		if shelf == "" {
			continue
		}
		out := textutil.Dedupe(append(cleaned[shelf], mapped...))
		if len(out) == 0 {
			continue
		}
		cleaned[shelf] = out
	}
	c.Tags.ShelfMappings = cleaned
}

func (c *Config) normalizeFetch() {
	if value, ok := os.LookupEnv("SHELFTAGS_BASE_URL"); ok && strings.TrimSpace(value) != "" {
		c.Fetch.BaseURL = value
	}
	c.Fetch.BaseURL = strings.TrimRight(strings.TrimSpace(c.Fetch.BaseURL), "/")
	if c.Fetch.BaseURL == "" {
		c.Fetch.BaseURL = defaultBaseURL
	}
	c.Fetch.UserAgent = strings.TrimSpace(c.Fetch.UserAgent)
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeCache() error {
	if strings.TrimSpace(c.Cache.Path) == "" {
		c.Cache.Path = defaultCachePath()
	}
	var err error
	if c.Cache.Path, err = expandPath(c.Cache.Path); err != nil {
		return fmt.Errorf("cache.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	var err error
	if c.Logging.Dir, err = expandPath(c.Logging.Dir); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}
