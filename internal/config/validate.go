package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTags(); err != nil {
		return err
	}
	if err := c.validateIntegration(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTags() error {
	if c.Tags.AbsoluteThreshold < 0 {
		return errors.New("tags.absolute_threshold must be zero or positive")
	}
	if c.Tags.PercentageThreshold < 0 || c.Tags.PercentageThreshold > 100 {
		return fmt.Errorf("tags.percentage_threshold must be between 0 and 100, got %v", c.Tags.PercentageThreshold)
	}
	for _, rank := range c.Tags.PercentageOf {
		if rank < 1 {
			return fmt.Errorf("tags.percentage_of ranks start at 1, got %d", rank)
		}
	}
	return nil
}

func (c *Config) validateIntegration() error {
	for key, value := range map[string]float64{
		"integration.wait_timeout":  c.Integration.WaitTimeout,
		"integration.item_timeout":  c.Integration.ItemTimeout,
		"integration.merge_timeout": c.Integration.MergeTimeout,
	} {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

func (c *Config) validateFetch() error {
	parsed, err := url.Parse(c.Fetch.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("fetch.base_url %q is not an absolute URL", c.Fetch.BaseURL)
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return errors.New("fetch.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.TTLHours < 0 {
		return errors.New("cache.ttl_hours must be zero or positive")
	}
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Path) == "" {
		return errors.New("cache.path is required when cache is enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
