package testsupport

import (
	"path/filepath"
	"testing"

	"shelftags/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test and
// short integration timeouts. It applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Cache.Path = filepath.Join(base, "cache", "shelves.db")
	cfgVal.Logging.Dir = filepath.Join(base, "logs")
	cfgVal.Integration.WaitTimeout = 1
	cfgVal.Integration.ItemTimeout = 1
	cfgVal.Integration.MergeTimeout = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithIntegration toggles companion pool integration.
func WithIntegration(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Integration.Enabled = enabled
	}
}

// WithThresholds overrides the absolute and percentage thresholds.
func WithThresholds(absolute int, percentage float64, ranks ...int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tags.AbsoluteThreshold = absolute
		b.cfg.Tags.PercentageThreshold = percentage
		if len(ranks) > 0 {
			b.cfg.Tags.PercentageOf = append([]int(nil), ranks...)
		}
	}
}

// WithMapping replaces the shelf mapping.
func WithMapping(mapping map[string][]string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tags.ShelfMappings = mapping
	}
}

// WithCache enables the page cache under the test temp directory.
func WithCache() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Enabled = true
	}
}

// WithBaseURL points fetches at a test server.
func WithBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Fetch.BaseURL = url
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Logging.Dir)
}
