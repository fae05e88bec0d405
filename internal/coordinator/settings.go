package coordinator

import (
	"time"

	"shelftags/internal/config"
	"shelftags/internal/tags"
)

// Settings is the immutable per-session view of configuration.
type Settings struct {
	Integration  bool
	WaitTimeout  time.Duration
	ItemTimeout  time.Duration
	MergeTimeout time.Duration
	FetchTimeout time.Duration
	Mapping      tags.Mapping
	Thresholds   tags.Thresholds
}

// SettingsFromConfig captures the session-relevant parts of cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	return Settings{
		Integration:  cfg.Integration.Enabled,
		WaitTimeout:  cfg.Integration.WaitDuration(),
		ItemTimeout:  cfg.Integration.ItemDuration(),
		MergeTimeout: cfg.Integration.MergeDuration(),
		FetchTimeout: cfg.FetchTimeout(),
		Mapping:      cfg.Mapping(),
		Thresholds:   cfg.Thresholds(),
	}
}
