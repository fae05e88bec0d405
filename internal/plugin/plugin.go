package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"shelftags/internal/config"
	"shelftags/internal/coordinator"
	"shelftags/internal/foreign"
	"shelftags/internal/integration"
	"shelftags/internal/logging"
	"shelftags/internal/metadata"
	"shelftags/internal/metrics"
	"shelftags/internal/services"
	"shelftags/internal/session"
	"shelftags/internal/shelfcache"
	"shelftags/internal/shelves"
	"shelftags/internal/tags"
	"shelftags/internal/worker"
)

// Options configures a Plugin. Nil collaborators fall back to the HTTP
// fetcher, the HTML parser, and a fresh registry.
type Options struct {
	Config *config.Config
	// ConfigPath, when set, is where ApplyConfiguration persists settings
	// and what WatchConfiguration follows.
	ConfigPath string
	Fetcher    shelves.Fetcher
	Parser     shelves.Parser
	HTTPClient *http.Client
	// Companion hooks are spliced when non-nil.
	Companion *foreign.Hooks
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// Plugin wires the shelf tag core for a host application.
type Plugin struct {
	store      *config.Store
	configPath string
	registry   *session.Registry
	coord      *coordinator.Coordinator
	activation *integration.Activation
	cache      *shelfcache.Cache
	fetcher    shelves.Fetcher
	parser     shelves.Parser
	base       *slog.Logger
	logger     *slog.Logger
	metrics    *metrics.Metrics

	saveMu sync.Mutex
}

// New builds a Plugin from opts.
func New(opts Options) (*Plugin, error) {
	cfg := opts.Config
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	store := config.NewStore(nil)
	if err := store.Apply(cfg); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "plugin", "new", "invalid configuration", err)
	}
	snapshot := store.Snapshot()
	logger := logging.NewComponentLogger(opts.Logger, "plugin")

	p := &Plugin{
		store:      store,
		configPath: opts.ConfigPath,
		registry:   session.NewRegistry(),
		base:       opts.Logger,
		logger:     logger,
		metrics:    opts.Metrics,
	}

	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = shelves.NewHTTPFetcher(snapshot.Fetch.BaseURL, snapshot.Fetch.UserAgent, opts.HTTPClient)
		if snapshot.Cache.Enabled {
			cache, err := shelfcache.Open(snapshot.Cache.Path, snapshot.CacheTTL(), opts.Logger, shelfcache.WithMetrics(opts.Metrics))
			if err != nil {
				return nil, fmt.Errorf("open shelves cache: %w", err)
			}
			p.cache = cache
			fetcher = cache.Wrap(fetcher)
		}
	}
	parser := opts.Parser
	if parser == nil {
		parser = shelves.HTMLParser{}
	}

	p.fetcher = fetcher
	p.parser = parser

	coord, err := coordinator.New(coordinator.Options{
		Registry: p.registry,
		Fetcher:  fetcher,
		Parser:   parser,
		Logger:   opts.Logger,
		Metrics:  opts.Metrics,
	})
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	p.coord = coord

	if opts.Companion != nil {
		p.activation = integration.Activate(integration.Options{
			Hooks:    opts.Companion,
			Registry: p.registry,
			Enabled:  p.integrationEnabled,
			Logger:   opts.Logger,
		})
	}
	return p, nil
}

func (p *Plugin) integrationEnabled() bool {
	return p.store.Snapshot().Integration.Enabled
}

// Registry returns the session registry shared with the companion splice.
func (p *Plugin) Registry() *session.Registry {
	return p.registry
}

// Identify runs one session using a configuration snapshot taken now.
func (p *Plugin) Identify(ctx context.Context, req coordinator.Request, sink metadata.Sink) (coordinator.Summary, error) {
	settings := coordinator.SettingsFromConfig(p.store.Snapshot())
	return p.coord.Identify(ctx, req, settings, sink)
}

// Explanation is the result of a single-item diagnostic run.
type Explanation struct {
	Outcome worker.Outcome
	Record  metadata.Record
	Report  tags.Report
	Err     error
}

// Explain runs one worker for vendorID outside any session and reports the
// threshold arithmetic alongside the record it would emit.
func (p *Plugin) Explain(ctx context.Context, vendorID string, seed metadata.Record) (Explanation, error) {
	settings := coordinator.SettingsFromConfig(p.store.Snapshot())
	w, err := worker.New(worker.Options{
		VendorID:   vendorID,
		Seed:       seed,
		Fetcher:    p.fetcher,
		Parser:     p.parser,
		Mapping:    settings.Mapping,
		Thresholds: settings.Thresholds,
		Timeout:    settings.FetchTimeout,
		Sink:       &metadata.Collector{},
		Logger:     p.base,
		Metrics:    p.metrics,
	})
	if err != nil {
		return Explanation{}, err
	}
	outcome := w.Run(ctx)
	if outcome == worker.OutcomeCanceled {
		return Explanation{Outcome: outcome}, ctx.Err()
	}
	record, _ := w.Record()
	return Explanation{Outcome: outcome, Record: record, Report: w.Report(), Err: w.Err()}, nil
}

// Configuration returns a copy of the active configuration.
func (p *Plugin) Configuration() *config.Config {
	return p.store.Snapshot()
}

// ApplyConfiguration validates cfg and makes it active for sessions that
// start afterwards. When a config path is set the new settings are saved.
func (p *Plugin) ApplyConfiguration(cfg *config.Config) error {
	if err := p.store.Apply(cfg); err != nil {
		return services.Wrap(services.ErrValidation, "plugin", "apply configuration", "configuration rejected", err)
	}
	if p.configPath == "" {
		return nil
	}
	p.saveMu.Lock()
	defer p.saveMu.Unlock()
	if err := config.Save(p.configPath, p.store.Snapshot()); err != nil {
		return fmt.Errorf("persist configuration: %w", err)
	}
	p.logger.Info("configuration saved", logging.String("path", p.configPath))
	return nil
}

// WatchConfiguration reloads the config file into the active configuration
// until ctx ends.
func (p *Plugin) WatchConfiguration(ctx context.Context) error {
	if p.configPath == "" {
		return errors.New("watch configuration: no config path")
	}
	watcher, err := config.NewWatcher(p.configPath, p.store, p.base)
	if err != nil {
		return err
	}
	return watcher.Run(ctx)
}

// Close releases the companion hooks and closes the page cache.
func (p *Plugin) Close() error {
	p.activation.Release()
	if p.cache != nil {
		return p.cache.Close()
	}
	return nil
}
