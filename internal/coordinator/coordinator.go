package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"shelftags/internal/logging"
	"shelftags/internal/metadata"
	"shelftags/internal/metrics"
	"shelftags/internal/rendezvous"
	"shelftags/internal/services"
	"shelftags/internal/session"
	"shelftags/internal/shelves"
	"shelftags/internal/worker"
)

// Mode describes how a session obtained its work.
type Mode string

const (
	ModeIntegrated Mode = "integrated"
	ModeStandalone Mode = "standalone"
)

// Request describes one identify call from the host.
type Request struct {
	Key         *session.Key
	Identifiers map[string]string
	Title       string
	Authors     []string
}

// Summary reports what a session did.
type Summary struct {
	Mode      Mode
	Announced int
	Workers   int
	Emitted   int
	Merged    int
	TagOnly   int

	// ForeignOnly counts companion results passed through because no tags
	// qualified for the item.
	ForeignOnly int

	Empty  int
	Failed int

	// DrainTimedOut is set when the per-item wait ended the drain early.
	DrainTimedOut bool
}

// Options configures a Coordinator.
type Options struct {
	Registry *session.Registry
	Fetcher  shelves.Fetcher
	Parser   shelves.Parser
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

// Coordinator runs identify sessions against a shared registry.
type Coordinator struct {
	registry *session.Registry
	fetcher  shelves.Fetcher
	parser   shelves.Parser
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// New validates opts and returns a Coordinator.
func New(opts Options) (*Coordinator, error) {
	if opts.Registry == nil {
		return nil, services.Wrap(services.ErrConfiguration, "coordinator", "new", "session registry is required", nil)
	}
	if opts.Fetcher == nil || opts.Parser == nil {
		return nil, services.Wrap(services.ErrConfiguration, "coordinator", "new", "fetcher and parser are required", nil)
	}
	return &Coordinator{
		registry: opts.Registry,
		fetcher:  opts.Fetcher,
		parser:   opts.Parser,
		logger:   logging.NewComponentLogger(opts.Logger, "coordinator"),
		metrics:  opts.Metrics,
	}, nil
}

// Registry returns the shared session registry.
func (c *Coordinator) Registry() *session.Registry {
	return c.registry
}

type announced struct {
	datum  *session.Datum
	worker *worker.Worker
}

// Identify runs one session. It returns an error only for invalid input or
// when ctx ends; per-item failures are logged and reflected in the Summary.
func (c *Coordinator) Identify(ctx context.Context, req Request, settings Settings, sink metadata.Sink) (Summary, error) {
	summary := Summary{Mode: ModeStandalone}
	if req.Key == nil {
		return summary, services.Wrap(services.ErrValidation, "coordinator", "identify", "session key is required", nil)
	}
	if sink == nil {
		return summary, services.Wrap(services.ErrValidation, "coordinator", "identify", "sink is required", nil)
	}
	defer c.registry.Remove(req.Key)

	ctx = services.WithSessionID(ctx, req.Key.String())
	logger := logging.WithSession(c.logger, req.Key.String())

	queue := c.acquireQueue(ctx, logger, req.Key, settings)
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	if queue != nil {
		summary.Mode = ModeIntegrated
	}
	ctx = services.WithMode(ctx, string(summary.Mode))
	logger = logger.With(logging.String(logging.FieldMode, string(summary.Mode)))
	c.metrics.SessionStarted(string(summary.Mode))

	holding := &metadata.Collector{}
	var group errgroup.Group
	var items []announced
	if queue != nil {
		items = c.drain(ctx, logger, queue, settings, holding, &group, &summary)
	}
	defer func() {
		for _, item := range items {
			item.datum.Abandon()
		}
	}()

	var direct *worker.Worker
	if len(items) == 0 {
		if id, ok := vendorID(req.Identifiers); ok {
			direct = c.spawnStandalone(ctx, logger, id, req, settings, sink, &group)
			if direct != nil {
				summary.Workers++
			}
		} else if queue == nil {
			logging.WarnWithContext(logger, "no goodreads identifier found, not grabbing extra tags", "identify_skipped",
				logging.String(logging.FieldImpact, "no shelf tags for this item"),
				logging.String(logging.FieldErrorHint, "add a goodreads identifier or enable integration"),
			)
		}
	}

	if err := c.join(ctx, &group); err != nil {
		return summary, err
	}

	for _, item := range items {
		tally(&summary, item.worker.Outcome())
	}
	if direct != nil {
		tally(&summary, direct.Outcome())
		if direct.Outcome() == worker.OutcomeEmitted {
			summary.Emitted++
			c.metrics.RecordEmitted("standalone")
		}
	}

	if err := c.merge(ctx, logger, items, holding, settings, sink, &summary); err != nil {
		return summary, err
	}

	logger.Info("identify session finished",
		logging.String(logging.FieldEventType, "identify_complete"),
		logging.Int("announced", summary.Announced),
		logging.Int("workers", summary.Workers),
		logging.Int("emitted", summary.Emitted),
		logging.Int("merged", summary.Merged),
		logging.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (c *Coordinator) acquireQueue(ctx context.Context, logger *slog.Logger, key *session.Key, settings Settings) *session.Queue {
	if !settings.Integration {
		return nil
	}
	queue, err := c.registry.GetOrWait(ctx, key, settings.WaitTimeout)
	switch {
	case err == nil:
		return queue
	case ctx.Err() != nil:
		return nil
	case errors.Is(err, rendezvous.ErrTimeout):
		logging.WarnWithContext(logger, "companion lookup pool did not start in time, falling back to standalone", "integration_wait_timeout",
			logging.Duration("wait_timeout", settings.WaitTimeout),
			logging.String(logging.FieldImpact, "tags are not merged into companion results for this session"),
			logging.String(logging.FieldErrorHint, "raise integration.wait_timeout or check the companion pool"),
		)
	default:
		logging.WarnWithContext(logger, "session queue unavailable, falling back to standalone", "integration_unavailable",
			logging.Error(err),
		)
	}
	return nil
}

func (c *Coordinator) drain(
	ctx context.Context,
	logger *slog.Logger,
	queue *session.Queue,
	settings Settings,
	holding metadata.Sink,
	group *errgroup.Group,
	summary *Summary,
) []announced {
	var items []announced
	seen := make(map[string]struct{})
	for {
		datum, ok, err := queue.Get(ctx, settings.ItemTimeout)
		if err != nil {
			if errors.Is(err, rendezvous.ErrTimeout) {
				summary.DrainTimedOut = true
				logging.WarnWithContext(logger, "timed out waiting for the next announced item", "integration_item_timeout",
					logging.Duration("item_timeout", settings.ItemTimeout),
					logging.Int("announced", len(items)),
					logging.String(logging.FieldImpact, "items announced later will not get shelf tags"),
				)
			}
			return items
		}
		if !ok {
			logger.Debug("session queue closed", logging.Int("announced", len(items)))
			return items
		}
		if datum == nil || strings.TrimSpace(datum.ID) == "" {
			logger.Debug("ignoring announcement without identifier")
			continue
		}
		summary.Announced++
		c.metrics.ItemAnnounced()
		if _, dup := seen[datum.ID]; dup {
			logger.Debug("ignoring repeated announcement", logging.String(logging.FieldItemID, datum.ID))
			datum.Abandon()
			continue
		}
		seen[datum.ID] = struct{}{}

		w, err := worker.New(worker.Options{
			VendorID:   datum.ID,
			Fetcher:    c.fetcher,
			Parser:     c.parser,
			Mapping:    settings.Mapping,
			Thresholds: settings.Thresholds,
			Timeout:    settings.FetchTimeout,
			Sink:       holding,
			Logger:     logger,
			Metrics:    c.metrics,
		})
		if err != nil {
			logger.Error("failed to create worker", logging.String(logging.FieldItemID, datum.ID), logging.Error(err))
			datum.Abandon()
			continue
		}
		items = append(items, announced{datum: datum, worker: w})
		summary.Workers++
		group.Go(func() error {
			w.Run(ctx)
			return nil
		})
	}
}

func (c *Coordinator) spawnStandalone(
	ctx context.Context,
	logger *slog.Logger,
	id string,
	req Request,
	settings Settings,
	sink metadata.Sink,
	group *errgroup.Group,
) *worker.Worker {
	seed := metadata.Record{Title: req.Title, Authors: append([]string(nil), req.Authors...)}
	for name, value := range req.Identifiers {
		seed.SetIdentifier(name, value)
	}
	w, err := worker.New(worker.Options{
		VendorID:   id,
		Seed:       seed,
		Fetcher:    c.fetcher,
		Parser:     c.parser,
		Mapping:    settings.Mapping,
		Thresholds: settings.Thresholds,
		Timeout:    settings.FetchTimeout,
		Sink:       sink,
		Logger:     logger,
		Metrics:    c.metrics,
	})
	if err != nil {
		logger.Error("failed to create worker", logging.String(logging.FieldItemID, id), logging.Error(err))
		return nil
	}
	group.Go(func() error {
		w.Run(ctx)
		return nil
	})
	return w
}

// join waits for every worker, giving up early only when ctx ends.
func (c *Coordinator) join(ctx context.Context, group *errgroup.Group) error {
	done := make(chan struct{})
	go func() {
		_ = group.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) merge(
	ctx context.Context,
	logger *slog.Logger,
	items []announced,
	holding *metadata.Collector,
	settings Settings,
	sink metadata.Sink,
	summary *Summary,
) error {
	if len(items) == 0 {
		return nil
	}
	produced := make(map[string]metadata.Record, holding.Len())
	for _, record := range holding.Records() {
		if id, ok := record.Identifier(metadata.IdentifierGoodreads); ok {
			produced[id] = record
		}
	}

	mergeCtx := ctx
	if settings.MergeTimeout > 0 {
		var cancel context.CancelFunc
		mergeCtx, cancel = context.WithTimeout(ctx, settings.MergeTimeout)
		defer cancel()
	}

	for _, item := range items {
		itemLogger := logger.With(logging.String(logging.FieldItemID, item.datum.ID))
		record, tagged := produced[item.worker.VendorID()]

		foreign, found, err := item.datum.Wait(mergeCtx, 0)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// The companion result may still arrive; abandoning hands it back
			// to the producer.
			item.datum.Abandon()
			logging.WarnWithContext(itemLogger, "companion result not ready in time", "merge_wait_timeout",
				logging.Duration("merge_timeout", settings.MergeTimeout),
				logging.Bool("tags_available", tagged),
				logging.String(logging.FieldImpact, "tags and companion result are delivered separately"),
			)
		}

		var kind string
		switch {
		case tagged && found:
			record = mergeRecords(record, foreign)
			kind = "merged"
		case tagged:
			kind = "tags_only"
		case found:
			record = foreign
			kind = "foreign_only"
		default:
			itemLogger.Debug("nothing to deliver for item")
			continue
		}

		if err := sink.Emit(ctx, record); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.ErrorWithContext(itemLogger, "failed to deliver record", "sink_emit_failed", logging.Error(err))
			continue
		}
		summary.Emitted++
		switch kind {
		case "merged":
			summary.Merged++
		case "tags_only":
			summary.TagOnly++
		case "foreign_only":
			summary.ForeignOnly++
		}
		c.metrics.RecordEmitted(kind)
	}
	return nil
}

// mergeRecords copies identifiers, title, and authors from the companion
// result onto the tag record, keeping the union of both tag sets.
func mergeRecords(tagged, foreign metadata.Record) metadata.Record {
	out := tagged.Clone()
	for name, value := range foreign.Identifiers {
		out.SetIdentifier(name, value)
	}
	if foreign.Title != "" {
		out.Title = foreign.Title
	}
	if len(foreign.Authors) > 0 {
		out.Authors = append([]string(nil), foreign.Authors...)
	}
	out.MergeTags(foreign.Tags)
	return out
}

func vendorID(identifiers map[string]string) (string, bool) {
	id := strings.TrimSpace(identifiers[metadata.IdentifierGoodreads])
	return id, id != ""
}

func tally(summary *Summary, outcome worker.Outcome) {
	switch {
	case outcome == worker.OutcomeEmpty:
		summary.Empty++
	case outcome.IsFailure():
		summary.Failed++
	}
}
