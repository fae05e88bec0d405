package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"shelftags/internal/logging"
	"shelftags/internal/metadata"
	"shelftags/internal/metrics"
	"shelftags/internal/services"
	"shelftags/internal/shelves"
	"shelftags/internal/tags"
)

// Options configures a Worker.
type Options struct {
	// VendorID is the Goodreads book identifier.
	VendorID string
	// Seed carries host context (title, authors, other identifiers) copied
	// into the emitted record.
	Seed       metadata.Record
	Fetcher    shelves.Fetcher
	Parser     shelves.Parser
	Mapping    tags.Mapping
	Thresholds tags.Thresholds
	// Timeout bounds the fetch; zero leaves it to ctx.
	Timeout time.Duration
	Sink    metadata.Sink
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Worker processes a single vendor identifier.
type Worker struct {
	opts   Options
	logger *slog.Logger

	runOnce sync.Once
	done    chan struct{}

	mu      sync.Mutex
	state   State
	outcome Outcome
	err     error
	report  tags.Report
	record  metadata.Record
}

// New validates opts and returns a worker in the created state.
func New(opts Options) (*Worker, error) {
	opts.VendorID = strings.TrimSpace(opts.VendorID)
	if opts.VendorID == "" {
		return nil, services.Wrap(services.ErrValidation, "worker", "new", "vendor id is required", nil)
	}
	if opts.Fetcher == nil || opts.Parser == nil || opts.Sink == nil {
		return nil, services.Wrap(services.ErrConfiguration, "worker", "new", "fetcher, parser, and sink are required", nil)
	}
	if opts.Mapping == nil {
		opts.Mapping = tags.DefaultMapping()
	}
	return &Worker{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "worker"),
		done:   make(chan struct{}),
		state:  StateCreated,
	}, nil
}

// VendorID returns the identifier this worker processes.
func (w *Worker) VendorID() string { return w.opts.VendorID }

// Done is closed when Run returns.
func (w *Worker) Done() <-chan struct{} { return w.done }

// State returns the current lifecycle state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Outcome returns how the worker finished, or OutcomePending while running.
func (w *Worker) Outcome() Outcome {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.outcome
}

// Err returns the contained failure, if any.
func (w *Worker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Report returns the threshold report once thresholding has run.
func (w *Worker) Report() tags.Report {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.report
}

// Record returns the emitted record once the worker is done.
func (w *Worker) Record() (metadata.Record, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateDone {
		return metadata.Record{}, false
	}
	return w.record.Clone(), true
}

// Run executes the state machine. Only the first call does work; later calls
// wait for it and return the same outcome.
func (w *Worker) Run(ctx context.Context) Outcome {
	w.runOnce.Do(func() {
		defer close(w.done)
		outcome := w.run(ctx)
		w.opts.Metrics.WorkerFinished(string(outcome))
	})
	<-w.done
	return w.Outcome()
}

func (w *Worker) run(ctx context.Context) Outcome {
	ctx = services.WithItemID(ctx, w.opts.VendorID)
	logger := logging.WithContext(ctx, w.logger)

	w.transition(StateFetching)
	logger.Debug("retrieving shelves")
	started := time.Now()
	raw, err := w.opts.Fetcher.Fetch(services.WithStage(ctx, string(StateFetching)), w.opts.VendorID, w.opts.Timeout)
	w.opts.Metrics.ObserveFetch(time.Since(started))
	if err != nil {
		if ctx.Err() != nil {
			return w.abort(logger, OutcomeCanceled, ctx.Err())
		}
		logging.ErrorWithContext(logger, "failed to retrieve shelves", "shelf_fetch_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network access and the vendor id"),
		)
		return w.abort(logger, OutcomeFetchFailed, err)
	}

	w.transition(StateParsing)
	shelfCounts, err := w.opts.Parser.Parse(raw)
	if err == nil && len(shelfCounts) == 0 {
		err = fmt.Errorf("%w: no shelf entries found", shelves.ErrParse)
	}
	if err != nil {
		logging.ErrorWithContext(logger, "failed to parse shelves page", "shelf_parse_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the vendor page layout may have changed"),
		)
		return w.abort(logger, OutcomeParseFailed, err)
	}
	logger.Debug("found shelves", logging.Int("shelves", len(shelfCounts)))

	w.transition(StateMapping)
	counter := w.opts.Mapping.Apply(shelfCounts)
	logger.Debug("tags after mapping", logging.String("tags", counter.String()))

	w.transition(StateThresholding)
	report := w.opts.Thresholds.Apply(counter)
	w.mu.Lock()
	w.report = report
	w.mu.Unlock()
	logger.Debug("tags after thresholds",
		logging.Int("absolute_threshold", w.opts.Thresholds.Absolute),
		logging.Float64("percentage_base", report.Base),
		logging.Float64("percentage_threshold", report.PercentageThreshold),
		logging.String("tags", counter.String()),
	)
	if counter.Len() == 0 {
		logger.Debug("nothing qualified after mapping and thresholds, skipping")
		return w.abort(logger, OutcomeEmpty, nil)
	}
	if err := ctx.Err(); err != nil {
		logger.Debug("session ended before emit, dropping record", logging.Error(err))
		return w.abort(logger, OutcomeCanceled, err)
	}

	w.transition(StateEmitting)
	record := w.opts.Seed.Clone()
	record.SetIdentifier(metadata.IdentifierGoodreads, w.opts.VendorID)
	record.SetTags(counter.Tags())
	if err := w.opts.Sink.Emit(ctx, record); err != nil {
		if ctx.Err() != nil {
			return w.abort(logger, OutcomeCanceled, ctx.Err())
		}
		logging.ErrorWithContext(logger, "failed to deliver tag record", "sink_emit_failed", logging.Error(err))
		return w.abort(logger, OutcomeSinkFailed, err)
	}

	w.mu.Lock()
	w.record = record
	w.state = StateDone
	w.outcome = OutcomeEmitted
	w.mu.Unlock()
	logger.Info("tags emitted", logging.Strings("tags", record.Tags))
	return OutcomeEmitted
}

func (w *Worker) transition(next State) {
	w.mu.Lock()
	w.state = next
	w.mu.Unlock()
}

func (w *Worker) abort(logger *slog.Logger, outcome Outcome, err error) Outcome {
	w.mu.Lock()
	w.state = StateAborted
	w.outcome = outcome
	w.err = err
	w.mu.Unlock()
	if outcome == OutcomeCanceled {
		logger.Debug("worker canceled", logging.Error(err))
	}
	return outcome
}

// IsFailure reports whether o represents an error rather than an empty or
// successful result.
func (o Outcome) IsFailure() bool {
	switch o {
	case OutcomeFetchFailed, OutcomeParseFailed, OutcomeSinkFailed:
		return true
	}
	return false
}
