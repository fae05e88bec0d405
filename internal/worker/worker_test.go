package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"shelftags/internal/metadata"
	"shelftags/internal/metrics"
	"shelftags/internal/shelves"
	"shelftags/internal/tags"
	"shelftags/internal/testsupport"
	"shelftags/internal/worker"
)

func defaultThresholds() tags.Thresholds {
	return tags.Thresholds{Absolute: 10, Percentage: 50, Ranks: []int{3, 4}}
}

func newWorker(t *testing.T, fetcher shelves.Fetcher, sink metadata.Sink, mutate ...func(*worker.Options)) *worker.Worker {
	t.Helper()
	opts := worker.Options{
		VendorID:   "12345",
		Fetcher:    fetcher,
		Parser:     shelves.HTMLParser{},
		Mapping:    tags.DefaultMapping(),
		Thresholds: defaultThresholds(),
		Timeout:    time.Second,
		Sink:       sink,
	}
	for _, fn := range mutate {
		fn(&opts)
	}
	w, err := worker.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return w
}

func TestWorkerEmitsThresholdedTags(t *testing.T) {
	fetcher := testsupport.NewFakeFetcher(map[string]map[string]int{"12345": testsupport.ExampleShelves()})
	collector := &metadata.Collector{}
	m := metrics.New()
	seed := metadata.Record{Title: "The Sample Book", Authors: []string{"A. Writer"}}
	seed.SetIdentifier("isbn", "9780000000000")

	w := newWorker(t, fetcher, collector, func(o *worker.Options) {
		o.Seed = seed
		o.Metrics = m
	})
	if w.State() != worker.StateCreated {
		t.Fatalf("expected created state, got %s", w.State())
	}

	if outcome := w.Run(context.Background()); outcome != worker.OutcomeEmitted {
		t.Fatalf("expected emitted outcome, got %s (err=%v)", outcome, w.Err())
	}
	if w.State() != worker.StateDone {
		t.Fatalf("expected done state, got %s", w.State())
	}
	select {
	case <-w.Done():
	default:
		t.Fatal("expected Done to be closed")
	}

	records := collector.Records()
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	got := records[0]
	if diff := cmp.Diff([]string{"Classics", "Fantasy", "Fiction", "Science Fiction"}, got.Tags); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}
	if id, _ := got.Identifier(metadata.IdentifierGoodreads); id != "12345" {
		t.Fatalf("expected goodreads identifier, got %q", id)
	}
	if isbn, _ := got.Identifier("isbn"); isbn != "9780000000000" {
		t.Fatalf("expected carried isbn, got %q", isbn)
	}
	if got.Title != "The Sample Book" {
		t.Fatalf("expected carried title, got %q", got.Title)
	}
	if report := w.Report(); report.Base != 135 || report.PercentageThreshold != 67.5 {
		t.Fatalf("unexpected report %+v", report)
	}
	if v := m.Value("shelftags_worker_outcomes_total", "outcome=emitted"); v != 1 {
		t.Fatalf("expected emitted metric, got %v", v)
	}
}

func TestWorkerFetchFailureIsContained(t *testing.T) {
	fetcher := testsupport.NewFakeFetcher(nil)
	collector := &metadata.Collector{}
	w := newWorker(t, fetcher, collector)

	if outcome := w.Run(context.Background()); outcome != worker.OutcomeFetchFailed {
		t.Fatalf("expected fetch failure, got %s", outcome)
	}
	if w.State() != worker.StateAborted {
		t.Fatalf("expected aborted state, got %s", w.State())
	}
	if !errors.Is(w.Err(), shelves.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", w.Err())
	}
	if collector.Len() != 0 {
		t.Fatal("expected no records")
	}
	if !w.Outcome().IsFailure() {
		t.Fatal("fetch failure should count as failure")
	}
}

func TestWorkerParseFailure(t *testing.T) {
	fetcher := &testsupport.FakeFetcher{Pages: map[string][]byte{"12345": []byte("<html><body>Not found</body></html>")}}
	w := newWorker(t, fetcher, &metadata.Collector{})

	if outcome := w.Run(context.Background()); outcome != worker.OutcomeParseFailed {
		t.Fatalf("expected parse failure, got %s", outcome)
	}
	if !errors.Is(w.Err(), shelves.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", w.Err())
	}
}

func TestWorkerZeroShelvesFromCustomParser(t *testing.T) {
	fetcher := &testsupport.FakeFetcher{Pages: map[string][]byte{"12345": []byte("x")}}
	w := newWorker(t, fetcher, &metadata.Collector{}, func(o *worker.Options) {
		o.Parser = shelves.ParserFunc(func([]byte) (map[string]int, error) { return map[string]int{}, nil })
	})
	if outcome := w.Run(context.Background()); outcome != worker.OutcomeParseFailed {
		t.Fatalf("expected parse failure for zero shelves, got %s", outcome)
	}
}

func TestWorkerNothingQualifies(t *testing.T) {
	fetcher := testsupport.NewFakeFetcher(map[string]map[string]int{
		"12345": {"to-read": 500, "fantasy": 3, "horror": 2},
	})
	collector := &metadata.Collector{}
	w := newWorker(t, fetcher, collector)

	if outcome := w.Run(context.Background()); outcome != worker.OutcomeEmpty {
		t.Fatalf("expected empty outcome, got %s", outcome)
	}
	if w.Err() != nil {
		t.Fatalf("empty outcome should not carry an error, got %v", w.Err())
	}
	if w.Outcome().IsFailure() {
		t.Fatal("empty outcome is not a failure")
	}
	if collector.Len() != 0 {
		t.Fatal("expected no records")
	}
}

func TestWorkerSinkFailure(t *testing.T) {
	fetcher := testsupport.NewFakeFetcher(map[string]map[string]int{"12345": testsupport.ExampleShelves()})
	sink := metadata.SinkFunc(func(context.Context, metadata.Record) error { return errors.New("host closed") })
	w := newWorker(t, fetcher, sink)

	if outcome := w.Run(context.Background()); outcome != worker.OutcomeSinkFailed {
		t.Fatalf("expected sink failure, got %s", outcome)
	}
}

func TestWorkerCanceledDuringFetch(t *testing.T) {
	fetcher := testsupport.NewFakeFetcher(map[string]map[string]int{"12345": testsupport.ExampleShelves()})
	fetcher.Gate = make(chan struct{})
	w := newWorker(t, fetcher, &metadata.Collector{}, func(o *worker.Options) { o.Timeout = 0 })

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan worker.Outcome, 1)
	go func() { result <- w.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case outcome := <-result:
		if outcome != worker.OutcomeCanceled {
			t.Fatalf("expected canceled outcome, got %s", outcome)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}

func TestWorkerCanceledBeforeEmit(t *testing.T) {
	pages := testsupport.NewFakeFetcher(map[string]map[string]int{"12345": testsupport.ExampleShelves()})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fetcher := shelves.FetcherFunc(func(fctx context.Context, id string, timeout time.Duration) ([]byte, error) {
		body, err := pages.Fetch(fctx, id, timeout)
		cancel()
		return body, err
	})
	emitted := 0
	sink := metadata.SinkFunc(func(context.Context, metadata.Record) error {
		emitted++
		return nil
	})
	w := newWorker(t, fetcher, sink)

	if outcome := w.Run(ctx); outcome != worker.OutcomeCanceled {
		t.Fatalf("expected canceled outcome, got %s", outcome)
	}
	if emitted != 0 {
		t.Fatalf("expected no emit after cancellation, got %d", emitted)
	}
	if w.State() != worker.StateAborted {
		t.Fatalf("expected aborted state, got %s", w.State())
	}
}

func TestWorkerFetchTimeout(t *testing.T) {
	fetcher := testsupport.NewFakeFetcher(map[string]map[string]int{"12345": testsupport.ExampleShelves()})
	fetcher.Gate = make(chan struct{})
	w := newWorker(t, fetcher, &metadata.Collector{}, func(o *worker.Options) { o.Timeout = 30 * time.Millisecond })

	if outcome := w.Run(context.Background()); outcome != worker.OutcomeFetchFailed {
		t.Fatalf("expected fetch failure on timeout, got %s", outcome)
	}
}

func TestWorkerRunsOnce(t *testing.T) {
	fetcher := testsupport.NewFakeFetcher(map[string]map[string]int{"12345": testsupport.ExampleShelves()})
	collector := &metadata.Collector{}
	w := newWorker(t, fetcher, collector)

	first := w.Run(context.Background())
	second := w.Run(context.Background())
	if first != second {
		t.Fatalf("expected identical outcomes, got %s and %s", first, second)
	}
	if len(fetcher.Calls()) != 1 {
		t.Fatalf("expected one fetch, got %d", len(fetcher.Calls()))
	}
	if collector.Len() != 1 {
		t.Fatalf("expected one record, got %d", collector.Len())
	}
}

func TestNewValidatesOptions(t *testing.T) {
	if _, err := worker.New(worker.Options{VendorID: " ", Fetcher: &testsupport.FakeFetcher{}, Parser: shelves.HTMLParser{}, Sink: &metadata.Collector{}}); err == nil {
		t.Fatal("expected error for empty vendor id")
	}
	if _, err := worker.New(worker.Options{VendorID: "1", Parser: shelves.HTMLParser{}, Sink: &metadata.Collector{}}); err == nil {
		t.Fatal("expected error for missing fetcher")
	}
}
