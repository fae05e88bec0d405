package foreign_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"shelftags/internal/foreign"
	"shelftags/internal/metadata"
	"shelftags/internal/services"
	"shelftags/internal/session"
)

func staticResolver() foreign.StaticResolver {
	return foreign.StaticResolver{
		Records: map[string]metadata.Record{
			"1": {Title: "One", Tags: []string{"Epic"}},
			"2": {Title: "Two"},
		},
		Order: []string{"1", "2", "missing"},
	}
}

func TestPoolDeliversResultsThroughDefaultHooks(t *testing.T) {
	pool := foreign.NewPool(staticResolver(), nil)
	sink := &metadata.Collector{}

	if err := pool.Identify(context.Background(), session.NewKey(), foreign.Query{}, sink); err != nil {
		t.Fatalf("Identify returned error: %v", err)
	}
	records := sink.Records()
	sort.Slice(records, func(i, j int) bool { return records[i].Title < records[j].Title })
	if len(records) != 2 {
		t.Fatalf("expected two records, got %d", len(records))
	}
	if id, _ := records[0].Identifier(metadata.IdentifierGoodreads); id != "1" {
		t.Fatalf("expected goodreads id stamped on record, got %q", id)
	}
}

func TestPoolRunsHooksForEveryItem(t *testing.T) {
	pool := foreign.NewPool(staticResolver(), nil)
	hooks := pool.Hooks()

	var (
		mu       sync.Mutex
		started  []string
		finished = map[string]bool{}
		done     int
	)
	hooks.ItemStart.Splice(func(original foreign.ItemStartFunc) foreign.ItemStartFunc {
		return func(ctx context.Context, item *foreign.Item) {
			mu.Lock()
			started = append(started, item.VendorID)
			mu.Unlock()
			original(ctx, item)
		}
	})
	hooks.ItemFinish.Splice(func(original foreign.ItemFinishFunc) foreign.ItemFinishFunc {
		return func(ctx context.Context, item *foreign.Item, result *metadata.Record) error {
			mu.Lock()
			finished[item.VendorID] = result != nil
			mu.Unlock()
			return original(ctx, item, result)
		}
	})
	hooks.SessionDone.Splice(func(original foreign.SessionDoneFunc) foreign.SessionDoneFunc {
		return func(ctx context.Context, key *session.Key) {
			mu.Lock()
			done++
			mu.Unlock()
			original(ctx, key)
		}
	})

	sink := &metadata.Collector{}
	if err := pool.Identify(context.Background(), session.NewKey(), foreign.Query{}, sink); err != nil {
		t.Fatalf("Identify returned error: %v", err)
	}
	sort.Strings(started)
	if diff := cmp.Diff([]string{"1", "2", "missing"}, started); diff != "" {
		t.Fatalf("started mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]bool{"1": true, "2": true, "missing": false}, finished); diff != "" {
		t.Fatalf("finished mismatch (-want +got):\n%s", diff)
	}
	if done != 1 {
		t.Fatalf("expected session done once, got %d", done)
	}
}

type failingResolver struct{}

func (failingResolver) Search(context.Context, foreign.Query) ([]string, error) {
	return nil, errors.New("search backend down")
}

func (failingResolver) Lookup(context.Context, string) (*metadata.Record, error) {
	return nil, nil
}

func TestPoolSessionDoneRunsWhenSearchFails(t *testing.T) {
	pool := foreign.NewPool(failingResolver{}, nil)
	var done bool
	pool.Hooks().SessionDone.Splice(func(original foreign.SessionDoneFunc) foreign.SessionDoneFunc {
		return func(ctx context.Context, key *session.Key) {
			done = true
			original(ctx, key)
		}
	})
	if err := pool.Identify(context.Background(), session.NewKey(), foreign.Query{}, &metadata.Collector{}); err == nil {
		t.Fatal("expected search error")
	}
	if !done {
		t.Fatal("expected session done hook to run")
	}
}

func TestPoolRequiresKeyAndSink(t *testing.T) {
	pool := foreign.NewPool(staticResolver(), nil)
	if err := pool.Identify(context.Background(), nil, foreign.Query{}, &metadata.Collector{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeliverResultIgnoresNil(t *testing.T) {
	sink := &metadata.Collector{}
	if err := foreign.DeliverResult(context.Background(), &foreign.Item{Sink: sink}, nil); err != nil {
		t.Fatalf("DeliverResult returned error: %v", err)
	}
	if sink.Len() != 0 {
		t.Fatal("expected nothing delivered")
	}
}
