package foreign

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"shelftags/internal/logging"
	"shelftags/internal/metadata"
	"shelftags/internal/services"
	"shelftags/internal/session"
)

// Query describes what the host knows about the item being identified.
type Query struct {
	Title       string
	Authors     []string
	Identifiers map[string]string
}

// Resolver finds candidate vendor ids and looks each one up.
type Resolver interface {
	Search(ctx context.Context, q Query) ([]string, error)
	Lookup(ctx context.Context, vendorID string) (*metadata.Record, error)
}

// Pool is a reference companion pool: one worker per candidate id, each
// running through the hook points.
type Pool struct {
	hooks    *Hooks
	resolver Resolver
	logger   *slog.Logger
}

// NewPool builds a pool around resolver.
func NewPool(resolver Resolver, logger *slog.Logger) *Pool {
	return &Pool{
		hooks:    NewHooks(),
		resolver: resolver,
		logger:   logging.NewComponentLogger(logger, "companion-pool"),
	}
}

// Hooks returns the pool's interception points.
func (p *Pool) Hooks() *Hooks {
	return p.hooks
}

// Identify resolves q and delivers one record per candidate to sink. The
// session done hook always runs, even when the search fails.
func (p *Pool) Identify(ctx context.Context, key *session.Key, q Query, sink metadata.Sink) error {
	if key == nil || sink == nil {
		return services.Wrap(services.ErrValidation, "companion", "identify", "session key and sink are required", nil)
	}
	defer p.hooks.SessionDone.Func()(ctx, key)

	ids, err := p.resolver.Search(ctx, q)
	if err != nil {
		return fmt.Errorf("companion search: %w", err)
	}

	var group errgroup.Group
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		item := &Item{Key: key, VendorID: id, Sink: sink}
		group.Go(func() error {
			p.runItem(ctx, item)
			return nil
		})
	}
	_ = group.Wait()
	return ctx.Err()
}

func (p *Pool) runItem(ctx context.Context, item *Item) {
	logger := logging.WithContext(services.WithItemID(ctx, item.VendorID), p.logger)
	p.hooks.ItemStart.Func()(ctx, item)

	result, err := p.resolver.Lookup(ctx, item.VendorID)
	if err != nil {
		logger.Warn("companion lookup failed",
			logging.String(logging.FieldEventType, "companion_lookup_failed"),
			logging.Error(err),
		)
		result = nil
	}
	if result != nil {
		clone := result.Clone()
		clone.SetIdentifier(metadata.IdentifierGoodreads, item.VendorID)
		result = &clone
	}
	if err := p.hooks.ItemFinish.Func()(ctx, item, result); err != nil {
		logger.Warn("companion result delivery failed",
			logging.String(logging.FieldEventType, "companion_delivery_failed"),
			logging.Error(err),
		)
	}
}

// StaticResolver serves fixed records keyed by vendor id. Search returns
// every id in Order, or all ids when Order is empty.
type StaticResolver struct {
	Records map[string]metadata.Record
	Order   []string
}

// Search implements Resolver.
func (r StaticResolver) Search(ctx context.Context, _ Query) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(r.Order) > 0 {
		return append([]string(nil), r.Order...), nil
	}
	ids := make([]string, 0, len(r.Records))
	for id := range r.Records {
		ids = append(ids, id)
	}
	return ids, nil
}

// Lookup implements Resolver.
func (r StaticResolver) Lookup(ctx context.Context, vendorID string) (*metadata.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec, ok := r.Records[vendorID]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "companion", "lookup", "unknown vendor id "+vendorID, nil)
	}
	clone := rec.Clone()
	return &clone, nil
}
