package integration

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"shelftags/internal/foreign"
	"shelftags/internal/intercept"
	"shelftags/internal/logging"
	"shelftags/internal/metadata"
	"shelftags/internal/services"
	"shelftags/internal/session"
)

// Options configures Activate.
type Options struct {
	Hooks    *foreign.Hooks
	Registry *session.Registry
	// Enabled is consulted on every call; nil means always enabled.
	Enabled func() bool
	Logger  *slog.Logger
}

type target struct {
	registry *session.Registry
	enabled  func() bool
	logger   *slog.Logger
}

// binding is the splice state of one hook set. The replacements are
// installed once and route every call to the newest live activation.
type binding struct {
	hooks   *foreign.Hooks
	gateway *intercept.Gateway
	// live holds activations oldest first; the slice is never mutated in place.
	live atomic.Pointer[[]*target]
}

var (
	bindingsMu sync.Mutex
	bindings   = make(map[*foreign.Hooks]*binding)
)

func (b *binding) targets() []*target {
	if p := b.live.Load(); p != nil {
		return *p
	}
	return nil
}

func (b *binding) current() *target {
	live := b.targets()
	if len(live) == 0 {
		return nil
	}
	return live[len(live)-1]
}

// Activation binds one registry to a companion's hooks until Release.
type Activation struct {
	binding *binding
	target  *target
	spliced int
	once    sync.Once
}

// Spliced reports how many hooks this activation newly spliced. Activations
// after the first on the same hooks splice nothing and take over routing.
func (a *Activation) Spliced() int {
	if a == nil {
		return 0
	}
	return a.spliced
}

// Release unbinds the activation. Routing falls back to the newest remaining
// activation; the hooks are restored when none is left.
func (a *Activation) Release() {
	if a == nil {
		return
	}
	a.once.Do(func() {
		b := a.binding
		bindingsMu.Lock()
		defer bindingsMu.Unlock()
		live := slices.DeleteFunc(slices.Clone(b.targets()), func(t *target) bool { return t == a.target })
		b.live.Store(&live)
		if len(live) > 0 {
			return
		}
		delete(bindings, b.hooks)
		b.gateway.RestoreAll()
		a.target.logger.Debug("integration hooks restored")
	})
}

// Activate routes the companion's item start, item finish, and session done
// hooks to opts.Registry. The hooks are spliced on first activation only;
// later activations on the same hooks rebind routing without stacking
// wrappers. It returns nil when Hooks or Registry is missing.
func Activate(opts Options) *Activation {
	if opts.Hooks == nil || opts.Registry == nil {
		return nil
	}
	enabled := opts.Enabled
	if enabled == nil {
		enabled = func() bool { return true }
	}
	t := &target{
		registry: opts.Registry,
		enabled:  enabled,
		logger:   logging.NewComponentLogger(opts.Logger, "integration"),
	}

	bindingsMu.Lock()
	defer bindingsMu.Unlock()
	b, ok := bindings[opts.Hooks]
	if !ok {
		b = &binding{hooks: opts.Hooks, gateway: intercept.NewGateway()}
		bindings[opts.Hooks] = b
	}
	live := append(slices.Clone(b.targets()), t)
	b.live.Store(&live)

	spliced := b.splice()
	if spliced > 0 {
		t.logger.Debug("integration hooks installed", logging.Int("hooks", spliced))
	} else {
		t.logger.Debug("integration rebound", logging.Int("activations", len(live)))
	}
	return &Activation{binding: b, target: t, spliced: spliced}
}

func (b *binding) splice() int {
	hooks := b.hooks
	installed := 0
	if intercept.Splice(b.gateway, hooks, hooks.ItemStart, func(original foreign.ItemStartFunc) foreign.ItemStartFunc {
		return func(ctx context.Context, item *foreign.Item) {
			if t := b.current(); t != nil && t.enabled() && item != nil && item.Key != nil {
				announce(ctx, t, hooks, item)
			}
			original(ctx, item)
		}
	}) {
		installed++
	}

	if intercept.Splice(b.gateway, hooks, hooks.ItemFinish, func(original foreign.ItemFinishFunc) foreign.ItemFinishFunc {
		return func(ctx context.Context, item *foreign.Item, result *metadata.Record) error {
			if item != nil && item.Datum != nil && item.Datum.Fulfill(result) {
				return nil
			}
			return original(ctx, item, result)
		}
	}) {
		installed++
	}

	if intercept.Splice(b.gateway, hooks, hooks.SessionDone, func(original foreign.SessionDoneFunc) foreign.SessionDoneFunc {
		return func(ctx context.Context, key *session.Key) {
			original(ctx, key)
			if key == nil {
				return
			}
			// Items may have been announced before a rebind.
			for _, t := range b.targets() {
				t.registry.Close(key)
			}
		}
	}) {
		installed++
	}
	return installed
}

func announce(ctx context.Context, t *target, hooks *foreign.Hooks, item *foreign.Item) {
	datum := session.NewDatum(item.VendorID)
	// Results the coordinator never collects go out through the pool's own
	// delivery, bypassing the datum.
	datum.OnOrphan(func(rec metadata.Record) {
		deliver := hooks.ItemFinish.Original()
		if err := deliver(context.WithoutCancel(ctx), &foreign.Item{Key: item.Key, VendorID: item.VendorID, Sink: item.Sink}, &rec); err != nil {
			t.logger.Warn("orphaned companion result not delivered",
				logging.String(logging.FieldItemID, item.VendorID),
				logging.Error(err),
			)
		}
	})

	queue := t.registry.Ensure(item.Key)
	if queue == nil {
		return
	}
	if err := queue.Put(datum); err != nil {
		t.logger.Debug("session queue closed, item not announced",
			logging.String(logging.FieldSessionID, item.Key.String()),
			logging.String(logging.FieldItemID, item.VendorID),
			logging.Error(err),
		)
		return
	}
	item.Datum = datum
	logging.WithContext(services.WithItemID(ctx, item.VendorID), t.logger).Debug("item announced",
		logging.String(logging.FieldSessionID, item.Key.String()),
	)
}
