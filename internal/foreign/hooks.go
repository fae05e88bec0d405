package foreign

import (
	"context"

	"shelftags/internal/intercept"
	"shelftags/internal/metadata"
	"shelftags/internal/session"
)

// Hook point names.
const (
	HookItemStart   = "item_start"
	HookItemFinish  = "item_finish"
	HookSessionDone = "session_done"
)

// Item is one unit of work inside the companion pool.
type Item struct {
	Key      *session.Key
	VendorID string
	// Sink is where the pool delivers the item's result.
	Sink metadata.Sink
	// Datum is set when the item was announced to a session queue.
	Datum *session.Datum
}

// ItemStartFunc runs before the pool begins work on an item.
type ItemStartFunc func(ctx context.Context, item *Item)

// ItemFinishFunc delivers the item's result. A nil result means the item
// produced nothing.
type ItemFinishFunc func(ctx context.Context, item *Item, result *metadata.Record) error

// SessionDoneFunc runs once every item of a session has finished.
type SessionDoneFunc func(ctx context.Context, key *session.Key)

// Hooks are the interception points of a companion pool.
type Hooks struct {
	ItemStart   *intercept.Hook[ItemStartFunc]
	ItemFinish  *intercept.Hook[ItemFinishFunc]
	SessionDone *intercept.Hook[SessionDoneFunc]
}

// NewHooks returns hook points with default behaviour.
func NewHooks() *Hooks {
	return &Hooks{
		ItemStart:   intercept.NewHook[ItemStartFunc](HookItemStart, func(context.Context, *Item) {}),
		ItemFinish:  intercept.NewHook[ItemFinishFunc](HookItemFinish, DeliverResult),
		SessionDone: intercept.NewHook[SessionDoneFunc](HookSessionDone, func(context.Context, *session.Key) {}),
	}
}

// DeliverResult is the default item finish: emit result to the item's sink.
func DeliverResult(ctx context.Context, item *Item, result *metadata.Record) error {
	if result == nil || item == nil || item.Sink == nil {
		return nil
	}
	return item.Sink.Emit(ctx, result.Clone())
}
