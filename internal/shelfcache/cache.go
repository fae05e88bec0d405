package shelfcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"shelftags/internal/logging"
	"shelftags/internal/metrics"
	"shelftags/internal/shelves"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Cache stores raw shelves pages keyed by vendor identifier.
type Cache struct {
	db      *sql.DB
	path    string
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option customizes a Cache.
type Option func(*Cache)

// WithMetrics records hit/miss counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// Open creates or connects to the cache database at path. A ttl of zero keeps
// entries forever.
func Open(path string, ttl time.Duration, logger *slog.Logger, opts ...Option) (*Cache, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("shelfcache: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	c := &Cache{
		db:     db,
		path:   path,
		ttl:    ttl,
		logger: logging.NewComponentLogger(logger, "shelfcache"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Path returns the database location.
func (c *Cache) Path() string {
	return c.path
}

// Lookup returns a fresh cached page for vendorID.
func (c *Cache) Lookup(ctx context.Context, vendorID string) ([]byte, bool, error) {
	vendorID = strings.TrimSpace(vendorID)
	if vendorID == "" {
		return nil, false, nil
	}
	var (
		body      []byte
		fetchedAt int64
	)
	err := retryOnBusy(ctx, func() error {
		return c.db.QueryRowContext(ctx,
			"SELECT body, fetched_at FROM pages WHERE vendor_id = ?", vendorID,
		).Scan(&body, &fetchedAt)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup %s: %w", vendorID, err)
	}
	if c.expired(fetchedAt) {
		return nil, false, nil
	}
	return body, true, nil
}

// Store records body as the current page for vendorID.
func (c *Cache) Store(ctx context.Context, vendorID string, body []byte) error {
	vendorID = strings.TrimSpace(vendorID)
	if vendorID == "" {
		return errors.New("store: empty vendor id")
	}
	return retryOnBusy(ctx, func() error {
		_, err := c.db.ExecContext(ctx,
			`INSERT INTO pages (vendor_id, body, fetched_at) VALUES (?, ?, ?)
			 ON CONFLICT(vendor_id) DO UPDATE SET body = excluded.body, fetched_at = excluded.fetched_at`,
			vendorID, body, c.now().UnixNano(),
		)
		return err
	})
}

// Purge removes expired entries and reports how many were deleted.
func (c *Cache) Purge(ctx context.Context) (int64, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	cutoff := c.now().Add(-c.ttl).UnixNano()
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = c.db.ExecContext(ctx, "DELETE FROM pages WHERE fetched_at < ?", cutoff)
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("purge: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes every entry.
func (c *Cache) Clear(ctx context.Context) error {
	return retryOnBusy(ctx, func() error {
		_, err := c.db.ExecContext(ctx, "DELETE FROM pages")
		return err
	})
}

// Len reports the number of stored entries, fresh or not.
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM pages").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (c *Cache) expired(fetchedAt int64) bool {
	if c.ttl <= 0 {
		return false
	}
	return c.now().Sub(time.Unix(0, fetchedAt)) >= c.ttl
}

// Wrap returns a Fetcher that consults the cache before calling next and
// stores successful fetches. Cache errors are logged and bypassed.
func (c *Cache) Wrap(next shelves.Fetcher) shelves.Fetcher {
	return shelves.FetcherFunc(func(ctx context.Context, vendorID string, timeout time.Duration) ([]byte, error) {
		body, ok, err := c.Lookup(ctx, vendorID)
		if err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, c.logger), "shelf cache lookup failed", "shelfcache_lookup_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "page fetched from network"),
			)
		}
		c.metrics.CacheLookup(ok)
		if ok {
			c.logger.Debug("shelf cache hit", logging.String(logging.FieldItemID, vendorID))
			return body, nil
		}

		body, err = next.Fetch(ctx, vendorID, timeout)
		if err != nil {
			return nil, err
		}
		if storeErr := c.Store(ctx, vendorID, body); storeErr != nil {
			logging.WarnWithContext(logging.WithContext(ctx, c.logger), "shelf cache store failed", "shelfcache_store_failed",
				logging.Error(storeErr),
				logging.String(logging.FieldImpact, "next lookup will fetch again"),
			)
		}
		return body, nil
	})
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
