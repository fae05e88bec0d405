package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"shelftags/internal/config"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[tags]\nabsolute_threshold = 10\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	store := config.NewStore(nil)
	watcher, err := config.NewWatcher(path, store, nil)
	if err != nil {
		t.Fatalf("NewWatcher returned error: %v", err)
	}
	reloaded := make(chan *config.Config, 4)
	watcher.OnReload = func(cfg *config.Config) { reloaded <- cfg }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run returned error: %v", err)
		}
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("[tags]\nabsolute_threshold = 4\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-reloaded:
			if cfg.Tags.AbsoluteThreshold == 4 {
				if got := store.Snapshot().Tags.AbsoluteThreshold; got != 4 {
					t.Fatalf("store not updated: %d", got)
				}
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for reload; store has %d", store.Snapshot().Tags.AbsoluteThreshold)
		}
	}
}

func TestWatcherKeepsLastGoodConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	store := config.NewStore(nil)
	watcher, err := config.NewWatcher(path, store, nil)
	if err != nil {
		t.Fatalf("NewWatcher returned error: %v", err)
	}
	reloaded := make(chan struct{}, 4)
	watcher.OnReload = func(*config.Config) { reloaded <- struct{}{} }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("[tags]\npercentage_threshold = 400\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case <-reloaded:
		t.Fatal("invalid config should not be applied")
	case <-time.After(500 * time.Millisecond):
	}
	cancel()
	<-done

	if store.Version() != 0 {
		t.Fatalf("expected no applied versions, got %d", store.Version())
	}
}

func TestNewWatcherRequiresStore(t *testing.T) {
	if _, err := config.NewWatcher("/tmp/config.toml", nil, nil); err == nil {
		t.Fatal("expected error for nil store")
	}
}
