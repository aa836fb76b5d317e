package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nao1215/brandscan/internal/database"
	"github.com/nao1215/brandscan/internal/jobs"
)

func TestNewServeCmd(t *testing.T) {
	t.Parallel()

	cmd := NewServeCmd()
	for _, name := range []string{
		"addr", "workers", "job-timeout", "store", "redis-addr", "redis-prefix", "redis-ttl",
		"jobs-dir", "allowed-origin", "depth", "max-pages", "max-media", "db-dir", "no-save",
	} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected flag %q", name)
		}
	}
	if f := cmd.Flags().Lookup("store"); f != nil && f.DefValue != storeMemory {
		t.Errorf("expected memory store by default, got %q", f.DefValue)
	}
}

func TestBuildServeConfig(t *testing.T) {
	t.Parallel()

	t.Run("parses flags", func(t *testing.T) {
		t.Parallel()

		cmd := NewServeCmd()
		if err := cmd.ParseFlags([]string{
			"--addr", "127.0.0.1:9999", "--workers", "4", "--job-timeout", "5m",
			"--store", "sqlite", "-d", "2", "-p", "25", "--no-save",
		}); err != nil {
			t.Fatal(err)
		}

		cfg, opts, err := buildServeConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if opts.addr != "127.0.0.1:9999" || opts.workers != 4 || opts.jobTimeout != 5*time.Minute {
			t.Errorf("unexpected server options %+v", opts)
		}
		if opts.store != storeSQLite || opts.save {
			t.Errorf("unexpected store options %+v", opts)
		}
		if cfg.MaxDepth != 2 || cfg.MaxPages != 25 {
			t.Errorf("unexpected defaults: depth=%d pages=%d", cfg.MaxDepth, cfg.MaxPages)
		}
		if len(cfg.Targets) != 0 {
			t.Errorf("expected no targets, got %v", cfg.Targets)
		}
	})

	t.Run("rejects unknown store", func(t *testing.T) {
		t.Parallel()

		cmd := NewServeCmd()
		if err := cmd.ParseFlags([]string{"--store", "etcd"}); err != nil {
			t.Fatal(err)
		}
		if _, _, err := buildServeConfig(cmd); !errors.Is(err, errUnknownStore) {
			t.Errorf("expected errUnknownStore, got %v", err)
		}
	})

	t.Run("rejects invalid defaults", func(t *testing.T) {
		t.Parallel()

		cmd := NewServeCmd()
		if err := cmd.ParseFlags([]string{"-p", "0"}); err != nil {
			t.Fatal(err)
		}
		if _, _, err := buildServeConfig(cmd); err == nil {
			t.Error("expected error for zero page budget")
		}
	})
}

func TestOpenJobStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		t.Parallel()

		store, closeStore, err := openJobStore(ctx, serveOptions{store: storeMemory}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer closeStore() //nolint:errcheck // no-op
		if _, ok := store.(*jobs.MemoryStore); !ok {
			t.Errorf("expected *jobs.MemoryStore, got %T", store)
		}
	})

	t.Run("sqlite uses the history database", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		defer db.Close()

		store, _, err := openJobStore(ctx, serveOptions{store: storeSQLite}, db)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := store.(*jobs.SQLStore); !ok {
			t.Errorf("expected *jobs.SQLStore, got %T", store)
		}

		if _, _, err := openJobStore(ctx, serveOptions{store: storeSQLite}, nil); err == nil {
			t.Error("expected error without a database")
		}
	})

	t.Run("redis must be reachable", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()

		opts := serveOptions{store: storeRedis, redisAddr: "127.0.0.1:1", redisPrefix: "t:", redisTTL: time.Minute}
		if _, _, err := openJobStore(ctx, opts, nil); err == nil {
			t.Error("expected error for unreachable redis")
		}
	})

	t.Run("unknown", func(t *testing.T) {
		t.Parallel()

		if _, _, err := openJobStore(ctx, serveOptions{store: "etcd"}, nil); !errors.Is(err, errUnknownStore) {
			t.Errorf("expected errUnknownStore, got %v", err)
		}
	})
}
