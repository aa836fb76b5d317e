package jobs

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nao1215/brandscan/internal/database"
	"github.com/nao1215/brandscan/internal/model"
)

// exerciseStore runs the behavior every Store backend shares.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing job, got ok=%v err=%v", ok, err)
	}

	state := model.NewJobState("job-1", "https://acme.test")
	state.Details = append(state.Details, "queued")
	if err := store.Put(ctx, state); err != nil {
		t.Fatalf("failed to put job: %v", err)
	}

	state.Status = model.JobCompleted
	state.Percentage = 100
	state.Summary = &model.Summary{Domain: "acme.test", PagesVisited: 3}
	if err := store.Put(ctx, state); err != nil {
		t.Fatalf("failed to replace job: %v", err)
	}

	got, ok, err := store.Get(ctx, "job-1")
	if err != nil || !ok {
		t.Fatalf("expected job, got ok=%v err=%v", ok, err)
	}
	if got.Status != model.JobCompleted || got.Percentage != 100 {
		t.Errorf("unexpected state %+v", got)
	}
	if got.Summary == nil || got.Summary.PagesVisited != 3 {
		t.Errorf("expected summary to round-trip, got %+v", got.Summary)
	}
	if len(got.Details) != 1 || got.Details[0] != "queued" {
		t.Errorf("unexpected details %q", got.Details)
	}
}

// TestMemoryStore tests the in-memory backend.
func TestMemoryStore(t *testing.T) {
	t.Parallel()

	t.Run("shared behavior", func(t *testing.T) {
		t.Parallel()
		exerciseStore(t, NewMemoryStore())
	})

	t.Run("returned states are copies", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryStore()
		ctx := context.Background()
		state := model.NewJobState("job-2", "acme.test")
		state.Details = []string{"a"}
		if err := store.Put(ctx, state); err != nil {
			t.Fatal(err)
		}
		state.Details[0] = "mutated"

		got, _, err := store.Get(ctx, "job-2")
		if err != nil {
			t.Fatal(err)
		}
		if got.Details[0] != "a" {
			t.Errorf("store shares caller slice: %q", got.Details)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := NewMemoryStore().Put(ctx, model.NewJobState("x", "y")); err == nil {
			t.Error("expected error for cancelled context")
		}
	})
}

// TestSQLStore tests the sqlite backend.
func TestSQLStore(t *testing.T) {
	t.Parallel()

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	exerciseStore(t, NewSQLStore(db))
}

// TestRedisStore runs against a real server when BRANDSCAN_TEST_REDIS_ADDR
// is set.
func TestRedisStore(t *testing.T) {
	t.Parallel()

	addr := os.Getenv("BRANDSCAN_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BRANDSCAN_TEST_REDIS_ADDR not set")
	}

	store := NewRedisStore(addr,
		WithRedisPrefix("brandscan:test:"+time.Now().Format("150405.000")+":"),
		WithRedisTTL(time.Minute),
	)
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Ping(context.Background()); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	exerciseStore(t, store)
}

// TestRedisStoreOptions tests option handling without a server.
func TestRedisStoreOptions(t *testing.T) {
	t.Parallel()

	store := NewRedisStore("127.0.0.1:0", WithRedisPrefix("p:"), WithRedisTTL(time.Second))
	t.Cleanup(func() { _ = store.Close() })

	if store.key("abc") != "p:abc" {
		t.Errorf("unexpected key %q", store.key("abc"))
	}
	if store.ttl != time.Second {
		t.Errorf("unexpected ttl %v", store.ttl)
	}

	def := NewRedisStore("127.0.0.1:0")
	t.Cleanup(func() { _ = def.Close() })
	if def.prefix != DefaultRedisPrefix || def.ttl != DefaultRedisTTL {
		t.Errorf("unexpected defaults %q %v", def.prefix, def.ttl)
	}
}
