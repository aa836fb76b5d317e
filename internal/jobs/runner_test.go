package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/brandscan/internal/model"
)

func waitForState(t *testing.T, store Store, id string, want model.JobStatus) model.JobState {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		state, ok, err := store.Get(context.Background(), id)
		if err != nil {
			t.Fatal(err)
		}
		if ok && state.Status == want {
			return state
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached %s", id, want)
	return model.JobState{}
}

// TestRunner tests background job execution.
func TestRunner(t *testing.T) {
	t.Parallel()

	t.Run("successful job completes", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryStore()
		runner := NewRunner(store)
		t.Cleanup(runner.Close)

		state, err := runner.Submit(context.Background(), "https://acme.test", func(_ context.Context, _ *Tracker) (*model.Extraction, error) {
			e := model.NewExtraction("https://acme.test")
			e.Crawl = model.NewCrawlResult("https://acme.test")
			return e, nil
		})
		if err != nil {
			t.Fatalf("failed to submit: %v", err)
		}
		if state.ID == "" || state.Status != model.JobQueued {
			t.Errorf("unexpected submitted state %+v", state)
		}

		got := waitForState(t, store, state.ID, model.JobCompleted)
		if got.Percentage != 100 || got.Summary == nil {
			t.Errorf("unexpected final state %+v", got)
		}
	})

	t.Run("failing job fails", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryStore()
		runner := NewRunner(store)
		t.Cleanup(runner.Close)

		state, err := runner.Submit(context.Background(), "acme.test", func(context.Context, *Tracker) (*model.Extraction, error) {
			return nil, errors.New("boom")
		})
		if err != nil {
			t.Fatal(err)
		}
		got := waitForState(t, store, state.ID, model.JobFailed)
		if got.Error != "boom" {
			t.Errorf("expected error boom, got %q", got.Error)
		}
	})

	t.Run("timed out job with a crawl completes", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryStore()
		runner := NewRunner(store, WithJobTimeout(20*time.Millisecond))
		t.Cleanup(runner.Close)

		state, err := runner.Submit(context.Background(), "acme.test", func(ctx context.Context, _ *Tracker) (*model.Extraction, error) {
			<-ctx.Done()
			e := model.NewExtraction("acme.test")
			e.Crawl = model.NewCrawlResult("https://acme.test")
			e.TimedOut = true
			return e, ctx.Err()
		})
		if err != nil {
			t.Fatal(err)
		}
		got := waitForState(t, store, state.ID, model.JobCompleted)
		if got.Summary == nil || !got.Summary.TimedOut {
			t.Errorf("expected timed out summary, got %+v", got.Summary)
		}
	})

	t.Run("workers bound concurrency", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryStore()
		runner := NewRunner(store, WithWorkers(1))
		t.Cleanup(runner.Close)

		var running, peak atomic.Int32
		fn := func(context.Context, *Tracker) (*model.Extraction, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			running.Add(-1)
			return model.NewExtraction("acme.test"), nil
		}
		for range 3 {
			if _, err := runner.Submit(context.Background(), "acme.test", fn); err != nil {
				t.Fatal(err)
			}
		}
		runner.Wait()

		if peak.Load() != 1 {
			t.Errorf("expected at most 1 concurrent job, got %d", peak.Load())
		}
	})

	t.Run("closed runner rejects jobs", func(t *testing.T) {
		t.Parallel()

		runner := NewRunner(NewMemoryStore())
		runner.Close()

		_, err := runner.Submit(context.Background(), "acme.test", func(context.Context, *Tracker) (*model.Extraction, error) {
			return nil, nil
		})
		if !errors.Is(err, ErrRunnerClosed) {
			t.Errorf("expected ErrRunnerClosed, got %v", err)
		}
	})
}
