package jobs

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/nao1215/brandscan/internal/model"
)

// ErrJobNotFound is returned when a job ID is unknown.
var ErrJobNotFound = errors.New("job not found")

// Store persists job states.
type Store interface {
	// Put inserts or replaces the state with the same ID.
	Put(ctx context.Context, state model.JobState) error

	// Get returns the state of a job. The boolean is false when the job
	// is unknown.
	Get(ctx context.Context, id string) (model.JobState, bool, error)
}

// MemoryStore keeps job states in memory. It is safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]model.JobState
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]model.JobState)}
}

// Put stores a copy of state.
func (s *MemoryStore) Put(ctx context.Context, state model.JobState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.ID] = clone(state)
	return nil
}

// Get returns a copy of the stored state.
func (s *MemoryStore) Get(ctx context.Context, id string) (model.JobState, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.JobState{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[id]
	if !ok {
		return model.JobState{}, false, nil
	}
	return clone(state), true, nil
}

// clone copies the reference fields so callers never share them.
func clone(state model.JobState) model.JobState {
	state.Details = slices.Clone(state.Details)
	if state.Summary != nil {
		summary := *state.Summary
		state.Summary = &summary
	}
	return state
}

// JobDB is the job part of the history database.
type JobDB interface {
	PutJob(ctx context.Context, state model.JobState) error
	GetJob(ctx context.Context, id string) (model.JobState, bool, error)
}

// SQLStore keeps job states in the sqlite history database.
type SQLStore struct {
	db JobDB
}

// NewSQLStore creates a store backed by db.
func NewSQLStore(db JobDB) *SQLStore {
	return &SQLStore{db: db}
}

// Put stores state.
func (s *SQLStore) Put(ctx context.Context, state model.JobState) error {
	return s.db.PutJob(ctx, state)
}

// Get returns the stored state.
func (s *SQLStore) Get(ctx context.Context, id string) (model.JobState, bool, error) {
	return s.db.GetJob(ctx, id)
}
