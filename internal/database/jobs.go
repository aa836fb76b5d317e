package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nao1215/brandscan/internal/model"
)

// PutJob inserts or replaces a job state.
func (hdb *HistoryDB) PutJob(ctx context.Context, state model.JobState) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to serialize job state: %w", err)
	}

	query := `
	INSERT INTO jobs (id, state_json, updated_at)
	VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(id) DO UPDATE SET
		state_json = excluded.state_json,
		updated_at = CURRENT_TIMESTAMP
	`
	if _, err := hdb.db.ExecContext(ctx, query, state.ID, string(stateJSON)); err != nil {
		return fmt.Errorf("failed to save job state: %w", err)
	}
	return nil
}

// GetJob retrieves a job state. The boolean is false when the job is unknown.
func (hdb *HistoryDB) GetJob(ctx context.Context, id string) (model.JobState, bool, error) {
	var stateJSON string
	err := hdb.db.QueryRowContext(ctx, `SELECT state_json FROM jobs WHERE id = ?`, id).Scan(&stateJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return model.JobState{}, false, nil
	}
	if err != nil {
		return model.JobState{}, false, fmt.Errorf("failed to get job state: %w", err)
	}

	var state model.JobState
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return model.JobState{}, false, fmt.Errorf("failed to parse job state: %w", err)
	}
	return state, true, nil
}

// DeleteJob removes a job state. Deleting an unknown job is not an error.
func (hdb *HistoryDB) DeleteJob(ctx context.Context, id string) error {
	if _, err := hdb.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete job state: %w", err)
	}
	return nil
}
