package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RunLog represents a record stored in sync_runs.
type RunLog struct {
	RunID      uuid.UUID
	Kind       string
	Mode       string
	Scope      string
	Stats      any
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// RunLogger writes sync run records into sync_runs.
type RunLogger struct {
	pool *pgxpool.Pool
}

// NewRunLogger returns a new RunLogger.
func NewRunLogger(pool *pgxpool.Pool) *RunLogger {
	return &RunLogger{pool: pool}
}

// Record persists the run entry.
func (l *RunLogger) Record(ctx context.Context, log RunLog) error {
	if l == nil {
		return errors.New("run logger not initialised")
	}
	if log.RunID == uuid.Nil || log.Kind == "" {
		return errors.New("run log requires run_id/kind")
	}
	statsJSON, err := json.Marshal(log.Stats)
	if err != nil {
		return err
	}
	var errText *string
	if log.Error != "" {
		errText = &log.Error
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO sync_runs (run_id, kind, mode, scope, stats, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))`,
		log.RunID, log.Kind, log.Mode, log.Scope, statsJSON, errText, log.StartedAt, nullTime(log.FinishedAt))
	return err
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
