package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/sapsync/internal/documents"
	"github.com/odyssey-erp/sapsync/internal/syncer"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSync runs one document sync.
	TaskSync = "sapsync:sync"
	// TaskFinance refreshes customer credit and aging data.
	TaskFinance = "sapsync:finance"
	// TaskIdempotencyCleanup prunes remembered push deliveries.
	TaskIdempotencyCleanup = "sapsync:idempotency_cleanup"
)

// SyncPayload describes a queued sync run. Dates use YYYY-MM-DD.
type SyncPayload struct {
	Kind     string `json:"kind"`
	DaysBack int    `json:"days_back,omitempty"`
	Date     string `json:"date,omitempty"`
	FromDate string `json:"from_date,omitempty"`
	ToDate   string `json:"to_date,omitempty"`
	DocNum   string `json:"docnum,omitempty"`
	Mode     string `json:"mode,omitempty"`
}

// Options converts the payload into run options.
func (p SyncPayload) Options() (documents.Kind, syncer.Options, error) {
	kind, err := documents.ParseKind(p.Kind)
	if err != nil {
		return "", syncer.Options{}, err
	}
	mode, err := syncer.ParseMode(p.Mode, "")
	if err != nil {
		return "", syncer.Options{}, err
	}
	opts := syncer.Options{DaysBack: p.DaysBack, DocNum: p.DocNum, Mode: mode}
	for _, f := range []struct {
		raw string
		dst *time.Time
	}{{p.Date, &opts.Date}, {p.FromDate, &opts.From}, {p.ToDate, &opts.To}} {
		if f.raw == "" {
			continue
		}
		t, err := time.Parse(documents.DateLayout, f.raw)
		if err != nil {
			return "", syncer.Options{}, fmt.Errorf("jobs: invalid date %q: %w", f.raw, err)
		}
		*f.dst = t
	}
	return kind, opts, nil
}

// NewSyncTask constructs a sync task.
func NewSyncTask(payload SyncPayload) (*asynq.Task, error) {
	_, opts, err := payload.Options()
	if err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSync, body, asynq.Queue(QueueDefault), asynq.MaxRetry(2)), nil
}

// FinancePayload carries scheduling metadata.
type FinancePayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewFinanceTask constructs a finance refresh task.
func NewFinanceTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(FinancePayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFinance, body, asynq.Queue(QueueDefault), asynq.MaxRetry(1)), nil
}

// CleanupPayload sets the retention of remembered deliveries.
type CleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewIdempotencyCleanupTask constructs a cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(CleanupPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}
