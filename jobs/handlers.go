package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/sapsync/internal/customers"
	"github.com/odyssey-erp/sapsync/internal/documents"
	"github.com/odyssey-erp/sapsync/internal/syncer"
)

// DefaultDeliveryRetention keeps processed push run ids for a week.
const DefaultDeliveryRetention = 7 * 24 * time.Hour

// SyncRunner executes sync runs. *syncer.Service satisfies it.
type SyncRunner interface {
	Run(ctx context.Context, kind documents.Kind, opts syncer.Options) (syncer.Stats, error)
}

// FinanceRunner refreshes customer finance data.
type FinanceRunner interface {
	Run(ctx context.Context) (customers.FinanceStats, error)
}

// DeliveryCleaner prunes remembered deliveries.
type DeliveryCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// NewSyncHandler processes TaskSync tasks. Runs blocked by another holder of
// the kind lock are dropped since the holder already covers the same window.
func NewSyncHandler(runner SyncRunner, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SyncPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		kind, opts, err := payload.Options()
		if err != nil {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		stats, err := runner.Run(ctx, kind, opts)
		switch {
		case err == nil:
			logger.Info("sync task done",
				slog.String("kind", string(kind)),
				slog.String("run_id", stats.RunID),
				slog.Int("created", stats.Created),
				slog.Int("updated", stats.Updated),
				slog.Int("closed", stats.Closed))
			return nil
		case errors.Is(err, syncer.ErrRunInProgress):
			logger.Info("sync task skipped, run in progress", slog.String("kind", string(kind)))
			return nil
		case errors.Is(err, syncer.ErrConflictingFilters),
			errors.Is(err, syncer.ErrUnsupportedFilter),
			errors.Is(err, syncer.ErrNoPusher):
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		default:
			return err
		}
	}
}

// NewFinanceHandler processes TaskFinance tasks.
func NewFinanceHandler(runner FinanceRunner, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload FinancePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		stats, err := runner.Run(ctx)
		if err != nil {
			return err
		}
		logger.Info("finance task done",
			slog.Time("scheduled_for", payload.ScheduledFor),
			slog.Int("created", stats.Created),
			slog.Int("updated", stats.Updated))
		return nil
	}
}

// NewIdempotencyCleanupHandler processes TaskIdempotencyCleanup tasks.
func NewIdempotencyCleanupHandler(cleaner DeliveryCleaner, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload CleanupPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		if payload.Retention <= 0 {
			payload.Retention = DefaultDeliveryRetention
		}
		if err := cleaner.Cleanup(ctx, payload.Retention); err != nil {
			logger.Error("cleanup deliveries", slog.Any("error", err))
			return err
		}
		return nil
	}
}
