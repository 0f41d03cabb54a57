package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/sapsync/internal/catalog"
	"github.com/odyssey-erp/sapsync/internal/customers"
	jobmetrics "github.com/odyssey-erp/sapsync/internal/jobs"
	"github.com/odyssey-erp/sapsync/internal/proforma"
	"github.com/odyssey-erp/sapsync/internal/reconcile"
	"github.com/odyssey-erp/sapsync/internal/sap"
	"github.com/odyssey-erp/sapsync/internal/shared"
	"github.com/odyssey-erp/sapsync/internal/syncer"
)

// Deps are the process-wide connections shared by every binary.
type Deps struct {
	Pool       *pgxpool.Pool
	Redis      redis.UniversalClient
	Logger     *slog.Logger
	Registerer prometheus.Registerer
}

// Components are the sync services built from configuration.
type Components struct {
	Sync       *syncer.Service
	Finance    *customers.FinanceSync
	Deliveries *shared.IdempotencyStore
	SAP        *sap.Client
}

// NewComponents wires the SAP client, the reconcile engine and the sync
// service. Push mode adds the remote pusher; local mode writes through the pool.
func NewComponents(cfg *Config, deps Deps) (*Components, error) {
	mode, err := syncer.ParseMode(cfg.SyncMode, syncer.ModeLocal)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := sap.NewClient(cfg.SAPBaseURL, cfg.SAPTimeout, logger.With(slog.String("component", "sap")))
	customerRepo := customers.NewRepository(deps.Pool)
	deliveries := shared.NewIdempotencyStore(deps.Pool)

	params := syncer.ServiceParams{
		Config: syncer.Config{
			Mode:           mode,
			DaysBack:       cfg.SAPDaysBack,
			CardCodePrefix: cfg.SalesOrderPrefix,
			LockTTL:        cfg.SyncLockTTL,
		},
		Source:    client,
		Engine:    reconcile.NewEngine(reconcile.NewPgStore(deps.Pool), logger.With(slog.String("component", "reconcile"))),
		Items:     catalog.NewRepository(deps.Pool),
		Contacts:  customerRepo,
		Proformas: proforma.NewRepository(deps.Pool),
		Runs:      shared.NewRunLogger(deps.Pool),
		Metrics:   jobmetrics.NewMetrics(deps.Registerer),
		Logger:    logger.With(slog.String("component", "syncer")),
	}
	if mode == syncer.ModePush || cfg.SyncRemoteURL != "" {
		params.Pusher = syncer.NewPushClient(cfg.SyncRemoteURL, cfg.SyncAPIKey, cfg.SyncPushTimeout)
	}
	if cfg.SyncLockEnabled && deps.Redis != nil {
		params.Locker = syncer.NewRedisLocker(deps.Redis)
	}

	return &Components{
		Sync:       syncer.NewService(params),
		Finance:    customers.NewFinanceSync(client, customerRepo, logger.With(slog.String("component", "finance"))),
		Deliveries: deliveries,
		SAP:        client,
	}, nil
}
