// Package syncer runs SAP document syncs end to end: fetch, map, then either
// reconcile locally or push to a remote receiver.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/odyssey-erp/sapsync/internal/catalog"
	"github.com/odyssey-erp/sapsync/internal/customers"
	"github.com/odyssey-erp/sapsync/internal/documents"
	jobmetrics "github.com/odyssey-erp/sapsync/internal/jobs"
	"github.com/odyssey-erp/sapsync/internal/mapper"
	"github.com/odyssey-erp/sapsync/internal/reconcile"
	"github.com/odyssey-erp/sapsync/internal/sap"
	"github.com/odyssey-erp/sapsync/internal/shared"
)

var (
	// ErrNothingMapped is returned when a non-empty fetch produced no usable document.
	ErrNothingMapped = errors.New("syncer: no documents could be mapped")
	// ErrRunInProgress is returned when another run holds the lock for the kind.
	ErrRunInProgress = errors.New("syncer: sync already running for this kind")
	// ErrConflictingFilters is returned for option combinations that select
	// documents in more than one way.
	ErrConflictingFilters = errors.New("syncer: conflicting fetch filters")
	// ErrUnsupportedFilter is returned when a kind cannot be fetched with the given filter.
	ErrUnsupportedFilter = errors.New("syncer: filter not supported for document kind")
	// ErrNoPusher is returned for push runs without a configured remote.
	ErrNoPusher = errors.New("syncer: push mode requires a remote url")
)

// Mode selects where mapped documents are written.
type Mode string

const (
	// ModeLocal reconciles into the local database.
	ModeLocal Mode = "local"
	// ModePush sends mapped documents to a remote receive endpoint.
	ModePush Mode = "push"
)

// ParseMode validates a mode name. An empty name yields fallback.
func ParseMode(name string, fallback Mode) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(name))) {
	case "":
		return fallback, nil
	case ModeLocal:
		return ModeLocal, nil
	case ModePush:
		return ModePush, nil
	}
	return "", fmt.Errorf("syncer: unknown mode %q", name)
}

// Options narrow a single run. The zero value fetches the default window.
type Options struct {
	DaysBack int
	Date     time.Time
	From     time.Time
	To       time.Time
	DocNum   string
	Mode     Mode
}

// Validate rejects ambiguous or malformed filter combinations.
func (o Options) Validate() error {
	selectors := 0
	if o.DocNum != "" {
		selectors++
	}
	if !o.Date.IsZero() {
		selectors++
	}
	if !o.From.IsZero() || !o.To.IsZero() {
		selectors++
		if o.From.IsZero() || o.To.IsZero() {
			return fmt.Errorf("%w: from and to must be set together", ErrConflictingFilters)
		}
		if o.From.After(o.To) {
			return fmt.Errorf("%w: from is after to", ErrConflictingFilters)
		}
	}
	if selectors > 1 {
		return ErrConflictingFilters
	}
	if o.DaysBack < 0 {
		return fmt.Errorf("syncer: days back must not be negative")
	}
	return nil
}

// Stats summarises one run. The same shape is returned by the receive endpoint.
type Stats struct {
	RunID          string `json:"run_id"`
	Kind           string `json:"kind"`
	Mode           string `json:"mode"`
	Scope          string `json:"scope"`
	Fetched        int    `json:"fetched"`
	TotalDocuments int    `json:"total_documents"`
	Created        int    `json:"created"`
	Updated        int    `json:"updated"`
	Closed         int    `json:"closed"`
	TotalItems     int    `json:"total_items"`
	CreatedItems   int    `json:"created_items"`
	Contacts       int    `json:"contacts"`
	Proformas      int    `json:"proformas"`
	APICalls       int    `json:"api_calls"`
	SkippedPages   int    `json:"skipped_pages"`
	mapper.Warnings
	Errors     []string  `json:"errors"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
}

func (s *Stats) addError(format string, args ...any) {
	s.Errors = append(s.Errors, fmt.Sprintf(format, args...))
}

func (s *Stats) applyResult(res reconcile.Result) {
	s.Created = res.Created
	s.Updated = res.Updated
	s.Closed = res.Closed
	s.TotalItems = res.TotalItems
}

// Source reads documents from the SAP API. *sap.Client satisfies it.
type Source interface {
	FetchOpen(ctx context.Context, endpoint sap.Endpoint) (sap.Page[sap.Document], error)
	FetchByDate(ctx context.Context, endpoint sap.Endpoint, day time.Time) (sap.Page[sap.Document], error)
	FetchByDocNum(ctx context.Context, endpoint sap.Endpoint, docNum string) (sap.Page[sap.Document], error)
	FetchRange(ctx context.Context, endpoint sap.Endpoint, from, to time.Time) (sap.Page[sap.Document], error)
	FetchLastDays(ctx context.Context, endpoint sap.Endpoint, days int, now time.Time) (sap.Page[sap.Document], error)
	FetchDocNumRecent(ctx context.Context, endpoint sap.Endpoint, docNum string, now time.Time) (sap.Page[sap.Document], error)
}

// Reconciler writes batches locally. *reconcile.Engine satisfies it.
type Reconciler interface {
	Reconcile(ctx context.Context, batch reconcile.Batch) (reconcile.Result, error)
}

// ContactStore upserts customer contacts gathered from sales orders.
type ContactStore interface {
	UpsertContacts(ctx context.Context, contacts []customers.Contact) (int, error)
}

// ProformaStore mirrors proforma invoices of reconciled sales orders.
type ProformaStore interface {
	Sync(ctx context.Context, orders []documents.SalesOrder) (int, error)
}

// RunRecorder persists a run summary.
type RunRecorder interface {
	Record(ctx context.Context, log shared.RunLog) error
}

// Config holds run defaults.
type Config struct {
	Mode           Mode
	DaysBack       int
	CardCodePrefix string
	LockTTL        time.Duration
}

// ServiceParams wires a Service. Only Source is required for push runs and
// Source plus Engine for local runs.
type ServiceParams struct {
	Config    Config
	Source    Source
	Engine    Reconciler
	Items     catalog.Store
	Pusher    Pusher
	Contacts  ContactStore
	Proformas ProformaStore
	Locker    Locker
	Runs      RunRecorder
	Metrics   *jobmetrics.Metrics
	Validator *validator.Validate
	Logger    *slog.Logger
	Now       func() time.Time
}

// Service orchestrates sync runs and receives pushed batches.
type Service struct {
	cfg       Config
	source    Source
	engine    Reconciler
	items     catalog.Store
	pusher    Pusher
	contacts  ContactStore
	proformas ProformaStore
	locker    Locker
	runs      RunRecorder
	metrics   *jobmetrics.Metrics
	validator *validator.Validate
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs a Service.
func NewService(p ServiceParams) *Service {
	cfg := p.Config
	if cfg.Mode == "" {
		cfg.Mode = ModeLocal
	}
	if cfg.DaysBack <= 0 {
		cfg.DaysBack = 3
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 15 * time.Minute
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	v := p.Validator
	if v == nil {
		v = validator.New()
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		cfg:       cfg,
		source:    p.Source,
		engine:    p.Engine,
		items:     p.Items,
		pusher:    p.Pusher,
		contacts:  p.Contacts,
		proformas: p.Proformas,
		locker:    p.Locker,
		runs:      p.Runs,
		metrics:   p.Metrics,
		validator: v,
		logger:    logger,
		now:       now,
	}
}

// Run executes one sync of kind.
func (s *Service) Run(ctx context.Context, kind documents.Kind, opts Options) (stats Stats, err error) {
	table, ok := documents.TableFor(kind)
	if !ok {
		return Stats{}, documents.ErrUnknownKind
	}
	if err := opts.Validate(); err != nil {
		return Stats{}, err
	}
	mode := opts.Mode
	if mode == "" {
		mode = s.cfg.Mode
	}
	if opts.DaysBack == 0 {
		opts.DaysBack = s.cfg.DaysBack
	}

	started := s.now()
	stats = Stats{
		RunID:     uuid.NewString(),
		Kind:      string(kind),
		Mode:      string(mode),
		StartedAt: started,
	}
	logger := s.logger.With(slog.String("kind", string(kind)), slog.String("run_id", stats.RunID), slog.String("mode", string(mode)))
	tracker := s.metrics.Track("sync:" + string(kind))
	defer func() {
		stats.DurationMS = s.now().Sub(started).Milliseconds()
		s.finish(ctx, logger, stats, err)
		_ = tracker.End(err)
	}()

	if mode == ModeLocal {
		release, lockErr := s.lock(ctx, kind)
		if lockErr != nil {
			return stats, lockErr
		}
		defer release()
	}

	endpoint, err := sap.EndpointFor(kind)
	if err != nil {
		return stats, err
	}
	page, scope, err := s.fetch(ctx, logger, kind, endpoint, opts, &stats)
	if err != nil {
		return stats, fmt.Errorf("syncer: fetch %s: %w", kind.Label(), err)
	}
	stats.Scope = scope.String()
	stats.Fetched = len(page.Items)
	stats.APICalls = page.Calls
	stats.SkippedPages = page.Skipped
	s.metrics.AddSkippedPages(string(kind), page.Skipped)

	docs := page.Items
	if kind == documents.KindSalesOrder {
		docs = filterByCardPrefix(docs, s.cfg.CardCodePrefix)
	}
	if len(docs) == 0 {
		logger.Info("no documents to sync", slog.Int("api_calls", stats.APICalls))
		return stats, nil
	}

	var cache *catalog.Cache
	if s.items != nil && mode == ModeLocal {
		cache = catalog.NewCache(s.items, logger)
	}
	m := mapper.New(cache, logger)
	m.Preload(ctx, docs)
	mapped, err := s.mapDocuments(ctx, m, kind, docs, &stats)
	if err != nil {
		return stats, err
	}
	stats.Warnings = m.Warnings()
	stats.CreatedItems = cache.CreatedItems()
	if len(mapped.records) == 0 {
		return stats, ErrNothingMapped
	}
	stats.TotalDocuments = len(mapped.records)

	if mode == ModePush {
		if s.pusher == nil {
			return stats, ErrNoPusher
		}
		remote, err := s.pusher.Push(ctx, kind, mapped.records, Metadata{
			RunID:    stats.RunID,
			APICalls: stats.APICalls,
			DaysBack: opts.DaysBack,
			SyncTime: started,
			FullSync: scope == reconcile.ScopeFull,
		})
		if err != nil {
			return stats, err
		}
		stats.Created = remote.Created
		stats.Updated = remote.Updated
		stats.Closed = remote.Closed
		stats.TotalItems = remote.TotalItems
		stats.CreatedItems += remote.CreatedItems
		stats.Contacts = remote.Contacts
		stats.Proformas = remote.Proformas
		s.countDocuments(kind, stats)
		return stats, nil
	}

	if s.engine == nil {
		return stats, errors.New("syncer: local mode requires a database")
	}
	res, err := s.engine.Reconcile(ctx, reconcile.Batch{Table: table, Records: mapped.records, Scope: scope})
	if err != nil {
		s.metrics.AddDocuments(string(kind), "failed", len(mapped.records))
		return stats, fmt.Errorf("syncer: reconcile %s: %w", kind.Label(), err)
	}
	stats.applyResult(res)
	s.countDocuments(kind, stats)
	stats.Contacts = s.upsertContacts(ctx, logger, mapped.salesOrders, &stats)
	stats.Proformas = s.syncProformas(ctx, logger, mapped.salesOrders, &stats)
	return stats, nil
}

func (s *Service) countDocuments(kind documents.Kind, stats Stats) {
	s.metrics.AddDocuments(string(kind), "created", stats.Created)
	s.metrics.AddDocuments(string(kind), "updated", stats.Updated)
	s.metrics.AddDocuments(string(kind), "closed", stats.Closed)
}

// upsertContacts refreshes customers from synced sales orders. Failures only
// add a warning to the run.
func (s *Service) upsertContacts(ctx context.Context, logger *slog.Logger, orders []documents.SalesOrder, stats *Stats) int {
	if s.contacts == nil || len(orders) == 0 {
		return 0
	}
	contacts := customers.ContactsFromOrders(orders)
	n, err := s.contacts.UpsertContacts(ctx, contacts)
	if err != nil {
		logger.Warn("update customer contacts", slog.Any("error", err))
		stats.addError("customer contacts: %v", err)
		return 0
	}
	return n
}

// syncProformas mirrors orders flagged as SAP proforma invoices. Failures only
// add a warning to the run.
func (s *Service) syncProformas(ctx context.Context, logger *slog.Logger, orders []documents.SalesOrder, stats *Stats) int {
	if s.proformas == nil || len(orders) == 0 {
		return 0
	}
	n, err := s.proformas.Sync(ctx, orders)
	if err != nil {
		logger.Warn("mirror proforma invoices", slog.Any("error", err))
		stats.addError("proforma invoices: %v", err)
		return 0
	}
	return n
}

func (s *Service) finish(ctx context.Context, logger *slog.Logger, stats Stats, runErr error) {
	attrs := []any{
		slog.Int("fetched", stats.Fetched),
		slog.Int("created", stats.Created),
		slog.Int("updated", stats.Updated),
		slog.Int("closed", stats.Closed),
		slog.Int("total_items", stats.TotalItems),
		slog.Int("api_calls", stats.APICalls),
		slog.Int("errors", len(stats.Errors)),
		slog.Int64("duration_ms", stats.DurationMS),
	}
	if runErr != nil {
		logger.Error("sync failed", append(attrs, slog.Any("error", runErr))...)
	} else {
		logger.Info("sync finished", attrs...)
	}
	if s.runs == nil || errors.Is(runErr, ErrRunInProgress) {
		return
	}
	entry := shared.RunLog{
		RunID:      uuid.MustParse(stats.RunID),
		Kind:       stats.Kind,
		Mode:       stats.Mode,
		Scope:      stats.Scope,
		Stats:      stats,
		StartedAt:  stats.StartedAt,
		FinishedAt: stats.StartedAt.Add(time.Duration(stats.DurationMS) * time.Millisecond),
	}
	if runErr != nil {
		entry.Error = runErr.Error()
	}
	if err := s.runs.Record(context.WithoutCancel(ctx), entry); err != nil {
		logger.Warn("record sync run", slog.Any("error", err))
	}
}

func filterByCardPrefix(docs []sap.Document, prefix string) []sap.Document {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return docs
	}
	out := docs[:0:0]
	for _, doc := range docs {
		code := strings.ToUpper(strings.TrimSpace(doc.PartnerCode()))
		if strings.HasPrefix(code, prefix) {
			out = append(out, doc)
		}
	}
	return out
}
