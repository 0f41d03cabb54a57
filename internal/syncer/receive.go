package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/odyssey-erp/sapsync/internal/catalog"
	"github.com/odyssey-erp/sapsync/internal/documents"
	"github.com/odyssey-erp/sapsync/internal/reconcile"
)

var (
	// ErrEmptyBatch is returned when a pushed envelope carries no documents.
	ErrEmptyBatch = errors.New("syncer: no documents provided")
	// ErrMalformedPayload is returned when the pushed list cannot be decoded.
	ErrMalformedPayload = errors.New("syncer: malformed payload")
)

// Receive reconciles a batch pushed by a remote sync run. Sales order lines
// are enriched from the local catalog and AR lines get local item ids, so the
// result matches a local run over the same documents.
func (s *Service) Receive(ctx context.Context, kind documents.Kind, payload json.RawMessage, meta Metadata) (stats Stats, err error) {
	table, ok := documents.TableFor(kind)
	if !ok {
		return Stats{}, documents.ErrUnknownKind
	}
	if s.engine == nil {
		return Stats{}, errors.New("syncer: receiving requires a database")
	}

	started := s.now()
	stats = Stats{
		RunID:     meta.RunID,
		Kind:      string(kind),
		Mode:      "receive",
		APICalls:  meta.APICalls,
		StartedAt: started,
	}
	if _, perr := uuid.Parse(stats.RunID); perr != nil {
		stats.RunID = uuid.NewString()
	}
	scope := reconcile.ScopePartial
	if meta.FullSync {
		scope = reconcile.ScopeFull
	}
	stats.Scope = scope.String()

	logger := s.logger.With(slog.String("kind", string(kind)), slog.String("run_id", stats.RunID), slog.String("mode", "receive"))
	tracker := s.metrics.Track("receive:" + string(kind))
	defer func() {
		stats.DurationMS = s.now().Sub(started).Milliseconds()
		if errors.Is(err, ErrEmptyBatch) || errors.Is(err, ErrMalformedPayload) {
			logger.Warn("receive rejected", slog.Any("error", err))
			_ = tracker.End(err)
			return
		}
		s.finish(ctx, logger, stats, err)
		_ = tracker.End(err)
	}()

	release, err := s.lock(ctx, kind)
	if err != nil {
		return stats, err
	}
	defer release()

	cache := catalog.NewCache(s.items, logger)
	decoded, err := s.decodePayload(ctx, kind, payload, cache, &stats)
	if err != nil {
		return stats, err
	}
	stats.Fetched = decoded.total
	stats.CreatedItems = cache.CreatedItems()
	if decoded.total == 0 {
		return stats, ErrEmptyBatch
	}
	if len(decoded.records) == 0 {
		return stats, ErrNothingMapped
	}
	stats.TotalDocuments = len(decoded.records)

	batch := reconcile.Batch{Table: table, Records: decoded.records, Scope: scope}
	if meta.RunID != "" {
		batch.Delivery = &reconcile.Delivery{Key: meta.RunID, Module: string(kind)}
	}
	res, err := s.engine.Reconcile(ctx, batch)
	if errors.Is(err, reconcile.ErrAlreadyApplied) {
		logger.Info("delivery already applied")
		stats.addError("delivery %s already applied", meta.RunID)
		return stats, nil
	}
	if err != nil {
		s.metrics.AddDocuments(string(kind), "failed", len(decoded.records))
		return stats, fmt.Errorf("syncer: reconcile %s: %w", kind.Label(), err)
	}
	stats.applyResult(res)
	s.countDocuments(kind, stats)
	stats.Contacts = s.upsertContacts(ctx, logger, decoded.salesOrders, &stats)
	stats.Proformas = s.syncProformas(ctx, logger, decoded.salesOrders, &stats)
	return stats, nil
}

type decodedBatch struct {
	mapped
	total int
}

func (s *Service) decodePayload(ctx context.Context, kind documents.Kind, payload json.RawMessage, cache *catalog.Cache, stats *Stats) (decodedBatch, error) {
	var out decodedBatch
	switch kind {
	case documents.KindSalesOrder:
		orders, err := decodeList[documents.SalesOrder](payload)
		if err != nil {
			return out, err
		}
		out.total = len(orders)
		enrichSalesOrders(ctx, cache, orders)
		out.salesOrders = keepValid(s.validator, orders, stats)
		out.records = documents.AsRecords(out.salesOrders)
	case documents.KindPurchaseOrder:
		orders, err := decodeList[documents.PurchaseOrder](payload)
		if err != nil {
			return out, err
		}
		out.total = len(orders)
		out.records = documents.AsRecords(keepValid(s.validator, orders, stats))
	case documents.KindQuotation:
		quotes, err := decodeList[documents.Quotation](payload)
		if err != nil {
			return out, err
		}
		out.total = len(quotes)
		out.records = documents.AsRecords(keepValid(s.validator, quotes, stats))
	case documents.KindARInvoice:
		invoices, err := decodeList[documents.ARInvoice](payload)
		if err != nil {
			return out, err
		}
		out.total = len(invoices)
		for i := range invoices {
			if err := ensureItems(ctx, cache, &invoices[i].ARDocument); err != nil {
				return out, err
			}
		}
		out.records = documents.AsRecords(keepValid(s.validator, invoices, stats))
	case documents.KindARCreditMemo:
		memos, err := decodeList[documents.ARCreditMemo](payload)
		if err != nil {
			return out, err
		}
		out.total = len(memos)
		for i := range memos {
			if err := ensureItems(ctx, cache, &memos[i].ARDocument); err != nil {
				return out, err
			}
		}
		out.records = documents.AsRecords(keepValid(s.validator, memos, stats))
	default:
		return out, documents.ErrUnknownKind
	}
	return out, nil
}

func decodeList[T any](payload json.RawMessage) ([]T, error) {
	if len(payload) == 0 || string(payload) == "null" {
		return nil, nil
	}
	var list []T
	if err := json.Unmarshal(payload, &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return list, nil
}

func keepValid[T documents.Record](v *validator.Validate, recs []T, stats *Stats) []T {
	out := make([]T, 0, len(recs))
	for i, rec := range recs {
		if err := validateRecord(v, rec); err != nil {
			key := rec.Key()
			if key == "" {
				key = fmt.Sprintf("#%d", i+1)
			}
			stats.addError("document %s: %v", key, err)
			continue
		}
		out = append(out, rec)
	}
	return out
}

// enrichSalesOrders fills catalog-derived line fields the sender left empty.
func enrichSalesOrders(ctx context.Context, cache *catalog.Cache, orders []documents.SalesOrder) {
	codes := make([]string, 0, len(orders))
	for _, o := range orders {
		for _, l := range o.Lines {
			codes = append(codes, l.ItemCode)
		}
	}
	cache.Load(ctx, codes)
	for i := range orders {
		for j := range orders[i].Lines {
			line := &orders[i].Lines[j]
			if line.ItemCode == "" {
				continue
			}
			if line.Manufacturer == "" {
				line.Manufacturer = cache.Manufacturer(ctx, line.ItemCode)
			}
			if line.TotalAvailableStock.IsZero() && line.DipWarehouseStock.IsZero() {
				stock := cache.Stock(ctx, line.ItemCode)
				line.TotalAvailableStock = stock.TotalAvailable
				line.DipWarehouseStock = stock.DipWarehouse
			}
		}
	}
}

func ensureItems(ctx context.Context, cache *catalog.Cache, doc *documents.ARDocument) error {
	for i := range doc.Lines {
		line := &doc.Lines[i]
		if line.ItemID != nil || line.ItemCode == "" {
			continue
		}
		id, ok, err := cache.EnsureItem(ctx, line.ItemCode, line.ItemDescription)
		if err != nil {
			return fmt.Errorf("syncer: ensure item %s on %s: %w", line.ItemCode, doc.Number, err)
		}
		if ok {
			line.ItemID = &id
		}
	}
	return nil
}
