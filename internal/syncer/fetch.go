package syncer

import (
	"context"
	"log/slog"
	"time"

	"github.com/odyssey-erp/sapsync/internal/documents"
	"github.com/odyssey-erp/sapsync/internal/reconcile"
	"github.com/odyssey-erp/sapsync/internal/sap"
)

// fetch reads the documents selected by opts. The scope is full only when the
// complete open set of a closable kind was read without skipped pages.
func (s *Service) fetch(ctx context.Context, logger *slog.Logger, kind documents.Kind, endpoint sap.Endpoint, opts Options, stats *Stats) (sap.Page[sap.Document], reconcile.Scope, error) {
	now := s.now()
	today := startOfDay(now)

	switch {
	case opts.DocNum != "":
		if isAR(kind) {
			page, err := s.source.FetchDocNumRecent(ctx, endpoint, opts.DocNum, now)
			return page, reconcile.ScopePartial, err
		}
		page, err := s.source.FetchByDocNum(ctx, endpoint, opts.DocNum)
		return page, reconcile.ScopePartial, err

	case !opts.Date.IsZero():
		day := startOfDay(opts.Date)
		if kind == documents.KindSalesOrder || kind == documents.KindPurchaseOrder {
			page, err := s.source.FetchByDate(ctx, endpoint, day)
			return page, reconcile.ScopePartial, err
		}
		page, err := s.source.FetchRange(ctx, endpoint, day, day)
		return page, reconcile.ScopePartial, err

	case !opts.From.IsZero():
		if !isAR(kind) && kind != documents.KindQuotation {
			return sap.Page[sap.Document]{}, reconcile.ScopePartial, ErrUnsupportedFilter
		}
		page, err := s.source.FetchRange(ctx, endpoint, startOfDay(opts.From), startOfDay(opts.To))
		return page, reconcile.ScopePartial, err
	}

	if isAR(kind) {
		page, err := s.source.FetchRange(ctx, endpoint, today.AddDate(0, 0, -opts.DaysBack), today)
		return page, reconcile.ScopePartial, err
	}

	page, err := s.source.FetchOpen(ctx, endpoint)
	if err != nil {
		return page, reconcile.ScopePartial, err
	}
	scope := reconcile.ScopeFull
	if page.Skipped > 0 {
		logger.Warn("open set incomplete, skipping closure", slog.Int("skipped_pages", page.Skipped))
		stats.addError("open set incomplete: %d pages skipped, closure disabled", page.Skipped)
		scope = reconcile.ScopePartial
	}

	var recent sap.Page[sap.Document]
	switch kind {
	case documents.KindSalesOrder:
		recent, err = s.source.FetchLastDays(ctx, endpoint, opts.DaysBack, now)
	case documents.KindQuotation:
		recent, err = s.source.FetchRange(ctx, endpoint, today.AddDate(0, 0, -opts.DaysBack), today)
	default:
		return page, scope, nil
	}
	page.Calls += recent.Calls
	page.Skipped += recent.Skipped
	if err != nil {
		if ctx.Err() != nil {
			return page, scope, ctx.Err()
		}
		logger.Warn("recent documents fetch failed, continuing with open set", slog.Any("error", err))
		stats.addError("recent %s: %v", kind.Label(), err)
		return page, scope, nil
	}
	page.Items = sap.DedupeByDocNum(append(page.Items, recent.Items...))
	return page, scope, nil
}

func isAR(kind documents.Kind) bool {
	return kind == documents.KindARInvoice || kind == documents.KindARCreditMemo
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
