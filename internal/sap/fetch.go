package sap

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Page is the concatenated result of a paginated fetch.
type Page[T any] struct {
	Items   []T
	Pages   int
	Calls   int
	Skipped int
}

// Merge appends other's counters and items.
func (p *Page[T]) Merge(other Page[T]) {
	p.Items = append(p.Items, other.Items...)
	p.Pages += other.Pages
	p.Calls += other.Calls
	p.Skipped += other.Skipped
}

// FetchAll retrieves every page for filter. Only a failure on the first page is
// returned; later page failures are logged and counted in Skipped.
func FetchAll[T any](ctx context.Context, c *Client, endpoint Endpoint, filter Filter) (Page[T], error) {
	logger := c.logger.With(slog.String("endpoint", string(endpoint)))

	var result Page[T]
	data, err := c.post(ctx, endpoint, filter, 1)
	result.Calls++
	if err != nil {
		return result, err
	}
	items, count, ok := decodePage[T](data)
	if !ok {
		logger.Warn("unexpected response shape, treating as empty", slog.Int("page", 1))
		return result, nil
	}
	result.Items = append(result.Items, items...)
	result.Pages = 1

	total := count
	if total <= 0 {
		total = len(items)
	}
	pages := (total + PageSize - 1) / PageSize
	if pages > 1 {
		logger.Info("fetching remaining pages", slog.Int("records", total), slog.Int("pages", pages))
	}
	for page := 2; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		data, err := c.post(ctx, endpoint, filter, page)
		result.Calls++
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return result, err
			}
			logger.Warn("page fetch failed, skipping", slog.Int("page", page), slog.Any("error", err))
			result.Skipped++
			continue
		}
		items, _, ok := decodePage[T](data)
		if !ok {
			logger.Warn("unexpected response shape, skipping page", slog.Int("page", page))
			result.Skipped++
			continue
		}
		result.Items = append(result.Items, items...)
		result.Pages++
	}
	return result, nil
}

// FetchOpen retrieves all open documents.
func (c *Client) FetchOpen(ctx context.Context, endpoint Endpoint) (Page[Document], error) {
	return FetchAll[Document](ctx, c, endpoint, OpenFilter())
}

// FetchByDate retrieves documents posted on day.
func (c *Client) FetchByDate(ctx context.Context, endpoint Endpoint, day time.Time) (Page[Document], error) {
	return FetchAll[Document](ctx, c, endpoint, DateFilter(day))
}

// FetchByDocNum retrieves a single document number.
func (c *Client) FetchByDocNum(ctx context.Context, endpoint Endpoint, docNum string) (Page[Document], error) {
	return FetchAll[Document](ctx, c, endpoint, DocNumFilter(docNum))
}

// FetchRange retrieves documents posted between from and to inclusive.
func (c *Client) FetchRange(ctx context.Context, endpoint Endpoint, from, to time.Time) (Page[Document], error) {
	return FetchAll[Document](ctx, c, endpoint, RangeFilter(from, to))
}

// FetchLastDays issues one DocDate request per day for the days ending at now,
// deduplicating by DocNum. A failing day aborts only when it is the first one.
func (c *Client) FetchLastDays(ctx context.Context, endpoint Endpoint, days int, now time.Time) (Page[Document], error) {
	if days <= 0 {
		days = 1
	}
	var result Page[Document]
	for i := 0; i < days; i++ {
		day := now.AddDate(0, 0, -i)
		page, err := c.FetchByDate(ctx, endpoint, day)
		if err != nil {
			if i == 0 || errors.Is(err, context.Canceled) {
				return result, err
			}
			c.logger.Warn("day fetch failed, skipping",
				slog.String("endpoint", string(endpoint)),
				slog.String("day", day.Format("2006-01-02")),
				slog.Any("error", err))
			result.Calls += page.Calls
			result.Skipped++
			continue
		}
		result.Merge(page)
	}
	result.Items = DedupeByDocNum(result.Items)
	return result, nil
}

// FetchDocNumRecent searches the last 30 days for a document number. AR
// endpoints do not accept a DocNum filter.
func (c *Client) FetchDocNumRecent(ctx context.Context, endpoint Endpoint, docNum string, now time.Time) (Page[Document], error) {
	page, err := c.FetchRange(ctx, endpoint, now.AddDate(0, 0, -30), now)
	if err != nil {
		return page, err
	}
	matched := page.Items[:0]
	for _, doc := range page.Items {
		if doc.DocNum.String() == docNum {
			matched = append(matched, doc)
		}
	}
	page.Items = matched
	return page, nil
}

// FetchFinanceSummary retrieves the customer aging summary.
func (c *Client) FetchFinanceSummary(ctx context.Context) (Page[FinanceRecord], error) {
	return FetchAll[FinanceRecord](ctx, c, EndpointFinanceSummary, Filter{})
}

// DedupeByDocNum keeps the first occurrence of each DocNum and drops documents
// without one.
func DedupeByDocNum(docs []Document) []Document {
	seen := make(map[string]struct{}, len(docs))
	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		num := doc.DocNum.String()
		if num == "" {
			continue
		}
		if _, ok := seen[num]; ok {
			continue
		}
		seen[num] = struct{}{}
		out = append(out, doc)
	}
	return out
}
