package customers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/sapsync/internal/sap"
)

// FinanceBatchSize bounds rows written per finance upsert batch.
const FinanceBatchSize = 1000

// Finance is the credit and aging snapshot of one customer. Pending[0] is the
// oldest monthly bucket and Pending[5] the current month.
type Finance struct {
	Code                    string
	Name                    string
	Salesman                string
	CreditLimit             decimal.Decimal
	CreditDays              string
	Pending                 [6]decimal.Decimal
	OlderPending            decimal.Decimal
	TotalOutstanding        decimal.Decimal
	PDCReceived             decimal.Decimal
	TotalOutstandingWithPDC decimal.Decimal
}

// FinanceFromRecord converts a FinanceSummary row. SAP numbers the buckets
// from the current month ("1") to the oldest ("6"), the stored columns run the
// other way.
func FinanceFromRecord(rec sap.FinanceRecord) (Finance, error) {
	code := rec.CardCode.String()
	if code == "" {
		return Finance{}, fmt.Errorf("customers: finance record without CardCode")
	}
	f := Finance{
		Code:             code,
		Name:             firstNonEmpty(rec.CardName.String(), code),
		Salesman:         rec.SalesEmployee.String(),
		CreditLimit:      rec.CreditLimit.Dec(),
		CreditDays:       truncate(creditDays(rec.CreditDays), 30),
		OlderPending:     rec.Older.Dec(),
		TotalOutstanding: rec.BalanceDue.Dec(),
		PDCReceived:      rec.ChecksBal.Dec(),
	}
	buckets := []sap.Number{rec.Month6, rec.Month5, rec.Month4, rec.Month3, rec.Month2, rec.Month1}
	for i, b := range buckets {
		f.Pending[i] = b.Dec()
	}
	f.TotalOutstandingWithPDC = f.TotalOutstanding.Add(f.PDCReceived)
	return f, nil
}

func creditDays(n sap.Number) string {
	if !n.Valid {
		return "0"
	}
	return n.Value.String()
}

// FinanceStore persists finance snapshots.
type FinanceStore interface {
	UpsertFinance(ctx context.Context, rows []Finance) (created, updated int, err error)
}

// FinanceFetcher reads the FinanceSummary endpoint.
type FinanceFetcher interface {
	FetchFinanceSummary(ctx context.Context) (sap.Page[sap.FinanceRecord], error)
}

// FinanceStats summarises a finance sync.
type FinanceStats struct {
	Fetched  int      `json:"fetched"`
	Created  int      `json:"created"`
	Updated  int      `json:"updated"`
	APICalls int      `json:"api_calls"`
	Errors   []string `json:"errors"`
}

// FinanceSync refreshes customer credit data from SAP.
type FinanceSync struct {
	fetcher FinanceFetcher
	store   FinanceStore
	logger  *slog.Logger
}

// NewFinanceSync constructs a FinanceSync.
func NewFinanceSync(fetcher FinanceFetcher, store FinanceStore, logger *slog.Logger) *FinanceSync {
	if logger == nil {
		logger = slog.Default()
	}
	return &FinanceSync{fetcher: fetcher, store: store, logger: logger}
}

// Run fetches the summary and upserts every valid record in batches.
func (s *FinanceSync) Run(ctx context.Context) (FinanceStats, error) {
	var stats FinanceStats
	page, err := s.fetcher.FetchFinanceSummary(ctx)
	stats.APICalls = page.Calls
	if err != nil {
		return stats, err
	}
	stats.Fetched = len(page.Items)

	seen := make(map[string]int, len(page.Items))
	rows := make([]Finance, 0, len(page.Items))
	for _, rec := range page.Items {
		f, err := FinanceFromRecord(rec)
		if err != nil {
			stats.Errors = append(stats.Errors, err.Error())
			continue
		}
		if i, dup := seen[strings.ToUpper(f.Code)]; dup {
			rows[i] = f
			continue
		}
		seen[strings.ToUpper(f.Code)] = len(rows)
		rows = append(rows, f)
	}

	for start := 0; start < len(rows); start += FinanceBatchSize {
		end := min(start+FinanceBatchSize, len(rows))
		created, updated, err := s.store.UpsertFinance(ctx, rows[start:end])
		if err != nil {
			return stats, fmt.Errorf("customers: upsert finance: %w", err)
		}
		stats.Created += created
		stats.Updated += updated
	}
	s.logger.Info("customer finance synced",
		slog.Int("fetched", stats.Fetched),
		slog.Int("created", stats.Created),
		slog.Int("updated", stats.Updated),
		slog.Int("errors", len(stats.Errors)))
	return stats, nil
}
