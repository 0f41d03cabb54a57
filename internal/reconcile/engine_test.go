package reconcile_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/odyssey-erp/sapsync/internal/documents"
	"github.com/odyssey-erp/sapsync/internal/reconcile"
	"github.com/odyssey-erp/sapsync/internal/reconcile/memstore"
)

type EngineSuite struct {
	suite.Suite
	store  *memstore.Store
	engine *reconcile.Engine
	table  documents.Table
	ctx    context.Context
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.store = memstore.New()
	s.engine = reconcile.NewEngine(s.store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.table, _ = documents.TableFor(documents.KindSalesOrder)
	s.ctx = context.Background()
}

func order(num string, status documents.Status, lineTotals ...string) documents.SalesOrder {
	so := documents.SalesOrder{SONumber: num, Status: status}
	for i, total := range lineTotals {
		so.Lines = append(so.Lines, documents.SalesOrderLine{
			LineNo:    i + 1,
			ItemCode:  "X" + total,
			LineTotal: decimal.RequireFromString(total),
		})
	}
	return so
}

func (s *EngineSuite) run(scope reconcile.Scope, orders ...documents.SalesOrder) reconcile.Result {
	res, err := s.engine.Reconcile(s.ctx, reconcile.Batch{Table: s.table, Records: documents.AsRecords(orders), Scope: scope})
	s.Require().NoError(err)
	return res
}

func (s *EngineSuite) TestUpdateDoesNotDuplicate() {
	first := s.run(reconcile.ScopeFull, order("SO-1", documents.StatusOpen, "10", "20"))
	s.Equal(1, first.Created)
	s.Equal(2, first.TotalItems)

	second := s.run(reconcile.ScopeFull, order("SO-1", documents.StatusOpen, "15"))
	s.Equal(0, second.Created)
	s.Equal(1, second.Updated)
	s.Equal([]string{"SO-1"}, s.store.Keys(s.table.Name))

	lines := s.store.Lines(s.table.Name, "SO-1")
	s.Require().Len(lines, 1)
	s.True(decimal.RequireFromString("15").Equal(lines[0].Values["line_total"].(decimal.Decimal)))
}

func (s *EngineSuite) TestLineTotalsRoundTrip() {
	s.run(reconcile.ScopePartial, order("SO-2", documents.StatusOpen, "10.25", "4.75", "5"))
	sum := decimal.Zero
	for _, l := range s.store.Lines(s.table.Name, "SO-2") {
		sum = sum.Add(l.Values["line_total"].(decimal.Decimal))
	}
	s.True(decimal.RequireFromString("20").Equal(sum))
}

func (s *EngineSuite) TestClosureOfMissingOpenOrders() {
	s.run(reconcile.ScopeFull, order("SO-1", documents.StatusOpen, "10"), order("SO-3", documents.StatusOpen, "7"))
	before := s.store.Lines(s.table.Name, "SO-1")

	res := s.run(reconcile.ScopeFull, order("SO-3", documents.StatusOpen, "7"))
	s.Equal(1, res.Closed)

	h, ok := s.store.Header(s.table.Name, "SO-1")
	s.Require().True(ok)
	s.Equal("C", h.Values["status"])
	s.Equal(before, s.store.Lines(s.table.Name, "SO-1"), "closing must not touch lines")

	again := s.run(reconcile.ScopeFull, order("SO-3", documents.StatusOpen, "7"))
	s.Zero(again.Closed)
	h, _ = s.store.Header(s.table.Name, "SO-1")
	s.Equal("C", h.Values["status"])
}

func (s *EngineSuite) TestPartialScopeNeverCloses() {
	s.run(reconcile.ScopeFull, order("SO-1", documents.StatusOpen, "10"))
	s.store.Calls = nil

	res := s.run(reconcile.ScopePartial, order("SO-9", documents.StatusOpen, "1"))
	s.Zero(res.Closed)
	h, _ := s.store.Header(s.table.Name, "SO-1")
	s.Equal("O", h.Values["status"])
	s.NotContains(s.store.Calls, "CloseMissing")
}

func (s *EngineSuite) TestEmptyBatchIsNoop() {
	s.run(reconcile.ScopeFull, order("SO-1", documents.StatusOpen, "10"))
	s.store.Calls = nil

	res := s.run(reconcile.ScopeFull)
	s.Equal(reconcile.Result{}, res)
	s.Empty(s.store.Calls)
	h, _ := s.store.Header(s.table.Name, "SO-1")
	s.Equal("O", h.Values["status"])
}

func (s *EngineSuite) TestIdempotentSecondRun() {
	batch := []documents.SalesOrder{order("A", documents.StatusOpen, "1"), order("B", documents.StatusClosed, "2")}
	s.run(reconcile.ScopeFull, batch...)
	res := s.run(reconcile.ScopeFull, batch...)
	s.Zero(res.Created)
	s.Equal(2, res.Updated)
	s.Zero(res.Closed)
	s.Equal(2, res.TotalItems)
}

func (s *EngineSuite) TestDuplicateKeysLastWins() {
	res := s.run(reconcile.ScopePartial, order("D", documents.StatusOpen, "1"), order("D", documents.StatusClosed, "2", "3"))
	s.Equal(1, res.Created)
	s.Equal(2, res.TotalItems)
	h, _ := s.store.Header(s.table.Name, "D")
	s.Equal("C", h.Values["status"])
}

func (s *EngineSuite) TestFailureRollsBackEverything() {
	s.run(reconcile.ScopeFull, order("SO-1", documents.StatusOpen, "10"))
	s.store.FailOn = "InsertLines"

	_, err := s.engine.Reconcile(s.ctx, reconcile.Batch{
		Table:   s.table,
		Records: documents.AsRecords([]documents.SalesOrder{order("SO-2", documents.StatusOpen, "5")}),
		Scope:   reconcile.ScopeFull,
	})
	s.Require().ErrorIs(err, memstore.ErrInjected)
	s.Equal([]string{"SO-1"}, s.store.Keys(s.table.Name))
	s.Len(s.store.Lines(s.table.Name, "SO-1"), 1)
	h, _ := s.store.Header(s.table.Name, "SO-1")
	s.Equal("O", h.Values["status"])
}

func (s *EngineSuite) TestDeliveryAppliedOnce() {
	delivery := &reconcile.Delivery{Key: "run-1", Module: "salesorders"}
	batch := reconcile.Batch{
		Table:    s.table,
		Records:  documents.AsRecords([]documents.SalesOrder{order("SO-1", documents.StatusOpen, "10")}),
		Delivery: delivery,
	}
	res, err := s.engine.Reconcile(s.ctx, batch)
	s.Require().NoError(err)
	s.Equal(1, res.Created)
	s.True(s.store.Delivered("run-1", "salesorders"))

	s.store.Calls = nil
	_, err = s.engine.Reconcile(s.ctx, batch)
	s.Require().ErrorIs(err, reconcile.ErrAlreadyApplied)
	s.Equal([]string{"ClaimDelivery"}, s.store.Calls)
	s.Len(s.store.Lines(s.table.Name, "SO-1"), 1)
}

func (s *EngineSuite) TestFailedBatchReleasesDelivery() {
	s.store.FailOn = "InsertLines"
	batch := reconcile.Batch{
		Table:    s.table,
		Records:  documents.AsRecords([]documents.SalesOrder{order("SO-1", documents.StatusOpen, "10")}),
		Delivery: &reconcile.Delivery{Key: "run-2", Module: "salesorders"},
	}
	_, err := s.engine.Reconcile(s.ctx, batch)
	s.Require().ErrorIs(err, memstore.ErrInjected)
	s.False(s.store.Delivered("run-2", "salesorders"))
	s.Empty(s.store.Keys(s.table.Name))

	s.store.FailOn = ""
	res, err := s.engine.Reconcile(s.ctx, batch)
	s.Require().NoError(err)
	s.Equal(1, res.Created)
	s.True(s.store.Delivered("run-2", "salesorders"))
}

func (s *EngineSuite) TestChunking() {
	s.engine.WithChunkSizes(2, 3)
	var batch []documents.SalesOrder
	for _, n := range []string{"1", "2", "3", "4", "5"} {
		batch = append(batch, order(n, documents.StatusOpen, "1", "2"))
	}
	res := s.run(reconcile.ScopePartial, batch...)
	s.Equal(5, res.Created)
	s.Equal(10, res.TotalItems)

	count := func(op string) int {
		n := 0
		for _, c := range s.store.Calls {
			if c == op {
				n++
			}
		}
		return n
	}
	s.Equal(3, count("InsertHeaders"))
	s.Equal(4, count("InsertLines"))
	s.Equal(3, count("DeleteLines"))
}

func TestARTablesAreNeverClosed(t *testing.T) {
	store := memstore.New()
	engine := reconcile.NewEngine(store, nil)
	table, _ := documents.TableFor(documents.KindARInvoice)
	inv := documents.ARInvoice{ARDocument: documents.ARDocument{Number: "INV-1", DocumentStatus: documents.StatusOpen}}

	_, err := engine.Reconcile(context.Background(), reconcile.Batch{Table: table, Records: documents.AsRecords([]documents.ARInvoice{inv}), Scope: reconcile.ScopeFull})
	require.NoError(t, err)
	_, err = engine.Reconcile(context.Background(), reconcile.Batch{Table: table, Records: documents.AsRecords([]documents.ARInvoice{{ARDocument: documents.ARDocument{Number: "INV-2"}}}), Scope: reconcile.ScopeFull})
	require.NoError(t, err)

	h, ok := store.Header(table.Name, "INV-1")
	require.True(t, ok)
	assert.Equal(t, "O", h.Values["document_status"])
}

func TestBatchWithoutTable(t *testing.T) {
	_, err := reconcile.NewEngine(memstore.New(), nil).Reconcile(context.Background(), reconcile.Batch{})
	require.ErrorIs(t, err, reconcile.ErrNoTable)
}
