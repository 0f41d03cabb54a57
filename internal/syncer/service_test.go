package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/sapsync/internal/catalog"
	"github.com/odyssey-erp/sapsync/internal/customers"
	"github.com/odyssey-erp/sapsync/internal/documents"
	"github.com/odyssey-erp/sapsync/internal/reconcile"
	"github.com/odyssey-erp/sapsync/internal/reconcile/memstore"
	"github.com/odyssey-erp/sapsync/internal/sap"
	"github.com/odyssey-erp/sapsync/internal/shared"
)

var fixedNow = time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubSource struct {
	open    sap.Page[sap.Document]
	openErr error
	recent  sap.Page[sap.Document]
	recErr  error
	docNum  sap.Page[sap.Document]
	ranged  sap.Page[sap.Document]
	byDate  sap.Page[sap.Document]

	calls []string
	from  time.Time
	to    time.Time
}

func (s *stubSource) FetchOpen(context.Context, sap.Endpoint) (sap.Page[sap.Document], error) {
	s.calls = append(s.calls, "open")
	return s.open, s.openErr
}

func (s *stubSource) FetchByDate(context.Context, sap.Endpoint, time.Time) (sap.Page[sap.Document], error) {
	s.calls = append(s.calls, "date")
	return s.byDate, nil
}

func (s *stubSource) FetchByDocNum(context.Context, sap.Endpoint, string) (sap.Page[sap.Document], error) {
	s.calls = append(s.calls, "docnum")
	return s.docNum, nil
}

func (s *stubSource) FetchRange(_ context.Context, _ sap.Endpoint, from, to time.Time) (sap.Page[sap.Document], error) {
	s.calls = append(s.calls, "range")
	s.from, s.to = from, to
	if s.recErr != nil {
		return sap.Page[sap.Document]{Calls: 1}, s.recErr
	}
	if len(s.ranged.Items) > 0 {
		return s.ranged, nil
	}
	return s.recent, nil
}

func (s *stubSource) FetchLastDays(context.Context, sap.Endpoint, int, time.Time) (sap.Page[sap.Document], error) {
	s.calls = append(s.calls, "lastdays")
	if s.recErr != nil {
		return sap.Page[sap.Document]{Calls: 1}, s.recErr
	}
	return s.recent, nil
}

func (s *stubSource) FetchDocNumRecent(context.Context, sap.Endpoint, string, time.Time) (sap.Page[sap.Document], error) {
	s.calls = append(s.calls, "docnum-recent")
	return s.docNum, nil
}

type stubItems struct {
	ids    map[string]int64
	nextID int64
}

func newStubItems() *stubItems {
	return &stubItems{ids: map[string]int64{"A1": 1}, nextID: 50}
}

func (s *stubItems) Manufacturers(_ context.Context, codes []string) (map[string]string, error) {
	out := map[string]string{}
	for _, c := range codes {
		if c == "A1" {
			out[c] = "ACME"
		}
	}
	return out, nil
}

func (s *stubItems) StockLevels(_ context.Context, codes []string) (map[string]catalog.StockLevel, error) {
	out := map[string]catalog.StockLevel{}
	for _, c := range codes {
		if c == "A1" {
			out[c] = catalog.StockLevel{TotalAvailable: decimal.NewFromInt(8), DipWarehouse: decimal.NewFromInt(2)}
		}
	}
	return out, nil
}

func (s *stubItems) EnsureItem(_ context.Context, code, _ string) (int64, bool, error) {
	if id, ok := s.ids[code]; ok {
		return id, false, nil
	}
	s.nextID++
	s.ids[code] = s.nextID
	return s.nextID, true, nil
}

type memContacts struct {
	got []customers.Contact
	err error
}

func (m *memContacts) UpsertContacts(_ context.Context, contacts []customers.Contact) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.got = append(m.got, contacts...)
	return len(contacts), nil
}

type memRuns struct {
	logs []shared.RunLog
}

func (m *memRuns) Record(_ context.Context, log shared.RunLog) error {
	m.logs = append(m.logs, log)
	return nil
}

type memProformas struct {
	got []string
	err error
}

func (m *memProformas) Sync(_ context.Context, orders []documents.SalesOrder) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	n := 0
	for _, o := range orders {
		if o.IsSAPPI {
			m.got = append(m.got, o.SONumber)
			n++
		}
	}
	return n, nil
}

func soDoc(num, card, status string, lines ...sap.Line) sap.Document {
	return sap.Document{
		DocNum:         sap.Text(num),
		CardCode:       sap.Text(card),
		CardName:       sap.Text("Customer " + card),
		DocDate:        "2024-05-09",
		DocTotal:       sap.NewNumber("100"),
		DocumentStatus: sap.Text(status),
		DocumentLines:  lines,
	}
}

func line(code, qty, price string) sap.Line {
	return sap.Line{
		ItemCode:              sap.Text(code),
		ItemDescription:       sap.Text("item " + code),
		Quantity:              sap.NewNumber(qty),
		Price:                 sap.NewNumber(price),
		LineTotal:             sap.NewNumber(decimal.RequireFromString(qty).Mul(decimal.RequireFromString(price)).String()),
		RemainingOpenQuantity: sap.NewNumber(qty),
		LineStatus:            documents.SAPStatusOpen,
	}
}

type fixture struct {
	source    *stubSource
	store     *memstore.Store
	items     *stubItems
	contacts  *memContacts
	proformas *memProformas
	runs      *memRuns
	service   *Service
}

func newFixture(cfg Config) *fixture {
	f := &fixture{
		source:    &stubSource{},
		store:     memstore.New(),
		items:     newStubItems(),
		contacts:  &memContacts{},
		proformas: &memProformas{},
		runs:      &memRuns{},
	}
	if cfg.CardCodePrefix == "" {
		cfg.CardCodePrefix = "HO"
	}
	f.service = NewService(ServiceParams{
		Config:    cfg,
		Source:    f.source,
		Engine:    reconcile.NewEngine(f.store, discardLogger()),
		Items:     f.items,
		Contacts:  f.contacts,
		Proformas: f.proformas,
		Runs:      f.runs,
		Logger:    discardLogger(),
		Now:       func() time.Time { return fixedNow },
	})
	return f
}

func page(docs ...sap.Document) sap.Page[sap.Document] {
	return sap.Page[sap.Document]{Items: docs, Pages: 1, Calls: 1}
}

func salesTable(t *testing.T) documents.Table {
	t.Helper()
	table, ok := documents.TableFor(documents.KindSalesOrder)
	require.True(t, ok)
	return table
}

func TestSalesOrderRunMergesFiltersAndEnriches(t *testing.T) {
	f := newFixture(Config{})
	f.source.open = page(
		soDoc("1001", "HO100", documents.SAPStatusOpen, line("A1", "2", "10")),
		soDoc("1002", "EX200", documents.SAPStatusOpen, line("A1", "1", "5")),
	)
	f.source.recent = page(
		soDoc("1001", "HO100", documents.SAPStatusOpen, line("A1", "2", "10")),
		soDoc("1003", "HO101", documents.SAPStatusClose, line("B2", "1", "3")),
	)

	stats, err := f.service.Run(context.Background(), documents.KindSalesOrder, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"open", "lastdays"}, f.source.calls)
	assert.Equal(t, "full", stats.Scope)
	assert.Equal(t, 2, stats.TotalDocuments)
	assert.Equal(t, 2, stats.Created)
	assert.Equal(t, 2, stats.TotalItems)
	assert.Equal(t, 2, stats.APICalls)
	assert.Equal(t, []string{"1001", "1003"}, f.store.Keys(salesTable(t).Name))

	lines := f.store.Lines(salesTable(t).Name, "1001")
	require.Len(t, lines, 1)
	assert.Equal(t, "ACME", lines[0].Values["manufacturer"])
	assert.Len(t, f.contacts.got, 2)
	require.Len(t, f.runs.logs, 1)
	assert.Equal(t, "salesorders", f.runs.logs[0].Kind)
	assert.Empty(t, f.runs.logs[0].Error)
}

func TestSecondRunIsIdempotentAndClosesMissing(t *testing.T) {
	f := newFixture(Config{})
	f.source.open = page(
		soDoc("1", "HO1", documents.SAPStatusOpen, line("A1", "1", "1")),
		soDoc("2", "HO1", documents.SAPStatusOpen, line("A1", "1", "1")),
	)
	_, err := f.service.Run(context.Background(), documents.KindSalesOrder, Options{})
	require.NoError(t, err)

	f.source.open = page(soDoc("2", "HO1", documents.SAPStatusOpen, line("A1", "1", "1")))
	stats, err := f.service.Run(context.Background(), documents.KindSalesOrder, Options{})
	require.NoError(t, err)
	assert.Zero(t, stats.Created)
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 1, stats.Closed)

	h, ok := f.store.Header(salesTable(t).Name, "1")
	require.True(t, ok)
	assert.Equal(t, "C", h.Values["status"])
}

func TestSkippedPagesDisableClosure(t *testing.T) {
	f := newFixture(Config{})
	f.source.open = page(soDoc("1", "HO1", documents.SAPStatusOpen), soDoc("2", "HO1", documents.SAPStatusOpen))
	_, err := f.service.Run(context.Background(), documents.KindSalesOrder, Options{})
	require.NoError(t, err)

	f.source.open = page(soDoc("2", "HO1", documents.SAPStatusOpen))
	f.source.open.Skipped = 1
	stats, err := f.service.Run(context.Background(), documents.KindSalesOrder, Options{})
	require.NoError(t, err)
	assert.Equal(t, "partial", stats.Scope)
	assert.Zero(t, stats.Closed)
	assert.NotEmpty(t, stats.Errors)

	h, _ := f.store.Header(salesTable(t).Name, "1")
	assert.Equal(t, "O", h.Values["status"])
}

func TestRecentFetchFailureIsAWarning(t *testing.T) {
	f := newFixture(Config{})
	f.source.open = page(soDoc("1", "HO1", documents.SAPStatusOpen))
	f.source.recErr = sap.ErrTransport

	stats, err := f.service.Run(context.Background(), documents.KindSalesOrder, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Created)
	assert.Len(t, stats.Errors, 1)
}

func TestOpenFetchFailureIsFatal(t *testing.T) {
	f := newFixture(Config{})
	f.source.openErr = &sap.TransportError{Endpoint: sap.EndpointSalesOrder, Err: errors.New("dial tcp: refused")}

	_, err := f.service.Run(context.Background(), documents.KindSalesOrder, Options{})
	require.ErrorIs(t, err, sap.ErrTransport)
	require.Len(t, f.runs.logs, 1)
	assert.NotEmpty(t, f.runs.logs[0].Error)
	assert.Empty(t, f.store.Keys(salesTable(t).Name))
}

func TestDocNumRunIsPartial(t *testing.T) {
	f := newFixture(Config{})
	f.source.docNum = page(soDoc("77", "HO1", documents.SAPStatusOpen))

	stats, err := f.service.Run(context.Background(), documents.KindSalesOrder, Options{DocNum: "77"})
	require.NoError(t, err)
	assert.Equal(t, []string{"docnum"}, f.source.calls)
	assert.Equal(t, "partial", stats.Scope)
}

func TestNothingMappedIsFatal(t *testing.T) {
	f := newFixture(Config{})
	f.source.docNum = page(sap.Document{CardCode: "V1"})

	_, err := f.service.Run(context.Background(), documents.KindPurchaseOrder, Options{DocNum: "5"})
	require.ErrorIs(t, err, ErrNothingMapped)
}

func TestEmptyFetchSucceedsWithoutWrites(t *testing.T) {
	f := newFixture(Config{})
	stats, err := f.service.Run(context.Background(), documents.KindPurchaseOrder, Options{})
	require.NoError(t, err)
	assert.Zero(t, stats.TotalDocuments)
	assert.Empty(t, f.store.Calls)
}

func TestOptionValidation(t *testing.T) {
	f := newFixture(Config{})
	_, err := f.service.Run(context.Background(), documents.KindARInvoice, Options{DocNum: "1", Date: fixedNow})
	require.ErrorIs(t, err, ErrConflictingFilters)

	_, err = f.service.Run(context.Background(), documents.KindARInvoice, Options{From: fixedNow})
	require.ErrorIs(t, err, ErrConflictingFilters)

	_, err = f.service.Run(context.Background(), documents.KindSalesOrder, Options{From: fixedNow, To: fixedNow})
	require.ErrorIs(t, err, ErrUnsupportedFilter)

	_, err = f.service.Run(context.Background(), documents.Kind("deliveries"), Options{})
	require.ErrorIs(t, err, documents.ErrUnknownKind)
}

func TestCardPrefixIgnoresCase(t *testing.T) {
	nested := sap.Document{BusinessPartner: &sap.BusinessPartner{CardCode: "Ho003"}}
	docs := []sap.Document{
		{CardCode: "ho001"},
		{CardCode: "HO002"},
		nested,
		{CardCode: " ho004"},
		{CardCode: "EX100"},
		{},
	}

	kept := filterByCardPrefix(docs, "HO")
	require.Len(t, kept, 4)
	codes := make([]string, 0, len(kept))
	for _, doc := range kept {
		codes = append(codes, doc.PartnerCode())
	}
	assert.Equal(t, []string{"ho001", "HO002", "Ho003", "ho004"}, codes)

	assert.Len(t, filterByCardPrefix(docs, "ho"), 4)
	assert.Len(t, filterByCardPrefix(docs, ""), len(docs))
}

func TestARDefaultWindowAndItemCreation(t *testing.T) {
	f := newFixture(Config{DaysBack: 5})
	memo := soDoc("9001", "C1", "bost_Close", line("NEW1", "2", "4"))
	f.source.recent = page(memo)

	stats, err := f.service.Run(context.Background(), documents.KindARCreditMemo, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"range"}, f.source.calls)
	assert.Equal(t, time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC), f.source.from)
	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), f.source.to)
	assert.Equal(t, 1, stats.CreatedItems)
	assert.Equal(t, "partial", stats.Scope)

	table, _ := documents.TableFor(documents.KindARCreditMemo)
	lines := f.store.Lines(table.Name, "9001")
	require.Len(t, lines, 1)
	assert.True(t, decimal.NewFromInt(-8).Equal(lines[0].Values["line_total"].(decimal.Decimal)))
}

func TestContactFailureIsAWarning(t *testing.T) {
	f := newFixture(Config{})
	f.contacts.err = errors.New("customers table locked")
	f.source.open = page(soDoc("1", "HO1", documents.SAPStatusOpen))

	stats, err := f.service.Run(context.Background(), documents.KindSalesOrder, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Created)
	assert.Zero(t, stats.Contacts)
	assert.Len(t, stats.Errors, 1)
}

func TestProformaInvoicesFollowReconcile(t *testing.T) {
	f := newFixture(Config{})
	pi := soDoc("2001", "HO1", documents.SAPStatusOpen, line("A1", "1", "1"))
	pi.ProformaInvoice = true
	f.source.open = page(pi, soDoc("2002", "HO1", documents.SAPStatusOpen))

	stats, err := f.service.Run(context.Background(), documents.KindSalesOrder, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Proformas)
	assert.Equal(t, []string{"2001"}, f.proformas.got)

	f.proformas.err = errors.New("boom")
	stats, err = f.service.Run(context.Background(), documents.KindSalesOrder, Options{})
	require.NoError(t, err)
	assert.Zero(t, stats.Proformas)
	assert.Contains(t, stats.Errors, "proforma invoices: boom")
}

func TestLockHeldFailsFast(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	locker := NewRedisLocker(rdb)
	release, err := locker.Obtain(context.Background(), shared.SyncLockKey("salesorders"), time.Minute)
	require.NoError(t, err)

	f := newFixture(Config{})
	f.service.locker = locker
	f.source.open = page(soDoc("1", "HO1", documents.SAPStatusOpen))

	_, err = f.service.Run(context.Background(), documents.KindSalesOrder, Options{})
	require.ErrorIs(t, err, ErrRunInProgress)
	assert.Empty(t, f.source.calls)
	assert.Empty(t, f.runs.logs)

	require.NoError(t, release(context.Background()))
	_, err = f.service.Run(context.Background(), documents.KindSalesOrder, Options{})
	require.NoError(t, err)
	assert.False(t, mr.Exists(shared.SyncLockKey("salesorders")))
}

// receiverServer exposes a Service.Receive over HTTP the way the receive
// endpoint does, without API key checks.
func receiverServer(t *testing.T, receiver *Service, kind documents.Kind) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]json.RawMessage
		var meta Metadata
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if err := json.Unmarshal(body["sync_metadata"], &meta); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		stats, err := receiver.Receive(r.Context(), kind, body[kind.PayloadKey()], meta)
		resp := Response{Success: err == nil, Stats: &stats}
		if err != nil {
			msg := err.Error()
			resp.Error = &msg
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPushModeMatchesLocalMode(t *testing.T) {
	docs := page(
		soDoc("1", "HO1", documents.SAPStatusOpen, line("A1", "3", "2.5")),
		soDoc("2", "HO2", documents.SAPStatusClose, line("B2", "1", "9")),
	)

	local := newFixture(Config{})
	local.source.open = docs
	_, err := local.service.Run(context.Background(), documents.KindSalesOrder, Options{})
	require.NoError(t, err)

	receiver := newFixture(Config{})
	srv := receiverServer(t, receiver.service, documents.KindSalesOrder)

	sender := newFixture(Config{Mode: ModePush})
	sender.service.pusher = NewPushClient(srv.URL, "key", time.Second)
	sender.service.engine = nil
	sender.source.open = docs

	stats, err := sender.service.Run(context.Background(), documents.KindSalesOrder, Options{})
	require.NoError(t, err)
	assert.Equal(t, "push", stats.Mode)
	assert.Equal(t, 2, stats.Created)
	assert.Equal(t, 2, stats.TotalItems)

	table := salesTable(t)
	assert.Equal(t, local.store.Keys(table.Name), receiver.store.Keys(table.Name))
	for _, key := range local.store.Keys(table.Name) {
		lh, _ := local.store.Header(table.Name, key)
		rh, _ := receiver.store.Header(table.Name, key)
		assert.Equal(t, lh.Values["status"], rh.Values["status"])
		ll := local.store.Lines(table.Name, key)
		rl := receiver.store.Lines(table.Name, key)
		require.Len(t, rl, len(ll))
		for i := range ll {
			assert.Equal(t, ll[i].Values["manufacturer"], rl[i].Values["manufacturer"])
			assert.True(t, ll[i].Values["line_total"].(decimal.Decimal).Equal(rl[i].Values["line_total"].(decimal.Decimal)))
		}
	}
}

func TestPushRejectedSurfacesError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success": false, "error": "Invalid API key"}`))
	}))
	defer srv.Close()

	f := newFixture(Config{Mode: ModePush})
	f.service.pusher = NewPushClient(srv.URL, "wrong", time.Second)
	f.source.open = page(soDoc("1", "HO1", documents.SAPStatusOpen))

	_, err := f.service.Run(context.Background(), documents.KindSalesOrder, Options{})
	require.ErrorIs(t, err, ErrPushRejected)
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestReceiveEdgeCases(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()

	_, err := f.service.Receive(ctx, documents.KindQuotation, json.RawMessage(`[]`), Metadata{})
	require.ErrorIs(t, err, ErrEmptyBatch)

	_, err = f.service.Receive(ctx, documents.KindQuotation, json.RawMessage(`{"not": "a list"}`), Metadata{})
	require.ErrorIs(t, err, ErrMalformedPayload)

	payload := json.RawMessage(`[{"quotation_number": "Q1", "status": "O", "lines": [{"line_no": 1, "item_no": "A1"}]}]`)
	meta := Metadata{RunID: "5b0f6f9e-3a56-4d3f-9a52-0d5d1c3e2f10"}
	stats, err := f.service.Receive(ctx, documents.KindQuotation, payload, meta)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Created)
	assert.Equal(t, meta.RunID, stats.RunID)

	again, err := f.service.Receive(ctx, documents.KindQuotation, payload, meta)
	require.NoError(t, err)
	assert.Zero(t, again.Created)
	assert.Len(t, again.Errors, 1)
}

func TestReceiveRetryAfterFailedReconcile(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()
	payload := json.RawMessage(`[{"quotation_number": "Q7", "status": "O"}]`)
	meta := Metadata{RunID: "0c7d3f52-9e0b-4a4e-8f4e-2f6f6a1f8b11"}

	f.store.FailOn = "InsertHeaders"
	_, err := f.service.Receive(ctx, documents.KindQuotation, payload, meta)
	require.ErrorIs(t, err, memstore.ErrInjected)
	assert.False(t, f.store.Delivered(meta.RunID, "quotations"))

	f.store.FailOn = ""
	stats, err := f.service.Receive(ctx, documents.KindQuotation, payload, meta)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Created)
	assert.Empty(t, stats.Errors)
	assert.True(t, f.store.Delivered(meta.RunID, "quotations"))
}

func TestReceiveFullSyncClosesAndEnsuresItems(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()

	first := json.RawMessage(`[{"so_number": "1", "status": "O"}, {"so_number": "2", "status": "O"}]`)
	_, err := f.service.Receive(ctx, documents.KindSalesOrder, first, Metadata{FullSync: true})
	require.NoError(t, err)

	second := json.RawMessage(`[{"so_number": "2", "status": "O", "lines": [{"line_no": 1, "item_code": "A1"}]}]`)
	stats, err := f.service.Receive(ctx, documents.KindSalesOrder, second, Metadata{FullSync: true})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Closed)
	lines := f.store.Lines(salesTable(t).Name, "2")
	require.Len(t, lines, 1)
	assert.Equal(t, "ACME", lines[0].Values["manufacturer"])

	invoices := json.RawMessage(`[{"number": "INV1", "document_status": "C", "lines": [{"line_no": 1, "item_code": "Z9", "item_description": "new"}]}]`)
	stats, err = f.service.Receive(ctx, documents.KindARInvoice, invoices, Metadata{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CreatedItems)
	assert.Contains(t, f.items.ids, "Z9")
}

func TestReceiveRejectsInvalidDocuments(t *testing.T) {
	f := newFixture(Config{})
	payload := json.RawMessage(`[{"po_number": "", "status": "O"}, {"po_number": "P1", "status": "X"}]`)
	_, err := f.service.Receive(context.Background(), documents.KindPurchaseOrder, payload, Metadata{})
	require.ErrorIs(t, err, ErrNothingMapped)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("", ModeLocal)
	require.NoError(t, err)
	assert.Equal(t, ModeLocal, m)
	m, err = ParseMode("PUSH", ModeLocal)
	require.NoError(t, err)
	assert.Equal(t, ModePush, m)
	_, err = ParseMode("remote", ModeLocal)
	require.Error(t, err)
}
