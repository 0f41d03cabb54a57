package synchttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/sapsync/internal/documents"
	"github.com/odyssey-erp/sapsync/internal/syncer"
	"github.com/odyssey-erp/sapsync/jobs"
)

const testKey = "s3cret"

type fakeReceiver struct {
	kind    documents.Kind
	payload json.RawMessage
	meta    syncer.Metadata
	stats   syncer.Stats
	err     error
}

func (f *fakeReceiver) Receive(_ context.Context, kind documents.Kind, payload json.RawMessage, meta syncer.Metadata) (syncer.Stats, error) {
	f.kind, f.payload, f.meta = kind, payload, meta
	return f.stats, f.err
}

type fakeEnqueuer struct {
	payloads []jobs.SyncPayload
	err      error
}

func (f *fakeEnqueuer) EnqueueSync(_ context.Context, payload jobs.SyncPayload) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.payloads = append(f.payloads, payload)
	return &asynq.TaskInfo{ID: "task-1", Queue: jobs.QueueDefault}, nil
}

func newRouter(rcv *fakeReceiver, enq *fakeEnqueuer) http.Handler {
	r := chi.NewRouter()
	NewHandler(rcv, enq, testKey, slog.New(slog.NewTextHandler(io.Discard, nil))).MountRoutes(r)
	return r
}

func post(t *testing.T, h http.Handler, path, body string, header map[string]string) (*httptest.ResponseRecorder, syncer.Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var resp syncer.Response
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func TestReceiveSuccess(t *testing.T) {
	rcv := &fakeReceiver{stats: syncer.Stats{Created: 2, Updated: 1}}
	h := newRouter(rcv, nil)

	rec, resp := post(t, h, "/sync/purchaseorders/receive",
		`{"purchase_orders": [{"po_number": "1"}], "api_key": "s3cret", "sync_metadata": {"api_calls": 3, "days_back": 3, "run_id": "abc", "full_sync": true}}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	require.NotNil(t, resp.Stats)
	assert.Equal(t, 2, resp.Stats.Created)
	assert.Equal(t, documents.KindPurchaseOrder, rcv.kind)
	assert.JSONEq(t, `[{"po_number": "1"}]`, string(rcv.payload))
	assert.True(t, rcv.meta.FullSync)
	assert.Equal(t, 3, rcv.meta.APICalls)
	assert.Contains(t, rec.Body.String(), `"error":null`)
}

func TestReceiveRejectsBadKey(t *testing.T) {
	rcv := &fakeReceiver{}
	rec, resp := post(t, newRouter(rcv, nil), "/sync/salesorders/receive", `{"salesorders": [], "api_key": "nope"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "Invalid API key", *resp.Error)
	assert.Empty(t, rcv.kind)
}

func TestReceiveMalformedBody(t *testing.T) {
	rec, resp := post(t, newRouter(&fakeReceiver{}, nil), "/sync/salesorders/receive", `{"salesorders": [`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "DecodeError", resp.ErrorType)
}

func TestReceiveErrorShapes(t *testing.T) {
	cases := []struct {
		err       error
		status    int
		message   string
		errorType string
	}{
		{syncer.ErrEmptyBatch, http.StatusOK, "No AR invoices provided", ""},
		{syncer.ErrMalformedPayload, http.StatusInternalServerError, syncer.ErrMalformedPayload.Error(), "MalformedPayload"},
		{syncer.ErrRunInProgress, http.StatusConflict, syncer.ErrRunInProgress.Error(), "RunInProgress"},
		{errors.New("reconcile: deadlock detected"), http.StatusOK, "reconcile: deadlock detected", ""},
	}
	for _, tc := range cases {
		h := newRouter(&fakeReceiver{err: tc.err}, nil)
		rec, resp := post(t, h, "/sync/arinvoices/receive", `{"invoices": [{}], "api_key": "s3cret"}`, nil)
		assert.Equal(t, tc.status, rec.Code, tc.message)
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, tc.message, *resp.Error)
		assert.Equal(t, tc.errorType, resp.ErrorType)
	}
}

func TestReceiveUnknownKind(t *testing.T) {
	rec, _ := post(t, newRouter(&fakeReceiver{}, nil), "/sync/deliveries/receive", `{}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReceiveInvalidMetadata(t *testing.T) {
	rec, resp := post(t, newRouter(&fakeReceiver{}, nil), "/sync/quotations/receive",
		`{"quotations": [], "api_key": "s3cret", "sync_metadata": {"api_calls": -1}}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "ValidationError", resp.ErrorType)
}

func TestTrigger(t *testing.T) {
	enq := &fakeEnqueuer{}
	h := newRouter(nil, enq)

	rec, _ := post(t, h, "/sync/salesorders/trigger", `{"days_back": 5}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = post(t, h, "/sync/salesorders/trigger", `{"days_back": 5}`, map[string]string{"X-API-Key": testKey})
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, enq.payloads, 1)
	assert.Equal(t, jobs.SyncPayload{Kind: "salesorders", DaysBack: 5}, enq.payloads[0])
	assert.Contains(t, rec.Body.String(), "task-1")

	rec, _ = post(t, h, "/sync/arinvoices/trigger", `{"date": "2024-02-30"}`, map[string]string{"X-API-Key": testKey})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = post(t, h, "/sync/arinvoices/trigger", `{"date": "2024-02-01", "docnum": "5"}`, map[string]string{"X-API-Key": testKey})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	enq.err = asynq.ErrDuplicateTask
	rec, _ = post(t, h, "/sync/quotations/trigger", ``, map[string]string{"X-API-Key": testKey})
	assert.Equal(t, http.StatusConflict, rec.Code)
}
