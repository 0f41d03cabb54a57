// Package synchttp exposes the receive and trigger endpoints of the sync service.
package synchttp

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/sapsync/internal/documents"
	"github.com/odyssey-erp/sapsync/internal/platform/httpx"
	"github.com/odyssey-erp/sapsync/internal/syncer"
	"github.com/odyssey-erp/sapsync/jobs"
)

const (
	// MaxBodyBytes bounds pushed envelopes.
	MaxBodyBytes = 256 << 20

	rateLimit  = 30
	rateWindow = time.Minute
)

// Receiver applies pushed batches. *syncer.Service satisfies it.
type Receiver interface {
	Receive(ctx context.Context, kind documents.Kind, payload json.RawMessage, meta syncer.Metadata) (syncer.Stats, error)
}

// Enqueuer queues sync runs. *jobs.Client satisfies it.
type Enqueuer interface {
	EnqueueSync(ctx context.Context, payload jobs.SyncPayload) (*asynq.TaskInfo, error)
}

// Handler serves /sync routes.
type Handler struct {
	receiver  Receiver
	enqueuer  Enqueuer
	apiKey    string
	logger    *slog.Logger
	validator *validator.Validate
}

// NewHandler constructs the sync handler. A nil receiver or enqueuer leaves
// the matching route unmounted.
func NewHandler(receiver Receiver, enqueuer Enqueuer, apiKey string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{receiver: receiver, enqueuer: enqueuer, apiKey: apiKey, logger: logger, validator: validator.New()}
}

// MountRoutes registers the sync endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(rateLimit, rateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.JSON(w, http.StatusTooManyRequests, syncer.Response{Error: ptr("rate limit exceeded")})
		}),
	)
	r.Route("/sync/{kind}", func(sr chi.Router) {
		sr.Use(limiter)
		if h.receiver != nil {
			sr.Post("/receive", h.handleReceive)
		}
		if h.enqueuer != nil {
			sr.Post("/trigger", h.handleTrigger)
		}
	})
}

func (h *Handler) validKey(got string) bool {
	if h.apiKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.apiKey)) == 1
}

func (h *Handler) handleReceive(w http.ResponseWriter, r *http.Request) {
	kind, err := documents.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		httpx.JSON(w, http.StatusNotFound, syncer.Response{Error: ptr(err.Error()), ErrorType: "UnknownKind"})
		return
	}

	var body map[string]json.RawMessage
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := httpx.DecodeJSON(r, &body); err != nil {
		h.fail(w, http.StatusInternalServerError, err, "DecodeError")
		return
	}

	var key string
	if raw, ok := body["api_key"]; ok {
		_ = json.Unmarshal(raw, &key)
	}
	if !h.validKey(key) {
		h.logger.Warn("receive rejected: invalid api key", slog.String("kind", string(kind)), slog.String("remote", r.RemoteAddr))
		httpx.JSON(w, http.StatusUnauthorized, syncer.Response{Error: ptr("Invalid API key")})
		return
	}

	var meta syncer.Metadata
	if raw, ok := body["sync_metadata"]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &meta); err != nil {
			h.fail(w, http.StatusInternalServerError, err, "DecodeError")
			return
		}
	}
	if err := h.validator.Struct(meta); err != nil {
		h.fail(w, http.StatusInternalServerError, err, "ValidationError")
		return
	}

	stats, err := h.receiver.Receive(r.Context(), kind, body[kind.PayloadKey()], meta)
	switch {
	case err == nil:
		httpx.JSON(w, http.StatusOK, syncer.Response{Success: true, Stats: &stats})
	case errors.Is(err, syncer.ErrEmptyBatch):
		httpx.JSON(w, http.StatusOK, syncer.Response{Error: ptr(fmt.Sprintf("No %s provided", kind.Label()))})
	case errors.Is(err, syncer.ErrMalformedPayload):
		h.fail(w, http.StatusInternalServerError, err, "MalformedPayload")
	case errors.Is(err, syncer.ErrRunInProgress):
		httpx.JSON(w, http.StatusConflict, syncer.Response{Stats: &stats, Error: ptr(err.Error()), ErrorType: "RunInProgress"})
	default:
		h.logger.Error("receive failed", slog.String("kind", string(kind)), slog.Any("error", err))
		httpx.JSON(w, http.StatusOK, syncer.Response{Stats: &stats, Error: ptr(err.Error())})
	}
}

func (h *Handler) fail(w http.ResponseWriter, status int, err error, errorType string) {
	h.logger.Warn("receive rejected", slog.String("error_type", errorType), slog.Any("error", err))
	httpx.JSON(w, status, syncer.Response{Error: ptr(err.Error()), ErrorType: errorType})
}

type triggerRequest struct {
	DaysBack int    `json:"days_back" validate:"gte=0,lte=365"`
	Date     string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	FromDate string `json:"from_date" validate:"omitempty,datetime=2006-01-02"`
	ToDate   string `json:"to_date" validate:"omitempty,datetime=2006-01-02"`
	DocNum   string `json:"docnum" validate:"omitempty,max=32"`
	Mode     string `json:"mode" validate:"omitempty,oneof=local push"`
}

type triggerResponse struct {
	TaskID string `json:"task_id"`
	Queue  string `json:"queue"`
}

func (h *Handler) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if !h.validKey(r.Header.Get("X-API-Key")) {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	kind, err := documents.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrNotFound, err))
		return
	}

	var req triggerRequest
	if r.ContentLength != 0 {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
			return
		}
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}

	payload := jobs.SyncPayload{
		Kind:     string(kind),
		DaysBack: req.DaysBack,
		Date:     req.Date,
		FromDate: req.FromDate,
		ToDate:   req.ToDate,
		DocNum:   strings.TrimSpace(req.DocNum),
		Mode:     req.Mode,
	}
	_, opts, err := payload.Options()
	if err == nil {
		err = opts.Validate()
	}
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}

	info, err := h.enqueuer.EnqueueSync(r.Context(), payload)
	switch {
	case errors.Is(err, asynq.ErrDuplicateTask):
		httpx.RespondError(w, fmt.Errorf("%w: identical sync already queued", httpx.ErrDuplicate))
		return
	case err != nil:
		h.logger.Error("enqueue sync", slog.String("kind", string(kind)), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, triggerResponse{TaskID: info.ID, Queue: info.Queue})
}

func ptr(s string) *string {
	return &s
}
