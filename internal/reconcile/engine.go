// Package reconcile merges normalized documents into the local store.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/sapsync/internal/documents"
)

const (
	// HeaderChunkSize bounds header inserts and updates per statement.
	HeaderChunkSize = 5000
	// LineChunkSize bounds line inserts per statement.
	LineChunkSize = 20000
)

var (
	// ErrNoTable is returned when a batch carries no table descriptor.
	ErrNoTable = errors.New("reconcile: batch has no table")
	// ErrMissingParent is returned when a header id cannot be resolved after upsert.
	ErrMissingParent = errors.New("reconcile: header id missing after upsert")
	// ErrAlreadyApplied is returned when the batch delivery was committed before.
	ErrAlreadyApplied = errors.New("reconcile: delivery already applied")
)

// Scope tells the engine whether the batch is the complete open set.
type Scope int

const (
	// ScopePartial batches come from date, range or document number filters.
	ScopePartial Scope = iota
	// ScopeFull batches contain every open document known upstream.
	ScopeFull
)

func (s Scope) String() string {
	if s == ScopeFull {
		return "full"
	}
	return "partial"
}

// Delivery identifies a pushed batch. It is claimed in the same transaction
// as the batch writes.
type Delivery struct {
	Key    string
	Module string
}

// Batch is one reconciliation unit.
type Batch struct {
	Table    documents.Table
	Records  []documents.Record
	Scope    Scope
	Delivery *Delivery
}

// Result summarises a reconciliation.
type Result struct {
	Created    int `json:"created"`
	Updated    int `json:"updated"`
	Closed     int `json:"closed"`
	TotalItems int `json:"total_items"`
}

// HeaderUpdate rewrites an existing header row.
type HeaderUpdate struct {
	ID     int64
	Values []any
}

// Tx is the transactional persistence used by the engine.
type Tx interface {
	ExistingIDs(ctx context.Context, table documents.Table, keys []string) (map[string]int64, error)
	InsertHeaders(ctx context.Context, table documents.Table, rows [][]any) (int64, error)
	UpdateHeaders(ctx context.Context, table documents.Table, updates []HeaderUpdate) error
	DeleteLines(ctx context.Context, table documents.Table, parentIDs []int64) (int64, error)
	InsertLines(ctx context.Context, table documents.Table, rows [][]any) (int64, error)
	CloseMissing(ctx context.Context, table documents.Table, keep []string) (int64, error)
	// ClaimDelivery records a delivery key and reports false when it exists.
	ClaimDelivery(ctx context.Context, key, module string) (bool, error)
}

// Store opens transactions. Returning an error from fn rolls back every write.
type Store interface {
	WithTx(ctx context.Context, fn func(Tx) error) error
}

// Engine reconciles batches against a Store.
type Engine struct {
	store       Store
	logger      *slog.Logger
	headerChunk int
	lineChunk   int
}

// NewEngine constructs an Engine with the default chunk sizes.
func NewEngine(store Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, logger: logger, headerChunk: HeaderChunkSize, lineChunk: LineChunkSize}
}

// WithChunkSizes overrides the chunk sizes; non-positive values keep the current size.
func (e *Engine) WithChunkSizes(header, line int) *Engine {
	if header > 0 {
		e.headerChunk = header
	}
	if line > 0 {
		e.lineChunk = line
	}
	return e
}

// Reconcile upserts the batch headers, replaces their lines and, for full
// batches of closable tables, closes open documents absent from the batch.
// All writes, including the delivery claim, happen in one transaction.
func (e *Engine) Reconcile(ctx context.Context, batch Batch) (Result, error) {
	if batch.Table.Name == "" {
		return Result{}, ErrNoTable
	}
	records := dedupe(batch.Records)
	if len(records) == 0 {
		return Result{}, nil
	}
	keys := make([]string, len(records))
	for i, rec := range records {
		keys[i] = rec.Key()
	}

	var result Result
	err := e.store.WithTx(ctx, func(tx Tx) error {
		result = Result{}
		if d := batch.Delivery; d != nil && d.Key != "" {
			claimed, err := tx.ClaimDelivery(ctx, d.Key, d.Module)
			if err != nil {
				return fmt.Errorf("reconcile: claim delivery: %w", err)
			}
			if !claimed {
				return ErrAlreadyApplied
			}
		}
		existing, err := tx.ExistingIDs(ctx, batch.Table, keys)
		if err != nil {
			return fmt.Errorf("reconcile: load existing: %w", err)
		}

		var inserts [][]any
		var updates []HeaderUpdate
		for _, rec := range records {
			if id, ok := existing[rec.Key()]; ok {
				updates = append(updates, HeaderUpdate{ID: id, Values: rec.HeaderValues()})
				continue
			}
			inserts = append(inserts, rec.HeaderValues())
		}

		for _, chunk := range chunks(inserts, e.headerChunk) {
			if _, err := tx.InsertHeaders(ctx, batch.Table, chunk); err != nil {
				return fmt.Errorf("reconcile: insert headers: %w", err)
			}
		}
		for _, chunk := range chunks(updates, e.headerChunk) {
			if err := tx.UpdateHeaders(ctx, batch.Table, chunk); err != nil {
				return fmt.Errorf("reconcile: update headers: %w", err)
			}
		}
		result.Created = len(inserts)
		result.Updated = len(updates)

		ids, err := tx.ExistingIDs(ctx, batch.Table, keys)
		if err != nil {
			return fmt.Errorf("reconcile: reload ids: %w", err)
		}
		parentIDs := make([]int64, 0, len(records))
		var lines [][]any
		for _, rec := range records {
			id, ok := ids[rec.Key()]
			if !ok {
				return fmt.Errorf("%w: %s", ErrMissingParent, rec.Key())
			}
			parentIDs = append(parentIDs, id)
			for _, row := range rec.LineValues() {
				lines = append(lines, append([]any{id}, row...))
			}
		}

		for _, chunk := range chunks(parentIDs, e.headerChunk) {
			if _, err := tx.DeleteLines(ctx, batch.Table, chunk); err != nil {
				return fmt.Errorf("reconcile: delete lines: %w", err)
			}
		}
		for _, chunk := range chunks(lines, e.lineChunk) {
			if _, err := tx.InsertLines(ctx, batch.Table, chunk); err != nil {
				return fmt.Errorf("reconcile: insert lines: %w", err)
			}
		}
		result.TotalItems = len(lines)

		if batch.Scope == ScopeFull && batch.Table.Closable() {
			closed, err := tx.CloseMissing(ctx, batch.Table, keys)
			if err != nil {
				return fmt.Errorf("reconcile: close missing: %w", err)
			}
			result.Closed = int(closed)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	e.logger.Info("reconciled batch",
		slog.String("table", batch.Table.Name),
		slog.String("scope", batch.Scope.String()),
		slog.Int("created", result.Created),
		slog.Int("updated", result.Updated),
		slog.Int("closed", result.Closed),
		slog.Int("items", result.TotalItems))
	return result, nil
}

// dedupe keeps the last record for each key at the position of its first occurrence.
func dedupe(records []documents.Record) []documents.Record {
	index := make(map[string]int, len(records))
	out := make([]documents.Record, 0, len(records))
	for _, rec := range records {
		if rec == nil || rec.Key() == "" {
			continue
		}
		if i, ok := index[rec.Key()]; ok {
			out[i] = rec
			continue
		}
		index[rec.Key()] = len(out)
		out = append(out, rec)
	}
	return out
}

func chunks[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(items)
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}
