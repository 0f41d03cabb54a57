// Package memstore is an in-memory reconcile.Store used by tests and dry runs.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/odyssey-erp/sapsync/internal/documents"
	"github.com/odyssey-erp/sapsync/internal/reconcile"
)

// Header is a stored header row keyed by column name.
type Header struct {
	ID     int64
	Values map[string]any
}

// Line is a stored line row keyed by column name.
type Line struct {
	ParentID int64
	Values   map[string]any
}

type table struct {
	nextID  int64
	headers map[string]Header
	lines   map[int64][]Line
}

func (t *table) clone() *table {
	c := &table{nextID: t.nextID, headers: make(map[string]Header, len(t.headers)), lines: make(map[int64][]Line, len(t.lines))}
	for k, v := range t.headers {
		c.headers[k] = v
	}
	for k, v := range t.lines {
		c.lines[k] = append([]Line(nil), v...)
	}
	return c
}

// Store keeps tables in memory. Transactions work on a copy that replaces the
// live data only when the callback succeeds.
type Store struct {
	mu         sync.Mutex
	tables     map[string]*table
	deliveries map[string]bool

	// FailOn makes the named Tx operation return an error, e.g. "InsertLines".
	FailOn string
	// Calls records Tx operations in order.
	Calls []string
}

// New returns an empty Store.
func New() *Store {
	return &Store{tables: make(map[string]*table), deliveries: make(map[string]bool)}
}

// ErrInjected is returned by operations named in FailOn.
var ErrInjected = errors.New("memstore: injected failure")

// WithTx implements reconcile.Store.
func (s *Store) WithTx(ctx context.Context, fn func(reconcile.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	working := make(map[string]*table, len(s.tables))
	for name, t := range s.tables {
		working[name] = t.clone()
	}
	claimed := make(map[string]bool, len(s.deliveries))
	for k := range s.deliveries {
		claimed[k] = true
	}
	tx := &memTx{store: s, tables: working, deliveries: claimed}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.tables = working
	s.deliveries = claimed
	return nil
}

// Header returns the stored header for key.
func (s *Store) Header(tableName, key string) (Header, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[tableName]
	if !ok {
		return Header{}, false
	}
	h, ok := t.headers[key]
	return h, ok
}

// Lines returns the stored lines of the header identified by key.
func (s *Store) Lines(tableName, key string) []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[tableName]
	if !ok {
		return nil
	}
	h, ok := t.headers[key]
	if !ok {
		return nil
	}
	return append([]Line(nil), t.lines[h.ID]...)
}

// Keys lists stored header keys in sorted order.
func (s *Store) Keys(tableName string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[tableName]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(t.headers))
	for k := range t.headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type memTx struct {
	store      *Store
	tables     map[string]*table
	deliveries map[string]bool
}

func (tx *memTx) record(op string) error {
	tx.store.Calls = append(tx.store.Calls, op)
	if tx.store.FailOn == op {
		return fmt.Errorf("%w: %s", ErrInjected, op)
	}
	return nil
}

func (tx *memTx) table(name string) *table {
	t, ok := tx.tables[name]
	if !ok {
		t = &table{headers: make(map[string]Header), lines: make(map[int64][]Line)}
		tx.tables[name] = t
	}
	return t
}

func columns(names []string, values []any) map[string]any {
	out := make(map[string]any, len(names))
	for i, name := range names {
		if i < len(values) {
			out[name] = values[i]
		}
	}
	return out
}

func (tx *memTx) ExistingIDs(_ context.Context, tbl documents.Table, keys []string) (map[string]int64, error) {
	if err := tx.record("ExistingIDs"); err != nil {
		return nil, err
	}
	t := tx.table(tbl.Name)
	out := make(map[string]int64, len(keys))
	for _, k := range keys {
		if h, ok := t.headers[k]; ok {
			out[k] = h.ID
		}
	}
	return out, nil
}

func (tx *memTx) InsertHeaders(_ context.Context, tbl documents.Table, rows [][]any) (int64, error) {
	if err := tx.record("InsertHeaders"); err != nil {
		return 0, err
	}
	t := tx.table(tbl.Name)
	for _, row := range rows {
		values := columns(tbl.HeaderColumns, row)
		key, _ := values[tbl.KeyColumn].(string)
		if _, dup := t.headers[key]; dup {
			return 0, fmt.Errorf("memstore: duplicate key %s in %s", key, tbl.Name)
		}
		t.nextID++
		t.headers[key] = Header{ID: t.nextID, Values: values}
	}
	return int64(len(rows)), nil
}

func (tx *memTx) UpdateHeaders(_ context.Context, tbl documents.Table, updates []reconcile.HeaderUpdate) error {
	if err := tx.record("UpdateHeaders"); err != nil {
		return err
	}
	t := tx.table(tbl.Name)
	for _, u := range updates {
		values := columns(tbl.HeaderColumns, u.Values)
		key, _ := values[tbl.KeyColumn].(string)
		h, ok := t.headers[key]
		if !ok || h.ID != u.ID {
			return fmt.Errorf("memstore: update of unknown id %d", u.ID)
		}
		t.headers[key] = Header{ID: u.ID, Values: values}
	}
	return nil
}

func (tx *memTx) DeleteLines(_ context.Context, tbl documents.Table, parentIDs []int64) (int64, error) {
	if err := tx.record("DeleteLines"); err != nil {
		return 0, err
	}
	t := tx.table(tbl.Name)
	var n int64
	for _, id := range parentIDs {
		n += int64(len(t.lines[id]))
		delete(t.lines, id)
	}
	return n, nil
}

func (tx *memTx) InsertLines(_ context.Context, tbl documents.Table, rows [][]any) (int64, error) {
	if err := tx.record("InsertLines"); err != nil {
		return 0, err
	}
	t := tx.table(tbl.Name)
	for _, row := range rows {
		parent, _ := row[0].(int64)
		t.lines[parent] = append(t.lines[parent], Line{ParentID: parent, Values: columns(tbl.LineColumns, row[1:])})
	}
	return int64(len(rows)), nil
}

func (tx *memTx) CloseMissing(_ context.Context, tbl documents.Table, keep []string) (int64, error) {
	if err := tx.record("CloseMissing"); err != nil {
		return 0, err
	}
	t := tx.table(tbl.Name)
	kept := make(map[string]struct{}, len(keep))
	for _, k := range keep {
		kept[k] = struct{}{}
	}
	var closed int64
	for key, h := range t.headers {
		if _, ok := kept[key]; ok {
			continue
		}
		if h.Values[tbl.StatusColumn] != string(documents.StatusOpen) {
			continue
		}
		values := make(map[string]any, len(h.Values))
		for k, v := range h.Values {
			values[k] = v
		}
		values[tbl.StatusColumn] = string(documents.StatusOpen.Close())
		t.headers[key] = Header{ID: h.ID, Values: values}
		closed++
	}
	return closed, nil
}

func (tx *memTx) ClaimDelivery(_ context.Context, key, module string) (bool, error) {
	if err := tx.record("ClaimDelivery"); err != nil {
		return false, err
	}
	id := module + "/" + key
	if tx.deliveries[id] {
		return false, nil
	}
	tx.deliveries[id] = true
	return true, nil
}

// Delivered reports whether a delivery key has been committed.
func (s *Store) Delivered(key, module string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deliveries[module+"/"+key]
}
