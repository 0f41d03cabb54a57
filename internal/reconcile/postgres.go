package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/sapsync/internal/documents"
	"github.com/odyssey-erp/sapsync/internal/platform/db"
	"github.com/odyssey-erp/sapsync/internal/shared"
)

const syncedAtColumn = "last_synced_at"

// PgStore persists batches in PostgreSQL.
type PgStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPgStore constructs a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool, now: time.Now}
}

// WithTx runs fn inside a repeatable-read transaction.
func (s *PgStore) WithTx(ctx context.Context, fn func(Tx) error) error {
	syncedAt := s.now().UTC()
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx, syncedAt: syncedAt})
	})
}

type pgTx struct {
	tx       pgx.Tx
	syncedAt time.Time
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func (t *pgTx) ExistingIDs(ctx context.Context, table documents.Table, keys []string) (map[string]int64, error) {
	query := fmt.Sprintf(`SELECT %s, id FROM %s WHERE %s = ANY($1)`,
		ident(table.KeyColumn), ident(table.Name), ident(table.KeyColumn))
	rows, err := t.tx.Query(ctx, query, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int64, len(keys))
	for rows.Next() {
		var (
			key string
			id  int64
		)
		if err := rows.Scan(&key, &id); err != nil {
			return nil, err
		}
		out[key] = id
	}
	return out, rows.Err()
}

func (t *pgTx) InsertHeaders(ctx context.Context, table documents.Table, rows [][]any) (int64, error) {
	columns := append(append([]string{}, table.HeaderColumns...), syncedAtColumn)
	encoded := make([][]any, len(rows))
	for i, row := range rows {
		encoded[i] = append(encodeRow(row), t.syncedAt)
	}
	return t.tx.CopyFrom(ctx, pgx.Identifier{table.Name}, columns, pgx.CopyFromRows(encoded))
}

func (t *pgTx) UpdateHeaders(ctx context.Context, table documents.Table, updates []HeaderUpdate) error {
	sets := make([]string, 0, len(table.HeaderColumns)+1)
	for i, col := range table.HeaderColumns {
		sets = append(sets, fmt.Sprintf("%s = $%d", ident(col), i+1))
	}
	n := len(table.HeaderColumns)
	sets = append(sets, fmt.Sprintf("%s = $%d", ident(syncedAtColumn), n+1))
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d`, ident(table.Name), strings.Join(sets, ", "), n+2)

	batch := &pgx.Batch{}
	for _, u := range updates {
		args := append(encodeRow(u.Values), t.syncedAt, u.ID)
		batch.Queue(query, args...)
	}
	results := t.tx.SendBatch(ctx, batch)
	for range updates {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return err
		}
	}
	return results.Close()
}

func (t *pgTx) DeleteLines(ctx context.Context, table documents.Table, parentIDs []int64) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = ANY($1)`, ident(table.LineName), ident(table.ParentColumn))
	tag, err := t.tx.Exec(ctx, query, parentIDs)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *pgTx) InsertLines(ctx context.Context, table documents.Table, rows [][]any) (int64, error) {
	columns := append([]string{table.ParentColumn}, table.LineColumns...)
	encoded := make([][]any, len(rows))
	for i, row := range rows {
		encoded[i] = encodeRow(row)
	}
	return t.tx.CopyFrom(ctx, pgx.Identifier{table.LineName}, columns, pgx.CopyFromRows(encoded))
}

func (t *pgTx) CloseMissing(ctx context.Context, table documents.Table, keep []string) (int64, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = $2 WHERE %s = $3 AND NOT (%s = ANY($4))`,
		ident(table.Name), ident(table.StatusColumn), ident(syncedAtColumn),
		ident(table.StatusColumn), ident(table.KeyColumn))
	tag, err := t.tx.Exec(ctx, query,
		string(documents.StatusOpen.Close()), t.syncedAt, string(documents.StatusOpen), keep)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// encodeRow converts domain values into pgx-encodable values.
func encodeRow(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		switch val := v.(type) {
		case decimal.Decimal:
			out[i] = db.Numeric(val)
		case documents.Date:
			out[i] = val.Value()
		case documents.Status:
			out[i] = string(val)
		default:
			out[i] = v
		}
	}
	return out
}

func (t *pgTx) ClaimDelivery(ctx context.Context, key, module string) (bool, error) {
	err := shared.InTx(t.tx).CheckAndInsert(ctx, key, module)
	if errors.Is(err, shared.ErrIdempotencyConflict) {
		return false, nil
	}
	return err == nil, err
}
