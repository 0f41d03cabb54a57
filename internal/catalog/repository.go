package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/sapsync/internal/platform/db"
)

// Repository reads and writes the items catalog and the ignore list.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Manufacturers returns item_firm keyed by item code for the codes that exist.
func (r *Repository) Manufacturers(ctx context.Context, codes []string) (map[string]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT item_code, COALESCE(item_firm, '') FROM items WHERE item_code = ANY($1)`, codes)
	if err != nil {
		return nil, fmt.Errorf("catalog: query manufacturers: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string, len(codes))
	for rows.Next() {
		var code, firm string
		if err := rows.Scan(&code, &firm); err != nil {
			return nil, fmt.Errorf("catalog: scan manufacturer: %w", err)
		}
		out[code] = firm
	}
	return out, rows.Err()
}

// StockLevels returns stock levels keyed by item code for the codes that exist.
func (r *Repository) StockLevels(ctx context.Context, codes []string) (map[string]StockLevel, error) {
	rows, err := r.pool.Query(ctx, `SELECT item_code, COALESCE(total_available_stock, 0), COALESCE(dip_warehouse_stock, 0) FROM items WHERE item_code = ANY($1)`, codes)
	if err != nil {
		return nil, fmt.Errorf("catalog: query stock: %w", err)
	}
	defer rows.Close()
	out := make(map[string]StockLevel, len(codes))
	for rows.Next() {
		var (
			code          string
			total, dipped pgtype.Numeric
		)
		if err := rows.Scan(&code, &total, &dipped); err != nil {
			return nil, fmt.Errorf("catalog: scan stock: %w", err)
		}
		out[code] = StockLevel{TotalAvailable: db.Decimal(total), DipWarehouse: db.Decimal(dipped)}
	}
	return out, rows.Err()
}

// EnsureItem creates a minimal catalog entry for code when none exists and
// removes the code from the ignore list. Existing items are left untouched.
func (r *Repository) EnsureItem(ctx context.Context, code, description string) (int64, bool, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO items (item_code, item_description, item_firm, item_cost, item_price)
		VALUES ($1, $2, '', 0, 0)
		ON CONFLICT (item_code) DO NOTHING
		RETURNING id`, code, description).Scan(&id)
	if err == nil {
		if _, err := r.pool.Exec(ctx, `DELETE FROM ignore_list WHERE item_code = $1`, code); err != nil {
			return id, true, fmt.Errorf("catalog: clear ignore list: %w", err)
		}
		return id, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, fmt.Errorf("catalog: insert item: %w", err)
	}
	if err := r.pool.QueryRow(ctx, `SELECT id FROM items WHERE item_code = $1`, code).Scan(&id); err != nil {
		return 0, false, fmt.Errorf("catalog: select item: %w", err)
	}
	return id, false, nil
}
