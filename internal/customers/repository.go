package customers

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/sapsync/internal/platform/db"
)

// Repository writes the customers table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UpsertContacts creates missing customers and refreshes non-empty contact
// fields of existing ones. Existing names are kept.
func (r *Repository) UpsertContacts(ctx context.Context, contacts []Contact) (int, error) {
	if len(contacts) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, c := range contacts {
		batch.Queue(`
			INSERT INTO customers (customer_code, customer_name, address, phone_number, vat_number)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (customer_code) DO UPDATE SET
				address = COALESCE(NULLIF(EXCLUDED.address, ''), customers.address),
				phone_number = COALESCE(NULLIF(EXCLUDED.phone_number, ''), customers.phone_number),
				vat_number = COALESCE(NULLIF(EXCLUDED.vat_number, ''), customers.vat_number),
				updated_at = NOW()`,
			c.Code, c.Name, c.Address, c.Phone, c.VATNumber)
	}
	return len(contacts), execBatch(ctx, r.pool, batch, len(contacts))
}

// UpsertFinance writes finance snapshots and reports created and updated counts.
func (r *Repository) UpsertFinance(ctx context.Context, rows []Finance) (int, int, error) {
	if len(rows) == 0 {
		return 0, 0, nil
	}
	batch := &pgx.Batch{}
	for _, f := range rows {
		batch.Queue(`
			INSERT INTO customers (
				customer_code, customer_name, salesman, credit_limit, credit_days,
				month_pending_1, month_pending_2, month_pending_3, month_pending_4, month_pending_5, month_pending_6,
				old_months_pending, total_outstanding, pdc_received, total_outstanding_with_pdc)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			ON CONFLICT (customer_code) DO UPDATE SET
				customer_name = EXCLUDED.customer_name,
				salesman = EXCLUDED.salesman,
				credit_limit = EXCLUDED.credit_limit,
				credit_days = EXCLUDED.credit_days,
				month_pending_1 = EXCLUDED.month_pending_1,
				month_pending_2 = EXCLUDED.month_pending_2,
				month_pending_3 = EXCLUDED.month_pending_3,
				month_pending_4 = EXCLUDED.month_pending_4,
				month_pending_5 = EXCLUDED.month_pending_5,
				month_pending_6 = EXCLUDED.month_pending_6,
				old_months_pending = EXCLUDED.old_months_pending,
				total_outstanding = EXCLUDED.total_outstanding,
				pdc_received = EXCLUDED.pdc_received,
				total_outstanding_with_pdc = EXCLUDED.total_outstanding_with_pdc,
				updated_at = NOW()
			RETURNING (xmax = 0)`,
			f.Code, f.Name, f.Salesman, db.Numeric(f.CreditLimit), f.CreditDays,
			db.Numeric(f.Pending[0]), db.Numeric(f.Pending[1]), db.Numeric(f.Pending[2]),
			db.Numeric(f.Pending[3]), db.Numeric(f.Pending[4]), db.Numeric(f.Pending[5]),
			db.Numeric(f.OlderPending), db.Numeric(f.TotalOutstanding), db.Numeric(f.PDCReceived),
			db.Numeric(f.TotalOutstandingWithPDC))
	}

	var created, updated int
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		results := tx.SendBatch(ctx, batch)
		defer results.Close()
		for range rows {
			var inserted bool
			if err := results.QueryRow().Scan(&inserted); err != nil {
				return fmt.Errorf("customers: upsert finance row: %w", err)
			}
			if inserted {
				created++
			} else {
				updated++
			}
		}
		return results.Close()
	})
	if err != nil {
		return 0, 0, err
	}
	return created, updated, nil
}

func execBatch(ctx context.Context, pool *pgxpool.Pool, batch *pgx.Batch, n int) error {
	results := pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := 0; i < n; i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("customers: upsert contact: %w", err)
		}
	}
	return results.Close()
}
