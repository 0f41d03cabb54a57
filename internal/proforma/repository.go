package proforma

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/sapsync/internal/documents"
	"github.com/odyssey-erp/sapsync/internal/platform/db"
)

// Repository writes sap_proforma_invoices and their lines.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const (
	renameLegacySQL = `
		UPDATE sap_proforma_invoices SET pi_number = $1, updated_at = NOW()
		WHERE pi_number = $2
		  AND NOT EXISTS (SELECT 1 FROM sap_proforma_invoices WHERE pi_number = $1)`

	upsertHeaderSQL = `
		INSERT INTO sap_proforma_invoices (pi_number, sales_order_id, sequence, status, is_sap_pi, pi_date, lpo_date, remarks)
		SELECT $1::text, so.id, 0, $3::text, TRUE, so.posting_date, $4::date, so.remarks
		FROM sap_sales_orders so WHERE so.so_number = $2
		ON CONFLICT (pi_number) DO UPDATE SET
			sales_order_id = EXCLUDED.sales_order_id,
			is_sap_pi = TRUE,
			pi_date = EXCLUDED.pi_date,
			lpo_date = COALESCE(EXCLUDED.lpo_date, sap_proforma_invoices.lpo_date),
			remarks = COALESCE(NULLIF(EXCLUDED.remarks, ''), sap_proforma_invoices.remarks),
			updated_at = NOW()`

	deleteLinesSQL = `
		DELETE FROM sap_proforma_invoice_lines
		WHERE proforma_id = (SELECT id FROM sap_proforma_invoices WHERE pi_number = $1)`

	copyLinesSQL = `
		INSERT INTO sap_proforma_invoice_lines (proforma_id, so_line_id, so_number, line_no, item_code, description, manufacturer, quantity)
		SELECT pi.id, l.id, so.so_number, l.line_no, l.item_code, l.description, l.manufacturer, l.quantity
		FROM sap_proforma_invoices pi
		JOIN sap_sales_orders so ON so.id = pi.sales_order_id
		JOIN sap_sales_order_lines l ON l.sales_order_id = so.id
		WHERE pi.pi_number = $1
		ORDER BY l.line_no`
)

// Sync mirrors the proforma invoices of orders, which must already be
// reconciled. It reports how many invoices were written; orders missing from
// sap_sales_orders are skipped.
func (r *Repository) Sync(ctx context.Context, orders []documents.SalesOrder) (int, error) {
	invoices := FromOrders(orders)
	if len(invoices) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, inv := range invoices {
		batch.Queue(renameLegacySQL, inv.Number, inv.Legacy)
		batch.Queue(upsertHeaderSQL, inv.Number, inv.SONumber, StatusActive, inv.LPODate.Value())
		batch.Queue(deleteLinesSQL, inv.Number)
		batch.Queue(copyLinesSQL, inv.Number)
	}

	written := 0
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		written = 0
		results := tx.SendBatch(ctx, batch)
		defer results.Close()
		for _, inv := range invoices {
			if _, err := results.Exec(); err != nil {
				return fmt.Errorf("proforma: rename %s: %w", inv.Legacy, err)
			}
			tag, err := results.Exec()
			if err != nil {
				return fmt.Errorf("proforma: upsert %s: %w", inv.Number, err)
			}
			if tag.RowsAffected() > 0 {
				written++
			}
			for _, op := range []string{"delete lines", "copy lines"} {
				if _, err := results.Exec(); err != nil {
					return fmt.Errorf("proforma: %s of %s: %w", op, inv.Number, err)
				}
			}
		}
		return results.Close()
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}
