// Package proforma mirrors SAP proforma invoices from synced sales orders.
package proforma

import (
	"strings"

	"github.com/odyssey-erp/sapsync/internal/documents"
)

// StatusActive is the status given to mirrored proforma invoices.
const StatusActive = "ACTIVE"

// legacySuffix marks proforma numbers written before they matched the SO number.
const legacySuffix = "-SAP"

// Invoice is a proforma invoice derived from a sales order flagged as SAP PI.
// Lines are copied from the stored sales order lines.
type Invoice struct {
	Number   string
	Legacy   string
	SONumber string
	LPODate  documents.Date
}

// Number returns the proforma number used for a sales order.
func Number(soNumber string) string {
	return strings.TrimSpace(soNumber)
}

// LegacyNumber returns the older `<so>-SAP` form renamed on the next sync.
func LegacyNumber(soNumber string) string {
	return Number(soNumber) + legacySuffix
}

// FromOrders picks the orders flagged as proforma invoices. The last order
// wins when a number repeats.
func FromOrders(orders []documents.SalesOrder) []Invoice {
	index := make(map[string]int, len(orders))
	var out []Invoice
	for _, o := range orders {
		num := Number(o.SONumber)
		if !o.IsSAPPI || num == "" {
			continue
		}
		inv := Invoice{Number: num, Legacy: LegacyNumber(num), SONumber: num, LPODate: o.LPODate}
		if i, ok := index[num]; ok {
			out[i] = inv
			continue
		}
		index[num] = len(out)
		out = append(out, inv)
	}
	return out
}
