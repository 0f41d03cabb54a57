package documents

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies a mirrored SAP document type.
type Kind string

const (
	KindSalesOrder    Kind = "salesorders"
	KindPurchaseOrder Kind = "purchaseorders"
	KindQuotation     Kind = "quotations"
	KindARInvoice     Kind = "arinvoices"
	KindARCreditMemo  Kind = "arcreditmemos"
)

// ErrUnknownKind is returned when a kind name is not recognised.
var ErrUnknownKind = errors.New("documents: unknown document kind")

// Kinds lists every supported kind in sync order.
func Kinds() []Kind {
	return []Kind{KindSalesOrder, KindPurchaseOrder, KindQuotation, KindARInvoice, KindARCreditMemo}
}

// ParseKind resolves a kind from its name. Hyphens, underscores and case are ignored.
func ParseKind(name string) (Kind, error) {
	normalized := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(name))
	for _, k := range Kinds() {
		if string(k) == normalized || strings.TrimSuffix(string(k), "s") == normalized {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// PayloadKey is the JSON key carrying the document list in push envelopes.
func (k Kind) PayloadKey() string {
	switch k {
	case KindPurchaseOrder:
		return "purchase_orders"
	case KindARInvoice:
		return "invoices"
	case KindARCreditMemo:
		return "creditmemos"
	default:
		return string(k)
	}
}

// Label is a human readable name used in logs and CLI output.
func (k Kind) Label() string {
	switch k {
	case KindSalesOrder:
		return "sales orders"
	case KindPurchaseOrder:
		return "purchase orders"
	case KindQuotation:
		return "quotations"
	case KindARInvoice:
		return "AR invoices"
	case KindARCreditMemo:
		return "AR credit memos"
	default:
		return string(k)
	}
}

// Closable reports whether missing open documents are closed after a full sync.
// AR invoices and credit memos are fetched by date range, so absence carries no meaning.
func (k Kind) Closable() bool {
	switch k {
	case KindSalesOrder, KindPurchaseOrder, KindQuotation:
		return true
	default:
		return false
	}
}
