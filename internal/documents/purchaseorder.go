package documents

import "github.com/shopspring/decimal"

// PurchaseOrder is a normalized SAP purchase order.
type PurchaseOrder struct {
	PONumber        string          `json:"po_number" validate:"required"`
	InternalNumber  int64           `json:"internal_number"`
	PostingDate     Date            `json:"posting_date"`
	DueDate         Date            `json:"due_date"`
	SupplierCode    string          `json:"supplier_code"`
	SupplierName    string          `json:"supplier_name"`
	SupplierAddress string          `json:"supplier_address"`
	SupplierPhone   string          `json:"supplier_phone"`
	BPReferenceNo   string          `json:"bp_reference_no"`
	Buyer           string          `json:"buyer"`
	DocTotal        decimal.Decimal `json:"doc_total"`
	VATSum          decimal.Decimal `json:"vat_sum"`
	TotalDiscount   decimal.Decimal `json:"total_discount"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	RowTotalSum     decimal.Decimal `json:"row_total_sum"`
	PendingTotal    decimal.Decimal `json:"pending_total"`
	Status          Status          `json:"status" validate:"oneof=O C"`
	Remarks         string          `json:"remarks"`

	Lines []PurchaseOrderLine `json:"lines" validate:"dive"`
}

// PurchaseOrderLine is a line of a purchase order.
type PurchaseOrderLine struct {
	LineNo                int             `json:"line_no" validate:"gte=1"`
	ItemCode              string          `json:"item_code"`
	Description           string          `json:"description"`
	Quantity              decimal.Decimal `json:"quantity"`
	Price                 decimal.Decimal `json:"price"`
	LineTotal             decimal.Decimal `json:"line_total"`
	RowStatus             string          `json:"row_status"`
	RemainingOpenQuantity decimal.Decimal `json:"remaining_open_quantity"`
	PendingAmount         decimal.Decimal `json:"pending_amount"`
}

// Key returns the PO number.
func (o PurchaseOrder) Key() string { return o.PONumber }

// HeaderValues implements Record.
func (o PurchaseOrder) HeaderValues() []any {
	return []any{
		o.PONumber, o.InternalNumber, o.PostingDate, o.DueDate, o.SupplierCode,
		o.SupplierName, o.SupplierAddress, o.SupplierPhone, o.BPReferenceNo, o.Buyer,
		money(o.DocTotal), money(o.VATSum), money(o.TotalDiscount), money(o.DiscountPercent),
		money(o.RowTotalSum), money(o.PendingTotal), string(o.Status), o.Remarks,
	}
}

// LineValues implements Record.
func (o PurchaseOrder) LineValues() [][]any {
	rows := make([][]any, 0, len(o.Lines))
	for _, l := range o.Lines {
		rows = append(rows, []any{
			l.LineNo, l.ItemCode, l.Description, l.Quantity, l.Price, l.LineTotal, l.RowStatus,
			l.RemainingOpenQuantity, l.PendingAmount,
		})
	}
	return rows
}
