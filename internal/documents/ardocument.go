package documents

import "github.com/shopspring/decimal"

// CancelStatusCancellation marks a document that cancels another one.
const CancelStatusCancellation = "csCancellation"

// ARDocument holds the fields shared by AR invoices and AR credit memos.
type ARDocument struct {
	Number                 string          `json:"number" validate:"required"`
	InternalNumber         int64           `json:"internal_number"`
	PostingDate            Date            `json:"posting_date"`
	DocDueDate             Date            `json:"doc_due_date"`
	CustomerCode           string          `json:"customer_code"`
	CustomerName           string          `json:"customer_name"`
	CustomerAddress        string          `json:"customer_address"`
	SalesmanName           string          `json:"salesman_name"`
	SalesmanCode           string          `json:"salesman_code"`
	Store                  string          `json:"store"`
	BPReferenceNo          string          `json:"bp_reference_no"`
	DocTotal               decimal.Decimal `json:"doc_total"`
	DocTotalWithoutVAT     decimal.Decimal `json:"doc_total_without_vat"`
	SubtotalBeforeDiscount decimal.Decimal `json:"subtotal_before_discount"`
	VATSum                 decimal.Decimal `json:"vat_sum"`
	RoundingDiffAmount     decimal.Decimal `json:"rounding_diff_amount"`
	TotalGrossProfit       decimal.Decimal `json:"total_gross_profit"`
	DiscountPercent        decimal.Decimal `json:"discount_percent"`
	CancelStatus           string          `json:"cancel_status"`
	DocumentStatus         Status          `json:"document_status" validate:"oneof=O C"`
	VATNumber              string          `json:"vat_number"`
	Comments               string          `json:"comments"`

	Lines []ARLine `json:"lines" validate:"dive"`
}

// ARLine is a line of an AR invoice or credit memo.
type ARLine struct {
	ItemID                 *int64          `json:"item_id,omitempty"`
	LineNo                 int             `json:"line_no" validate:"gte=1"`
	ItemCode               string          `json:"item_code"`
	ItemDescription        string          `json:"item_description"`
	Quantity               decimal.Decimal `json:"quantity"`
	Price                  decimal.Decimal `json:"price"`
	PriceAfterVAT          decimal.Decimal `json:"price_after_vat"`
	DiscountPercent        decimal.Decimal `json:"discount_percent"`
	LineTotal              decimal.Decimal `json:"line_total"`
	LineTotalAfterDiscount decimal.Decimal `json:"line_total_after_discount"`
	CostPrice              decimal.Decimal `json:"cost_price"`
	GrossProfit            decimal.Decimal `json:"gross_profit"`
	TaxPercentage          decimal.Decimal `json:"tax_percentage"`
	TaxTotal               decimal.Decimal `json:"tax_total"`
	UPCCode                string          `json:"upc_code"`
}

// IsCancellation reports whether the document cancels a previous one.
func (d ARDocument) IsCancellation() bool {
	return d.CancelStatus == CancelStatusCancellation
}

// Key returns the document number.
func (d ARDocument) Key() string { return d.Number }

// HeaderValues implements Record.
func (d ARDocument) HeaderValues() []any {
	return []any{
		d.Number, d.InternalNumber, d.PostingDate, d.DocDueDate, d.CustomerCode, d.CustomerName,
		d.CustomerAddress, d.SalesmanName, d.SalesmanCode, d.Store, d.BPReferenceNo,
		money(d.DocTotal), money(d.DocTotalWithoutVAT), money(d.SubtotalBeforeDiscount), money(d.VATSum),
		money(d.RoundingDiffAmount), money(d.TotalGrossProfit), money(d.DiscountPercent), d.CancelStatus,
		string(d.DocumentStatus), d.VATNumber, d.Comments,
	}
}

// LineValues implements Record.
func (d ARDocument) LineValues() [][]any {
	rows := make([][]any, 0, len(d.Lines))
	for _, l := range d.Lines {
		var itemID any
		if l.ItemID != nil {
			itemID = *l.ItemID
		}
		rows = append(rows, []any{
			itemID, l.LineNo, l.ItemCode, l.ItemDescription, l.Quantity, l.Price, l.PriceAfterVAT,
			l.DiscountPercent, l.LineTotal, l.LineTotalAfterDiscount, l.CostPrice, l.GrossProfit,
			l.TaxPercentage, l.TaxTotal, l.UPCCode,
		})
	}
	return rows
}

// ARInvoice is a normalized SAP AR invoice.
type ARInvoice struct {
	ARDocument
}

// ARCreditMemo is a normalized SAP AR credit memo.
type ARCreditMemo struct {
	ARDocument
}
