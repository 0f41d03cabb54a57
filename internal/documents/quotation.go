package documents

import "github.com/shopspring/decimal"

// Quotation is a normalized SAP sales quotation.
type Quotation struct {
	QuotationNumber    string          `json:"quotation_number" validate:"required"`
	InternalNumber     int64           `json:"internal_number"`
	PostingDate        Date            `json:"posting_date"`
	CustomerCode       string          `json:"customer_code"`
	CustomerName       string          `json:"customer_name"`
	BPReferenceNo      string          `json:"bp_reference_no"`
	Salesman           string          `json:"salesman"`
	DocumentTotal      decimal.Decimal `json:"document_total"`
	VATSum             decimal.Decimal `json:"vat_sum"`
	TotalDiscount      decimal.Decimal `json:"total_discount"`
	RoundingDiffAmount decimal.Decimal `json:"rounding_diff_amount"`
	DiscountPercent    decimal.Decimal `json:"discount_percent"`
	Status             Status          `json:"status" validate:"oneof=O C"`
	BillTo             string          `json:"bill_to"`
	Remarks            string          `json:"remarks"`

	Lines []QuotationLine `json:"lines" validate:"dive"`
}

// QuotationLine is a line of a quotation.
type QuotationLine struct {
	LineNo      int             `json:"line_no" validate:"gte=1"`
	ItemNo      string          `json:"item_no"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	RowTotal    decimal.Decimal `json:"row_total"`
}

// Key returns the quotation number.
func (q Quotation) Key() string { return q.QuotationNumber }

// HeaderValues implements Record.
func (q Quotation) HeaderValues() []any {
	return []any{
		q.QuotationNumber, q.InternalNumber, q.PostingDate, q.CustomerCode, q.CustomerName,
		q.BPReferenceNo, q.Salesman, money(q.DocumentTotal), money(q.VATSum), money(q.TotalDiscount),
		money(q.RoundingDiffAmount), money(q.DiscountPercent), string(q.Status), q.BillTo, q.Remarks,
	}
}

// LineValues implements Record.
func (q Quotation) LineValues() [][]any {
	rows := make([][]any, 0, len(q.Lines))
	for _, l := range q.Lines {
		rows = append(rows, []any{l.LineNo, l.ItemNo, l.Description, l.Quantity, l.Price, l.RowTotal})
	}
	return rows
}
