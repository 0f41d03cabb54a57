package documents

import "github.com/shopspring/decimal"

// SalesOrder is a normalized SAP sales order.
type SalesOrder struct {
	SONumber        string          `json:"so_number" validate:"required"`
	InternalNumber  int64           `json:"internal_number"`
	PostingDate     Date            `json:"posting_date"`
	CustomerCode    string          `json:"customer_code"`
	CustomerName    string          `json:"customer_name"`
	CustomerAddress string          `json:"customer_address"`
	CustomerPhone   string          `json:"customer_phone"`
	VATNumber       string          `json:"vat_number"`
	Salesman        string          `json:"salesman"`
	BPReferenceNo   string          `json:"bp_reference_no"`
	IsSAPPI         bool            `json:"is_sap_pi"`
	LPODate         Date            `json:"lpo_date"`
	DocTotal        decimal.Decimal `json:"doc_total"`
	VATSum          decimal.Decimal `json:"vat_sum"`
	TotalDiscount   decimal.Decimal `json:"total_discount"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	// DiscountDisplay is DiscountPercent rounded to one decimal for listings.
	DiscountDisplay decimal.Decimal `json:"discount_percent_display"`
	RowTotalSum     decimal.Decimal `json:"row_total_sum"`
	PendingTotal    decimal.Decimal `json:"pending_total"`
	Status          Status          `json:"status" validate:"oneof=O C"`
	Remarks         string          `json:"remarks"`

	Lines []SalesOrderLine `json:"lines" validate:"dive"`
}

// SalesOrderLine is a line of a sales order.
type SalesOrderLine struct {
	LineNo                int             `json:"line_no" validate:"gte=1"`
	ItemCode              string          `json:"item_code"`
	Description           string          `json:"description"`
	Quantity              decimal.Decimal `json:"quantity"`
	Price                 decimal.Decimal `json:"price"`
	LineTotal             decimal.Decimal `json:"line_total"`
	RowStatus             string          `json:"row_status"`
	RemainingOpenQuantity decimal.Decimal `json:"remaining_open_quantity"`
	PendingAmount         decimal.Decimal `json:"pending_amount"`
	Manufacturer          string          `json:"manufacturer"`
	TotalAvailableStock   decimal.Decimal `json:"total_available_stock"`
	DipWarehouseStock     decimal.Decimal `json:"dip_warehouse_stock"`
}

// Key returns the SO number.
func (o SalesOrder) Key() string { return o.SONumber }

// HeaderValues implements Record.
func (o SalesOrder) HeaderValues() []any {
	return []any{
		o.SONumber, o.InternalNumber, o.PostingDate, o.CustomerCode, o.CustomerName,
		o.CustomerAddress, o.CustomerPhone, o.VATNumber, o.Salesman, o.BPReferenceNo,
		o.IsSAPPI, o.LPODate, money(o.DocTotal), money(o.VATSum), money(o.TotalDiscount),
		money(o.DiscountPercent), o.DiscountDisplay.Round(1), money(o.RowTotalSum), money(o.PendingTotal), string(o.Status), o.Remarks,
	}
}

// LineValues implements Record.
func (o SalesOrder) LineValues() [][]any {
	rows := make([][]any, 0, len(o.Lines))
	for _, l := range o.Lines {
		rows = append(rows, []any{
			l.LineNo, l.ItemCode, l.Description, l.Quantity, l.Price, l.LineTotal, l.RowStatus,
			l.RemainingOpenQuantity, l.PendingAmount, l.Manufacturer, l.TotalAvailableStock,
			l.DipWarehouseStock,
		})
	}
	return rows
}

// money rounds header amounts to cents for storage.
func money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
