package documents

// Table describes how a document kind is laid out in PostgreSQL.
type Table struct {
	Kind          Kind
	Name          string
	LineName      string
	KeyColumn     string
	ParentColumn  string
	StatusColumn  string
	HeaderColumns []string
	LineColumns   []string
}

// Closable reports whether the closure pass applies to the table.
func (t Table) Closable() bool {
	return t.StatusColumn != "" && t.Kind.Closable()
}

// Record is a normalized document ready for reconciliation. HeaderValues is
// aligned with Table.HeaderColumns and each LineValues row with Table.LineColumns.
type Record interface {
	Key() string
	HeaderValues() []any
	LineValues() [][]any
}

// TableFor returns the table descriptor for a kind.
func TableFor(kind Kind) (Table, bool) {
	t, ok := tables[kind]
	return t, ok
}

var tables = map[Kind]Table{
	KindSalesOrder: {
		Kind:         KindSalesOrder,
		Name:         "sap_sales_orders",
		LineName:     "sap_sales_order_lines",
		KeyColumn:    "so_number",
		ParentColumn: "sales_order_id",
		StatusColumn: "status",
		HeaderColumns: []string{
			"so_number", "internal_number", "posting_date", "customer_code", "customer_name",
			"customer_address", "customer_phone", "vat_number", "salesman", "bp_reference_no",
			"is_sap_pi", "lpo_date", "doc_total", "vat_sum", "total_discount", "discount_percent",
			"discount_percent_display", "row_total_sum", "pending_total", "status", "remarks",
		},
		LineColumns: []string{
			"line_no", "item_code", "description", "quantity", "price", "line_total", "row_status",
			"remaining_open_quantity", "pending_amount", "manufacturer", "total_available_stock",
			"dip_warehouse_stock",
		},
	},
	KindPurchaseOrder: {
		Kind:         KindPurchaseOrder,
		Name:         "sap_purchase_orders",
		LineName:     "sap_purchase_order_lines",
		KeyColumn:    "po_number",
		ParentColumn: "purchase_order_id",
		StatusColumn: "status",
		HeaderColumns: []string{
			"po_number", "internal_number", "posting_date", "due_date", "supplier_code",
			"supplier_name", "supplier_address", "supplier_phone", "bp_reference_no", "buyer",
			"doc_total", "vat_sum", "total_discount", "discount_percent", "row_total_sum",
			"pending_total", "status", "remarks",
		},
		LineColumns: []string{
			"line_no", "item_code", "description", "quantity", "price", "line_total", "row_status",
			"remaining_open_quantity", "pending_amount",
		},
	},
	KindQuotation: {
		Kind:         KindQuotation,
		Name:         "sap_quotations",
		LineName:     "sap_quotation_lines",
		KeyColumn:    "quotation_number",
		ParentColumn: "quotation_id",
		StatusColumn: "status",
		HeaderColumns: []string{
			"quotation_number", "internal_number", "posting_date", "customer_code", "customer_name",
			"bp_reference_no", "salesman", "document_total", "vat_sum", "total_discount",
			"rounding_diff_amount", "discount_percent", "status", "bill_to", "remarks",
		},
		LineColumns: []string{
			"line_no", "item_no", "description", "quantity", "price", "row_total",
		},
	},
	KindARInvoice:    arTable(KindARInvoice, "sap_ar_invoices", "sap_ar_invoice_lines", "invoice_number", "invoice_id"),
	KindARCreditMemo: arTable(KindARCreditMemo, "sap_ar_credit_memos", "sap_ar_credit_memo_lines", "credit_memo_number", "credit_memo_id"),
}

func arTable(kind Kind, name, lineName, key, parent string) Table {
	return Table{
		Kind:         kind,
		Name:         name,
		LineName:     lineName,
		KeyColumn:    key,
		ParentColumn: parent,
		StatusColumn: "document_status",
		HeaderColumns: []string{
			key, "internal_number", "posting_date", "doc_due_date", "customer_code", "customer_name",
			"customer_address", "salesman_name", "salesman_code", "store", "bp_reference_no",
			"doc_total", "doc_total_without_vat", "subtotal_before_discount", "vat_sum",
			"rounding_diff_amount", "total_gross_profit", "discount_percent", "cancel_status",
			"document_status", "vat_number", "comments",
		},
		LineColumns: []string{
			"item_id", "line_no", "item_code", "item_description", "quantity", "price",
			"price_after_vat", "discount_percent", "line_total", "line_total_after_discount",
			"cost_price", "gross_profit", "tax_percentage", "tax_total", "upc_code",
		},
	}
}

// AsRecords widens a typed document slice to records.
func AsRecords[T Record](docs []T) []Record {
	out := make([]Record, len(docs))
	for i, d := range docs {
		out[i] = d
	}
	return out
}
