package documents

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSAPStatus(t *testing.T) {
	cases := map[string]struct {
		want  Status
		known bool
	}{
		"bost_Open":      {StatusOpen, true},
		"bost_Close":     {StatusClosed, true},
		"bost_Paid":      {StatusClosed, true},
		"bost_Delivered": {StatusClosed, true},
		"":               {StatusClosed, false},
		"bost_Whatever":  {StatusClosed, false},
	}
	for raw, tc := range cases {
		got, known := ParseSAPStatus(raw)
		assert.Equal(t, tc.want, got, raw)
		assert.Equal(t, tc.known, known, raw)
	}
}

func TestStatusCloseIsIdempotent(t *testing.T) {
	assert.Equal(t, StatusClosed, StatusOpen.Close())
	assert.Equal(t, StatusClosed, StatusClosed.Close())
	assert.True(t, StatusOpen.IsOpen())
	assert.False(t, Status("X").Valid())
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("sales-orders")
	require.NoError(t, err)
	assert.Equal(t, KindSalesOrder, k)

	k, err = ParseKind("ARInvoice")
	require.NoError(t, err)
	assert.Equal(t, KindARInvoice, k)

	_, err = ParseKind("deliveries")
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestKindPayloadKeys(t *testing.T) {
	assert.Equal(t, "salesorders", KindSalesOrder.PayloadKey())
	assert.Equal(t, "purchase_orders", KindPurchaseOrder.PayloadKey())
	assert.Equal(t, "invoices", KindARInvoice.PayloadKey())
	assert.Equal(t, "creditmemos", KindARCreditMemo.PayloadKey())
	assert.False(t, KindARInvoice.Closable())
	assert.True(t, KindQuotation.Closable())
}

func TestDateJSON(t *testing.T) {
	d := NewDate(time.Date(2024, 3, 5, 17, 4, 0, 0, time.UTC))
	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `"2024-03-05"`, string(data))

	var empty Date
	data, err = json.Marshal(empty)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
	assert.Nil(t, empty.Value())

	var parsed Date
	require.NoError(t, json.Unmarshal([]byte(`"2024-03-05"`), &parsed))
	assert.True(t, parsed.Valid())
	assert.Equal(t, "2024-03-05", parsed.String())

	require.Error(t, json.Unmarshal([]byte(`"05/03/2024"`), &parsed))
}

func TestRecordsMatchTableColumns(t *testing.T) {
	id := int64(7)
	records := map[Kind]Record{
		KindSalesOrder:    SalesOrder{SONumber: "1", Lines: []SalesOrderLine{{LineNo: 1}}},
		KindPurchaseOrder: PurchaseOrder{PONumber: "1", Lines: []PurchaseOrderLine{{LineNo: 1}}},
		KindQuotation:     Quotation{QuotationNumber: "1", Lines: []QuotationLine{{LineNo: 1}}},
		KindARInvoice:     ARInvoice{ARDocument{Number: "1", Lines: []ARLine{{LineNo: 1, ItemID: &id}}}},
		KindARCreditMemo:  ARCreditMemo{ARDocument{Number: "1", Lines: []ARLine{{LineNo: 1}}}},
	}
	for kind, rec := range records {
		table, ok := TableFor(kind)
		require.True(t, ok, kind)
		assert.Len(t, rec.HeaderValues(), len(table.HeaderColumns), kind)
		assert.Equal(t, table.KeyColumn, table.HeaderColumns[0], kind)
		for _, row := range rec.LineValues() {
			assert.Len(t, row, len(table.LineColumns), kind)
		}
	}
}

func TestHeaderMoneyRoundedToCents(t *testing.T) {
	so := SalesOrder{SONumber: "9", DocTotal: decimal.RequireFromString("10.005")}
	table, _ := TableFor(KindSalesOrder)
	values := so.HeaderValues()
	for i, col := range table.HeaderColumns {
		if col == "doc_total" {
			assert.True(t, decimal.RequireFromString("10.01").Equal(values[i].(decimal.Decimal)))
		}
	}
}
