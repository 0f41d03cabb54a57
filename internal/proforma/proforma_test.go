package proforma

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/sapsync/internal/documents"
)

func TestFromOrdersKeepsFlaggedOrders(t *testing.T) {
	lpo := documents.NewDate(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	orders := []documents.SalesOrder{
		{SONumber: "100", IsSAPPI: true, LPODate: lpo},
		{SONumber: "101"},
		{SONumber: " ", IsSAPPI: true},
		{SONumber: "102", IsSAPPI: true},
		{SONumber: "100", IsSAPPI: true},
	}

	got := FromOrders(orders)
	require.Len(t, got, 2)
	assert.Equal(t, "100", got[0].Number)
	assert.Equal(t, "100-SAP", got[0].Legacy)
	assert.False(t, got[0].LPODate.Valid(), "later duplicate wins")
	assert.Equal(t, "102", got[1].SONumber)
}

func TestNumbers(t *testing.T) {
	assert.Equal(t, "5001", Number(" 5001 "))
	assert.Equal(t, "5001-SAP", LegacyNumber("5001"))
}

func TestFromOrdersEmpty(t *testing.T) {
	assert.Empty(t, FromOrders(nil))
	assert.Empty(t, FromOrders([]documents.SalesOrder{{SONumber: "1"}}))
}
