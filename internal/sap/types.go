package sap

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Number is a lenient numeric field. Null, empty strings, malformed text and
// non-numeric JSON all decode to an invalid zero value instead of an error.
type Number struct {
	Value decimal.Decimal
	Valid bool
}

// Dec returns the value, zero when unset.
func (n Number) Dec() decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	return n.Value
}

// Int returns the integer part of the value.
func (n Number) Int() int64 {
	return n.Dec().IntPart()
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 {
		return nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		if d, err := decimal.NewFromString(s); err == nil {
			*n = Number{Value: d, Valid: true}
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		if d, err := decimal.NewFromString(string(raw)); err == nil {
			*n = Number{Value: d, Valid: true}
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(n.Value.String()), nil
}

// NewNumber builds a valid Number, mostly for fixtures.
func NewNumber(v string) Number {
	return Number{Value: decimal.RequireFromString(v), Valid: true}
}

// Text is a lenient string field. Numbers and booleans keep their literal text.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	*t = ""
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 {
		return nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			*t = Text(s)
		}
	case 'n', '{', '[':
	default:
		*t = Text(raw)
	}
	return nil
}

// String returns the trimmed text.
func (t Text) String() string {
	return strings.TrimSpace(string(t))
}

// Flag is a lenient boolean accepting SAP "Y"/"tYES" markers.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(data []byte) error {
	var t Text
	_ = t.UnmarshalJSON(data)
	switch strings.ToLower(t.String()) {
	case "y", "yes", "tyes", "true", "1":
		*f = true
	default:
		if b, err := strconv.ParseBool(t.String()); err == nil {
			*f = Flag(b)
			return nil
		}
		*f = false
	}
	return nil
}

// BusinessPartner is the nested counterparty block.
type BusinessPartner struct {
	CardCode     Text `json:"CardCode"`
	CardName     Text `json:"CardName"`
	FederalTaxID Text `json:"FederalTaxID"`
	Phone1       Text `json:"Phone1"`
}

// SalesPerson is the nested sales employee block.
type SalesPerson struct {
	SalesEmployeeCode Number `json:"SalesEmployeeCode"`
	SalesEmployeeName Text   `json:"SalesEmployeeName"`
}

// Document is the raw SAP document shared by every document endpoint.
type Document struct {
	DocNum             Text             `json:"DocNum"`
	DocEntry           Number           `json:"DocEntry"`
	DocDate            Text             `json:"DocDate"`
	DocDueDate         Text             `json:"DocDueDate"`
	CardCode           Text             `json:"CardCode"`
	CardName           Text             `json:"CardName"`
	Address            Text             `json:"Address"`
	NumAtCard          Text             `json:"NumAtCard"`
	PurchaseOrderRef   Text             `json:"U_PurchaseOrder"`
	ProformaInvoice    Flag             `json:"U_PROFORMAINVOICE"`
	LPODate            Text             `json:"U_Lpdate"`
	DocTotal           Number           `json:"DocTotal"`
	VatSum             Number           `json:"VatSum"`
	TotalDiscount      Number           `json:"TotalDiscount"`
	DiscountPercent    Number           `json:"DiscountPercent"`
	RoundingDiffAmount Number           `json:"RoundingDiffAmount"`
	DocumentStatus     Text             `json:"DocumentStatus"`
	CancelStatus       Text             `json:"CancelStatus"`
	Comments           Text             `json:"Comments"`
	SalesPersonCode    Number           `json:"SalesPersonCode"`
	SalesPerson        *SalesPerson     `json:"SalesPerson"`
	BusinessPartner    *BusinessPartner `json:"BusinessPartner"`
	DocumentLines      []Line           `json:"DocumentLines"`
}

// PartnerCode returns the counterparty code, preferring the top level field.
func (d Document) PartnerCode() string {
	if code := d.CardCode.String(); code != "" {
		return code
	}
	if d.BusinessPartner != nil {
		return d.BusinessPartner.CardCode.String()
	}
	return ""
}

// PartnerName returns the counterparty name, preferring the top level field.
func (d Document) PartnerName() string {
	if name := d.CardName.String(); name != "" {
		return name
	}
	if d.BusinessPartner != nil {
		return d.BusinessPartner.CardName.String()
	}
	return ""
}

// Line is a raw SAP document line.
type Line struct {
	LineNum               Number `json:"LineNum"`
	ItemCode              Text   `json:"ItemCode"`
	ItemDescription       Text   `json:"ItemDescription"`
	Quantity              Number `json:"Quantity"`
	Price                 Number `json:"Price"`
	PriceAfterVAT         Number `json:"PriceAfterVAT"`
	DiscountPercent       Number `json:"DiscountPercent"`
	LineTotal             Number `json:"LineTotal"`
	LineStatus            Text   `json:"LineStatus"`
	RemainingOpenQuantity Number `json:"RemainingOpenQuantity"`
	GrossBuyPrice         Number `json:"GrossBuyPrice"`
	GrossProfit           Number `json:"GrossProfit"`
	TaxPercentagePerRow   Number `json:"TaxPercentagePerRow"`
	TaxTotal              Number `json:"TaxTotal"`
	BarCode               Text   `json:"BarCode"`
}

// FinanceRecord is one customer row of the FinanceSummary endpoint.
type FinanceRecord struct {
	CardCode      Text   `json:"CardCode"`
	CardName      Text   `json:"CardName"`
	SalesEmployee Text   `json:"Sales Employee"`
	CreditLimit   Number `json:"CreditLimit"`
	CreditDays    Number `json:"CreditDays"`
	Month1        Number `json:"1"`
	Month2        Number `json:"2"`
	Month3        Number `json:"3"`
	Month4        Number `json:"4"`
	Month5        Number `json:"5"`
	Month6        Number `json:"6"`
	Older         Number `json:"6+"`
	BalanceDue    Number `json:"BalanceDue"`
	ChecksBal     Number `json:"ChecksBal"`
}
