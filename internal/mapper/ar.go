package mapper

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/sapsync/internal/documents"
	"github.com/odyssey-erp/sapsync/internal/sap"
)

// ARInvoice maps a raw AR invoice. Cancellation invoices carry negated amounts.
func (m *Mapper) ARInvoice(ctx context.Context, doc sap.Document) (documents.ARInvoice, error) {
	sign := decimal.NewFromInt(1)
	if doc.CancelStatus.String() == documents.CancelStatusCancellation {
		sign = sign.Neg()
	}
	ar, err := m.arDocument(ctx, doc, sign, false)
	if err != nil {
		return documents.ARInvoice{}, err
	}
	return documents.ARInvoice{ARDocument: ar}, nil
}

// ARCreditMemo maps a raw AR credit memo. Credit memos are stored negative,
// quantities included; a cancelled credit memo flips back to positive.
func (m *Mapper) ARCreditMemo(ctx context.Context, doc sap.Document) (documents.ARCreditMemo, error) {
	sign := decimal.NewFromInt(-1)
	if doc.CancelStatus.String() == documents.CancelStatusCancellation {
		sign = sign.Neg()
	}
	ar, err := m.arDocument(ctx, doc, sign, true)
	if err != nil {
		return documents.ARCreditMemo{}, err
	}
	return documents.ARCreditMemo{ARDocument: ar}, nil
}

func (m *Mapper) arDocument(ctx context.Context, doc sap.Document, sign decimal.Decimal, signQuantity bool) (documents.ARDocument, error) {
	num, err := m.docNum(doc)
	if err != nil {
		return documents.ARDocument{}, err
	}
	bp := partner(doc)
	discount := m.percent(doc.DiscountPercent, "DiscountPercent", num)
	docTotal := doc.DocTotal.Dec()
	vatSum := doc.VatSum.Dec()

	ar := documents.ARDocument{
		Number:          num,
		InternalNumber:  doc.DocEntry.Int(),
		PostingDate:     m.date(doc.DocDate, "DocDate", num),
		DocDueDate:      m.date(doc.DocDueDate, "DocDueDate", num),
		CustomerCode:    doc.PartnerCode(),
		CustomerName:    doc.PartnerName(),
		CustomerAddress: doc.Address.String(),
		SalesmanName:    salesPerson(doc).SalesEmployeeName.String(),
		SalesmanCode:    salesmanCode(doc),
		Store:           DefaultStore,
		BPReferenceNo:   doc.NumAtCard.String(),
		DiscountPercent: discount,
		CancelStatus:    doc.CancelStatus.String(),
		DocumentStatus:  m.status(doc.DocumentStatus, num),
		VATNumber:       bp.FederalTaxID.String(),
		Comments:        doc.Comments.String(),
		Lines:           make([]documents.ARLine, 0, len(doc.DocumentLines)),
	}

	keep := hundred.Sub(discount).Div(hundred)
	subtotal, grossProfit := decimal.Zero, decimal.Zero
	for idx, raw := range doc.DocumentLines {
		code := raw.ItemCode.String()
		qty := raw.Quantity.Dec()
		lineTotal := raw.LineTotal.Dec()
		cost := raw.GrossBuyPrice.Dec()
		profit := raw.GrossProfit.Dec()
		if !raw.GrossProfit.Valid {
			profit = lineTotal.Sub(cost.Mul(qty))
		}
		subtotal = subtotal.Add(lineTotal)
		grossProfit = grossProfit.Add(profit)

		line := documents.ARLine{
			LineNo:                 lineNo(raw.LineNum, idx),
			ItemCode:               code,
			ItemDescription:        raw.ItemDescription.String(),
			Quantity:               qty,
			Price:                  raw.Price.Dec().Mul(sign),
			PriceAfterVAT:          raw.PriceAfterVAT.Dec().Mul(sign),
			DiscountPercent:        m.percent(raw.DiscountPercent, "DocumentLines.DiscountPercent", num),
			LineTotal:              lineTotal.Mul(sign),
			LineTotalAfterDiscount: lineTotal.Mul(keep).Round(4).Mul(sign),
			CostPrice:              cost.Mul(sign),
			GrossProfit:            profit.Mul(sign),
			TaxPercentage:          m.percent(raw.TaxPercentagePerRow, "DocumentLines.TaxPercentagePerRow", num),
			TaxTotal:               raw.TaxTotal.Dec().Mul(sign),
			UPCCode:                raw.BarCode.String(),
		}
		if signQuantity {
			line.Quantity = qty.Mul(sign)
		}
		if code != "" {
			id, ok, err := m.cache.EnsureItem(ctx, code, line.ItemDescription)
			if err != nil {
				return documents.ARDocument{}, fmt.Errorf("mapper: ensure item %s on %s: %w", code, num, err)
			}
			if ok {
				line.ItemID = &id
			}
		}
		ar.Lines = append(ar.Lines, line)
	}

	ar.DocTotal = docTotal.Mul(sign)
	ar.VATSum = vatSum.Mul(sign)
	ar.DocTotalWithoutVAT = docTotal.Sub(vatSum).Mul(sign)
	ar.SubtotalBeforeDiscount = subtotal.Mul(sign)
	ar.RoundingDiffAmount = doc.RoundingDiffAmount.Dec().Mul(sign)
	ar.TotalGrossProfit = grossProfit.Mul(sign)
	return ar, nil
}

func salesmanCode(doc sap.Document) string {
	if code := salesPerson(doc).SalesEmployeeCode; code.Valid {
		return code.Value.String()
	}
	if doc.SalesPersonCode.Valid {
		return doc.SalesPersonCode.Value.String()
	}
	return ""
}
