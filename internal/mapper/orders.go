package mapper

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/sapsync/internal/documents"
	"github.com/odyssey-erp/sapsync/internal/sap"
)

// SalesOrder maps a raw sales order.
func (m *Mapper) SalesOrder(ctx context.Context, doc sap.Document) (documents.SalesOrder, error) {
	num, err := m.docNum(doc)
	if err != nil {
		return documents.SalesOrder{}, err
	}
	bp := partner(doc)
	order := documents.SalesOrder{
		SONumber:        num,
		InternalNumber:  doc.DocEntry.Int(),
		PostingDate:     m.date(doc.DocDate, "DocDate", num),
		CustomerCode:    firstNonEmpty(bp.CardCode.String(), doc.CardCode.String()),
		CustomerName:    firstNonEmpty(bp.CardName.String(), doc.CardName.String()),
		CustomerAddress: doc.Address.String(),
		CustomerPhone:   bp.Phone1.String(),
		VATNumber:       bp.FederalTaxID.String(),
		Salesman:        salesmanName(doc),
		BPReferenceNo:   firstNonEmpty(doc.NumAtCard.String(), doc.PurchaseOrderRef.String()),
		IsSAPPI:         bool(doc.ProformaInvoice),
		LPODate:         m.date(doc.LPODate, "U_Lpdate", num),
		DocTotal:        doc.DocTotal.Dec(),
		VATSum:          doc.VatSum.Dec(),
		TotalDiscount:   doc.TotalDiscount.Dec(),
		DiscountPercent: m.percent(doc.DiscountPercent, "DiscountPercent", num),
		Status:          m.status(doc.DocumentStatus, num),
		Remarks:         doc.Comments.String(),
		Lines:           make([]documents.SalesOrderLine, 0, len(doc.DocumentLines)),
	}
	order.DiscountDisplay = order.DiscountPercent.Round(1)

	rowSum, pendingSum := decimal.Zero, decimal.Zero
	for idx, raw := range doc.DocumentLines {
		code := raw.ItemCode.String()
		stock := m.cache.Stock(ctx, code)
		price := raw.Price.Dec()
		remaining := raw.RemainingOpenQuantity.Dec()
		line := documents.SalesOrderLine{
			LineNo:                lineNo(raw.LineNum, idx),
			ItemCode:              code,
			Description:           raw.ItemDescription.String(),
			Quantity:              raw.Quantity.Dec(),
			Price:                 price,
			LineTotal:             raw.LineTotal.Dec(),
			RowStatus:             rowStatus(raw.LineStatus),
			RemainingOpenQuantity: remaining,
			PendingAmount:         remaining.Mul(price),
			Manufacturer:          m.cache.Manufacturer(ctx, code),
			TotalAvailableStock:   stock.TotalAvailable,
			DipWarehouseStock:     stock.DipWarehouse,
		}
		rowSum = rowSum.Add(line.LineTotal)
		pendingSum = pendingSum.Add(line.PendingAmount)
		order.Lines = append(order.Lines, line)
	}
	order.RowTotalSum = rowSum
	order.PendingTotal = pendingTotal(pendingSum, order.DocTotal)
	return order, nil
}

// PurchaseOrder maps a raw purchase order.
func (m *Mapper) PurchaseOrder(_ context.Context, doc sap.Document) (documents.PurchaseOrder, error) {
	num, err := m.docNum(doc)
	if err != nil {
		return documents.PurchaseOrder{}, err
	}
	bp := partner(doc)
	order := documents.PurchaseOrder{
		PONumber:        num,
		InternalNumber:  doc.DocEntry.Int(),
		PostingDate:     m.date(doc.DocDate, "DocDate", num),
		DueDate:         m.date(doc.DocDueDate, "DocDueDate", num),
		SupplierCode:    firstNonEmpty(bp.CardCode.String(), doc.CardCode.String()),
		SupplierName:    firstNonEmpty(bp.CardName.String(), doc.CardName.String()),
		SupplierAddress: doc.Address.String(),
		SupplierPhone:   bp.Phone1.String(),
		BPReferenceNo:   doc.NumAtCard.String(),
		Buyer:           salesmanName(doc),
		DocTotal:        doc.DocTotal.Dec(),
		VATSum:          doc.VatSum.Dec(),
		TotalDiscount:   doc.TotalDiscount.Dec(),
		DiscountPercent: m.percent(doc.DiscountPercent, "DiscountPercent", num),
		Status:          m.status(doc.DocumentStatus, num),
		Remarks:         doc.Comments.String(),
		Lines:           make([]documents.PurchaseOrderLine, 0, len(doc.DocumentLines)),
	}

	rowSum, pendingSum := decimal.Zero, decimal.Zero
	for idx, raw := range doc.DocumentLines {
		price := raw.Price.Dec()
		remaining := raw.RemainingOpenQuantity.Dec()
		line := documents.PurchaseOrderLine{
			LineNo:                lineNo(raw.LineNum, idx),
			ItemCode:              raw.ItemCode.String(),
			Description:           raw.ItemDescription.String(),
			Quantity:              raw.Quantity.Dec(),
			Price:                 price,
			LineTotal:             raw.LineTotal.Dec(),
			RowStatus:             rowStatus(raw.LineStatus),
			RemainingOpenQuantity: remaining,
			PendingAmount:         remaining.Mul(price),
		}
		rowSum = rowSum.Add(line.LineTotal)
		pendingSum = pendingSum.Add(line.PendingAmount)
		order.Lines = append(order.Lines, line)
	}
	order.RowTotalSum = rowSum
	order.PendingTotal = pendingTotal(pendingSum, order.DocTotal)
	return order, nil
}

// Quotation maps a raw sales quotation.
func (m *Mapper) Quotation(_ context.Context, doc sap.Document) (documents.Quotation, error) {
	num, err := m.docNum(doc)
	if err != nil {
		return documents.Quotation{}, err
	}
	q := documents.Quotation{
		QuotationNumber:    num,
		InternalNumber:     doc.DocEntry.Int(),
		PostingDate:        m.date(doc.DocDate, "DocDate", num),
		CustomerCode:       doc.PartnerCode(),
		CustomerName:       doc.PartnerName(),
		BPReferenceNo:      doc.NumAtCard.String(),
		Salesman:           salesmanName(doc),
		DocumentTotal:      doc.DocTotal.Dec(),
		VATSum:             doc.VatSum.Dec(),
		TotalDiscount:      doc.TotalDiscount.Dec(),
		RoundingDiffAmount: doc.RoundingDiffAmount.Dec(),
		DiscountPercent:    m.percent(doc.DiscountPercent, "DiscountPercent", num),
		Status:             m.status(doc.DocumentStatus, num),
		BillTo:             doc.Address.String(),
		Remarks:            doc.Comments.String(),
		Lines:              make([]documents.QuotationLine, 0, len(doc.DocumentLines)),
	}
	for idx, raw := range doc.DocumentLines {
		q.Lines = append(q.Lines, documents.QuotationLine{
			LineNo:      lineNo(raw.LineNum, idx),
			ItemNo:      raw.ItemCode.String(),
			Description: raw.ItemDescription.String(),
			Quantity:    raw.Quantity.Dec(),
			Price:       raw.Price.Dec(),
			RowTotal:    raw.LineTotal.Dec(),
		})
	}
	return q, nil
}
