package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/sapsync/internal/documents"
	"github.com/odyssey-erp/sapsync/internal/mapper"
	"github.com/odyssey-erp/sapsync/internal/sap"
)

type mapped struct {
	records     []documents.Record
	salesOrders []documents.SalesOrder
}

// mapDocuments converts raw documents of kind. Documents that fail to map or
// validate are reported in stats and left out; only context errors abort.
func (s *Service) mapDocuments(ctx context.Context, m *mapper.Mapper, kind documents.Kind, docs []sap.Document, stats *Stats) (mapped, error) {
	var out mapped
	var err error
	switch kind {
	case documents.KindSalesOrder:
		out.salesOrders, err = mapEach(ctx, s.validator, docs, m.SalesOrder, stats)
		out.records = documents.AsRecords(out.salesOrders)
	case documents.KindPurchaseOrder:
		var orders []documents.PurchaseOrder
		orders, err = mapEach(ctx, s.validator, docs, m.PurchaseOrder, stats)
		out.records = documents.AsRecords(orders)
	case documents.KindQuotation:
		var quotes []documents.Quotation
		quotes, err = mapEach(ctx, s.validator, docs, m.Quotation, stats)
		out.records = documents.AsRecords(quotes)
	case documents.KindARInvoice:
		var invoices []documents.ARInvoice
		invoices, err = mapEach(ctx, s.validator, docs, m.ARInvoice, stats)
		out.records = documents.AsRecords(invoices)
	case documents.KindARCreditMemo:
		var memos []documents.ARCreditMemo
		memos, err = mapEach(ctx, s.validator, docs, m.ARCreditMemo, stats)
		out.records = documents.AsRecords(memos)
	default:
		return out, documents.ErrUnknownKind
	}
	return out, err
}

func mapEach[T documents.Record](ctx context.Context, v *validator.Validate, docs []sap.Document, fn func(context.Context, sap.Document) (T, error), stats *Stats) ([]T, error) {
	out := make([]T, 0, len(docs))
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := fn(ctx, doc)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			stats.addError("document %s: %v", docLabel(doc, i), err)
			continue
		}
		if err := validateRecord(v, rec); err != nil {
			stats.addError("document %s: %v", rec.Key(), err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func validateRecord(v *validator.Validate, rec documents.Record) error {
	if err := v.Struct(rec); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fmt.Errorf("invalid field %s (%s)", fieldErrs[0].Namespace(), fieldErrs[0].Tag())
		}
		return err
	}
	return nil
}

func docLabel(doc sap.Document, idx int) string {
	if num := doc.DocNum.String(); num != "" {
		return num
	}
	return fmt.Sprintf("#%d", idx+1)
}
