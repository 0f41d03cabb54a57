package sap

import (
	"time"

	"github.com/odyssey-erp/sapsync/internal/documents"
)

// Filter is the JSON body posted to an endpoint.
type Filter map[string]any

// OpenFilter selects open documents.
func OpenFilter() Filter {
	return Filter{"DocumentStatus": documents.SAPStatusOpen}
}

// DateFilter selects documents posted on a single day.
func DateFilter(day time.Time) Filter {
	return Filter{"DocDate": day.Format(documents.DateLayout)}
}

// DocNumFilter selects a single document number.
func DocNumFilter(docNum string) Filter {
	return Filter{"DocNum": docNum}
}

// RangeFilter selects documents posted between from and to inclusive.
func RangeFilter(from, to time.Time) Filter {
	return Filter{"FromDate": from.Format(documents.DateLayout), "ToDate": to.Format(documents.DateLayout)}
}

// withPage copies the filter and adds pageNumber for pages after the first.
func (f Filter) withPage(page int) Filter {
	out := make(Filter, len(f)+1)
	for k, v := range f {
		out[k] = v
	}
	if page > 1 {
		out["pageNumber"] = page
	}
	return out
}
