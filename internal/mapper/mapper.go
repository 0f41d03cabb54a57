// Package mapper normalizes raw SAP documents into persisted document rows.
package mapper

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/sapsync/internal/catalog"
	"github.com/odyssey-erp/sapsync/internal/documents"
	"github.com/odyssey-erp/sapsync/internal/sap"
)

// DefaultStore is the store code stamped on AR documents.
const DefaultStore = "HO"

// ErrMissingDocNum is returned for documents without a document number.
var ErrMissingDocNum = errors.New("mapper: document has no DocNum")

var (
	percentLimit = decimal.RequireFromString("999.99")
	hundred      = decimal.NewFromInt(100)
	dateLayouts  = []string{"2006-01-02", "2006/01/02"}
)

// Warnings counts recoverable anomalies seen while mapping.
type Warnings struct {
	UnknownStatus   int `json:"unknown_status"`
	BadDates        int `json:"bad_dates"`
	ClampedPercents int `json:"clamped_percents"`
}

// Mapper converts sap.Document values. A Mapper belongs to one sync run.
type Mapper struct {
	cache    *catalog.Cache
	logger   *slog.Logger
	warnings Warnings
}

// New returns a Mapper backed by the run's item cache. cache may be nil when
// no local catalog is available; lookups then resolve to empty values.
func New(cache *catalog.Cache, logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{cache: cache, logger: logger}
}

// Warnings returns the anomaly counters accumulated so far.
func (m *Mapper) Warnings() Warnings {
	return m.warnings
}

// Preload warms the item cache for every line of docs.
func (m *Mapper) Preload(ctx context.Context, docs []sap.Document) {
	if m.cache == nil {
		return
	}
	codes := make([]string, 0, len(docs)*4)
	for _, doc := range docs {
		for _, line := range doc.DocumentLines {
			if code := line.ItemCode.String(); code != "" {
				codes = append(codes, code)
			}
		}
	}
	m.cache.Load(ctx, codes)
}

func (m *Mapper) docNum(doc sap.Document) (string, error) {
	num := doc.DocNum.String()
	if num == "" {
		return "", ErrMissingDocNum
	}
	return num, nil
}

// date parses YYYY-MM-DD or YYYY/MM/DD, ignoring a trailing time component.
func (m *Mapper) date(raw sap.Text, field, docNum string) documents.Date {
	s := raw.String()
	if s == "" {
		return documents.Date{}
	}
	if len(s) > 10 && (s[10] == 'T' || s[10] == ' ') {
		s = s[:10]
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return documents.NewDate(t)
		}
	}
	m.warnings.BadDates++
	m.logger.Warn("unparseable date", slog.String("doc_num", docNum), slog.String("field", field), slog.String("value", raw.String()))
	return documents.Date{}
}

// percent clamps a percentage into the storable range.
func (m *Mapper) percent(n sap.Number, field, docNum string) decimal.Decimal {
	v := n.Dec()
	if v.GreaterThan(percentLimit) || v.LessThan(percentLimit.Neg()) {
		m.warnings.ClampedPercents++
		m.logger.Warn("percentage out of range, clamping",
			slog.String("doc_num", docNum), slog.String("field", field), slog.String("value", v.String()))
		if v.IsNegative() {
			return percentLimit.Neg()
		}
		return percentLimit
	}
	return v
}

// status maps DocumentStatus; unknown literals close the document and are counted.
func (m *Mapper) status(raw sap.Text, docNum string) documents.Status {
	status, known := documents.ParseSAPStatus(raw.String())
	if !known {
		m.warnings.UnknownStatus++
		m.logger.Warn("unknown document status, treating as closed",
			slog.String("doc_num", docNum), slog.String("status", raw.String()))
	}
	return status
}

// lineNo converts SAP's 0-based LineNum to a 1-based line number.
func lineNo(n sap.Number, idx int) int {
	if n.Valid && !n.Value.IsNegative() {
		return int(n.Int()) + 1
	}
	return idx + 1
}

func rowStatus(raw sap.Text) string {
	status, _ := documents.ParseSAPStatus(raw.String())
	return string(status)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func partner(doc sap.Document) sap.BusinessPartner {
	if doc.BusinessPartner == nil {
		return sap.BusinessPartner{}
	}
	return *doc.BusinessPartner
}

func salesPerson(doc sap.Document) sap.SalesPerson {
	if doc.SalesPerson == nil {
		return sap.SalesPerson{}
	}
	return *doc.SalesPerson
}

// salesmanName prefers the nested employee name over the bare code.
func salesmanName(doc sap.Document) string {
	name := salesPerson(doc).SalesEmployeeName.String()
	if name != "" {
		return name
	}
	if doc.SalesPersonCode.Valid {
		return doc.SalesPersonCode.Value.String()
	}
	return ""
}

// pendingTotal falls back to the document total when no open amount remains.
func pendingTotal(sum, docTotal decimal.Decimal) decimal.Decimal {
	if sum.IsZero() {
		return docTotal
	}
	return sum
}
