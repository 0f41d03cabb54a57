// Package sap talks to the SAP Business One integration API.
package sap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/odyssey-erp/sapsync/internal/documents"
)

// Endpoint is a resource path below the integration API base URL.
type Endpoint string

const (
	EndpointSalesOrder     Endpoint = "SalesOrder"
	EndpointPurchaseOrder  Endpoint = "PurchaseOrder"
	EndpointQuotation      Endpoint = "SalesQuotations"
	EndpointARInvoice      Endpoint = "ARInvoice"
	EndpointARCreditMemo   Endpoint = "ARCreditMemo"
	EndpointFinanceSummary Endpoint = "FinanceSummary"
)

const (
	// PageSize is the fixed number of records SAP returns per page.
	PageSize = 20
	// DefaultTimeout bounds each API read.
	DefaultTimeout = 30 * time.Second

	maxErrorBody = 512
)

// EndpointFor returns the endpoint serving a document kind.
func EndpointFor(kind documents.Kind) (Endpoint, error) {
	switch kind {
	case documents.KindSalesOrder:
		return EndpointSalesOrder, nil
	case documents.KindPurchaseOrder:
		return EndpointPurchaseOrder, nil
	case documents.KindQuotation:
		return EndpointQuotation, nil
	case documents.KindARInvoice:
		return EndpointARInvoice, nil
	case documents.KindARCreditMemo:
		return EndpointARCreditMemo, nil
	default:
		return "", fmt.Errorf("%w: %q", documents.ErrUnknownKind, kind)
	}
}

// Client issues filtered, paginated POST requests against the integration API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient constructs a Client. A non-positive timeout falls back to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// post sends one page request and returns the raw body.
func (c *Client) post(ctx context.Context, endpoint Endpoint, filter Filter, page int) ([]byte, error) {
	payload := filter.withPage(page)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("sap: encode filter: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+string(endpoint), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sap: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(data))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &StatusError{Endpoint: endpoint, Code: resp.StatusCode, Body: snippet}
	}
	return data, nil
}

type pageEnvelope[T any] struct {
	Value []T    `json:"value"`
	Count Number `json:"odata.count"`
}

// decodePage accepts either {"value": [...], "odata.count": n} or a bare array.
// The boolean is false when the body has neither shape.
func decodePage[T any](data []byte) ([]T, int, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, 0, false
	}
	switch trimmed[0] {
	case '{':
		var env pageEnvelope[T]
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, 0, false
		}
		return env.Value, int(env.Count.Int()), true
	case '[':
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, 0, false
		}
		return items, len(items), true
	default:
		return nil, 0, false
	}
}
