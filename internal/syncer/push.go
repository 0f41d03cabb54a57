package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/odyssey-erp/sapsync/internal/documents"
)

// DefaultPushTimeout bounds one push request.
const DefaultPushTimeout = 300 * time.Second

// ErrPushRejected is returned when the receiver answers success=false.
var ErrPushRejected = errors.New("syncer: remote rejected batch")

// Metadata travels with a pushed batch as sync_metadata.
type Metadata struct {
	RunID    string    `json:"run_id,omitempty"`
	APICalls int       `json:"api_calls" validate:"gte=0"`
	DaysBack int       `json:"days_back" validate:"gte=0"`
	SyncTime time.Time `json:"sync_time"`
	FullSync bool      `json:"full_sync"`
}

// Response is the body returned by the receive endpoint.
type Response struct {
	Success   bool    `json:"success"`
	Stats     *Stats  `json:"stats,omitempty"`
	Error     *string `json:"error"`
	ErrorType string  `json:"error_type,omitempty"`
}

// Pusher delivers mapped documents to a remote receiver.
type Pusher interface {
	Push(ctx context.Context, kind documents.Kind, records []documents.Record, meta Metadata) (Stats, error)
}

// PushClient posts batches to `<base>/sync/<kind>/receive`.
type PushClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewPushClient constructs a PushClient.
func NewPushClient(baseURL, apiKey string, timeout time.Duration) *PushClient {
	if timeout <= 0 {
		timeout = DefaultPushTimeout
	}
	return &PushClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Push implements Pusher.
func (c *PushClient) Push(ctx context.Context, kind documents.Kind, records []documents.Record, meta Metadata) (Stats, error) {
	envelope := map[string]any{
		kind.PayloadKey(): records,
		"api_key":         c.apiKey,
		"sync_metadata":   meta,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return Stats{}, fmt.Errorf("syncer: encode push: %w", err)
	}
	url := fmt.Sprintf("%s/sync/%s/receive", c.baseURL, kind)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Stats{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Stats{}, fmt.Errorf("syncer: push %s: %w", kind, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Stats{}, fmt.Errorf("syncer: read push response: %w", err)
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return Stats{}, fmt.Errorf("syncer: push %s: status %d: %s", kind, resp.StatusCode, truncateBody(raw))
	}
	if !out.Success {
		msg := fmt.Sprintf("status %d", resp.StatusCode)
		if out.Error != nil {
			msg = *out.Error
		}
		return Stats{}, fmt.Errorf("%w: %s", ErrPushRejected, msg)
	}
	if out.Stats == nil {
		return Stats{}, nil
	}
	return *out.Stats, nil
}

func truncateBody(raw []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(raw))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
