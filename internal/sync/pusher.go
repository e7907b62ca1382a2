package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sahayak-health/sahayak/internal/record"
)

// HTTPPusher pushes records to the remote as JSON over HTTP.
type HTTPPusher struct {
	baseURL string
	client  *http.Client
}

var _ Pusher = (*HTTPPusher)(nil)

func NewHTTPPusher(baseURL string, timeout time.Duration) *HTTPPusher {
	return &HTTPPusher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Online probes the remote's liveness endpoint with a short bounded wait.
func (p *HTTPPusher) Online(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, p.baseURL+"/health/live", nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (p *HTTPPusher) Push(ctx context.Context, collection record.Collection, rec any) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", collection, err)
	}

	url := fmt.Sprintf("%s/records/%s", p.baseURL, collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("push %s record: %w", collection, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("remote rejected %s record: status %d", collection, resp.StatusCode)
	}
	return nil
}
