// Package oracle implements clients for the price, liquidity and gas
// data collaborators. Every client degrades to a static fallback when
// the upstream is unavailable, so callers always get a best-effort
// answer.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type httpBase struct {
	client  *http.Client
	baseURL string
}

func newHTTPBase(baseURL string, timeout time.Duration) httpBase {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return httpBase{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

func (b httpBase) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s status %d", path, resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
