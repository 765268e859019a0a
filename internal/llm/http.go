package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// httpClient is shared by every concrete provider; providers differ only
// in base URL, auth header, and wire-format translation.
var httpClient = &http.Client{Timeout: 120 * time.Second}

// PostJSON issues a POST with body marshaled as JSON and headers applied,
// returning the raw *http.Response for the caller to decode or stream.
// The caller owns resp.Body and must close it. Shared by every concrete
// provider package so each only carries its own wire-format translation.
func PostJSON(ctx context.Context, url string, body any, headers map[string]string) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return nil, fmt.Errorf("provider returned %s: %s", resp.Status, string(data))
	}
	return resp, nil
}
