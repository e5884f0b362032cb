package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxErrorBody bounds how much of an error body ends up in a job message.
const maxErrorBody = 300

// postJSON sends body with progress reporting and returns the status and
// response body. Transport failures and timeouts become ErrNetwork; a
// cancelled ctx is returned as ctx.Err().
func postJSON(ctx context.Context, client *http.Client, timeout time.Duration, url string, headers map[string]string, body []byte, onProgress ProgressFunc) (int, []byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pr := newProgressReader(bytes.NewReader(body), int64(len(body)), onProgress)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, pr)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return do(ctx, client, req)
}

func get(ctx context.Context, client *http.Client, timeout time.Duration, url string, headers map[string]string) (int, []byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return do(ctx, client, req)
}

func do(ctx context.Context, client *http.Client, req *http.Request) (int, []byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}
		return 0, nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}
		return 0, nil, fmt.Errorf("%w: read response: %v", ErrNetwork, err)
	}
	return resp.StatusCode, data, nil
}

func truncate(b []byte) string {
	s := string(bytes.TrimSpace(b))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	if s == "" {
		return "No body"
	}
	return s
}
