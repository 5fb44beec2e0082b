package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"

	"github.com/starford/vaultlens/internal/apperr"
)

const maxErrorBody = 512

// postJSON sends body to url and decodes a 2xx response into out.
// Non-2xx statuses are classified into provider error kinds.
func postJSON(ctx context.Context, client *http.Client, url string, header http.Header, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("embedding: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("embedding: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		// The URL may carry credentials; report the cause only.
		var ue *neturl.Error
		if errors.As(err, &ue) {
			return fmt.Errorf("embedding: %s: %v: %w", ue.Op, ue.Err, apperr.ErrNetwork)
		}
		return fmt.Errorf("embedding: %v: %w", err, apperr.ErrNetwork)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return statusError(resp.StatusCode, bytes.TrimSpace(msg))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("embedding: decode response: %v: %w", err, apperr.ErrNetwork)
	}
	return nil
}

func statusError(code int, body []byte) error {
	var kind error
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		kind = apperr.ErrAuth
	case code == http.StatusTooManyRequests:
		kind = apperr.ErrRateLimit
	default:
		kind = apperr.ErrNetwork
	}
	return fmt.Errorf("embedding: status %d: %s: %w", code, body, kind)
}
