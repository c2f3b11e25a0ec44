package boxapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/antonvlasov/metapilot/internal/core/domain"
)

const (
	contentTypeJSON      = "application/json"
	contentTypeJSONPatch = "application/json-patch+json"
)

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any, operation string) error {
	return c.do(ctx, http.MethodPost, path, contentTypeJSON, payload, out, operation)
}

func (c *Client) putJSON(ctx context.Context, path, contentType string, payload any, out any, operation string) error {
	return c.do(ctx, http.MethodPut, path, contentType, payload, out, operation)
}

func (c *Client) getJSON(ctx context.Context, path string, out any, operation string) error {
	return c.do(ctx, http.MethodGet, path, "", nil, out, operation)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, payload any, out any, operation string) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", operation, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("box %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return mapHTTPError(operation, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

// mapHTTPError turns an error status into a typed error. A create that hits
// an existing metadata record must surface as a conflict kind so the caller
// can switch to the update path.
func mapHTTPError(operation string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	statusErr := &APIStatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(raw)),
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return domain.WrapError(domain.ErrUnauthorized, operation, statusErr)
	case resp.StatusCode == http.StatusNotFound:
		return domain.WrapError(domain.ErrNotFound, operation, statusErr)
	case resp.StatusCode == http.StatusConflict,
		strings.Contains(strings.ToLower(statusErr.Body), "already exists"):
		return domain.WrapError(domain.ErrConflict, operation, statusErr)
	default:
		return statusErr
	}
}
