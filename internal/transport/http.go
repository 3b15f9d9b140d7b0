// Package transport provides a minimal, plain net/http implementation
// of grants.Fetcher so cmd/grantsauth can run end to end without a
// host wiring in its own upstream client. The grants-provider HTTP
// client is an out-of-scope external collaborator per spec.md §6; this
// is a demo-grade stand-in, not a feature of the authorization core.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/juanfont/grantsauth/internal/grants"
)

// HTTPFetcher calls a fixed grants-provider endpoint with the
// principal's bearer token and decodes the JSON response body as the
// grants document.
type HTTPFetcher struct {
	Endpoint string
	Client   *http.Client
}

// NewHTTPFetcher returns an HTTPFetcher with a sane default client
// timeout.
func NewHTTPFetcher(endpoint string) *HTTPFetcher {
	return &HTTPFetcher{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

var _ grants.Fetcher = (*HTTPFetcher)(nil)

// FetchGrants implements grants.Fetcher.
func (f *HTTPFetcher) FetchGrants(ctx context.Context, rawToken string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+rawToken)
	req.Header.Set("Accept", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transport: reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &grants.HTTPStatusError{Status: resp.StatusCode, Message: string(body)}
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("transport: response body is not valid JSON")
	}

	return json.RawMessage(body), nil
}
