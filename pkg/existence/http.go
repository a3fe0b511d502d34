package existence

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"navguard/pkg/domain"
	"navguard/pkg/serrors"
	"strings"
)

const maxErrorBody = 512

// HTTPChecker answers existence checks against the hosted backend's REST
// interface, one table per listing type. It is safe for concurrent use.
type HTTPChecker struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

var _ Checker = (*HTTPChecker)(nil)

// NewHTTPChecker constructs an HTTPChecker for the backend at baseURL.
func NewHTTPChecker(httpClient *http.Client, baseURL string, apiKey string) *HTTPChecker {
	return &HTTPChecker{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// Exists selects the id column of the row with the given id. An empty result
// set means the listing does not exist.
func (c *HTTPChecker) Exists(ctx context.Context, id string, t domain.ListingType) (bool, error) {
	if !t.Valid() {
		return false, serrors.With(serrors.ErrBadRequest, "unknown listing type %q", t)
	}

	q := url.Values{}
	q.Set("id", "eq."+id)
	q.Set("select", "id")
	endpoint := c.baseURL + "/rest/v1/" + t.Table() + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("could not send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		return false, serrors.With(serrors.ErrRateLimited, "rate limited by listing backend")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return false, fmt.Errorf("listing lookup failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var rows []struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return false, fmt.Errorf("could not decode response: %w", err)
	}

	return len(rows) > 0, nil
}
