package sheet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// The range API is the system of record; judgments derived from it are never
// written back. Fetches are rate-limited upstream, which is why callers sit
// behind the aggregation cache.

var (
	// ErrSourceUnavailable wraps auth and network failures talking to the
	// range API.
	ErrSourceUnavailable = errors.New("sheet: source unavailable")
	// ErrRangeNotFound is returned for a missing source or named range.
	ErrRangeNotFound = errors.New("sheet: range not found")
)

// Fetcher is the narrow capability the engine consumes: ordered rows of text
// cells for a named range of a named source.
type Fetcher interface {
	FetchRange(ctx context.Context, sourceID, rangeSpec string) ([][]string, error)
}

type Client struct {
	host       string
	apiKey     string
	httpClient *http.Client
}

func NewClient(httpClient *http.Client, host, apiKey string) *Client {
	host = strings.TrimRight(host, "/")
	return &Client{
		host:       host,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

type rangeResponse struct {
	Range  string     `json:"range"`
	Values [][]string `json:"values"`
}

// FetchRange returns the raw cell grid for rangeSpec in sourceID. Rows keep
// their upstream order; cells are untyped text for the normalizer to coerce.
func (c *Client) FetchRange(ctx context.Context, sourceID, rangeSpec string) ([][]string, error) {
	if sourceID == "" {
		return nil, fmt.Errorf("%w: source id is required", ErrRangeNotFound)
	}
	path := fmt.Sprintf("/v1/sources/%s/values/%s", url.PathEscape(sourceID), url.PathEscape(rangeSpec))
	body, err := c.doRequest(ctx, path)
	if err != nil {
		return nil, err
	}
	var out rangeResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSourceUnavailable, err)
	}
	return out.Values, nil
}

func (c *Client) doRequest(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrSourceUnavailable, err)
	}
	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrRangeNotFound, strings.TrimSpace(string(body)))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: auth rejected (%d)", ErrSourceUnavailable, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: status %d: %s", ErrSourceUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}
}
