package datasource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// Fetcher retrieves the raw payload of a data source.
type Fetcher interface {
	Fetch(ctx context.Context, src schema.DataSource) (any, error)
}

// FetcherFunc adapts a function into a Fetcher.
type FetcherFunc func(ctx context.Context, src schema.DataSource) (any, error)

// Fetch delegates to the underlying function.
func (fn FetcherFunc) Fetch(ctx context.Context, src schema.DataSource) (any, error) {
	return fn(ctx, src)
}

// HTTPFetcher issues the declared request and decodes a JSON response. GET
// and DELETE requests carry params in the query string; other methods send
// them as a JSON body.
type HTTPFetcher struct {
	Client  *http.Client
	Timeout time.Duration
}

// NewHTTPFetcher returns a fetcher using client, or http.DefaultClient.
func NewHTTPFetcher(client *http.Client, timeout time.Duration) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{Client: client, Timeout: timeout}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, src schema.DataSource) (any, error) {
	if strings.TrimSpace(src.URL) == "" {
		return nil, fmt.Errorf("datasource: %s: url is required", src.ID)
	}
	method := strings.ToUpper(strings.TrimSpace(src.Method))
	if method == "" {
		method = http.MethodGet
	}

	reqURL, err := url.Parse(src.URL)
	if err != nil {
		return nil, fmt.Errorf("datasource: %s: parse url: %w", src.ID, err)
	}

	var body io.Reader
	if method == http.MethodGet || method == http.MethodDelete {
		q := reqURL.Query()
		for k, v := range src.Params {
			q.Set(k, v)
		}
		reqURL.RawQuery = q.Encode()
	} else if len(src.Params) > 0 {
		raw, err := json.Marshal(src.Params)
		if err != nil {
			return nil, fmt.Errorf("datasource: %s: encode params: %w", src.ID, err)
		}
		body = bytes.NewReader(raw)
	}

	reqCtx := ctx
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, method, reqURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("datasource: %s: request: %w", src.ID, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range src.Headers {
		req.Header.Set(k, v)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("datasource: %s: do request: %w", src.ID, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("datasource: %s: unexpected status %d", src.ID, resp.StatusCode)
	}

	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("datasource: %s: decode: %w", src.ID, err)
	}
	return payload, nil
}
