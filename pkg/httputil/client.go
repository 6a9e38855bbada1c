package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/veldran/nexpr/pkg/cache"
	"github.com/veldran/nexpr/pkg/observability"
)

const httpTimeout = 10 * time.Second

var (
	// ErrNotFound is returned when the remote resource doesn't exist (404).
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors,
	// 5xx responses).
	ErrNetwork = errors.New("network error")
)

// Client is a small caching GET client used by the web/* operation kinds.
// It handles response caching, retry logic, and default request headers.
type Client struct {
	http    *http.Client
	cache   cache.Cache
	ttl     time.Duration
	headers map[string]string
}

// NewHTTPClient creates an HTTP client with a standard timeout for plugin
// requests.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// NewClient creates a Client backed by the given cache. Responses are
// stored under a "web" namespace with the given TTL; pass a
// [cache.NullCache] to disable caching. Headers, if non-nil, are applied
// to every request made through this client.
func NewClient(c cache.Cache, ttl time.Duration, headers map[string]string) *Client {
	return &Client{
		http:    NewHTTPClient(),
		cache:   c,
		ttl:     ttl,
		headers: headers,
	}
}

// GetText performs a cached HTTP GET and returns the response body as a
// string. Cache hits skip the network entirely; misses fetch with retry
// and store the body on success.
func (c *Client) GetText(ctx context.Context, rawURL string) (string, error) {
	key := cache.Key("web", rawURL)
	if data, ok, _ := c.cache.Get(ctx, key); ok {
		return string(data), nil
	}

	var body []byte
	err := RetryWithBackoff(ctx, func() error {
		data, err := c.fetch(ctx, rawURL)
		if err != nil {
			return err
		}
		body = data
		return nil
	})
	if err != nil {
		return "", err
	}
	_ = c.cache.Set(ctx, key, body, c.ttl)
	return string(body), nil
}

func (c *Client) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	host, path := splitURL(rawURL)
	observability.HTTP().OnRequest(ctx, http.MethodGet, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		observability.HTTP().OnError(ctx, http.MethodGet, host, path, err)
		return nil, &RetryableError{Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}
	defer resp.Body.Close()
	observability.HTTP().OnResponse(ctx, http.MethodGet, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500:
		return &RetryableError{Err: fmt.Errorf("%w: status %d", ErrNetwork, code)}
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}

func splitURL(raw string) (host, path string) {
	u, err := url.Parse(raw)
	if err != nil {
		return raw, ""
	}
	return u.Host, u.Path
}
