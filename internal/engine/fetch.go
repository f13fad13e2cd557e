package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/cenkalti/backoff/v5"
)

// Fetcher performs one HTTP exchange for the scraping providers.
// A non-2xx status is not an error: quota and block handling belongs to the
// provider, which sees the raw status.
type Fetcher interface {
	Fetch(ctx context.Context, method, url string, headers map[string]string, body io.Reader) ([]byte, int, error)
}

// BrowserClient is the stealth client with a Chrome TLS fingerprint.
type BrowserClient = stealth.BrowserClient

// searchHeaders returns Chrome navigation headers with a fresh random user
// agent, so consecutive search requests do not share one.
func searchHeaders() map[string]string {
	h := stealth.ChromeHeaders()
	h["user-agent"] = stealth.RandomUserAgent()
	return h
}

// BrowserFetcher sends requests with a Chrome TLS fingerprint.
type BrowserFetcher struct {
	bc *BrowserClient
}

// NewBrowserFetcher wraps a stealth browser client.
func NewBrowserFetcher(bc *BrowserClient) *BrowserFetcher {
	return &BrowserFetcher{bc: bc}
}

// Fetch executes the request through the stealth client.
func (f *BrowserFetcher) Fetch(ctx context.Context, method, url string, headers map[string]string, body io.Reader) ([]byte, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	data, _, status, err := f.bc.Do(method, url, headers, body)
	if err != nil {
		return nil, status, fmt.Errorf("browser fetch: %w", err)
	}
	return data, status, nil
}

// HTTPFetcher is the plain net/http fetcher used when no browser client is
// configured. Transient failures (network errors, 5xx) are retried with
// exponential backoff; 429 is handed back untouched.
type HTTPFetcher struct {
	client      *http.Client
	maxTries    uint
	initialWait time.Duration
}

// NewHTTPFetcher creates a fetcher around client (nil = newFetchClient()).
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = newFetchClient(30 * time.Second)
	}
	return &HTTPFetcher{client: client, maxTries: 3, initialWait: time.Second}
}

// newFetchClient creates an HTTP client with proper settings for web scraping.
func newFetchClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     30 * time.Second,
			TLSHandshakeTimeout: 15 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}
}

type fetchReply struct {
	data   []byte
	status int
}

// Fetch performs the request with retry logic using exponential backoff.
func (f *HTTPFetcher) Fetch(ctx context.Context, method, url string, headers map[string]string, body io.Reader) ([]byte, int, error) {
	var payload []byte
	if body != nil {
		b, err := io.ReadAll(body)
		if err != nil {
			return nil, 0, fmt.Errorf("read request body: %w", err)
		}
		payload = b
	}

	operation := func() (fetchReply, error) {
		var rd io.Reader
		if payload != nil {
			rd = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, rd)
		if err != nil {
			return fetchReply{}, backoff.Permanent(err)
		}
		for k, v := range headers {
			// net/http negotiates and decodes compression itself.
			if strings.EqualFold(k, "accept-encoding") {
				continue
			}
			req.Header.Set(k, v)
		}
		if req.Header.Get("User-Agent") == "" {
			req.Header.Set("User-Agent", stealth.RandomUserAgent())
		}

		resp, err := f.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return fetchReply{}, backoff.Permanent(ctx.Err())
			}
			return fetchReply{}, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusTooManyRequests && stealth.IsRetryableStatus(resp.StatusCode) {
			return fetchReply{}, fmt.Errorf("status %d", resp.StatusCode)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
		if err != nil {
			return fetchReply{}, fmt.Errorf("read body: %w", err)
		}
		return fetchReply{data: data, status: resp.StatusCode}, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.initialWait
	bo.MaxInterval = 10 * time.Second

	r, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(f.maxTries),
		backoff.WithMaxElapsedTime(30*time.Second),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch %s: %w", method, err)
	}
	return r.data, r.status, nil
}

// NewFetcher picks the browser fetcher when a stealth client is configured.
func NewFetcher(c Config) Fetcher {
	if c.BrowserClient != nil {
		return NewBrowserFetcher(c.BrowserClient)
	}
	client := c.HTTPClient
	if client == nil && c.FetchTimeout > 0 {
		client = newFetchClient(c.FetchTimeout)
	}
	return NewHTTPFetcher(client)
}
