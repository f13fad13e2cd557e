package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	stealth "github.com/anatolykoptev/go-stealth"
	"golang.org/x/time/rate"
)

const cseEndpoint = "https://www.googleapis.com/customsearch/v1"

// cseResponse is the subset of the Custom Search JSON API response we use.
type cseResponse struct {
	Items []cseItem `json:"items"`
}

type cseItem struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

type cseErrorResponse struct {
	Error struct {
		Code   int `json:"code"`
		Errors []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// errCSELimited stops the retry loop on 429: the key is rotated instead.
var errCSELimited = errors.New("cse key rate limited")

// Quota reasons Google reports with 403 instead of 429.
var cseQuotaReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"dailyLimitExceeded":    true,
	"quotaExceeded":         true,
}

// CSEProvider queries the Google Custom Search JSON API, rotating through a
// pool of API keys.
type CSEProvider struct {
	endpoint  string
	cx        string
	language  string
	pool      *CredentialPool
	client    *http.Client
	validator *Validator
	limiter   *rate.Limiter
	once      sync.Once
}

// CSEOption configures a CSEProvider.
type CSEOption func(*CSEProvider)

// WithCSEEndpoint overrides the API endpoint.
func WithCSEEndpoint(u string) CSEOption {
	return func(p *CSEProvider) { p.endpoint = u }
}

// WithCSELanguage sets the hl interface language parameter.
func WithCSELanguage(lang string) CSEOption {
	return func(p *CSEProvider) { p.language = lang }
}

// WithCSERate paces requests to qps per second.
func WithCSERate(qps float64) CSEOption {
	return func(p *CSEProvider) {
		if qps > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(qps), 1)
		}
	}
}

// NewCSEProvider creates the credentialed provider.
func NewCSEProvider(cx string, pool *CredentialPool, client *http.Client, v *Validator, opts ...CSEOption) *CSEProvider {
	if client == nil {
		client = http.DefaultClient
	}
	p := &CSEProvider{
		endpoint:  cseEndpoint,
		cx:        cx,
		pool:      pool,
		client:    client,
		validator: v,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *CSEProvider) Name() string { return ProviderCSE }

// Exhausted reports whether every key has been used up.
func (p *CSEProvider) Exhausted() bool {
	return p.pool.Exhausted()
}

// Pool exposes the key pool for reporting.
func (p *CSEProvider) Pool() *CredentialPool { return p.pool }

// Search tries each active key at most once: a rate-limited key is
// deactivated and the next one is used for the same query.
func (p *CSEProvider) Search(ctx context.Context, q Query) (Result, bool) {
	if p.Exhausted() {
		return Result{}, false
	}
	spec := q.Network.Spec()
	query := q.SearchString()

	for attempt := 0; attempt < p.pool.Len(); attempt++ {
		cred, ok := p.pool.Next()
		if !ok {
			break
		}
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return Result{}, false
			}
		}

		items, limited, err := p.request(ctx, cred.Token, query)
		p.pool.RecordUse(cred)
		if limited {
			metrics.CSERateLimited.Add(1)
			p.pool.Deactivate(cred)
			continue
		}
		if err != nil {
			slog.Warn("cse request failed", slog.String("post", q.PostID), slog.Any("error", err))
			return Result{}, false
		}

		for _, it := range items {
			if p.validator.Valid(spec, it.Link, it.Title, q.Text) {
				return Result{URL: it.Link, Title: it.Title}, true
			}
			metrics.ValidationRejects.Add(1)
		}
		return Result{}, false
	}

	if p.pool.Exhausted() {
		p.once.Do(func() {
			slog.Warn("all CSE keys exhausted, disabling CSE", slog.Int("keys", p.pool.Len()))
		})
	}
	return Result{}, false
}

// request performs one API call. limited is true when the key hit a quota.
func (p *CSEProvider) request(ctx context.Context, key, query string) ([]cseItem, bool, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("key", key)
	params.Set("cx", p.cx)
	params.Set("num", "10")
	params.Set("safe", "off")
	if p.language != "" {
		params.Set("hl", p.language)
	}

	metrics.CSERequests.Add(1)

	target := p.endpoint + "?" + params.Encode()
	resp, err := stealth.RetryHTTP(ctx, stealth.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			return nil, errCSELimited
		}
		return resp, nil
	})
	if errors.Is(err, errCSELimited) {
		return nil, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cse: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusForbidden && isCSEQuotaError(body) {
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("cse status %d: %s", resp.StatusCode, Truncate(string(body), 200))
	}

	var data cseResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, false, fmt.Errorf("decode cse response: %w", err)
	}
	return data.Items, false, nil
}

func isCSEQuotaError(body []byte) bool {
	var e cseErrorResponse
	if json.Unmarshal(body, &e) != nil {
		return false
	}
	for _, r := range e.Error.Errors {
		if cseQuotaReasons[r.Reason] {
			return true
		}
	}
	return false
}
