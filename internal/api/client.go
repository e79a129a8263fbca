package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the production storefront API root.
	DefaultBaseURL = "https://kokossimo.ru/api"
	userAgent      = "kokocli/1.0 (+https://kokossimo.ru)"
	defaultTimeout = 15 * time.Second
)

// ErrNotFound matches a StatusError for a 404 response.
var ErrNotFound = errors.New("not found")

// StatusError is returned for any response other than 200 OK.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// Is lets errors.Is(err, ErrNotFound) see through wrapping.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Temporary reports whether retrying the same request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// Client is an HTTP client for the storefront catalog API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout of the underlying HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit throttles outgoing requests to perSecond with the given burst.
// A non-positive rate disables throttling.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a client for the production API.
func NewClient(opts ...Option) *Client {
	return NewClientWithBaseURL(DefaultBaseURL, opts...)
}

// NewClientWithBaseURL creates a client with a custom API root (for testing
// and self-hosted deployments).
func NewClientWithBaseURL(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: reqURL}
	}

	var raw json.RawMessage
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if err := dec.Decode(new(struct{})); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding response: trailing JSON content")
	}
	return raw, nil
}

// decodeList accepts either a bare JSON array or a paginated
// {"results": [...]} envelope and returns the items.
func decodeList[T any](raw json.RawMessage) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decoding response: %w", err)
		}
		return items, nil
	}

	var envelope struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return envelope.Results, nil
}

// Params renders the query as GET /products/ parameters.
func (q ProductQuery) Params() url.Values {
	params := url.Values{}
	for _, slug := range q.Categories {
		if slug = strings.TrimSpace(slug); slug != "" {
			params.Add("category", slug)
		}
	}
	if q.PriceMin != "" {
		params.Set("price_min", q.PriceMin)
	}
	if q.PriceMax != "" {
		params.Set("price_max", q.PriceMax)
	}
	if q.Bestsellers {
		params.Set("is_bestseller", "true")
	}
	if q.NewArrivals {
		params.Set("is_new", "true")
	}
	return params
}

// FetchProducts lists catalog products, narrowed server-side by q.
func (c *Client) FetchProducts(ctx context.Context, q ProductQuery) ([]Product, error) {
	raw, err := c.get(ctx, "/products/", q.Params())
	if err != nil {
		return nil, fmt.Errorf("fetching products: %w", err)
	}
	items, err := decodeList[Product](raw)
	if err != nil {
		return nil, fmt.Errorf("fetching products: %w", err)
	}
	return items, nil
}

// FetchProduct fetches a single product by id.
func (c *Client) FetchProduct(ctx context.Context, id string) (*Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("fetching product: empty id")
	}

	raw, err := c.get(ctx, "/products/"+url.PathEscape(id)+"/", nil)
	if err != nil {
		return nil, fmt.Errorf("fetching product %s: %w", id, err)
	}
	var p Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("fetching product %s: decoding response: %w", id, err)
	}
	return &p, nil
}

// FetchCategories lists all catalog categories.
func (c *Client) FetchCategories(ctx context.Context) ([]Category, error) {
	raw, err := c.get(ctx, "/categories/", nil)
	if err != nil {
		return nil, fmt.Errorf("fetching categories: %w", err)
	}
	items, err := decodeList[Category](raw)
	if err != nil {
		return nil, fmt.Errorf("fetching categories: %w", err)
	}
	return items, nil
}

// FetchRatings lists customer ratings for a product.
func (c *Client) FetchRatings(ctx context.Context, productID string) ([]Rating, error) {
	raw, err := c.get(ctx, "/products/"+url.PathEscape(strings.TrimSpace(productID))+"/ratings/", nil)
	if err != nil {
		return nil, fmt.Errorf("fetching ratings: %w", err)
	}
	items, err := decodeList[Rating](raw)
	if err != nil {
		return nil, fmt.Errorf("fetching ratings: %w", err)
	}
	return items, nil
}

// Deref safely dereferences a string pointer, returning "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
