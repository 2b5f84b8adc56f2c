// Package apiclient is the HTTP client for the marketplace REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/senyabanana/surplus-market/internal/models"
)

// TokenSource supplies the bearer token for each call. session.Session implements it.
type TokenSource interface {
	Token() string
}

type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	retry      RetryConfig
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithRetry configures retries. Only GET requests are ever retried.
func WithRetry(cfg RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// New creates a client for baseURL. tokens may be nil for anonymous use.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		tokens:     tokens,
		retry:      RetryConfig{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.MaxAttempts < 1 {
		c.retry.MaxAttempts = 1
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*models.Envelope, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, err
		}
	}

	attempts := 1
	if method == http.MethodGet {
		attempts = c.retry.MaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, &Error{Kind: KindTransient, Message: "request cancelled", Err: ctx.Err()}
			case <-time.After(c.retry.BaseDelay * time.Duration(1<<(attempt-2))):
			}
		}

		env, err := c.once(ctx, method, path, payload)
		if err == nil {
			return env, nil
		}
		lastErr = err
		if !retryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) once(ctx context.Context, method, path string, payload []byte) (*models.Envelope, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if len(payload) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransient, Message: "the server could not be reached", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransient, Status: resp.StatusCode, Message: "incomplete response", Err: err}
	}

	var env models.Envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil, fmt.Errorf("decode response: %w", err)
			}
			env.Message = strings.TrimSpace(string(raw))
		}
	}
	// A 2xx reply still fails when the envelope says so.
	if resp.StatusCode >= 200 && resp.StatusCode < 300 && env.Success {
		return &env, nil
	}
	return nil, newError(resp.StatusCode, env)
}

func retryable(err error) bool {
	apiErr, ok := err.(*Error)
	if !ok || apiErr.Kind != KindTransient {
		return false
	}
	switch apiErr.Status {
	case 0, http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func idPath(prefix string, id int64, suffix string) string {
	return prefix + "/" + strconv.FormatInt(id, 10) + suffix
}

// Contact requests

// CreateContactRequest sends a request that has passed the NDA step. It is
// refused locally when the NDA was not accepted.
func (c *Client) CreateContactRequest(ctx context.Context, req models.NewContactRequest) (*models.ContactRequest, error) {
	if problems := req.Validate(); len(problems) > 0 {
		return nil, ValidationError(problems)
	}
	env, err := c.do(ctx, http.MethodPost, "/contact-requests", req)
	if err != nil {
		return nil, err
	}
	return contactRequest(env)
}

func (c *Client) ReviewContactRequest(ctx context.Context, id int64, decision models.ReviewDecision) (*models.ContactRequest, error) {
	env, err := c.do(ctx, http.MethodPatch, idPath("/contact-requests", id, "/review"), decision)
	if err != nil {
		return nil, err
	}
	return contactRequest(env)
}

func (c *Client) GetContactRequest(ctx context.Context, id int64) (*models.ContactRequest, error) {
	env, err := c.do(ctx, http.MethodGet, idPath("/contact-requests", id, ""), nil)
	if err != nil {
		return nil, err
	}
	return contactRequest(env)
}

func (c *Client) ListContactRequests(ctx context.Context, role models.RequestRole) ([]models.ContactRequest, error) {
	v := url.Values{}
	v.Set("role", string(role))
	v.Set("limit", "50")
	env, err := c.do(ctx, http.MethodGet, "/contact-requests?"+v.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return env.ContactRequests, nil
}

func contactRequest(env *models.Envelope) (*models.ContactRequest, error) {
	if env.ContactRequest == nil {
		return nil, fmt.Errorf("response has no contact request")
	}
	return env.ContactRequest, nil
}

// Companies

func (c *Client) RegisterCompany(ctx context.Context, req models.CompanyRequest) (*models.Company, error) {
	env, err := c.do(ctx, http.MethodPost, "/companies", req)
	if err != nil {
		return nil, err
	}
	return company(env)
}

func (c *Client) GetCompany(ctx context.Context, id int64) (*models.Company, error) {
	env, err := c.do(ctx, http.MethodGet, idPath("/companies", id, ""), nil)
	if err != nil {
		return nil, err
	}
	return company(env)
}

func (c *Client) UpdateCompany(ctx context.Context, id int64, upd models.CompanyUpdate) (*models.Company, error) {
	env, err := c.do(ctx, http.MethodPatch, idPath("/companies", id, ""), upd)
	if err != nil {
		return nil, err
	}
	return company(env)
}

func (c *Client) ListCompanies(ctx context.Context, statuses ...models.CompanyVerificationStatus) ([]models.Company, error) {
	v := url.Values{}
	for _, s := range statuses {
		v.Add("status", strconv.Itoa(int(s)))
	}
	v.Set("limit", "50")
	env, err := c.do(ctx, http.MethodGet, "/companies?"+v.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return env.Companies, nil
}

func (c *Client) VerifyCompany(ctx context.Context, id int64, decision models.VerificationDecision) (*models.Company, error) {
	env, err := c.do(ctx, http.MethodPatch, idPath("/companies", id, "/verify"), decision)
	if err != nil {
		return nil, err
	}
	return company(env)
}

func company(env *models.Envelope) (*models.Company, error) {
	if env.Company == nil {
		return nil, fmt.Errorf("response has no company")
	}
	return env.Company, nil
}

// Products

func (c *Client) CreateProduct(ctx context.Context, req models.ProductRequest) (*models.Product, error) {
	env, err := c.do(ctx, http.MethodPost, "/products", req)
	if err != nil {
		return nil, err
	}
	return product(env)
}

func (c *Client) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	v := url.Values{}
	for _, cat := range filter.Categories {
		v.Add("category", cat)
	}
	for _, cur := range filter.Currencies {
		v.Add("currency", cur)
	}
	if filter.Limit > 0 {
		v.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		v.Set("offset", strconv.Itoa(filter.Offset))
	}
	path := "/products"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}
	env, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return env.Products, nil
}

func (c *Client) MyProducts(ctx context.Context) ([]models.Product, error) {
	env, err := c.do(ctx, http.MethodGet, "/products/mine?limit=50", nil)
	if err != nil {
		return nil, err
	}
	return env.Products, nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	env, err := c.do(ctx, http.MethodGet, idPath("/products", id, ""), nil)
	if err != nil {
		return nil, err
	}
	return product(env)
}

func (c *Client) PublishProduct(ctx context.Context, id int64) (*models.Product, error) {
	return c.productAction(ctx, id, "/publish")
}

func (c *Client) UnpublishProduct(ctx context.Context, id int64) (*models.Product, error) {
	return c.productAction(ctx, id, "/unpublish")
}

func (c *Client) MarkProductSold(ctx context.Context, id int64) (*models.Product, error) {
	return c.productAction(ctx, id, "/sold")
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, idPath("/products", id, ""), nil)
	return err
}

func (c *Client) productAction(ctx context.Context, id int64, suffix string) (*models.Product, error) {
	env, err := c.do(ctx, http.MethodPost, idPath("/products", id, suffix), nil)
	if err != nil {
		return nil, err
	}
	return product(env)
}

func product(env *models.Envelope) (*models.Product, error) {
	if env.Product == nil {
		return nil, fmt.Errorf("response has no product")
	}
	return env.Product, nil
}
