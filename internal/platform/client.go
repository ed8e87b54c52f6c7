// Package platform is the REST client for the data-onboarding platform.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"ffctl/internal/ff"
)

const (
	// DefaultTimeout applies to every request unless overridden.
	DefaultTimeout = 30 * time.Second

	userAgent = "ffctl"
)

// Client implements ff.Platform over HTTP.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	logger  ff.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(d)
	}
}

// WithRateLimit caps the request rate. Zero or negative means unlimited.
func WithRateLimit(requestsPerSecond float64) Option {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
}

// WithLogger sets a logger for request tracing.
func WithLogger(logger ff.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With("component", "platform")
	}
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	h := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(DefaultTimeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent)

	c := &Client{http: h, logger: ff.NewNopLogger()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Authenticate(ctx context.Context, clientID, secret string) (ff.Record, error) {
	body := map[string]string{"clientId": clientID, "secret": secret}
	var rec ff.Record
	if err := c.do(ctx, "POST", "/auth", "", nil, body, &rec); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("auth response has no data object")
	}
	return rec, nil
}

func (c *Client) ListEnvironments(ctx context.Context, token string) ([]ff.Record, error) {
	return c.list(ctx, "/environments", token, nil)
}

func (c *Client) ListSpaces(ctx context.Context, token, environmentID string) ([]ff.Record, error) {
	return c.list(ctx, "/spaces", token, map[string]string{
		"environmentId": environmentID,
		"archived":      "false",
	})
}

func (c *Client) ListWorkbooks(ctx context.Context, token, spaceID string) ([]ff.Record, error) {
	return c.list(ctx, "/workbooks", token, map[string]string{
		"spaceId":       spaceID,
		"includeCounts": "true",
	})
}

func (c *Client) ListUsers(ctx context.Context, token, email string) ([]ff.Record, error) {
	var params map[string]string
	if email != "" {
		params = map[string]string{"email": email}
	}
	return c.list(ctx, "/users", token, params)
}

func (c *Client) ListGuests(ctx context.Context, token, spaceID, email string) ([]ff.Record, error) {
	params := map[string]string{"spaceId": spaceID}
	if email != "" {
		params["email"] = email
	}
	return c.list(ctx, "/guests", token, params)
}

func (c *Client) GetSubscriptionToken(ctx context.Context, token, environmentID string) (ff.Record, error) {
	var rec ff.Record
	params := map[string]string{"environmentId": environmentID}
	if err := c.do(ctx, "GET", "/environments/subscription-token", token, params, nil, &rec); err != nil {
		return nil, err
	}
	if rec == nil {
		rec = ff.Record{}
	}
	return rec, nil
}

func (c *Client) ListAPIKeys(ctx context.Context, token, environmentID string) ([]ff.Record, error) {
	return c.list(ctx, "/auth/api-keys", token, map[string]string{"environmentId": environmentID})
}

// list fetches one page. Elements that are not JSON objects are logged and
// dropped so the rest of the page survives.
func (c *Client) list(ctx context.Context, path, token string, params map[string]string) ([]ff.Record, error) {
	var raw []json.RawMessage
	if err := c.do(ctx, "GET", path, token, params, nil, &raw); err != nil {
		return nil, err
	}
	recs := make([]ff.Record, 0, len(raw))
	for i, elem := range raw {
		var rec ff.Record
		dec := json.NewDecoder(bytes.NewReader(elem))
		dec.UseNumber()
		if err := dec.Decode(&rec); err != nil || rec == nil {
			c.logger.Warn("skipping malformed element", "path", path, "index", i, "err", err)
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// do issues one request and decodes the "data" member of the response into out.
func (c *Client) do(ctx context.Context, method, path, token string, params map[string]string, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &ff.TransportError{Endpoint: path, Err: err}
		}
	}

	req := c.http.R().SetContext(ctx)
	if token != "" {
		req.SetAuthToken(token)
	}
	if params != nil {
		req.SetQueryParams(params)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	c.logger.Debug("platform request", "method", method, "path", path)
	resp, err := req.Execute(method, path)
	if err != nil {
		return &ff.TransportError{Endpoint: path, Err: err}
	}
	c.logger.Debug("platform response", "path", path, "status", resp.StatusCode(), "duration", resp.Time())

	if code := resp.StatusCode(); code < 200 || code > 299 {
		return &ff.APIError{
			StatusCode: resp.StatusCode(),
			Message:    errorMessage(resp.Body(), resp.Status()),
			Endpoint:   path,
		}
	}

	if err := decodeData(resp.Body(), out); err != nil {
		return &ff.DecodeError{Endpoint: path, Err: err}
	}
	return nil
}

// decodeData unwraps {"data": ...} into out, keeping numbers as json.Number.
func decodeData(raw []byte, out any) error {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return err
	}
	if len(envelope.Data) == 0 || bytes.Equal(envelope.Data, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(envelope.Data))
	dec.UseNumber()
	return dec.Decode(out)
}

// errorMessage extracts a readable message from an error body. The platform
// reports errors as {"errors": [{"message": ...}]}; anything else is returned
// as text, falling back to the HTTP status line.
func errorMessage(raw []byte, status string) string {
	var body struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		var msgs []string
		for _, e := range body.Errors {
			if e.Message != "" {
				msgs = append(msgs, e.Message)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	if text := strings.TrimSpace(string(raw)); text != "" {
		return text
	}
	return status
}

// Compile-time check that Client implements ff.Platform interface
var _ ff.Platform = (*Client)(nil)
