// Package backend talks to the external finstack backend API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	domainerrors "finstack-p2p.backend/internal/domain/errors"
	"finstack-p2p.backend/internal/infrastructure/metrics"
)

// maxBodyBytes caps how much of an upstream response is buffered.
const maxBodyBytes = 32 << 20

// Config configures a Client
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64
	RateBurst int
}

// Client forwards authenticated requests to the backend
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	metrics *metrics.Metrics
}

// NewClient creates a backend client. An empty BaseURL yields a client whose
// every call fails with the not-configured error.
func NewClient(cfg Config, m *metrics.Metrics) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
		metrics: m,
	}
}

// Configured reports whether a base URL is set
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

// Request is one upstream call
type Request struct {
	Method      string
	Path        string
	RawQuery    string
	Body        io.Reader
	ContentType string
	Token       string
}

// Response is a fully buffered upstream response
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// OK reports a 2xx status
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// IsJSON reports whether the body should be treated as JSON
func (r *Response) IsJSON() bool {
	if strings.Contains(strings.ToLower(r.ContentType), "json") {
		return true
	}
	trimmed := bytes.TrimSpace(r.Body)
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') && json.Valid(trimmed)
}

// Do sends the request and returns the response for any status. Errors are
// returned only when no response was obtained.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if !c.Configured() {
		return nil, domainerrors.NotConfigured()
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, domainerrors.BadGateway(fmt.Errorf("rate limit wait: %w", err))
	}

	url := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if req.RawQuery != "" {
		url += "?" + req.RawQuery
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, req.Body)
	if err != nil {
		return nil, domainerrors.InternalError(fmt.Errorf("build upstream request: %w", err))
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.ObserveUpstream(req.Method, 0)
		return nil, domainerrors.BadGateway(fmt.Errorf("%s %s: %w", req.Method, req.Path, err))
	}
	defer resp.Body.Close()
	c.metrics.ObserveUpstream(req.Method, resp.StatusCode)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, domainerrors.BadGateway(fmt.Errorf("read upstream body: %w", err))
	}
	return &Response{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// DoJSON sends in as JSON (when non-nil) and returns the raw JSON body of a
// 2xx response. Non-2xx responses become an upstream AppError.
func (c *Client) DoJSON(ctx context.Context, method, path, token string, in interface{}) (json.RawMessage, error) {
	req := Request{Method: method, Path: path, Token: token}
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, domainerrors.InternalError(fmt.Errorf("encode upstream body: %w", err))
		}
		req.Body = bytes.NewReader(b)
		req.ContentType = "application/json"
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, domainerrors.Upstream(resp.Status, ExtractErrorMessage(resp.Status, resp.Body))
	}
	return resp.Body, nil
}

// FetchCollection GETs path and decodes the list it carries in any of the
// accepted envelope shapes.
func (c *Client) FetchCollection(ctx context.Context, path, token string) ([]Record, error) {
	body, err := c.DoJSON(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return nil, err
	}
	return DecodeCollection(body)
}

// InitiateRelease asks the backend to send the merchant a release code
func (c *Client) InitiateRelease(ctx context.Context, token, orderID string) error {
	_, err := c.DoJSON(ctx, http.MethodPost, "/p2p/orders/"+orderID+"/initiate-release", token, nil)
	return err
}

// ConfirmRelease submits the release code for verification
func (c *Client) ConfirmRelease(ctx context.Context, token, orderID, code string) error {
	_, err := c.DoJSON(ctx, http.MethodPost, "/p2p/orders/"+orderID+"/confirm-release", token, map[string]string{"otp": code})
	return err
}

// ExtractErrorMessage picks message|error|detail from a JSON body, falling back
// to the text body and then the status text.
func ExtractErrorMessage(status int, body []byte) string {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"message", "error", "detail"} {
			if msg := messageFrom(payload[key]); msg != "" {
				return msg
			}
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && !strings.HasPrefix(text, "{") {
		if len(text) > 500 {
			text = text[:500]
		}
		return text
	}
	if st := http.StatusText(status); st != "" {
		return st
	}
	return "upstream request failed"
}

func messageFrom(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]interface{}:
		return messageFrom(t["message"])
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := messageFrom(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	}
	return ""
}
