package routing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const defaultORSBaseURL = "https://api.openrouteservice.org"

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("ors: status %d: %s", e.Code, e.Body)
}

// orsClient is the HTTP plumbing shared by the OpenRouteService adapters.
type orsClient struct {
	session *http.Client
	apiKey  string
	baseURL string
	backoff time.Duration
}

// Option configures an OpenRouteService adapter.
type Option func(*orsClient)

func WithBaseURL(u string) Option {
	return func(c *orsClient) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *orsClient) { c.session = hc }
}

// WithBackoff sets the delay before the first retry; it doubles on each attempt.
func WithBackoff(d time.Duration) Option {
	return func(c *orsClient) { c.backoff = d }
}

func newORSClient(apiKey string, opts ...Option) (*orsClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("ORS api key is empty")
	}

	c := &orsClient{
		session: &http.Client{Timeout: 10 * time.Second},
		apiKey:  apiKey,
		baseURL: defaultORSBaseURL,
		backoff: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *orsClient) newRequest(
	ctx context.Context,
	method string,
	url string,
	body []byte,
) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Accept", "application/json, application/geo+json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

func (c *orsClient) do(req *http.Request) (*http.Response, error) {
	resp, err := c.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &httpStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}

// retryable reports whether err is transient: a network failure, a 429 or a 5xx
// gateway response.
func retryable(err error) bool {
	var he *httpStatusError
	if errors.As(err, &he) {
		return he.Code == http.StatusTooManyRequests || (he.Code >= 500 && he.Code != http.StatusNotImplemented)
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

const maxAttempts = 4

// doWithRetry sends the request built by makeReq, backing off exponentially between
// transient failures. makeReq is called per attempt so bodies are fresh.
func (c *orsClient) doWithRetry(ctx context.Context, makeReq func() (*http.Request, error)) (*http.Response, error) {
	wait := c.backoff
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := makeReq()
		if err != nil {
			return nil, fmt.Errorf("make request: %w", err)
		}

		resp, err := c.do(req)
		if err == nil {
			return resp, nil
		}
		if attempt == maxAttempts || !retryable(err) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
}

// normalize collapses whitespace so equal addresses share cache keys.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
