package resolver

// client.go: tries candidate endpoints strictly in order.
//
// 404/405 (plus any extra SkipStatus) mean "wrong endpoint for this
// deployment". Any other failure is remembered as the most informative cause.
// Nothing is retried: a candidate gets exactly one attempt.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/polyledger/internal/domain"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultRatePerS  = 10
	defaultRateBurst = 5
	maxBodyBytes     = 8 << 20
	maxErrBodyChars  = 200
)

// Attempt outcomes reported to an Observer.
const (
	OutcomeOK   = "ok"
	OutcomeSkip = "skip"
	OutcomeFail = "fail"
)

// Observer is notified after each candidate attempt.
type Observer interface {
	ObserveAttempt(outcome string)
}

// Client issues one HTTP request at a time over a list of candidates.
type Client struct {
	http     *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
	debug    bool
	now      func() time.Time
	observer Observer

	mu      sync.Mutex
	lastErr string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithDebug logs every attempted URL and the masked auth headers.
func WithDebug(on bool) Option {
	return func(c *Client) { c.debug = on }
}

// WithRateLimit paces attempts. rps <= 0 disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithClock overrides the signing clock.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithObserver registers an attempt observer (metrics).
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// New creates a Client with a 10s timeout.
func New(opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(defaultRatePerS, defaultRateBurst),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request describes one logical call over several candidate URLs.
type Request struct {
	Method string
	URLs   []string
	Body   any     // JSON-encoded once, sent to every candidate
	Signer *Signer // nil for public routes
	// Validate rejects a 2xx body that is not what the caller looks for
	// (e.g. an empty list); the candidate then counts as "wrong endpoint".
	Validate func(Response) error
	// Headers are sent as-is on every attempt (e.g. Manifold's "Authorization: Key ...").
	Headers map[string]string
	// SkipStatus extends the default {404, 405} "try next" statuses.
	SkipStatus []int
}

// Response is the first successful answer.
type Response struct {
	URL    string
	Status int
	Body   []byte
}

// JSON decodes the body keeping numbers as json.Number.
func (r Response) JSON() (any, error) {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil, &domain.PayloadShapeError{Record: r.URL, Msg: "empty body"}
	}
	dec := json.NewDecoder(bytes.NewReader(r.Body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &domain.PayloadShapeError{Record: r.URL, Msg: "invalid JSON: " + err.Error()}
	}
	return v, nil
}

// LastError returns the message of the last exhausted call ("" after a success).
func (c *Client) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Client) setLastError(msg string) {
	c.mu.Lock()
	c.lastErr = msg
	c.mu.Unlock()
}

// Do walks req.URLs in order and returns the first 2xx response.
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	if len(req.URLs) == 0 {
		return Response{}, &domain.ConfigurationError{Field: "endpoints", Msg: "no candidate endpoints"}
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body []byte
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return Response{}, fmt.Errorf("resolver: marshal body: %w", err)
		}
		body = b
	}

	var (
		attempted []string
		specific  error
		fallback  error
	)
	for _, u := range req.URLs {
		if err := c.limiter.Wait(ctx); err != nil {
			return Response{}, fmt.Errorf("resolver: rate limiter: %w", err)
		}
		attempted = append(attempted, u)

		resp, err := c.attempt(ctx, method, u, body, req)
		if err == nil && req.Validate != nil {
			if verr := req.Validate(resp); verr != nil {
				c.observe(OutcomeSkip)
				c.logger.Debug("endpoint answered without usable data, trying next", "url", u, "err", verr)
				fallback = fmt.Errorf("%s: %w", u, verr)
				continue
			}
		}
		if err == nil {
			c.observe(OutcomeOK)
			c.setLastError("")
			return resp, nil
		}
		if ctx.Err() != nil {
			return Response{}, fmt.Errorf("resolver: %s %s: %w", method, u, ctx.Err())
		}

		var statusErr *domain.HTTPStatusError
		if errors.As(err, &statusErr) && skippable(statusErr.Status, req.SkipStatus) {
			c.observe(OutcomeSkip)
			c.logger.Debug("endpoint not available, trying next", "url", u, "status", statusErr.Status)
			fallback = err
			continue
		}
		c.observe(OutcomeFail)
		c.logger.Debug("endpoint failed", "url", u, "err", err)
		specific = err
	}

	cause := specific
	if cause == nil {
		cause = fallback
	}
	exhausted := &domain.EndpointExhaustedError{Attempted: attempted, Cause: cause}
	c.setLastError(exhausted.Error())
	return Response{}, exhausted
}

// JSON is Do followed by JSON decoding of the winning body.
func (c *Client) JSON(ctx context.Context, req Request) (any, string, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, "", err
	}
	v, err := resp.JSON()
	return v, resp.URL, err
}

func (c *Client) attempt(ctx context.Context, method, rawURL string, body []byte, r Request) (Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return Response{}, fmt.Errorf("new request %s: %w", rawURL, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	if r.Signer != nil {
		ts := strconv.FormatInt(c.now().Unix(), 10)
		headers := r.Signer.Headers(ts, method, requestPath(req.URL), string(body))
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		if c.debug {
			c.logger.Debug("signed request",
				"method", method,
				"url", rawURL,
				"api_key", Mask(headers["POLY_API_KEY"]),
				"signature", Mask(headers["POLY_SIGNATURE"]),
				"passphrase", Mask(headers["POLY_PASSPHRASE"]),
				"timestamp", ts,
			)
		}
	} else if c.debug {
		c.logger.Debug("request", "method", method, "url", rawURL)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Response{}, fmt.Errorf("%s %s: read body: %w", method, rawURL, err)
	}
	if c.debug {
		c.logger.Debug("response", "url", rawURL, "status", resp.StatusCode, "bytes", len(data))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Response{}, &domain.HTTPStatusError{URL: rawURL, Status: resp.StatusCode, Body: truncate(string(data), maxErrBodyChars)}
	}
	return Response{URL: rawURL, Status: resp.StatusCode, Body: data}, nil
}

func (c *Client) observe(outcome string) {
	if c.observer != nil {
		c.observer.ObserveAttempt(outcome)
	}
}

// requestPath is the path plus query that goes into the signature.
func requestPath(u *url.URL) string {
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}

func skippable(status int, extra []int) bool {
	if status == http.StatusNotFound || status == http.StatusMethodNotAllowed {
		return true
	}
	for _, s := range extra {
		if s == status {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
