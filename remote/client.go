// Package remote is the accessor for the campaign REST API: one method per
// entity kind and operation, no caching and no retries.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	apperrors "github.com/krisalay/campaign-cache/errors"
)

// BreakerConfig tunes the circuit breaker in front of the API.
type BreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration

	// The breaker opens once at least MinRequests were made in the interval
	// and the failure ratio reaches FailureThreshold.
	FailureThreshold float64
	MinRequests      uint32
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "campaign-api",
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

type Config struct {
	BaseURL string

	// Timeout bounds a single request. Zero leaves it to the caller's context.
	Timeout time.Duration

	Breaker BreakerConfig
}

// Client talks to the campaign API over a cookie session.
type Client struct {
	base    *url.URL
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	tracer  trace.Tracer
	logger  *zap.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its cookie jar, if any, is kept.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

func New(cfg Config, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("remote: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("remote: base url %q must be absolute", cfg.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("remote: cookie jar: %w", err)
	}

	c := &Client{
		base:   base,
		http:   &http.Client{Jar: jar, Timeout: cfg.Timeout},
		tracer: otel.Tracer("github.com/krisalay/campaign-cache/remote"),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		c.http.Jar = jar
	}

	bc := cfg.Breaker
	if bc.Name == "" {
		bc = DefaultBreakerConfig()
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        bc.Name,
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bc.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= bc.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// Client errors mean the API is up; only outages count.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			if apperrors.IsTransport(err) {
				return false
			}
			return apperrors.StatusOf(err) < 500
		},
	})

	return c, nil
}

// SetSessionCookies installs the session cookies obtained at login.
func (c *Client) SetSessionCookies(cookies []*http.Cookie) {
	c.http.Jar.SetCookies(c.base, cookies)
}

// BreakerState reports the breaker state, for health output.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

type request struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
}

// do performs r and returns the raw response body of a 2xx answer.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, r.op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", r.method),
			attribute.String("http.route", r.path),
		),
	)
	defer span.End()

	var payload []byte
	if r.body != nil {
		var err error
		payload, err = sonic.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode body: %w", r.op, err)
		}
	}

	// r.path is already escaped.
	u, err := url.Parse(c.base.String() + r.path)
	if err != nil {
		return nil, fmt.Errorf("%s: build url: %w", r.op, err)
	}
	u.RawQuery = r.query.Encode()

	res, err := c.breaker.Execute(func() (any, error) {
		return c.roundTrip(ctx, r, u.String(), payload)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = apperrors.Transport(r.op, err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if st := apperrors.StatusOf(err); st != 0 {
			span.SetAttributes(attribute.Int("http.status_code", st))
		}
		c.logger.Debug("request failed",
			zap.String("op", r.op),
			zap.String("method", r.method),
			zap.String("path", r.path),
			zap.Error(err),
		)
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return res.([]byte), nil
}

func (c *Client) roundTrip(ctx context.Context, r request, target string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return nil, apperrors.Transport(r.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.Transport(r.op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Transport(r.op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.Status(r.op, resp.StatusCode, excerpt(data))
	}
	return data, nil
}

func excerpt(data []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(data))
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return s
}

// call performs r and decodes a non-empty answer into out.
func (c *Client) call(ctx context.Context, r request, out any) error {
	data, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", r.op, err)
	}
	return nil
}

func pathf(format string, ids ...string) string {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = url.PathEscape(id)
	}
	return fmt.Sprintf(format, args...)
}
