package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/daily-quote/internal/adapters/http/middleware"
	"github.com/jsamuelsen/daily-quote/internal/platform/config"
	"github.com/jsamuelsen/daily-quote/internal/platform/logging"
)

const (
	instrumentationName = "github.com/jsamuelsen/daily-quote/internal/adapters/clients"

	defaultTimeout      = 10 * time.Second
	defaultJitterFactor = 0.25
)

// Config configures a Client.
type Config struct {
	// BaseURL is the API root, e.g. https://api.quotable.io.
	BaseURL string

	// ServiceName labels logs, spans, metrics and the breaker.
	ServiceName string

	// UserAgent is sent on every request when set.
	UserAgent string

	// Timeout bounds a single attempt. Retries and backoff come on top.
	Timeout time.Duration

	Retry     config.RetryConfig
	Circuit   config.CircuitBreakerConfig
	Transport config.TransportConfig

	Logger *slog.Logger
}

// Client fetches JSON documents from one remote quote API.
// Every call holds a single breaker ticket across its retries, is traced,
// and forwards the caller's request and correlation IDs.
type Client struct {
	http    *http.Client
	baseURL string
	cfg     Config
	logger  *slog.Logger
	cb      *CircuitBreaker

	tracer   trace.Tracer
	duration metric.Float64Histogram
	requests metric.Int64Counter
}

// New creates a client for cfg.ServiceName.
func New(cfg Config) (*Client, error) {
	if cfg.ServiceName == "" {
		return nil, errors.New("service name is required")
	}

	if _, err := url.Parse(cfg.BaseURL); err != nil || cfg.BaseURL == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	cfg.Retry.MaxAttempts = max(cfg.Retry.MaxAttempts, 1)

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cb := NewCircuitBreaker(cfg.ServiceName, CircuitBreakerConfig{
		MaxFailures:   cfg.Circuit.MaxFailures,
		Timeout:       cfg.Circuit.Timeout,
		HalfOpenLimit: cfg.Circuit.HalfOpenLimit,
	})
	cb.OnStateChange(func(from, to State) {
		logger.Warn("circuit breaker state changed",
			slog.String("downstream", cfg.ServiceName),
			slog.String("from", from.String()),
			slog.String("to", to.String()))
	})

	meter := otel.Meter(instrumentationName)

	duration, err := meter.Float64Histogram("quote_source.request.duration",
		metric.WithDescription("Duration of remote quote source calls, retries included"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("creating duration metric: %w", err)
	}

	requests, err := meter.Int64Counter("quote_source.requests",
		metric.WithDescription("Remote quote source calls by result"))
	if err != nil {
		return nil, fmt.Errorf("creating request counter: %w", err)
	}

	return &Client{
		http:     &http.Client{Timeout: cfg.Timeout, Transport: newTransport(cfg.Transport)},
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		cfg:      cfg,
		logger:   logger,
		cb:       cb,
		tracer:   otel.Tracer(instrumentationName),
		duration: duration,
		requests: requests,
	}, nil
}

func newTransport(cfg config.TransportConfig) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // stdlib default

	if cfg.MaxIdleConns > 0 {
		t.MaxIdleConns = cfg.MaxIdleConns
	}

	if cfg.MaxIdleConnsPerHost > 0 {
		t.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	}

	if cfg.IdleConnTimeout > 0 {
		t.IdleConnTimeout = cfg.IdleConnTimeout
	}

	return t
}

// ServiceName returns the configured downstream name.
func (c *Client) ServiceName() string { return c.cfg.ServiceName }

// CircuitState returns the breaker state.
func (c *Client) CircuitState() State { return c.cb.State() }

// GetJSON fetches path with query and decodes a 2xx body into out.
// Failures are *StatusError, ErrMalformedBody, ErrCircuitOpen, or
// ErrRetriesExhausted wrapping the last attempt's error.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	start := time.Now()
	target := c.buildURL(path, query)

	logger := logging.FromContextOr(ctx, c.logger).With(
		slog.String("downstream", c.cfg.ServiceName),
		slog.String("path", path))

	done, err := c.cb.Allow()
	if err != nil {
		c.record(ctx, start, "circuit_open")
		logger.WarnContext(ctx, "request blocked by circuit breaker")

		return err
	}

	ctx, span := c.tracer.Start(ctx, "GET "+c.cfg.ServiceName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", http.MethodGet),
			attribute.String("url.full", target),
			attribute.String("peer.service", c.cfg.ServiceName)))
	defer span.End()

	err = c.fetchWithRetry(ctx, target, out, logger)
	done(!tripsBreaker(err))

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.record(ctx, start, resultOf(err))
		logger.WarnContext(ctx, "remote request failed",
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err))

		return err
	}

	c.record(ctx, start, "ok")
	logging.Trace(ctx, logger, "remote request completed", slog.Duration("duration", time.Since(start)))

	return nil
}

func (c *Client) fetchWithRetry(ctx context.Context, target string, out any, logger *slog.Logger) error {
	var lastErr error

	for attempt := range c.cfg.Retry.MaxAttempts {
		if attempt > 0 {
			wait := c.backoff(attempt, lastErr)
			logger.DebugContext(ctx, "retrying remote request",
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", wait),
				slog.Any("error", lastErr))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		lastErr = c.attempt(ctx, target, out)
		if lastErr == nil || ctx.Err() != nil || !isRetryable(lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, c.cfg.Retry.MaxAttempts, lastErr)
}

func (c *Client) attempt(ctx context.Context, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	c.decorate(ctx, req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return &StatusError{
			Code:       resp.StatusCode,
			Body:       body,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}

	return nil
}

// decorate sets content negotiation, identity and tracing headers.
func (c *Client) decorate(ctx context.Context, req *http.Request) {
	req.Header.Set("Accept", "application/json")

	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	if id := middleware.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(middleware.HeaderRequestID, id)
	}

	if id := middleware.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set(middleware.HeaderCorrelationID, id)
	}

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
}

func (c *Client) buildURL(path string, query url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	if len(query) == 0 {
		return c.baseURL + path
	}

	return c.baseURL + path + "?" + query.Encode()
}

// backoff grows exponentially with jitter, capped at MaxInterval.
// A Retry-After from the server replaces it, under the same cap.
func (c *Client) backoff(attempt int, lastErr error) time.Duration {
	limit := c.cfg.Retry.MaxInterval

	var se *StatusError
	if errors.As(lastErr, &se) && se.RetryAfter > 0 {
		if limit > 0 {
			return min(se.RetryAfter, limit)
		}

		return se.RetryAfter
	}

	d := float64(c.cfg.Retry.InitialInterval) * math.Pow(max(c.cfg.Retry.Multiplier, 1), float64(attempt-1))
	if limit > 0 {
		d = math.Min(d, float64(limit))
	}

	factor := c.cfg.Retry.JitterFactor
	if factor <= 0 {
		factor = defaultJitterFactor
	}

	d += d * factor * (rand.Float64()*2 - 1) //nolint:gosec // jitter only

	return time.Duration(d)
}

func (c *Client) record(ctx context.Context, start time.Time, result string) {
	attrs := metric.WithAttributes(
		attribute.String("peer.service", c.cfg.ServiceName),
		attribute.String("result", result))

	c.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	c.requests.Add(ctx, 1, attrs)
}

func resultOf(err error) string {
	var se *StatusError

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrMalformedBody):
		return "malformed"
	case errors.As(err, &se):
		return strconv.Itoa(se.Code/100) + "xx"
	default:
		return "transport_error"
	}
}

// parseRetryAfter accepts delay seconds or an HTTP date.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}

	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}

	if at, err := http.ParseTime(v); err == nil {
		return max(time.Until(at), 0)
	}

	return 0
}

// isRetryable covers retryable statuses and transport failures. The caller
// checks its own context first.
func isRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}

	var netErr net.Error

	return errors.As(err, &netErr)
}
