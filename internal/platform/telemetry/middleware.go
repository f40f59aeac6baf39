package telemetry

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/jsamuelsen/daily-quote/internal/platform/telemetry"

// HeaderTraceID echoes the active trace ID so a client can quote it.
const HeaderTraceID = "X-Trace-ID"

// Tracing starts a server span per request with otelgin. Paths under
// skipPrefixes are not traced.
func Tracing(serviceName string, skipPrefixes ...string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName, otelgin.WithFilter(func(r *http.Request) bool {
		return !skipped(r.URL.Path, skipPrefixes)
	}))
}

// RequestMetrics records duration, count and in-flight requests per route
// and sets X-Trace-ID when a span is active. It belongs after Tracing.
// Requests gin could not route share the "unmatched" label.
func RequestMetrics(skipPrefixes ...string) gin.HandlerFunc {
	meter := otel.Meter(instrumentationName)

	duration, err := meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Duration of API requests"),
		metric.WithUnit("s"))
	if err != nil {
		otel.Handle(err)
	}

	inFlight, err := meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("API requests being served"))
	if err != nil {
		otel.Handle(err)
	}

	return func(c *gin.Context) {
		if duration == nil || inFlight == nil || skipped(c.Request.URL.Path, skipPrefixes) {
			c.Next()
			return
		}

		ctx := c.Request.Context()

		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			c.Header(HeaderTraceID, sc.TraceID().String())
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		base := []attribute.KeyValue{
			attribute.String("http.request.method", c.Request.Method),
			attribute.String("http.route", route),
		}

		inFlight.Add(ctx, 1, metric.WithAttributes(base...))
		start := time.Now()

		c.Next()

		inFlight.Add(ctx, -1, metric.WithAttributes(base...))
		duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
			append(base, attribute.Int("http.response.status_code", c.Writer.Status()))...))
	}
}

func skipped(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}
