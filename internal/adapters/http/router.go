package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/daily-quote/internal/adapters/http/handlers"
	"github.com/jsamuelsen/daily-quote/internal/adapters/http/middleware"
	"github.com/jsamuelsen/daily-quote/internal/platform/telemetry"
)

// DefaultRequestTimeout is the default deadline for API requests.
const DefaultRequestTimeout = 10 * time.Second

// Route prefixes.
const (
	// OperationalPrefix holds the probes, build info and metrics scrape.
	OperationalPrefix = "/-/"

	// APIPrefix is the versioned quote API.
	APIPrefix = "/api/v1"

	// EventsPath is the long-lived server-sent event stream.
	EventsPath = APIPrefix + "/events"
)

// RouterConfig contains everything mounted on the engine.
type RouterConfig struct {
	Logger      *slog.Logger
	ServiceName string

	Health      *handlers.HealthHandler
	Quotes      *handlers.QuoteHandler
	Engagement  *handlers.EngagementHandler
	Collections *handlers.CollectionHandler
	Events      *handlers.EventHandler

	// Limiter throttles forced refreshes and corpus reloads. Nil disables throttling.
	Limiter *middleware.RateLimiter

	// Timeout is the deadline of every API request except the event stream.
	Timeout time.Duration
}

// SetupRouter configures middleware and routes on the Gin engine.
// Middleware is applied in the following order (first to last):
//  1. Recovery - catch panics first
//  2. Logger - seed the request context with the base logger
//  3. Request ID and correlation ID
//  4. OpenTelemetry - tracing and request metrics
//  5. Logging - one line per request
//
// The operational endpoints under /-/ are neither traced nor logged, and the
// event stream is exempt from the request deadline and the access log.
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	engine.Use(
		middleware.Recovery(cfg.Logger),
		middleware.Logger(cfg.Logger),
		middleware.RequestID(),
		middleware.CorrelationID(),
		telemetry.Tracing(cfg.ServiceName, OperationalPrefix),
		telemetry.RequestMetrics(OperationalPrefix),
		middleware.Logging(cfg.Logger, OperationalPrefix, EventsPath),
	)

	if cfg.Health != nil {
		cfg.Health.RegisterRoutes(engine)
	}

	api := engine.Group(APIPrefix, middleware.Deadline(cfg.Timeout, EventsPath))

	if cfg.Quotes != nil {
		cfg.Quotes.RegisterRoutes(api, cfg.Limiter)
	}

	if cfg.Engagement != nil {
		cfg.Engagement.RegisterRoutes(api)
	}

	if cfg.Collections != nil {
		cfg.Collections.RegisterRoutes(api)
	}

	if cfg.Events != nil {
		cfg.Events.RegisterRoutes(api)
	}
}
