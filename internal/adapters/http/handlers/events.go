package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/daily-quote/internal/adapters/events"
	"github.com/jsamuelsen/daily-quote/internal/adapters/http/dto"
	"github.com/jsamuelsen/daily-quote/internal/domain"
	"github.com/jsamuelsen/daily-quote/internal/platform/logging"
)

// DefaultHeartbeat is how often an idle event stream sends a keep-alive comment.
const DefaultHeartbeat = 15 * time.Second

// Subscriber opens a stream of published domain events.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan events.Envelope, error)
}

// EventHandler streams domain events to the UI as server-sent events.
type EventHandler struct {
	bus       Subscriber
	heartbeat time.Duration
}

// NewEventHandler creates an event handler. A non-positive heartbeat uses DefaultHeartbeat.
func NewEventHandler(bus Subscriber, heartbeat time.Duration) *EventHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}

	return &EventHandler{bus: bus, heartbeat: heartbeat}
}

// Stream handles GET /api/v1/events. Each event is sent with its type as the
// SSE event name and its JSON payload as data. Storage key changes are internal
// and are not forwarded.
func (h *EventHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()

	ch, err := h.bus.Subscribe(ctx)
	if err != nil {
		dto.HandleError(c, domain.NewUnavailableError("events", err.Error()))
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	// The server write timeout would cut the stream; it lives until the client leaves.
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	if _, err := io.WriteString(c.Writer, ": connected\n\n"); err != nil {
		return
	}

	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	log := logging.FromContext(ctx)
	log.DebugContext(ctx, "event stream opened")

	c.Stream(func(w io.Writer) bool {
		select {
		case env, ok := <-ch:
			if !ok {
				return false
			}

			if env.Type == domain.EventKeyChanged {
				return true
			}

			c.SSEvent(env.Type, []byte(env.Payload))

			return true
		case <-heartbeat.C:
			_, err := io.WriteString(w, ": heartbeat\n\n")
			return err == nil
		case <-ctx.Done():
			return false
		}
	})

	reason := "bus closed"
	if cause := context.Cause(ctx); cause != nil {
		reason = cause.Error()
	}

	log.DebugContext(ctx, "event stream closed", slog.String("reason", reason))
}

// RegisterRoutes mounts the event stream on rg.
func (h *EventHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/events", h.Stream)
}
