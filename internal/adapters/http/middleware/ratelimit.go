package middleware

import (
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/jsamuelsen/daily-quote/internal/adapters/http/dto"
)

const maxTrackedClients = 1024

// RateLimiter throttles expensive endpoints (forced refresh, corpus reload) per client IP.
// Limiters for the least recently seen clients are evicted once maxTrackedClients is reached.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	clients  *lru.Cache[string, *rate.Limiter]
	now      func() time.Time
	disabled bool
}

// NewRateLimiter allows rps requests per second per client with the given burst.
// A non-positive rps disables limiting.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	clients, _ := lru.New[string, *rate.Limiter](maxTrackedClients)

	return &RateLimiter{
		limit:    rate.Limit(rps),
		burst:    max(burst, 1),
		clients:  clients,
		now:      time.Now,
		disabled: rps <= 0,
	}
}

// Allow reports whether a request from client may proceed, and otherwise how long to wait.
func (rl *RateLimiter) Allow(client string) (bool, time.Duration) {
	if rl.disabled {
		return true, 0
	}

	limiter, ok := rl.clients.Get(client)
	if !ok {
		limiter = rate.NewLimiter(rl.limit, rl.burst)
		rl.clients.Add(client, limiter)
	}

	now := rl.now()

	r := limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}

	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}

	return true, 0
}

// Middleware rejects throttled requests with 429 RATE_LIMITED and a Retry-After header.
// When only is non-nil the limiter applies just to requests for which it returns true.
func (rl *RateLimiter) Middleware(only func(*gin.Context) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if only != nil && !only(c) {
			c.Next()
			return
		}

		ok, wait := rl.Allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			dto.AbortWithCode(c, dto.ErrorCodeRateLimited, "too many requests, retry later")

			return
		}

		c.Next()
	}
}
