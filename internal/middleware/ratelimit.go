package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/trialiq-server/internal/domain"
)

const (
	maxTrackedClients = 10000
	clientIdleTTL     = 10 * time.Minute
)

// RateLimiter hands out a token bucket per client IP.
type RateLimiter struct {
	mu      sync.Mutex
	clients *expirable.LRU[string, *rate.Limiter]
	limit   rate.Limit
	burst   int
	log     *logrus.Logger
}

// NewRateLimiter creates a limiter allowing rps requests per second per client
// with the given burst.
func NewRateLimiter(rps float64, burst int, logger *logrus.Logger) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		clients: expirable.NewLRU[string, *rate.Limiter](maxTrackedClients, nil, clientIdleTTL),
		limit:   rate.Limit(rps),
		burst:   burst,
		log:     logger,
	}
}

// Allow consumes one token for client.
func (rl *RateLimiter) Allow(client string) bool {
	return rl.limiter(client).Allow()
}

func (rl *RateLimiter) limiter(client string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if l, ok := rl.clients.Get(client); ok {
		return l
	}
	l := rate.NewLimiter(rl.limit, rl.burst)
	rl.clients.Add(client, l)
	return l
}

// Middleware rejects requests over the client's budget with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		client := c.ClientIP()
		if rl.Allow(client) {
			c.Next()
			return
		}

		rl.log.WithFields(logrus.Fields{
			"client_ip":      client,
			"path":           c.FullPath(),
			"correlation_id": c.GetString(CorrelationIDKey),
		}).Warn("Request denied: rate limit exceeded")

		retryAfter := 1
		if rl.limit > 0 {
			retryAfter = int(time.Duration(float64(time.Second)/float64(rl.limit)).Seconds()) + 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, domain.NewAPIError(
			domain.ErrCodeRateLimit, "too many requests", "", c.GetString(CorrelationIDKey),
		))
	}
}

// RateLimit is a convenience wrapper returning the middleware for cfg. A
// disabled config yields a pass-through handler.
func RateLimit(cfg domain.RateLimitConfig, logger *logrus.Logger) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst, logger).Middleware()
}
