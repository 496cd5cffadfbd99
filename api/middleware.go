package api

import (
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/meghashyamc/lodapi/logger"
	"golang.org/x/time/rate"
)

const (
	HeaderRequestID = "X-Request-ID"

	contextKeyRequestID = "request_id"

	visitorTTL = 3 * time.Minute
)

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if len(requestID) == 0 {
			requestID = uuid.NewString()
		}
		c.Set(contextKeyRequestID, requestID)
		c.Header(HeaderRequestID, requestID)
		c.Next()
	}
}

func loggingMiddleware(logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"request_id", c.GetString(contextKeyRequestID),
		)
	}
}

func corsMiddleware(allowOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Cache-Control", "X-Requested-With", HeaderRequestID},
		ExposeHeaders: []string{"Content-Length", HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(allowOrigins) == 0 || slices.Contains(allowOrigins, "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = allowOrigins
	}

	return cors.New(config)
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter hands out one token bucket per client IP.
type clientLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	lastPrune time.Time
}

func newClientLimiter(requestsPerSecond float64, burst int) *clientLimiter {
	if burst < 1 {
		burst = 1
	}
	return &clientLimiter{
		visitors:  make(map[string]*visitor),
		limit:     rate.Limit(requestsPerSecond),
		burst:     burst,
		lastPrune: time.Now(),
	}
}

func (l *clientLimiter) allow(clientIP string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastPrune) > visitorTTL {
		for ip, v := range l.visitors {
			if now.Sub(v.lastSeen) > visitorTTL {
				delete(l.visitors, ip)
			}
		}
		l.lastPrune = now
	}

	v, ok := l.visitors[clientIP]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[clientIP] = v
	}
	v.lastSeen = now

	return v.limiter.Allow()
}

// rateLimitMiddleware is a no-op when requestsPerSecond is not positive.
func rateLimitMiddleware(logger logger.Logger, requestsPerSecond float64, burst int) gin.HandlerFunc {
	if requestsPerSecond <= 0 {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	limiter := newClientLimiter(requestsPerSecond, burst)
	return func(c *gin.Context) {
		if c.FullPath() == healthPath || c.FullPath() == metricsPath {
			c.Next()
			return
		}

		if !limiter.allow(c.ClientIP()) {
			logger.Warn("rate limit exceeded", "client_ip", c.ClientIP(), "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"data":   nil,
				"errors": []string{"too many requests, please try again later"},
			})
			return
		}

		c.Next()
	}
}
