package handlers

import (
	"net/http"
	"sync"
	"time"

	"fabrino-server/metrics"
	"fabrino-server/services"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

const (
	SessionHeader  = "X-Session-ID"
	SessionCookie  = "fabrino_session"
	AdminKeyHeader = "X-Admin-Key"

	sessionKey = "session"
)

// SessionMiddleware attaches the caller's session, minting one when the
// request carries no known id. The id is echoed in a header and a cookie.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(SessionHeader)
		if id == "" {
			id, _ = c.Cookie(SessionCookie)
		}
		if id == "" {
			id = c.Query("session_id")
		}

		sess, created := sessions.Open(id)
		if created {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookie, sess.ID, int(sessionTTL.Seconds()), "/", "", secureCookie, true)
		}
		c.Header(SessionHeader, sess.ID)
		c.Set(sessionKey, sess)
		c.Next()
	}
}

func currentSession(c *gin.Context) *services.Session {
	return c.MustGet(sessionKey).(*services.Session)
}

// RequestLogger logs each request and records it in the HTTP metrics.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		latency := time.Since(start)
		status := c.Writer.Status()
		metrics.RecordHTTPRequest(c.Request.Method, path, status, latency)

		entry := log.WithFields(log.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency_ms": latency.Milliseconds(),
			"session_id": c.Writer.Header().Get(SessionHeader),
		})
		switch {
		case status >= 500:
			entry.Error("Request completed")
		case status >= 400:
			entry.Warn("Request completed")
		default:
			entry.Info("Request completed")
		}
	}
}

// AdminMiddleware checks X-Admin-Key against the configured bcrypt hash.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKeyHash == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Admin access is not configured"})
			c.Abort()
			return
		}

		key := c.GetHeader(AdminKeyHeader)
		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Admin key required"})
			c.Abort()
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(adminKeyHash), []byte(key)); err != nil {
			log.WithField("client_ip", c.ClientIP()).Warn("Rejected admin key")
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RateLimiter hands out one token bucket per session.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	maxKeys  int
}

// NewRateLimiter allows perMinute requests per session, in bursts of up to
// perMinute. A non-positive perMinute disables limiting.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		return &RateLimiter{rate: rate.Inf}
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		maxKeys:  10000,
	}
}

// Allow reports whether key may make another request now.
func (rl *RateLimiter) Allow(key string) bool {
	if rl.rate == rate.Inf {
		return true
	}

	rl.mu.Lock()
	limiter, exists := rl.limiters[key]
	if !exists {
		if len(rl.limiters) >= rl.maxKeys {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	rl.mu.Unlock()

	return limiter.Allow()
}

// RateLimit rejects requests beyond the session's allowance with 429.
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := currentSession(c)
		if !rl.Allow(sess.ID) {
			log.WithFields(log.Fields{"session_id": sess.ID, "path": c.Request.URL.Path}).Warn("Rate limit exceeded")
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, try again shortly"})
			c.Abort()
			return
		}
		c.Next()
	}
}
