package httpserver

import (
	"bytes"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const requestIDKey = "parkmeter.requestID"

// RequestID assigns each request a UUID for log correlation.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.NewV4()
		if err == nil {
			c.Set(requestIDKey, id.String())
			c.Header("X-Request-Id", id.String())
		}
		c.Next()
	}
}

// Logging emits one structured log line per request.
func Logging(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		reqID, _ := c.Get(requestIDKey)
		// metadata only, never payloads
		log.Info("http",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("dur", time.Since(start)),
			zap.String("peer", c.ClientIP()),
			zap.Any("request_id", reqID),
		)
	}
}

// Recover converts panics into 500s and logs the reason.
func Recover(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic",
					zap.Any("reason", r),
					zap.String("path", c.Request.URL.Path),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal"})
			}
		}()
		c.Next()
	}
}

// ipRateLimiter stores a token bucket per client IP.
type ipRateLimiter struct {
	ips map[string]*rate.Limiter
	mu  sync.Mutex
	r   rate.Limit
	b   int
}

func (i *ipRateLimiter) get(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()
	lim, ok := i.ips[ip]
	if !ok {
		lim = rate.NewLimiter(i.r, i.b)
		i.ips[ip] = lim
	}
	return lim
}

// RateLimiter is a middleware for per-IP rate limiting.
func RateLimiter(r rate.Limit, burst int) gin.HandlerFunc {
	limiter := &ipRateLimiter{ips: make(map[string]*rate.Limiter), r: r, b: burst}
	return func(c *gin.Context) {
		if !limiter.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limited"})
			return
		}
		c.Next()
	}
}

type cachedResponse struct {
	status int
	body   []byte
}

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Cache serves repeated GETs for read-only routes from memory. Quotes
// depend on the live clock, so fee routes must not sit behind it.
func Cache(store *cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.RequestURI
		if resp, found := store.Get(key); found {
			cached := resp.(cachedResponse)
			c.Data(cached.status, "application/json; charset=utf-8", cached.body)
			c.Abort()
			return
		}

		bcw := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = bcw
		c.Next()

		if bcw.Status() >= 200 && bcw.Status() < 300 {
			store.Set(key, cachedResponse{status: bcw.Status(), body: bcw.body.Bytes()}, ttl)
		}
	}
}
