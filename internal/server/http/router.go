package httpserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RouterOptions tune the transport middleware.
type RouterOptions struct {
	// SignKey verifies bearer tokens on write routes.
	SignKey []byte
	// RateLimitPerSec caps requests per client IP (0 disables).
	RateLimitPerSec float64
	// RateBurst is the per-IP bucket size.
	RateBurst int
	// CacheTTL is how long cached GET responses stay fresh (0 disables).
	CacheTTL time.Duration
}

// NewRouter assembles the gin engine: middleware stack, public reads,
// and bearer-authenticated writes.
func NewRouter(s *Server, log *zap.Logger, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Logging(log), Recover(log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	if opts.RateLimitPerSec > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 5
		}
		api.Use(RateLimiter(rate.Limit(opts.RateLimitPerSec), burst))
	}

	api.POST("/accounts", s.RegisterAccount)
	api.POST("/sessions", s.Login)

	meter := api.Group("/meter")

	// read-only surface: no principal required, cacheable
	var caching gin.HandlerFunc
	if opts.CacheTTL > 0 {
		store := cache.New(opts.CacheTTL, 2*opts.CacheTTL)
		caching = Cache(store, opts.CacheTTL)
	} else {
		caching = func(c *gin.Context) { c.Next() }
	}
	meter.GET("/entries/:plate", caching, s.GetEntry)
	meter.GET("/operators/:addr", caching, s.GetOperator)
	meter.GET("/stats/entries", caching, s.GetTotalEntries)
	// quotes track the live clock and must never be cached
	meter.GET("/entries/:plate/fee", s.CalculateFee)

	// write surface: verified bearer principal required
	authed := meter.Group("")
	authed.Use(BearerAuth(opts.SignKey))
	authed.POST("/initialize", s.Initialize)
	authed.POST("/operators", s.RegisterOperator)
	authed.PATCH("/operators/:addr/status", s.SetOperatorStatus)
	authed.PUT("/admin", s.UpdateAdmin)
	authed.POST("/entries", s.CreateEntry)
	authed.POST("/entries/:plate/payment", s.CompletePayment)

	return r
}
