package handler

import (
	"net/http"

	"wallet-custody/internal/adapter/http/middleware"
	"wallet-custody/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	CustodySvc     ports.CustodyService
	TokenSvc       ports.TokenService
	RateLimiter    ports.RateLimiter // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	MetricsHandler http.Handler // nil = /metrics not served
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(64 << 10))

	// Health check (deep: PostgreSQL, Redis, chain node)
	r.GET("/health", HealthCheck(deps.Logger, deps.HealthCheckers...))

	if deps.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if a limiter is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimiter == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimiter, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	walletHandler := NewWalletHandler(deps.CustodySvc)

	wallets := v1.Group("/wallets", jwtAuth)
	{
		wallets.POST("", rl(middleware.GroupWalletCreate), walletHandler.Create)
		wallets.GET("/balance", rl(middleware.GroupWalletRead), walletHandler.GetBalance)
		wallets.POST("/withdraw", rl(middleware.GroupWalletWithdraw), walletHandler.Withdraw)
		wallets.GET("/transactions", rl(middleware.GroupWalletRead), walletHandler.ListTransactions)
	}

	return r
}
