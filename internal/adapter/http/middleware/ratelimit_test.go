package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wallet-custody/internal/adapter/http/middleware"
	redisStore "wallet-custody/internal/adapter/storage/redis"
	"wallet-custody/internal/core/ports"
	"wallet-custody/internal/core/ports/mocks"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

// setupRateLimitRouter simulates JWTAuth by taking the user from a header.
func setupRateLimitRouter(limiter ports.RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	rule := middleware.RateLimitRule{Limit: 3, Window: time.Minute}
	log := zerolog.Nop()

	asUser := func(c *gin.Context) {
		if id := c.GetHeader("X-Test-User"); id != "" {
			c.Set(middleware.CtxUserID, id)
		}
		c.Next()
	}

	r.GET("/test", asUser, middleware.RateLimiter(limiter, "test", rule, log), func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	return r
}

func newStore(t *testing.T) *redisStore.RateLimitStore {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return redisStore.NewRateLimitStore(client)
}

func doRequest(router *gin.Engine, user string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), "GET", "/test", nil)
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	router := setupRateLimitRouter(newStore(t))

	for i := 0; i < 3; i++ {
		w := doRequest(router, "")
		assert.Equal(t, 200, w.Code, "request %d should succeed", i+1)
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	router := setupRateLimitRouter(newStore(t))

	// Use up the limit
	for i := 0; i < 3; i++ {
		assert.Equal(t, 200, doRequest(router, "alice").Code)
	}

	// 4th request should be blocked
	w := doRequest(router, "alice")
	assert.Equal(t, 429, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_001")
}

func TestRateLimiter_CountsPerUser(t *testing.T) {
	router := setupRateLimitRouter(newStore(t))

	// User A uses up the limit
	for i := 0; i < 3; i++ {
		assert.Equal(t, 200, doRequest(router, "alice").Code)
	}
	assert.Equal(t, 429, doRequest(router, "alice").Code)

	// User B should still be allowed (independent counter)
	assert.Equal(t, 200, doRequest(router, "bob").Code)
}

func TestRateLimiter_DegradedModeAllows(t *testing.T) {
	ctrl := gomock.NewController(t)
	limiter := mocks.NewMockRateLimiter(ctrl)
	limiter.EXPECT().
		Allow(gomock.Any(), "user:alice:test", int64(3), time.Minute).
		Return(nil, errors.New("connection refused"))

	router := setupRateLimitRouter(limiter)
	w := doRequest(router, "alice")
	assert.Equal(t, 200, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}

func TestDefaultRateLimitRules(t *testing.T) {
	rules := middleware.DefaultRateLimitRules()
	assert.Equal(t, int64(5), rules[middleware.GroupWalletCreate].Limit)
	assert.Equal(t, time.Hour, rules[middleware.GroupWalletCreate].Window)
	assert.Equal(t, int64(10), rules[middleware.GroupWalletWithdraw].Limit)
	assert.Equal(t, int64(60), rules[middleware.GroupWalletRead].Limit)
}
