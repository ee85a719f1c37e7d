package middleware

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCheckRateLimit(t *testing.T) {
	mr, rdb := setupRedis(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := CheckRateLimit(ctx, rdb, "search", "ip:1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d", i+1)
	}
	allowed, err := CheckRateLimit(ctx, rdb, "search", "ip:1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	// Separate identities have separate windows.
	allowed, err = CheckRateLimit(ctx, rdb, "search", "ip:2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	mr.FastForward(time.Minute + time.Second)
	allowed, err = CheckRateLimit(ctx, rdb, "search", "ip:1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestCheckRateLimit_NilClient(t *testing.T) {
	_, err := CheckRateLimit(context.Background(), nil, "search", "ip:1", 3, time.Minute)
	assert.Error(t, err)
}

func TestRateLimitMiddleware(t *testing.T) {
	_, rdb := setupRedis(t)

	app := fiber.New()
	app.Get("/api/search", RateLimit(rdb, 2, time.Minute, "search"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/search", nil))
		require.NoError(t, err)
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{fiber.StatusOK, fiber.StatusOK, fiber.StatusTooManyRequests}, codes)
}

func TestRateLimitMiddleware_KeysByUser(t *testing.T) {
	mr, rdb := setupRedis(t)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(LocalUserID, c.Get("X-User"))
		return c.Next()
	})
	app.Get("/api/feed", RateLimit(rdb, 1, time.Minute, "feed"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for _, user := range []string{"user1", "user2"} {
		req := httptest.NewRequest("GET", "/api/feed", nil)
		req.Header.Set("X-User", user)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
	assert.True(t, mr.Exists("rl:feed:user:user1"))
	assert.True(t, mr.Exists("rl:feed:user:user2"))
}

func TestRateLimitMiddleware_FailPolicies(t *testing.T) {
	mr, rdb := setupRedis(t)
	mr.Close()

	tests := []struct {
		name       string
		client     *redis.Client
		policy     FailPolicy
		wantStatus int
	}{
		{"open on redis error", rdb, FailOpen, fiber.StatusOK},
		{"closed on redis error", rdb, FailClosed, fiber.StatusServiceUnavailable},
		{"open without redis", nil, FailOpen, fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", RateLimitWithPolicy(tt.client, 5, time.Minute, tt.policy), func(c *fiber.Ctx) error {
				return c.SendStatus(fiber.StatusOK)
			})
			resp, err := app.Test(httptest.NewRequest("GET", "/", nil), 5000)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestRateLimitMiddleware_DisabledWithZeroLimit(t *testing.T) {
	app := fiber.New()
	app.Get("/", RateLimit(nil, 0, time.Minute), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
