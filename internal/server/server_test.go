package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"moments/internal/config"
	"moments/internal/models"
	"moments/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:              "0",
		Env:               "test",
		JWTSecret:         "test-secret",
		SessionTTLMinutes: 60,
		FeatureFlags:      "moment_writes=on,live_feed=on",
		SeedSource:        config.SeedSourceBuiltin,
		StatusMode:        config.StatusModeStored,
		WriteQueueSize:    8,
	}
}

// newTestServer builds a server over the builtin dataset with a running
// store writer.
func newTestServer(t *testing.T, mutate ...func(*config.Config)) (*Server, *fiber.App) {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	st, err := OpenStore(ctx, cfg, nil)
	require.NoError(t, err)
	go st.Run(ctx)

	s := NewServerWithDeps(cfg, Dependencies{Store: st})
	return s, s.App()
}

func tokenFor(t *testing.T, s *Server, userID string) string {
	t.Helper()
	token, err := s.auth.IssueToken(userID)
	require.NoError(t, err)
	return token
}

type call struct {
	method string
	path   string
	token  string
	body   any
}

func do(t *testing.T, app *fiber.App, c call) *http.Response {
	t.Helper()
	var body io.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	method := c.method
	if method == "" {
		method = http.MethodGet
	}
	req := httptest.NewRequest(method, c.path, body)
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthChecks(t *testing.T) {
	_, app := newTestServer(t)

	resp := do(t, app, call{path: "/health/live"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, app, call{path: "/health/ready"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "healthy", body["status"])
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "disabled", checks["database"])
	assert.Equal(t, "disabled", checks["redis"])
	assert.Equal(t, float64(0), body["snapshot_version"])
}

func TestRequestIDAndTraceHeaders(t *testing.T) {
	_, app := newTestServer(t)

	resp := do(t, app, call{path: "/api/users/user1"})
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))
}

func TestGetFeatureFlags(t *testing.T) {
	s, app := newTestServer(t, func(c *config.Config) {
		c.FeatureFlags = "moment_writes=on,live_feed=off"
	})

	resp := do(t, app, call{path: "/api/feature-flags", token: tokenFor(t, s, "user1")})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[struct {
		Raw       map[string]string `json:"raw"`
		Evaluated map[string]bool   `json:"evaluated"`
	}](t, resp)
	assert.Equal(t, "off", body.Raw["live_feed"])
	assert.True(t, body.Evaluated["moment_writes"])
	assert.False(t, body.Evaluated["live_feed"])
}

func TestUnknownRoute(t *testing.T) {
	_, app := newTestServer(t)
	resp := do(t, app, call{path: "/api/nothing-here"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_ShutdownStopsWriterAfterHTTP(t *testing.T) {
	cfg := testConfig()
	st, err := OpenStore(context.Background(), cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		st.Run(ctx)
		close(stopped)
	}()

	s := NewServerWithDeps(cfg, Dependencies{Store: st})
	s.app = s.App()
	s.shutdownFn = cancel

	_, err = s.userService.Follow(context.Background(), models.Session{UserID: "user1"}, "user4")
	require.NoError(t, err)

	require.NoError(t, s.Shutdown(context.Background()))
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("store writer still running after shutdown")
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.userService.Follow(context.Background(), models.Session{UserID: "user2"}, "user1")
		done <- err
	}()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, store.ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("write after shutdown never returned")
	}
}
