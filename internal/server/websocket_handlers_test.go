package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWebSocketFeed_RequiresToken(t *testing.T) {
	_, app := newTestServer(t)

	resp := do(t, app, call{path: "/api/ws/feed"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, app, call{path: "/api/ws/feed?token=not-a-token"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocketFeed_RequiresUpgrade(t *testing.T) {
	s, app := newTestServer(t)

	resp := do(t, app, call{path: "/api/ws/feed?token=" + tokenFor(t, s, "user1")})
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}
