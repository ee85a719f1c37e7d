package server

import (
	"net/http"
	"testing"

	"moments/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feedPage[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func TestGetFeedItems(t *testing.T) {
	_, app := newTestServer(t)

	resp := do(t, app, call{path: "/api/feed/items"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[feedPage[models.FeedItem]](t, resp)
	assert.Equal(t, 14, page.Total)
	require.Len(t, page.Items, 14)
	assert.Equal(t, "created:moment10", page.Items[0].ID)
	assert.Equal(t, "created:moment9", page.Items[1].ID)

	paged := decode[feedPage[models.FeedItem]](t, do(t, app, call{path: "/api/feed/items?limit=5&offset=1"}))
	assert.Equal(t, 14, paged.Total)
	assert.Equal(t, 5, paged.Limit)
	require.Len(t, paged.Items, 5)
	assert.Equal(t, "created:moment9", paged.Items[0].ID)

	past := decode[feedPage[models.FeedItem]](t, do(t, app, call{path: "/api/feed/items?offset=100"}))
	assert.NotNil(t, past.Items)
	assert.Empty(t, past.Items)
}

func TestGetFollowingFeed(t *testing.T) {
	s, app := newTestServer(t)

	resp := do(t, app, call{path: "/api/feed/following"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	page := decode[feedPage[models.FeedItem]](t, do(t, app, call{
		path:  "/api/feed/following",
		token: tokenFor(t, s, "user2"),
	}))
	assert.Equal(t, 8, page.Total)
	for _, item := range page.Items {
		assert.Contains(t, []string{"user2", "user4"}, item.UserID)
	}
}

func TestGetFeedCards(t *testing.T) {
	s, app := newTestServer(t)

	page := decode[feedPage[models.FeedCard]](t, do(t, app, call{
		path:  "/api/feed/cards",
		token: tokenFor(t, s, "user1"),
	}))
	assert.Equal(t, 9, page.Total)
	require.NotEmpty(t, page.Items)
	assert.Equal(t, "moment1", page.Items[0].ID)
	assert.Equal(t, "@oddfellowscafe", page.Items[0].Host.Username)
}
