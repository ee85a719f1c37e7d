package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestCache(t *testing.T) (*JSONCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewJSONCache(rdb, "test"), mr
}

func TestJSONCache_AsideFetchesOnceThenHits(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *payload) func() error {
		return func() error {
			calls++
			*dest = payload{Name: "feed", Count: 3}
			return nil
		}
	}

	var first payload
	require.NoError(t, c.Aside(ctx, "k", &first, time.Minute, fetch(&first)))
	assert.Equal(t, payload{Name: "feed", Count: 3}, first)
	assert.True(t, mr.Exists("k"))

	var second payload
	require.NoError(t, c.Aside(ctx, "k", &second, time.Minute, fetch(&second)))
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	mr.FastForward(2 * time.Minute)
	var third payload
	require.NoError(t, c.Aside(ctx, "k", &third, time.Minute, fetch(&third)))
	assert.Equal(t, 2, calls)
}

func TestJSONCache_FetchErrorIsReturned(t *testing.T) {
	c, mr := newTestCache(t)
	var dest payload
	err := c.Aside(context.Background(), "k", &dest, time.Minute, func() error {
		return errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
	assert.False(t, mr.Exists("k"))
}

func TestJSONCache_CorruptEntryFallsBackToFetch(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("k", "{not json"))

	var dest payload
	err := c.Aside(context.Background(), "k", &dest, time.Minute, func() error {
		dest = payload{Name: "fresh"}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", dest.Name)
}

func TestJSONCache_NilClientAlwaysFetches(t *testing.T) {
	c := NewJSONCache(nil, "none")
	calls := 0
	var dest payload
	for i := 0; i < 2; i++ {
		require.NoError(t, c.Aside(context.Background(), "k", &dest, time.Minute, func() error {
			calls++
			return nil
		}))
	}
	assert.Equal(t, 2, calls)

	var nilCache *JSONCache
	found, err := nilCache.GetJSON(context.Background(), "k", &dest)
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestInitRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := InitRedis(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	_ = client.Close()

	client, err = InitRedis(context.Background(), mr.Addr())
	require.NoError(t, err)
	_ = client.Close()

	_, err = InitRedis(context.Background(), "redis://%zz")
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "feed:items:e1:v3", FeedItemsKey("e1", 3))
	assert.NotEqual(t, FeedItemsKey("e1", 3), FeedItemsKey("e2", 3))

	a := SearchKey("e1", 1, "all", "hello")
	b := SearchKey("e1", 2, "all", "hello")
	c := SearchKey("e1", 1, "users", "hello")
	d := SearchKey("e2", 1, "all", "hello")
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.Equal(t, a, SearchKey("e1", 1, "all", "hello"))
}
