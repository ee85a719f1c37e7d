package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"moments/internal/models"
	"moments/internal/seed"
	"moments/internal/store"

	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)

type staticSource struct {
	snap *store.Snapshot
}

func (s staticSource) Snapshot() *store.Snapshot { return s.snap }

type publisherStub struct {
	mu    sync.Mutex
	items []models.FeedItem
	err   error
}

func (p *publisherStub) PublishFeedItem(_ context.Context, item models.FeedItem) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = append(p.items, item)
	return p.err
}

type gateStub struct {
	enabledFn func(key, userID string) bool
}

func (g gateStub) EnabledForUser(key, userID string) bool {
	return g.enabledFn(key, userID)
}

type cacheStub struct {
	keys  []string
	err   error
	calls int
}

func (c *cacheStub) Aside(_ context.Context, key string, _ any, _ time.Duration, fetch func() error) error {
	c.calls++
	c.keys = append(c.keys, key)
	if c.err != nil {
		return c.err
	}
	return fetch()
}

func builtinSnapshot(t *testing.T) *store.Snapshot {
	t.Helper()
	ds, err := seed.Builtin()
	require.NoError(t, err)
	snap, err := store.Load(ds, store.LoadOptions{})
	require.NoError(t, err)
	return snap
}

func load(t *testing.T, ds *models.Dataset) *store.Snapshot {
	t.Helper()
	snap, err := store.Load(ds, store.LoadOptions{})
	require.NoError(t, err)
	return snap
}

func readDeps(snap *store.Snapshot) Deps {
	return Deps{
		Source: staticSource{snap: snap},
		Status: StatusResolver{Mode: StatusStored},
		Now:    func() time.Time { return t0 },
	}
}

// runningStore starts a store over ds and returns deps wired for writes.
func runningStore(t *testing.T, ds *models.Dataset, pub *publisherStub) (*store.Store, Deps) {
	t.Helper()
	st := store.New(load(t, ds))
	ctx, cancel := context.WithCancel(context.Background())
	go st.Run(ctx)
	t.Cleanup(cancel)

	deps := Deps{
		Source: st,
		Writer: st,
		Status: StatusResolver{Mode: StatusStored},
		Now:    func() time.Time { return t0 },
	}
	if pub != nil {
		deps.Publisher = pub
	}
	return st, deps
}

func scenarioDataset() *models.Dataset {
	return &models.Dataset{
		Users: []models.User{
			{ID: "u1", Username: "hosty", Name: "Host"},
			{ID: "u2", Username: "guesty", Name: "Guest"},
		},
		Moments: []models.Moment{
			{ID: "m1", HostID: "u1", Title: "Launch", Date: t0.Add(24 * time.Hour), MaxCapacity: 5, Location: "HQ", Status: models.MomentStatusUpcoming, CreatedAt: t0.Add(-time.Hour)},
		},
		RSVPs: []models.RSVP{
			{ID: "r1", UserID: "u2", MomentID: "m1", Status: models.RSVPStatusGoing, CreatedAt: t0},
		},
	}
}

func momentIDs(ms []models.Moment) []string {
	ids := make([]string, len(ms))
	for i, m := range ms {
		ids[i] = m.ID
	}
	return ids
}

func userIDs(us []models.User) []string {
	ids := make([]string, len(us))
	for i, u := range us {
		ids[i] = u.ID
	}
	return ids
}

var errBoom = errors.New("boom")
