// Package service implements the aggregation queries and write commands over
// the users, moments, RSVPs and follows held by the store.
package service

import (
	"context"
	"log/slog"
	"time"

	"moments/internal/models"
	"moments/internal/observability"
	"moments/internal/store"
)

// Feature flag keys consulted by the services.
const (
	FlagMomentWrites = "moment_writes"
	FlagLiveFeed     = "live_feed"
)

// SnapshotSource hands out the snapshot a query reads from.
type SnapshotSource interface {
	Snapshot() *store.Snapshot
}

// Writer applies write commands through the store's single writer.
type Writer interface {
	InsertMoment(ctx context.Context, m models.Moment) (models.Moment, uint64, error)
	InsertRSVP(ctx context.Context, r models.RSVP) (models.RSVP, uint64, error)
	InsertFollow(ctx context.Context, f models.Follow) (models.Follow, uint64, error)
}

// FeedPublisher pushes a freshly written feed item to live subscribers.
type FeedPublisher interface {
	PublishFeedItem(ctx context.Context, item models.FeedItem) error
}

// FeatureGate decides whether a feature is on for a user.
type FeatureGate interface {
	EnabledForUser(key, userID string) bool
}

// ResultCache is a cache-aside store for computed results.
type ResultCache interface {
	Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error
}

// Deps wires the services. Only Source is required: a nil Writer disables
// writes, a nil Gate enables every feature, a nil Cache computes every
// result and a nil Publisher skips live delivery.
type Deps struct {
	Source    SnapshotSource
	Writer    Writer
	Publisher FeedPublisher
	Gate      FeatureGate
	Cache     ResultCache
	Status    StatusResolver
	CacheTTL  time.Duration
	Now       func() time.Time
}

type core struct {
	source    SnapshotSource
	writer    Writer
	publisher FeedPublisher
	gate      FeatureGate
	cache     ResultCache
	status    StatusResolver
	cacheTTL  time.Duration
	now       func() time.Time
	logger    *observability.StructuredLogger
}

func newCore(d Deps) core {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	status := d.Status
	if status.Now == nil {
		status.Now = now
	}
	return core{
		source:    d.Source,
		writer:    d.Writer,
		publisher: d.Publisher,
		gate:      d.Gate,
		cache:     d.Cache,
		status:    status,
		cacheTTL:  d.CacheTTL,
		now:       now,
		logger:    observability.NewStructuredLogger(),
	}
}

func (c *core) snapshot() *store.Snapshot {
	return c.source.Snapshot()
}

func (c *core) enabled(key, userID string) bool {
	if c.gate == nil {
		return true
	}
	return c.gate.EnabledForUser(key, userID)
}

func (c *core) ttl(fallback time.Duration) time.Duration {
	if c.cacheTTL > 0 {
		return c.cacheTTL
	}
	return fallback
}

// requireWriter checks that session may write and that its user still exists.
func (c *core) requireWriter(snap *store.Snapshot, session models.Session) error {
	if !session.IsAuthenticated() {
		return models.NewUnauthorizedError("Authentication required")
	}
	if !c.enabled(FlagMomentWrites, session.UserID) {
		return models.NewForbiddenError("Writes are not enabled for this account")
	}
	if c.writer == nil {
		return models.NewForbiddenError("Writes are disabled on this server")
	}
	if _, ok := snap.User(session.UserID); !ok {
		return models.NewUnauthorizedError("Session user no longer exists")
	}
	return nil
}

// publish delivers item to live subscribers. Failures are logged, not returned:
// the write has already been committed.
func (c *core) publish(ctx context.Context, item models.FeedItem) {
	if c.publisher == nil || !c.enabled(FlagLiveFeed, item.UserID) {
		return
	}
	if err := c.publisher.PublishFeedItem(ctx, item); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "failed to publish feed item",
			slog.String("item_id", item.ID),
			slog.String("error", err.Error()),
		)
	}
}
