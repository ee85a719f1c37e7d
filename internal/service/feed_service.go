package service

import (
	"cmp"
	"context"
	"slices"

	"moments/internal/cache"
	"moments/internal/humanize"
	"moments/internal/models"
	"moments/internal/observability"
	"moments/internal/store"

	"go.opentelemetry.io/otel/attribute"
)

type FeedService struct {
	core
}

func NewFeedService(deps Deps) *FeedService {
	return &FeedService{core: newCore(deps)}
}

type rankedItem struct {
	item models.FeedItem
	rank int
	seq  int
}

func typeRank(t models.FeedItemType) int {
	if t == models.FeedItemCreated {
		return 0
	}
	return 1
}

// GetFeedItems merges one "created" item per moment with one "rsvpd" item per
// RSVP, newest first. Items sharing a timestamp list "created" before
// "rsvpd", then by insertion order of their relation, then by id. Items whose
// actor cannot be resolved are left out, as are RSVP items whose moment is
// missing.
func (s *FeedService) GetFeedItems(ctx context.Context) []models.FeedItem {
	defer observability.TrackQuery("get_feed_items")()
	snap := s.snapshot()

	if s.cache == nil {
		return buildFeedItems(snap)
	}

	var items []models.FeedItem
	err := s.cache.Aside(ctx, cache.FeedItemsKey(snap.Epoch(), snap.Version()), &items, s.ttl(cache.FeedItemsTTL), func() error {
		items = buildFeedItems(snap)
		return nil
	})
	if err != nil || items == nil {
		return buildFeedItems(snap)
	}
	return items
}

func buildFeedItems(snap *store.Snapshot) []models.FeedItem {
	moments := snap.Moments()
	rsvps := snap.RSVPs()

	ranked := make([]rankedItem, 0, len(moments)+len(rsvps))
	for i := range moments {
		if _, ok := snap.User(moments[i].HostID); !ok {
			continue
		}
		ranked = append(ranked, rankedItem{item: models.CreatedFeedItem(&moments[i]), seq: i})
	}
	for i := range rsvps {
		r := &rsvps[i]
		m, ok := snap.Moment(r.MomentID)
		if !ok {
			continue
		}
		if _, ok := snap.User(r.UserID); !ok {
			continue
		}
		ranked = append(ranked, rankedItem{item: models.RSVPFeedItem(r, &m), rank: 1, seq: i})
	}

	slices.SortFunc(ranked, func(a, b rankedItem) int {
		if c := b.item.CreatedAt.Compare(a.item.CreatedAt); c != 0 {
			return c
		}
		if c := cmp.Compare(a.rank, b.rank); c != 0 {
			return c
		}
		if c := cmp.Compare(a.seq, b.seq); c != 0 {
			return c
		}
		return cmp.Compare(a.item.ID, b.item.ID)
	})

	out := make([]models.FeedItem, len(ranked))
	for i, r := range ranked {
		out[i] = r.item
	}
	return out
}

// GetFollowingFeed narrows the feed to items whose actor is the session's
// user or someone that user follows.
func (s *FeedService) GetFollowingFeed(ctx context.Context, session models.Session) ([]models.FeedItem, error) {
	if !session.IsAuthenticated() {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	defer observability.TrackQuery("get_following_feed")()

	snap := s.snapshot()
	items := s.GetFeedItems(ctx)
	out := make([]models.FeedItem, 0, len(items))
	for _, item := range items {
		if item.UserID == session.UserID || snap.HasFollow(session.UserID, item.UserID) {
			out = append(out, item)
		}
	}
	return out, nil
}

// GetFeedCards lists upcoming moments in insertion order as cards
// personalised for the session. Moments whose host cannot be resolved are
// left out.
func (s *FeedService) GetFeedCards(ctx context.Context, session models.Session) []models.FeedCard {
	defer observability.TrackQuery("get_feed_cards")()
	span, ctx := observability.StartServiceSpan(ctx, "FeedService", "GetFeedCards")
	defer span.End()

	snap := s.snapshot()
	now := s.now()
	viewer := session.UserID

	cards := make([]models.FeedCard, 0)
	for _, m := range s.status.ApplyAll(snap.Moments()) {
		if m.Status != models.MomentStatusUpcoming {
			continue
		}
		host, ok := snap.User(m.HostID)
		if !ok {
			continue
		}

		card := models.FeedCard{
			ID:          m.ID,
			Title:       m.Title,
			Description: m.Description,
			Date:        m.Date,
			Location:    m.Location,
			MaxCapacity: m.MaxCapacity,
			Host: models.HostCard{
				ID:                host.ID,
				Username:          "@" + host.Username,
				Name:              host.Name,
				Verified:          host.IsBusinessAccount,
				ProfilePictureURL: host.ProfilePictureURL,
			},
			Metadata: models.FeedCardMetadata{
				CreatedAt:  m.CreatedAt,
				TimeAgo:    humanize.RelativeTime(m.CreatedAt, now),
				RSVPCounts: rsvpCounts(snap, m.ID),
			},
		}
		if session.IsAuthenticated() {
			card.IsHost = m.HostID == viewer
			if r, ok := snap.RSVPFor(viewer, m.ID); ok {
				card.ViewerRSVP = r.Status
			}
			card.FollowingHost = !card.IsHost && snap.HasFollow(viewer, m.HostID)
		}
		cards = append(cards, card)
	}

	span.AddAttributes(attribute.Int("feed.cards", len(cards)))
	return cards
}
