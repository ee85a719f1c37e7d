package service

import (
	"context"
	"fmt"
	"strings"

	"moments/internal/models"
	"moments/internal/observability"
	"moments/internal/store"

	"github.com/google/uuid"
)

type UserService struct {
	core
}

func NewUserService(deps Deps) *UserService {
	return &UserService{core: newCore(deps)}
}

// GetUser returns the user with id. Absence is not an error.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, bool) {
	defer observability.TrackQuery("get_user")()
	u, ok := s.snapshot().User(id)
	if !ok {
		return nil, false
	}
	return &u, true
}

// GetUserByUsername looks a user up ignoring case and a leading "@". Callers
// that treat absence as a failure should return models.NewNotFoundError.
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*models.User, bool) {
	defer observability.TrackQuery("get_user_by_username")()
	u, ok := s.snapshot().UserByUsername(username)
	if !ok {
		return nil, false
	}
	return &u, true
}

// GetFollowers resolves the edges pointing at userID, dropping any whose
// follower no longer exists.
func (s *UserService) GetFollowers(ctx context.Context, userID string) []models.User {
	defer observability.TrackQuery("get_followers")()
	snap := s.snapshot()
	return resolveUsers(snap, snap.FollowsTo(userID), func(f models.Follow) string { return f.FollowerID })
}

// GetFollowing resolves the edges leaving userID, dropping any whose target no
// longer exists.
func (s *UserService) GetFollowing(ctx context.Context, userID string) []models.User {
	defer observability.TrackQuery("get_following")()
	snap := s.snapshot()
	return resolveUsers(snap, snap.FollowsFrom(userID), func(f models.Follow) string { return f.FollowedID })
}

func resolveUsers(snap *store.Snapshot, edges []models.Follow, pick func(models.Follow) string) []models.User {
	out := make([]models.User, 0, len(edges))
	for _, f := range edges {
		if u, ok := snap.User(pick(f)); ok {
			out = append(out, u)
		}
	}
	return out
}

// GetFollowCounts counts raw edges, whether or not the other end resolves.
func (s *UserService) GetFollowCounts(ctx context.Context, userID string) models.FollowCounts {
	defer observability.TrackQuery("get_follow_counts")()
	return followCounts(s.snapshot(), userID)
}

func followCounts(snap *store.Snapshot, userID string) models.FollowCounts {
	return models.FollowCounts{
		Followers: snap.FollowerCount(userID),
		Following: snap.FollowingCount(userID),
	}
}

func (s *UserService) IsFollowing(ctx context.Context, followerID, followedID string) bool {
	defer observability.TrackQuery("is_following")()
	return s.snapshot().HasFollow(followerID, followedID)
}

// GetProfile assembles a user's profile as seen by the session's user.
func (s *UserService) GetProfile(ctx context.Context, session models.Session, username string) (*models.Profile, bool) {
	defer observability.TrackQuery("get_profile")()
	span, ctx := observability.StartServiceSpan(ctx, "UserService", "GetProfile")
	defer span.End()

	snap := s.snapshot()
	u, ok := snap.UserByUsername(username)
	if !ok {
		return nil, false
	}
	s.logger.LogServiceCall(ctx, "UserService", "GetProfile", map[string]interface{}{
		"user_id":   u.ID,
		"viewer_id": session.UserID,
	})

	profile := &models.Profile{
		User:    u,
		Counts:  followCounts(snap, u.ID),
		Moments: partitionMoments(snap, s.status, u.ID),
		IsSelf:  session.UserID == u.ID,
	}
	if session.IsAuthenticated() && !profile.IsSelf {
		profile.IsFollowing = snap.HasFollow(session.UserID, u.ID)
	}
	return profile, true
}

// Follow records that the session's user follows targetID.
func (s *UserService) Follow(ctx context.Context, session models.Session, targetID string) (*models.Follow, error) {
	span, ctx := observability.StartServiceSpan(ctx, "UserService", "Follow")
	defer span.End()

	snap := s.snapshot()
	if err := s.requireWriter(snap, session); err != nil {
		span.SetError(err)
		return nil, err
	}

	targetID = strings.TrimSpace(targetID)
	if targetID == session.UserID {
		return nil, models.NewValidationError("You cannot follow yourself")
	}
	if _, ok := snap.User(targetID); !ok {
		return nil, models.NewNotFoundError("User", targetID)
	}
	if snap.HasFollow(session.UserID, targetID) {
		return nil, models.NewConflictError(fmt.Sprintf("already following user %q", targetID))
	}

	follow, version, err := s.writer.InsertFollow(ctx, models.Follow{
		ID:         uuid.NewString(),
		FollowerID: session.UserID,
		FollowedID: targetID,
		CreatedAt:  s.now().UTC(),
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	s.logger.LogServiceCall(ctx, "UserService", "Follow", map[string]interface{}{
		"follower_id": follow.FollowerID,
		"followed_id": follow.FollowedID,
		"version":     version,
	})
	return &follow, nil
}
