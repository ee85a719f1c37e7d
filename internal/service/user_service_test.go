package service

import (
	"context"
	"testing"

	"moments/internal/models"
	"moments/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_GetUser(t *testing.T) {
	svc := NewUserService(readDeps(builtinSnapshot(t)))
	ctx := context.Background()

	u, ok := svc.GetUser(ctx, "user4")
	require.True(t, ok)
	assert.Equal(t, "oddfellowscafe", u.Username)

	u, ok = svc.GetUser(ctx, "nobody")
	assert.False(t, ok)
	assert.Nil(t, u)
}

func TestUserService_GetUserByUsername(t *testing.T) {
	svc := NewUserService(readDeps(builtinSnapshot(t)))
	ctx := context.Background()

	for _, name := range []string{"jdog", "JDog", "@JDOG", "  jdog "} {
		u, ok := svc.GetUserByUsername(ctx, name)
		require.True(t, ok, name)
		assert.Equal(t, "user2", u.ID)
	}

	_, ok := svc.GetUserByUsername(ctx, "ghost")
	assert.False(t, ok)
}

func TestUserService_GetFollowers_InsertionOrder(t *testing.T) {
	svc := NewUserService(readDeps(builtinSnapshot(t)))
	followers := svc.GetFollowers(context.Background(), "user4")
	assert.Equal(t, []string{"user2", "user3"}, userIDs(followers))

	following := svc.GetFollowing(context.Background(), "user1")
	assert.Equal(t, []string{"user2", "user3"}, userIDs(following))

	assert.Empty(t, svc.GetFollowers(context.Background(), "user1"))
	assert.NotNil(t, svc.GetFollowers(context.Background(), "user1"))
}

func TestUserService_FollowCountsMatchResolvedLists(t *testing.T) {
	snap := builtinSnapshot(t)
	svc := NewUserService(readDeps(snap))
	ctx := context.Background()

	for _, u := range snap.Users() {
		counts := svc.GetFollowCounts(ctx, u.ID)
		assert.Equal(t, len(svc.GetFollowers(ctx, u.ID)), counts.Followers, u.ID)
		assert.Equal(t, len(svc.GetFollowing(ctx, u.ID)), counts.Following, u.ID)
	}
}

func TestUserService_DanglingEdgesCountButDoNotResolve(t *testing.T) {
	ds := &models.Dataset{
		Users: []models.User{
			{ID: "a", Username: "alice", Name: "Alice"},
			{ID: "b", Username: "bob", Name: "Bob"},
		},
		Follows: []models.Follow{
			{ID: "f1", FollowerID: "a", FollowedID: "b", CreatedAt: t0},
			{ID: "f2", FollowerID: "gone", FollowedID: "b", CreatedAt: t0},
		},
	}
	snap, err := store.Load(ds, store.LoadOptions{AllowDangling: true})
	require.NoError(t, err)

	svc := NewUserService(readDeps(snap))
	ctx := context.Background()

	counts := svc.GetFollowCounts(ctx, "b")
	followers := svc.GetFollowers(ctx, "b")
	assert.Equal(t, 2, counts.Followers)
	assert.Equal(t, []string{"a"}, userIDs(followers))
	assert.GreaterOrEqual(t, counts.Followers, len(followers))
}

func TestUserService_IsFollowingMatchesEdges(t *testing.T) {
	snap := builtinSnapshot(t)
	svc := NewUserService(readDeps(snap))
	ctx := context.Background()

	edges := make(map[[2]string]bool)
	for _, f := range snap.Follows() {
		edges[[2]string{f.FollowerID, f.FollowedID}] = true
	}
	for _, a := range snap.Users() {
		for _, b := range snap.Users() {
			assert.Equal(t, edges[[2]string{a.ID, b.ID}], svc.IsFollowing(ctx, a.ID, b.ID), "%s -> %s", a.ID, b.ID)
		}
	}
}

func TestUserService_GetProfile(t *testing.T) {
	svc := NewUserService(readDeps(builtinSnapshot(t)))
	ctx := context.Background()

	profile, ok := svc.GetProfile(ctx, models.Session{UserID: "user2"}, "@OddFellowsCafe")
	require.True(t, ok)
	assert.Equal(t, "user4", profile.User.ID)
	assert.Equal(t, models.FollowCounts{Followers: 2, Following: 0}, profile.Counts)
	assert.Equal(t, []string{"moment1", "moment2"}, momentIDs(profile.Moments.Hosting))
	assert.Equal(t, []string{"moment3"}, momentIDs(profile.Moments.Hosted))
	assert.True(t, profile.IsFollowing)
	assert.False(t, profile.IsSelf)

	self, ok := svc.GetProfile(ctx, models.Session{UserID: "user4"}, "oddfellowscafe")
	require.True(t, ok)
	assert.True(t, self.IsSelf)
	assert.False(t, self.IsFollowing)

	anon, ok := svc.GetProfile(ctx, models.Anonymous(), "oddfellowscafe")
	require.True(t, ok)
	assert.False(t, anon.IsFollowing)

	_, ok = svc.GetProfile(ctx, models.Anonymous(), "ghost")
	assert.False(t, ok)
}

func TestUserService_Follow(t *testing.T) {
	st, deps := runningStore(t, scenarioDataset(), nil)
	svc := NewUserService(deps)
	ctx := context.Background()
	session := models.Session{UserID: "u2"}

	f, err := svc.Follow(ctx, session, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u2", f.FollowerID)
	assert.Equal(t, "u1", f.FollowedID)
	assert.NotEmpty(t, f.ID)
	assert.True(t, svc.IsFollowing(ctx, "u2", "u1"))
	assert.Equal(t, uint64(1), st.Snapshot().Version())

	_, err = svc.Follow(ctx, session, "u1")
	assert.True(t, models.IsCode(err, models.CodeConflict), "got %v", err)

	_, err = svc.Follow(ctx, session, "u2")
	assert.True(t, models.IsCode(err, models.CodeValidation), "got %v", err)

	_, err = svc.Follow(ctx, session, "nobody")
	assert.True(t, models.IsCode(err, models.CodeNotFound), "got %v", err)

	_, err = svc.Follow(ctx, models.Anonymous(), "u1")
	assert.True(t, models.IsCode(err, models.CodeUnauthorized), "got %v", err)

	_, err = svc.Follow(ctx, models.Session{UserID: "ghost"}, "u1")
	assert.True(t, models.IsCode(err, models.CodeUnauthorized), "got %v", err)

	assert.Equal(t, uint64(1), st.Snapshot().Version())
}

func TestUserService_FollowRequiresFeatureFlag(t *testing.T) {
	_, deps := runningStore(t, scenarioDataset(), nil)
	deps.Gate = gateStub{enabledFn: func(key, userID string) bool {
		return key != FlagMomentWrites
	}}
	svc := NewUserService(deps)

	_, err := svc.Follow(context.Background(), models.Session{UserID: "u2"}, "u1")
	assert.True(t, models.IsCode(err, models.CodeForbidden), "got %v", err)
}

func TestUserService_WritesDisabledWithoutWriter(t *testing.T) {
	svc := NewUserService(readDeps(builtinSnapshot(t)))
	_, err := svc.Follow(context.Background(), models.Session{UserID: "user1"}, "user4")
	assert.True(t, models.IsCode(err, models.CodeForbidden), "got %v", err)
}
