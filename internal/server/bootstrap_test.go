package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"moments/internal/config"
	"moments/internal/database"
	"moments/internal/models"
	"moments/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestLoadDataset_Sources(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig()
	ds, err := LoadDataset(ctx, cfg, nil)
	require.NoError(t, err)
	assert.Len(t, ds.Users, 4)

	path := filepath.Join(t.TempDir(), "seed.yml")
	require.NoError(t, os.WriteFile(path, []byte("users:\n  - id: a\n    username: alice\n    name: Alice\n"), 0o600))
	cfg.SeedSource = config.SeedSourceFile
	cfg.SeedFile = path
	ds, err = LoadDataset(ctx, cfg, nil)
	require.NoError(t, err)
	assert.Len(t, ds.Users, 1)

	cfg.SeedSource = config.SeedSourceDatabase
	_, err = LoadDataset(ctx, cfg, nil)
	assert.Error(t, err)

	cfg.SeedSource = "carrier-pigeon"
	_, err = LoadDataset(ctx, cfg, nil)
	assert.Error(t, err)
}

func TestOpenStore_RejectsInvalidSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
users:
  - id: a
    username: alice
    name: Alice
follows:
  - id: f1
    follower_id: a
    followed_id: ghost
    created_at: 2024-02-01T08:00:00Z
`), 0o600))

	cfg := testConfig()
	cfg.SeedSource = config.SeedSourceFile
	cfg.SeedFile = path

	_, err := OpenStore(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeInvalidReference))

	cfg.SeedAllowDangling = true
	st, err := OpenStore(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Len(t, st.Snapshot().Follows(), 1)
}

func TestOpenStore_MirrorsSeedAndPersistsWrites(t *testing.T) {
	db := setupSQLite(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig()
	st, err := OpenStore(ctx, cfg, db)
	require.NoError(t, err)
	go st.Run(ctx)

	repo := repository.NewDatasetRepository(db)
	mirrored, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, mirrored.Moments, 10)

	s := NewServerWithDeps(cfg, Dependencies{Store: st, DB: db})
	app := s.App()
	resp := do(t, app, call{
		method: http.MethodPost,
		path:   "/api/users/user4/follow",
		token:  tokenFor(t, s, "user1"),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	persisted, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, persisted.Follows, 5)

	ready := decode[map[string]any](t, do(t, app, call{path: "/health/ready"}))
	assert.Equal(t, "healthy", ready["checks"].(map[string]any)["database"])

	// A restart from the database serves what was written.
	cfg.SeedSource = config.SeedSourceDatabase
	restarted, err := OpenStore(ctx, cfg, db)
	require.NoError(t, err)
	assert.True(t, restarted.Snapshot().HasFollow("user1", "user4"))
}

func TestServer_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig()
	cfg.RateLimitPerMinute = 1000
	st, err := OpenStore(ctx, cfg, nil)
	require.NoError(t, err)
	go st.Run(ctx)

	s := NewServerWithDeps(cfg, Dependencies{Store: st, Redis: rdb})
	app := s.App()

	resp := do(t, app, call{path: "/api/feed/items"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	epoch := st.Snapshot().Epoch()
	assert.True(t, mr.Exists("feed:items:"+epoch+":v0"))

	resp = do(t, app, call{path: "/api/search?q=hello"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	keys := mr.Keys()
	found := false
	for _, k := range keys {
		if strings.HasPrefix(k, "search:"+epoch+":v0:") {
			found = true
		}
	}
	assert.True(t, found, "search result cached, keys: %v", keys)

	limited := false
	for _, k := range keys {
		if strings.HasPrefix(k, "rl:api:ip:") {
			limited = true
		}
	}
	assert.True(t, limited, "rate limit counter kept in redis, keys: %v", keys)

	ready := decode[map[string]any](t, do(t, app, call{path: "/health/ready"}))
	assert.Equal(t, "healthy", ready["checks"].(map[string]any)["redis"])

	mr.Close()
	resp = do(t, app, call{path: "/health/ready"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	// Reads keep working without Redis.
	resp = do(t, app, call{path: "/api/feed/items"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_RateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig()
	cfg.RateLimitPerMinute = 2
	st, err := OpenStore(ctx, cfg, nil)
	require.NoError(t, err)

	app := NewServerWithDeps(cfg, Dependencies{Store: st, Redis: rdb}).App()
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, do(t, app, call{path: "/api/users/user1"}).StatusCode)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	mr.FastForward(time.Minute + time.Second)
	assert.Equal(t, http.StatusOK, do(t, app, call{path: "/api/users/user1"}).StatusCode)
}
