package server

import (
	"context"
	"fmt"
	"log/slog"

	"moments/internal/config"
	"moments/internal/models"
	"moments/internal/observability"
	"moments/internal/repository"
	"moments/internal/seed"
	"moments/internal/store"

	"gorm.io/gorm"
)

// LoadDataset reads the seed dataset from the source cfg names.
func LoadDataset(ctx context.Context, cfg *config.Config, repo repository.DatasetRepository) (*models.Dataset, error) {
	switch cfg.SeedSource {
	case config.SeedSourceFile:
		return seed.LoadFile(cfg.SeedFile)
	case config.SeedSourceDatabase:
		if repo == nil {
			return nil, fmt.Errorf("seed source %q needs a database", cfg.SeedSource)
		}
		return repo.Load(ctx)
	case config.SeedSourceBuiltin, "":
		return seed.Builtin()
	default:
		return nil, fmt.Errorf("unknown seed source %q", cfg.SeedSource)
	}
}

// OpenStore loads and validates the seed dataset and returns a store serving
// it. With a database, every committed write is persisted before it becomes
// visible; when the dataset came from elsewhere the database is first reset
// to it so later writes line up with what is served.
func OpenStore(ctx context.Context, cfg *config.Config, db *gorm.DB) (*store.Store, error) {
	var repo repository.DatasetRepository
	if db != nil {
		repo = repository.NewDatasetRepository(db)
	}

	ds, err := LoadDataset(ctx, cfg, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to load seed dataset: %w", err)
	}

	snap, err := store.Load(ds, store.LoadOptions{
		AllowDangling: cfg.SeedAllowDangling,
		OnDangling: func(err error) {
			observability.GlobalLogger.WarnContext(ctx, "keeping dangling seed record",
				slog.String("error", err.Error()))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("invalid seed dataset: %w", err)
	}

	opts := []store.Option{store.WithQueueSize(cfg.WriteQueueSize)}
	if repo != nil {
		if cfg.SeedSource != config.SeedSourceDatabase {
			if err := repo.Replace(ctx, ds); err != nil {
				return nil, fmt.Errorf("failed to mirror seed dataset to database: %w", err)
			}
		}
		opts = append(opts, store.WithSink(repo))
	}

	counts := ds.Counts()
	observability.GlobalLogger.InfoContext(ctx, "seed dataset loaded",
		slog.String("source", cfg.SeedSource),
		slog.Int("users", counts["users"]),
		slog.Int("moments", counts["moments"]),
		slog.Int("rsvps", counts["rsvps"]),
		slog.Int("follows", counts["follows"]),
	)
	return store.New(snap, opts...), nil
}
