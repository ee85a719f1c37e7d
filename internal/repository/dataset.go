// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"fmt"

	"moments/internal/models"
	"moments/internal/observability"
	"moments/internal/store"

	"gorm.io/gorm"
)

// DatasetRepository stores the four relations and appends committed writes.
type DatasetRepository interface {
	// Load reads every relation in insertion order.
	Load(ctx context.Context) (*models.Dataset, error)
	// Replace swaps the stored relations for ds in one transaction.
	Replace(ctx context.Context, ds *models.Dataset) error
	// Persist appends the record carried by a committed store change.
	Persist(ctx context.Context, change store.Change) error
}

// datasetRepository implements DatasetRepository
type datasetRepository struct {
	db     *gorm.DB
	logger *observability.RepoLogger
}

// NewDatasetRepository creates a new dataset repository
func NewDatasetRepository(db *gorm.DB) DatasetRepository {
	return &datasetRepository{
		db:     db,
		logger: observability.NewRepoLogger("dataset"),
	}
}

var _ store.Sink = (*datasetRepository)(nil)

func (r *datasetRepository) dbSystem() string {
	return r.db.Dialector.Name()
}

func (r *datasetRepository) Load(ctx context.Context) (*models.Dataset, error) {
	span, ctx := observability.StartRepositorySpan(ctx, "Load", "dataset", r.dbSystem())
	defer span.End()
	defer observability.TrackDatabaseQuery("load", "dataset")()

	ds := &models.Dataset{}
	db := r.db.WithContext(ctx)

	steps := []struct {
		table string
		dest  interface{}
	}{
		{"users", &ds.Users},
		{"moments", &ds.Moments},
		{"rsvps", &ds.RSVPs},
		{"follows", &ds.Follows},
	}
	for _, step := range steps {
		if err := db.Order("seq ASC").Order("id ASC").Find(step.dest).Error; err != nil {
			span.SetError(err)
			r.logger.LogError(ctx, err, "load "+step.table)
			return nil, models.NewInternalError(fmt.Errorf("load %s: %w", step.table, err))
		}
	}

	r.logger.LogRead(ctx, countFields(ds))
	return ds, nil
}

func (r *datasetRepository) Replace(ctx context.Context, ds *models.Dataset) error {
	span, ctx := observability.StartRepositorySpan(ctx, "Replace", "dataset", r.dbSystem())
	defer span.End()
	defer observability.TrackDatabaseQuery("replace", "dataset")()

	users := sequenced(ds.Users, func(u *models.User, seq int64) { u.Seq = seq })
	moments := sequenced(ds.Moments, func(m *models.Moment, seq int64) { m.Seq = seq })
	rsvps := sequenced(ds.RSVPs, func(rv *models.RSVP, seq int64) { rv.Seq = seq })
	follows := sequenced(ds.Follows, func(f *models.Follow, seq int64) { f.Seq = seq })

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Children first so foreign keys, where the dialect enforces them, never dangle.
		for _, model := range []interface{}{&models.Follow{}, &models.RSVP{}, &models.Moment{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return fmt.Errorf("clear %T: %w", model, err)
			}
		}
		if err := createAll(tx, users); err != nil {
			return err
		}
		if err := createAll(tx, moments); err != nil {
			return err
		}
		if err := createAll(tx, rsvps); err != nil {
			return err
		}
		return createAll(tx, follows)
	})
	if err != nil {
		span.SetError(err)
		r.logger.LogError(ctx, err, "replace")
		return models.NewInternalError(err)
	}

	r.logger.LogReplace(ctx, countFields(ds))
	return nil
}

func (r *datasetRepository) Persist(ctx context.Context, change store.Change) error {
	span, ctx := observability.StartRepositorySpan(ctx, "Persist", change.Kind(), r.dbSystem())
	defer span.End()
	defer observability.TrackDatabaseQuery("create", change.Kind())()

	var record interface{}
	switch {
	case change.Moment != nil:
		record = change.Moment
	case change.RSVP != nil:
		record = change.RSVP
	case change.Follow != nil:
		record = change.Follow
	default:
		return errors.New("empty change")
	}

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		span.SetError(err)
		r.logger.LogError(ctx, err, "create "+change.Kind())
		return models.NewInternalError(err)
	}

	r.logger.LogCreate(ctx, map[string]interface{}{"kind": change.Kind()})
	return nil
}

// sequenced copies records and numbers them from 1 in slice order.
func sequenced[T any](records []T, set func(*T, int64)) []T {
	out := make([]T, len(records))
	copy(out, records)
	for i := range out {
		set(&out[i], int64(i+1))
	}
	return out
}

func createAll[T any](tx *gorm.DB, records []T) error {
	if len(records) == 0 {
		return nil
	}
	if err := tx.CreateInBatches(records, 200).Error; err != nil {
		var zero T
		return fmt.Errorf("insert %T: %w", zero, err)
	}
	return nil
}

func countFields(ds *models.Dataset) map[string]interface{} {
	fields := make(map[string]interface{}, 4)
	for k, v := range ds.Counts() {
		fields[k] = v
	}
	return fields
}
