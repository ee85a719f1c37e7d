package database

import (
	"testing"

	"moments/internal/config"
	"moments/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestConfigurePool(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestDialector(t *testing.T) {
	d, err := Dialector(&config.Config{DBDriver: "sqlite", DBPath: ":memory:"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())

	d, err = Dialector(&config.Config{DBDriver: "postgres", DBHost: "db", DBPort: "5432"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	_, err = Dialector(&config.Config{})
	assert.ErrorIs(t, err, ErrNoDriver)

	_, err = Dialector(&config.Config{DBDriver: "oracle"})
	assert.Error(t, err)
}

func TestConnect_SQLiteMigratesSchema(t *testing.T) {
	db, err := Connect(&config.Config{Env: "test", DBDriver: "sqlite", DBPath: ":memory:", DBMaxOpenConns: 1})
	require.NoError(t, err)
	defer func() { _ = Close(db) }()

	for _, model := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(model), "%T table missing", model)
	}
	assert.True(t, db.Migrator().HasIndex(&models.RSVP{}, "idx_rsvps_user_moment"))
	assert.True(t, db.Migrator().HasIndex(&models.Follow{}, "idx_follows_pair"))
}

func TestPersistentModels_CoversEveryRelation(t *testing.T) {
	var names []string
	for _, model := range PersistentModels() {
		tabler, ok := model.(interface{ TableName() string })
		require.True(t, ok, "%T has no table name", model)
		names = append(names, tabler.TableName())
	}
	assert.ElementsMatch(t, []string{"users", "moments", "rsvps", "follows"}, names)
}

func TestGormLogger_LogModeCopies(t *testing.T) {
	l := NewGormLogger(logger.Warn)
	silent := l.LogMode(logger.Silent).(*CustomGormLogger)
	assert.Equal(t, logger.Silent, silent.Config.LogLevel)
	assert.Equal(t, logger.Warn, l.Config.LogLevel)
}
