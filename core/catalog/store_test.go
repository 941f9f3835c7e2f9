package catalog

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSQLiteStore(t *testing.T) *Store {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	s := NewStore(db)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestStore_UpsertIsIdempotent(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	e := Entity{Identifier: "vpc-1", Title: "main", Blueprint: "vpc", Properties: map[string]any{"cidr": "10.0.0.0/16"}}
	written, err := s.Upsert(ctx, []Entity{e})
	require.NoError(t, err)
	assert.Equal(t, []string{"vpc;vpc-1"}, written)

	e.Title = "renamed"
	_, err = s.Upsert(ctx, []Entity{e})
	require.NoError(t, err)

	var count int64
	require.NoError(t, s.db.Model(&EntityRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	got, err := s.Get(ctx, "vpc", "vpc-1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, "10.0.0.0/16", got.Properties["cidr"])
}

func TestStore_DeleteAndPrune(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	_, err := s.Upsert(ctx, []Entity{
		{Identifier: "a", Blueprint: "vpc"},
		{Identifier: "b", Blueprint: "vpc"},
		{Identifier: "c", Blueprint: "vpc"},
		{Identifier: "a", Blueprint: "subnet"},
	})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, []Entity{{Identifier: "a", Blueprint: "vpc"}}))
	_, err = s.Get(ctx, "vpc", "a")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	removed, err := s.Prune(ctx, "vpc", map[string]struct{}{"b": {}})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = s.Get(ctx, "vpc", "b")
	assert.NoError(t, err)
	_, err = s.Get(ctx, "subnet", "a")
	assert.NoError(t, err, "other blueprints are untouched")
}

func TestStore_DeleteMySQL(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `catalog_entities` WHERE external_id IN").
		WithArgs("vpc;a", "vpc;b").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	s := NewStore(db)
	err = s.Delete(context.Background(), []Entity{
		{Identifier: "a", Blueprint: "vpc"},
		{Identifier: "b", Blueprint: "vpc"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_EmptyInput(t *testing.T) {
	s := NewStore(nil)
	written, err := s.Upsert(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, written)
	assert.NoError(t, s.Delete(context.Background(), nil))
}
