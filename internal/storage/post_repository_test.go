package storage

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"neosocial/internal/config"
	"neosocial/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, AutoMigrateTables(db, zap.NewNop()))
	return db
}

func TestPostRepository_ListByGroup(t *testing.T) {
	ctx := context.Background()
	repo := NewGormPostRepository(newTestDB(t))

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	posts := []*models.Post{
		{GroupID: "g1", AuthorID: "u1", Content: "first", BaseModel: models.BaseModel{CreatedAt: base}},
		{GroupID: "g1", AuthorID: "u2", Content: "second", BaseModel: models.BaseModel{CreatedAt: base.Add(time.Minute)}},
		{GroupID: "g1", AuthorID: "u1", Content: "third", BaseModel: models.BaseModel{CreatedAt: base.Add(2 * time.Minute)}},
		{GroupID: "g2", AuthorID: "u3", Content: "elsewhere", BaseModel: models.BaseModel{CreatedAt: base}},
	}
	for _, p := range posts {
		require.NoError(t, repo.Create(ctx, p))
	}

	got, err := repo.ListByGroup(ctx, "g1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "third", got[0].Content)
	assert.Equal(t, "second", got[1].Content)

	all, err := repo.ListByGroup(ctx, "g1", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := repo.ListByGroup(ctx, "missing", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInitDB_UnsupportedType(t *testing.T) {
	_, err := InitDB(config.DatabaseConfig{Type: "mysql"}, zap.NewNop())
	assert.ErrorContains(t, err, "unsupported database type")
}
