package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"neosocial/internal/models"
	"neosocial/internal/storage"
)

func TestUserService_SyncUser(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(storage.NewMemoryGraphStore(), zap.NewNop())

	require.NoError(t, svc.SyncUser(ctx, models.User{ID: " u1 ", Name: "Ada"}))
	user, err := svc.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)

	assert.ErrorIs(t, svc.SyncUser(ctx, models.User{ID: "u2"}), ErrInvalidUser)
	assert.ErrorIs(t, svc.SyncUser(ctx, models.User{Name: "nobody"}), ErrInvalidUser)

	_, err = svc.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
