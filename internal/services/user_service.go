package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"neosocial/internal/models"
	"neosocial/internal/storage"
)

// UserService 维护图中的 User 节点。用户由身份服务创建，这里只做镜像。
type UserService interface {
	SyncUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

type userService struct {
	store  storage.GraphStore
	logger *zap.Logger
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(store storage.GraphStore, logger *zap.Logger) UserService {
	return &userService{store: store, logger: logger.Named("users")}
}

// SyncUser creates the user node or overwrites its profile fields.
func (s *userService) SyncUser(ctx context.Context, user models.User) error {
	user.ID = strings.TrimSpace(user.ID)
	user.Name = strings.TrimSpace(user.Name)
	if user.ID == "" || user.Name == "" {
		return ErrInvalidUser
	}

	err := s.store.Write(ctx, func(tx storage.GraphTx) error {
		return tx.UpsertUser(ctx, user)
	})
	if err != nil {
		return fail(s.logger, "sync user", err)
	}
	// 资料变更不影响推荐排名，只影响展示，因此不失效缓存
	return nil
}

// GetUser 获取用户节点。
func (s *userService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user *models.User
	err := s.store.Read(ctx, func(tx storage.GraphTx) error {
		var err error
		user, err = tx.GetUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fail(s.logger, "get user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
