package storage

import (
	"context"

	"gorm.io/gorm"

	"neosocial/internal/models"
)

// PostRepository 定义了帖子数据操作的接口。
// 帖子由内容服务写入，社交图谱只按群组读取。
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	ListByGroup(ctx context.Context, groupID string, limit int) ([]models.Post, error)
}

// gormPostRepository 使用 GORM 实现 PostRepository。
type gormPostRepository struct {
	db *gorm.DB
}

// NewGormPostRepository 创建一个新的基于 GORM 的 PostRepository。
func NewGormPostRepository(db *gorm.DB) PostRepository {
	return &gormPostRepository{db: db}
}

func (r *gormPostRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

// ListByGroup 按创建时间倒序返回群组的最新帖子。
func (r *gormPostRepository) ListByGroup(ctx context.Context, groupID string, limit int) ([]models.Post, error) {
	var posts []models.Post
	query := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}
