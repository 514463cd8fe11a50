package repos

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/hanulsoft/blogpilot/internal/db/models"
)

// PostRepository provides access to the published post archive
type PostRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository instance
func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

// Create archives a published post
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	if err := post.Validate(); err != nil {
		return fmt.Errorf("invalid post: %w", err)
	}
	return r.db.WithContext(ctx).Create(post).Error
}

// ListByCategory retrieves archived posts for a category, newest first
func (r *PostRepository) ListByCategory(ctx context.Context, category string, limit int) ([]models.Post, error) {
	var posts []models.Post
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if category != "" {
		q = q.Where(&models.Post{Category: category})
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// TitleExists reports whether a post with the given title was already
// published. The pipeline uses it to avoid duplicate-post rejections.
func (r *PostRepository) TitleExists(ctx context.Context, title string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where(&models.Post{Title: title}).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check title: %w", err)
	}
	return count > 0, nil
}
