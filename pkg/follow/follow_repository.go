package follow

import (
	"context"
	"errors"
	"time"

	"foodgram/domain"
	"foodgram/entities"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type (
	FollowRepository interface {
		CreateFollow(ctx context.Context, userID, authorID uuid.UUID) error
		DeleteFollow(ctx context.Context, userID, authorID uuid.UUID) error
		GetFollowedAuthors(ctx context.Context, userID uuid.UUID, page, limit int) ([]*entities.User, int64, error)
	}

	followRepository struct {
		db *gorm.DB
	}
)

func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) CreateFollow(ctx context.Context, userID, authorID uuid.UUID) error {
	now := time.Now()
	follow := &entities.Follow{
		ID:        uuid.New(),
		UserID:    userID,
		AuthorID:  authorID,
		Timestamp: entities.Timestamp{CreatedAt: now, UpdatedAt: now},
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(follow).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError("subscription", "you are already subscribed to this author")
		}
		return err
	}
	return nil
}

func (r *followRepository) DeleteFollow(ctx context.Context, userID, authorID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&entities.Follow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NewNotFoundError("subscription", authorID.String())
	}
	return nil
}

func (r *followRepository) GetFollowedAuthors(ctx context.Context, userID uuid.UUID, page, limit int) ([]*entities.User, int64, error) {
	var authors []*entities.User
	var count int64
	offset := (page - 1) * limit

	if err := r.db.WithContext(ctx).
		Model(&entities.Follow{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := r.db.WithContext(ctx).
		Joins("JOIN follows ON follows.author_id = users.id").
		Where("follows.user_id = ?", userID).
		Order("follows.created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&authors).Error; err != nil {
		return nil, 0, err
	}

	return authors, count, nil
}
