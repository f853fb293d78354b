package repository

import (
	"context"

	"github.com/noteduco342/om-realtime/internal/models"
	"gorm.io/gorm"
)

type MessageReadRepository struct {
	db *gorm.DB
}

func NewMessageReadRepository(db *gorm.DB) *MessageReadRepository {
	return &MessageReadRepository{db: db}
}

// Create records the read marker; a repeated (message, user) pair yields ErrDuplicate.
func (r *MessageReadRepository) Create(ctx context.Context, messageID, userID uint) error {
	read := models.MessageRead{MessageID: messageID, UserID: userID}
	return translate(r.db.WithContext(ctx).Create(&read).Error)
}

func (r *MessageReadRepository) Exists(ctx context.Context, messageID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.MessageRead{}).
		Where("message_id = ? AND user_id = ?", messageID, userID).
		Count(&count).Error
	return count > 0, err
}
