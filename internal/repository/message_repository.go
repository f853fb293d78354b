package repository

import (
	"context"

	"github.com/noteduco342/om-realtime/internal/models"
	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Sender").Preload("ReadByUsers")
}

// Create inserts the message. A second message with the same MessageUUID yields ErrDuplicate.
func (r *MessageRepository) Create(ctx context.Context, message *models.Message) error {
	return translate(r.db.WithContext(ctx).Omit("Chat", "Sender", "ReadByUsers").Create(message).Error)
}

func (r *MessageRepository) FindByID(ctx context.Context, id uint) (*models.Message, error) {
	var message models.Message
	if err := withRelations(r.db.WithContext(ctx)).First(&message, id).Error; err != nil {
		return nil, translate(err)
	}
	return &message, nil
}

func (r *MessageRepository) FindByUUID(ctx context.Context, messageUUID string) (*models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).
		Where("message_uuid = ?", messageUUID).
		First(&message).Error
	if err != nil {
		return nil, translate(err)
	}
	return &message, nil
}

// FindUnread returns messages of the chat sent by others that userID has not read yet.
func (r *MessageRepository) FindUnread(ctx context.Context, chatID, userID uint) ([]models.Message, error) {
	var messages []models.Message
	err := withRelations(r.db.WithContext(ctx)).
		Where("chat_id = ? AND sender_id <> ?", chatID, userID).
		Where("NOT EXISTS (SELECT 1 FROM message_read mr WHERE mr.message_id = message.id AND mr.user_id = ?)", userID).
		Order("created_at, id").
		Find(&messages).Error
	return messages, err
}

func (r *MessageRepository) FindForChat(ctx context.Context, chatID uint, limit, offset int) ([]models.Message, error) {
	var messages []models.Message
	q := withRelations(r.db.WithContext(ctx)).
		Where("chat_id = ?", chatID).
		Order("created_at, id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	err := q.Find(&messages).Error
	return messages, err
}
