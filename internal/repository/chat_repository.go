package repository

import (
	"context"

	"github.com/noteduco342/om-realtime/internal/models"
	"gorm.io/gorm"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) FindByUUID(ctx context.Context, chatUUID string) (*models.Chat, error) {
	var chat models.Chat
	err := r.db.WithContext(ctx).
		Where("chat_uuid = ?", chatUUID).
		First(&chat).Error
	if err != nil {
		return nil, translate(err)
	}
	return &chat, nil
}

// FindDirectChatID returns the non-group chat whose only participants are the two users.
func (r *ChatRepository) FindDirectChatID(ctx context.Context, userID1, userID2 uint) (uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Chat{}).
		Joins("JOIN user_chat_participants ucp ON ucp.chat_id = chats.id").
		Where("chats.is_group = ?", false).
		Group("chats.id").
		Having("COUNT(ucp.user_id) = 2 AND SUM(CASE WHEN ucp.user_id IN ? THEN 1 ELSE 0 END) = 2", []uint{userID1, userID2}).
		Limit(1).
		Pluck("chats.id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, ErrNotFound
	}
	return ids[0], nil
}

func (r *ChatRepository) IsParticipant(ctx context.Context, chatID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ChatParticipant{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *ChatRepository) ListUserChats(ctx context.Context, userID uint, isGroup *bool) ([]models.Chat, error) {
	var chats []models.Chat
	q := r.db.WithContext(ctx).
		Joins("JOIN user_chat_participants ucp ON ucp.chat_id = chats.id").
		Where("ucp.user_id = ?", userID)
	if isGroup != nil {
		q = q.Where("chats.is_group = ?", *isGroup)
	}
	err := q.Preload("Users").Preload("Owner").Order("chats.id").Find(&chats).Error
	return chats, err
}

func (r *ChatRepository) ListGroupUUIDs(ctx context.Context, userID uint) ([]string, error) {
	var uuids []string
	err := r.db.WithContext(ctx).
		Model(&models.Chat{}).
		Joins("JOIN user_chat_participants ucp ON ucp.chat_id = chats.id").
		Where("ucp.user_id = ? AND chats.is_group = ?", userID, true).
		Order("chats.id").
		Pluck("chats.chat_uuid", &uuids).Error
	return uuids, err
}
