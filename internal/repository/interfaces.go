package repository

import (
	"context"

	"github.com/noteduco342/om-realtime/internal/models"
)

// UserRepositoryInterface defines the contract for user repository operations
type UserRepositoryInterface interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// ChatRepositoryInterface defines the contract for chat and membership lookups
type ChatRepositoryInterface interface {
	FindByUUID(ctx context.Context, chatUUID string) (*models.Chat, error)
	FindDirectChatID(ctx context.Context, userID1, userID2 uint) (uint, error)
	IsParticipant(ctx context.Context, chatID, userID uint) (bool, error)
	ListUserChats(ctx context.Context, userID uint, isGroup *bool) ([]models.Chat, error)
	ListGroupUUIDs(ctx context.Context, userID uint) ([]string, error)
}

// MessageRepositoryInterface defines the contract for message repository operations
type MessageRepositoryInterface interface {
	Create(ctx context.Context, message *models.Message) error
	FindByID(ctx context.Context, id uint) (*models.Message, error)
	FindByUUID(ctx context.Context, messageUUID string) (*models.Message, error)
	FindUnread(ctx context.Context, chatID, userID uint) ([]models.Message, error)
	FindForChat(ctx context.Context, chatID uint, limit, offset int) ([]models.Message, error)
}

// MessageReadRepositoryInterface defines the contract for read marker operations
type MessageReadRepositoryInterface interface {
	Create(ctx context.Context, messageID, userID uint) error
	Exists(ctx context.Context, messageID, userID uint) (bool, error)
}
