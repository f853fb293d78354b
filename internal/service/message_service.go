package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/noteduco342/om-realtime/internal/models"
	"github.com/noteduco342/om-realtime/internal/repository"
	"github.com/noteduco342/om-realtime/internal/validation"
)

// MessageService is the persistence gateway used by websocket sessions.
// Each call is its own unit of work.
type MessageService struct {
	messageRepo repository.MessageRepositoryInterface
	chatRepo    repository.ChatRepositoryInterface
	maxLength   int
}

func NewMessageService(messageRepo repository.MessageRepositoryInterface, chatRepo repository.ChatRepositoryInterface, maxLength int) *MessageService {
	if maxLength <= 0 || maxLength > models.MaxContentLength {
		maxLength = models.MaxContentLength
	}
	return &MessageService{
		messageRepo: messageRepo,
		chatRepo:    chatRepo,
		maxLength:   maxLength,
	}
}

// FindByMessageUUID returns nil without error when no message carries the key.
func (s *MessageService) FindByMessageUUID(ctx context.Context, messageUUID string) (*models.Message, error) {
	msg, err := s.messageRepo.FindByUUID(ctx, messageUUID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return msg, err
}

// ResolveDirectChat finds the unique one-to-one chat between sender and receiver.
func (s *MessageService) ResolveDirectChat(ctx context.Context, senderID, receiverID uint) (uint, error) {
	chatID, err := s.chatRepo.FindDirectChatID(ctx, senderID, receiverID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, fmt.Errorf("%w: no direct chat for users %d and %d", ErrChatNotFound, senderID, receiverID)
	}
	return chatID, err
}

// ResolveGroupChat finds the group chat by its public identifier. The sender
// must be one of its participants.
func (s *MessageService) ResolveGroupChat(ctx context.Context, chatUUID string, senderID uint) (uint, error) {
	chat, err := s.chatRepo.FindByUUID(ctx, chatUUID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, fmt.Errorf("%w: no group chat %q", ErrChatNotFound, chatUUID)
	}
	if err != nil {
		return 0, err
	}
	if !chat.IsGroup {
		return 0, fmt.Errorf("%w: chat %q is not a group", ErrChatNotFound, chatUUID)
	}

	member, err := s.chatRepo.IsParticipant(ctx, chat.ID, senderID)
	if err != nil {
		return 0, err
	}
	if !member {
		return 0, fmt.Errorf("%w: user %d in group %q", ErrNotParticipant, senderID, chatUUID)
	}
	return chat.ID, nil
}

func (s *MessageService) CreateMessage(ctx context.Context, chatID, senderID uint, messageUUID, content string) (*models.Message, error) {
	content = validation.TrimAndLimit(content, s.maxLength)
	if content == "" {
		return nil, ErrEmptyContent
	}

	message := &models.Message{
		MessageUUID: messageUUID,
		ChatID:      chatID,
		SenderID:    senderID,
		Content:     content,
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateMessage
		}
		return nil, err
	}
	return message, nil
}

// Public reloads the message with its sender and readers for broadcasting.
func (s *MessageService) Public(ctx context.Context, messageID uint) (*models.MessagePublic, error) {
	msg, err := s.messageRepo.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	public := msg.ToPublic()
	return &public, nil
}
