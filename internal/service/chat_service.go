package service

import (
	"context"

	"github.com/noteduco342/om-realtime/internal/models"
	"github.com/noteduco342/om-realtime/internal/repository"
)

type ChatService struct {
	chatRepo repository.ChatRepositoryInterface
}

func NewChatService(chatRepo repository.ChatRepositoryInterface) *ChatService {
	return &ChatService{chatRepo: chatRepo}
}

// ListGroupMemberships returns the public identifiers of the user's group chats.
func (s *ChatService) ListGroupMemberships(ctx context.Context, userID uint) ([]string, error) {
	return s.chatRepo.ListGroupUUIDs(ctx, userID)
}

func (s *ChatService) MyChats(ctx context.Context, userID uint) (*models.MyChatsPublic, error) {
	isGroup := true
	groups, err := s.chatRepo.ListUserChats(ctx, userID, &isGroup)
	if err != nil {
		return nil, err
	}
	isGroup = false
	direct, err := s.chatRepo.ListUserChats(ctx, userID, &isGroup)
	if err != nil {
		return nil, err
	}

	out := &models.MyChatsPublic{
		GroupChats: make([]models.ChatPublic, 0, len(groups)),
		LcChats:    make([]models.ChatPublic, 0, len(direct)),
	}
	for i := range groups {
		out.GroupChats = append(out.GroupChats, groups[i].ToPublic())
	}
	for i := range direct {
		out.LcChats = append(out.LcChats, direct[i].ToPublic())
	}
	return out, nil
}
