package handlers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/noteduco342/om-realtime/internal/models"
	"github.com/noteduco342/om-realtime/internal/service"
)

func testUsers() map[uint]*models.User {
	return map[uint]*models.User{
		1: {ID: 1, Email: "first@example.com", FullName: "First User", IsActive: true, IsSuperuser: true},
		2: {ID: 2, Email: "second@example.com", FullName: "Second User", IsActive: true},
		3: {ID: 3, Email: "third@example.com", IsActive: true},
		4: {ID: 4, Email: "fourth@example.com", IsActive: false},
	}
}

// fakeAuth accepts "token-<id>"
type fakeAuth struct {
	users map[uint]*models.User
}

func (a *fakeAuth) Authenticate(ctx context.Context, token string) (*models.User, error) {
	var id uint
	if _, err := fmt.Sscanf(token, "token-%d", &id); err != nil {
		return nil, service.ErrInvalidToken
	}
	u, ok := a.users[id]
	if !ok {
		return nil, service.ErrUserNotFound
	}
	if !u.IsActive {
		return nil, service.ErrInactiveUser
	}
	return u, nil
}

type fakeLogin struct {
	users map[uint]*models.User
}

func (l *fakeLogin) Login(ctx context.Context, input service.LoginInput) (*service.TokenResponse, error) {
	for _, u := range l.users {
		if u.Email != strings.ToLower(input.Email) {
			continue
		}
		if input.Password != "secret" {
			return nil, service.ErrInvalidCredentials
		}
		if !u.IsActive {
			return nil, service.ErrInactiveUser
		}
		return &service.TokenResponse{AccessToken: fmt.Sprintf("token-%d", u.ID), TokenType: "bearer"}, nil
	}
	return nil, service.ErrInvalidCredentials
}

type historyCall struct {
	chatID, readerID uint
	limit, offset    int
}

// fakeReads returns errs[msgID] from MarkRead
type fakeReads struct {
	mu      sync.Mutex
	errs    map[uint]error
	marked  []uint
	history []historyCall
}

func (r *fakeReads) MarkRead(ctx context.Context, messageID uint, reader *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.errs[messageID]; err != nil {
		return err
	}
	r.marked = append(r.marked, messageID)
	return nil
}

func (r *fakeReads) History(ctx context.Context, chatID uint, reader *models.User, limit, offset int) ([]models.MessagePublic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if chatID == 99 {
		return nil, service.ErrNotParticipant
	}
	r.history = append(r.history, historyCall{chatID: chatID, readerID: reader.ID, limit: limit, offset: offset})
	return []models.MessagePublic{{ID: 1, ChatID: chatID, Content: "hello"}}, nil
}

type fakeChats struct{}

func (fakeChats) MyChats(ctx context.Context, userID uint) (*models.MyChatsPublic, error) {
	return &models.MyChatsPublic{
		GroupChats: []models.ChatPublic{{ID: 20, ChatUUID: "group-a", IsGroup: true}},
		LcChats:    []models.ChatPublic{{ID: 10, ChatUUID: "direct-1-2"}},
	}, nil
}

// fakeStore supports the direct chat between users 1 and 2 only
type fakeStore struct {
	mu     sync.Mutex
	users  map[uint]*models.User
	byUUID map[string]*models.Message
	byID   map[uint]*models.Message
}

func newFakeStore(users map[uint]*models.User) *fakeStore {
	return &fakeStore{users: users, byUUID: map[string]*models.Message{}, byID: map[uint]*models.Message{}}
}

func (s *fakeStore) ListGroupMemberships(ctx context.Context, userID uint) ([]string, error) {
	return nil, nil
}

func (s *fakeStore) FindByMessageUUID(ctx context.Context, messageUUID string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byUUID[messageUUID], nil
}

func (s *fakeStore) ResolveDirectChat(ctx context.Context, senderID, receiverID uint) (uint, error) {
	if senderID+receiverID == 3 && senderID != receiverID {
		return 10, nil
	}
	return 0, service.ErrChatNotFound
}

func (s *fakeStore) ResolveGroupChat(ctx context.Context, chatUUID string, senderID uint) (uint, error) {
	return 0, service.ErrChatNotFound
}

func (s *fakeStore) CreateMessage(ctx context.Context, chatID, senderID uint, messageUUID, content string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byUUID[messageUUID]; ok {
		return nil, service.ErrDuplicateMessage
	}
	msg := &models.Message{
		ID:          uint(len(s.byID) + 1),
		MessageUUID: messageUUID,
		ChatID:      chatID,
		SenderID:    senderID,
		Sender:      *s.users[senderID],
		Content:     content,
		UpdatedAt:   time.Now(),
	}
	s.byUUID[messageUUID] = msg
	s.byID[msg.ID] = msg
	return msg, nil
}

func (s *fakeStore) Public(ctx context.Context, messageID uint) (*models.MessagePublic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	public := s.byID[messageID].ToPublic()
	return &public, nil
}

type fakePresence struct {
	users map[uint]bool
}

func (p *fakePresence) IsUserOnline(ctx context.Context, userID uint) bool {
	return p.users[userID]
}
