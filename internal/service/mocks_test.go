package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/noteduco342/om-realtime/internal/models"
	"github.com/noteduco342/om-realtime/internal/repository"
)

// MockUserRepository is a mock implementation of UserRepository for testing
type MockUserRepository struct {
	users map[uint]*models.User
}

func NewMockUserRepository(users ...*models.User) *MockUserRepository {
	m := &MockUserRepository{users: make(map[uint]*models.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func hasParticipant(c *models.Chat, userID uint) bool {
	for _, u := range c.Users {
		if u.ID == userID {
			return true
		}
	}
	return false
}

func readBy(msg *models.Message, userID uint) bool {
	for _, u := range msg.ReadByUsers {
		if u.ID == userID {
			return true
		}
	}
	return false
}

// MockChatRepository keeps chats and their participants in memory
type MockChatRepository struct {
	chats map[uint]*models.Chat
	err   error
}

func NewMockChatRepository(chats ...*models.Chat) *MockChatRepository {
	m := &MockChatRepository{chats: make(map[uint]*models.Chat)}
	for _, c := range chats {
		m.chats[c.ID] = c
	}
	return m
}

func (m *MockChatRepository) FindByUUID(ctx context.Context, chatUUID string) (*models.Chat, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, c := range m.chats {
		if c.ChatUUID == chatUUID {
			return c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockChatRepository) FindDirectChatID(ctx context.Context, userID1, userID2 uint) (uint, error) {
	for _, c := range m.sorted() {
		if !c.IsGroup && len(c.Users) == 2 && hasParticipant(c, userID1) && hasParticipant(c, userID2) {
			return c.ID, nil
		}
	}
	return 0, repository.ErrNotFound
}

func (m *MockChatRepository) IsParticipant(ctx context.Context, chatID, userID uint) (bool, error) {
	if c, ok := m.chats[chatID]; ok {
		return hasParticipant(c, userID), nil
	}
	return false, nil
}

func (m *MockChatRepository) ListUserChats(ctx context.Context, userID uint, isGroup *bool) ([]models.Chat, error) {
	var out []models.Chat
	for _, c := range m.sorted() {
		if !hasParticipant(c, userID) {
			continue
		}
		if isGroup != nil && c.IsGroup != *isGroup {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (m *MockChatRepository) ListGroupUUIDs(ctx context.Context, userID uint) ([]string, error) {
	var out []string
	for _, c := range m.sorted() {
		if c.IsGroup && hasParticipant(c, userID) {
			out = append(out, c.ChatUUID)
		}
	}
	return out, nil
}

func (m *MockChatRepository) sorted() []*models.Chat {
	out := make([]*models.Chat, 0, len(m.chats))
	for _, c := range m.chats {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MockMessageRepository is a mock implementation of MessageRepository for testing
type MockMessageRepository struct {
	mu       sync.Mutex
	messages map[uint]*models.Message
	users    *MockUserRepository
	nextID   uint
}

func NewMockMessageRepository(users *MockUserRepository) *MockMessageRepository {
	return &MockMessageRepository{
		messages: make(map[uint]*models.Message),
		users:    users,
		nextID:   1,
	}
}

func (m *MockMessageRepository) Create(ctx context.Context, message *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.messages {
		if existing.MessageUUID == message.MessageUUID {
			return repository.ErrDuplicate
		}
	}
	if message.ID == 0 {
		message.ID = m.nextID
		m.nextID++
	}
	if u, ok := m.users.users[message.SenderID]; ok {
		message.Sender = *u
	}
	m.messages[message.ID] = message
	return nil
}

func (m *MockMessageRepository) FindByID(ctx context.Context, id uint) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg, ok := m.messages[id]; ok {
		return msg, nil
	}
	return nil, repository.ErrNotFound
}

func (m *MockMessageRepository) FindByUUID(ctx context.Context, messageUUID string) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.MessageUUID == messageUUID {
			return msg, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockMessageRepository) FindUnread(ctx context.Context, chatID, userID uint) ([]models.Message, error) {
	var out []models.Message
	for _, msg := range m.ordered(chatID) {
		if msg.SenderID != userID && !readBy(msg, userID) {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (m *MockMessageRepository) FindForChat(ctx context.Context, chatID uint, limit, offset int) ([]models.Message, error) {
	all := m.ordered(chatID)
	if offset >= len(all) {
		return []models.Message{}, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	out := make([]models.Message, 0, len(all))
	for _, msg := range all {
		out = append(out, *msg)
	}
	return out, nil
}

func (m *MockMessageRepository) ordered(chatID uint) []*models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Message
	for _, msg := range m.messages {
		if msg.ChatID == chatID {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MockMessageReadRepository writes markers back onto the mock messages
type MockMessageReadRepository struct {
	messages *MockMessageRepository
	reads    map[[2]uint]bool
	err      error
	// stale makes Exists miss markers, as if another request wrote one after the check
	stale bool
}

func NewMockMessageReadRepository(messages *MockMessageRepository) *MockMessageReadRepository {
	return &MockMessageReadRepository{messages: messages, reads: make(map[[2]uint]bool)}
}

func (m *MockMessageReadRepository) Create(ctx context.Context, messageID, userID uint) error {
	if m.err != nil {
		return m.err
	}
	key := [2]uint{messageID, userID}
	if m.reads[key] {
		return repository.ErrDuplicate
	}
	m.reads[key] = true
	m.messages.mu.Lock()
	defer m.messages.mu.Unlock()
	if msg, ok := m.messages.messages[messageID]; ok {
		if u, ok := m.messages.users.users[userID]; ok {
			msg.ReadByUsers = append(msg.ReadByUsers, *u)
		}
	}
	return nil
}

func (m *MockMessageReadRepository) Exists(ctx context.Context, messageID, userID uint) (bool, error) {
	if m.stale {
		return false, nil
	}
	return m.reads[[2]uint{messageID, userID}], nil
}

type published struct {
	topic   string
	payload []byte
}

// RecordingPublisher captures every publish
type RecordingPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *RecordingPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, published{topic: topic, payload: payload})
	return nil
}

func (p *RecordingPublisher) Events() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.events...)
}

var errStorage = errors.New("storage unavailable")
