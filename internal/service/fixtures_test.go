package service

import (
	"github.com/noteduco342/om-realtime/internal/models"
)

const groupUUID = "44aca17a-7b10-4b06-828c-0a14f98de434"

type fixture struct {
	users    *MockUserRepository
	chats    *MockChatRepository
	messages *MockMessageRepository
	reads    *MockMessageReadRepository
}

// newFixture seeds four users, a direct chat between 1 and 2 (id 10), a direct
// chat between 3 and 4 (id 11) and a group of 1, 2 and 3 (id 20).
func newFixture() *fixture {
	first := &models.User{ID: 1, Email: "first@example.com", FullName: "First User", IsActive: true}
	second := &models.User{ID: 2, Email: "second@example.com", FullName: "Second User", IsActive: true}
	third := &models.User{ID: 3, Email: "third@example.com", IsActive: true}
	fourth := &models.User{ID: 4, Email: "fourth@example.com", FullName: "Fourth User", IsActive: false}

	users := NewMockUserRepository(first, second, third, fourth)
	chats := NewMockChatRepository(
		&models.Chat{ID: 10, ChatUUID: "direct-1-2", Users: []models.User{*first, *second}, OwnerID: 1},
		&models.Chat{ID: 11, ChatUUID: "direct-3-4", Users: []models.User{*third, *fourth}, OwnerID: 3},
		&models.Chat{ID: 20, ChatUUID: groupUUID, IsGroup: true, Name: "Cool and Chill Chat", Users: []models.User{*first, *second, *third}, OwnerID: 1},
	)
	messages := NewMockMessageRepository(users)

	return &fixture{
		users:    users,
		chats:    chats,
		messages: messages,
		reads:    NewMockMessageReadRepository(messages),
	}
}

func (f *fixture) user(id uint) *models.User {
	return f.users.users[id]
}
