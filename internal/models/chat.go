package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chat is either a direct (two participant) chat or a group chat.
// ChatUUID is the stable identifier clients use to address group chats.
type Chat struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ChatUUID string `gorm:"type:varchar(36);uniqueIndex;not null" json:"chat_id"`
	Name     string `gorm:"size:255" json:"name"`
	IsGroup  bool   `gorm:"default:false;index" json:"is_group"`
	OwnerID  uint   `gorm:"not null" json:"owner_id"`

	Owner User   `gorm:"foreignKey:OwnerID" json:"owner"`
	Users []User `gorm:"many2many:user_chat_participants;" json:"users"`
}

func (c *Chat) BeforeCreate(tx *gorm.DB) error {
	if c.ChatUUID == "" {
		c.ChatUUID = uuid.NewString()
	}
	return nil
}

// ChatParticipant is the join table between chats and users.
type ChatParticipant struct {
	ChatID    uint      `gorm:"primaryKey" json:"chat_id"`
	UserID    uint      `gorm:"primaryKey" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (ChatParticipant) TableName() string {
	return "user_chat_participants"
}

type ChatPublic struct {
	ID       uint        `json:"id"`
	ChatUUID string      `json:"chat_id"`
	Name     string      `json:"name"`
	IsGroup  bool        `json:"is_group"`
	OwnerID  uint        `json:"owner_id"`
	Users    []UserShort `json:"users"`
	Owner    UserShort   `json:"owner"`
}

func (c *Chat) ToPublic() ChatPublic {
	users := make([]UserShort, 0, len(c.Users))
	for i := range c.Users {
		users = append(users, c.Users[i].ToShort())
	}
	return ChatPublic{
		ID:       c.ID,
		ChatUUID: c.ChatUUID,
		Name:     c.Name,
		IsGroup:  c.IsGroup,
		OwnerID:  c.OwnerID,
		Users:    users,
		Owner:    c.Owner.ToShort(),
	}
}

type MyChatsPublic struct {
	GroupChats []ChatPublic `json:"group_chats"`
	LcChats    []ChatPublic `json:"lc_chats"`
}
