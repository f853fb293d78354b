package models

import (
	"time"
)

const MaxContentLength = 2048

type Message struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Client-supplied idempotency key
	MessageUUID string `gorm:"type:varchar(64);uniqueIndex:uq_message_message_uuid;not null" json:"message_uuid"`

	ChatID   uint `gorm:"not null;index" json:"chat_id"`
	Chat     Chat `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE" json:"-"`
	SenderID uint `gorm:"not null;index" json:"sender_id"`
	Sender   User `gorm:"foreignKey:SenderID" json:"sender"`

	ReadByUsers []User `gorm:"many2many:message_read;joinForeignKey:MessageID;joinReferences:UserID" json:"read_by_users"`

	Content string `gorm:"size:2048;not null" json:"content"`
}

func (Message) TableName() string {
	return "message"
}

// MessageRead marks that a participant other than the sender has read a message.
type MessageRead struct {
	MessageID uint      `gorm:"primaryKey" json:"message_id"`
	UserID    uint      `gorm:"primaryKey" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (MessageRead) TableName() string {
	return "message_read"
}

// MessagePublic is the payload broadcast to subscribers and returned by history.
type MessagePublic struct {
	ID          uint        `json:"id"`
	ChatID      uint        `json:"chat_id"`
	SenderID    uint        `json:"sender_id"`
	Content     string      `json:"content"`
	ReadByUsers []UserShort `json:"read_by_users"`
	Sender      UserShort   `json:"sender"`
	UpdatedAt   string      `json:"updated_at"`
}

func (m *Message) ToPublic() MessagePublic {
	readBy := make([]UserShort, 0, len(m.ReadByUsers))
	for i := range m.ReadByUsers {
		readBy = append(readBy, m.ReadByUsers[i].ToShort())
	}
	return MessagePublic{
		ID:          m.ID,
		ChatID:      m.ChatID,
		SenderID:    m.SenderID,
		Content:     m.Content,
		ReadByUsers: readBy,
		Sender:      m.Sender.ToShort(),
		UpdatedAt:   m.UpdatedAt.Format(time.RFC3339Nano),
	}
}

