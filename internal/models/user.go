package models

import (
	"time"
)

type User struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Email          string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	FullName       string `gorm:"size:255" json:"full_name"`
	HashedPassword string `gorm:"not null" json:"-"`
	IsActive       bool   `gorm:"default:true" json:"is_active"`
	IsSuperuser    bool   `gorm:"default:false" json:"is_superuser"`

	Chats []Chat `gorm:"many2many:user_chat_participants;" json:"-"`
}

// UserShort is the public profile embedded in message and notification payloads.
type UserShort struct {
	ID       uint    `json:"id"`
	Email    string  `json:"email"`
	FullName *string `json:"full_name"`
}

// DisplayName returns the full name when set, otherwise the email.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}

func (u *User) ToShort() UserShort {
	short := UserShort{ID: u.ID, Email: u.Email}
	if u.FullName != "" {
		name := u.FullName
		short.FullName = &name
	}
	return short
}
