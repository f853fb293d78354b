package service

import "errors"

var (
	// Authentication
	ErrInvalidToken       = errors.New("could not validate credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrInactiveUser       = errors.New("inactive user")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Persistence gateway
	ErrChatNotFound     = errors.New("chat not found")
	ErrDuplicateMessage = errors.New("message already exists")
	ErrEmptyContent     = errors.New("message content is empty")

	// Read receipts
	ErrMessageNotFound = errors.New("message not found")
	ErrNotParticipant  = errors.New("not a member of this chat")
	ErrOwnMessage      = errors.New("cannot mark own message as read")
	ErrAlreadyRead     = errors.New("message already read")
)
