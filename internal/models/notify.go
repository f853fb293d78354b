package models

type NotifyType string

const (
	NotifyMessageRead NotifyType = "MSG_READ"
)

// NotifyEvent is published to a user's personal topic and never persisted.
type NotifyEvent struct {
	Type     NotifyType     `json:"type"`
	MetaData NotifyMetaData `json:"meta_data"`
	Content  string         `json:"content"`
}

type NotifyMetaData struct {
	MessageID uint      `json:"msg_id"`
	WhoRead   UserShort `json:"who_read"`
}
