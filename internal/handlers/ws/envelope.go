package ws

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Wire values of the envelope "type" field.
const (
	TypeInit  = "init"
	TypeLc    = "lc"
	TypeGroup = "group"
)

var (
	ErrMalformedEnvelope  = errors.New("malformed envelope")
	ErrMissingMessageUUID = errors.New("message_uuid is required")
)

// Envelope is one decoded client frame: InitEnvelope, DirectEnvelope,
// GroupEnvelope or UnsupportedEnvelope.
type Envelope interface {
	envelope()
}

// InitEnvelope carries the access token that authenticates the session.
type InitEnvelope struct {
	Token string
}

// DirectEnvelope is a one-to-one message for ReceiverID.
type DirectEnvelope struct {
	ReceiverID  uint
	Content     string
	MessageUUID string
}

// GroupEnvelope is a message for the group chat with public identifier ChatUUID.
type GroupEnvelope struct {
	ChatUUID    string
	Content     string
	MessageUUID string
}

// UnsupportedEnvelope is any frame whose type is not known.
type UnsupportedEnvelope struct {
	Type string
}

func (InitEnvelope) envelope()        {}
func (DirectEnvelope) envelope()      {}
func (GroupEnvelope) envelope()       {}
func (UnsupportedEnvelope) envelope() {}

// wireEnvelope is the JSON shape sent by clients
type wireEnvelope struct {
	Type        string          `json:"type"`
	Content     string          `json:"content"`
	ReceiverID  json.RawMessage `json:"receiver_id"`
	MessageUUID string          `json:"message_uuid"`
}

// DecodeEnvelope parses a client frame. receiver_id may be a JSON string or number.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var wire wireEnvelope
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	switch wire.Type {
	case TypeInit:
		return InitEnvelope{Token: wire.Content}, nil

	case TypeLc:
		if wire.MessageUUID == "" {
			return nil, ErrMissingMessageUUID
		}
		raw, err := receiverText(wire.ReceiverID)
		if err != nil {
			return nil, err
		}
		id, err := strconv.ParseUint(raw, 10, 0)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("%w: receiver_id %q is not a user id", ErrMalformedEnvelope, raw)
		}
		return DirectEnvelope{ReceiverID: uint(id), Content: wire.Content, MessageUUID: wire.MessageUUID}, nil

	case TypeGroup:
		if wire.MessageUUID == "" {
			return nil, ErrMissingMessageUUID
		}
		raw, err := receiverText(wire.ReceiverID)
		if err != nil {
			return nil, err
		}
		if raw == "" {
			return nil, fmt.Errorf("%w: receiver_id is empty", ErrMalformedEnvelope)
		}
		return GroupEnvelope{ChatUUID: raw, Content: wire.Content, MessageUUID: wire.MessageUUID}, nil

	default:
		return UnsupportedEnvelope{Type: wire.Type}, nil
	}
}

func receiverText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", fmt.Errorf("%w: receiver_id is required", ErrMalformedEnvelope)
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("%w: receiver_id: %v", ErrMalformedEnvelope, err)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("%w: receiver_id must be a string or number", ErrMalformedEnvelope)
	}
	return n.String(), nil
}
