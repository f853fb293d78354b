// Package broker is the fan-out layer between gateway sessions.
//
// Delivery is fire-and-forget: a payload reaches only the subscriptions that
// exist when it is published, and no ordering is promised across publishers.
package broker

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrClosed is returned by Receive after the subscription has been closed.
var ErrClosed = errors.New("broker: subscription closed")

type Message struct {
	Topic   string
	Payload []byte
}

type Broker interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	// Subscribe returns once the subscription is live on every topic.
	Subscribe(ctx context.Context, topics ...string) (Subscription, error)
}

// Subscription is owned by exactly one session.
type Subscription interface {
	// Receive waits at most wait for the next payload. It returns (nil, nil)
	// when nothing arrived in time.
	Receive(ctx context.Context, wait time.Duration) (*Message, error)
	Topics() []string
	// Close unsubscribes from every topic.
	Close() error
}

// PersonalTopic carries direct messages and read receipts addressed to userID.
func PersonalTopic(userID uint) string {
	return fmt.Sprintf("lc_chat_%d", userID)
}

// GroupTopic carries messages of the group chat with the given public identifier.
func GroupTopic(chatUUID string) string {
	return "group_chat_" + chatUUID
}

func dedupe(topics []string) []string {
	seen := make(map[string]struct{}, len(topics))
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		if _, ok := seen[t]; ok || t == "" {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
