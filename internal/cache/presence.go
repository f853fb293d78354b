package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	OnlineUsersKey = "online:users"
	OnlineUserTTL  = 24 * time.Hour
)

// Presence records which users have at least one live gateway session.
// A nil Presence or one without Redis is a no-op.
type Presence struct {
	redis *RedisCache
}

func NewPresence(redis *RedisCache) *Presence {
	return &Presence{redis: redis}
}

func onlineUserKey(userID uint) string {
	return fmt.Sprintf("online:%d", userID)
}

// SetUserOnline adds a user to the online users set
func (p *Presence) SetUserOnline(ctx context.Context, userID uint) error {
	if p == nil || p.redis == nil {
		return nil
	}
	if err := p.redis.SetAdd(ctx, OnlineUsersKey, userID); err != nil {
		return err
	}
	return p.redis.Set(ctx, onlineUserKey(userID), []byte("1"), OnlineUserTTL)
}

// SetUserOffline removes a user from the online users set
func (p *Presence) SetUserOffline(ctx context.Context, userID uint) error {
	if p == nil || p.redis == nil {
		return nil
	}
	if err := p.redis.SetRemove(ctx, OnlineUsersKey, userID); err != nil {
		return err
	}
	return p.redis.Delete(ctx, onlineUserKey(userID))
}

// IsUserOnline checks if a user is online
func (p *Presence) IsUserOnline(ctx context.Context, userID uint) bool {
	if p == nil || p.redis == nil {
		return false
	}
	return p.redis.Exists(ctx, onlineUserKey(userID))
}
