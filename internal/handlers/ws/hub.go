package ws

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	presenceTimeout   = 2 * time.Second
	drainPollInterval = 20 * time.Millisecond
)

// Presence records users that have at least one live session.
type Presence interface {
	SetUserOnline(ctx context.Context, userID uint) error
	SetUserOffline(ctx context.Context, userID uint) error
}

// Hub tracks every authenticated session. A user may hold several sessions,
// presence flips on the first and off after the last.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	perUser  map[uint]int
	presence Presence
	log      zerolog.Logger
}

// NewHub creates a new Hub instance. presence may be nil.
func NewHub(presence Presence, log zerolog.Logger) *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		perUser:  make(map[uint]int),
		presence: presence,
		log:      log.With().Str("component", "hub").Logger(),
	}
}

func (h *Hub) register(s *Session) {
	userID := s.user.ID

	h.mu.Lock()
	h.sessions[s.id] = s
	h.perUser[userID]++
	first := h.perUser[userID] == 1
	total := len(h.sessions)
	h.mu.Unlock()

	if first && h.presence != nil {
		ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
		if err := h.presence.SetUserOnline(ctx, userID); err != nil {
			h.log.Warn().Err(err).Uint("user_id", userID).Msg("set user online")
		}
		cancel()
	}
	h.log.Debug().Uint("user_id", userID).Int("total", total).Msg("session registered")
}

func (h *Hub) unregister(s *Session) {
	userID := s.user.ID

	h.mu.Lock()
	if _, ok := h.sessions[s.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, s.id)
	h.perUser[userID]--
	last := h.perUser[userID] <= 0
	if last {
		delete(h.perUser, userID)
	}
	total := len(h.sessions)
	h.mu.Unlock()

	if last && h.presence != nil {
		ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
		if err := h.presence.SetUserOffline(ctx, userID); err != nil {
			h.log.Warn().Err(err).Uint("user_id", userID).Msg("set user offline")
		}
		cancel()
	}
	h.log.Debug().Uint("user_id", userID).Int("total", total).Msg("session unregistered")
}

// IsOnline checks if a user is connected
func (h *Hub) IsOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.perUser[userID] > 0
}

// OnlineUsers returns the connected user IDs in ascending order.
func (h *Hub) OnlineUsers() []uint {
	h.mu.RLock()
	users := make([]uint, 0, len(h.perUser))
	for userID := range h.perUser {
		users = append(users, userID)
	}
	h.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users
}

// Count returns the number of authenticated sessions
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Drain waits until every session has unregistered or ctx is done.
func (h *Hub) Drain(ctx context.Context) error {
	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()
	for h.Count() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
