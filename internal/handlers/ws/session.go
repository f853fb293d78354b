// Package ws is the realtime gateway: one Session per websocket connection.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/noteduco342/om-realtime/internal/broker"
	"github.com/noteduco342/om-realtime/internal/config"
	"github.com/noteduco342/om-realtime/internal/metrics"
	"github.com/noteduco342/om-realtime/internal/models"
	"github.com/noteduco342/om-realtime/internal/service"
	"github.com/rs/zerolog"
)

// Authenticator validates an access token. The HTTP middleware uses the same one.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// Memberships lists the public identifiers of a user's group chats.
type Memberships interface {
	ListGroupMemberships(ctx context.Context, userID uint) ([]string, error)
}

// MessageStore persists inbound messages.
type MessageStore interface {
	FindByMessageUUID(ctx context.Context, messageUUID string) (*models.Message, error)
	ResolveDirectChat(ctx context.Context, senderID, receiverID uint) (uint, error)
	ResolveGroupChat(ctx context.Context, chatUUID string, senderID uint) (uint, error)
	CreateMessage(ctx context.Context, chatID, senderID uint, messageUUID, content string) (*models.Message, error)
	Public(ctx context.Context, messageID uint) (*models.MessagePublic, error)
}

// State is the lifecycle stage of a Session.
type State int32

const (
	StateUnauthenticated State = iota
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

var (
	errDeliveryFailed     = errors.New("outbound delivery failed")
	errSubscriptionClosed = errors.New("broker subscription closed")
	errTaskPanicked       = errors.New("session task panicked")
)

// closeError ends the session with a specific close code.
type closeError struct {
	code   CloseCode
	reason string
	err    error
}

func (e *closeError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.reason, e.err)
	}
	return e.reason
}

func (e *closeError) Unwrap() error { return e.err }

func policyViolation(reason string, err error) error {
	return &closeError{code: ClosePolicyViolation, reason: reason, err: err}
}

func unsupportedData(reason string, err error) error {
	return &closeError{code: CloseUnsupportedData, reason: reason, err: err}
}

// Gateway builds sessions over accepted connections.
type Gateway struct {
	auth        Authenticator
	memberships Memberships
	messages    MessageStore
	broker      broker.Broker
	hub         *Hub
	cfg         config.WSConfig
	log         zerolog.Logger
}

type GatewayOptions struct {
	Auth        Authenticator
	Memberships Memberships
	Messages    MessageStore
	Broker      broker.Broker
	Hub         *Hub
	Config      config.WSConfig
	Logger      zerolog.Logger
}

func NewGateway(opts GatewayOptions) *Gateway {
	cfg := opts.Config
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 5 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	hub := opts.Hub
	if hub == nil {
		hub = NewHub(nil, opts.Logger)
	}
	return &Gateway{
		auth:        opts.Auth,
		memberships: opts.Memberships,
		messages:    opts.Messages,
		broker:      opts.Broker,
		hub:         hub,
		cfg:         cfg,
		log:         opts.Logger.With().Str("component", "gateway").Logger(),
	}
}

func (g *Gateway) Hub() *Hub {
	return g.hub
}

// Serve runs a session over t until the client leaves, a fault occurs or ctx
// is cancelled. It returns the close code sent to the client.
func (g *Gateway) Serve(ctx context.Context, t Transport) CloseCode {
	id := uuid.NewString()
	s := &Session{
		id:  id,
		g:   g,
		t:   t,
		log: g.log.With().Str("socket_id", id).Str("client_host", t.RemoteAddr()).Logger(),
	}
	return s.run(ctx)
}

type task struct {
	name string
	done chan struct{}
}

// Session owns one connection. Only the goroutine running Serve reads from
// the transport; only the outbound delivery task writes data frames.
type Session struct {
	id    string
	g     *Gateway
	t     Transport
	log   zerolog.Logger
	state atomic.Int32

	user  *models.User
	sub   broker.Subscription
	queue chan []byte
	tasks []*task

	cancel       context.CancelCauseFunc
	code         CloseCode
	reason       string
	teardownOnce sync.Once
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) run(parent context.Context) (code CloseCode) {
	metrics.ActiveConnections.Inc()
	defer metrics.ActiveConnections.Dec()

	ctx, cancel := context.WithCancelCause(parent)
	s.cancel = cancel
	stop := context.AfterFunc(ctx, func() {
		_ = s.t.SetReadDeadline(time.Now())
	})
	defer stop()

	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("session recovered from panic")
			s.record(CloseInternalError, "internal error")
		}
		s.teardown()
		code = s.code
	}()

	s.log.Debug().Msg("connection accepted")
	err := s.loop(ctx)
	s.finish(ctx, err)
	return s.code
}

func (s *Session) loop(ctx context.Context) error {
	for {
		data, err := s.t.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return context.Cause(ctx)
			}
			s.log.Debug().Err(err).Msg("read ended")
			return nil
		}

		env, err := DecodeEnvelope(data)
		if err := s.handle(ctx, env, err); err != nil {
			return err
		}
	}
}

func (s *Session) handle(ctx context.Context, env Envelope, decodeErr error) error {
	if s.State() == StateUnauthenticated {
		if decodeErr != nil {
			return policyViolation("authentication required", decodeErr)
		}
		hello, ok := env.(InitEnvelope)
		if !ok {
			return policyViolation("authentication required", nil)
		}
		return s.authenticate(ctx, hello.Token)
	}

	if decodeErr != nil {
		if errors.Is(decodeErr, ErrMissingMessageUUID) {
			return policyViolation("message_uuid is required", decodeErr)
		}
		return unsupportedData("malformed envelope", decodeErr)
	}

	switch e := env.(type) {
	case DirectEnvelope:
		return s.accept(ctx, TypeLc, e.MessageUUID, e.Content, func() (uint, string, error) {
			chatID, err := s.g.messages.ResolveDirectChat(ctx, s.user.ID, e.ReceiverID)
			return chatID, broker.PersonalTopic(e.ReceiverID), err
		})
	case GroupEnvelope:
		return s.accept(ctx, TypeGroup, e.MessageUUID, e.Content, func() (uint, string, error) {
			chatID, err := s.g.messages.ResolveGroupChat(ctx, e.ChatUUID, s.user.ID)
			return chatID, broker.GroupTopic(e.ChatUUID), err
		})
	case InitEnvelope:
		return unsupportedData("session already initialized", nil)
	case UnsupportedEnvelope:
		return unsupportedData("unsupported message type", fmt.Errorf("type %q", e.Type))
	}
	return unsupportedData("unsupported message type", nil)
}

func (s *Session) authenticate(ctx context.Context, token string) error {
	user, err := s.g.auth.Authenticate(ctx, token)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) || errors.Is(err, service.ErrUserNotFound) || errors.Is(err, service.ErrInactiveUser) {
			return policyViolation("could not validate credentials", err)
		}
		return fmt.Errorf("authenticate: %w", err)
	}

	groups, err := s.g.memberships.ListGroupMemberships(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list group memberships: %w", err)
	}
	topics := make([]string, 0, len(groups)+1)
	for _, chatUUID := range groups {
		topics = append(topics, broker.GroupTopic(chatUUID))
	}
	topics = append(topics, broker.PersonalTopic(user.ID))

	sub, err := s.g.broker.Subscribe(ctx, topics...)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	s.user = user
	s.sub = sub
	s.log = s.log.With().Uint("user_id", user.ID).Logger()
	s.startTasks(ctx)
	s.state.Store(int32(StateActive))
	s.g.hub.register(s)

	s.log.Info().Strs("topics", sub.Topics()).Msg("session active")
	return nil
}

// accept runs one inbound message through dedup, persistence and publish.
func (s *Session) accept(ctx context.Context, kind, messageUUID, content string, resolve func() (uint, string, error)) error {
	existing, err := s.g.messages.FindByMessageUUID(ctx, messageUUID)
	if err != nil {
		return fmt.Errorf("find message %q: %w", messageUUID, err)
	}
	if existing != nil {
		s.duplicate(messageUUID)
		return nil
	}

	chatID, topic, err := resolve()
	if err != nil {
		return fmt.Errorf("resolve %s target: %w", kind, err)
	}

	msg, err := s.g.messages.CreateMessage(ctx, chatID, s.user.ID, messageUUID, content)
	switch {
	case errors.Is(err, service.ErrDuplicateMessage):
		s.duplicate(messageUUID)
		return nil
	case errors.Is(err, service.ErrEmptyContent):
		s.log.Warn().Str("message_uuid", messageUUID).Msg("empty message discarded")
		return nil
	case err != nil:
		return fmt.Errorf("create message: %w", err)
	}
	metrics.MessagesPersisted.WithLabelValues(kind).Inc()

	public, err := s.g.messages.Public(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("load message %d: %w", msg.ID, err)
	}
	payload, err := json.Marshal(public)
	if err != nil {
		return fmt.Errorf("marshal message %d: %w", msg.ID, err)
	}

	err = s.g.broker.Publish(ctx, topic, payload)
	metrics.BrokerPublishes.WithLabelValues(metrics.PublishResult(err)).Inc()
	if err != nil {
		s.log.Error().Err(err).Str("topic", topic).Uint("msg_id", msg.ID).Msg("publish message")
		return nil
	}
	s.log.Debug().Str("topic", topic).Uint("msg_id", msg.ID).Msg("message published")
	return nil
}

func (s *Session) duplicate(messageUUID string) {
	metrics.DuplicateMessages.Inc()
	s.log.Warn().Str("message_uuid", messageUUID).Msg("duplicate message discarded")
}

// finish records the close code for the error that ended the main loop.
func (s *Session) finish(ctx context.Context, err error) {
	var ce *closeError
	if errors.As(err, &ce) {
		s.log.Warn().Err(err).Int("code", int(ce.code)).Msg("closing session")
		s.record(ce.code, ce.reason)
		return
	}
	if err != nil && ctx.Err() != nil {
		err = context.Cause(ctx)
	}

	switch {
	case err == nil:
		s.record(CloseNormalClosure, "")
	case errors.Is(err, errDeliveryFailed), errors.Is(err, errSubscriptionClosed), errors.Is(err, errTaskPanicked):
		s.log.Error().Err(err).Msg("session task failed")
		s.record(CloseInternalError, "internal error")
	case ctx.Err() != nil:
		s.record(CloseNormalClosure, "server shutting down")
	default:
		s.log.Error().Err(err).Msg("session fault")
		s.record(CloseInternalError, "internal error")
	}
}

func (s *Session) record(code CloseCode, reason string) {
	s.code = code
	s.reason = reason
}

// teardown stops the tasks, unsubscribes and closes the transport. It runs once.
func (s *Session) teardown() {
	s.teardownOnce.Do(func() {
		s.state.Store(int32(StateClosing))
		s.cancel(nil)

		grace := time.NewTimer(s.g.cfg.ShutdownGrace)
		defer grace.Stop()
		expired := false
		for _, t := range s.tasks {
			if !expired {
				select {
				case <-t.done:
					continue
				case <-grace.C:
					expired = true
				}
			}
			select {
			case <-t.done:
			default:
				s.reportLeak(t)
			}
		}

		if s.sub != nil {
			if err := s.sub.Close(); err != nil {
				s.log.Warn().Err(err).Msg("unsubscribe")
			}
		}
		if s.user != nil {
			s.g.hub.unregister(s)
		}
		if err := s.t.Close(s.code, s.reason); err != nil {
			s.log.Debug().Err(err).Msg("close transport")
		}

		metrics.SessionsClosed.WithLabelValues(strconv.Itoa(int(s.code))).Inc()
		s.state.Store(int32(StateClosed))
		s.log.Info().Int("code", int(s.code)).Msg("session closed")
	})
}

func (s *Session) reportLeak(t *task) {
	metrics.TaskLeaks.WithLabelValues(t.name).Inc()
	s.log.Error().Str("task", t.name).Dur("grace", s.g.cfg.ShutdownGrace).Msg("task did not stop within grace period, leaking")
}
