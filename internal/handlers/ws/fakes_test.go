package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/noteduco342/om-realtime/internal/broker"
	"github.com/noteduco342/om-realtime/internal/config"
	"github.com/noteduco342/om-realtime/internal/models"
	"github.com/noteduco342/om-realtime/internal/service"
	"github.com/rs/zerolog"
)

const (
	testGroup = "group-a"
	waitLimit = 2 * time.Second
)

var errReadInterrupted = errors.New("read deadline exceeded")

// fakeTransport is a client connection driven by the test
type fakeTransport struct {
	frames         chan []byte
	disconnectOnce sync.Once
	interrupt      chan struct{}
	interruptOnce  sync.Once
	written        chan []byte
	writeHook      func([]byte) error

	mu     sync.Mutex
	closes []CloseCode
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		frames:    make(chan []byte, 16),
		interrupt: make(chan struct{}),
		written:   make(chan []byte, 64),
	}
}

func (f *fakeTransport) ReadMessage() ([]byte, error) {
	select {
	case data, ok := <-f.frames:
		if !ok {
			return nil, io.EOF
		}
		return data, nil
	case <-f.interrupt:
		return nil, errReadInterrupted
	}
}

func (f *fakeTransport) WriteText(data []byte, timeout time.Duration) error {
	if f.writeHook != nil {
		if err := f.writeHook(data); err != nil {
			return err
		}
	}
	f.written <- append([]byte(nil), data...)
	return nil
}

func (f *fakeTransport) SetReadDeadline(t time.Time) error {
	if !t.After(time.Now()) {
		f.interruptOnce.Do(func() { close(f.interrupt) })
	}
	return nil
}

func (f *fakeTransport) Close(code CloseCode, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes = append(f.closes, code)
	return nil
}

func (f *fakeTransport) RemoteAddr() string {
	return "127.0.0.1:50000"
}

func (f *fakeTransport) send(t *testing.T, frame any) {
	t.Helper()
	var data []byte
	switch v := frame.(type) {
	case string:
		data = []byte(v)
	default:
		var err error
		if data, err = json.Marshal(v); err != nil {
			t.Fatalf("marshal frame: %v", err)
		}
	}
	f.frames <- data
}

func (f *fakeTransport) disconnect() {
	f.disconnectOnce.Do(func() { close(f.frames) })
}

func (f *fakeTransport) closeCodes() []CloseCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]CloseCode(nil), f.closes...)
}

// fakeAuth maps "token-<id>" to users
type fakeAuth struct {
	store *fakeStore
}

func (a *fakeAuth) Authenticate(ctx context.Context, token string) (*models.User, error) {
	var id uint
	if _, err := fmt.Sscanf(token, "token-%d", &id); err != nil {
		return nil, service.ErrInvalidToken
	}
	user, ok := a.store.users[id]
	if !ok {
		return nil, service.ErrUserNotFound
	}
	if !user.IsActive {
		return nil, service.ErrInactiveUser
	}
	return user, nil
}

type fakeGroup struct {
	chatID  uint
	members map[uint]bool
}

// fakeStore implements Memberships and MessageStore
type fakeStore struct {
	mu      sync.Mutex
	users   map[uint]*models.User
	direct  map[[2]uint]uint
	groups  map[string]fakeGroup
	byUUID  map[string]*models.Message
	byID    map[uint]*models.Message
	nextID  uint
	created int
	panicOn string
}

func newFakeStore() *fakeStore {
	users := map[uint]*models.User{
		1: {ID: 1, Email: "first@example.com", FullName: "First User", IsActive: true},
		2: {ID: 2, Email: "second@example.com", FullName: "Second User", IsActive: true},
		3: {ID: 3, Email: "third@example.com", IsActive: true},
		4: {ID: 4, Email: "fourth@example.com", IsActive: false},
	}
	return &fakeStore{
		users:  users,
		direct: map[[2]uint]uint{{1, 2}: 10},
		groups: map[string]fakeGroup{
			testGroup: {chatID: 20, members: map[uint]bool{1: true, 2: true}},
		},
		byUUID: make(map[string]*models.Message),
		byID:   make(map[uint]*models.Message),
		nextID: 1,
	}
}

func (s *fakeStore) ListGroupMemberships(ctx context.Context, userID uint) ([]string, error) {
	var out []string
	for uuid, g := range s.groups {
		if g.members[userID] {
			out = append(out, uuid)
		}
	}
	return out, nil
}

func (s *fakeStore) FindByMessageUUID(ctx context.Context, messageUUID string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byUUID[messageUUID], nil
}

func (s *fakeStore) ResolveDirectChat(ctx context.Context, senderID, receiverID uint) (uint, error) {
	key := [2]uint{senderID, receiverID}
	if senderID > receiverID {
		key = [2]uint{receiverID, senderID}
	}
	if id, ok := s.direct[key]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("%w: %d and %d", service.ErrChatNotFound, senderID, receiverID)
}

func (s *fakeStore) ResolveGroupChat(ctx context.Context, chatUUID string, senderID uint) (uint, error) {
	g, ok := s.groups[chatUUID]
	if !ok {
		return 0, service.ErrChatNotFound
	}
	if !g.members[senderID] {
		return 0, service.ErrNotParticipant
	}
	return g.chatID, nil
}

func (s *fakeStore) CreateMessage(ctx context.Context, chatID, senderID uint, messageUUID, content string) (*models.Message, error) {
	if s.panicOn != "" && content == s.panicOn {
		panic("store exploded")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, service.ErrEmptyContent
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byUUID[messageUUID]; ok {
		return nil, service.ErrDuplicateMessage
	}
	msg := &models.Message{
		ID:          s.nextID,
		MessageUUID: messageUUID,
		ChatID:      chatID,
		SenderID:    senderID,
		Sender:      *s.users[senderID],
		Content:     content,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	s.nextID++
	s.created++
	s.byUUID[messageUUID] = msg
	s.byID[msg.ID] = msg
	return msg, nil
}

func (s *fakeStore) Public(ctx context.Context, messageID uint) (*models.MessagePublic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.byID[messageID]
	if !ok {
		return nil, service.ErrMessageNotFound
	}
	public := msg.ToPublic()
	return &public, nil
}

func (s *fakeStore) createdCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created
}

// flakyBroker fails the first receives of every subscription
type flakyBroker struct {
	*broker.MemoryBroker
	failures int32
}

func (b *flakyBroker) Subscribe(ctx context.Context, topics ...string) (broker.Subscription, error) {
	sub, err := b.MemoryBroker.Subscribe(ctx, topics...)
	if err != nil {
		return nil, err
	}
	f := &flakySubscription{Subscription: sub}
	f.remaining.Store(b.failures)
	return f, nil
}

type flakySubscription struct {
	broker.Subscription
	remaining atomic.Int32
}

func (s *flakySubscription) Receive(ctx context.Context, wait time.Duration) (*broker.Message, error) {
	if s.remaining.Add(-1) >= 0 {
		return nil, errors.New("read tcp: connection reset by peer")
	}
	return s.Subscription.Receive(ctx, wait)
}

type recordingPresence struct {
	mu      sync.Mutex
	online  []uint
	offline []uint
}

func (p *recordingPresence) SetUserOnline(ctx context.Context, userID uint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online = append(p.online, userID)
	return nil
}

func (p *recordingPresence) SetUserOffline(ctx context.Context, userID uint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offline = append(p.offline, userID)
	return nil
}

func (p *recordingPresence) calls() ([]uint, []uint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]uint(nil), p.online...), append([]uint(nil), p.offline...)
}

type testEnv struct {
	store     *fakeStore
	broker    *broker.MemoryBroker
	presence  *recordingPresence
	gateway   *Gateway
	wsConfig  config.WSConfig
	brokerFor broker.Broker
}

type envOption func(*testEnv)

func withGrace(d time.Duration) envOption {
	return func(e *testEnv) { e.wsConfig.ShutdownGrace = d }
}

func withFlakyBroker(failures int32) envOption {
	return func(e *testEnv) { e.brokerFor = &flakyBroker{MemoryBroker: e.broker, failures: failures} }
}

func newTestEnv(opts ...envOption) *testEnv {
	e := &testEnv{
		store:    newFakeStore(),
		broker:   broker.NewMemoryBroker(64),
		presence: &recordingPresence{},
		wsConfig: config.WSConfig{
			PollInterval:  20 * time.Millisecond,
			QueueSize:     16,
			ShutdownGrace: time.Second,
			WriteTimeout:  time.Second,
		},
	}
	e.brokerFor = e.broker
	for _, opt := range opts {
		opt(e)
	}

	e.gateway = NewGateway(GatewayOptions{
		Auth:        &fakeAuth{store: e.store},
		Memberships: e.store,
		Messages:    e.store,
		Broker:      e.brokerFor,
		Hub:         NewHub(e.presence, zerolog.Nop()),
		Config:      e.wsConfig,
		Logger:      zerolog.Nop(),
	})
	return e
}

type testClient struct {
	ft   *fakeTransport
	done chan CloseCode
}

func (e *testEnv) connect(ctx context.Context) *testClient {
	c := &testClient{ft: newFakeTransport(), done: make(chan CloseCode, 1)}
	go func() { c.done <- e.gateway.Serve(ctx, c.ft) }()
	return c
}

// login connects and waits until the session listens on its personal topic.
func (e *testEnv) login(t *testing.T, ctx context.Context, userID uint) *testClient {
	t.Helper()
	topic := broker.PersonalTopic(userID)
	before := e.broker.Subscribers(topic)

	c := e.connect(ctx)
	c.ft.send(t, map[string]any{"type": "init", "content": fmt.Sprintf("token-%d", userID)})
	waitFor(t, func() bool { return e.broker.Subscribers(topic) > before }, "session subscribed")
	return c
}

// wait returns the close code and checks the transport was closed exactly once with it.
func (c *testClient) wait(t *testing.T) CloseCode {
	t.Helper()
	select {
	case code := <-c.done:
		closes := c.ft.closeCodes()
		if len(closes) != 1 || closes[0] != code {
			t.Fatalf("transport closes = %v, want exactly [%d]", closes, code)
		}
		return code
	case <-time.After(waitLimit):
		t.Fatal("session did not end")
		return 0
	}
}

func (c *testClient) expectFrame(t *testing.T) models.MessagePublic {
	t.Helper()
	select {
	case data := <-c.ft.written:
		var msg models.MessagePublic
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("frame %s is not a message: %v", data, err)
		}
		return msg
	case <-time.After(waitLimit):
		t.Fatal("no frame delivered")
		return models.MessagePublic{}
	}
}

func (c *testClient) expectNoFrame(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case data := <-c.ft.written:
		t.Fatalf("unexpected frame delivered: %s", data)
	case <-time.After(d):
	}
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(waitLimit)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func lc(receiver any, content, uuid string) map[string]any {
	return map[string]any{"type": "lc", "receiver_id": receiver, "content": content, "message_uuid": uuid}
}

func group(chatUUID, content, uuid string) map[string]any {
	return map[string]any{"type": "group", "receiver_id": chatUUID, "content": content, "message_uuid": uuid}
}
