package broker

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

const unsubscribeTimeout = 2 * time.Second

// RedisBroker publishes over Redis pub/sub. The client is shared process-wide;
// every Subscribe opens a dedicated PubSub connection.
type RedisBroker struct {
	client *redis.Client
}

func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func (b *RedisBroker) Publish(ctx context.Context, topic string, payload []byte) error {
	return b.client.Publish(ctx, topic, payload).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, topics ...string) (Subscription, error) {
	topics = dedupe(topics)
	if len(topics) == 0 {
		return nil, errors.New("broker: no topics to subscribe")
	}

	ps := b.client.Subscribe(ctx, topics...)
	// The first confirmation means the server has registered the whole command.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	return &redisSubscription{ps: ps, topics: topics}, nil
}

type redisSubscription struct {
	ps     *redis.PubSub
	topics []string
}

func (s *redisSubscription) Receive(ctx context.Context, wait time.Duration) (*Message, error) {
	msg, err := s.ps.ReceiveTimeout(ctx, wait)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, nil
		}
		if errors.Is(err, redis.ErrClosed) {
			return nil, ErrClosed
		}
		return nil, err
	}

	switch m := msg.(type) {
	case *redis.Message:
		return &Message{Topic: m.Channel, Payload: []byte(m.Payload)}, nil
	default:
		// subscription confirmations and pongs
		return nil, nil
	}
}

func (s *redisSubscription) Topics() []string {
	return append([]string(nil), s.topics...)
}

func (s *redisSubscription) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), unsubscribeTimeout)
	defer cancel()
	unsubErr := s.ps.Unsubscribe(ctx, s.topics...)
	return errors.Join(unsubErr, s.ps.Close())
}
