package ws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/noteduco342/om-realtime/internal/broker"
	"github.com/noteduco342/om-realtime/internal/metrics"
)

const receiveRetryPause = 100 * time.Millisecond

func (s *Session) startTasks(ctx context.Context) {
	s.queue = make(chan []byte, s.g.cfg.QueueSize)
	s.tasks = []*task{
		s.spawn(ctx, "inbound_bridge", s.bridge),
		s.spawn(ctx, "outbound_delivery", s.deliver),
	}
}

func (s *Session) spawn(ctx context.Context, name string, fn func(context.Context) error) *task {
	t := &task{name: name, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		defer func() {
			if r := recover(); r != nil {
				s.log.Error().Str("task", name).Interface("panic", r).Msg("task recovered from panic")
				s.cancel(fmt.Errorf("%w: %s", errTaskPanicked, name))
			}
		}()

		err := fn(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn().Str("task", name).Err(err).Msg("task stopped")
			return
		}
		s.log.Debug().Str("task", name).Msg("task stopped")
	}()
	return t
}

// bridge moves broker payloads into the delivery queue. Only cancellation or
// a closed subscription stops it.
func (s *Session) bridge(ctx context.Context) error {
	pause := time.NewTimer(0)
	if !pause.Stop() {
		<-pause.C
	}
	defer pause.Stop()

	for {
		msg, err := s.sub.Receive(ctx, s.g.cfg.PollInterval)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		switch {
		case errors.Is(err, broker.ErrClosed):
			s.cancel(errSubscriptionClosed)
			return err
		case err != nil:
			metrics.BrokerReceiveErrors.Inc()
			s.log.Warn().Err(err).Msg("broker receive")
			pause.Reset(receiveRetryPause)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-pause.C:
			}
			continue
		case msg == nil:
			continue
		}

		select {
		case s.queue <- msg.Payload:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// deliver writes queued payloads to the client in order. A failed write
// ends the session.
func (s *Session) deliver(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload := <-s.queue:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := s.t.WriteText(payload, s.g.cfg.WriteTimeout); err != nil {
				s.cancel(fmt.Errorf("%w: %v", errDeliveryFailed, err))
				return err
			}
		}
	}
}
