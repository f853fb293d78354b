package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/noteduco342/om-realtime/internal/broker"
	"github.com/noteduco342/om-realtime/internal/metrics"
	"github.com/noteduco342/om-realtime/internal/models"
	"github.com/noteduco342/om-realtime/internal/repository"
	"github.com/noteduco342/om-realtime/internal/validation"
	"github.com/rs/zerolog"
)

const (
	previewLength       = 50
	defaultHistoryLimit = 100
)

// Publisher is the publish half of the broker.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// ReadService records read markers and notifies the message sender.
type ReadService struct {
	messageRepo repository.MessageRepositoryInterface
	chatRepo    repository.ChatRepositoryInterface
	readRepo    repository.MessageReadRepositoryInterface
	publisher   Publisher
	log         zerolog.Logger
}

func NewReadService(
	messageRepo repository.MessageRepositoryInterface,
	chatRepo repository.ChatRepositoryInterface,
	readRepo repository.MessageReadRepositoryInterface,
	publisher Publisher,
	log zerolog.Logger,
) *ReadService {
	return &ReadService{
		messageRepo: messageRepo,
		chatRepo:    chatRepo,
		readRepo:    readRepo,
		publisher:   publisher,
		log:         log.With().Str("component", "read_receipts").Logger(),
	}
}

// MarkRead marks one message read by reader and notifies its sender.
func (s *ReadService) MarkRead(ctx context.Context, messageID uint, reader *models.User) error {
	msg, err := s.messageRepo.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMessageNotFound
		}
		return err
	}

	member, err := s.chatRepo.IsParticipant(ctx, msg.ChatID, reader.ID)
	if err != nil {
		return err
	}
	if !member {
		return ErrNotParticipant
	}
	if msg.SenderID == reader.ID {
		return ErrOwnMessage
	}
	read, err := s.readRepo.Exists(ctx, msg.ID, reader.ID)
	if err != nil {
		return err
	}
	if read {
		return ErrAlreadyRead
	}

	return s.markAndNotify(ctx, msg, reader)
}

// History returns a page of the chat and marks every unread message of the
// reader read, one notification per message.
func (s *ReadService) History(ctx context.Context, chatID uint, reader *models.User, limit, offset int) ([]models.MessagePublic, error) {
	member, err := s.chatRepo.IsParticipant(ctx, chatID, reader.ID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotParticipant
	}

	unread, err := s.messageRepo.FindUnread(ctx, chatID, reader.ID)
	if err != nil {
		return nil, err
	}
	for i := range unread {
		err := s.markAndNotify(ctx, &unread[i], reader)
		if err != nil && !errors.Is(err, ErrAlreadyRead) {
			return nil, err
		}
	}

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	messages, err := s.messageRepo.FindForChat(ctx, chatID, limit, offset)
	if err != nil {
		return nil, err
	}

	out := make([]models.MessagePublic, 0, len(messages))
	for i := range messages {
		out = append(out, messages[i].ToPublic())
	}
	return out, nil
}

func (s *ReadService) markAndNotify(ctx context.Context, msg *models.Message, reader *models.User) error {
	if err := s.readRepo.Create(ctx, msg.ID, reader.ID); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrAlreadyRead
		}
		return fmt.Errorf("mark message %d read: %w", msg.ID, err)
	}
	metrics.ReadReceipts.Inc()

	s.notify(ctx, msg, reader)
	return nil
}

// notify publishes to the sender's personal topic whatever the chat kind.
// The broker is fire-and-forget, so a failed publish is logged only.
func (s *ReadService) notify(ctx context.Context, msg *models.Message, reader *models.User) {
	event := BuildReadNotification(msg, reader)
	payload, err := json.Marshal(event)
	if err != nil {
		s.log.Error().Err(err).Uint("msg_id", msg.ID).Msg("marshal read notification")
		return
	}

	topic := broker.PersonalTopic(msg.SenderID)
	err = s.publisher.Publish(ctx, topic, payload)
	metrics.BrokerPublishes.WithLabelValues(metrics.PublishResult(err)).Inc()
	if err != nil {
		s.log.Error().Err(err).Str("topic", topic).Uint("msg_id", msg.ID).Msg("publish read notification")
		return
	}
	s.log.Debug().Str("topic", topic).Uint("msg_id", msg.ID).Uint("reader_id", reader.ID).Msg("read notification published")
}

func BuildReadNotification(msg *models.Message, reader *models.User) models.NotifyEvent {
	return models.NotifyEvent{
		Type: models.NotifyMessageRead,
		MetaData: models.NotifyMetaData{
			MessageID: msg.ID,
			WhoRead:   reader.ToShort(),
		},
		Content: fmt.Sprintf("Your message: \"%s\" was read by: \"%s\"\n", validation.Preview(msg.Content, previewLength), reader.DisplayName()),
	}
}
