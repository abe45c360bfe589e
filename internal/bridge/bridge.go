package bridge

import (
	"context"
	"fmt"

	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/internal/repository"
	"github.com/weiawesome/wes-io-chat/pkg/log"
	"github.com/weiawesome/wes-io-chat/pkg/pubsub"
)

// Bridge hands broadcast messages to the store and announces them on the
// event bus once they are durable.
type Bridge struct {
	messages  repository.MessageRepository
	publisher pubsub.Publisher
}

// New builds a Bridge. A nil publisher disables announcements.
func New(messages repository.MessageRepository, publisher pubsub.Publisher) *Bridge {
	if publisher == nil {
		publisher = pubsub.NoopBus{}
	}
	return &Bridge{messages: messages, publisher: publisher}
}

// Persist stores msg. Store failures wrap domain.ErrPersistence. A failed
// announcement is logged and does not fail the call.
func (b *Bridge) Persist(ctx context.Context, msg *domain.Message) error {
	if err := b.messages.Create(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	urls := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		urls = append(urls, a.URL)
	}

	event, err := pubsub.NewEvent(pubsub.EventMessageCreated, msg.ChatID, pubsub.MessageCreatedPayload{
		MessageID:      msg.ID,
		ChatID:         msg.ChatID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		AttachmentURLs: urls,
		CreatedAt:      msg.CreatedAt,
	})
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldChatID, msg.ChatID).Msg("failed to build message event")
		return nil
	}

	if err := b.publisher.Publish(ctx, pubsub.ChatMessagesChannel(msg.ChatID), event); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldChatID, msg.ChatID).Msg("failed to publish message event")
	}
	return nil
}
