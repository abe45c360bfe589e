package bridge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/internal/repository"
	"github.com/weiawesome/wes-io-chat/pkg/pubsub"
)

type recordingMessages struct {
	repository.MessageRepository
	created []*domain.Message
	err     error
}

func (r *recordingMessages) Create(_ context.Context, msg *domain.Message) error {
	if r.err != nil {
		return r.err
	}
	msg.ID = "m1"
	r.created = append(r.created, msg)
	return nil
}

type recordingPublisher struct {
	channels []string
	events   []*pubsub.Event
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, event *pubsub.Event) error {
	p.channels = append(p.channels, channel)
	p.events = append(p.events, event)
	return p.err
}

func TestPersistStoresAndPublishes(t *testing.T) {
	msgs := &recordingMessages{}
	pub := &recordingPublisher{}
	b := New(msgs, pub)

	msg := &domain.Message{Content: "hi", SenderID: "a", ChatID: "c"}
	require.NoError(t, b.Persist(context.Background(), msg))

	require.Len(t, msgs.created, 1)
	assert.Equal(t, "hi", msgs.created[0].Content)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "chat:room:c:messages", pub.channels[0])
	assert.Equal(t, pubsub.EventMessageCreated, pub.events[0].Type)

	var payload pubsub.MessageCreatedPayload
	require.NoError(t, pub.events[0].UnmarshalPayload(&payload))
	assert.Equal(t, "m1", payload.MessageID)
	assert.Equal(t, "a", payload.SenderID)
}

func TestPersistWrapsStoreFailure(t *testing.T) {
	pub := &recordingPublisher{}
	b := New(&recordingMessages{err: errors.New("disk full")}, pub)

	err := b.Persist(context.Background(), &domain.Message{ChatID: "c"})
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Empty(t, pub.events)
}

func TestPersistIgnoresPublishFailure(t *testing.T) {
	msgs := &recordingMessages{}
	b := New(msgs, &recordingPublisher{err: errors.New("broker down")})

	assert.NoError(t, b.Persist(context.Background(), &domain.Message{ChatID: "c"}))
	assert.Len(t, msgs.created, 1)
}

func TestNewWithoutPublisher(t *testing.T) {
	msgs := &recordingMessages{}
	b := New(msgs, nil)
	assert.NoError(t, b.Persist(context.Background(), &domain.Message{ChatID: "c"}))
}
