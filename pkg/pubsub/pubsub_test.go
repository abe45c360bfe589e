package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelToTopicAndKey(t *testing.T) {
	topic, key, err := channelToTopicAndKey(ChatMessagesChannel("chat-1"))
	require.NoError(t, err)
	assert.Equal(t, "chat-messages", topic)
	assert.Equal(t, "chat-1", key)

	for _, bad := range []string{"", "chat:messages", "chat:user:1:messages", "chat:room::messages"} {
		_, _, err := channelToTopicAndKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestNewEventPayload(t *testing.T) {
	evt, err := NewEvent(EventMessageCreated, "chat-1", MessageCreatedPayload{MessageID: "m1", ChatID: "chat-1"})
	require.NoError(t, err)
	assert.Equal(t, EventMessageCreated, evt.Type)

	var p MessageCreatedPayload
	require.NoError(t, evt.UnmarshalPayload(&p))
	assert.Equal(t, "m1", p.MessageID)
}

func TestNewBusDrivers(t *testing.T) {
	bus, err := NewBus(Config{Driver: "none"})
	require.NoError(t, err)
	assert.NoError(t, bus.Publish(context.Background(), "x", &Event{}))
	assert.NoError(t, bus.Close())

	_, err = NewBus(Config{Driver: "nats"})
	assert.Error(t, err)
}
