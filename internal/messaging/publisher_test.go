package messaging_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/serroba/urls-node/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type mockPublisher struct {
	messages   []*message.Message
	topic      string
	publishErr error
	closeErr   error
}

func (m *mockPublisher) Publish(topic string, msgs ...*message.Message) error {
	if m.publishErr != nil {
		return m.publishErr
	}

	m.topic = topic
	m.messages = append(m.messages, msgs...)

	return nil
}

func (m *mockPublisher) Close() error {
	return m.closeErr
}

func TestNewPublishFunc(t *testing.T) {
	t.Run("publishes a json event with a uuid", func(t *testing.T) {
		mock := &mockPublisher{}
		publish := messaging.NewPublishFunc[secretEvent](mock, "credentials.rotated")

		err := publish(context.Background(), &secretEvent{SecretID: "prod/db"})

		require.NoError(t, err)
		assert.Equal(t, "credentials.rotated", mock.topic)
		require.Len(t, mock.messages, 1)
		assert.JSONEq(t, `{"secretId":"prod/db"}`, string(mock.messages[0].Payload))

		_, err = uuid.Parse(mock.messages[0].UUID)
		assert.NoError(t, err)
		assert.Equal(t, "application/json", mock.messages[0].Metadata.Get(messaging.MetadataContentType))
		assert.NotEmpty(t, mock.messages[0].Metadata.Get(messaging.MetadataPublishedAt))
	})

	t.Run("wraps publish errors with the topic", func(t *testing.T) {
		mock := &mockPublisher{publishErr: errors.New("publish error")}
		publish := messaging.NewPublishFunc[secretEvent](mock, "credentials.rotated")

		err := publish(context.Background(), &secretEvent{SecretID: "prod/db"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "credentials.rotated")
	})
}

func TestPublisherGroup(t *testing.T) {
	t.Run("returns underlying publisher", func(t *testing.T) {
		mock := &mockPublisher{}

		assert.Equal(t, mock, messaging.NewPublisherGroup(mock).Publisher())
	})

	t.Run("returns error when close fails", func(t *testing.T) {
		mock := &mockPublisher{closeErr: errors.New("close error")}

		assert.Error(t, messaging.NewPublisherGroup(mock).Shutdown())
	})
}

func TestZapAdapter(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	adapter := messaging.NewZapAdapter(zap.New(core)).With(watermill.LogFields{"topic": "credentials.rotated"})

	adapter.Info("subscribed", nil)
	adapter.Trace("polling", watermill.LogFields{"count": 1})
	adapter.Error("read failed", errors.New("boom"), nil)

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "credentials.rotated", entries[0].ContextMap()["topic"])
	assert.Equal(t, zap.DebugLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[2].ContextMap()["error"])
}
