package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/serroba/urls-node/internal/metrics"
)

// Metadata keys set on every published message.
const (
	MetadataContentType = "content_type"
	MetadataPublishedAt = "published_at"
)

// Publish sends a typed event.
type Publish[T any] func(ctx context.Context, event *T) error

// NewPublishFunc returns a Publish that JSON encodes events for topic. Each
// message gets a random UUID and carries its content type and publish time as
// metadata.
func NewPublishFunc[T any](publisher message.Publisher, topic string) Publish[T] {
	return func(ctx context.Context, event *T) error {
		payload, err := json.Marshal(event)
		if err != nil {
			metrics.RecordEvent(topic, "published", "encode_error")

			return fmt.Errorf("encode %s event: %w", topic, err)
		}

		msg := message.NewMessage(uuid.NewString(), payload)
		msg.SetContext(ctx)
		msg.Metadata.Set(MetadataContentType, "application/json")
		msg.Metadata.Set(MetadataPublishedAt, time.Now().UTC().Format(time.RFC3339Nano))

		if err := publisher.Publish(topic, msg); err != nil {
			metrics.RecordEvent(topic, "published", "error")

			return fmt.Errorf("publish %s event: %w", topic, err)
		}

		metrics.RecordEvent(topic, "published", "ok")

		return nil
	}
}

// PublisherGroup owns a publisher so it is closed with the container.
type PublisherGroup struct {
	publisher message.Publisher
}

// NewPublisherGroup wraps publisher.
func NewPublisherGroup(publisher message.Publisher) *PublisherGroup {
	return &PublisherGroup{publisher: publisher}
}

// Publisher returns the wrapped publisher.
func (g *PublisherGroup) Publisher() message.Publisher {
	return g.publisher
}

// Shutdown closes the wrapped publisher.
func (g *PublisherGroup) Shutdown() error {
	return g.publisher.Close()
}
