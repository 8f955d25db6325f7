package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// Runnable is a background component with a start and a stop.
type Runnable interface {
	Start(ctx context.Context) error
	Shutdown() error
}

// ConsumerGroup ties the consumers reading from one subscriber to a single
// lifecycle. Consumers stop in reverse start order, then the subscriber closes.
type ConsumerGroup struct {
	subscriber message.Subscriber
	logger     *zap.Logger
	consumers  []Runnable
	started    []Runnable
}

// NewConsumerGroup creates an empty group over subscriber.
func NewConsumerGroup(subscriber message.Subscriber, logger *zap.Logger) *ConsumerGroup {
	return &ConsumerGroup{
		subscriber: subscriber,
		logger:     logger,
	}
}

// Add registers a consumer. Consumers added after Start are not started.
func (g *ConsumerGroup) Add(consumer Runnable) {
	g.consumers = append(g.consumers, consumer)
}

// Start starts every consumer. On failure the consumers already running are
// stopped and the error names the one that failed.
func (g *ConsumerGroup) Start(ctx context.Context) error {
	for i, consumer := range g.consumers {
		if err := consumer.Start(ctx); err != nil {
			_ = g.stopStarted()

			return fmt.Errorf("start consumer %d: %w", i, err)
		}

		g.started = append(g.started, consumer)
	}

	g.logger.Info("consumer group started", zap.Int("count", len(g.started)))

	return nil
}

// Shutdown stops the running consumers and closes the subscriber. Every
// failure is reported.
func (g *ConsumerGroup) Shutdown() error {
	g.logger.Info("shutting down consumer group", zap.Int("count", len(g.started)))

	return errors.Join(g.stopStarted(), g.subscriber.Close())
}

func (g *ConsumerGroup) stopStarted() error {
	var errs []error

	for i := len(g.started) - 1; i >= 0; i-- {
		if err := g.started[i].Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}

	g.started = nil

	return errors.Join(errs...)
}
