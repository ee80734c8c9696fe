package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// DefaultDispatchTimeout bounds a single in-process handler run.
const DefaultDispatchTimeout = 10 * time.Second

// Publish is a function that publishes a typed event.
type Publish[T any] func(ctx context.Context, event *T) error

// NewPublishFunc creates a typed publish function for a specific topic.
func NewPublishFunc[T any](publisher message.Publisher, topic string) Publish[T] {
	return func(ctx context.Context, event *T) error {
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}

		msg := message.NewMessage(watermill.NewUUID(), payload)
		msg.SetContext(ctx)

		return publisher.Publish(topic, msg)
	}
}

// NewAsyncPublishFunc runs the handler on its own goroutine instead of going
// through a broker. The handler context outlives the caller's request.
// Handler errors are logged and the event is dropped.
func NewAsyncPublishFunc[T any](topic string, handler Handler[T], timeout time.Duration, logger *zap.Logger) Publish[T] {
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}

	return func(ctx context.Context, event *T) error {
		detached := context.WithoutCancel(ctx)

		go func() {
			runCtx, cancel := context.WithTimeout(detached, timeout)
			defer cancel()

			if err := handler(runCtx, event); err != nil && !isSkip(err) {
				logger.Error("failed to handle event",
					zap.String("topic", topic),
					zap.Error(err),
				)
			}
		}()

		return nil
	}
}

// PublisherGroup manages the underlying publisher lifecycle.
type PublisherGroup struct {
	publisher message.Publisher
}

// NewPublisherGroup creates a new publisher group.
func NewPublisherGroup(publisher message.Publisher) *PublisherGroup {
	return &PublisherGroup{publisher: publisher}
}

// Publisher returns the underlying message publisher for creating typed publish functions.
func (g *PublisherGroup) Publisher() message.Publisher {
	return g.publisher
}

// Shutdown closes the underlying publisher.
func (g *PublisherGroup) Shutdown() error {
	return g.publisher.Close()
}
