package ingestor

import (
	"context"
	"encoding/json"

	"cloud.google.com/go/pubsub"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"go.uber.org/zap"
)

// Subscriber pulls object-created notifications for the consent bucket and
// feeds them through the pipeline one at a time. A Nack leaves redelivery to
// the subscription (at-least-once); the worker itself never retries.
type Subscriber struct {
	sub      *pubsub.Subscription
	pipeline *Pipeline
}

func NewSubscriber(client *pubsub.Client, subscription string, pipeline *Pipeline) *Subscriber {
	sub := client.Subscription(subscription)
	sub.ReceiveSettings.MaxOutstandingMessages = 1
	sub.ReceiveSettings.NumGoroutines = 1

	return &Subscriber{
		sub:      sub,
		pipeline: pipeline,
	}
}

// Run blocks until ctx is cancelled.
func (s *Subscriber) Run(ctx context.Context) error {
	logger.Info("Listening for storage events", zap.String("subscription", s.sub.String()))

	return s.sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if s.dispatch(ctx, msg.Data) {
			msg.Ack()
		} else {
			msg.Nack()
		}
	})
}

// dispatch runs one notification through the pipeline and reports whether the
// message should be acked.
func (s *Subscriber) dispatch(ctx context.Context, data []byte) bool {
	var event StorageEvent
	if err := json.Unmarshal(data, &event); err != nil {
		// A malformed notification will never become parseable;
		// ack it so it is not redelivered forever.
		logger.Error("Dropping malformed storage event", zap.Error(err))
		return true
	}

	if err := s.pipeline.ProcessEvent(ctx, event); err != nil {
		logger.Error("Ingestion failed, nacking event",
			zap.String("name", event.Name), zap.Error(err))
		return false
	}

	return true
}
