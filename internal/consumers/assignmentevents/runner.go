package assignmentevents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/helplane/helplane-backend/pkg/enums"
	"github.com/helplane/helplane-backend/pkg/logger"
	"github.com/helplane/helplane-backend/pkg/outbox"
)

type processor interface {
	Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error
}

// Runner pulls assignment events off the Pub/Sub subscription and feeds
// them to the consumer. Malformed messages are acked and logged; handler
// failures nack so Pub/Sub redelivers.
type Runner struct {
	subscription *gcppubsub.Subscriber
	consumer     processor
	logg         *logger.Logger
}

// NewRunner builds the subscription loop around a consumer.
func NewRunner(subscription *gcppubsub.Subscriber, consumer processor, logg *logger.Logger) (*Runner, error) {
	if subscription == nil {
		return nil, errors.New("assignment subscription is required")
	}
	if consumer == nil {
		return nil, errors.New("assignment consumer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Runner{
		subscription: subscription,
		consumer:     consumer,
		logg:         logg,
	}, nil
}

// Run consumes messages until the context is canceled.
func (r *Runner) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return r.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if r.process(innerCtx, msg) {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (r *Runner) process(ctx context.Context, msg *gcppubsub.Message) (nack bool) {
	logCtx := r.logg.WithFields(ctx, map[string]any{"message_id": msg.ID})

	eventType, envelope, err := decodeMessage(msg)
	if err != nil {
		// A message that cannot decode will never decode; drop it.
		r.logg.Warn(logCtx, "invalid assignment event message: "+err.Error())
		return false
	}

	if err := r.consumer.Process(logCtx, eventType, *envelope); err != nil {
		r.logg.Error(logCtx, "assignment event processing failed", err)
		return true
	}
	return false
}

func decodeMessage(msg *gcppubsub.Message) (enums.OutboxEventType, *outbox.PayloadEnvelope, error) {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		return "", nil, fmt.Errorf("decode payload envelope: %w", err)
	}

	eventType, err := enums.ParseOutboxEventType(strings.TrimSpace(msg.Attributes["event_type"]))
	if err != nil {
		return "", nil, fmt.Errorf("event_type: %w", err)
	}

	if strings.TrimSpace(envelope.EventID) == "" {
		envelope.EventID = strings.TrimSpace(msg.Attributes["event_id"])
	}
	if envelope.EventID == "" {
		return "", nil, errors.New("event_id missing")
	}
	return eventType, &envelope, nil
}
