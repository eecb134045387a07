package assignmentevents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/helplane/helplane-backend/pkg/enums"
	"github.com/helplane/helplane-backend/pkg/logger"
	"github.com/helplane/helplane-backend/pkg/outbox"
	"github.com/helplane/helplane-backend/pkg/outbox/payloads"
)

const assignmentConsumerName = "assignment-events"

type counterStore interface {
	Incr(ctx context.Context, key string) (int64, error)
	CounterKey(name string) string
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer projects assignment events into Redis counters that back the
// workload dashboards, honoring Redis idempotency so Pub/Sub redeliveries
// never double-count.
type Consumer struct {
	counters    counterStore
	manager     idempotencyChecker
	logg        *logger.Logger
	eventFilter map[enums.OutboxEventType]struct{}
}

// NewConsumer builds a new assignment-events consumer.
func NewConsumer(counters counterStore, manager idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	if counters == nil {
		return nil, fmt.Errorf("counter store required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		counters: counters,
		manager:  manager,
		logg:     logg,
		eventFilter: map[enums.OutboxEventType]struct{}{
			enums.EventConversationAssigned:    {},
			enums.EventConversationTransferred: {},
			enums.EventConversationReleased:    {},
			enums.EventAgentAvailabilitySet:    {},
		},
	}, nil
}

// Process ingests the outbox envelope into the workload counters if the
// event is supported.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": eventType,
	})

	if _, ok := c.eventFilter[eventType]; !ok {
		c.logg.Info(logCtx, "event not handled by assignment-events consumer")
		return nil
	}

	if envelope.EventID == "" {
		return fmt.Errorf("event id missing")
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return fmt.Errorf("parse event id: %w", err)
	}

	already, err := c.manager.CheckAndMarkProcessed(ctx, assignmentConsumerName, eventID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return nil
	}

	keys, err := counterNames(eventType, envelope)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode assignment event", err)
		_ = c.manager.Delete(ctx, assignmentConsumerName, eventID)
		return err
	}

	for _, name := range keys {
		if _, err := c.counters.Incr(ctx, c.counters.CounterKey(name)); err != nil {
			c.logg.Error(logCtx, "failed to bump workload counter", err)
			_ = c.manager.Delete(ctx, assignmentConsumerName, eventID)
			return err
		}
	}

	c.logg.Info(logCtx, "assignment event counted")
	return nil
}

func counterNames(eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) ([]string, error) {
	switch eventType {
	case enums.EventConversationAssigned:
		var event payloads.ConversationAssignedEvent
		if err := json.Unmarshal(envelope.Data, &event); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		return []string{
			"assignments:inbox:" + event.InboxID.String(),
			"assignments:agent:" + event.AgentID.String(),
		}, nil
	case enums.EventConversationTransferred:
		var event payloads.ConversationTransferredEvent
		if err := json.Unmarshal(envelope.Data, &event); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		return []string{
			"transfers:inbox:" + event.InboxID.String(),
			"assignments:agent:" + event.ToAgentID.String(),
		}, nil
	case enums.EventConversationReleased:
		var event payloads.ConversationReleasedEvent
		if err := json.Unmarshal(envelope.Data, &event); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		return []string{"releases:inbox:" + event.InboxID.String()}, nil
	case enums.EventAgentAvailabilitySet:
		var event payloads.AgentAvailabilitySetEvent
		if err := json.Unmarshal(envelope.Data, &event); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		return []string{"availability:" + event.Availability.String()}, nil
	default:
		return nil, fmt.Errorf("unsupported event type %s", eventType)
	}
}
