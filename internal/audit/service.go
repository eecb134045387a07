package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/helplane/helplane-backend/pkg/db/models"
	"github.com/helplane/helplane-backend/pkg/enums"
	pkgerrors "github.com/helplane/helplane-backend/pkg/errors"
	"github.com/helplane/helplane-backend/pkg/logger"
	"github.com/helplane/helplane-backend/pkg/outbox"
	"github.com/helplane/helplane-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type recorder interface {
	InsertTx(tx *gorm.DB, action *models.AssignmentAction) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Entry describes one assignment-affecting action to be recorded.
type Entry struct {
	ConversationID uuid.UUID
	InboxID        uuid.UUID
	ActionType     enums.AssignmentActionType
	FromAgentID    *uuid.UUID
	ToAgentID      *uuid.UUID
	ActorID        uuid.UUID
	ActorRole      enums.MemberRole
	OccurredAt     time.Time
}

// Service appends audit rows and queues the matching outbox events.
// Callers treat recording as best-effort: a failed Record never unwinds
// the assignment write it describes.
type Service struct {
	repo   recorder
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
}

// NewService wires the audit sink.
func NewService(repo recorder, tx txRunner, outboxSvc outboxPublisher, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, errors.New("audit repo is required")
	}
	if tx == nil {
		return nil, errors.New("tx runner is required")
	}
	if outboxSvc == nil {
		return nil, errors.New("outbox service is required")
	}
	return &Service{repo: repo, tx: tx, outbox: outboxSvc, logg: logg}, nil
}

// Record appends the audit row and its outbox event in one transaction.
func (s *Service) Record(ctx context.Context, entry Entry) error {
	if err := validateEntry(entry); err != nil {
		return err
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		row := &models.AssignmentAction{
			ConversationID: entry.ConversationID,
			InboxID:        entry.InboxID,
			ActionType:     entry.ActionType,
			FromAgentID:    entry.FromAgentID,
			ToAgentID:      entry.ToAgentID,
			ActorID:        entry.ActorID,
		}
		if err := s.repo.InsertTx(tx, row); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, domainEvent(entry))
	})
}

// AvailabilityEntry describes an availability change to publish downstream.
type AvailabilityEntry struct {
	AgentID      uuid.UUID
	Availability enums.Availability
	ActorID      uuid.UUID
	ActorRole    enums.MemberRole
	OccurredAt   time.Time
}

// RecordAvailability queues an agent_availability_set outbox event.
// Availability changes carry no assignment_actions row: the redis registry
// is the source of truth and the event only feeds downstream dashboards.
func (s *Service) RecordAvailability(ctx context.Context, entry AvailabilityEntry) error {
	if entry.AgentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "agent id is required")
	}
	if entry.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}
	if !entry.Availability.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid availability")
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAgentAvailabilitySet,
			AggregateType: enums.AggregateAgent,
			AggregateID:   entry.AgentID,
			Actor:         &outbox.ActorRef{UserID: entry.ActorID, Role: string(entry.ActorRole)},
			Version:       1,
			OccurredAt:    entry.OccurredAt,
			Data: payloads.AgentAvailabilitySetEvent{
				AgentID:      entry.AgentID,
				Availability: entry.Availability,
				SetAt:        entry.OccurredAt,
			},
		})
	})
}

// RecordAvailabilityQuietly runs RecordAvailability and downgrades failures
// to a log line. The registry write already happened; the event is advisory.
func (s *Service) RecordAvailabilityQuietly(ctx context.Context, entry AvailabilityEntry) {
	if err := s.RecordAvailability(ctx, entry); err != nil && s.logg != nil {
		fields := map[string]any{
			"agent_id":     entry.AgentID.String(),
			"availability": entry.Availability,
		}
		s.logg.Error(s.logg.WithFields(ctx, fields), "recording availability change", err)
	}
}

// RecordQuietly runs Record and downgrades failures to a log line.
func (s *Service) RecordQuietly(ctx context.Context, entry Entry) {
	if err := s.Record(ctx, entry); err != nil && s.logg != nil {
		fields := map[string]any{
			"conversation_id": entry.ConversationID.String(),
			"action_type":     entry.ActionType,
		}
		s.logg.Error(s.logg.WithFields(ctx, fields), "recording assignment action", err)
	}
}

func validateEntry(entry Entry) error {
	if entry.ConversationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "conversation id is required")
	}
	if entry.InboxID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "inbox id is required")
	}
	if entry.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}
	if !entry.ActionType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid action type")
	}
	switch entry.ActionType {
	case enums.AssignmentActionAutoAssign, enums.AssignmentActionPickup:
		if entry.ToAgentID == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "to agent is required")
		}
	case enums.AssignmentActionTransfer:
		if entry.FromAgentID == nil || entry.ToAgentID == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "transfer requires both agents")
		}
	case enums.AssignmentActionRelease:
		if entry.FromAgentID == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "from agent is required")
		}
	}
	return nil
}

func domainEvent(entry Entry) outbox.DomainEvent {
	actor := &outbox.ActorRef{UserID: entry.ActorID, Role: string(entry.ActorRole)}

	switch entry.ActionType {
	case enums.AssignmentActionTransfer:
		return outbox.DomainEvent{
			EventType:     enums.EventConversationTransferred,
			AggregateType: enums.AggregateConversation,
			AggregateID:   entry.ConversationID,
			Actor:         actor,
			Version:       1,
			OccurredAt:    entry.OccurredAt,
			Data: payloads.ConversationTransferredEvent{
				ConversationID: entry.ConversationID,
				InboxID:        entry.InboxID,
				FromAgentID:    *entry.FromAgentID,
				ToAgentID:      *entry.ToAgentID,
				TransferredAt:  entry.OccurredAt,
			},
		}
	case enums.AssignmentActionRelease:
		return outbox.DomainEvent{
			EventType:     enums.EventConversationReleased,
			AggregateType: enums.AggregateConversation,
			AggregateID:   entry.ConversationID,
			Actor:         actor,
			Version:       1,
			OccurredAt:    entry.OccurredAt,
			Data: payloads.ConversationReleasedEvent{
				ConversationID: entry.ConversationID,
				InboxID:        entry.InboxID,
				FromAgentID:    *entry.FromAgentID,
				ReleasedAt:     entry.OccurredAt,
			},
		}
	default:
		return outbox.DomainEvent{
			EventType:     enums.EventConversationAssigned,
			AggregateType: enums.AggregateConversation,
			AggregateID:   entry.ConversationID,
			Actor:         actor,
			Version:       1,
			OccurredAt:    entry.OccurredAt,
			Data: payloads.ConversationAssignedEvent{
				ConversationID: entry.ConversationID,
				InboxID:        entry.InboxID,
				AgentID:        *entry.ToAgentID,
				ActionType:     entry.ActionType,
				AssignedAt:     entry.OccurredAt,
			},
		}
	}
}
