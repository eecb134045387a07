package assignment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/helplane/helplane-backend/internal/audit"
	"github.com/helplane/helplane-backend/internal/memberships"
	"github.com/helplane/helplane-backend/pkg/db/models"
	"github.com/helplane/helplane-backend/pkg/enums"
	pkgerrors "github.com/helplane/helplane-backend/pkg/errors"
	"github.com/helplane/helplane-backend/pkg/logger"
	"github.com/helplane/helplane-backend/pkg/metrics"
)

type conversationStore interface {
	GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	Claim(ctx context.Context, conversationID uuid.UUID, expected, next *uuid.UUID) (bool, error)
	CountOpenAssigned(ctx context.Context, inboxID, agentID uuid.UUID) (int, error)
	CountOpenAssignedBatch(ctx context.Context, inboxID uuid.UUID, agentIDs []uuid.UUID) (map[uuid.UUID]int, error)
}

type inboxReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Inbox, error)
	UpdateCursor(ctx context.Context, id uuid.UUID, agentID uuid.UUID) error
}

type memberLister interface {
	ListInboxAgents(ctx context.Context, inboxID uuid.UUID) ([]memberships.InboxAgent, error)
	IsMember(ctx context.Context, inboxID, userID uuid.UUID) (bool, error)
}

type presenceFilter interface {
	FilterOnline(ctx context.Context, agentIDs []uuid.UUID) ([]uuid.UUID, error)
}

type auditSink interface {
	RecordQuietly(ctx context.Context, entry audit.Entry)
}

// Actor identifies who requested an assignment operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.MemberRole
}

// Result reports the outcome of a successful assignment operation.
type Result struct {
	ConversationID uuid.UUID                  `json:"conversation_id"`
	InboxID        uuid.UUID                  `json:"inbox_id"`
	AgentID        *uuid.UUID                 `json:"agent_id,omitempty"`
	ActionType     enums.AssignmentActionType `json:"action_type"`
}

// Service is the dispatch core. It decides which agent owns which
// conversation; the conditional write in Store is its only concurrency
// guard, so two racing callers resolve to exactly one winner and one
// conflict error.
type Service struct {
	store    conversationStore
	inboxes  inboxReader
	members  memberLister
	presence presenceFilter
	audit    auditSink
	metrics  *metrics.AssignmentMetrics
	logg     *logger.Logger
}

// NewService wires the dispatch core.
func NewService(
	store conversationStore,
	inboxes inboxReader,
	members memberLister,
	presence presenceFilter,
	auditSink auditSink,
	assignmentMetrics *metrics.AssignmentMetrics,
	logg *logger.Logger,
) (*Service, error) {
	if store == nil {
		return nil, errors.New("assignment store is required")
	}
	if inboxes == nil {
		return nil, errors.New("inbox repo is required")
	}
	if members == nil {
		return nil, errors.New("memberships repo is required")
	}
	if presence == nil {
		return nil, errors.New("presence registry is required")
	}
	if auditSink == nil {
		return nil, errors.New("audit sink is required")
	}
	return &Service{
		store:    store,
		inboxes:  inboxes,
		members:  members,
		presence: presence,
		audit:    auditSink,
		metrics:  assignmentMetrics,
		logg:     logg,
	}, nil
}

// AutoAssign selects the next eligible agent round-robin and hands them
// the conversation. Eligible means: an active agent member of the inbox,
// currently online, and below the inbox's per-agent open-conversation cap
// when one is configured. The inbox cursor marks the last agent served;
// selection starts just past it and wraps. A cursor pointing at an agent
// no longer in the eligible list restarts at the front.
func (s *Service) AutoAssign(ctx context.Context, conversationID uuid.UUID, actor Actor) (*Result, error) {
	started := time.Now()
	result, err := s.autoAssign(ctx, conversationID, actor)
	s.observe("auto_assign", started, err)
	return result, err
}

func (s *Service) autoAssign(ctx context.Context, conversationID uuid.UUID, actor Actor) (*Result, error) {
	conversation, err := s.loadConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conversation.AssignedAgentID != nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "conversation is already assigned")
	}

	inbox, err := s.inboxes.GetByID(ctx, conversation.InboxID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inbox not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading inbox")
	}
	if !inbox.AutoAssignmentEnabled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "auto assignment is disabled for this inbox")
	}

	eligible, err := s.eligibleAgents(ctx, inbox)
	if err != nil {
		return nil, err
	}
	if len(eligible) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no eligible agents available")
	}

	candidate := nextRoundRobin(eligible, inbox.LastAssignedAgentID)

	claimed, err := s.store.Claim(ctx, conversation.ID, nil, &candidate)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claiming conversation")
	}
	if !claimed {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "conversation was claimed concurrently")
	}

	// Cursor update is best-effort: a lost write skews fairness slightly,
	// never correctness.
	if err := s.inboxes.UpdateCursor(ctx, inbox.ID, candidate); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithInboxID(ctx, inbox.ID.String()), "advancing round-robin cursor", err)
	}

	s.audit.RecordQuietly(ctx, audit.Entry{
		ConversationID: conversation.ID,
		InboxID:        inbox.ID,
		ActionType:     enums.AssignmentActionAutoAssign,
		ToAgentID:      &candidate,
		ActorID:        actor.UserID,
		ActorRole:      actor.Role,
	})

	return &Result{
		ConversationID: conversation.ID,
		InboxID:        inbox.ID,
		AgentID:        &candidate,
		ActionType:     enums.AssignmentActionAutoAssign,
	}, nil
}

// Pickup lets an agent claim an unassigned conversation in an inbox they
// belong to. Presence and capacity are not consulted: an explicit claim
// expresses intent the dispatcher has no business second-guessing.
func (s *Service) Pickup(ctx context.Context, conversationID uuid.UUID, actor Actor) (*Result, error) {
	started := time.Now()
	result, err := s.pickup(ctx, conversationID, actor)
	s.observe("pickup", started, err)
	return result, err
}

func (s *Service) pickup(ctx context.Context, conversationID uuid.UUID, actor Actor) (*Result, error) {
	conversation, err := s.loadConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if err := s.ensureMemberAgent(ctx, conversation.InboxID, actor.UserID, actor.Role); err != nil {
		return nil, err
	}

	claimed, err := s.store.Claim(ctx, conversation.ID, nil, &actor.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claiming conversation")
	}
	if !claimed {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "conversation is already assigned")
	}

	s.audit.RecordQuietly(ctx, audit.Entry{
		ConversationID: conversation.ID,
		InboxID:        conversation.InboxID,
		ActionType:     enums.AssignmentActionPickup,
		ToAgentID:      &actor.UserID,
		ActorID:        actor.UserID,
		ActorRole:      actor.Role,
	})

	return &Result{
		ConversationID: conversation.ID,
		InboxID:        conversation.InboxID,
		AgentID:        &actor.UserID,
		ActionType:     enums.AssignmentActionPickup,
	}, nil
}

// TransferInput carries the compare-and-swap view for a transfer: the
// operation only applies if FromAgentID still owns the conversation.
type TransferInput struct {
	ConversationID uuid.UUID
	FromAgentID    uuid.UUID
	ToAgentID      uuid.UUID
}

// Transfer moves a conversation from one agent to another.
func (s *Service) Transfer(ctx context.Context, input TransferInput, actor Actor) (*Result, error) {
	started := time.Now()
	result, err := s.transfer(ctx, input, actor)
	s.observe("transfer", started, err)
	return result, err
}

func (s *Service) transfer(ctx context.Context, input TransferInput, actor Actor) (*Result, error) {
	if input.FromAgentID == uuid.Nil || input.ToAgentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "both agents are required")
	}
	if input.FromAgentID == input.ToAgentID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot transfer a conversation to its current owner")
	}

	conversation, err := s.loadConversation(ctx, input.ConversationID)
	if err != nil {
		return nil, err
	}

	if err := s.ensureMemberAgent(ctx, conversation.InboxID, input.ToAgentID, enums.MemberRoleAgent); err != nil {
		return nil, err
	}

	claimed, err := s.store.Claim(ctx, conversation.ID, &input.FromAgentID, &input.ToAgentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transferring conversation")
	}
	if !claimed {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "conversation ownership changed")
	}

	s.audit.RecordQuietly(ctx, audit.Entry{
		ConversationID: conversation.ID,
		InboxID:        conversation.InboxID,
		ActionType:     enums.AssignmentActionTransfer,
		FromAgentID:    &input.FromAgentID,
		ToAgentID:      &input.ToAgentID,
		ActorID:        actor.UserID,
		ActorRole:      actor.Role,
	})

	toAgent := input.ToAgentID
	return &Result{
		ConversationID: conversation.ID,
		InboxID:        conversation.InboxID,
		AgentID:        &toAgent,
		ActionType:     enums.AssignmentActionTransfer,
	}, nil
}

// ReleaseInput carries the compare-and-swap view for a release.
type ReleaseInput struct {
	ConversationID uuid.UUID
	FromAgentID    uuid.UUID
}

// Release returns a conversation to the unassigned pool.
func (s *Service) Release(ctx context.Context, input ReleaseInput, actor Actor) (*Result, error) {
	started := time.Now()
	result, err := s.release(ctx, input, actor)
	s.observe("release", started, err)
	return result, err
}

func (s *Service) release(ctx context.Context, input ReleaseInput, actor Actor) (*Result, error) {
	if input.FromAgentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from agent is required")
	}

	conversation, err := s.loadConversation(ctx, input.ConversationID)
	if err != nil {
		return nil, err
	}

	claimed, err := s.store.Claim(ctx, conversation.ID, &input.FromAgentID, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "releasing conversation")
	}
	if !claimed {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "conversation ownership changed")
	}

	s.audit.RecordQuietly(ctx, audit.Entry{
		ConversationID: conversation.ID,
		InboxID:        conversation.InboxID,
		ActionType:     enums.AssignmentActionRelease,
		FromAgentID:    &input.FromAgentID,
		ActorID:        actor.UserID,
		ActorRole:      actor.Role,
	})

	return &Result{
		ConversationID: conversation.ID,
		InboxID:        conversation.InboxID,
		ActionType:     enums.AssignmentActionRelease,
	}, nil
}

func (s *Service) loadConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	conversation, err := s.store.GetConversation(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading conversation")
	}
	return conversation, nil
}

func (s *Service) ensureMemberAgent(ctx context.Context, inboxID, userID uuid.UUID, role enums.MemberRole) error {
	if role != enums.MemberRoleAgent {
		return pkgerrors.New(pkgerrors.CodeValidation, "only agents can own conversations")
	}
	member, err := s.members.IsMember(ctx, inboxID, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking membership")
	}
	if !member {
		return pkgerrors.New(pkgerrors.CodeForbidden, "agent is not a member of this inbox")
	}
	return nil
}

// eligibleAgents filters the ordered member list down to online agents
// with remaining capacity, preserving membership order.
func (s *Service) eligibleAgents(ctx context.Context, inbox *models.Inbox) ([]uuid.UUID, error) {
	agents, err := s.members.ListInboxAgents(ctx, inbox.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing inbox agents")
	}
	ids := make([]uuid.UUID, 0, len(agents))
	for _, agent := range agents {
		ids = append(ids, agent.UserID)
	}

	online, err := s.presence.FilterOnline(ctx, ids)
	if err != nil {
		return nil, err
	}
	if inbox.MaxConversationsPerAgent == nil || len(online) == 0 {
		return online, nil
	}

	counts, err := s.store.CountOpenAssignedBatch(ctx, inbox.ID, online)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "counting open conversations")
	}

	limit := *inbox.MaxConversationsPerAgent
	eligible := make([]uuid.UUID, 0, len(online))
	for _, id := range online {
		if counts[id] < limit {
			eligible = append(eligible, id)
		}
	}
	return eligible, nil
}

// nextRoundRobin picks the agent just past the cursor in the eligible
// list, wrapping at the end. A nil or stale cursor restarts at the front.
func nextRoundRobin(eligible []uuid.UUID, cursor *uuid.UUID) uuid.UUID {
	if cursor == nil {
		return eligible[0]
	}
	for i, id := range eligible {
		if id == *cursor {
			return eligible[(i+1)%len(eligible)]
		}
	}
	return eligible[0]
}

func (s *Service) observe(action string, started time.Time, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
		if typed := pkgerrors.As(err); typed != nil {
			switch typed.Code() {
			case pkgerrors.CodeConflict, pkgerrors.CodeStateConflict:
				outcome = "conflict"
			case pkgerrors.CodeValidation:
				outcome = "validation"
			case pkgerrors.CodeNotFound:
				outcome = "not_found"
			}
		}
	}
	s.metrics.IncOutcome(action, outcome)
	s.metrics.ObserveDuration(action, time.Since(started))
}
