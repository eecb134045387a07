package assignment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/helplane/helplane-backend/pkg/db/models"
	"github.com/helplane/helplane-backend/pkg/enums"
)

// Store performs the conditional ownership writes the dispatch core relies
// on. Every assignment mutation is a single UPDATE guarded by the expected
// current owner; the row count tells the caller whether their view of the
// conversation still held. No in-process locking sits on top of this.
type Store struct {
	db *gorm.DB
}

// NewStore binds the store to the provided GORM connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// GetConversation loads a conversation by ID.
func (s *Store) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	if err := s.db.WithContext(ctx).First(&conversation, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &conversation, nil
}

// Claim swaps the conversation's owner from expected to next, where nil
// means unassigned on either side. It reports whether the swap applied;
// false means the stored owner no longer matched expected.
func (s *Store) Claim(ctx context.Context, conversationID uuid.UUID, expected, next *uuid.UUID) (bool, error) {
	query := s.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", conversationID)
	if expected == nil {
		query = query.Where("assigned_agent_id IS NULL")
	} else {
		query = query.Where("assigned_agent_id = ?", *expected)
	}

	result := query.Updates(map[string]any{
		"assigned_agent_id": next,
		"updated_at":        time.Now().UTC(),
	})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CountOpenAssigned counts the agent's open conversations in the inbox.
// Pending and resolved conversations do not consume capacity.
func (s *Store) CountOpenAssigned(ctx context.Context, inboxID, agentID uuid.UUID) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("inbox_id = ? AND assigned_agent_id = ? AND status = ?", inboxID, agentID, enums.ConversationStatusOpen).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

type assignedCountRow struct {
	AgentID uuid.UUID `gorm:"column:assigned_agent_id"`
	Total   int       `gorm:"column:total"`
}

// CountOpenAssignedBatch resolves open-conversation counts for a set of
// agents in one query. Agents with no open conversations are present in
// the result with a zero count.
func (s *Store) CountOpenAssignedBatch(ctx context.Context, inboxID uuid.UUID, agentIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(agentIDs))
	for _, id := range agentIDs {
		counts[id] = 0
	}
	if len(agentIDs) == 0 {
		return counts, nil
	}

	var rows []assignedCountRow
	err := s.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Select("assigned_agent_id, COUNT(*) AS total").
		Where("inbox_id = ? AND assigned_agent_id IN ? AND status = ?", inboxID, agentIDs, enums.ConversationStatusOpen).
		Group("assigned_agent_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.AgentID] = row.Total
	}
	return counts, nil
}
