package memberships

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/helplane/helplane-backend/pkg/db/models"
)

// Repository exposes inbox membership persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListInboxAgents returns the active agents of an inbox in membership order.
// The order is stable across calls: oldest membership first, membership id
// as the tiebreaker. Round-robin selection depends on this ordering.
func (r *Repository) ListInboxAgents(ctx context.Context, inboxID uuid.UUID) ([]InboxAgent, error) {
	var rows []inboxAgentRow

	err := r.db.WithContext(ctx).
		Model(&models.InboxMembership{}).
		Select("inbox_memberships.user_id, users.display_name, users.email, inbox_memberships.created_at AS joined_at").
		Joins("JOIN users ON users.id = inbox_memberships.user_id").
		Where("inbox_memberships.inbox_id = ? AND users.role = ? AND users.is_active", inboxID, "agent").
		Order("inbox_memberships.created_at ASC, inbox_memberships.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	return agentRowsToDTO(rows), nil
}

// IsMember reports whether the user belongs to the inbox.
func (r *Repository) IsMember(ctx context.Context, inboxID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.InboxMembership{}).
		Where("inbox_id = ? AND user_id = ?", inboxID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// AddMember persists a new membership record.
func (r *Repository) AddMember(ctx context.Context, inboxID, userID uuid.UUID) (*models.InboxMembership, error) {
	membership := &models.InboxMembership{
		InboxID: inboxID,
		UserID:  userID,
	}
	if err := r.db.WithContext(ctx).Create(membership).Error; err != nil {
		return nil, err
	}
	return membership, nil
}

// RemoveMember deletes the membership row if present.
func (r *Repository) RemoveMember(ctx context.Context, inboxID, userID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("inbox_id = ? AND user_id = ?", inboxID, userID).
		Delete(&models.InboxMembership{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListForUser returns the inbox IDs the user is a member of.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.InboxMembership{}).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Pluck("inbox_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
