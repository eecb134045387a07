package conversations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/helplane/helplane-backend/pkg/db/models"
	"github.com/helplane/helplane-backend/pkg/enums"
	"github.com/helplane/helplane-backend/pkg/pagination"
)

// Repository exposes conversation persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new conversation.
func (r *Repository) Create(ctx context.Context, conversation *models.Conversation) error {
	return r.db.WithContext(ctx).Create(conversation).Error
}

// GetByID loads a conversation by its UUID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	if err := r.db.WithContext(ctx).First(&conversation, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &conversation, nil
}

// List returns a keyset page of conversations matching the filter, newest
// first. A non-nil scopeAgentID restricts the result to rows the agent may
// see: unassigned or assigned to them. Elevated viewers pass nil.
func (r *Repository) List(ctx context.Context, filter ListFilter, scopeAgentID *uuid.UUID, params pagination.Params) ([]models.Conversation, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("inbox_id = ?", filter.InboxID)

	if scopeAgentID != nil {
		query = query.Where("assigned_agent_id IS NULL OR assigned_agent_id = ?", *scopeAgentID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Unassigned {
		query = query.Where("assigned_agent_id IS NULL")
	}
	if filter.Mine && scopeAgentID != nil {
		query = query.Where("assigned_agent_id = ?", *scopeAgentID)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Conversation
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	return rows, err
}

// UpdateStatus moves a conversation between open, pending, and resolved.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ConversationStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
