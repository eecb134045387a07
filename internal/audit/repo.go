package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/helplane/helplane-backend/pkg/db/models"
)

// Repository persists assignment audit rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// InsertTx appends an audit row inside the caller's transaction.
func (r *Repository) InsertTx(tx *gorm.DB, action *models.AssignmentAction) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(action).Error
}

// ListForConversation returns the audit trail newest first.
func (r *Repository) ListForConversation(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.AssignmentAction, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.AssignmentAction
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// DeleteOlderThan purges audit rows created before the cutoff and reports
// how many were removed.
func (r *Repository) DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	if tx == nil {
		return 0, errors.New("transaction required")
	}
	result := tx.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.AssignmentAction{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
