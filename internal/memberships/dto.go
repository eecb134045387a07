package memberships

import (
	"time"

	"github.com/google/uuid"
)

// InboxAgent is a member row joined with the agent's identity fields.
type InboxAgent struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	JoinedAt    time.Time `json:"joined_at"`
}

type inboxAgentRow struct {
	UserID      uuid.UUID `gorm:"column:user_id"`
	DisplayName string    `gorm:"column:display_name"`
	Email       string    `gorm:"column:email"`
	JoinedAt    time.Time `gorm:"column:joined_at"`
}

func agentRowsToDTO(rows []inboxAgentRow) []InboxAgent {
	agents := make([]InboxAgent, 0, len(rows))
	for _, row := range rows {
		agents = append(agents, InboxAgent{
			UserID:      row.UserID,
			DisplayName: row.DisplayName,
			Email:       row.Email,
			JoinedAt:    row.JoinedAt,
		})
	}
	return agents
}
