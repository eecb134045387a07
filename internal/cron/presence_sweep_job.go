package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/helplane/helplane-backend/pkg/enums"
	"github.com/helplane/helplane-backend/pkg/logger"
)

type inactiveUserLister interface {
	ListInactiveIDs(ctx context.Context) ([]uuid.UUID, error)
}

type presenceCleaner interface {
	SetAvailability(ctx context.Context, agentID uuid.UUID, availability enums.Availability) error
}

type PresenceSweepJobParams struct {
	Logger   *logger.Logger
	Users    inactiveUserLister
	Presence presenceCleaner
}

// NewPresenceSweepJob clears presence marks left behind by agents that
// were deactivated while online. TTL expiry handles crashed clients; this
// sweep handles the deactivation path, which never goes through logout.
func NewPresenceSweepJob(params PresenceSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user lister required")
	}
	if params.Presence == nil {
		return nil, fmt.Errorf("presence registry required")
	}
	return &presenceSweepJob{
		logg:     params.Logger,
		users:    params.Users,
		presence: params.Presence,
	}, nil
}

type presenceSweepJob struct {
	logg     *logger.Logger
	users    inactiveUserLister
	presence presenceCleaner
}

func (j *presenceSweepJob) Name() string { return "presence-sweep" }

func (j *presenceSweepJob) Run(ctx context.Context) error {
	ids, err := j.users.ListInactiveIDs(ctx)
	if err != nil {
		return fmt.Errorf("listing inactive users: %w", err)
	}

	var cleared int
	for _, id := range ids {
		if err := j.presence.SetAvailability(ctx, id, enums.AvailabilityOffline); err != nil {
			return fmt.Errorf("clearing presence for %s: %w", id, err)
		}
		cleared++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"inactive_users": len(ids),
		"marks_cleared":  cleared,
	})
	j.logg.Info(logCtx, "presence sweep complete")
	return nil
}
