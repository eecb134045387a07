package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/helplane/helplane-backend/pkg/enums"
	pkgerrors "github.com/helplane/helplane-backend/pkg/errors"
	"github.com/helplane/helplane-backend/pkg/logger"
)

// Store exposes the Redis operations the registry needs.
type Store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	MGet(ctx context.Context, keys ...string) ([]any, error)
	Del(ctx context.Context, keys ...string) error
	PresenceKey(agentID string) string
}

// Registry tracks agent availability in Redis under TTL-bound keys.
// A missing or expired key reads back as offline, so an agent whose
// process dies silently drains out of the eligible pool on its own.
type Registry struct {
	store Store
	ttl   time.Duration
	logg  *logger.Logger
}

// NewRegistry builds a presence registry with the given mark TTL.
func NewRegistry(store Store, ttl time.Duration, logg *logger.Logger) (*Registry, error) {
	if store == nil {
		return nil, errors.New("presence store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("presence ttl must be positive")
	}
	return &Registry{store: store, ttl: ttl, logg: logg}, nil
}

// SetAvailability writes the agent's availability mark. Setting offline
// deletes the key instead of writing it, keeping the keyspace bounded to
// agents who are actually reachable.
func (r *Registry) SetAvailability(ctx context.Context, agentID uuid.UUID, availability enums.Availability) error {
	if agentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "agent id is required")
	}
	if !availability.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid availability %q", availability))
	}

	key := r.store.PresenceKey(agentID.String())
	if availability == enums.AvailabilityOffline {
		return r.store.Del(ctx, key)
	}
	if err := r.store.Set(ctx, key, string(availability), r.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "writing presence mark")
	}
	if r.logg != nil {
		r.logg.Info(r.logg.WithField(ctx, "agent_id", agentID.String()), "presence mark set")
	}
	return nil
}

// Heartbeat refreshes the TTL on the agent's current mark without changing
// its value. Refreshing an absent mark is a no-op; the agent must go
// through SetAvailability to come back online.
func (r *Registry) Heartbeat(ctx context.Context, agentID uuid.UUID) error {
	if agentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "agent id is required")
	}
	key := r.store.PresenceKey(agentID.String())
	current, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading presence mark")
	}
	if err := r.store.Set(ctx, key, current, r.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refreshing presence mark")
	}
	return nil
}

// Get returns the agent's availability; absent keys read as offline.
func (r *Registry) Get(ctx context.Context, agentID uuid.UUID) (enums.Availability, error) {
	if agentID == uuid.Nil {
		return enums.AvailabilityOffline, pkgerrors.New(pkgerrors.CodeValidation, "agent id is required")
	}
	raw, err := r.store.Get(ctx, r.store.PresenceKey(agentID.String()))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return enums.AvailabilityOffline, nil
		}
		return enums.AvailabilityOffline, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading presence mark")
	}
	availability, err := enums.ParseAvailability(raw)
	if err != nil {
		return enums.AvailabilityOffline, nil
	}
	return availability, nil
}

// Snapshot resolves availability for a batch of agents in one round trip.
// Agents without a mark come back offline.
func (r *Registry) Snapshot(ctx context.Context, agentIDs []uuid.UUID) (map[uuid.UUID]enums.Availability, error) {
	result := make(map[uuid.UUID]enums.Availability, len(agentIDs))
	if len(agentIDs) == 0 {
		return result, nil
	}

	keys := make([]string, len(agentIDs))
	for i, id := range agentIDs {
		keys[i] = r.store.PresenceKey(id.String())
	}

	values, err := r.store.MGet(ctx, keys...)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading presence marks")
	}
	if len(values) != len(agentIDs) {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "presence snapshot length mismatch")
	}

	for i, id := range agentIDs {
		result[id] = enums.AvailabilityOffline
		raw, ok := values[i].(string)
		if !ok {
			continue
		}
		if availability, parseErr := enums.ParseAvailability(raw); parseErr == nil {
			result[id] = availability
		}
	}
	return result, nil
}

// FilterOnline returns the subset of agentIDs currently marked online,
// preserving the input order.
func (r *Registry) FilterOnline(ctx context.Context, agentIDs []uuid.UUID) ([]uuid.UUID, error) {
	snapshot, err := r.Snapshot(ctx, agentIDs)
	if err != nil {
		return nil, err
	}
	online := make([]uuid.UUID, 0, len(agentIDs))
	for _, id := range agentIDs {
		if snapshot[id] == enums.AvailabilityOnline {
			online = append(online, id)
		}
	}
	return online, nil
}
