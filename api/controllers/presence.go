package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/helplane/helplane-backend/api/responses"
	"github.com/helplane/helplane-backend/api/validators"
	"github.com/helplane/helplane-backend/internal/audit"
	"github.com/helplane/helplane-backend/internal/memberships"
	"github.com/helplane/helplane-backend/pkg/enums"
	pkgerrors "github.com/helplane/helplane-backend/pkg/errors"
	"github.com/helplane/helplane-backend/pkg/logger"
)

type presenceStore interface {
	SetAvailability(ctx context.Context, agentID uuid.UUID, availability enums.Availability) error
	Heartbeat(ctx context.Context, agentID uuid.UUID) error
	Snapshot(ctx context.Context, agentIDs []uuid.UUID) (map[uuid.UUID]enums.Availability, error)
}

type inboxAgentLister interface {
	ListAgents(ctx context.Context, inboxID uuid.UUID) ([]memberships.InboxAgent, error)
}

type availabilityEventSink interface {
	RecordAvailabilityQuietly(ctx context.Context, entry audit.AvailabilityEntry)
}

type setAvailabilityRequest struct {
	Availability string `json:"availability" validate:"required"`
	AgentID      string `json:"agent_id" validate:"omitempty,uuid"`
}

// PresenceSetAvailability records an agent's availability in the registry
// and queues the matching outbox event. Elevated roles may set availability
// on behalf of another agent.
func PresenceSetAvailability(registry presenceStore, events availabilityEventSink, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if registry == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "presence registry unavailable"))
			return
		}

		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body setAvailabilityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		availability, err := enums.ParseAvailability(body.Availability)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid availability"))
			return
		}

		agentID := actor.UserID
		if body.AgentID != "" {
			agentID, err = uuid.Parse(body.AgentID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid agent_id"))
				return
			}
			if agentID != actor.UserID && !actor.Role.IsElevated() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "cannot set availability for another agent"))
				return
			}
		}

		if err := registry.SetAvailability(r.Context(), agentID, availability); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if events != nil {
			events.RecordAvailabilityQuietly(r.Context(), audit.AvailabilityEntry{
				AgentID:      agentID,
				Availability: availability,
				ActorID:      actor.UserID,
				ActorRole:    actor.Role,
			})
		}

		responses.WriteSuccess(w, map[string]string{
			"agent_id":     agentID.String(),
			"availability": string(availability),
		})
	}
}

// PresenceHeartbeat refreshes the TTL on an agent's online marker.
func PresenceHeartbeat(registry presenceStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if registry == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "presence registry unavailable"))
			return
		}

		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := registry.Heartbeat(r.Context(), actor.UserID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// InboxPresenceSnapshot reports the availability of every agent in an inbox.
func InboxPresenceSnapshot(svc inboxAgentLister, registry presenceStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || registry == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "presence registry unavailable"))
			return
		}

		inboxID, err := parseUUIDParam(r, "inboxID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		agents, err := svc.ListAgents(r.Context(), inboxID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		agentIDs := make([]uuid.UUID, 0, len(agents))
		for _, agent := range agents {
			agentIDs = append(agentIDs, agent.UserID)
		}

		snapshot, err := registry.Snapshot(r.Context(), agentIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		type agentPresence struct {
			UserID       uuid.UUID          `json:"user_id"`
			DisplayName  string             `json:"display_name"`
			Availability enums.Availability `json:"availability"`
		}
		items := make([]agentPresence, 0, len(agents))
		for _, agent := range agents {
			availability, ok := snapshot[agent.UserID]
			if !ok {
				availability = enums.AvailabilityOffline
			}
			items = append(items, agentPresence{
				UserID:       agent.UserID,
				DisplayName:  agent.DisplayName,
				Availability: availability,
			})
		}

		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}
