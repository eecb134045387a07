package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/helplane/helplane-backend/internal/audit"
	"github.com/helplane/helplane-backend/internal/memberships"
	"github.com/helplane/helplane-backend/pkg/enums"
	pkgerrors "github.com/helplane/helplane-backend/pkg/errors"
)

type stubPresenceStore struct {
	setFn       func(ctx context.Context, agentID uuid.UUID, availability enums.Availability) error
	heartbeatFn func(ctx context.Context, agentID uuid.UUID) error
	snapshotFn  func(ctx context.Context, agentIDs []uuid.UUID) (map[uuid.UUID]enums.Availability, error)
}

func (s stubPresenceStore) SetAvailability(ctx context.Context, agentID uuid.UUID, availability enums.Availability) error {
	if s.setFn != nil {
		return s.setFn(ctx, agentID, availability)
	}
	return nil
}

func (s stubPresenceStore) Heartbeat(ctx context.Context, agentID uuid.UUID) error {
	if s.heartbeatFn != nil {
		return s.heartbeatFn(ctx, agentID)
	}
	return nil
}

func (s stubPresenceStore) Snapshot(ctx context.Context, agentIDs []uuid.UUID) (map[uuid.UUID]enums.Availability, error) {
	if s.snapshotFn != nil {
		return s.snapshotFn(ctx, agentIDs)
	}
	return map[uuid.UUID]enums.Availability{}, nil
}

type stubAgentLister struct {
	agents []memberships.InboxAgent
}

func (s stubAgentLister) ListAgents(ctx context.Context, inboxID uuid.UUID) ([]memberships.InboxAgent, error) {
	return s.agents, nil
}

func TestPresenceSetAvailability(t *testing.T) {
	agentID := uuid.New()

	var gotAgent uuid.UUID
	var gotAvailability enums.Availability
	store := stubPresenceStore{
		setFn: func(ctx context.Context, id uuid.UUID, availability enums.Availability) error {
			gotAgent = id
			gotAvailability = availability
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"availability":"busy"}`))
	req = authedRequest(req, agentID, enums.MemberRoleAgent)
	resp := httptest.NewRecorder()
	PresenceSetAvailability(store, nil, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if gotAgent != agentID || gotAvailability != enums.AvailabilityBusy {
		t.Fatalf("unexpected call %s %s", gotAgent, gotAvailability)
	}
}

type stubAvailabilitySink struct {
	entries []audit.AvailabilityEntry
}

func (s *stubAvailabilitySink) RecordAvailabilityQuietly(ctx context.Context, entry audit.AvailabilityEntry) {
	s.entries = append(s.entries, entry)
}

func TestPresenceSetAvailabilityQueuesEvent(t *testing.T) {
	agentID := uuid.New()
	sink := &stubAvailabilitySink{}

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"availability":"online"}`))
	req = authedRequest(req, agentID, enums.MemberRoleAgent)
	resp := httptest.NewRecorder()
	PresenceSetAvailability(stubPresenceStore{}, sink, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(sink.entries) != 1 {
		t.Fatalf("expected one queued entry, got %d", len(sink.entries))
	}
	entry := sink.entries[0]
	if entry.AgentID != agentID || entry.Availability != enums.AvailabilityOnline {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.ActorID != agentID || entry.ActorRole != enums.MemberRoleAgent {
		t.Fatalf("unexpected actor %+v", entry)
	}
}

func TestPresenceSetAvailabilitySkipsEventOnRegistryFailure(t *testing.T) {
	sink := &stubAvailabilitySink{}
	store := stubPresenceStore{
		setFn: func(ctx context.Context, id uuid.UUID, availability enums.Availability) error {
			return pkgerrors.New(pkgerrors.CodeDependency, "redis unavailable")
		},
	}

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"availability":"online"}`))
	req = authedRequest(req, uuid.New(), enums.MemberRoleAgent)
	resp := httptest.NewRecorder()
	PresenceSetAvailability(store, sink, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	if len(sink.entries) != 0 {
		t.Fatal("no event should be queued when the registry write fails")
	}
}

func TestPresenceSetAvailabilityRejectsUnknownState(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"availability":"asleep"}`))
	req = authedRequest(req, uuid.New(), enums.MemberRoleAgent)
	resp := httptest.NewRecorder()
	PresenceSetAvailability(stubPresenceStore{}, nil, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestPresenceSetAvailabilityOnBehalfRequiresElevatedRole(t *testing.T) {
	body := `{"availability":"offline","agent_id":"` + uuid.NewString() + `"}`
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body))
	req = authedRequest(req, uuid.New(), enums.MemberRoleAgent)
	resp := httptest.NewRecorder()
	PresenceSetAvailability(stubPresenceStore{}, nil, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestPresenceHeartbeat(t *testing.T) {
	agentID := uuid.New()

	var gotAgent uuid.UUID
	store := stubPresenceStore{
		heartbeatFn: func(ctx context.Context, id uuid.UUID) error {
			gotAgent = id
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = authedRequest(req, agentID, enums.MemberRoleAgent)
	resp := httptest.NewRecorder()
	PresenceHeartbeat(store, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if gotAgent != agentID {
		t.Fatalf("unexpected agent %s", gotAgent)
	}
}

func TestInboxPresenceSnapshotFillsOffline(t *testing.T) {
	inboxID := uuid.New()
	online := memberships.InboxAgent{UserID: uuid.New(), DisplayName: "Avery"}
	silent := memberships.InboxAgent{UserID: uuid.New(), DisplayName: "Blake"}

	lister := stubAgentLister{agents: []memberships.InboxAgent{online, silent}}
	store := stubPresenceStore{
		snapshotFn: func(ctx context.Context, agentIDs []uuid.UUID) (map[uuid.UUID]enums.Availability, error) {
			if len(agentIDs) != 2 {
				t.Fatalf("expected 2 agent ids, got %d", len(agentIDs))
			}
			return map[uuid.UUID]enums.Availability{online.UserID: enums.AvailabilityOnline}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = authedRequest(req, uuid.New(), enums.MemberRoleAdmin)
	req = withURLParam(req, "inboxID", inboxID.String())
	resp := httptest.NewRecorder()
	InboxPresenceSnapshot(lister, store, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data struct {
			Items []struct {
				UserID       uuid.UUID          `json:"user_id"`
				Availability enums.Availability `json:"availability"`
			} `json:"items"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(envelope.Data.Items))
	}
	byID := map[uuid.UUID]enums.Availability{}
	for _, item := range envelope.Data.Items {
		byID[item.UserID] = item.Availability
	}
	if byID[online.UserID] != enums.AvailabilityOnline {
		t.Fatalf("expected online agent, got %s", byID[online.UserID])
	}
	if byID[silent.UserID] != enums.AvailabilityOffline {
		t.Fatalf("expected missing agent to read offline, got %s", byID[silent.UserID])
	}
}
