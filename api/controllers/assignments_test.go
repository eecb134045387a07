package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/helplane/helplane-backend/internal/assignment"
	"github.com/helplane/helplane-backend/pkg/enums"
	pkgerrors "github.com/helplane/helplane-backend/pkg/errors"
)

type stubAssignmentService struct {
	autoAssignFn func(ctx context.Context, conversationID uuid.UUID, actor assignment.Actor) (*assignment.Result, error)
	pickupFn     func(ctx context.Context, conversationID uuid.UUID, actor assignment.Actor) (*assignment.Result, error)
	transferFn   func(ctx context.Context, input assignment.TransferInput, actor assignment.Actor) (*assignment.Result, error)
	releaseFn    func(ctx context.Context, input assignment.ReleaseInput, actor assignment.Actor) (*assignment.Result, error)
}

func (s stubAssignmentService) AutoAssign(ctx context.Context, conversationID uuid.UUID, actor assignment.Actor) (*assignment.Result, error) {
	if s.autoAssignFn != nil {
		return s.autoAssignFn(ctx, conversationID, actor)
	}
	return nil, nil
}

func (s stubAssignmentService) Pickup(ctx context.Context, conversationID uuid.UUID, actor assignment.Actor) (*assignment.Result, error) {
	if s.pickupFn != nil {
		return s.pickupFn(ctx, conversationID, actor)
	}
	return nil, nil
}

func (s stubAssignmentService) Transfer(ctx context.Context, input assignment.TransferInput, actor assignment.Actor) (*assignment.Result, error) {
	if s.transferFn != nil {
		return s.transferFn(ctx, input, actor)
	}
	return nil, nil
}

func (s stubAssignmentService) Release(ctx context.Context, input assignment.ReleaseInput, actor assignment.Actor) (*assignment.Result, error) {
	if s.releaseFn != nil {
		return s.releaseFn(ctx, input, actor)
	}
	return nil, nil
}

func TestAssignmentPickup(t *testing.T) {
	conversationID := uuid.New()
	agentID := uuid.New()

	svc := stubAssignmentService{
		pickupFn: func(ctx context.Context, id uuid.UUID, actor assignment.Actor) (*assignment.Result, error) {
			if id != conversationID {
				t.Fatalf("unexpected id %s", id)
			}
			if actor.UserID != agentID || actor.Role != enums.MemberRoleAgent {
				t.Fatalf("unexpected actor %+v", actor)
			}
			claimed := agentID
			return &assignment.Result{
				ConversationID: id,
				AgentID:        &claimed,
				ActionType:     enums.AssignmentActionPickup,
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = authedRequest(req, agentID, enums.MemberRoleAgent)
	req = withURLParam(req, "conversationID", conversationID.String())
	resp := httptest.NewRecorder()
	AssignmentPickup(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data assignment.Result `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.AgentID == nil || *envelope.Data.AgentID != agentID {
		t.Fatalf("unexpected result %+v", envelope.Data)
	}
}

func TestAssignmentPickupLostRaceMapsToConflict(t *testing.T) {
	svc := stubAssignmentService{
		pickupFn: func(ctx context.Context, id uuid.UUID, actor assignment.Actor) (*assignment.Result, error) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "conversation already assigned")
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = authedRequest(req, uuid.New(), enums.MemberRoleAgent)
	req = withURLParam(req, "conversationID", uuid.NewString())
	resp := httptest.NewRecorder()
	AssignmentPickup(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestAssignmentTransferDefaultsFromActor(t *testing.T) {
	conversationID := uuid.New()
	agentID := uuid.New()
	toAgentID := uuid.New()

	svc := stubAssignmentService{
		transferFn: func(ctx context.Context, input assignment.TransferInput, actor assignment.Actor) (*assignment.Result, error) {
			if input.FromAgentID != agentID {
				t.Fatalf("expected from agent %s, got %s", agentID, input.FromAgentID)
			}
			if input.ToAgentID != toAgentID {
				t.Fatalf("unexpected to agent %s", input.ToAgentID)
			}
			return &assignment.Result{ConversationID: conversationID, ActionType: enums.AssignmentActionTransfer}, nil
		},
	}

	body := `{"to_agent_id":"` + toAgentID.String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req = authedRequest(req, agentID, enums.MemberRoleAgent)
	req = withURLParam(req, "conversationID", conversationID.String())
	resp := httptest.NewRecorder()
	AssignmentTransfer(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAssignmentTransferOnBehalfRequiresElevatedRole(t *testing.T) {
	body := `{"to_agent_id":"` + uuid.NewString() + `","from_agent_id":"` + uuid.NewString() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req = authedRequest(req, uuid.New(), enums.MemberRoleAgent)
	req = withURLParam(req, "conversationID", uuid.NewString())
	resp := httptest.NewRecorder()
	AssignmentTransfer(stubAssignmentService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestAssignmentTransferOnBehalfAllowedForAdmin(t *testing.T) {
	fromAgentID := uuid.New()
	toAgentID := uuid.New()

	svc := stubAssignmentService{
		transferFn: func(ctx context.Context, input assignment.TransferInput, actor assignment.Actor) (*assignment.Result, error) {
			if input.FromAgentID != fromAgentID {
				t.Fatalf("unexpected from agent %s", input.FromAgentID)
			}
			return &assignment.Result{ActionType: enums.AssignmentActionTransfer}, nil
		},
	}

	body := `{"to_agent_id":"` + toAgentID.String() + `","from_agent_id":"` + fromAgentID.String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req = authedRequest(req, uuid.New(), enums.MemberRoleAdmin)
	req = withURLParam(req, "conversationID", uuid.NewString())
	resp := httptest.NewRecorder()
	AssignmentTransfer(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAssignmentReleaseWithoutBody(t *testing.T) {
	agentID := uuid.New()

	svc := stubAssignmentService{
		releaseFn: func(ctx context.Context, input assignment.ReleaseInput, actor assignment.Actor) (*assignment.Result, error) {
			if input.FromAgentID != agentID {
				t.Fatalf("expected from agent %s, got %s", agentID, input.FromAgentID)
			}
			return &assignment.Result{ActionType: enums.AssignmentActionRelease}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = authedRequest(req, agentID, enums.MemberRoleAgent)
	req = withURLParam(req, "conversationID", uuid.NewString())
	resp := httptest.NewRecorder()
	AssignmentRelease(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAssignmentAutoAssignNoEligibleAgents(t *testing.T) {
	svc := stubAssignmentService{
		autoAssignFn: func(ctx context.Context, id uuid.UUID, actor assignment.Actor) (*assignment.Result, error) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no eligible agents available")
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = authedRequest(req, uuid.New(), enums.MemberRoleAdmin)
	req = withURLParam(req, "conversationID", uuid.NewString())
	resp := httptest.NewRecorder()
	AssignmentAutoAssign(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}
