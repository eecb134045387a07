package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/helplane/helplane-backend/internal/inboxes"
	"github.com/helplane/helplane-backend/internal/memberships"
	pkgerrors "github.com/helplane/helplane-backend/pkg/errors"
)

type stubInboxService struct {
	createFn      func(ctx context.Context, input inboxes.CreateInboxInput) (*inboxes.InboxDTO, error)
	getFn         func(ctx context.Context, id uuid.UUID) (*inboxes.InboxDTO, error)
	listFn        func(ctx context.Context) ([]inboxes.InboxDTO, error)
	updateFn      func(ctx context.Context, id uuid.UUID, input inboxes.UpdateSettingsInput) (*inboxes.InboxDTO, error)
	listAgentsFn  func(ctx context.Context, inboxID uuid.UUID) ([]memberships.InboxAgent, error)
	addAgentFn    func(ctx context.Context, inboxID, userID uuid.UUID) error
	removeAgentFn func(ctx context.Context, inboxID, userID uuid.UUID) error
}

func (s stubInboxService) Create(ctx context.Context, input inboxes.CreateInboxInput) (*inboxes.InboxDTO, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input)
	}
	return nil, nil
}

func (s stubInboxService) GetByID(ctx context.Context, id uuid.UUID) (*inboxes.InboxDTO, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return nil, nil
}

func (s stubInboxService) List(ctx context.Context) ([]inboxes.InboxDTO, error) {
	if s.listFn != nil {
		return s.listFn(ctx)
	}
	return nil, nil
}

func (s stubInboxService) UpdateSettings(ctx context.Context, id uuid.UUID, input inboxes.UpdateSettingsInput) (*inboxes.InboxDTO, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, id, input)
	}
	return nil, nil
}

func (s stubInboxService) ListAgents(ctx context.Context, inboxID uuid.UUID) ([]memberships.InboxAgent, error) {
	if s.listAgentsFn != nil {
		return s.listAgentsFn(ctx, inboxID)
	}
	return nil, nil
}

func (s stubInboxService) AddAgent(ctx context.Context, inboxID, userID uuid.UUID) error {
	if s.addAgentFn != nil {
		return s.addAgentFn(ctx, inboxID, userID)
	}
	return nil
}

func (s stubInboxService) RemoveAgent(ctx context.Context, inboxID, userID uuid.UUID) error {
	if s.removeAgentFn != nil {
		return s.removeAgentFn(ctx, inboxID, userID)
	}
	return nil
}

func TestInboxCreate(t *testing.T) {
	maxPerAgent := 5
	created := &inboxes.InboxDTO{ID: uuid.New(), Name: "support"}

	svc := stubInboxService{
		createFn: func(ctx context.Context, input inboxes.CreateInboxInput) (*inboxes.InboxDTO, error) {
			if input.Name != "support" || !input.AutoAssignmentEnabled {
				t.Fatalf("unexpected input %+v", input)
			}
			if input.MaxConversationsPerAgent == nil || *input.MaxConversationsPerAgent != maxPerAgent {
				t.Fatalf("unexpected cap %+v", input.MaxConversationsPerAgent)
			}
			return created, nil
		},
	}

	body := `{"name":"support","auto_assignment_enabled":true,"max_conversations_per_agent":5}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	resp := httptest.NewRecorder()
	InboxCreate(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data inboxes.InboxDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != created.ID {
		t.Fatalf("unexpected inbox %+v", envelope.Data)
	}
}

func TestInboxCreateRejectsShortName(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	resp := httptest.NewRecorder()
	InboxCreate(stubInboxService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestInboxUpdateSettings(t *testing.T) {
	inboxID := uuid.New()

	svc := stubInboxService{
		updateFn: func(ctx context.Context, id uuid.UUID, input inboxes.UpdateSettingsInput) (*inboxes.InboxDTO, error) {
			if id != inboxID {
				t.Fatalf("unexpected id %s", id)
			}
			if input.AutoAssignmentEnabled {
				t.Fatal("expected auto assignment disabled")
			}
			return &inboxes.InboxDTO{ID: id}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"auto_assignment_enabled":false}`))
	req = withURLParam(req, "inboxID", inboxID.String())
	resp := httptest.NewRecorder()
	InboxUpdateSettings(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestInboxAddAgent(t *testing.T) {
	inboxID := uuid.New()
	userID := uuid.New()

	var gotInbox, gotUser uuid.UUID
	svc := stubInboxService{
		addAgentFn: func(ctx context.Context, inbox, user uuid.UUID) error {
			gotInbox, gotUser = inbox, user
			return nil
		},
	}

	body := `{"user_id":"` + userID.String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req = withURLParam(req, "inboxID", inboxID.String())
	resp := httptest.NewRecorder()
	InboxAddAgent(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if gotInbox != inboxID || gotUser != userID {
		t.Fatalf("unexpected call %s %s", gotInbox, gotUser)
	}
}

func TestInboxAddAgentConflict(t *testing.T) {
	svc := stubInboxService{
		addAgentFn: func(ctx context.Context, inbox, user uuid.UUID) error {
			return pkgerrors.New(pkgerrors.CodeConflict, "agent already enrolled")
		},
	}

	body := `{"user_id":"` + uuid.NewString() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req = withURLParam(req, "inboxID", uuid.NewString())
	resp := httptest.NewRecorder()
	InboxAddAgent(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestInboxRemoveAgent(t *testing.T) {
	inboxID := uuid.New()
	userID := uuid.New()

	var gotInbox, gotUser uuid.UUID
	svc := stubInboxService{
		removeAgentFn: func(ctx context.Context, inbox, user uuid.UUID) error {
			gotInbox, gotUser = inbox, user
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	req = withURLParam(req, "inboxID", inboxID.String())
	req = withURLParam(req, "userID", userID.String())
	resp := httptest.NewRecorder()
	InboxRemoveAgent(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if gotInbox != inboxID || gotUser != userID {
		t.Fatalf("unexpected call %s %s", gotInbox, gotUser)
	}
}
