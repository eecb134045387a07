package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/helplane/helplane-backend/api/middleware"
	"github.com/helplane/helplane-backend/internal/assignment"
	"github.com/helplane/helplane-backend/internal/conversations"
	"github.com/helplane/helplane-backend/pkg/db/models"
	"github.com/helplane/helplane-backend/pkg/enums"
	pkgerrors "github.com/helplane/helplane-backend/pkg/errors"
	"github.com/helplane/helplane-backend/pkg/pagination"
)

func authedRequest(req *http.Request, userID uuid.UUID, role enums.MemberRole) *http.Request {
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, string(role))
	return req.WithContext(ctx)
}

func withURLParam(req *http.Request, name, value string) *http.Request {
	ctx, ok := req.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok {
		ctx = chi.NewRouteContext()
	}
	ctx.URLParams.Add(name, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, ctx))
}

type stubConversationService struct {
	createFn  func(ctx context.Context, input conversations.CreateConversationInput, actor assignment.Actor) (*conversations.ConversationDTO, error)
	getFn     func(ctx context.Context, id uuid.UUID, actor assignment.Actor) (*conversations.ConversationDTO, error)
	listFn    func(ctx context.Context, filter conversations.ListFilter, actor assignment.Actor, params pagination.Params) (*conversations.Page, error)
	resolveFn func(ctx context.Context, id uuid.UUID, actor assignment.Actor) (*conversations.ConversationDTO, error)
	reopenFn  func(ctx context.Context, id uuid.UUID, actor assignment.Actor) (*conversations.ConversationDTO, error)
}

func (s stubConversationService) Create(ctx context.Context, input conversations.CreateConversationInput, actor assignment.Actor) (*conversations.ConversationDTO, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input, actor)
	}
	return nil, nil
}

func (s stubConversationService) GetByID(ctx context.Context, id uuid.UUID, actor assignment.Actor) (*conversations.ConversationDTO, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id, actor)
	}
	return nil, nil
}

func (s stubConversationService) List(ctx context.Context, filter conversations.ListFilter, actor assignment.Actor, params pagination.Params) (*conversations.Page, error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter, actor, params)
	}
	return &conversations.Page{}, nil
}

func (s stubConversationService) Resolve(ctx context.Context, id uuid.UUID, actor assignment.Actor) (*conversations.ConversationDTO, error) {
	if s.resolveFn != nil {
		return s.resolveFn(ctx, id, actor)
	}
	return nil, nil
}

func (s stubConversationService) Reopen(ctx context.Context, id uuid.UUID, actor assignment.Actor) (*conversations.ConversationDTO, error) {
	if s.reopenFn != nil {
		return s.reopenFn(ctx, id, actor)
	}
	return nil, nil
}

type stubAuditReader struct {
	listFn func(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.AssignmentAction, error)
}

func (s stubAuditReader) ListForConversation(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.AssignmentAction, error) {
	if s.listFn != nil {
		return s.listFn(ctx, conversationID, limit)
	}
	return nil, nil
}

func TestConversationCreate(t *testing.T) {
	inboxID := uuid.New()
	actorID := uuid.New()
	created := &conversations.ConversationDTO{
		ID:           uuid.New(),
		InboxID:      inboxID,
		ContactEmail: "sam@example.com",
		Subject:      "printer on fire",
		Status:       enums.ConversationStatusOpen,
	}

	svc := stubConversationService{
		createFn: func(ctx context.Context, input conversations.CreateConversationInput, actor assignment.Actor) (*conversations.ConversationDTO, error) {
			if input.InboxID != inboxID {
				t.Fatalf("unexpected inbox id %s", input.InboxID)
			}
			if actor.UserID != actorID || actor.Role != enums.MemberRoleAdmin {
				t.Fatalf("unexpected actor %+v", actor)
			}
			return created, nil
		},
	}

	body := `{"contact_email":"sam@example.com","subject":"printer on fire"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req = authedRequest(req, actorID, enums.MemberRoleAdmin)
	req = withURLParam(req, "inboxID", inboxID.String())
	resp := httptest.NewRecorder()
	ConversationCreate(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data conversations.ConversationDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != created.ID {
		t.Fatalf("unexpected conversation %+v", envelope.Data)
	}
}

func TestConversationCreateRejectsBadBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"contact_email":"nope"}`))
	req = authedRequest(req, uuid.New(), enums.MemberRoleAdmin)
	req = withURLParam(req, "inboxID", uuid.NewString())
	resp := httptest.NewRecorder()
	ConversationCreate(stubConversationService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestConversationCreateRequiresAuthContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	ConversationCreate(stubConversationService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestConversationListParsesFilters(t *testing.T) {
	inboxID := uuid.New()
	status := enums.ConversationStatusOpen

	svc := stubConversationService{
		listFn: func(ctx context.Context, filter conversations.ListFilter, actor assignment.Actor, params pagination.Params) (*conversations.Page, error) {
			if filter.InboxID != inboxID {
				t.Fatalf("unexpected inbox id %s", filter.InboxID)
			}
			if filter.Status == nil || *filter.Status != status {
				t.Fatalf("expected status filter, got %+v", filter.Status)
			}
			if !filter.Unassigned || filter.Mine {
				t.Fatalf("unexpected flags %+v", filter)
			}
			if params.Limit != 10 {
				t.Fatalf("unexpected limit %d", params.Limit)
			}
			return &conversations.Page{NextCursor: "next"}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/?limit=10&status=open&unassigned=true", nil)
	req = authedRequest(req, uuid.New(), enums.MemberRoleAgent)
	req = withURLParam(req, "inboxID", inboxID.String())
	resp := httptest.NewRecorder()
	ConversationList(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestConversationListRejectsUnknownStatus(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?status=archived", nil)
	req = authedRequest(req, uuid.New(), enums.MemberRoleAgent)
	req = withURLParam(req, "inboxID", uuid.NewString())
	resp := httptest.NewRecorder()
	ConversationList(stubConversationService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestConversationDetailPassesThroughNotFound(t *testing.T) {
	svc := stubConversationService{
		getFn: func(ctx context.Context, id uuid.UUID, actor assignment.Actor) (*conversations.ConversationDTO, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = authedRequest(req, uuid.New(), enums.MemberRoleAgent)
	req = withURLParam(req, "conversationID", uuid.NewString())
	resp := httptest.NewRecorder()
	ConversationDetail(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestConversationResolve(t *testing.T) {
	conversationID := uuid.New()
	svc := stubConversationService{
		resolveFn: func(ctx context.Context, id uuid.UUID, actor assignment.Actor) (*conversations.ConversationDTO, error) {
			if id != conversationID {
				t.Fatalf("unexpected id %s", id)
			}
			return &conversations.ConversationDTO{ID: id, Status: enums.ConversationStatusResolved}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = authedRequest(req, uuid.New(), enums.MemberRoleAgent)
	req = withURLParam(req, "conversationID", conversationID.String())
	resp := httptest.NewRecorder()
	ConversationResolve(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data conversations.ConversationDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Status != enums.ConversationStatusResolved {
		t.Fatalf("unexpected status %s", envelope.Data.Status)
	}
}

func TestConversationAuditTrailChecksVisibilityFirst(t *testing.T) {
	svc := stubConversationService{
		getFn: func(ctx context.Context, id uuid.UUID, actor assignment.Actor) (*conversations.ConversationDTO, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
		},
	}
	repo := stubAuditReader{
		listFn: func(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.AssignmentAction, error) {
			t.Fatal("audit trail must not be read for invisible conversations")
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = authedRequest(req, uuid.New(), enums.MemberRoleAgent)
	req = withURLParam(req, "conversationID", uuid.NewString())
	resp := httptest.NewRecorder()
	ConversationAuditTrail(svc, repo, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestConversationAuditTrail(t *testing.T) {
	conversationID := uuid.New()
	now := time.Now().UTC()

	svc := stubConversationService{
		getFn: func(ctx context.Context, id uuid.UUID, actor assignment.Actor) (*conversations.ConversationDTO, error) {
			return &conversations.ConversationDTO{ID: id}, nil
		},
	}
	repo := stubAuditReader{
		listFn: func(ctx context.Context, id uuid.UUID, limit int) ([]models.AssignmentAction, error) {
			if id != conversationID {
				t.Fatalf("unexpected id %s", id)
			}
			return []models.AssignmentAction{{
				ID:             uuid.New(),
				ConversationID: conversationID,
				ActionType:     enums.AssignmentActionAutoAssign,
				CreatedAt:      now,
			}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = authedRequest(req, uuid.New(), enums.MemberRoleAdmin)
	req = withURLParam(req, "conversationID", conversationID.String())
	resp := httptest.NewRecorder()
	ConversationAuditTrail(svc, repo, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data struct {
			Items []models.AssignmentAction `json:"items"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Items) != 1 {
		t.Fatalf("expected one action, got %d", len(envelope.Data.Items))
	}
}
