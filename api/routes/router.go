package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/helplane/helplane-backend/api/controllers"
	"github.com/helplane/helplane-backend/api/middleware"
	"github.com/helplane/helplane-backend/internal/assignment"
	"github.com/helplane/helplane-backend/internal/audit"
	"github.com/helplane/helplane-backend/internal/auth"
	"github.com/helplane/helplane-backend/internal/conversations"
	"github.com/helplane/helplane-backend/internal/inboxes"
	"github.com/helplane/helplane-backend/internal/presence"
	"github.com/helplane/helplane-backend/pkg/auth/session"
	"github.com/helplane/helplane-backend/pkg/config"
	"github.com/helplane/helplane-backend/pkg/db"
	"github.com/helplane/helplane-backend/pkg/logger"
	"github.com/helplane/helplane-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionManager sessionManager,
	authService auth.Service,
	registerService auth.RegisterService,
	inboxService *inboxes.Service,
	conversationService *conversations.Service,
	assignmentService *assignment.Service,
	presenceRegistry *presence.Registry,
	membershipChecker middleware.InboxMembershipChecker,
	auditService *audit.Service,
	auditRepo *audit.Repository,
) http.Handler {
	// The typed-nil conversions keep the nil checks inside the middleware
	// and health handlers working when no redis client is wired.
	var (
		cachePinger      redis.Pinger
		idempotencyStore redis.IdempotencyStore
		rateLimitStore   middleware.RateLimiterStore
	)
	if redisClient != nil {
		cachePinger = redisClient
		idempotencyStore = redisClient
		rateLimitStore = redisClient
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, cachePinger))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Post("/validate", controllers.PublicValidate(logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, rateLimitStore, logg)).Post("/login", controllers.AuthLogin(authService, logg))
		r.Post("/refresh", controllers.AuthRefresh(authService, logg))
		r.Post("/logout", controllers.AuthLogout(authService, cfg.JWT, logg))
		r.With(
			middleware.Auth(cfg.JWT, sessionManager, logg),
			middleware.RequireElevated(logg),
		).Post("/register", controllers.AuthRegister(registerService, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/inboxes", func(r chi.Router) {
			r.Get("/", controllers.InboxList(inboxService, logg))
			r.With(middleware.RequireElevated(logg)).Post("/", controllers.InboxCreate(inboxService, logg))

			r.Route("/{inboxID}", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireElevated(logg))
					r.Patch("/settings", controllers.InboxUpdateSettings(inboxService, logg))
					r.Post("/agents", controllers.InboxAddAgent(inboxService, logg))
					r.Delete("/agents/{userID}", controllers.InboxRemoveAgent(inboxService, logg))
				})

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireInboxMembership(membershipChecker, logg))
					r.Get("/", controllers.InboxDetail(inboxService, logg))
					r.Get("/agents", controllers.InboxAgents(inboxService, logg))
					r.Get("/presence", controllers.InboxPresenceSnapshot(inboxService, presenceRegistry, logg))
					r.Get("/conversations", controllers.ConversationList(conversationService, logg))
					r.Post("/conversations", controllers.ConversationCreate(conversationService, logg))
				})
			})
		})

		r.Route("/v1/conversations/{conversationID}", func(r chi.Router) {
			r.Get("/", controllers.ConversationDetail(conversationService, logg))
			r.Post("/resolve", controllers.ConversationResolve(conversationService, logg))
			r.Post("/reopen", controllers.ConversationReopen(conversationService, logg))
			r.Get("/audit", controllers.ConversationAuditTrail(conversationService, auditRepo, logg))

			r.With(middleware.RequireElevated(logg)).Post("/assign", controllers.AssignmentAutoAssign(assignmentService, logg))
			r.Post("/pickup", controllers.AssignmentPickup(assignmentService, logg))
			r.Post("/transfer", controllers.AssignmentTransfer(assignmentService, logg))
			r.Post("/release", controllers.AssignmentRelease(assignmentService, logg))
		})

		r.Route("/v1/presence", func(r chi.Router) {
			r.Put("/availability", controllers.PresenceSetAvailability(presenceRegistry, auditService, logg))
			r.Post("/heartbeat", controllers.PresenceHeartbeat(presenceRegistry, logg))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))
		r.Use(middleware.RequireElevated(logg))
		r.Get("/ping", controllers.AdminPing())
	})

	return r
}
