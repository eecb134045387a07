package main

import (
	"context"
	"net/http"
	"os"

	"github.com/helplane/helplane-backend/api/routes"
	"github.com/helplane/helplane-backend/internal/assignment"
	"github.com/helplane/helplane-backend/internal/audit"
	"github.com/helplane/helplane-backend/internal/auth"
	"github.com/helplane/helplane-backend/internal/conversations"
	"github.com/helplane/helplane-backend/internal/inboxes"
	"github.com/helplane/helplane-backend/internal/memberships"
	"github.com/helplane/helplane-backend/internal/presence"
	"github.com/helplane/helplane-backend/internal/users"
	"github.com/helplane/helplane-backend/pkg/auth/session"
	"github.com/helplane/helplane-backend/pkg/config"
	"github.com/helplane/helplane-backend/pkg/db"
	"github.com/helplane/helplane-backend/pkg/logger"
	"github.com/helplane/helplane-backend/pkg/metrics"
	"github.com/helplane/helplane-backend/pkg/migrate"
	"github.com/helplane/helplane-backend/pkg/outbox"
	"github.com/helplane/helplane-backend/pkg/redis"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	presenceRegistry, err := presence.NewRegistry(redisClient, cfg.Presence.TTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create presence registry", err)
		os.Exit(1)
	}

	userRepo := users.NewRepository(dbClient.DB())
	membershipRepo := memberships.NewRepository(dbClient.DB())
	inboxRepo := inboxes.NewRepository(dbClient.DB())
	conversationRepo := conversations.NewRepository(dbClient.DB())
	assignmentStore := assignment.NewStore(dbClient.DB())
	auditRepo := audit.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	auditService, err := audit.NewService(auditRepo, dbClient, outboxService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		Presence:       presenceRegistry,
		JWTConfig:      cfg.JWT,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		TxRunner:       dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	inboxService, err := inboxes.NewService(inboxRepo, membershipRepo, userRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create inbox service", err)
		os.Exit(1)
	}

	assignmentMetrics := metrics.NewAssignmentMetrics(prometheus.DefaultRegisterer)
	assignmentService, err := assignment.NewService(
		assignmentStore,
		inboxRepo,
		membershipRepo,
		presenceRegistry,
		auditService,
		assignmentMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create assignment service", err)
		os.Exit(1)
	}

	conversationService, err := conversations.NewService(
		conversationRepo,
		inboxRepo,
		membershipRepo,
		assignmentService,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create conversation service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			sessionManager,
			authService,
			registerService,
			inboxService,
			conversationService,
			assignmentService,
			presenceRegistry,
			membershipRepo,
			auditService,
			auditRepo,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
