package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crossply/crossply/internal/api/handler"
	customMiddleware "github.com/crossply/crossply/internal/api/middleware"
	"github.com/crossply/crossply/internal/config"
	"github.com/crossply/crossply/internal/platform"
	"github.com/crossply/crossply/internal/platform/facebook"
	"github.com/crossply/crossply/internal/platform/instagram"
	"github.com/crossply/crossply/internal/platform/linkedin"
	"github.com/crossply/crossply/internal/platform/twitter"
	"github.com/crossply/crossply/internal/platform/whatsapp"
	"github.com/crossply/crossply/internal/platform/youtube"
	"github.com/crossply/crossply/internal/repository/postgres"
	"github.com/crossply/crossply/internal/repository/redis"
	"github.com/crossply/crossply/internal/security"
	"github.com/crossply/crossply/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, db *postgres.DB, redisClient *redis.Client) (http.Handler, error) {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Security components
	jwtManager := security.NewJWTManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)
	encryptor, err := security.NewEncryptorFromBase64(cfg.Security.EncryptionKey)
	if err != nil {
		return nil, err
	}
	cipher := security.NewTokenCipher(encryptor)

	// Repositories
	tenantRepo := postgres.NewTenantRepository(db)
	userRepo := postgres.NewUserRepository(db)
	workspaceRepo := postgres.NewWorkspaceRepository(db)
	accountRepo := postgres.NewSocialAccountRepository(db)
	postRepo := postgres.NewPostRepository(db)
	targetRepo := postgres.NewPostTargetRepository(db)
	itemRepo := postgres.NewInboxItemRepository(db)
	convRepo := postgres.NewInboxConversationRepository(db)
	waConvRepo := postgres.NewWhatsAppConversationRepository(db)
	waMessageRepo := postgres.NewWhatsAppMessageRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)

	rateLimiter := redis.NewRateLimiter(
		redisClient,
		cfg.Security.RateLimit.RequestsPerMinute,
		cfg.Security.RateLimit.Burst,
	)
	broadcaster := redis.NewBroadcaster(redisClient)

	// Platform adapters
	registry, whatsappAdapter := buildAdapters(cfg.Platforms)

	// Services
	authService := service.NewAuthService(userRepo, tenantRepo, jwtManager)
	workspaceService := service.NewWorkspaceService(workspaceRepo, userRepo)
	accountService := service.NewAccountService(accountRepo, workspaceService, registry, cipher, cfg.Scheduler.RefreshHorizon)
	postService := service.NewPostService(postRepo, targetRepo, accountRepo, workspaceService)
	insightsService := service.NewInsightsService(postRepo, targetRepo, accountRepo, accountService, registry, workspaceService)
	notifier := service.NewNotifier(notificationRepo, workspaceRepo, broadcaster)
	ingestService := service.NewIngestService(itemRepo, convRepo, accountRepo, workspaceService, accountService, registry, notifier)
	whatsappService := service.NewWhatsAppService(waConvRepo, waMessageRepo, accountRepo, workspaceService, accountService, whatsappAdapter, notifier)

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	workspaceHandler := handler.NewWorkspaceHandler(workspaceService)
	accountHandler := handler.NewAccountHandler(accountService, ingestService)
	postHandler := handler.NewPostHandler(postService, insightsService)
	inboxHandler := handler.NewInboxHandler(ingestService, whatsappService)
	webhookHandler := handler.NewWebhookHandler(ingestService, whatsappService, cfg.Webhook.VerifyToken)
	notificationHandler := handler.NewNotificationHandler(notifier)

	authMiddleware := customMiddleware.NewAuthMiddleware(jwtManager)
	rateLimitMiddleware := customMiddleware.NewRateLimitMiddleware(rateLimiter)

	if cfg.Metrics.Enabled {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(db))

		// Auth routes (public)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
		})

		// Webhook routes (verified by token, not by JWT)
		r.Route("/webhooks/{workspaceID}/{platform}", func(r chi.Router) {
			r.Use(customMiddleware.WorkspaceContext)
			r.Get("/", webhookHandler.Verify)
			r.Post("/", webhookHandler.Ingest)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Use(rateLimitMiddleware.Limit)

			r.Get("/me", authHandler.Me)

			r.Route("/workspaces", func(r chi.Router) {
				r.Get("/", workspaceHandler.List)
				r.Post("/", workspaceHandler.Create)

				r.Route("/{workspaceID}", func(r chi.Router) {
					r.Use(customMiddleware.WorkspaceContext)

					r.Get("/", workspaceHandler.Get)
					r.Patch("/", workspaceHandler.Update)
					r.Delete("/", workspaceHandler.Delete)
					r.Post("/members", workspaceHandler.AddMember)
					r.Delete("/members/{userID}", workspaceHandler.RemoveMember)

					r.Route("/accounts", func(r chi.Router) {
						r.Get("/", accountHandler.List)
						r.Post("/", accountHandler.Connect)

						r.Route("/{accountID}", func(r chi.Router) {
							r.Get("/", accountHandler.Get)
							r.Delete("/", accountHandler.Disconnect)
							r.Post("/sync", accountHandler.Sync)
						})
					})

					r.Route("/posts", func(r chi.Router) {
						r.Get("/", postHandler.List)
						r.Post("/", postHandler.Create)
						r.Post("/bulk-delete", postHandler.BulkDelete)
						r.Post("/bulk-submit", postHandler.BulkSubmit)

						r.Route("/{postID}", func(r chi.Router) {
							r.Get("/", postHandler.Get)
							r.Patch("/", postHandler.Update)
							r.Delete("/", postHandler.Delete)
							r.Get("/targets", postHandler.Targets)
							r.Get("/targets/{targetID}/engagement", postHandler.Engagement)
							r.Post("/submit", postHandler.Submit)
							r.Post("/approve", postHandler.Approve)
							r.Post("/reject", postHandler.Reject)
							r.Post("/schedule", postHandler.Schedule)
							r.Post("/cancel", postHandler.Cancel)
						})
					})

					r.Route("/inbox", func(r chi.Router) {
						r.Get("/conversations", inboxHandler.ListConversations)

						r.Route("/conversations/{conversationID}", func(r chi.Router) {
							r.Get("/items", inboxHandler.ListItems)
							r.Patch("/state", inboxHandler.SetState)
							r.Patch("/assign", inboxHandler.Assign)
						})
					})

					r.Route("/whatsapp", func(r chi.Router) {
						r.Get("/conversations", inboxHandler.ListWhatsAppConversations)

						r.Route("/conversations/{conversationID}", func(r chi.Router) {
							r.Get("/messages", inboxHandler.ListWhatsAppMessages)
							r.Post("/reply", inboxHandler.ReplyWhatsApp)
						})
					})

					r.Route("/notifications", func(r chi.Router) {
						r.Get("/", notificationHandler.List)
						r.Get("/unread-count", notificationHandler.UnreadCount)
						r.Post("/{notificationID}/read", notificationHandler.MarkRead)
					})
				})
			})
		})
	})

	return r, nil
}

// buildAdapters wires one adapter per supported platform. The WhatsApp
// adapter is returned separately because it also serves conversation
// replies.
func buildAdapters(cfg config.PlatformsConfig) (*platform.Registry, *whatsapp.Adapter) {
	registry := platform.NewRegistry()

	registry.Register(facebook.NewAdapter(cfg.Facebook.BaseURL, cfg.Facebook.AppID, cfg.Facebook.AppSecret, cfg.Facebook.Timeout))
	registry.Register(instagram.NewAdapter(cfg.Instagram.BaseURL, cfg.Instagram.AppID, cfg.Instagram.AppSecret, cfg.Instagram.Timeout))
	registry.Register(linkedin.NewAdapter(cfg.LinkedIn.BaseURL, cfg.LinkedIn.AppID, cfg.LinkedIn.AppSecret, cfg.LinkedIn.Timeout))
	registry.Register(youtube.NewAdapter(cfg.YouTube.BaseURL, cfg.YouTube.AppID, cfg.YouTube.AppSecret, cfg.YouTube.Timeout))
	registry.Register(twitter.NewAdapter(cfg.Twitter.BaseURL, cfg.Twitter.AppID, cfg.Twitter.AppSecret, cfg.Twitter.Timeout))

	wa := whatsapp.NewAdapter(cfg.WhatsApp.BaseURL, cfg.WhatsApp.PhoneNumberID, cfg.WhatsApp.Timeout)
	registry.Register(wa)

	return registry, wa
}
