package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

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
	"github.com/crossply/crossply/internal/worker"
)

func main() {
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	log.Info().Msg("Starting crossply publish worker")

	db, err := postgres.NewDB(context.Background(), cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	encryptor, err := security.NewEncryptorFromBase64(cfg.Security.EncryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build token encryptor")
	}
	cipher := security.NewTokenCipher(encryptor)

	registry := platform.NewRegistry()
	registry.Register(facebook.NewAdapter(cfg.Platforms.Facebook.BaseURL, cfg.Platforms.Facebook.AppID, cfg.Platforms.Facebook.AppSecret, cfg.Platforms.Facebook.Timeout))
	registry.Register(instagram.NewAdapter(cfg.Platforms.Instagram.BaseURL, cfg.Platforms.Instagram.AppID, cfg.Platforms.Instagram.AppSecret, cfg.Platforms.Instagram.Timeout))
	registry.Register(linkedin.NewAdapter(cfg.Platforms.LinkedIn.BaseURL, cfg.Platforms.LinkedIn.AppID, cfg.Platforms.LinkedIn.AppSecret, cfg.Platforms.LinkedIn.Timeout))
	registry.Register(youtube.NewAdapter(cfg.Platforms.YouTube.BaseURL, cfg.Platforms.YouTube.AppID, cfg.Platforms.YouTube.AppSecret, cfg.Platforms.YouTube.Timeout))
	registry.Register(twitter.NewAdapter(cfg.Platforms.Twitter.BaseURL, cfg.Platforms.Twitter.AppID, cfg.Platforms.Twitter.AppSecret, cfg.Platforms.Twitter.Timeout))
	registry.Register(whatsapp.NewAdapter(cfg.Platforms.WhatsApp.BaseURL, cfg.Platforms.WhatsApp.PhoneNumberID, cfg.Platforms.WhatsApp.Timeout))

	workspaceRepo := postgres.NewWorkspaceRepository(db)
	userRepo := postgres.NewUserRepository(db)
	accountRepo := postgres.NewSocialAccountRepository(db)
	postRepo := postgres.NewPostRepository(db)
	targetRepo := postgres.NewPostTargetRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)

	workspaceService := service.NewWorkspaceService(workspaceRepo, userRepo)
	accountService := service.NewAccountService(accountRepo, workspaceService, registry, cipher, cfg.Scheduler.RefreshHorizon)
	notifier := service.NewNotifier(notificationRepo, workspaceRepo, redis.NewBroadcaster(redisClient))
	dispatchService := service.NewDispatchService(postRepo, targetRepo, accountRepo, accountService, registry, notifier, cfg.Dispatch)

	queue := redis.NewJobQueue(redisClient)
	publishWorker := worker.NewPublishWorker(queue, dispatchService)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info().Msg("Shutting down worker...")
		cancel()
	}()

	publishWorker.Run(ctx)

	log.Info().Msg("Worker stopped")
}
