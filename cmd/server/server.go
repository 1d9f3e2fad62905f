package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"vidbridge/conversation-api/internal/config"
	"vidbridge/conversation-api/internal/domain/conversation"
	"vidbridge/conversation-api/internal/domain/retry"
	"vidbridge/conversation-api/internal/infrastructure/auth"
	"vidbridge/conversation-api/internal/infrastructure/interaction"
	"vidbridge/conversation-api/internal/infrastructure/logger"
	"vidbridge/conversation-api/internal/infrastructure/metrics"
	"vidbridge/conversation-api/internal/infrastructure/observability"
	"vidbridge/conversation-api/internal/infrastructure/room"
	"vidbridge/conversation-api/internal/infrastructure/store"
	"vidbridge/conversation-api/internal/interfaces/httpserver"
)

// @title Conversation API
// @version 1.0
// @description Brokers ephemeral video rooms for contact-center interactions and keeps both sides reconciled.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
type Application struct {
	httpServer *httpserver.HTTPServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HTTPServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	conversationStore, err := store.NewFileStore(cfg.StorageDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open conversation store")
	}
	loaded, err := conversationStore.LoadAll(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("load persisted conversations")
	}
	metrics.ActiveConversations.Set(float64(loaded))
	log.Info().Int("conversations", loaded).Msg("loaded persisted conversations")

	authValidator, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize auth validator")
	}

	interactionClient := interaction.NewClient(cfg.InteractionAPIURL, cfg.InteractionAPIToken)
	roomClient := room.NewClient(cfg)

	bridge := conversation.NewAttributeBridge(conversationStore, interactionClient, roomClient, log)
	reconciler := conversation.NewReconciler(
		conversationStore,
		interactionClient,
		roomClient,
		cfg.ReconcileWorkers,
		retry.FixedPolicy(cfg.AttributeSyncRetries, cfg.AttributeSyncBackoff),
		log,
	)
	conversationService := conversation.NewService(
		conversationStore,
		interactionClient,
		roomClient,
		bridge,
		reconciler,
		cfg.ReconcileSettleDelay,
		log,
	)

	// Reconcile once on boot so records that went stale while the service
	// was down are cleaned up before traffic arrives.
	go func() {
		if err := reconciler.ReconcileAll(ctx); err != nil {
			log.Error().Err(err).Msg("startup reconcile")
		}
	}()

	eventStream := interaction.NewStream(cfg.InteractionEventsURL, cfg.InteractionAPIToken, conversationService, log)
	go func() {
		if err := eventStream.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("event stream stopped")
		}
	}()

	httpServer := httpserver.New(cfg, log, conversationService, authValidator)
	app := NewApplication(httpServer, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
