//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"vidbridge/conversation-api/internal/config"
	"vidbridge/conversation-api/internal/domain/conversation"
	"vidbridge/conversation-api/internal/domain/retry"
	"vidbridge/conversation-api/internal/infrastructure/auth"
	"vidbridge/conversation-api/internal/infrastructure/interaction"
	"vidbridge/conversation-api/internal/infrastructure/logger"
	"vidbridge/conversation-api/internal/infrastructure/room"
	"vidbridge/conversation-api/internal/infrastructure/store"
	"vidbridge/conversation-api/internal/interfaces/httpserver"
)

var conversationSet = wire.NewSet(
	newFileStore,
	wire.Bind(new(conversation.Store), new(*store.FileStore)),
	newInteractionClient,
	wire.Bind(new(conversation.InteractionGateway), new(*interaction.Client)),
	room.NewClient,
	wire.Bind(new(conversation.RoomGateway), new(*room.Client)),
	conversation.NewAttributeBridge,
	newReconciler,
	newConversationService,
)

// BuildApplication demonstrates how to assemble the service with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		newAuthValidator,
		conversationSet,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}

func newFileStore(cfg *config.Config, log zerolog.Logger) (*store.FileStore, error) {
	return store.NewFileStore(cfg.StorageDir, log)
}

func newInteractionClient(cfg *config.Config) *interaction.Client {
	return interaction.NewClient(cfg.InteractionAPIURL, cfg.InteractionAPIToken)
}

func newAuthValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*auth.Validator, error) {
	return auth.NewValidator(ctx, cfg, log)
}

func newReconciler(cfg *config.Config, store conversation.Store, interactions conversation.InteractionGateway, rooms conversation.RoomGateway, log zerolog.Logger) *conversation.Reconciler {
	return conversation.NewReconciler(store, interactions, rooms, cfg.ReconcileWorkers,
		retry.FixedPolicy(cfg.AttributeSyncRetries, cfg.AttributeSyncBackoff), log)
}

func newConversationService(
	cfg *config.Config,
	store conversation.Store,
	interactions conversation.InteractionGateway,
	rooms conversation.RoomGateway,
	bridge *conversation.AttributeBridge,
	reconciler *conversation.Reconciler,
	log zerolog.Logger,
) conversation.Service {
	return conversation.NewService(store, interactions, rooms, bridge, reconciler, cfg.ReconcileSettleDelay, log)
}
