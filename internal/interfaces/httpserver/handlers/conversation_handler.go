package handlers

import (
	"context"

	"vidbridge/conversation-api/internal/domain/conversation"
)

// ConversationHandler handles conversation-related HTTP requests.
type ConversationHandler struct {
	service conversation.Service
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(service conversation.Service) *ConversationHandler {
	return &ConversationHandler{service: service}
}

// CreateConversation creates a new conversation from initialization
// parameters.
func (h *ConversationHandler) CreateConversation(ctx context.Context, params conversation.InitializationParameters) (*conversation.Conversation, error) {
	return h.service.CreateConversation(ctx, params)
}

// AttachConversation attaches a room to an existing interaction.
func (h *ConversationHandler) AttachConversation(ctx context.Context, interactionID int64, guestName string, attrs map[string]string) (*conversation.Conversation, error) {
	return h.service.AttachConversation(ctx, interactionID, guestName, attrs)
}

// GetConversation retrieves a conversation by ID.
func (h *ConversationHandler) GetConversation(ctx context.Context, id string) (*conversation.Conversation, error) {
	return h.service.GetConversation(ctx, id)
}

// ListConversations retrieves all tracked conversations.
func (h *ConversationHandler) ListConversations(ctx context.Context) ([]*conversation.Conversation, error) {
	return h.service.ListConversations(ctx)
}

// DeleteConversation tears a conversation down.
func (h *ConversationHandler) DeleteConversation(ctx context.Context, id string) error {
	return h.service.DeleteConversation(ctx, id)
}
