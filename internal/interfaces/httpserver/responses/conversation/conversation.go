// Package conversationres contains HTTP response DTOs for conversation
// endpoints.
package conversationres

import (
	domainconv "vidbridge/conversation-api/internal/domain/conversation"
)

// ConversationResponse represents a conversation in API responses.
type ConversationResponse struct {
	ConversationID  string            `json:"conversationId"`
	InteractionID   int64             `json:"interactionId,omitempty"`
	RoomID          string            `json:"roomId"`
	RoomURL         string            `json:"roomUrl"`
	Pin             string            `json:"pin,omitempty"`
	MediaType       string            `json:"mediaType,omitempty"`
	ScopedQueueName string            `json:"scopedQueueName,omitempty"`
	UserOwner       string            `json:"userOwner,omitempty"`
	IsMuted         bool              `json:"isMuted"`
	Attributes      map[string]string `json:"attributes,omitempty"`
}

// ListConversationsResponse represents the response for listing
// conversations.
type ListConversationsResponse struct {
	Object string                  `json:"object"`
	Data   []*ConversationResponse `json:"data"`
}

// DeleteConversationResponse represents the response for deleting a
// conversation.
type DeleteConversationResponse struct {
	ConversationID string `json:"conversationId"`
	Deleted        bool   `json:"deleted"`
}

// NewConversationResponse creates a ConversationResponse from a domain
// Conversation. POST responses include the room pin; use
// NewConversationResponseForGet elsewhere.
func NewConversationResponse(conv *domainconv.Conversation) *ConversationResponse {
	resp := NewConversationResponseForGet(conv)
	resp.Pin = conv.Room.Pin
	return resp
}

// NewConversationResponseForGet creates a ConversationResponse without the
// room pin.
func NewConversationResponseForGet(conv *domainconv.Conversation) *ConversationResponse {
	resp := &ConversationResponse{
		ConversationID:  conv.ConversationID,
		InteractionID:   conv.InteractionID,
		RoomID:          conv.Room.RoomID,
		RoomURL:         conv.Room.RoomURL,
		ScopedQueueName: conv.ScopedQueueName,
		UserOwner:       conv.UserOwner,
		IsMuted:         conv.IsMuted,
		Attributes:      conv.Attributes,
	}
	if conv.Init != nil {
		resp.MediaType = string(conv.Init.MediaType())
	}
	return resp
}

// NewListConversationsResponse creates a ListConversationsResponse from
// domain Conversations.
func NewListConversationsResponse(convs []*domainconv.Conversation) *ListConversationsResponse {
	data := make([]*ConversationResponse, len(convs))
	for i, conv := range convs {
		data[i] = NewConversationResponseForGet(conv)
	}
	return &ListConversationsResponse{
		Object: "list",
		Data:   data,
	}
}

// NewDeleteConversationResponse creates a DeleteConversationResponse.
func NewDeleteConversationResponse(conversationID string) *DeleteConversationResponse {
	return &DeleteConversationResponse{
		ConversationID: conversationID,
		Deleted:        true,
	}
}
