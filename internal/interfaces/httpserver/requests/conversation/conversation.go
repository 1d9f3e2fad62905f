// Package conversationreq contains HTTP request DTOs for conversation
// endpoints.
package conversationreq

import (
	"fmt"
	"strings"

	"vidbridge/conversation-api/internal/domain/conversation"
)

// Queue types accepted on conversation creation.
const (
	QueueTypeWorkgroup = "workgroup"
	QueueTypeUser      = "user"
)

// CreateConversationRequest represents the request body for creating a
// conversation.
type CreateConversationRequest struct {
	MediaType string `json:"mediaType" binding:"required"`
	QueueName string `json:"queueName" binding:"required"`
	// QueueType selects the queue namespace; defaults to workgroup.
	QueueType string `json:"queueType,omitempty"`

	// InitialState applies to generic interactions only.
	InitialState string `json:"initialState,omitempty"`

	// Callback fields apply to callback interactions only.
	CallbackPhoneNumber string `json:"callbackPhoneNumber,omitempty"`
	CallbackMessage     string `json:"callbackMessage,omitempty"`

	AdditionalAttributes map[string]string `json:"additionalAttributes,omitempty"`
}

// ScopedQueueName derives the platform's scoped queue identifier.
func (r *CreateConversationRequest) ScopedQueueName() (string, error) {
	queueType := strings.ToLower(strings.TrimSpace(r.QueueType))
	switch queueType {
	case "", QueueTypeWorkgroup:
		return "Workgroup Queue:" + r.QueueName, nil
	case QueueTypeUser:
		return "User Queue:" + r.QueueName, nil
	default:
		return "", fmt.Errorf("unknown queue type %q", r.QueueType)
	}
}

// ToParameters converts the request into domain initialization parameters.
func (r *CreateConversationRequest) ToParameters() (conversation.InitializationParameters, error) {
	scopedQueue, err := r.ScopedQueueName()
	if err != nil {
		return nil, err
	}

	base := conversation.BaseParameters{
		ScopedQueueName:      scopedQueue,
		AdditionalAttributes: r.AdditionalAttributes,
	}

	switch conversation.MediaType(strings.ToLower(r.MediaType)) {
	case conversation.MediaTypeGeneric:
		initialState := r.InitialState
		if initialState == "" {
			initialState = conversation.InitialStateOffering
		}
		return &conversation.GenericInteractionParameters{
			BaseParameters: base,
			InitialState:   initialState,
		}, nil
	case conversation.MediaTypeChat:
		return &conversation.ChatParameters{BaseParameters: base}, nil
	case conversation.MediaTypeCallback:
		return &conversation.CallbackParameters{
			BaseParameters:      base,
			CallbackPhoneNumber: r.CallbackPhoneNumber,
			CallbackMessage:     r.CallbackMessage,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported media type %q", r.MediaType)
	}
}

// AttachConversationRequest represents the request body for attaching a
// conversation to an existing interaction.
type AttachConversationRequest struct {
	InteractionID        int64             `json:"interactionId" binding:"required"`
	GuestName            string            `json:"guestName,omitempty"`
	AdditionalAttributes map[string]string `json:"additionalAttributes,omitempty"`
}
