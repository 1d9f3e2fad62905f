package conversation

import "context"

// InteractionGateway is the narrow contract against the contact-center
// interaction platform. Calls are synchronous remote calls; the gateway
// applies its own timeout policy.
type InteractionGateway interface {
	InteractionExists(ctx context.Context, interactionID int64) (bool, error)
	InteractionIsDisconnected(ctx context.Context, interactionID int64) (bool, error)
	InteractionIsHeld(ctx context.Context, interactionID int64) (bool, error)

	// GetUserQueueName returns the user queue the interaction is assigned
	// to, or empty when it is unassigned.
	GetUserQueueName(ctx context.Context, interactionID int64) (string, error)
	GetInteractionType(ctx context.Context, interactionID int64) (MediaType, error)

	// GetParameters derives initialization parameters from a live
	// interaction, for attaching a conversation to it.
	GetParameters(ctx context.Context, interactionID int64) (InitializationParameters, error)

	GetAttributes(ctx context.Context, interactionID int64, names []string) (map[string]string, error)
	SetAttributes(ctx context.Context, interactionID int64, attrs map[string]string) error

	// CreateInteraction creates a new interaction from initialization
	// parameters and returns its id.
	CreateInteraction(ctx context.Context, params InitializationParameters) (int64, error)

	// SendChatText and SendChatURL post into a chat interaction's own
	// message stream.
	SendChatText(ctx context.Context, interactionID int64, text string) error
	SendChatURL(ctx context.Context, interactionID int64, rawURL string) error
}

// RoomGateway is the narrow contract against the video-room platform.
type RoomGateway interface {
	CreateRoom(ctx context.Context) (*Room, error)
	DeleteRoom(ctx context.Context, roomID string) error
	GetParticipants(ctx context.Context, roomID string) ([]Participant, error)
	GetParticipantCount(ctx context.Context, roomID string) (int, error)
	MuteParticipant(ctx context.Context, roomID, participantID string, muted bool) error
	KickParticipant(ctx context.Context, roomID, participantID string) error
}

// EventHandler receives interaction platform events. The transport delivers
// events for a single interaction in platform order; no cross-interaction
// ordering is assumed.
type EventHandler interface {
	HandleInteractionChanged(ctx context.Context, interactionID int64, attrs map[string]string)
	HandleInteractionQueueChanged(ctx context.Context, interactionID int64, scopedQueueName, userOwner string)
	HandleInteractionDisconnected(ctx context.Context, interactionID int64)
	HandleConnectionRegained(ctx context.Context)
	HandleConnectionLost(ctx context.Context)
}
