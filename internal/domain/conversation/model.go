package conversation

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// Interaction attribute names propagated onto the interaction platform so
// agent-side tooling can locate the video room for an interaction.
const (
	AttrConversationID        = "Video_ConversationId"
	AttrRoomID                = "Video_RoomId"
	AttrRoomURL               = "Video_RoomUrl"
	AttrAutoAnswerOnReconcile = "Video_AutoAnswerOnReconstitution"
	AttrPrefix                = "Video_"
	AttrRemoteName            = "Eic_RemoteName"
)

// MediaType discriminates the interaction flavors a conversation can be
// initialized from.
type MediaType string

const (
	MediaTypeGeneric  MediaType = "generic"
	MediaTypeChat     MediaType = "chat"
	MediaTypeCallback MediaType = "callback"
)

// Supported reports whether a conversation can be created for or attached to
// an interaction of this type.
func (m MediaType) Supported() bool {
	switch m {
	case MediaTypeGeneric, MediaTypeChat, MediaTypeCallback:
		return true
	default:
		return false
	}
}

// Generic interaction initial states.
const (
	InitialStateOffering = "offering"
	InitialStateAlerting = "alerting"
)

// Room identifies the external video room bound to a conversation. Set once
// at creation; a conversation never changes rooms.
type Room struct {
	RoomID    string    `json:"roomId"`
	RoomURL   string    `json:"roomUrl"`
	Pin       string    `json:"pin"`
	CreatedAt time.Time `json:"createdAt"`
}

// GuestURL returns the room join URL with a display name appended.
func (r Room) GuestURL(guestName string) string {
	if guestName == "" {
		return r.RoomURL
	}
	return r.RoomURL + "&guestName=" + url.QueryEscape(guestName)
}

// Participant is a member of a video room.
type Participant struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
}

// BaseParameters carries the fields common to every initialization-parameter
// flavor.
type BaseParameters struct {
	ScopedQueueName      string            `json:"scopedQueueName"`
	AdditionalAttributes map[string]string `json:"additionalAttributes,omitempty"`
}

// Common returns the shared portion of the parameters for mutation.
func (b *BaseParameters) Common() *BaseParameters { return b }

// InitializationParameters is the tagged union over the interaction flavors
// used to (re)create the interaction behind a conversation.
type InitializationParameters interface {
	MediaType() MediaType
	Common() *BaseParameters
}

// GenericInteractionParameters creates a generic interaction.
type GenericInteractionParameters struct {
	BaseParameters
	InitialState string `json:"initialState,omitempty"`
}

func (*GenericInteractionParameters) MediaType() MediaType { return MediaTypeGeneric }

// ChatParameters creates a chat interaction.
type ChatParameters struct {
	BaseParameters
}

func (*ChatParameters) MediaType() MediaType { return MediaTypeChat }

// CallbackParameters creates a callback interaction.
type CallbackParameters struct {
	BaseParameters
	CallbackPhoneNumber string `json:"callbackPhoneNumber,omitempty"`
	CallbackMessage     string `json:"callbackMessage,omitempty"`
}

func (*CallbackParameters) MediaType() MediaType { return MediaTypeCallback }

// initEnvelope is the serialized form of the union: an explicit mediaType
// discriminator next to the flavor payload.
type initEnvelope struct {
	MediaType  MediaType       `json:"mediaType"`
	Parameters json.RawMessage `json:"parameters"`
}

// MarshalInitializationParameters encodes the union with its discriminator.
func MarshalInitializationParameters(p InitializationParameters) ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return json.Marshal(initEnvelope{
		MediaType:  p.MediaType(),
		Parameters: payload,
	})
}

// UnmarshalInitializationParameters decodes the union by switching on the
// discriminator.
func UnmarshalInitializationParameters(data []byte) (InitializationParameters, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var envelope initEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode initialization parameter envelope: %w", err)
	}

	switch envelope.MediaType {
	case MediaTypeGeneric:
		p := &GenericInteractionParameters{}
		if err := json.Unmarshal(envelope.Parameters, p); err != nil {
			return nil, fmt.Errorf("decode generic parameters: %w", err)
		}
		return p, nil
	case MediaTypeChat:
		p := &ChatParameters{}
		if err := json.Unmarshal(envelope.Parameters, p); err != nil {
			return nil, fmt.Errorf("decode chat parameters: %w", err)
		}
		return p, nil
	case MediaTypeCallback:
		p := &CallbackParameters{}
		if err := json.Unmarshal(envelope.Parameters, p); err != nil {
			return nil, fmt.Errorf("decode callback parameters: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown media type %q", envelope.MediaType)
	}
}

// Conversation pairs one interaction with one video room. It is the unit of
// persistence and reconciliation.
type Conversation struct {
	// ConversationID is the immutable primary key, generated at creation.
	ConversationID string
	// InteractionID links the external interaction. Zero means not yet
	// linked; it is cleared and reset during reconciliation.
	InteractionID int64
	// Version is a monotonic write counter, bumped on every save. When
	// duplicate persisted records exist for the same conversation, the
	// highest version is authoritative.
	Version int64
	// Room is set once at creation and never replaced.
	Room Room
	// ScopedQueueName and UserOwner track the last known queue/ownership
	// of the interaction. An empty UserOwner means still queued.
	ScopedQueueName string
	UserOwner       string
	// IsMuted mirrors the room's mute state to avoid redundant calls.
	IsMuted bool
	// Attributes mirrors the last-synced subset of interaction attributes.
	Attributes map[string]string
	// Init holds the parameters needed to recreate the interaction.
	Init InitializationParameters
}

type conversationJSON struct {
	ConversationID  string            `json:"conversationId"`
	InteractionID   int64             `json:"interactionId"`
	Version         int64             `json:"version"`
	Room            Room              `json:"room"`
	ScopedQueueName string            `json:"scopedQueueName"`
	UserOwner       string            `json:"userOwner"`
	IsMuted         bool              `json:"isMuted"`
	Attributes      map[string]string `json:"attributes"`
	Init            json.RawMessage   `json:"initializationParameters,omitempty"`
}

// MarshalJSON encodes the record, wrapping the init-parameter union in its
// discriminated envelope.
func (c *Conversation) MarshalJSON() ([]byte, error) {
	initRaw, err := MarshalInitializationParameters(c.Init)
	if err != nil {
		return nil, err
	}
	return json.Marshal(conversationJSON{
		ConversationID:  c.ConversationID,
		InteractionID:   c.InteractionID,
		Version:         c.Version,
		Room:            c.Room,
		ScopedQueueName: c.ScopedQueueName,
		UserOwner:       c.UserOwner,
		IsMuted:         c.IsMuted,
		Attributes:      c.Attributes,
		Init:            initRaw,
	})
}

// UnmarshalJSON decodes the record.
func (c *Conversation) UnmarshalJSON(data []byte) error {
	var cj conversationJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return err
	}

	initParams, err := UnmarshalInitializationParameters(cj.Init)
	if err != nil {
		return err
	}

	c.ConversationID = cj.ConversationID
	c.InteractionID = cj.InteractionID
	c.Version = cj.Version
	c.Room = cj.Room
	c.ScopedQueueName = cj.ScopedQueueName
	c.UserOwner = cj.UserOwner
	c.IsMuted = cj.IsMuted
	c.Attributes = cj.Attributes
	if c.Attributes == nil {
		c.Attributes = make(map[string]string)
	}
	c.Init = initParams
	return nil
}

// Clone returns a deep copy of the record. The store hands out and keeps
// copies so callers can mutate freely between saves.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}

	clone := *c
	clone.Attributes = make(map[string]string, len(c.Attributes))
	for k, v := range c.Attributes {
		clone.Attributes[k] = v
	}
	clone.Init = cloneInitParameters(c.Init)
	return &clone
}

func cloneInitParameters(p InitializationParameters) InitializationParameters {
	if p == nil {
		return nil
	}

	cloneBase := func(b BaseParameters) BaseParameters {
		attrs := make(map[string]string, len(b.AdditionalAttributes))
		for k, v := range b.AdditionalAttributes {
			attrs[k] = v
		}
		return BaseParameters{
			ScopedQueueName:      b.ScopedQueueName,
			AdditionalAttributes: attrs,
		}
	}

	switch typed := p.(type) {
	case *GenericInteractionParameters:
		return &GenericInteractionParameters{
			BaseParameters: cloneBase(typed.BaseParameters),
			InitialState:   typed.InitialState,
		}
	case *ChatParameters:
		return &ChatParameters{BaseParameters: cloneBase(typed.BaseParameters)}
	case *CallbackParameters:
		return &CallbackParameters{
			BaseParameters:      cloneBase(typed.BaseParameters),
			CallbackPhoneNumber: typed.CallbackPhoneNumber,
			CallbackMessage:     typed.CallbackMessage,
		}
	default:
		return p
	}
}

// MergeAttributes applies an attribute batch last-write-wins per key.
func (c *Conversation) MergeAttributes(attrs map[string]string) {
	if c.Attributes == nil {
		c.Attributes = make(map[string]string, len(attrs))
	}
	for k, v := range attrs {
		c.Attributes[k] = v
	}
}

// AttributeNames returns the names of the attributes currently mirrored on
// the record, used to re-sync after interaction recreation.
func (c *Conversation) AttributeNames() []string {
	names := make([]string, 0, len(c.Attributes))
	for name := range c.Attributes {
		names = append(names, name)
	}
	return names
}
