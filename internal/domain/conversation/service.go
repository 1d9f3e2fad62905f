package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"vidbridge/conversation-api/internal/infrastructure/metrics"
	"vidbridge/conversation-api/internal/utils/idgen"
	"vidbridge/conversation-api/internal/utils/platformerrors"
)

// chatRoomNotice is posted into a chat interaction when a video room is
// attached to it.
const chatRoomNotice = "A video session has been started for this conversation. Join with the link below."

// Service is the conversation lifecycle API. It owns the pairing of an
// ephemeral video room with a contact-center interaction and reacts to
// platform events to keep the two sides consistent.
type Service interface {
	CreateConversation(ctx context.Context, params InitializationParameters) (*Conversation, error)
	AttachConversation(ctx context.Context, interactionID int64, guestName string, additionalAttributes map[string]string) (*Conversation, error)
	DeleteConversation(ctx context.Context, conversationID string) error
	GetConversation(ctx context.Context, conversationID string) (*Conversation, error)
	GetConversationByInteraction(ctx context.Context, interactionID int64) (*Conversation, error)
	ListConversations(ctx context.Context) ([]*Conversation, error)

	EventHandler
}

type service struct {
	store        Store
	interactions InteractionGateway
	rooms        RoomGateway
	bridge       *AttributeBridge
	reconciler   *Reconciler
	settleDelay  time.Duration
	log          zerolog.Logger
}

// NewService wires the conversation service. settleDelay is how long to wait
// after the event connection comes back before reconciling, giving the
// platform time to finish its own recovery.
func NewService(
	store Store,
	interactions InteractionGateway,
	rooms RoomGateway,
	bridge *AttributeBridge,
	reconciler *Reconciler,
	settleDelay time.Duration,
	log zerolog.Logger,
) Service {
	return &service{
		store:        store,
		interactions: interactions,
		rooms:        rooms,
		bridge:       bridge,
		reconciler:   reconciler,
		settleDelay:  settleDelay,
		log:          log.With().Str("component", "conversation-service").Logger(),
	}
}

// CreateConversation allocates a room, persists the record, then creates the
// backing interaction and links it. The record is persisted before the
// interaction exists so a crash in between leaves a reconcilable trail
// instead of an untracked room.
func (s *service) CreateConversation(ctx context.Context, params InitializationParameters) (*Conversation, error) {
	if err := validateParameters(ctx, params); err != nil {
		return nil, err
	}

	conversationID, err := idgen.GenerateSecureID("conv", 16)
	if err != nil {
		return nil, platformerrors.New(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeInternal, "generate conversation id", err)
	}

	room, err := s.rooms.CreateRoom(ctx)
	if err != nil {
		return nil, platformerrors.New(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeRemoteFailure, "create video room", err)
	}

	log := s.log.With().
		Str("conversation_id", conversationID).
		Str("room_id", room.RoomID).
		Logger()

	base := params.Common()
	conv := &Conversation{
		ConversationID:  conversationID,
		Room:            *room,
		ScopedQueueName: base.ScopedQueueName,
		Attributes:      s.videoAttributes(conversationID, room, base.AdditionalAttributes),
		Init:            params,
	}

	if err := s.store.Save(ctx, conv); err != nil {
		// The allocated room is left behind rather than torn down here;
		// creation never blocks on remote room deletion. The next reconcile
		// pass or the room's empty timeout reclaims it.
		log.Error().Err(err).Msg("persist conversation record")
		return nil, err
	}

	interactionID, err := s.interactions.CreateInteraction(ctx, params)
	if err != nil {
		// The record stays behind with InteractionID zero. The next
		// reconcile pass classifies it by room occupancy and discards it
		// along with the room.
		return nil, platformerrors.NewWithContext(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeRemoteFailure, "create interaction", err,
			map[string]any{"conversation_id": conversationID})
	}

	conv.InteractionID = interactionID
	if err := s.store.Save(ctx, conv); err != nil {
		log.Error().Err(err).Int64("interaction_id", interactionID).Msg("persist interaction link")
		return nil, err
	}

	if err := s.interactions.SetAttributes(ctx, interactionID, conv.Attributes); err != nil {
		// The interaction works without the linkage attributes; the next
		// attribute event or reconcile pass repushes them.
		log.Error().Err(err).Int64("interaction_id", interactionID).Msg("push video attributes")
	}

	metrics.RecordConversationCreated("create", string(params.MediaType()))
	log.Info().
		Int64("interaction_id", interactionID).
		Str("media_type", string(params.MediaType())).
		Msg("conversation created")

	return conv, nil
}

// AttachConversation creates a room for an interaction that already exists
// on the platform, typically one a visitor started through another channel.
func (s *service) AttachConversation(ctx context.Context, interactionID int64, guestName string, additionalAttributes map[string]string) (*Conversation, error) {
	if interactionID == 0 {
		return nil, platformerrors.New(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "interaction id is required", nil)
	}

	exists, err := s.interactions.InteractionExists(ctx, interactionID)
	if err != nil {
		return nil, platformerrors.New(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeRemoteFailure, "look up interaction", err)
	}
	if !exists {
		return nil, platformerrors.NewWithContext(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeNotFound, "interaction not found", nil,
			map[string]any{"interaction_id": interactionID})
	}

	if _, err := s.store.GetByInteraction(ctx, interactionID); err == nil {
		return nil, platformerrors.NewWithContext(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeInvalidState, "interaction already has a conversation", nil,
			map[string]any{"interaction_id": interactionID})
	}

	disconnected, err := s.interactions.InteractionIsDisconnected(ctx, interactionID)
	if err != nil {
		return nil, platformerrors.New(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeRemoteFailure, "read interaction state", err)
	}
	if disconnected {
		return nil, platformerrors.NewWithContext(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeInvalidState, "interaction is disconnected", nil,
			map[string]any{"interaction_id": interactionID})
	}

	mediaType, err := s.interactions.GetInteractionType(ctx, interactionID)
	if err != nil {
		return nil, platformerrors.New(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeRemoteFailure, "read interaction type", err)
	}
	if !mediaType.Supported() {
		return nil, platformerrors.NewWithContext(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeInvalidState, "interaction type cannot carry a video conversation", nil,
			map[string]any{"interaction_id": interactionID, "media_type": string(mediaType)})
	}

	params, err := s.interactions.GetParameters(ctx, interactionID)
	if err != nil {
		return nil, platformerrors.New(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeRemoteFailure, "derive initialization parameters", err)
	}
	if len(additionalAttributes) > 0 {
		base := params.Common()
		if base.AdditionalAttributes == nil {
			base.AdditionalAttributes = make(map[string]string, len(additionalAttributes))
		}
		for k, v := range additionalAttributes {
			base.AdditionalAttributes[k] = v
		}
	}

	conversationID, err := idgen.GenerateSecureID("conv", 16)
	if err != nil {
		return nil, platformerrors.New(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeInternal, "generate conversation id", err)
	}

	room, err := s.rooms.CreateRoom(ctx)
	if err != nil {
		return nil, platformerrors.New(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeRemoteFailure, "create video room", err)
	}

	log := s.log.With().
		Str("conversation_id", conversationID).
		Int64("interaction_id", interactionID).
		Str("room_id", room.RoomID).
		Logger()

	conv := &Conversation{
		ConversationID:  conversationID,
		InteractionID:   interactionID,
		Room:            *room,
		ScopedQueueName: params.Common().ScopedQueueName,
		Attributes:      s.videoAttributes(conversationID, room, additionalAttributes),
		Init:            params,
	}

	if err := s.store.Save(ctx, conv); err != nil {
		// The allocated room is left behind rather than torn down here;
		// creation never blocks on remote room deletion. The next reconcile
		// pass or the room's empty timeout reclaims it.
		log.Error().Err(err).Msg("persist conversation record")
		return nil, err
	}

	if err := s.interactions.SetAttributes(ctx, interactionID, conv.Attributes); err != nil {
		log.Error().Err(err).Msg("push video attributes")
	}

	if mediaType == MediaTypeChat {
		// Guest link delivery is best effort; the agent still has the
		// room url through the attributes.
		if err := s.interactions.SendChatText(ctx, interactionID, chatRoomNotice); err != nil {
			log.Error().Err(err).Msg("post chat notice")
		}
		if guestName != "" {
			if err := s.interactions.SendChatURL(ctx, interactionID, room.GuestURL(guestName)); err != nil {
				log.Error().Err(err).Msg("post chat guest link")
			}
		}
	}

	metrics.RecordConversationCreated("attach", string(mediaType))
	log.Info().Str("media_type", string(mediaType)).Msg("conversation attached")
	return conv, nil
}

func (s *service) DeleteConversation(ctx context.Context, conversationID string) error {
	conv, err := s.store.Get(ctx, conversationID)
	if err != nil {
		if errors.Is(err, ErrConversationNotFound) {
			return platformerrors.NewWithContext(ctx, platformerrors.LayerDomain,
				platformerrors.ErrorTypeNotFound, "conversation not found", err,
				map[string]any{"conversation_id": conversationID})
		}
		return err
	}

	s.cleanup(ctx, conv, s.log.With().Str("conversation_id", conversationID).Logger())
	return nil
}

func (s *service) GetConversation(ctx context.Context, conversationID string) (*Conversation, error) {
	conv, err := s.store.Get(ctx, conversationID)
	if err != nil {
		if errors.Is(err, ErrConversationNotFound) {
			return nil, platformerrors.NewWithContext(ctx, platformerrors.LayerDomain,
				platformerrors.ErrorTypeNotFound, "conversation not found", err,
				map[string]any{"conversation_id": conversationID})
		}
		return nil, err
	}
	return conv, nil
}

func (s *service) GetConversationByInteraction(ctx context.Context, interactionID int64) (*Conversation, error) {
	conv, err := s.store.GetByInteraction(ctx, interactionID)
	if err != nil {
		if errors.Is(err, ErrConversationNotFound) {
			return nil, platformerrors.NewWithContext(ctx, platformerrors.LayerDomain,
				platformerrors.ErrorTypeNotFound, "conversation not found", err,
				map[string]any{"interaction_id": interactionID})
		}
		return nil, err
	}
	return conv, nil
}

func (s *service) ListConversations(ctx context.Context) ([]*Conversation, error) {
	return s.store.List(ctx)
}

// HandleInteractionChanged forwards attribute changes to the bridge.
func (s *service) HandleInteractionChanged(ctx context.Context, interactionID int64, attrs map[string]string) {
	s.bridge.ApplyInteractionChange(ctx, interactionID, attrs)
}

// HandleInteractionQueueChanged records the interaction's new queue and
// owner, which reconciliation later uses to decide a record's fate.
func (s *service) HandleInteractionQueueChanged(ctx context.Context, interactionID int64, scopedQueueName, userOwner string) {
	conv, err := s.store.GetByInteraction(ctx, interactionID)
	if err != nil {
		if !errors.Is(err, ErrConversationNotFound) {
			s.log.Error().Err(err).Int64("interaction_id", interactionID).Msg("lookup by interaction failed")
		}
		return
	}

	conv.ScopedQueueName = scopedQueueName
	conv.UserOwner = userOwner
	if err := s.store.Save(ctx, conv); err != nil {
		s.log.Error().Err(err).
			Str("conversation_id", conv.ConversationID).
			Msg("persist queue change")
		return
	}

	s.log.Info().
		Str("conversation_id", conv.ConversationID).
		Str("scoped_queue", scopedQueueName).
		Str("user_owner", userOwner).
		Msg("interaction queue changed")
}

// HandleInteractionDisconnected tears the conversation down when its
// interaction ends. Events for unknown interactions are normal after a
// reconcile pass cleared the id and are silently ignored.
func (s *service) HandleInteractionDisconnected(ctx context.Context, interactionID int64) {
	conv, err := s.store.GetByInteraction(ctx, interactionID)
	if err != nil {
		if errors.Is(err, ErrConversationNotFound) {
			s.log.Debug().Int64("interaction_id", interactionID).Msg("disconnect for untracked interaction")
		} else {
			s.log.Error().Err(err).Int64("interaction_id", interactionID).Msg("lookup by interaction failed")
		}
		return
	}

	log := s.log.With().
		Str("conversation_id", conv.ConversationID).
		Int64("interaction_id", interactionID).
		Logger()
	log.Info().Msg("interaction disconnected")
	s.cleanup(ctx, conv, log)
}

// HandleConnectionRegained re-enables live event processing and schedules a
// reconcile pass after the settle delay.
func (s *service) HandleConnectionRegained(ctx context.Context) {
	s.bridge.Enable()
	s.log.Info().Dur("settle_delay", s.settleDelay).Msg("event connection regained, scheduling reconcile")

	go func() {
		if s.settleDelay > 0 {
			timer := time.NewTimer(s.settleDelay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return
			}
		}
		if err := s.reconciler.ReconcileAll(ctx); err != nil {
			s.log.Error().Err(err).Msg("reconcile pass failed")
		}
	}()
}

// HandleConnectionLost suspends the bridge so buffered stale events cannot
// act on records while the platform view is unreliable.
func (s *service) HandleConnectionLost(ctx context.Context) {
	s.bridge.Disable()
	s.log.Warn().Msg("event connection lost, suspending attribute bridge")
}

// cleanup deletes the room and the record. The room delete is best effort;
// the registry entry always goes.
func (s *service) cleanup(ctx context.Context, conv *Conversation, log zerolog.Logger) {
	if conv.Room.RoomID != "" {
		if err := s.rooms.DeleteRoom(ctx, conv.Room.RoomID); err != nil {
			log.Error().Err(err).Str("room_id", conv.Room.RoomID).Msg("delete room")
		}
	}
	if err := s.store.Remove(ctx, conv.ConversationID); err != nil {
		log.Error().Err(err).Msg("remove conversation record")
		return
	}
	metrics.RecordConversationDeleted()
	log.Info().Msg("conversation cleaned up")
}

// videoAttributes is the attribute set pushed onto an interaction to link it
// to its room.
func (s *service) videoAttributes(conversationID string, room *Room, extra map[string]string) map[string]string {
	attrs := make(map[string]string, len(extra)+3)
	for k, v := range extra {
		attrs[k] = v
	}
	attrs[AttrConversationID] = conversationID
	attrs[AttrRoomID] = room.RoomID
	attrs[AttrRoomURL] = room.RoomURL
	return attrs
}

func validateParameters(ctx context.Context, params InitializationParameters) error {
	if params == nil {
		return platformerrors.New(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "initialization parameters are required", nil)
	}
	if !params.MediaType().Supported() {
		return platformerrors.New(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation,
			fmt.Sprintf("unsupported media type %q", params.MediaType()), nil)
	}
	if params.Common().ScopedQueueName == "" {
		return platformerrors.New(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "scoped queue name is required", nil)
	}
	if cb, ok := params.(*CallbackParameters); ok && cb.CallbackPhoneNumber == "" {
		return platformerrors.New(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "callback phone number is required", nil)
	}
	return nil
}
