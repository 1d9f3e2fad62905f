package conversation

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"

	"github.com/rs/zerolog"

	"vidbridge/conversation-api/internal/infrastructure/metrics"
)

// AttributeBridge propagates interaction attribute changes into the
// conversation record and keeps the room's audio state aligned with the
// interaction's hold state: held mutes every participant, resumed unmutes
// them.
//
// The bridge is suspended while the event connection is down, so stale
// events buffered across an outage cannot flip audio state; the reconciler
// restores consistency after the connection comes back.
type AttributeBridge struct {
	store        Store
	interactions InteractionGateway
	rooms        RoomGateway
	log          zerolog.Logger

	enabled atomic.Bool
}

// NewAttributeBridge returns an enabled bridge.
func NewAttributeBridge(store Store, interactions InteractionGateway, rooms RoomGateway, log zerolog.Logger) *AttributeBridge {
	b := &AttributeBridge{
		store:        store,
		interactions: interactions,
		rooms:        rooms,
		log:          log.With().Str("component", "attribute-bridge").Logger(),
	}
	b.enabled.Store(true)
	return b
}

// Enable resumes event processing.
func (b *AttributeBridge) Enable() { b.enabled.Store(true) }

// Disable suspends event processing until Enable is called.
func (b *AttributeBridge) Disable() { b.enabled.Store(false) }

// Enabled reports whether the bridge is currently processing events.
func (b *AttributeBridge) Enabled() bool { return b.enabled.Load() }

// ApplyInteractionChange merges changed attributes into the linked record
// and flips room-wide mute when the interaction's hold state changed. Events
// for interactions without a linked conversation are ignored.
func (b *AttributeBridge) ApplyInteractionChange(ctx context.Context, interactionID int64, attrs map[string]string) {
	if !b.enabled.Load() {
		b.log.Debug().Int64("interaction_id", interactionID).Msg("bridge suspended, dropping attribute change")
		return
	}

	conv, err := b.store.GetByInteraction(ctx, interactionID)
	if err != nil {
		if !errors.Is(err, ErrConversationNotFound) {
			b.log.Error().Err(err).Int64("interaction_id", interactionID).Msg("lookup by interaction failed")
		}
		return
	}

	log := b.log.With().
		Str("conversation_id", conv.ConversationID).
		Int64("interaction_id", interactionID).
		Logger()

	if len(attrs) > 0 {
		conv.MergeAttributes(attrs)
		if err := b.store.Save(ctx, conv); err != nil {
			log.Error().Err(err).Msg("persist merged attributes")
		}
	}

	held, err := b.interactions.InteractionIsHeld(ctx, interactionID)
	if err != nil {
		log.Error().Err(err).Msg("read hold state")
		return
	}
	if held == conv.IsMuted {
		return
	}

	b.setRoomMuted(ctx, conv, held, log)
}

// setRoomMuted applies the mute flag to every participant currently in the
// room and records the new state. A participant-level failure is logged and
// the remaining participants are still processed.
func (b *AttributeBridge) setRoomMuted(ctx context.Context, conv *Conversation, muted bool, log zerolog.Logger) {
	participants, err := b.rooms.GetParticipants(ctx, conv.Room.RoomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", conv.Room.RoomID).Msg("list room participants")
		return
	}

	for _, p := range participants {
		if err := b.rooms.MuteParticipant(ctx, conv.Room.RoomID, p.ParticipantID, muted); err != nil {
			log.Error().Err(err).
				Str("participant_id", p.ParticipantID).
				Bool("muted", muted).
				Msg("set participant mute")
		}
	}

	conv.IsMuted = muted
	if err := b.store.Save(ctx, conv); err != nil {
		log.Error().Err(err).Msg("persist mute state")
		return
	}

	metrics.MuteTransitions.WithLabelValues(strconv.FormatBool(muted)).Inc()
	log.Info().Bool("muted", muted).Int("participants", len(participants)).Msg("room mute state changed")
}
