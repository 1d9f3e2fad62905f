package conversation

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"vidbridge/conversation-api/internal/domain/retry"
	"vidbridge/conversation-api/internal/infrastructure/metrics"
)

// reconcileOutcome classifies what a record needs after an outage.
type reconcileOutcome int

const (
	outcomeValid reconcileOutcome = iota
	outcomeNeedsNewInteraction
	outcomeDiscard
)

// Reconciler restores consistency between stored conversation records and
// the interaction platform after the event connection was down. Records are
// processed independently by a bounded worker pool; one record's failure
// never blocks the rest.
//
// Reconciliation never creates rooms. A record either keeps its room with a
// fresh interaction, keeps both untouched, or loses both.
type Reconciler struct {
	store        Store
	interactions InteractionGateway
	rooms        RoomGateway
	workers      int
	attrRetry    retry.Policy
	log          zerolog.Logger

	running atomic.Bool
}

// NewReconciler builds a reconciler with the given worker pool size.
func NewReconciler(store Store, interactions InteractionGateway, rooms RoomGateway, workers int, attrRetry retry.Policy, log zerolog.Logger) *Reconciler {
	if workers < 1 {
		workers = 1
	}
	return &Reconciler{
		store:        store,
		interactions: interactions,
		rooms:        rooms,
		workers:      workers,
		attrRetry:    attrRetry,
		log:          log.With().Str("component", "reconciler").Logger(),
	}
}

// ReconcileAll walks every stored record and brings it back in line with the
// platform. Calling it while a pass is already running is a no-op; the pass
// itself is idempotent, so overlapping triggers simply coalesce.
func (r *Reconciler) ReconcileAll(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		r.log.Info().Msg("reconcile pass already running")
		return nil
	}
	defer r.running.Store(false)

	records, err := r.store.List(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		r.log.Info().Msg("no conversations to reconcile")
		return nil
	}

	r.log.Info().Int("count", len(records)).Int("workers", r.workers).Msg("reconcile pass started")
	started := time.Now()
	defer func() {
		metrics.ReconcileDuration.Observe(time.Since(started).Seconds())
	}()

	queue := make(chan *Conversation)
	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for conv := range queue {
				r.reconcileOne(ctx, conv)
			}
		}()
	}

	for _, conv := range records {
		select {
		case queue <- conv:
		case <-ctx.Done():
			close(queue)
			wg.Wait()
			return ctx.Err()
		}
	}
	close(queue)
	wg.Wait()

	r.log.Info().Msg("reconcile pass finished")
	return nil
}

// reconcileOne processes a single record.
//
// The stored interaction id is snapshotted and cleared up front, so a stale
// disconnect event arriving mid-pass cannot match the record and tear down a
// conversation that is about to be repaired.
func (r *Reconciler) reconcileOne(ctx context.Context, conv *Conversation) {
	log := r.log.With().
		Str("conversation_id", conv.ConversationID).
		Int64("interaction_id", conv.InteractionID).
		Logger()

	interactionID := conv.InteractionID
	conv.InteractionID = 0
	if err := r.store.Save(ctx, conv); err != nil {
		log.Error().Err(err).Msg("clear interaction id, leaving record untouched")
		return
	}

	outcome, err := r.classify(ctx, conv, interactionID)
	if err != nil {
		log.Error().Err(err).Msg("classification failed, discarding conversation")
		outcome = outcomeDiscard
	}

	switch outcome {
	case outcomeValid:
		conv.InteractionID = interactionID
		if err := r.store.Save(ctx, conv); err != nil {
			log.Error().Err(err).Msg("restore interaction id")
			return
		}
		metrics.ReconcileOutcomes.WithLabelValues("valid").Inc()
		log.Info().Msg("conversation still valid")

	case outcomeNeedsNewInteraction:
		r.recreateInteraction(ctx, conv, log)

	case outcomeDiscard:
		r.discard(ctx, conv, log)
	}
}

// classify decides a record's fate from the platform's current view of its
// interaction.
func (r *Reconciler) classify(ctx context.Context, conv *Conversation, interactionID int64) (reconcileOutcome, error) {
	if interactionID == 0 {
		// Record was persisted before its interaction got linked. The
		// room may still hold participants waiting for an agent.
		return r.classifyByRoomOccupancy(ctx, conv)
	}

	exists, err := r.interactions.InteractionExists(ctx, interactionID)
	if err != nil {
		return outcomeDiscard, err
	}

	if !exists {
		if conv.UserOwner == "" {
			// Queued interaction lost during the outage. Nobody answered
			// it, so a replacement preserves the caller's place.
			return outcomeNeedsNewInteraction, nil
		}
		return r.classifyByRoomOccupancy(ctx, conv)
	}

	disconnected, err := r.interactions.InteractionIsDisconnected(ctx, interactionID)
	if err != nil {
		return outcomeDiscard, err
	}
	if !disconnected {
		return outcomeValid, nil
	}

	userQueue, err := r.interactions.GetUserQueueName(ctx, interactionID)
	if err != nil {
		return outcomeDiscard, err
	}
	if userQueue == "" {
		// Disconnected before any agent was assigned. The visitor may
		// still be waiting in the room.
		return outcomeNeedsNewInteraction, nil
	}

	// An agent had it and it ended. The conversation is over.
	return outcomeDiscard, nil
}

// classifyByRoomOccupancy keeps the conversation alive only when someone is
// still in the room.
func (r *Reconciler) classifyByRoomOccupancy(ctx context.Context, conv *Conversation) (reconcileOutcome, error) {
	count, err := r.rooms.GetParticipantCount(ctx, conv.Room.RoomID)
	if err != nil {
		return outcomeDiscard, err
	}
	if count == 0 {
		return outcomeDiscard, nil
	}
	return outcomeNeedsNewInteraction, nil
}

// recreateInteraction builds a replacement interaction from the record's
// stored initialization parameters and relinks it. The room is reused as is.
func (r *Reconciler) recreateInteraction(ctx context.Context, conv *Conversation, log zerolog.Logger) {
	if conv.Init == nil {
		log.Warn().Msg("no initialization parameters stored, discarding conversation")
		r.discard(ctx, conv, log)
		return
	}

	newID, err := r.interactions.CreateInteraction(ctx, conv.Init)
	if err != nil {
		log.Error().Err(err).Msg("recreate interaction, discarding conversation")
		r.discard(ctx, conv, log)
		return
	}

	conv.InteractionID = newID
	if err := r.store.Save(ctx, conv); err != nil {
		log.Error().Err(err).Int64("new_interaction_id", newID).Msg("persist recreated interaction link")
		return
	}

	// The push only seeds the replacement interaction with the record's
	// last-synced attributes and the room linkage. The platform remains
	// authoritative: its next attribute event overwrites the record
	// through the bridge.
	attrs := r.reconcileAttributes(conv)
	err = retry.Execute(ctx, r.attrRetry, func(ctx context.Context, attempt int) error {
		return r.interactions.SetAttributes(ctx, newID, attrs)
	})
	if err != nil {
		log.Error().Err(err).Int64("new_interaction_id", newID).Msg("sync attributes onto recreated interaction")
	}

	metrics.ReconcileOutcomes.WithLabelValues("recreated").Inc()
	log.Info().Int64("new_interaction_id", newID).Msg("interaction recreated")
}

// reconcileAttributes is the attribute set pushed onto a replacement
// interaction: the record's merged attributes plus the room linkage and an
// auto-answer hint so a re-queued interaction connects without another
// accept step.
func (r *Reconciler) reconcileAttributes(conv *Conversation) map[string]string {
	attrs := make(map[string]string, len(conv.Attributes)+4)
	for k, v := range conv.Attributes {
		attrs[k] = v
	}
	attrs[AttrConversationID] = conv.ConversationID
	attrs[AttrRoomID] = conv.Room.RoomID
	attrs[AttrRoomURL] = conv.Room.RoomURL
	attrs[AttrAutoAnswerOnReconcile] = "true"
	return attrs
}

// discard tears the conversation down: best-effort room delete, then the
// record itself. A room delete failure is logged; the record is removed
// regardless so the registry does not accumulate dead entries.
func (r *Reconciler) discard(ctx context.Context, conv *Conversation, log zerolog.Logger) {
	if conv.Room.RoomID != "" {
		if err := r.rooms.DeleteRoom(ctx, conv.Room.RoomID); err != nil {
			log.Error().Err(err).Str("room_id", conv.Room.RoomID).Msg("delete room during discard")
		}
	}
	if err := r.store.Remove(ctx, conv.ConversationID); err != nil {
		log.Error().Err(err).Msg("remove conversation record")
		return
	}
	metrics.ReconcileOutcomes.WithLabelValues("discarded").Inc()
	metrics.RecordConversationDeleted()
	log.Info().Msg("conversation discarded")
}
