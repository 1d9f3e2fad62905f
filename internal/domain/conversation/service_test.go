package conversation_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"vidbridge/conversation-api/internal/domain/conversation"
	"vidbridge/conversation-api/internal/domain/retry"
	"vidbridge/conversation-api/internal/utils/platformerrors"
)

func newTestService(store conversation.Store, interactions conversation.InteractionGateway, rooms conversation.RoomGateway) conversation.Service {
	log := zerolog.Nop()
	bridge := conversation.NewAttributeBridge(store, interactions, rooms, log)
	reconciler := conversation.NewReconciler(store, interactions, rooms, 2, retry.FixedPolicy(1, time.Millisecond), log)
	return conversation.NewService(store, interactions, rooms, bridge, reconciler, 0, log)
}

func genericParams(queue string) *conversation.GenericInteractionParameters {
	return &conversation.GenericInteractionParameters{
		BaseParameters: conversation.BaseParameters{ScopedQueueName: queue},
		InitialState:   conversation.InitialStateOffering,
	}
}

func TestCreateConversation(t *testing.T) {
	store := newMemoryStore()
	var created conversation.InitializationParameters
	var pushedAttrs map[string]string
	interactions := &mockInteractionGateway{
		CreateInteractionFunc: func(ctx context.Context, params conversation.InitializationParameters) (int64, error) {
			created = params
			return 101, nil
		},
		SetAttributesFunc: func(ctx context.Context, id int64, attrs map[string]string) error {
			pushedAttrs = attrs
			return nil
		},
	}
	rooms := &mockRoomGateway{}

	svc := newTestService(store, interactions, rooms)
	conv, err := svc.CreateConversation(context.Background(), genericParams("Workgroup Queue:Support"))
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}

	if conv.ConversationID == "" || !strings.HasPrefix(conv.ConversationID, "conv") {
		t.Errorf("ConversationID = %q, want generated id with conv prefix", conv.ConversationID)
	}
	if conv.InteractionID != 101 {
		t.Errorf("InteractionID = %d, want 101", conv.InteractionID)
	}
	if conv.Room.RoomID == "" {
		t.Errorf("no room allocated")
	}
	if created == nil || created.MediaType() != conversation.MediaTypeGeneric {
		t.Errorf("interaction not created from the given parameters")
	}
	if pushedAttrs[conversation.AttrConversationID] != conv.ConversationID {
		t.Errorf("conversation id attribute not pushed to interaction")
	}
	if pushedAttrs[conversation.AttrRoomURL] != conv.Room.RoomURL {
		t.Errorf("room url attribute not pushed to interaction")
	}

	stored := store.snapshot(conv.ConversationID)
	if stored == nil || stored.InteractionID != 101 {
		t.Errorf("record not persisted with interaction link")
	}
}

func TestCreateConversationValidation(t *testing.T) {
	tests := []struct {
		name   string
		params conversation.InitializationParameters
	}{
		{name: "nil parameters", params: nil},
		{name: "missing queue", params: genericParams("")},
		{
			name: "callback without phone number",
			params: &conversation.CallbackParameters{
				BaseParameters: conversation.BaseParameters{ScopedQueueName: "Workgroup Queue:Support"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(newMemoryStore(), &mockInteractionGateway{}, &mockRoomGateway{})
			_, err := svc.CreateConversation(context.Background(), tt.params)
			if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
				t.Errorf("error = %v, want validation error", err)
			}
		})
	}
}

func TestCreateConversationLeavesOrphanForReconcile(t *testing.T) {
	store := newMemoryStore()
	interactions := &mockInteractionGateway{
		CreateInteractionFunc: func(ctx context.Context, params conversation.InitializationParameters) (int64, error) {
			return 0, errors.New("platform unavailable")
		},
	}
	rooms := &mockRoomGateway{}

	svc := newTestService(store, interactions, rooms)
	_, err := svc.CreateConversation(context.Background(), genericParams("Workgroup Queue:Support"))
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeRemoteFailure) {
		t.Fatalf("error = %v, want remote failure", err)
	}

	// A failed create returns without touching the room. The unlinked
	// record and the room wait for the next reconcile sweep.
	if got := rooms.deleted(); len(got) != 0 {
		t.Errorf("room deleted synchronously on create failure: %v", got)
	}
	all, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 1 || all[0].InteractionID != 0 {
		t.Fatalf("records after failed create = %+v, want one unlinked record", all)
	}

	// The empty room reads as unoccupied, so the sweep discards the orphan.
	reconciler := conversation.NewReconciler(store, interactions, rooms, 2,
		retry.FixedPolicy(1, time.Millisecond), zerolog.Nop())
	if err := reconciler.ReconcileAll(context.Background()); err != nil {
		t.Fatalf("ReconcileAll() error = %v", err)
	}
	if len(rooms.deleted()) != 1 {
		t.Errorf("reconcile did not release the orphaned room")
	}
	if all, _ := store.List(context.Background()); len(all) != 0 {
		t.Errorf("reconcile did not remove the orphaned record")
	}
}

func TestAttachConversation(t *testing.T) {
	store := newMemoryStore()
	var chatTexts, chatURLs []string
	interactions := &mockInteractionGateway{
		InteractionExistsFunc:         func(ctx context.Context, id int64) (bool, error) { return true, nil },
		InteractionIsDisconnectedFunc: func(ctx context.Context, id int64) (bool, error) { return false, nil },
		GetInteractionTypeFunc: func(ctx context.Context, id int64) (conversation.MediaType, error) {
			return conversation.MediaTypeChat, nil
		},
		GetParametersFunc: func(ctx context.Context, id int64) (conversation.InitializationParameters, error) {
			return &conversation.ChatParameters{
				BaseParameters: conversation.BaseParameters{ScopedQueueName: "Workgroup Queue:Support"},
			}, nil
		},
		SendChatTextFunc: func(ctx context.Context, id int64, text string) error {
			chatTexts = append(chatTexts, text)
			return nil
		},
		SendChatURLFunc: func(ctx context.Context, id int64, rawURL string) error {
			chatURLs = append(chatURLs, rawURL)
			return nil
		},
	}
	rooms := &mockRoomGateway{
		CreateRoomFunc: func(ctx context.Context) (*conversation.Room, error) {
			return &conversation.Room{RoomID: "room-7", RoomURL: "https://video.example.com/join?room=room-7"}, nil
		},
	}

	svc := newTestService(store, interactions, rooms)
	conv, err := svc.AttachConversation(context.Background(), 55, "Pat Doe", map[string]string{"Account": "A-9"})
	if err != nil {
		t.Fatalf("AttachConversation() error = %v", err)
	}

	if conv.InteractionID != 55 {
		t.Errorf("InteractionID = %d, want 55", conv.InteractionID)
	}
	if conv.Attributes["Account"] != "A-9" {
		t.Errorf("additional attribute not carried onto the record")
	}
	if len(chatTexts) != 1 {
		t.Errorf("chat notice not posted")
	}
	if len(chatURLs) != 1 {
		t.Fatalf("guest link not posted")
	}
	if !strings.Contains(chatURLs[0], "guestName=Pat+Doe") && !strings.Contains(chatURLs[0], "guestName=Pat%20Doe") {
		t.Errorf("guest link %q does not carry the encoded guest name", chatURLs[0])
	}
}

func TestAttachConversationWithoutGuestNameSkipsGuestLink(t *testing.T) {
	store := newMemoryStore()
	var chatTexts, chatURLs []string
	interactions := &mockInteractionGateway{
		InteractionExistsFunc:         func(ctx context.Context, id int64) (bool, error) { return true, nil },
		InteractionIsDisconnectedFunc: func(ctx context.Context, id int64) (bool, error) { return false, nil },
		GetInteractionTypeFunc: func(ctx context.Context, id int64) (conversation.MediaType, error) {
			return conversation.MediaTypeChat, nil
		},
		GetParametersFunc: func(ctx context.Context, id int64) (conversation.InitializationParameters, error) {
			return &conversation.ChatParameters{
				BaseParameters: conversation.BaseParameters{ScopedQueueName: "Workgroup Queue:Support"},
			}, nil
		},
		SendChatTextFunc: func(ctx context.Context, id int64, text string) error {
			chatTexts = append(chatTexts, text)
			return nil
		},
		SendChatURLFunc: func(ctx context.Context, id int64, rawURL string) error {
			chatURLs = append(chatURLs, rawURL)
			return nil
		},
	}

	svc := newTestService(store, interactions, &mockRoomGateway{})
	if _, err := svc.AttachConversation(context.Background(), 55, "", nil); err != nil {
		t.Fatalf("AttachConversation() error = %v", err)
	}

	if len(chatTexts) != 1 {
		t.Errorf("chat notice not posted")
	}
	if len(chatURLs) != 0 {
		t.Errorf("guest link posted without a guest name: %v", chatURLs)
	}
}

func TestAttachConversationRejections(t *testing.T) {
	tests := []struct {
		name         string
		interactions *mockInteractionGateway
		seed         []*conversation.Conversation
		wantType     platformerrors.ErrorType
	}{
		{
			name: "unknown interaction",
			interactions: &mockInteractionGateway{
				InteractionExistsFunc: func(ctx context.Context, id int64) (bool, error) { return false, nil },
			},
			wantType: platformerrors.ErrorTypeNotFound,
		},
		{
			name: "disconnected interaction",
			interactions: &mockInteractionGateway{
				InteractionExistsFunc:         func(ctx context.Context, id int64) (bool, error) { return true, nil },
				InteractionIsDisconnectedFunc: func(ctx context.Context, id int64) (bool, error) { return true, nil },
			},
			wantType: platformerrors.ErrorTypeInvalidState,
		},
		{
			name: "unsupported media type",
			interactions: &mockInteractionGateway{
				InteractionExistsFunc: func(ctx context.Context, id int64) (bool, error) { return true, nil },
				GetInteractionTypeFunc: func(ctx context.Context, id int64) (conversation.MediaType, error) {
					return conversation.MediaType("email"), nil
				},
			},
			wantType: platformerrors.ErrorTypeInvalidState,
		},
		{
			name: "already attached",
			interactions: &mockInteractionGateway{
				InteractionExistsFunc: func(ctx context.Context, id int64) (bool, error) { return true, nil },
			},
			seed:     []*conversation.Conversation{reconcilerRecord("conv-existing", 55, "")},
			wantType: platformerrors.ErrorTypeInvalidState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(newMemoryStore(tt.seed...), tt.interactions, &mockRoomGateway{})
			_, err := svc.AttachConversation(context.Background(), 55, "", nil)
			if !platformerrors.IsErrorType(err, tt.wantType) {
				t.Errorf("error = %v, want %s", err, tt.wantType)
			}
		})
	}
}

func TestDeleteConversation(t *testing.T) {
	store := newMemoryStore(reconcilerRecord("conv-1", 101, ""))
	rooms := &mockRoomGateway{}
	svc := newTestService(store, &mockInteractionGateway{}, rooms)

	if err := svc.DeleteConversation(context.Background(), "conv-1"); err != nil {
		t.Fatalf("DeleteConversation() error = %v", err)
	}
	if store.has("conv-1") {
		t.Errorf("record still present after delete")
	}
	if len(rooms.deleted()) != 1 {
		t.Errorf("room not deleted")
	}

	err := svc.DeleteConversation(context.Background(), "conv-1")
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		t.Errorf("second delete error = %v, want not found", err)
	}
}

// A disconnect for a tracked interaction tears down the room and the record;
// subsequent lookups no longer find the conversation.
func TestInteractionDisconnectedTearsDownConversation(t *testing.T) {
	store := newMemoryStore(reconcilerRecord("conv-1", 101, "agent.smith"))
	rooms := &mockRoomGateway{}
	svc := newTestService(store, &mockInteractionGateway{}, rooms)

	svc.HandleInteractionDisconnected(context.Background(), 101)

	deleted := rooms.deleted()
	if len(deleted) != 1 || deleted[0] != "room-conv-1" {
		t.Errorf("deleted rooms = %v, want [room-conv-1]", deleted)
	}
	if _, err := svc.GetConversation(context.Background(), "conv-1"); !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		t.Errorf("GetConversation() after disconnect error = %v, want not found", err)
	}
}

func TestInteractionDisconnectedUnknownInteractionIsIgnored(t *testing.T) {
	store := newMemoryStore(reconcilerRecord("conv-1", 101, ""))
	rooms := &mockRoomGateway{}
	svc := newTestService(store, &mockInteractionGateway{}, rooms)

	svc.HandleInteractionDisconnected(context.Background(), 999)

	if !store.has("conv-1") {
		t.Errorf("unrelated conversation removed")
	}
	if len(rooms.deleted()) != 0 {
		t.Errorf("room deleted for unknown interaction")
	}
}

func TestQueueChangeUpdatesRecord(t *testing.T) {
	store := newMemoryStore(reconcilerRecord("conv-1", 101, ""))
	svc := newTestService(store, &mockInteractionGateway{}, &mockRoomGateway{})

	svc.HandleInteractionQueueChanged(context.Background(), 101, "User Queue:agent.smith", "agent.smith")

	got := store.snapshot("conv-1")
	if got.ScopedQueueName != "User Queue:agent.smith" {
		t.Errorf("ScopedQueueName = %q, want User Queue:agent.smith", got.ScopedQueueName)
	}
	if got.UserOwner != "agent.smith" {
		t.Errorf("UserOwner = %q, want agent.smith", got.UserOwner)
	}
}

func TestConnectionLifecycleTogglesBridgeAndReconciles(t *testing.T) {
	store := newMemoryStore(reconcilerRecord("conv-1", 101, "agent.smith"))
	reconcileStarted := make(chan struct{})
	interactions := &mockInteractionGateway{
		InteractionExistsFunc: func(ctx context.Context, id int64) (bool, error) {
			close(reconcileStarted)
			return true, nil
		},
		InteractionIsDisconnectedFunc: func(ctx context.Context, id int64) (bool, error) { return false, nil },
		InteractionIsHeldFunc:         func(ctx context.Context, id int64) (bool, error) { return true, nil },
	}
	rooms := &mockRoomGateway{
		GetParticipantsFunc: func(ctx context.Context, roomID string) ([]conversation.Participant, error) {
			return []conversation.Participant{{ParticipantID: "p-1"}}, nil
		},
	}

	svc := newTestService(store, interactions, rooms)
	ctx := context.Background()

	svc.HandleConnectionLost(ctx)
	svc.HandleInteractionChanged(ctx, 101, nil)
	if len(rooms.mutes()) != 0 {
		t.Fatalf("attribute bridge acted while connection was down")
	}

	svc.HandleConnectionRegained(ctx)
	select {
	case <-reconcileStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("reconcile pass did not start after connection regained")
	}

	// Wait for the pass to restore the interaction link before sending the
	// next event, since the record is unresolvable while it is in flight.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if rec := store.snapshot("conv-1"); rec != nil && rec.InteractionID == 101 && rec.Version > 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("reconcile pass did not restore the interaction link")
		}
		time.Sleep(5 * time.Millisecond)
	}

	svc.HandleInteractionChanged(ctx, 101, nil)
	if len(rooms.mutes()) == 0 {
		t.Errorf("attribute bridge still suspended after connection regained")
	}
}
