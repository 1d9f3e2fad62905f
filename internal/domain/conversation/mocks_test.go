package conversation_test

import (
	"context"
	"sync"

	"vidbridge/conversation-api/internal/domain/conversation"
)

// memoryStore is an in-memory Store for tests. It mirrors the production
// store's copy-out semantics.
type memoryStore struct {
	mu      sync.Mutex
	records map[string]*conversation.Conversation

	saveErr   error
	saveCalls int
}

func newMemoryStore(records ...*conversation.Conversation) *memoryStore {
	s := &memoryStore{records: make(map[string]*conversation.Conversation)}
	for _, rec := range records {
		s.records[rec.ConversationID] = rec.Clone()
	}
	return s
}

func (s *memoryStore) Save(ctx context.Context, conv *conversation.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCalls++
	if s.saveErr != nil {
		return s.saveErr
	}
	conv.Version++
	s.records[conv.ConversationID] = conv.Clone()
	return nil
}

func (s *memoryStore) Remove(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, conversationID)
	return nil
}

func (s *memoryStore) Get(ctx context.Context, conversationID string) (*conversation.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.records[conversationID]
	if !ok {
		return nil, conversation.ErrConversationNotFound
	}
	return conv.Clone(), nil
}

func (s *memoryStore) GetByInteraction(ctx context.Context, interactionID int64) (*conversation.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if interactionID == 0 {
		return nil, conversation.ErrConversationNotFound
	}
	for _, conv := range s.records {
		if conv.InteractionID == interactionID {
			return conv.Clone(), nil
		}
	}
	return nil, conversation.ErrConversationNotFound
}

func (s *memoryStore) List(ctx context.Context) ([]*conversation.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*conversation.Conversation, 0, len(s.records))
	for _, conv := range s.records {
		result = append(result, conv.Clone())
	}
	return result, nil
}

func (s *memoryStore) LoadAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records), nil
}

func (s *memoryStore) has(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[conversationID]
	return ok
}

func (s *memoryStore) snapshot(conversationID string) *conversation.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.records[conversationID]
	if !ok {
		return nil
	}
	return conv.Clone()
}

// mockInteractionGateway implements conversation.InteractionGateway with
// overridable behavior per test.
type mockInteractionGateway struct {
	InteractionExistsFunc         func(ctx context.Context, interactionID int64) (bool, error)
	InteractionIsDisconnectedFunc func(ctx context.Context, interactionID int64) (bool, error)
	InteractionIsHeldFunc         func(ctx context.Context, interactionID int64) (bool, error)
	GetUserQueueNameFunc          func(ctx context.Context, interactionID int64) (string, error)
	GetInteractionTypeFunc        func(ctx context.Context, interactionID int64) (conversation.MediaType, error)
	GetParametersFunc             func(ctx context.Context, interactionID int64) (conversation.InitializationParameters, error)
	GetAttributesFunc             func(ctx context.Context, interactionID int64, names []string) (map[string]string, error)
	SetAttributesFunc             func(ctx context.Context, interactionID int64, attrs map[string]string) error
	CreateInteractionFunc         func(ctx context.Context, params conversation.InitializationParameters) (int64, error)
	SendChatTextFunc              func(ctx context.Context, interactionID int64, text string) error
	SendChatURLFunc               func(ctx context.Context, interactionID int64, rawURL string) error
}

func (m *mockInteractionGateway) InteractionExists(ctx context.Context, interactionID int64) (bool, error) {
	if m.InteractionExistsFunc != nil {
		return m.InteractionExistsFunc(ctx, interactionID)
	}
	return false, nil
}

func (m *mockInteractionGateway) InteractionIsDisconnected(ctx context.Context, interactionID int64) (bool, error) {
	if m.InteractionIsDisconnectedFunc != nil {
		return m.InteractionIsDisconnectedFunc(ctx, interactionID)
	}
	return false, nil
}

func (m *mockInteractionGateway) InteractionIsHeld(ctx context.Context, interactionID int64) (bool, error) {
	if m.InteractionIsHeldFunc != nil {
		return m.InteractionIsHeldFunc(ctx, interactionID)
	}
	return false, nil
}

func (m *mockInteractionGateway) GetUserQueueName(ctx context.Context, interactionID int64) (string, error) {
	if m.GetUserQueueNameFunc != nil {
		return m.GetUserQueueNameFunc(ctx, interactionID)
	}
	return "", nil
}

func (m *mockInteractionGateway) GetInteractionType(ctx context.Context, interactionID int64) (conversation.MediaType, error) {
	if m.GetInteractionTypeFunc != nil {
		return m.GetInteractionTypeFunc(ctx, interactionID)
	}
	return conversation.MediaTypeGeneric, nil
}

func (m *mockInteractionGateway) GetParameters(ctx context.Context, interactionID int64) (conversation.InitializationParameters, error) {
	if m.GetParametersFunc != nil {
		return m.GetParametersFunc(ctx, interactionID)
	}
	return &conversation.GenericInteractionParameters{}, nil
}

func (m *mockInteractionGateway) GetAttributes(ctx context.Context, interactionID int64, names []string) (map[string]string, error) {
	if m.GetAttributesFunc != nil {
		return m.GetAttributesFunc(ctx, interactionID, names)
	}
	return map[string]string{}, nil
}

func (m *mockInteractionGateway) SetAttributes(ctx context.Context, interactionID int64, attrs map[string]string) error {
	if m.SetAttributesFunc != nil {
		return m.SetAttributesFunc(ctx, interactionID, attrs)
	}
	return nil
}

func (m *mockInteractionGateway) CreateInteraction(ctx context.Context, params conversation.InitializationParameters) (int64, error) {
	if m.CreateInteractionFunc != nil {
		return m.CreateInteractionFunc(ctx, params)
	}
	return 0, nil
}

func (m *mockInteractionGateway) SendChatText(ctx context.Context, interactionID int64, text string) error {
	if m.SendChatTextFunc != nil {
		return m.SendChatTextFunc(ctx, interactionID, text)
	}
	return nil
}

func (m *mockInteractionGateway) SendChatURL(ctx context.Context, interactionID int64, rawURL string) error {
	if m.SendChatURLFunc != nil {
		return m.SendChatURLFunc(ctx, interactionID, rawURL)
	}
	return nil
}

// mockRoomGateway implements conversation.RoomGateway with overridable
// behavior and call recording.
type mockRoomGateway struct {
	mu sync.Mutex

	CreateRoomFunc          func(ctx context.Context) (*conversation.Room, error)
	DeleteRoomFunc          func(ctx context.Context, roomID string) error
	GetParticipantsFunc     func(ctx context.Context, roomID string) ([]conversation.Participant, error)
	GetParticipantCountFunc func(ctx context.Context, roomID string) (int, error)
	MuteParticipantFunc     func(ctx context.Context, roomID, participantID string, muted bool) error
	KickParticipantFunc     func(ctx context.Context, roomID, participantID string) error

	createdRooms []string
	deletedRooms []string
	muteCalls    []muteCall
}

type muteCall struct {
	roomID        string
	participantID string
	muted         bool
}

func (m *mockRoomGateway) CreateRoom(ctx context.Context) (*conversation.Room, error) {
	if m.CreateRoomFunc != nil {
		room, err := m.CreateRoomFunc(ctx)
		if room != nil {
			m.mu.Lock()
			m.createdRooms = append(m.createdRooms, room.RoomID)
			m.mu.Unlock()
		}
		return room, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	room := &conversation.Room{RoomID: "room-new", RoomURL: "https://video.example.com/join?room=room-new"}
	m.createdRooms = append(m.createdRooms, room.RoomID)
	return room, nil
}

func (m *mockRoomGateway) DeleteRoom(ctx context.Context, roomID string) error {
	m.mu.Lock()
	m.deletedRooms = append(m.deletedRooms, roomID)
	m.mu.Unlock()
	if m.DeleteRoomFunc != nil {
		return m.DeleteRoomFunc(ctx, roomID)
	}
	return nil
}

func (m *mockRoomGateway) GetParticipants(ctx context.Context, roomID string) ([]conversation.Participant, error) {
	if m.GetParticipantsFunc != nil {
		return m.GetParticipantsFunc(ctx, roomID)
	}
	return nil, nil
}

func (m *mockRoomGateway) GetParticipantCount(ctx context.Context, roomID string) (int, error) {
	if m.GetParticipantCountFunc != nil {
		return m.GetParticipantCountFunc(ctx, roomID)
	}
	return 0, nil
}

func (m *mockRoomGateway) MuteParticipant(ctx context.Context, roomID, participantID string, muted bool) error {
	m.mu.Lock()
	m.muteCalls = append(m.muteCalls, muteCall{roomID: roomID, participantID: participantID, muted: muted})
	m.mu.Unlock()
	if m.MuteParticipantFunc != nil {
		return m.MuteParticipantFunc(ctx, roomID, participantID, muted)
	}
	return nil
}

func (m *mockRoomGateway) KickParticipant(ctx context.Context, roomID, participantID string) error {
	if m.KickParticipantFunc != nil {
		return m.KickParticipantFunc(ctx, roomID, participantID)
	}
	return nil
}

func (m *mockRoomGateway) deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deletedRooms...)
}

func (m *mockRoomGateway) created() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.createdRooms...)
}

func (m *mockRoomGateway) mutes() []muteCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]muteCall(nil), m.muteCalls...)
}
