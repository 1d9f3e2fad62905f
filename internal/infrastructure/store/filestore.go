// Package store provides the file-backed conversation registry.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"vidbridge/conversation-api/internal/domain/conversation"
	"vidbridge/conversation-api/internal/utils/platformerrors"
)

// recordExtension is the suffix of per-conversation record files.
const recordExtension = ".conversation"

// FileStore keeps conversation records in memory and mirrors each one into
// its own JSON file, so a crash mid-write only risks that one record.
//
// A coarse RWMutex guards the collection; a per-record mutex serializes
// writes to the same conversation. Neither lock is held across remote calls.
type FileStore struct {
	dir string
	log zerolog.Logger

	mu      sync.RWMutex
	records map[string]*conversation.Conversation
	locks   map[string]*sync.Mutex
}

// NewFileStore creates the storage directory if needed and returns an empty
// store. Call LoadAll to read persisted records.
func NewFileStore(dir string, log zerolog.Logger) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("conversation storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create conversation storage directory: %w", err)
	}

	return &FileStore{
		dir:     dir,
		log:     log.With().Str("component", "conversation-store").Logger(),
		records: make(map[string]*conversation.Conversation),
		locks:   make(map[string]*sync.Mutex),
	}, nil
}

// Save upserts a record. Writes to the same conversation are serialized by a
// record-scoped lock; different conversations save concurrently. The
// caller's record gets the bumped version on success.
func (s *FileStore) Save(ctx context.Context, conv *conversation.Conversation) error {
	if conv == nil || conv.ConversationID == "" {
		return platformerrors.New(ctx, platformerrors.LayerStore,
			platformerrors.ErrorTypeValidation, "record has no conversation id", nil)
	}

	lock := s.recordLock(conv.ConversationID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	existing := s.records[conv.ConversationID]
	s.mu.RUnlock()

	version := conv.Version
	if existing != nil && existing.Version > version {
		version = existing.Version
	}

	stored := conv.Clone()
	stored.Version = version + 1

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return platformerrors.NewWithContext(ctx, platformerrors.LayerStore,
			platformerrors.ErrorTypePersistence, "encode conversation record", err,
			map[string]any{"conversation_id": conv.ConversationID})
	}

	path := s.recordPath(conv.ConversationID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("write conversation record")
		return platformerrors.NewWithContext(ctx, platformerrors.LayerStore,
			platformerrors.ErrorTypePersistence, "write conversation record", err,
			map[string]any{"conversation_id": conv.ConversationID})
	}

	s.mu.Lock()
	s.records[conv.ConversationID] = stored
	s.mu.Unlock()

	conv.Version = stored.Version

	s.log.Debug().
		Str("conversation_id", conv.ConversationID).
		Int64("version", stored.Version).
		Msg("conversation saved")

	return nil
}

// Remove deletes a record from the set and its backing file. Removing an
// absent record is a no-op; a file delete failure is logged but does not
// block the in-memory removal.
func (s *FileStore) Remove(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return nil
	}

	lock := s.recordLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	_, existed := s.records[conversationID]
	delete(s.records, conversationID)
	s.mu.Unlock()

	if err := os.Remove(s.recordPath(conversationID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Error().Err(err).Str("conversation_id", conversationID).Msg("delete conversation record file")
	}

	if existed {
		s.log.Info().Str("conversation_id", conversationID).Msg("conversation removed")
	}

	return nil
}

// Get retrieves a record by conversation ID.
func (s *FileStore) Get(ctx context.Context, conversationID string) (*conversation.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.records[conversationID]
	if !ok {
		return nil, conversation.ErrConversationNotFound
	}
	return conv.Clone(), nil
}

// GetByInteraction retrieves the record linked to an interaction. Records
// whose interaction id has been cleared (zero) never match.
func (s *FileStore) GetByInteraction(ctx context.Context, interactionID int64) (*conversation.Conversation, error) {
	if interactionID == 0 {
		return nil, conversation.ErrConversationNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, conv := range s.records {
		if conv.InteractionID == interactionID {
			return conv.Clone(), nil
		}
	}
	return nil, conversation.ErrConversationNotFound
}

// List returns all records.
func (s *FileStore) List(ctx context.Context) ([]*conversation.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*conversation.Conversation, 0, len(s.records))
	for _, conv := range s.records {
		result = append(result, conv.Clone())
	}
	return result, nil
}

// LoadAll replaces the in-memory set with the persisted records. A record
// that fails to decode is logged and skipped; the rest still load. Duplicate
// conversation ids are resolved by the highest version with a warning.
func (s *FileStore) LoadAll(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, platformerrors.New(ctx, platformerrors.LayerStore,
			platformerrors.ErrorTypePersistence, "read conversation storage directory", err)
	}

	loaded := make(map[string]*conversation.Conversation)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordExtension) {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		conv, err := s.loadRecord(path)
		if err != nil {
			s.log.Error().Err(err).Str("path", path).Msg("skipping unreadable conversation record")
			continue
		}

		if existing, ok := loaded[conv.ConversationID]; ok {
			s.log.Warn().
				Str("conversation_id", conv.ConversationID).
				Int64("kept_version", maxInt64(existing.Version, conv.Version)).
				Msg("duplicate persisted conversation record")
			if existing.Version > conv.Version {
				continue
			}
		}
		loaded[conv.ConversationID] = conv
	}

	s.mu.Lock()
	s.records = loaded
	s.mu.Unlock()

	s.log.Info().Int("count", len(loaded)).Msg("conversations loaded")
	return len(loaded), nil
}

func (s *FileStore) loadRecord(path string) (*conversation.Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	conv := &conversation.Conversation{}
	if err := json.Unmarshal(data, conv); err != nil {
		return nil, err
	}
	if conv.ConversationID == "" {
		return nil, fmt.Errorf("record has no conversation id")
	}
	return conv, nil
}

func (s *FileStore) recordPath(conversationID string) string {
	return filepath.Join(s.dir, conversationID+recordExtension)
}

func (s *FileStore) recordLock(conversationID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[conversationID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[conversationID] = lock
	}
	return lock
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// Ensure interface compliance.
var _ conversation.Store = (*FileStore)(nil)
