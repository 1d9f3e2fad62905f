package conversation

import (
	"context"
	"errors"
)

var (
	// ErrConversationNotFound is returned when no record matches a lookup.
	ErrConversationNotFound = errors.New("conversation not found")
)

// Store is the durable registry of conversation records. Implementations
// serialize writes per record and never let corruption of a single record
// block processing of the others.
type Store interface {
	// Save upserts a record, bumping its version.
	Save(ctx context.Context, conv *Conversation) error

	// Remove deletes a record and its backing file. Removing an absent
	// record is a no-op.
	Remove(ctx context.Context, conversationID string) error

	// Get retrieves a record by conversation ID.
	Get(ctx context.Context, conversationID string) (*Conversation, error)

	// GetByInteraction retrieves the record linked to an interaction.
	GetByInteraction(ctx context.Context, interactionID int64) (*Conversation, error)

	// List returns all records.
	List(ctx context.Context) ([]*Conversation, error)

	// LoadAll reads every persisted record at process start and returns
	// the number loaded.
	LoadAll(ctx context.Context) (int, error)
}
