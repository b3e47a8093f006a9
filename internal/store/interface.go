package store

import (
	"context"

	"github.com/Saymum-GS/Awaken-DIU/internal/domain"
)

// SessionStore is the durable record of chat sessions. The engine treats it
// as an external collaborator: in-memory state is only committed after the
// store write succeeds.
type SessionStore interface {
	// Create persists a new session record.
	Create(ctx context.Context, session *domain.ChatSession) error

	// Get loads a session by id.
	Get(ctx context.Context, id string) (*domain.ChatSession, error)

	// Update persists the full current state of a session.
	Update(ctx context.Context, session *domain.ChatSession) error

	// AppendMessage appends one transcript entry to a session.
	AppendMessage(ctx context.Context, sessionID string, msg domain.Message) error

	// Close releases the underlying connection.
	Close() error
}
