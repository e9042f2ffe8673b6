package conversation

import (
	"context"
	"time"
)

// Repository exposes CRUD operations for conversation metadata.
type Repository interface {
	Create(ctx context.Context, conversation *Conversation) error
	FindByPublicID(ctx context.Context, publicID string) (*Conversation, error)
	// List returns conversations, most recently active first. A Filter.UserID
	// pointing at "" selects anonymous conversations.
	List(ctx context.Context, filter Filter, pagination Pagination) ([]*Conversation, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	Update(ctx context.Context, conversation *Conversation) error
	// Delete removes the conversation together with its messages, summaries
	// and workflow state.
	Delete(ctx context.Context, id uint) error
	// ActiveSince returns conversations with a message after since.
	ActiveSince(ctx context.Context, since time.Time, limit int) ([]*Conversation, error)
}

// MessageRepository persists the immutable turns of a conversation.
type MessageRepository interface {
	// Append stores messages in order, assigning IDs and sequence numbers, and
	// bumps the owning conversation's message_count and last_message_at in the
	// same transaction. conversation is updated in place.
	Append(ctx context.Context, conversation *Conversation, messages []*Message) error
	// Recent returns the newest limit messages in chronological order.
	Recent(ctx context.Context, conversationID uint, limit int) ([]*Message, error)
	// List returns a page of messages in chronological order.
	List(ctx context.Context, conversationID uint, pagination Pagination) ([]*Message, error)
	// ListAfter returns every message with ID greater than afterID, oldest first.
	ListAfter(ctx context.Context, conversationID uint, afterID uint) ([]*Message, error)
	Count(ctx context.Context, conversationID uint) (int64, error)
}

// SummaryRepository persists rolling conversation summaries.
type SummaryRepository interface {
	Create(ctx context.Context, summary *Summary) error
	// Recent returns up to limit summaries, newest first.
	Recent(ctx context.Context, conversationID uint, limit int) ([]*Summary, error)
	// Latest returns the newest summary or nil when none exists.
	Latest(ctx context.Context, conversationID uint) (*Summary, error)
}

// Locker serializes work on one conversation across requests.
type Locker interface {
	// Lock blocks until the key is held or ctx ends. The returned func releases it.
	Lock(ctx context.Context, key string) (func(), error)
}
