package repository

import (
	"context"

	"conversation-webhook/backend/conversation/models"
)

// ConversationRepository is the entity store for conversations and their
// messages. Reads observe every previously committed write.
type ConversationRepository interface {
	// Transaction runs fn as one unit of work. If fn returns an error nothing
	// it wrote is committed.
	Transaction(ctx context.Context, fn func(tx ConversationTx) error) error
	// GetWithMessages returns a conversation and all of its messages ordered
	// by message timestamp.
	GetWithMessages(ctx context.Context, id string) (*models.Conversation, error)
	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}

// ConversationTx is the view of the store inside a transaction
type ConversationTx interface {
	// GetForUpdate loads a conversation and locks it until the transaction
	// ends. Returns models.ErrConversationNotFound when absent.
	GetForUpdate(id string) (*models.Conversation, error)
	// CreateConversation returns models.ErrDuplicateConversation when the id is taken.
	CreateConversation(conversation *models.Conversation) error
	// CloseConversation sets the status to CLOSED.
	CloseConversation(id string) error
	// CreateMessage returns models.ErrDuplicateMessage when the id is taken
	// and models.ErrConversationNotFound when the owner does not exist.
	CreateMessage(message *models.Message) error
}
