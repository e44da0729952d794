package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"conversation-webhook/backend/conversation/models"
)

// MemoryConversationRepository keeps conversations in process memory.
// Transactions are serialized under a single mutex and staged until commit.
type MemoryConversationRepository struct {
	mu            sync.Mutex
	conversations map[string]models.Conversation
	messages      map[string]models.Message
	now           func() time.Time

	// Fault, when set, is consulted before every write. A non-nil return is
	// reported as the write's error.
	Fault func(op string) error
}

func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{
		conversations: make(map[string]models.Conversation),
		messages:      make(map[string]models.Message),
		now:           time.Now,
	}
}

func (r *MemoryConversationRepository) Transaction(ctx context.Context, fn func(tx ConversationTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memoryConversationTx{
		repo:          r,
		conversations: make(map[string]models.Conversation),
		messages:      make(map[string]models.Message),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for id, c := range tx.conversations {
		r.conversations[id] = c
	}
	for id, m := range tx.messages {
		r.messages[id] = m
	}
	return nil
}

func (r *MemoryConversationRepository) GetWithMessages(ctx context.Context, id string) (*models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conversations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrConversationNotFound, id)
	}

	c.Messages = nil
	for _, m := range r.messages {
		if m.ConversationID == id {
			c.Messages = append(c.Messages, m)
		}
	}
	sort.Slice(c.Messages, func(i, j int) bool {
		if c.Messages[i].Timestamp.Equal(c.Messages[j].Timestamp) {
			return c.Messages[i].ID < c.Messages[j].ID
		}
		return c.Messages[i].Timestamp.Before(c.Messages[j].Timestamp)
	})
	return &c, nil
}

func (r *MemoryConversationRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// MessageCount returns the number of committed messages
func (r *MemoryConversationRepository) MessageCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

type memoryConversationTx struct {
	repo          *MemoryConversationRepository
	conversations map[string]models.Conversation
	messages      map[string]models.Message
}

func (t *memoryConversationTx) conversation(id string) (models.Conversation, bool) {
	if c, ok := t.conversations[id]; ok {
		return c, true
	}
	c, ok := t.repo.conversations[id]
	return c, ok
}

func (t *memoryConversationTx) fault(op string) error {
	if t.repo.Fault == nil {
		return nil
	}
	return t.repo.Fault(op)
}

func (t *memoryConversationTx) GetForUpdate(id string) (*models.Conversation, error) {
	c, ok := t.conversation(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrConversationNotFound, id)
	}
	return &c, nil
}

func (t *memoryConversationTx) CreateConversation(conversation *models.Conversation) error {
	if err := t.fault("create_conversation"); err != nil {
		return err
	}
	if _, exists := t.conversation(conversation.ID); exists {
		return fmt.Errorf("%w: %s", models.ErrDuplicateConversation, conversation.ID)
	}

	now := t.repo.now()
	conversation.CreatedAt = now
	conversation.UpdatedAt = now
	stored := *conversation
	stored.Messages = nil
	t.conversations[conversation.ID] = stored
	return nil
}

func (t *memoryConversationTx) CloseConversation(id string) error {
	if err := t.fault("close_conversation"); err != nil {
		return err
	}
	c, ok := t.conversation(id)
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrConversationNotFound, id)
	}
	c.Status = models.StatusClosed
	c.UpdatedAt = t.repo.now()
	t.conversations[id] = c
	return nil
}

func (t *memoryConversationTx) CreateMessage(message *models.Message) error {
	if err := t.fault("create_message"); err != nil {
		return err
	}
	if _, ok := t.conversation(message.ConversationID); !ok {
		return fmt.Errorf("%w: %s", models.ErrConversationNotFound, message.ConversationID)
	}
	_, staged := t.messages[message.ID]
	_, committed := t.repo.messages[message.ID]
	if staged || committed {
		return fmt.Errorf("%w: %s", models.ErrDuplicateMessage, message.ID)
	}

	message.CreatedAt = t.repo.now()
	t.messages[message.ID] = *message
	return nil
}
