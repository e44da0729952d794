package repository

import (
	"context"
	"errors"
	"fmt"

	"conversation-webhook/backend/conversation/models"
	"conversation-webhook/backend/pkg/resilience"
)

// BreakerConversationRepository short-circuits store calls while the store
// keeps failing. Rejections and canceled requests do not count as failures.
type BreakerConversationRepository struct {
	next    ConversationRepository
	breaker *resilience.CircuitBreaker
}

func NewBreakerConversationRepository(next ConversationRepository, breaker *resilience.CircuitBreaker) *BreakerConversationRepository {
	return &BreakerConversationRepository{next: next, breaker: breaker}
}

// StoreFailureClassifier is the IsFailure policy for breakers guarding a repository
func StoreFailureClassifier(err error) bool {
	return !models.IsRejection(err) && !errors.Is(err, context.Canceled)
}

func (r *BreakerConversationRepository) Transaction(ctx context.Context, fn func(tx ConversationTx) error) error {
	return r.guard(func() error {
		return r.next.Transaction(ctx, fn)
	})
}

func (r *BreakerConversationRepository) GetWithMessages(ctx context.Context, id string) (*models.Conversation, error) {
	var conversation *models.Conversation
	err := r.guard(func() error {
		var err error
		conversation, err = r.next.GetWithMessages(ctx, id)
		return err
	})
	return conversation, err
}

// Ping always reaches the store so health checks see its real state
func (r *BreakerConversationRepository) Ping(ctx context.Context) error {
	return r.next.Ping(ctx)
}

func (r *BreakerConversationRepository) guard(fn func() error) error {
	err := r.breaker.Execute(fn)
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return fmt.Errorf("%w: %w", models.ErrStoreFailure, err)
	}
	return err
}
