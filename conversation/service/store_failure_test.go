package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"conversation-webhook/backend/conversation/models"
	"conversation-webhook/backend/conversation/repository"
	"conversation-webhook/backend/pkg/logger"
	"conversation-webhook/backend/pkg/resilience"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTrippedRepository(t *testing.T) repository.ConversationRepository {
	t.Helper()
	memory := repository.NewMemoryConversationRepository()
	memory.Fault = func(string) error { return errors.New("disk full") }

	cfg := resilience.DefaultCircuitBreakerConfig("conversation-store")
	cfg.FailureThreshold = 1
	cfg.RetryTimeout = time.Hour
	cfg.IsFailure = repository.StoreFailureClassifier
	repo := repository.NewBreakerConversationRepository(memory, resilience.NewCircuitBreaker(cfg, logger.Discard()))

	p, err := NewEventProcessor(repo, logger.Discard())
	require.NoError(t, err)
	_, err = p.Process(context.Background(), newConversationPayload(uuid.NewString()))
	require.ErrorIs(t, err, models.ErrStoreFailure)
	return repo
}

func TestProcess_OpenBreakerIsSingleStoreFailure(t *testing.T) {
	repo := newTrippedRepository(t)
	p, err := NewEventProcessor(repo, logger.Discard())
	require.NoError(t, err)

	_, err = p.Process(context.Background(), newConversationPayload(uuid.NewString()))
	require.ErrorIs(t, err, models.ErrStoreFailure)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, 1, strings.Count(err.Error(), models.ErrStoreFailure.Error()), err.Error())
	assert.Equal(t, CodeStoreFailure, ErrorCode(err))
}

func TestGetConversation_OpenBreakerIsSingleStoreFailure(t *testing.T) {
	svc := NewConversationService(newTrippedRepository(t))

	_, err := svc.GetConversation(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, models.ErrStoreFailure)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, "store failure: circuit open", err.Error())
}

func TestAsStoreFailure(t *testing.T) {
	plain := errors.New("connection reset")
	wrapped := asStoreFailure(plain)
	assert.ErrorIs(t, wrapped, models.ErrStoreFailure)
	assert.ErrorIs(t, wrapped, plain)
	assert.Equal(t, wrapped, asStoreFailure(wrapped))
}
