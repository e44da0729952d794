package service

import (
	"context"
	"fmt"

	"conversation-webhook/backend/conversation/models"
	"conversation-webhook/backend/conversation/repository"

	"github.com/google/uuid"
)

// ConversationService serves the read side of conversations
type ConversationService struct {
	repo repository.ConversationRepository
}

func NewConversationService(repo repository.ConversationRepository) *ConversationService {
	return &ConversationService{repo: repo}
}

// GetConversation returns a conversation and its messages. Ids that are not
// UUIDs cannot exist and are reported as not found.
func (s *ConversationService) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrConversationNotFound, id)
	}

	conversation, err := s.repo.GetWithMessages(ctx, parsed.String())
	if err != nil {
		if IsClientError(err) {
			return nil, err
		}
		return nil, asStoreFailure(err)
	}
	return conversation, nil
}
