package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"conversation-webhook/backend/conversation/models"
	"conversation-webhook/backend/conversation/service"
	"conversation-webhook/backend/conversation/statemachine"
	apperrors "conversation-webhook/backend/pkg/errors"

	"github.com/gin-gonic/gin"
)

// MessageResponse is one message in a conversation detail response
type MessageResponse struct {
	ID        string                  `json:"id"`
	Content   string                  `json:"content"`
	Direction models.MessageDirection `json:"direction"`
	Timestamp time.Time               `json:"timestamp"`
}

// ConversationResponse is the body of the conversation detail endpoint
type ConversationResponse struct {
	ID       string                    `json:"id"`
	Status   models.ConversationStatus `json:"status"`
	Messages []MessageResponse         `json:"messages"`
}

type ConversationHandler struct {
	processor      *service.EventProcessor
	conversations  *service.ConversationService
	requestTimeout time.Duration
}

// NewConversationHandler creates the webhook and detail handlers. A positive
// requestTimeout bounds the store work done for each call.
func NewConversationHandler(processor *service.EventProcessor, conversations *service.ConversationService, requestTimeout time.Duration) *ConversationHandler {
	return &ConversationHandler{
		processor:      processor,
		conversations:  conversations,
		requestTimeout: requestTimeout,
	}
}

// Webhook ingests one conversation lifecycle event
func (h *ConversationHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			_ = c.Error(apperrors.NewPayloadTooLargeError("PAYLOAD_TOO_LARGE", "Payload too large"))
			return
		}
		_ = c.Error(apperrors.NewBadRequestError(service.CodeMalformedEvent, "Invalid JSON payload").WithCause(err))
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.processor.Process(ctx, payload)
	if err != nil {
		_ = c.Error(toAppError(err))
		return
	}

	switch result.Outcome {
	case statemachine.OutcomeCreated:
		c.JSON(http.StatusCreated, gin.H{"message": "New conversation created"})
	case statemachine.OutcomeMessageAccepted:
		c.JSON(http.StatusCreated, gin.H{"status": "Message created successfully"})
	case statemachine.OutcomeClosed:
		c.JSON(http.StatusOK, gin.H{"status": "Conversation closed successfully"})
	default:
		_ = c.Error(apperrors.NewInternalServerError(service.CodeStoreFailure, "An error occurred"))
	}
}

// GetConversation returns a conversation with its messages
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	conversation, err := h.conversations.GetConversation(ctx, c.Param("id"))
	if err != nil {
		_ = c.Error(toAppError(err))
		return
	}

	c.JSON(http.StatusOK, NewConversationResponse(conversation))
}

// requestContext bounds the store work of one request by requestTimeout
func (h *ConversationHandler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.requestTimeout > 0 {
		return context.WithTimeout(c.Request.Context(), h.requestTimeout)
	}
	return context.WithCancel(c.Request.Context())
}

// NewConversationResponse shapes a stored conversation for the detail endpoint
func NewConversationResponse(conversation *models.Conversation) ConversationResponse {
	messages := make([]MessageResponse, 0, len(conversation.Messages))
	for _, m := range conversation.Messages {
		messages = append(messages, MessageResponse{
			ID:        m.ID,
			Content:   m.Content,
			Direction: m.Direction,
			Timestamp: m.Timestamp,
		})
	}

	return ConversationResponse{
		ID:       conversation.ID,
		Status:   conversation.Status,
		Messages: messages,
	}
}
