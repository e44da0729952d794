package service

import (
	"errors"
	"fmt"

	"conversation-webhook/backend/conversation/models"
)

// Stable error codes reported to webhook callers and used as metric labels
const (
	CodeMalformedEvent        = "MALFORMED_EVENT"
	CodeUnknownEventType      = "UNKNOWN_EVENT_TYPE"
	CodeMissingFields         = "MISSING_FIELDS"
	CodeInvalidField          = "INVALID_FIELD"
	CodeConversationNotFound  = "CONVERSATION_NOT_FOUND"
	CodeConversationClosed    = "CONVERSATION_CLOSED"
	CodeDuplicateConversation = "DUPLICATE_CONVERSATION"
	CodeDuplicateMessage      = "DUPLICATE_MESSAGE"
	CodeStoreFailure          = "STORE_FAILURE"
)

// ErrorCode classifies err into one of the failure categories. Anything not
// recognized is a store failure.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, models.ErrUnknownEventType):
		return CodeUnknownEventType
	case errors.Is(err, models.ErrMalformedEvent):
		return CodeMalformedEvent
	case errors.Is(err, models.ErrMissingFields):
		return CodeMissingFields
	case errors.Is(err, models.ErrInvalidField):
		return CodeInvalidField
	case errors.Is(err, models.ErrConversationNotFound):
		return CodeConversationNotFound
	case errors.Is(err, models.ErrConversationClosed):
		return CodeConversationClosed
	case errors.Is(err, models.ErrDuplicateConversation):
		return CodeDuplicateConversation
	case errors.Is(err, models.ErrDuplicateMessage):
		return CodeDuplicateMessage
	default:
		return CodeStoreFailure
	}
}

// IsClientError reports whether err was caused by the event itself rather
// than by the store
func IsClientError(err error) bool {
	return err != nil && ErrorCode(err) != CodeStoreFailure
}

// asStoreFailure marks err as a store failure unless it already is one
func asStoreFailure(err error) error {
	if errors.Is(err, models.ErrStoreFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", models.ErrStoreFailure, err)
}
