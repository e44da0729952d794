package api

import (
	"conversation-webhook/backend/conversation/service"
	apperrors "conversation-webhook/backend/pkg/errors"
)

// toAppError maps a processing or read failure to its HTTP representation
func toAppError(err error) *apperrors.AppError {
	code := service.ErrorCode(err)

	var appErr *apperrors.AppError
	switch code {
	case service.CodeMalformedEvent:
		appErr = apperrors.NewBadRequestError(code, "Missing data from webhook")
	case service.CodeUnknownEventType:
		appErr = apperrors.NewBadRequestError(code, "Invalid event type")
	case service.CodeMissingFields:
		appErr = apperrors.NewBadRequestError(code, "Missing required fields")
	case service.CodeInvalidField:
		appErr = apperrors.NewBadRequestError(code, "Invalid field value")
	case service.CodeConversationClosed:
		appErr = apperrors.NewBadRequestError(code, "Conversation is not open")
	case service.CodeConversationNotFound:
		appErr = apperrors.NewNotFoundError(code, "Conversation not found")
	case service.CodeDuplicateConversation:
		appErr = apperrors.NewConflictError(code, "Conversation already exists")
	case service.CodeDuplicateMessage:
		appErr = apperrors.NewConflictError(code, "Message already exists")
	default:
		appErr = apperrors.NewInternalServerError(code, "An error occurred")
	}

	if code != service.CodeStoreFailure {
		appErr.WithDetails(err.Error())
	}
	return appErr.WithCause(err)
}
