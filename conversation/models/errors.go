package models

import "errors"

// Failure categories for event processing and conversation reads.
// Callers wrap these with context and match them with errors.Is.
var (
	ErrMalformedEvent        = errors.New("malformed event")
	ErrUnknownEventType      = errors.New("unknown event type")
	ErrMissingFields         = errors.New("missing required fields")
	ErrInvalidField          = errors.New("invalid field value")
	ErrConversationNotFound  = errors.New("conversation not found")
	ErrConversationClosed    = errors.New("conversation is not open")
	ErrDuplicateConversation = errors.New("conversation already exists")
	ErrDuplicateMessage      = errors.New("message already exists")
	ErrStoreFailure          = errors.New("store failure")
)

// IsRejection reports whether err rejects the event or request itself, as
// opposed to a fault in the store
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrMalformedEvent,
		ErrUnknownEventType,
		ErrMissingFields,
		ErrInvalidField,
		ErrConversationNotFound,
		ErrConversationClosed,
		ErrDuplicateConversation,
		ErrDuplicateMessage,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
