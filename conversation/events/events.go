// Package events defines the closed set of webhook events and decodes raw
// payloads into them.
package events

import (
	"time"

	"conversation-webhook/backend/conversation/models"
)

// Type is the wire name of an event
type Type string

const (
	TypeNewConversation   Type = "NEW_CONVERSATION"
	TypeNewMessage        Type = "NEW_MESSAGE"
	TypeCloseConversation Type = "CLOSE_CONVERSATION"
)

// Known reports whether t names one of the supported events
func (t Type) Known() bool {
	switch t {
	case TypeNewConversation, TypeNewMessage, TypeCloseConversation:
		return true
	}
	return false
}

// Event is one of NewConversation, NewMessage or CloseConversation.
// The set is closed: only this package can add variants.
type Event interface {
	Type() Type
	OccurredAt() time.Time
	event()
}

// NewConversation opens a conversation with a caller-supplied id
type NewConversation struct {
	Timestamp time.Time
	ID        string
}

// NewMessage records a message sent or received in an open conversation
type NewMessage struct {
	Timestamp      time.Time
	ID             string
	ConversationID string
	Content        string
	Direction      models.MessageDirection
}

// CloseConversation marks a conversation as closed
type CloseConversation struct {
	Timestamp time.Time
	ID        string
}

func (NewConversation) Type() Type   { return TypeNewConversation }
func (NewMessage) Type() Type        { return TypeNewMessage }
func (CloseConversation) Type() Type { return TypeCloseConversation }

func (e NewConversation) OccurredAt() time.Time   { return e.Timestamp }
func (e NewMessage) OccurredAt() time.Time        { return e.Timestamp }
func (e CloseConversation) OccurredAt() time.Time { return e.Timestamp }

func (NewConversation) event()   {}
func (NewMessage) event()        {}
func (CloseConversation) event() {}
