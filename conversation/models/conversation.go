package models

import (
	"time"
)

// ConversationStatus is the lifecycle state of a conversation
type ConversationStatus string

const (
	StatusOpen   ConversationStatus = "OPEN"
	StatusClosed ConversationStatus = "CLOSED"
)

// Conversation is a customer-interaction thread. It owns its messages.
type Conversation struct {
	ID        string             `json:"id" gorm:"primaryKey;type:uuid"`
	Status    ConversationStatus `json:"status" gorm:"type:varchar(6);not null;default:OPEN"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	Messages  []Message          `json:"messages,omitempty" gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

// IsOpen reports whether the conversation still accepts messages
func (c *Conversation) IsOpen() bool {
	return c.Status == StatusOpen
}
