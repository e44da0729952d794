package models

import (
	"time"
)

// MessageDirection tells whether a message was sent to or received from the customer
type MessageDirection string

const (
	DirectionSent     MessageDirection = "SENT"
	DirectionReceived MessageDirection = "RECEIVED"
)

// Valid reports whether d is one of the known directions
func (d MessageDirection) Valid() bool {
	return d == DirectionSent || d == DirectionReceived
}

// Message is a single immutable communication item within a conversation
type Message struct {
	ID             string           `json:"id" gorm:"primaryKey;type:uuid"`
	ConversationID string           `json:"conversation_id" gorm:"type:uuid;index;not null"`
	Content        string           `json:"content" gorm:"type:text;not null"`
	Direction      MessageDirection `json:"direction" gorm:"type:varchar(8);not null"`
	Timestamp      time.Time        `json:"timestamp" gorm:"not null"`
	CreatedAt      time.Time        `json:"created_at"`
}
