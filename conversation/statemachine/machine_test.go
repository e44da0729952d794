package statemachine

import (
	"testing"
	"time"

	"conversation-webhook/backend/conversation/events"
	"conversation-webhook/backend/conversation/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	conversationID = "2b1e6a59-6c1a-4a53-9c63-0c1a3e1f4d10"
	messageID      = "9a3f0b8e-54d2-4f4a-8f0e-6b7f6b2d5c21"
)

var eventTime = time.Date(2025, 2, 21, 10, 20, 42, 0, time.UTC)

func openConversation() *models.Conversation {
	return &models.Conversation{ID: conversationID, Status: models.StatusOpen}
}

func closedConversation() *models.Conversation {
	return &models.Conversation{ID: conversationID, Status: models.StatusClosed}
}

func newMessage() events.NewMessage {
	return events.NewMessage{
		Timestamp:      eventTime,
		ID:             messageID,
		ConversationID: conversationID,
		Content:        "hi",
		Direction:      models.DirectionReceived,
	}
}

func TestStateOf(t *testing.T) {
	assert.Equal(t, StateNonExistent, StateOf(nil))
	assert.Equal(t, StateOpen, StateOf(openConversation()))
	assert.Equal(t, StateClosed, StateOf(closedConversation()))
	assert.Equal(t, StateClosed, StateOf(&models.Conversation{ID: conversationID, Status: "ARCHIVED"}))
}

func TestDecide_NewConversation(t *testing.T) {
	d, err := Decide(nil, events.NewConversation{Timestamp: eventTime, ID: conversationID})
	require.NoError(t, err)

	assert.Equal(t, ActionCreateConversation, d.Action)
	assert.Equal(t, OutcomeCreated, d.Outcome)
	require.NotNil(t, d.Conversation)
	assert.Equal(t, conversationID, d.Conversation.ID)
	assert.Equal(t, models.StatusOpen, d.Conversation.Status)
}

func TestDecide_NewConversationCanonicalizesID(t *testing.T) {
	d, err := Decide(nil, events.NewConversation{Timestamp: eventTime, ID: "2B1E6A59-6C1A-4A53-9C63-0C1A3E1F4D10"})
	require.NoError(t, err)
	assert.Equal(t, conversationID, d.Conversation.ID)
}

func TestDecide_NewConversationDuplicate(t *testing.T) {
	for _, current := range []*models.Conversation{openConversation(), closedConversation()} {
		_, err := Decide(current, events.NewConversation{Timestamp: eventTime, ID: conversationID})
		assert.ErrorIs(t, err, models.ErrDuplicateConversation)
	}
}

func TestDecide_NewMessageAccepted(t *testing.T) {
	d, err := Decide(openConversation(), newMessage())
	require.NoError(t, err)

	assert.Equal(t, ActionCreateMessage, d.Action)
	assert.Equal(t, OutcomeMessageAccepted, d.Outcome)
	require.NotNil(t, d.Message)
	assert.Equal(t, messageID, d.Message.ID)
	assert.Equal(t, conversationID, d.Message.ConversationID)
	assert.Equal(t, "hi", d.Message.Content)
	assert.Equal(t, models.DirectionReceived, d.Message.Direction)
	assert.Equal(t, eventTime, d.Message.Timestamp)
}

func TestDecide_NewMessageRejected(t *testing.T) {
	_, err := Decide(nil, newMessage())
	assert.ErrorIs(t, err, models.ErrConversationNotFound)

	_, err = Decide(closedConversation(), newMessage())
	assert.ErrorIs(t, err, models.ErrConversationClosed)
}

func TestDecide_NewMessageMissingFields(t *testing.T) {
	tests := map[string]func(*events.NewMessage){
		"id":              func(m *events.NewMessage) { m.ID = "" },
		"conversation_id": func(m *events.NewMessage) { m.ConversationID = "" },
		"content":         func(m *events.NewMessage) { m.Content = "" },
		"direction":       func(m *events.NewMessage) { m.Direction = "" },
	}

	for field, mutate := range tests {
		t.Run(field, func(t *testing.T) {
			ev := newMessage()
			mutate(&ev)

			_, err := Decide(openConversation(), ev)
			assert.ErrorIs(t, err, models.ErrMissingFields)
			assert.Contains(t, err.Error(), field)
		})
	}
}

func TestDecide_NewMessageInvalidFields(t *testing.T) {
	ev := newMessage()
	ev.Direction = "OUTBOUND"
	_, err := Decide(openConversation(), ev)
	assert.ErrorIs(t, err, models.ErrInvalidField)

	ev = newMessage()
	ev.ID = "not-a-uuid"
	_, err = Decide(openConversation(), ev)
	assert.ErrorIs(t, err, models.ErrInvalidField)

	ev = newMessage()
	ev.ConversationID = "42"
	_, err = Decide(openConversation(), ev)
	assert.ErrorIs(t, err, models.ErrInvalidField)
}

func TestDecide_CloseConversation(t *testing.T) {
	d, err := Decide(openConversation(), events.CloseConversation{Timestamp: eventTime, ID: conversationID})
	require.NoError(t, err)

	assert.Equal(t, ActionCloseConversation, d.Action)
	assert.Equal(t, OutcomeClosed, d.Outcome)
	assert.Equal(t, models.StatusClosed, d.Conversation.Status)
}

func TestDecide_CloseConversationDoesNotMutateInput(t *testing.T) {
	current := openConversation()
	_, err := Decide(current, events.CloseConversation{Timestamp: eventTime, ID: conversationID})
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, current.Status)
}

func TestDecide_CloseIsIdempotent(t *testing.T) {
	d, err := Decide(closedConversation(), events.CloseConversation{Timestamp: eventTime, ID: conversationID})
	require.NoError(t, err)

	assert.Equal(t, ActionNone, d.Action)
	assert.Equal(t, OutcomeClosed, d.Outcome)
	assert.Equal(t, models.StatusClosed, d.Conversation.Status)
}

func TestDecide_CloseMissingConversation(t *testing.T) {
	_, err := Decide(nil, events.CloseConversation{Timestamp: eventTime, ID: conversationID})
	assert.ErrorIs(t, err, models.ErrConversationNotFound)
}

func TestTarget(t *testing.T) {
	id, err := Target(newMessage())
	require.NoError(t, err)
	assert.Equal(t, conversationID, id)

	_, err = Target(events.NewConversation{Timestamp: eventTime})
	assert.ErrorIs(t, err, models.ErrMissingFields)

	_, err = Target(events.CloseConversation{Timestamp: eventTime, ID: "c1"})
	assert.ErrorIs(t, err, models.ErrInvalidField)

	_, err = Target(nil)
	assert.ErrorIs(t, err, models.ErrUnknownEventType)
}
