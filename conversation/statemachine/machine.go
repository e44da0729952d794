// Package statemachine holds the conversation lifecycle rules. Everything here
// is pure: callers fetch the current conversation, ask for a Decision and
// persist it themselves.
package statemachine

import (
	"fmt"
	"strings"

	"conversation-webhook/backend/conversation/events"
	"conversation-webhook/backend/conversation/models"

	"github.com/google/uuid"
)

// State is the lifecycle state derived from the stored conversation
type State int

const (
	StateNonExistent State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "non_existent"
	}
}

// Action is the single store mutation a decision requires
type Action int

const (
	ActionNone Action = iota
	ActionCreateConversation
	ActionCreateMessage
	ActionCloseConversation
)

// Outcome is the successful result of applying an event
type Outcome string

const (
	OutcomeCreated         Outcome = "created"
	OutcomeMessageAccepted Outcome = "message_accepted"
	OutcomeClosed          Outcome = "closed"
)

// Decision describes what to persist for an accepted event. Conversation is
// set for ActionCreateConversation and ActionCloseConversation, Message for
// ActionCreateMessage.
type Decision struct {
	Action       Action
	Outcome      Outcome
	Conversation *models.Conversation
	Message      *models.Message
}

// StateOf derives the lifecycle state of a stored conversation. nil means the
// conversation does not exist; any status other than OPEN accepts no messages.
func StateOf(c *models.Conversation) State {
	switch {
	case c == nil:
		return StateNonExistent
	case c.IsOpen():
		return StateOpen
	default:
		return StateClosed
	}
}

// Target checks the per-type required fields of ev and returns the id of the
// conversation it refers to, in canonical form.
func Target(ev events.Event) (string, error) {
	switch e := ev.(type) {
	case events.NewConversation:
		if e.ID == "" {
			return "", fmt.Errorf("%w: id", models.ErrMissingFields)
		}
		return canonicalID("id", e.ID)

	case events.CloseConversation:
		if e.ID == "" {
			return "", fmt.Errorf("%w: id", models.ErrMissingFields)
		}
		return canonicalID("id", e.ID)

	case events.NewMessage:
		var missing []string
		if e.ID == "" {
			missing = append(missing, "id")
		}
		if e.ConversationID == "" {
			missing = append(missing, "conversation_id")
		}
		if e.Content == "" {
			missing = append(missing, "content")
		}
		if e.Direction == "" {
			missing = append(missing, "direction")
		}
		if len(missing) > 0 {
			return "", fmt.Errorf("%w: %s", models.ErrMissingFields, strings.Join(missing, ", "))
		}
		if _, err := canonicalID("id", e.ID); err != nil {
			return "", err
		}
		if !e.Direction.Valid() {
			return "", fmt.Errorf("%w: direction must be %s or %s, got %q",
				models.ErrInvalidField, models.DirectionSent, models.DirectionReceived, e.Direction)
		}
		return canonicalID("conversation_id", e.ConversationID)
	}

	return "", unknownEvent(ev)
}

// Decide applies the lifecycle rules to ev given the current conversation
// (nil when it does not exist).
func Decide(current *models.Conversation, ev events.Event) (Decision, error) {
	conversationID, err := Target(ev)
	if err != nil {
		return Decision{}, err
	}

	state := StateOf(current)

	switch e := ev.(type) {
	case events.NewConversation:
		if state != StateNonExistent {
			return Decision{}, fmt.Errorf("%w: %s", models.ErrDuplicateConversation, conversationID)
		}
		return Decision{
			Action:  ActionCreateConversation,
			Outcome: OutcomeCreated,
			Conversation: &models.Conversation{
				ID:     conversationID,
				Status: models.StatusOpen,
			},
		}, nil

	case events.NewMessage:
		switch state {
		case StateNonExistent:
			return Decision{}, fmt.Errorf("%w: %s", models.ErrConversationNotFound, conversationID)
		case StateClosed:
			return Decision{}, fmt.Errorf("%w: %s", models.ErrConversationClosed, conversationID)
		}
		messageID, _ := canonicalID("id", e.ID)
		return Decision{
			Action:  ActionCreateMessage,
			Outcome: OutcomeMessageAccepted,
			Message: &models.Message{
				ID:             messageID,
				ConversationID: current.ID,
				Content:        e.Content,
				Direction:      e.Direction,
				Timestamp:      e.Timestamp,
			},
		}, nil

	case events.CloseConversation:
		switch state {
		case StateNonExistent:
			return Decision{}, fmt.Errorf("%w: %s", models.ErrConversationNotFound, conversationID)
		case StateClosed:
			// closing is idempotent
			return Decision{Action: ActionNone, Outcome: OutcomeClosed, Conversation: current}, nil
		}
		closed := *current
		closed.Status = models.StatusClosed
		return Decision{
			Action:       ActionCloseConversation,
			Outcome:      OutcomeClosed,
			Conversation: &closed,
		}, nil
	}

	return Decision{}, unknownEvent(ev)
}

func canonicalID(field, value string) (string, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return "", fmt.Errorf("%w: %s must be a UUID, got %q", models.ErrInvalidField, field, value)
	}
	return id.String(), nil
}

func unknownEvent(ev events.Event) error {
	if ev == nil {
		return fmt.Errorf("%w: nil event", models.ErrUnknownEventType)
	}
	return fmt.Errorf("%w: %q", models.ErrUnknownEventType, ev.Type())
}
