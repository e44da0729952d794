package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"conversation-webhook/backend/conversation/models"
)

// envelope is the top-level shape shared by every event
type envelope struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type conversationData struct {
	ID string `json:"id"`
}

type messageData struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
	Direction      string `json:"direction"`
}

// timestampLayouts are tried in order. Layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999Z07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
	"20060102T150405.999999999Z07:00",
	"20060102T150405.999999999Z0700",
	"20060102T150405.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Decode validates the event envelope and decodes the payload into its typed
// variant. It checks that the envelope is well formed and the timestamp is a
// valid instant; per-type required fields are left to the caller.
func Decode(payload []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON payload: %v", models.ErrMalformedEvent, err)
	}

	if env.Type == "" || env.Timestamp == "" || isEmptyData(env.Data) {
		return nil, fmt.Errorf("%w: missing data from webhook", models.ErrMalformedEvent)
	}

	ts, err := ParseTimestamp(env.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedEvent, err)
	}

	eventType := Type(env.Type)
	switch eventType {
	case TypeNewConversation:
		var data conversationData
		if err := decodeData(env.Data, &data); err != nil {
			return nil, err
		}
		return NewConversation{Timestamp: ts, ID: data.ID}, nil

	case TypeNewMessage:
		var data messageData
		if err := decodeData(env.Data, &data); err != nil {
			return nil, err
		}
		return NewMessage{
			Timestamp:      ts,
			ID:             data.ID,
			ConversationID: data.ConversationID,
			Content:        data.Content,
			Direction:      models.MessageDirection(data.Direction),
		}, nil

	case TypeCloseConversation:
		var data conversationData
		if err := decodeData(env.Data, &data); err != nil {
			return nil, err
		}
		return CloseConversation{Timestamp: ts, ID: data.ID}, nil
	}

	return nil, fmt.Errorf("%w: %w: %q", models.ErrMalformedEvent, models.ErrUnknownEventType, env.Type)
}

// ParseTimestamp parses an ISO-8601 datetime
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", value)
}

// isEmptyData treats an absent, null or empty object as missing
func isEmptyData(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		// not an object; decodeData reports it
		return false
	}
	return len(fields) == 0
}

func decodeData(raw json.RawMessage, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: invalid data: %v", models.ErrMalformedEvent, err)
	}
	return nil
}
