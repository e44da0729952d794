package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"conversation-webhook/backend/conversation/api"
	"conversation-webhook/backend/conversation/models"
	"conversation-webhook/backend/conversation/repository"
	"conversation-webhook/backend/conversation/service"
	"conversation-webhook/backend/internal/testdb"
	apperrors "conversation-webhook/backend/pkg/errors"
	"conversation-webhook/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
	repo   repository.ConversationRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testdb.New(t)
	repo := repository.NewGormConversationRepository(db)
	log := logger.Discard()

	processor, err := service.NewEventProcessor(repo, log)
	require.NoError(t, err)
	handler := api.NewConversationHandler(processor, service.NewConversationService(repo), 0)

	r := gin.New()
	r.Use(logger.Middleware(log))
	r.Use(apperrors.ErrorHandler())
	r.Use(apperrors.RecoveryWithLogger())
	api.RegisterConversationRoutes(r, handler)

	return &testServer{engine: r, db: db, repo: repo}
}

func (s *testServer) post(t *testing.T, payload any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var body []byte
	switch p := payload.(type) {
	case string:
		body = []byte(p)
	default:
		var err error
		body, err = json.Marshal(p)
		require.NoError(t, err)
	}

	req, _ := http.NewRequest(http.MethodPost, "/webhook/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var decoded map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &decoded)
	return w, decoded
}

func (s *testServer) get(t *testing.T, path string) (*httptest.ResponseRecorder, api.ConversationResponse) {
	t.Helper()

	req, _ := http.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var decoded api.ConversationResponse
	_ = json.Unmarshal(w.Body.Bytes(), &decoded)
	return w, decoded
}

func (s *testServer) messageCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, s.db.Model(&models.Message{}).Count(&count).Error)
	return count
}

func newConversationEvent(id string) map[string]any {
	return map[string]any{
		"type":      "NEW_CONVERSATION",
		"timestamp": "2025-03-01T10:20:41.349308",
		"data":      map[string]any{"id": id},
	}
}

func newMessageEvent(id, conversationID, content, direction, timestamp string) map[string]any {
	return map[string]any{
		"type":      "NEW_MESSAGE",
		"timestamp": timestamp,
		"data": map[string]any{
			"id":              id,
			"conversation_id": conversationID,
			"content":         content,
			"direction":       direction,
		},
	}
}

func closeConversationEvent(id string) map[string]any {
	return map[string]any{
		"type":      "CLOSE_CONVERSATION",
		"timestamp": "2025-02-21T10:20:45.349308",
		"data":      map[string]any{"id": id},
	}
}

func TestConversationLifecycle(t *testing.T) {
	s := newTestServer(t)
	conversationID := uuid.NewString()
	messageID := uuid.NewString()

	// A: new conversation
	w, body := s.post(t, newConversationEvent(conversationID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "New conversation created", body["message"])

	var stored models.Conversation
	require.NoError(t, s.db.First(&stored, "id = ?", conversationID).Error)
	assert.Equal(t, models.StatusOpen, stored.Status)

	// B: message on the open conversation
	w, body = s.post(t, newMessageEvent(messageID, conversationID, "hi", "RECEIVED", "2025-03-01T10:20:42.349308"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Message created successfully", body["status"])

	var message models.Message
	require.NoError(t, s.db.First(&message, "id = ?", messageID).Error)
	assert.Equal(t, conversationID, message.ConversationID)
	assert.Equal(t, "hi", message.Content)
	assert.Equal(t, models.DirectionReceived, message.Direction)

	// C: close
	w, body = s.post(t, closeConversationEvent(conversationID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Conversation closed successfully", body["status"])
	require.NoError(t, s.db.First(&stored, "id = ?", conversationID).Error)
	assert.Equal(t, models.StatusClosed, stored.Status)

	// D: message after close is rejected
	w, body = s.post(t, newMessageEvent(uuid.NewString(), conversationID, "too late", "SENT", "2025-03-01T10:21:00"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Conversation is not open", body["error"])
	assert.Equal(t, "CONVERSATION_CLOSED", body["code"])
	assert.Equal(t, int64(1), s.messageCount(t))

	// E: detail shows the closed conversation and its one message
	w, detail := s.get(t, "/conversations/"+conversationID+"/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, conversationID, detail.ID)
	assert.Equal(t, models.StatusClosed, detail.Status)
	require.Len(t, detail.Messages, 1)
	assert.Equal(t, messageID, detail.Messages[0].ID)
	assert.Equal(t, "hi", detail.Messages[0].Content)
	assert.Equal(t, models.DirectionReceived, detail.Messages[0].Direction)

	// F: unknown conversation
	w, _ = s.get(t, "/conversations/"+uuid.NewString()+"/")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhook_CloseTwice(t *testing.T) {
	s := newTestServer(t)
	conversationID := uuid.NewString()

	w, _ := s.post(t, newConversationEvent(conversationID))
	require.Equal(t, http.StatusCreated, w.Code)

	for i := 0; i < 2; i++ {
		w, _ = s.post(t, closeConversationEvent(conversationID))
		assert.Equal(t, http.StatusOK, w.Code, "close attempt %d", i+1)
	}

	conversation, err := s.repo.GetWithMessages(context.Background(), conversationID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, conversation.Status)
}

func TestWebhook_MessageToMissingConversation(t *testing.T) {
	s := newTestServer(t)

	w, body := s.post(t, newMessageEvent(uuid.NewString(), uuid.NewString(), "hello", "RECEIVED", "2025-02-21T10:20:42.349308"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Conversation not found", body["error"])
	assert.Equal(t, int64(0), s.messageCount(t))
}

func TestWebhook_CloseMissingConversation(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.post(t, closeConversationEvent(uuid.NewString()))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhook_DuplicateConversation(t *testing.T) {
	s := newTestServer(t)
	conversationID := uuid.NewString()

	w, _ := s.post(t, newConversationEvent(conversationID))
	require.Equal(t, http.StatusCreated, w.Code)
	w, _ = s.post(t, closeConversationEvent(conversationID))
	require.Equal(t, http.StatusOK, w.Code)

	w, body := s.post(t, newConversationEvent(conversationID))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DUPLICATE_CONVERSATION", body["code"])

	// the first conversation keeps its state
	conversation, err := s.repo.GetWithMessages(context.Background(), conversationID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, conversation.Status)
}

func TestWebhook_DuplicateMessage(t *testing.T) {
	s := newTestServer(t)
	conversationID := uuid.NewString()
	messageID := uuid.NewString()

	w, _ := s.post(t, newConversationEvent(conversationID))
	require.Equal(t, http.StatusCreated, w.Code)

	event := newMessageEvent(messageID, conversationID, "hi", "SENT", "2025-03-01T10:20:42")
	w, _ = s.post(t, event)
	require.Equal(t, http.StatusCreated, w.Code)

	w, body := s.post(t, event)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DUPLICATE_MESSAGE", body["code"])
	assert.Equal(t, int64(1), s.messageCount(t))
}

func TestWebhook_ClientErrors(t *testing.T) {
	conversationID := uuid.NewString()

	tests := []struct {
		name    string
		payload any
		code    string
	}{
		{"invalid json", `{"type": "NEW_CONVERSATION",`, "MALFORMED_EVENT"},
		{"missing data", map[string]any{"type": "NEW_CONVERSATION", "timestamp": "2025-03-01T10:20:41"}, "MALFORMED_EVENT"},
		{"bad timestamp", map[string]any{"type": "NEW_CONVERSATION", "timestamp": "soon", "data": map[string]any{"id": conversationID}}, "MALFORMED_EVENT"},
		{"unknown type", map[string]any{"type": "REOPEN_CONVERSATION", "timestamp": "2025-03-01T10:20:41", "data": map[string]any{"id": conversationID}}, "UNKNOWN_EVENT_TYPE"},
		{"missing message fields", newMessageEvent(uuid.NewString(), "", "hi", "SENT", "2025-03-01T10:20:41"), "MISSING_FIELDS"},
		{"invalid direction", newMessageEvent(uuid.NewString(), conversationID, "hi", "SIDEWAYS", "2025-03-01T10:20:41"), "INVALID_FIELD"},
		{"non uuid id", newConversationEvent("conversation-1"), "INVALID_FIELD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)

			w, body := s.post(t, tt.payload)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, body["code"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestGetConversation_MessagesInTimestampOrder(t *testing.T) {
	s := newTestServer(t)
	conversationID := uuid.NewString()

	w, _ := s.post(t, newConversationEvent(conversationID))
	require.Equal(t, http.StatusCreated, w.Code)

	contents := []string{"Tudo ótimo e você?", "Olá, tudo bem?"}
	timestamps := []string{"2025-02-21T10:20:44.349308", "2025-02-21T10:20:42.349308"}
	for i := range contents {
		w, _ = s.post(t, newMessageEvent(uuid.NewString(), conversationID, contents[i], "RECEIVED", timestamps[i]))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w, detail := s.get(t, "/conversations/"+conversationID)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusOpen, detail.Status)
	require.Len(t, detail.Messages, 2)
	assert.Equal(t, "Olá, tudo bem?", detail.Messages[0].Content)
	assert.Equal(t, "Tudo ótimo e você?", detail.Messages[1].Content)
}

func TestGetConversation_InvalidID(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.get(t, "/conversations/not-a-uuid/")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetConversation_EmptyMessagesIsArray(t *testing.T) {
	s := newTestServer(t)
	conversationID := uuid.NewString()

	w, _ := s.post(t, newConversationEvent(conversationID))
	require.Equal(t, http.StatusCreated, w.Code)

	req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("/conversations/%s/", conversationID), nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"messages":[]`)
}
