package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"staff-chat/internal/chat"
	"staff-chat/internal/queue"
	"staff-chat/internal/repositories"
)

type senderMock struct {
	mock.Mock
}

func (m *senderMock) Send(ctx context.Context, roomID, senderID int, text string) (chat.PendingMessage, error) {
	args := m.Called(ctx, roomID, senderID, text)
	var pending chat.PendingMessage
	if val := args.Get(0); val != nil {
		pending = val.(chat.PendingMessage)
	}
	return pending, args.Error(1)
}

type readerMock struct {
	mock.Mock
}

func (m *readerMock) LoadHistory(ctx context.Context, roomID, viewerID int) ([]chat.HistoryMessage, error) {
	args := m.Called(ctx, roomID, viewerID)
	var history []chat.HistoryMessage
	if val := args.Get(0); val != nil {
		history = val.([]chat.HistoryMessage)
	}
	return history, args.Error(1)
}

func (m *readerMock) MarkRead(ctx context.Context, roomID, viewerID int) error {
	args := m.Called(ctx, roomID, viewerID)
	return args.Error(0)
}

func setupMessageRouter(handler *MessageHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("employeeID", 1)
		c.Next()
	})
	r.GET("/rooms/:room_id/messages", handler.GetHistory)
	r.POST("/rooms/:room_id/messages", handler.PostMessage)
	r.POST("/rooms/:room_id/read", handler.MarkRead)
	return r
}

func TestGetHistoryReturnsMessagesAndMarksRead(t *testing.T) {
	sender := new(senderMock)
	reader := new(readerMock)
	handler := NewMessageHandler(sender, reader)
	router := setupMessageRouter(handler)

	reader.On("LoadHistory", mock.Anything, 5, 1).Return([]chat.HistoryMessage{
		{ID: 10, RoomID: 5, SenderID: 2, Text: "hello", CreatedAt: time.Now().UTC()},
	}, nil).Once()
	reader.On("MarkRead", mock.Anything, 5, 1).Return(nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/rooms/5/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"text":"hello"`)
	reader.AssertExpectations(t)
}

func TestGetHistoryNonParticipantForbidden(t *testing.T) {
	reader := new(readerMock)
	handler := NewMessageHandler(new(senderMock), reader)
	router := setupMessageRouter(handler)

	reader.On("LoadHistory", mock.Anything, 5, 1).Return(nil, repositories.ErrNotParticipant).Once()

	req := httptest.NewRequest(http.MethodGet, "/rooms/5/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	reader.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything, mock.Anything)
}

func TestPostMessageReturnsAcceptedWithPending(t *testing.T) {
	sender := new(senderMock)
	handler := NewMessageHandler(sender, new(readerMock))
	router := setupMessageRouter(handler)

	pending := chat.PendingMessage{
		JobID:    "8e0fdc1e-3bfc-44d4-9464-5d0c49a07ac3",
		RoomID:   5,
		SenderID: 1,
		Text:     "on my way",
		SentAt:   time.Now().UTC(),
	}
	sender.On("Send", mock.Anything, 5, 1, "on my way").Return(pending, nil).Once()

	body, _ := json.Marshal(gin.H{"text": "on my way"})
	req := httptest.NewRequest(http.MethodPost, "/rooms/5/messages", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp struct {
		Message chat.PendingMessage `json:"message"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, pending.JobID, resp.Message.JobID)
	assert.Equal(t, "on my way", resp.Message.Text)
	sender.AssertExpectations(t)
}

func TestPostMessageQueueUnavailable(t *testing.T) {
	sender := new(senderMock)
	handler := NewMessageHandler(sender, new(readerMock))
	router := setupMessageRouter(handler)

	sender.On("Send", mock.Anything, 5, 1, "on my way").Return(nil, queue.ErrQueueUnavailable).Once()

	body, _ := json.Marshal(gin.H{"text": "on my way"})
	req := httptest.NewRequest(http.MethodPost, "/rooms/5/messages", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPostMessageEmptyBodyRejected(t *testing.T) {
	sender := new(senderMock)
	handler := NewMessageHandler(sender, new(readerMock))
	router := setupMessageRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/rooms/5/messages", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkReadEndpoint(t *testing.T) {
	reader := new(readerMock)
	handler := NewMessageHandler(new(senderMock), reader)
	router := setupMessageRouter(handler)

	reader.On("MarkRead", mock.Anything, 5, 1).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/rooms/5/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	reader.AssertExpectations(t)
}
