package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"staff-chat/internal/chat"
)

type messageSender interface {
	Send(ctx context.Context, roomID, senderID int, text string) (chat.PendingMessage, error)
}

type historyReader interface {
	LoadHistory(ctx context.Context, roomID, viewerID int) ([]chat.HistoryMessage, error)
	MarkRead(ctx context.Context, roomID, viewerID int) error
}

// MessageHandler serves message history and accepts outbound messages.
type MessageHandler struct {
	sender messageSender
	reader historyReader
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(sender messageSender, reader historyReader) *MessageHandler {
	return &MessageHandler{sender: sender, reader: reader}
}

// GetHistory returns the caller's decrypted view of the room, oldest first,
// and advances the read cursor: opening a conversation marks it read.
func (h *MessageHandler) GetHistory(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	employeeID := c.GetInt("employeeID")

	history, err := h.reader.LoadHistory(c.Request.Context(), roomID, employeeID)
	if err != nil {
		status, msg := statusForError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	if err := h.reader.MarkRead(c.Request.Context(), roomID, employeeID); err != nil {
		log.Printf("mark read failed for room %d employee %d: %v", roomID, employeeID, err)
	}

	c.JSON(http.StatusOK, gin.H{"messages": history})
}

// PostMessage enqueues a message and returns the optimistic pending view with
// 202. The durable write happens in the queue worker; clients render the
// pending message immediately and reconcile on the next history load.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pending, err := h.sender.Send(c.Request.Context(), roomID, c.GetInt("employeeID"), req.Text)
	if err != nil {
		status, msg := statusForError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": pending})
}

// MarkRead advances the caller's read cursor without loading history.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	if err := h.reader.MarkRead(c.Request.Context(), roomID, c.GetInt("employeeID")); err != nil {
		status, msg := statusForError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.Status(http.StatusNoContent)
}
