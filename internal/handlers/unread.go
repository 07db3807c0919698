package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"staff-chat/internal/repositories"
)

type unreadAggregator interface {
	unreadCounter
	AggregateUnread(ctx context.Context, roomIDs []int, viewerID int) (int, error)
}

// UnreadHandler serves unread badge counts.
type UnreadHandler struct {
	rooms  repositories.RoomRepository
	unread unreadAggregator
}

// NewUnreadHandler builds an UnreadHandler.
func NewUnreadHandler(rooms repositories.RoomRepository, unread unreadAggregator) *UnreadHandler {
	return &UnreadHandler{rooms: rooms, unread: unread}
}

// RoomUnread returns the caller's unread count for one room.
func (h *UnreadHandler) RoomUnread(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	count, err := h.unread.UnreadCount(c.Request.Context(), roomID, c.GetInt("employeeID"))
	if err != nil {
		status, msg := statusForError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"room_id": roomID, "unread": count})
}

// TotalUnread sums unread counts, for the chat tab badge. With a room_ids
// query parameter only those rooms are counted; otherwise every room visible
// to the caller contributes.
func (h *UnreadHandler) TotalUnread(c *gin.Context) {
	employeeID := c.GetInt("employeeID")

	var roomIDs []int
	if raw := c.Query("room_ids"); raw != "" {
		for _, p := range strings.Split(raw, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room_ids"})
				return
			}
			roomIDs = append(roomIDs, id)
		}
	} else {
		summaries, err := h.rooms.ListRoomsForEmployee(c.Request.Context(), employeeID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load rooms"})
			return
		}
		for _, s := range summaries {
			roomIDs = append(roomIDs, s.RoomID)
		}
	}

	total, err := h.unread.AggregateUnread(c.Request.Context(), roomIDs, employeeID)
	if err != nil {
		status, msg := statusForError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": total})
}
