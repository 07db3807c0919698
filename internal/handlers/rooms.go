package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"staff-chat/internal/directory"
	"staff-chat/internal/models"
	"staff-chat/internal/repositories"
	"staff-chat/internal/telemetry"
)

type unreadCounter interface {
	UnreadCount(ctx context.Context, roomID, viewerID int) (int, error)
}

// RoomHandler manages room lifecycle and membership endpoints.
type RoomHandler struct {
	rooms  repositories.RoomRepository
	dir    directory.Client
	unread unreadCounter
	audit  *telemetry.AuditEmitter
}

// NewRoomHandler builds a RoomHandler.
func NewRoomHandler(rooms repositories.RoomRepository, dir directory.Client, unread unreadCounter, audit *telemetry.AuditEmitter) *RoomHandler {
	return &RoomHandler{rooms: rooms, dir: dir, unread: unread, audit: audit}
}

// ListRooms returns the rooms visible to the caller, decorated with unread
// counts and, for private rooms, the peer's display name.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	employeeID := c.GetInt("employeeID")

	summaries, err := h.rooms.ListRoomsForEmployee(c.Request.Context(), employeeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load rooms"})
		return
	}

	peerIDs := make([]int, 0)
	for _, s := range summaries {
		if s.PeerID != nil {
			peerIDs = append(peerIDs, *s.PeerID)
		}
	}
	peerNames := map[int]string{}
	if len(peerIDs) > 0 && h.dir != nil {
		employees, err := h.dir.BulkEmployees(c.Request.Context(), peerIDs)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load employee info"})
			return
		}
		for _, e := range employees {
			peerNames[e.ID] = e.Name
		}
	}

	type roomResponse struct {
		models.RoomSummary
		PeerName    string `json:"peer_name,omitempty"`
		UnreadCount int    `json:"unread_count"`
	}

	responses := make([]roomResponse, 0, len(summaries))
	for _, s := range summaries {
		resp := roomResponse{RoomSummary: s}
		if s.PeerID != nil {
			resp.PeerName = peerNames[*s.PeerID]
			resp.Name = resp.PeerName
		}
		if h.unread != nil {
			count, err := h.unread.UnreadCount(c.Request.Context(), s.RoomID, employeeID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute unread counts"})
				return
			}
			resp.UnreadCount = count
		}
		responses = append(responses, resp)
	}

	c.JSON(http.StatusOK, gin.H{"rooms": responses})
}

// StartPrivateRoom creates or reopens the 1:1 room between caller and peer.
func (h *RoomHandler) StartPrivateRoom(c *gin.Context) {
	var req struct {
		PeerID int `json:"peer_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	employeeID := c.GetInt("employeeID")
	if employeeID == req.PeerID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot chat with yourself"})
		return
	}

	if h.dir != nil {
		employees, err := h.dir.BulkEmployees(c.Request.Context(), []int{req.PeerID})
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to validate employee"})
			return
		}
		if len(employees) == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "employee not found"})
			return
		}
	}

	room, err := h.rooms.FindOrCreatePrivateRoom(c.Request.Context(), employeeID, req.PeerID)
	if err != nil {
		status, msg := statusForError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{"room_id": room.ID})
}

// StartStoreRoom lazily creates the store-wide room and enrolls the store's
// current members. Idempotent: repeated calls return the same room.
func (h *RoomHandler) StartStoreRoom(c *gin.Context) {
	var req struct {
		StoreID int `json:"store_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	employeeID := c.GetInt("employeeID")
	memberIDs := []int{employeeID}
	if h.dir != nil {
		ids, err := h.dir.StoreMembers(c.Request.Context(), req.StoreID)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load store members"})
			return
		}
		memberIDs = ids
	}

	room, err := h.rooms.FindOrCreateStoreRoom(c.Request.Context(), req.StoreID, fmt.Sprintf("Store %d", req.StoreID), memberIDs)
	if err != nil {
		status, msg := statusForError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{"room_id": room.ID})
}

// CreateGroup creates a group room; the caller becomes its first admin.
func (h *RoomHandler) CreateGroup(c *gin.Context) {
	employeeID := c.GetInt("employeeID")

	var req struct {
		Name      string `json:"name" binding:"required"`
		MemberIDs []int  `json:"member_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.MemberIDs) > 0 && h.dir != nil {
		if _, err := h.dir.BulkEmployees(c.Request.Context(), req.MemberIDs); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to validate members"})
			return
		}
	}

	room, err := h.rooms.CreateGroupRoom(c.Request.Context(), employeeID, req.Name, req.MemberIDs)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create group"})
		return
	}

	h.emitAudit(c, "INFO", "Group created")
	c.JSON(http.StatusCreated, gin.H{"room_id": room.ID})
}

// RenameRoom updates a group room's display name (admin only).
func (h *RoomHandler) RenameRoom(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.rooms.UpdateRoomName(c.Request.Context(), roomID, c.GetInt("employeeID"), req.Name); err != nil {
		status, msg := statusForError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.Status(http.StatusNoContent)
}

// AddParticipants adds employees to a group room (admin only).
func (h *RoomHandler) AddParticipants(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	var req struct {
		EmployeeIDs []int `json:"employee_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.dir != nil {
		if _, err := h.dir.BulkEmployees(c.Request.Context(), req.EmployeeIDs); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to validate members"})
			return
		}
	}

	if err := h.rooms.AddParticipants(c.Request.Context(), roomID, c.GetInt("employeeID"), req.EmployeeIDs); err != nil {
		status, msg := statusForError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	h.emitAudit(c, "INFO", "Participants added")
	c.Status(http.StatusNoContent)
}

// RemoveParticipant removes a member from a group room. Admins remove anyone;
// members remove themselves (leave).
func (h *RoomHandler) RemoveParticipant(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	targetID, err := strconv.Atoi(c.Param("employee_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid employee id"})
		return
	}

	if err := h.rooms.RemoveParticipant(c.Request.Context(), roomID, c.GetInt("employeeID"), targetID); err != nil {
		status, msg := statusForError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	h.emitAudit(c, "INFO", "Participant removed")
	c.Status(http.StatusNoContent)
}

// SetAdmin grants or revokes group admin rights (admin only).
func (h *RoomHandler) SetAdmin(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	targetID, err := strconv.Atoi(c.Param("employee_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid employee id"})
		return
	}

	var req struct {
		IsAdmin *bool `json:"is_admin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.rooms.SetAdmin(c.Request.Context(), roomID, c.GetInt("employeeID"), targetID, *req.IsAdmin); err != nil {
		status, msg := statusForError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteRoom structurally deletes a group room with all participants and
// messages (admin only).
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	if err := h.rooms.DeleteRoom(c.Request.Context(), roomID, c.GetInt("employeeID")); err != nil {
		status, msg := statusForError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	h.emitAudit(c, "INFO", "Group deleted")
	c.Status(http.StatusNoContent)
}

// HideRoom soft-deletes the room for the caller only.
func (h *RoomHandler) HideRoom(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	if err := h.rooms.HideRoomForEmployee(c.Request.Context(), roomID, c.GetInt("employeeID")); err != nil {
		status, msg := statusForError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RoomHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), employeeIDFromContext(c))
}

func parseRoomID(c *gin.Context) (int, bool) {
	roomID, err := strconv.Atoi(c.Param("room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return 0, false
	}
	return roomID, true
}
