package handlers

import (
	"errors"
	"net/http"

	"staff-chat/internal/crypto"
	"staff-chat/internal/queue"
	"staff-chat/internal/repositories"
)

// statusForError maps error kinds to HTTP statuses. Callers branch on error
// identity, never on backend error text.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, repositories.ErrRoomNotFound):
		return http.StatusNotFound, "room not found"
	case errors.Is(err, repositories.ErrNotParticipant):
		return http.StatusForbidden, "not a room participant"
	case errors.Is(err, repositories.ErrNotAuthorized):
		return http.StatusForbidden, "you don't have permission"
	case errors.Is(err, repositories.ErrDuplicateParticipant):
		return http.StatusConflict, "participant already in room"
	case errors.Is(err, repositories.ErrLastAdmin):
		return http.StatusConflict, "group must keep at least one admin"
	case errors.Is(err, queue.ErrQueueUnavailable):
		return http.StatusServiceUnavailable, "message could not be queued, please retry"
	case errors.Is(err, crypto.ErrKeyFormat):
		return http.StatusInternalServerError, "unable to load this conversation"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
