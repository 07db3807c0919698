package chat

import (
	"context"

	"staff-chat/internal/repositories"
)

// UnreadTracker computes unread badges. Counts are recomputed on every call —
// after markRead, after a realtime notification and on room-list refresh —
// because a stale badge is a correctness bug for this UI.
type UnreadTracker struct {
	rooms    repositories.RoomRepository
	messages repositories.MessageRepository
}

// NewUnreadTracker constructs an UnreadTracker.
func NewUnreadTracker(rooms repositories.RoomRepository, messages repositories.MessageRepository) *UnreadTracker {
	return &UnreadTracker{rooms: rooms, messages: messages}
}

// UnreadCount counts messages from other participants newer than the viewer's
// cursor, which is the later of last_read and deleted_at.
func (t *UnreadTracker) UnreadCount(ctx context.Context, roomID, viewerID int) (int, error) {
	viewer, err := t.rooms.GetParticipant(ctx, roomID, viewerID)
	if err != nil {
		return 0, err
	}
	return t.messages.CountMessagesAfter(ctx, roomID, viewerID, viewer.UnreadCursor())
}

// AggregateUnread sums unread counts across rooms, for tab badges.
func (t *UnreadTracker) AggregateUnread(ctx context.Context, roomIDs []int, viewerID int) (int, error) {
	total := 0
	for _, roomID := range roomIDs {
		count, err := t.UnreadCount(ctx, roomID, viewerID)
		if err != nil {
			return 0, err
		}
		total += count
	}
	return total, nil
}
