package models

import "time"

// Participant links one employee to one room. LastRead and DeletedAt are
// per-participant cursors: messages after LastRead are unread, messages at or
// before DeletedAt are hidden for this participant only. Hidden controls
// room-list visibility independently of the history cursor.
type Participant struct {
	RoomID     int        `db:"room_id" json:"room_id"`
	EmployeeID int        `db:"employee_id" json:"employee_id"`
	IsAdmin    bool       `db:"is_admin" json:"is_admin"`
	LastRead   time.Time  `db:"last_read" json:"last_read"`
	DeletedAt  *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	Hidden     bool       `db:"hidden" json:"-"`
	JoinedAt   time.Time  `db:"joined_at" json:"joined_at"`
}

// UnreadCursor is the point up to which messages count as seen or discarded
// for this participant.
func (p Participant) UnreadCursor() time.Time {
	if p.DeletedAt != nil && p.DeletedAt.After(p.LastRead) {
		return *p.DeletedAt
	}
	return p.LastRead
}
