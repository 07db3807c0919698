package models

import "time"

// Message is a persisted, encrypted message row. Ciphertext and IV are opaque
// base64 strings; id, room, sender and created_at stay plaintext. Rows are
// append-only and CreatedAt is assigned by the database at insert time.
type Message struct {
	ID         int       `db:"id" json:"id"`
	RoomID     int       `db:"chat_room_id" json:"room_id"`
	SenderID   int       `db:"sender_id" json:"sender_id"`
	Ciphertext string    `db:"ciphertext" json:"-"`
	IV         string    `db:"iv" json:"-"`
	JobID      string    `db:"job_id" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// RoomEvent is pushed over websockets when a room changes. Clients respond by
// reloading history; the payload deliberately carries no message content.
type RoomEvent struct {
	Type   string `json:"type"`
	RoomID int    `json:"room_id"`
}
