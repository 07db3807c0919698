package models

import "time"

// RoomType discriminates the three chat topologies.
type RoomType string

const (
	RoomTypePrivate RoomType = "private"
	RoomTypeGroup   RoomType = "group"
	RoomTypeStore   RoomType = "store"
)

// Room is a conversation context with exactly one symmetric encryption key.
// The key is written once at creation and never rotated; only the room
// repository may read or write it.
type Room struct {
	ID            int       `db:"id" json:"id"`
	Type          RoomType  `db:"type" json:"type"`
	Name          string    `db:"name" json:"name,omitempty"`
	StoreID       *int      `db:"store_id" json:"store_id,omitempty"`
	EncryptionKey string    `db:"encryption_key" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// RoomSummary is the per-viewer room-list view. PeerID is set for private
// rooms only and identifies the other participant.
type RoomSummary struct {
	RoomID    int       `db:"id" json:"room_id"`
	Type      RoomType  `db:"type" json:"type"`
	Name      string    `db:"name" json:"name,omitempty"`
	StoreID   *int      `db:"store_id" json:"store_id,omitempty"`
	PeerID    *int      `db:"peer_id" json:"peer_id,omitempty"`
	IsAdmin   bool      `db:"is_admin" json:"is_admin"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
