package chat

import (
	"context"
	"fmt"
	"log"
	"time"

	"staff-chat/internal/crypto"
	"staff-chat/internal/directory"
	"staff-chat/internal/models"
	"staff-chat/internal/repositories"
)

// HistoryMessage is one decrypted entry of a room's history. When the stored
// ciphertext cannot be decrypted the entry is kept with Undecryptable set so
// one bad row never hides the rest of the conversation.
type HistoryMessage struct {
	ID            int       `json:"id"`
	RoomID        int       `json:"room_id"`
	SenderID      int       `json:"sender_id"`
	SenderName    string    `json:"sender_name,omitempty"`
	SenderAvatar  string    `json:"sender_avatar,omitempty"`
	Text          string    `json:"text"`
	Undecryptable bool      `json:"undecryptable,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Reader loads and decrypts room history for one viewer.
type Reader struct {
	rooms    repositories.RoomRepository
	messages repositories.MessageRepository
	dir      directory.Client
}

// NewReader constructs a Reader.
func NewReader(rooms repositories.RoomRepository, messages repositories.MessageRepository, dir directory.Client) *Reader {
	return &Reader{rooms: rooms, messages: messages, dir: dir}
}

// LoadHistory returns the viewer's decrypted history, oldest first. For
// private rooms, messages at or before the viewer's deleted_at cursor are
// hidden; group and store history is always fully visible to members. That
// asymmetry mirrors the product behavior and is pending product confirmation,
// so it is kept rather than unified.
func (r *Reader) LoadHistory(ctx context.Context, roomID, viewerID int) ([]HistoryMessage, error) {
	viewer, err := r.rooms.GetParticipant(ctx, roomID, viewerID)
	if err != nil {
		return nil, err
	}
	room, err := r.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	key, err := crypto.ParseKey(room.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("room %d: %w", roomID, err)
	}

	rows, err := r.messages.ListMessages(ctx, roomID)
	if err != nil {
		return nil, err
	}

	history := make([]HistoryMessage, 0, len(rows))
	for _, row := range rows {
		if room.Type == models.RoomTypePrivate && viewer.DeletedAt != nil && !row.CreatedAt.After(*viewer.DeletedAt) {
			continue
		}

		entry := HistoryMessage{
			ID:        row.ID,
			RoomID:    row.RoomID,
			SenderID:  row.SenderID,
			CreatedAt: row.CreatedAt,
		}
		text, err := crypto.Decrypt(row.Ciphertext, row.IV, key)
		if err != nil {
			log.Printf("room %d message %d: %v", roomID, row.ID, err)
			entry.Undecryptable = true
		} else {
			entry.Text = text
		}
		history = append(history, entry)
	}

	r.decorateSenders(ctx, history)
	return history, nil
}

// MarkRead advances the viewer's read cursor to now. Called whenever a room's
// history is opened; repeated calls are harmless.
func (r *Reader) MarkRead(ctx context.Context, roomID, viewerID int) error {
	return r.rooms.MarkRead(ctx, roomID, viewerID)
}

// decorateSenders fills display names and avatars from the directory. Lookup
// failures degrade to undecorated messages rather than failing the load.
func (r *Reader) decorateSenders(ctx context.Context, history []HistoryMessage) {
	if r.dir == nil || len(history) == 0 {
		return
	}

	seen := map[int]struct{}{}
	ids := make([]int, 0)
	for _, m := range history {
		if _, ok := seen[m.SenderID]; !ok {
			seen[m.SenderID] = struct{}{}
			ids = append(ids, m.SenderID)
		}
	}

	employees, err := r.dir.BulkEmployees(ctx, ids)
	if err != nil {
		log.Printf("directory lookup failed: %v", err)
		return
	}
	byID := make(map[int]directory.Employee, len(employees))
	for _, e := range employees {
		byID[e.ID] = e
	}
	for i := range history {
		if e, ok := byID[history[i].SenderID]; ok {
			history[i].SenderName = e.Name
			history[i].SenderAvatar = e.AvatarURL
		}
	}
}
