package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"staff-chat/internal/crypto"
	"staff-chat/internal/queue"
	"staff-chat/internal/repositories"
)

// PendingMessage is the optimistic, client-side view of a message that has
// been enqueued but not yet durably persisted. It deliberately carries no
// database id: callers cannot mistake it for a persisted row.
type PendingMessage struct {
	JobID    string    `json:"job_id"`
	RoomID   int       `json:"room_id"`
	SenderID int       `json:"sender_id"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"sent_at"`
}

// Sender is the outbound message path: encrypt, enqueue, return an optimistic
// view. The durable insert happens later in the queue worker, so a send never
// blocks on the database.
type Sender struct {
	rooms     repositories.RoomRepository
	publisher queue.Publisher
}

// NewSender constructs a Sender.
func NewSender(rooms repositories.RoomRepository, publisher queue.Publisher) *Sender {
	return &Sender{rooms: rooms, publisher: publisher}
}

// Send encrypts the text under the room's key and enqueues it for the worker.
// On queue failure no pending message is returned — the caller must surface a
// retry, never pretend the message went out.
func (s *Sender) Send(ctx context.Context, roomID, senderID int, text string) (PendingMessage, error) {
	member, err := s.rooms.IsParticipant(ctx, roomID, senderID)
	if err != nil {
		return PendingMessage{}, err
	}
	if !member {
		return PendingMessage{}, repositories.ErrNotParticipant
	}

	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return PendingMessage{}, err
	}
	key, err := crypto.ParseKey(room.EncryptionKey)
	if err != nil {
		return PendingMessage{}, fmt.Errorf("room %d: %w", roomID, err)
	}

	ciphertext, iv, err := crypto.Encrypt(text, key)
	if err != nil {
		return PendingMessage{}, err
	}

	job := queue.SendJob{
		JobID:      uuid.NewString(),
		RoomID:     roomID,
		SenderID:   senderID,
		Ciphertext: ciphertext,
		IV:         iv,
		SentAt:     time.Now().UTC(),
	}
	if err := s.publisher.PublishSend(ctx, job); err != nil {
		return PendingMessage{}, err
	}

	return PendingMessage{
		JobID:    job.JobID,
		RoomID:   roomID,
		SenderID: senderID,
		Text:     text,
		SentAt:   job.SentAt,
	}, nil
}
