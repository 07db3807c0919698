package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"staff-chat/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions with encrypted message rows. Rows
// are append-only: the queue worker inserts, everyone else reads.
type MessageRepository interface {
	InsertMessage(ctx context.Context, roomID, senderID int, ciphertext, iv, jobID string) (models.Message, error)
	ListMessages(ctx context.Context, roomID int) ([]models.Message, error)
	CountMessagesAfter(ctx context.Context, roomID, excludeSenderID int, after time.Time) (int, error)
}

// MessageRepo is a sqlx-backed implementation.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, chat_room_id, sender_id, ciphertext, iv, job_id, created_at`

// InsertMessage persists an encrypted message. created_at comes from the
// database, never from the client. Inserting the same job id twice returns
// the original row, which makes at-least-once queue delivery safe.
func (r *MessageRepo) InsertMessage(ctx context.Context, roomID, senderID int, ciphertext, iv, jobID string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (chat_room_id, sender_id, ciphertext, iv, job_id) VALUES ($1, $2, $3, $4, $5)
         ON CONFLICT (job_id) DO NOTHING
         RETURNING `+messageColumns, roomID, senderID, ciphertext, iv, jobID).StructScan(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		// duplicate delivery: the row already exists
		err = r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE job_id = $1`, jobID)
	}
	return msg, err
}

// ListMessages returns a room's messages ordered by creation time ascending.
func (r *MessageRepo) ListMessages(ctx context.Context, roomID int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages WHERE chat_room_id = $1 ORDER BY created_at ASC, id ASC`, roomID)
	return msgs, err
}

// CountMessagesAfter counts messages in the room newer than the cursor,
// excluding the viewer's own.
func (r *MessageRepo) CountMessagesAfter(ctx context.Context, roomID, excludeSenderID int, after time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM messages
         WHERE chat_room_id = $1 AND sender_id <> $2 AND created_at > $3`, roomID, excludeSenderID, after)
	return count, err
}
