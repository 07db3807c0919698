package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"staff-chat/internal/crypto"
	"staff-chat/internal/models"
)

var (
	ErrRoomNotFound         = errors.New("room not found")
	ErrNotParticipant       = errors.New("not a room participant")
	ErrNotAuthorized        = errors.New("not authorized for this room operation")
	ErrDuplicateParticipant = errors.New("participant already in room")
	ErrLastAdmin            = errors.New("group must keep at least one admin")
)

// RoomRepository abstracts room and membership persistence. Encryption keys
// are minted here at room creation and are not reachable through any other
// component.
type RoomRepository interface {
	CreateGroupRoom(ctx context.Context, creatorID int, name string, memberIDs []int) (models.Room, error)
	FindOrCreatePrivateRoom(ctx context.Context, callerID, peerID int) (models.Room, error)
	FindOrCreateStoreRoom(ctx context.Context, storeID int, name string, memberIDs []int) (models.Room, error)
	GetRoom(ctx context.Context, roomID int) (models.Room, error)
	GetParticipant(ctx context.Context, roomID, employeeID int) (models.Participant, error)
	IsParticipant(ctx context.Context, roomID, employeeID int) (bool, error)
	ListParticipants(ctx context.Context, roomID int) ([]models.Participant, error)
	ListRoomsForEmployee(ctx context.Context, employeeID int) ([]models.RoomSummary, error)
	AddParticipants(ctx context.Context, roomID, actorID int, employeeIDs []int) error
	RemoveParticipant(ctx context.Context, roomID, actorID, employeeID int) error
	SetAdmin(ctx context.Context, roomID, actorID, employeeID int, isAdmin bool) error
	UpdateRoomName(ctx context.Context, roomID, actorID int, name string) error
	DeleteRoom(ctx context.Context, roomID, actorID int) error
	HideRoomForEmployee(ctx context.Context, roomID, employeeID int) error
	MarkRead(ctx context.Context, roomID, employeeID int) error
}

// RoomRepo is a sqlx implementation of RoomRepository.
type RoomRepo struct {
	db *sqlx.DB
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(db *sqlx.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

const roomColumns = `id, type, name, store_id, encryption_key, created_at`

// CreateGroupRoom creates a group room and its participants atomically. The
// creator is always enrolled as admin so the admin invariant holds from the
// first row.
func (r *RoomRepo) CreateGroupRoom(ctx context.Context, creatorID int, name string, memberIDs []int) (models.Room, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return models.Room{}, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Room{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var room models.Room
	if err = tx.QueryRowxContext(ctx,
		`INSERT INTO chat_rooms (type, name, encryption_key) VALUES ('group', $1, $2) RETURNING `+roomColumns,
		name, key).StructScan(&room); err != nil {
		return models.Room{}, err
	}

	// dedupe members and ensure the creator is present
	memberSet := map[int]struct{}{creatorID: {}}
	for _, id := range memberIDs {
		memberSet[id] = struct{}{}
	}
	ids := make([]int, 0, len(memberSet))
	for id := range memberSet {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO chat_room_participants (room_id, employee_id, is_admin) VALUES ($1, $2, $3)`,
			room.ID, id, id == creatorID); err != nil {
			return models.Room{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Room{}, err
	}
	return room, nil
}

// FindOrCreatePrivateRoom returns the private room whose participant set is
// exactly {caller, peer}, creating it on first contact. If the caller had
// soft-deleted the room it is made visible again; the deleted_at history
// cursor is left in place so previously discarded messages stay hidden.
func (r *RoomRepo) FindOrCreatePrivateRoom(ctx context.Context, callerID, peerID int) (models.Room, error) {
	if callerID == peerID {
		return models.Room{}, errors.New("cannot create private room with self")
	}
	pair := []int{callerID, peerID}
	sort.Ints(pair)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Room{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	// serialize concurrent find-or-create for the same pair
	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, pair[0], pair[1]); err != nil {
		return models.Room{}, err
	}

	var room models.Room
	err = tx.GetContext(ctx, &room, `SELECT r.`+roomColumns+` FROM chat_rooms r
        JOIN chat_room_participants pa ON pa.room_id = r.id AND pa.employee_id = $1
        JOIN chat_room_participants pb ON pb.room_id = r.id AND pb.employee_id = $2
        WHERE r.type = 'private'`, callerID, peerID)
	if err != nil && err != sql.ErrNoRows {
		return models.Room{}, err
	}

	if err == sql.ErrNoRows {
		var key string
		key, err = crypto.GenerateKey()
		if err != nil {
			return models.Room{}, err
		}
		if err = tx.QueryRowxContext(ctx,
			`INSERT INTO chat_rooms (type, encryption_key) VALUES ('private', $1) RETURNING `+roomColumns,
			key).StructScan(&room); err != nil {
			return models.Room{}, err
		}
		for _, id := range pair {
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO chat_room_participants (room_id, employee_id) VALUES ($1, $2)`, room.ID, id); err != nil {
				return models.Room{}, err
			}
		}
	} else {
		if _, err = tx.ExecContext(ctx,
			`UPDATE chat_room_participants SET hidden = FALSE WHERE room_id = $1 AND employee_id = $2`,
			room.ID, callerID); err != nil {
			return models.Room{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Room{}, err
	}
	return room, nil
}

// FindOrCreateStoreRoom lazily creates the single store-wide room and enrolls
// the current store members. Idempotent: repeated calls return the same room
// and only add members not yet enrolled.
func (r *RoomRepo) FindOrCreateStoreRoom(ctx context.Context, storeID int, name string, memberIDs []int) (models.Room, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Room{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var room models.Room
	err = tx.GetContext(ctx, &room,
		`SELECT `+roomColumns+` FROM chat_rooms WHERE type = 'store' AND store_id = $1`, storeID)
	if errors.Is(err, sql.ErrNoRows) {
		// key material is minted only when the room is actually created
		var key string
		key, err = crypto.GenerateKey()
		if err != nil {
			return models.Room{}, err
		}
		// the partial unique index on store_id makes this race-safe
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO chat_rooms (type, name, store_id, encryption_key) VALUES ('store', $1, $2, $3)
             ON CONFLICT (store_id) WHERE type = 'store' DO NOTHING`, name, storeID, key); err != nil {
			return models.Room{}, err
		}
		err = tx.GetContext(ctx, &room,
			`SELECT `+roomColumns+` FROM chat_rooms WHERE type = 'store' AND store_id = $1`, storeID)
	}
	if err != nil {
		return models.Room{}, err
	}

	for _, id := range memberIDs {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO chat_room_participants (room_id, employee_id) VALUES ($1, $2)
             ON CONFLICT (room_id, employee_id) DO NOTHING`, room.ID, id); err != nil {
			return models.Room{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Room{}, err
	}
	return room, nil
}

// GetRoom fetches a room by id, including its encryption key.
func (r *RoomRepo) GetRoom(ctx context.Context, roomID int) (models.Room, error) {
	var room models.Room
	err := r.db.GetContext(ctx, &room, `SELECT `+roomColumns+` FROM chat_rooms WHERE id = $1`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, ErrRoomNotFound
	}
	return room, err
}

// GetParticipant fetches one membership row with its cursors.
func (r *RoomRepo) GetParticipant(ctx context.Context, roomID, employeeID int) (models.Participant, error) {
	var p models.Participant
	err := r.db.GetContext(ctx, &p,
		`SELECT room_id, employee_id, is_admin, last_read, deleted_at, hidden, joined_at
         FROM chat_room_participants WHERE room_id = $1 AND employee_id = $2`, roomID, employeeID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Participant{}, ErrNotParticipant
	}
	return p, err
}

// IsParticipant checks whether an employee belongs to the room.
func (r *RoomRepo) IsParticipant(ctx context.Context, roomID, employeeID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM chat_room_participants WHERE room_id = $1 AND employee_id = $2)`,
		roomID, employeeID)
	return exists, err
}

// ListParticipants returns all membership rows of a room.
func (r *RoomRepo) ListParticipants(ctx context.Context, roomID int) ([]models.Participant, error) {
	var participants []models.Participant
	err := r.db.SelectContext(ctx, &participants,
		`SELECT room_id, employee_id, is_admin, last_read, deleted_at, hidden, joined_at
         FROM chat_room_participants WHERE room_id = $1 ORDER BY joined_at ASC`, roomID)
	return participants, err
}

// ListRoomsForEmployee returns rooms visible to the employee. A hidden room
// reappears once a message newer than the deleted_at cursor exists.
func (r *RoomRepo) ListRoomsForEmployee(ctx context.Context, employeeID int) ([]models.RoomSummary, error) {
	query := `SELECT r.id, r.type, r.name, r.store_id, p.is_admin, r.created_at,
            CASE WHEN r.type = 'private' THEN
                (SELECT p2.employee_id FROM chat_room_participants p2
                 WHERE p2.room_id = r.id AND p2.employee_id <> $1 LIMIT 1)
            END AS peer_id
        FROM chat_rooms r
        JOIN chat_room_participants p ON p.room_id = r.id AND p.employee_id = $1
        WHERE NOT p.hidden
           OR EXISTS (SELECT 1 FROM messages m
                      WHERE m.chat_room_id = r.id
                        AND m.created_at > COALESCE(p.deleted_at, 'epoch'))
        ORDER BY r.created_at DESC`
	var summaries []models.RoomSummary
	err := r.db.SelectContext(ctx, &summaries, query, employeeID)
	return summaries, err
}

// AddParticipants adds employees to a group room. Only group admins may add;
// an already-present employee yields ErrDuplicateParticipant.
func (r *RoomRepo) AddParticipants(ctx context.Context, roomID, actorID int, employeeIDs []int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = r.requireGroupAdmin(ctx, tx, roomID, actorID); err != nil {
		return err
	}

	for _, id := range employeeIDs {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO chat_room_participants (room_id, employee_id) VALUES ($1, $2)`, roomID, id); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				err = fmt.Errorf("%w: employee %d", ErrDuplicateParticipant, id)
			}
			return err
		}
	}

	return tx.Commit()
}

// RemoveParticipant removes an employee from a group room. Admins may remove
// anyone; a non-admin may only leave. Removing the last admin promotes the
// longest-standing remaining member; removing the last member deletes the
// room.
func (r *RoomRepo) RemoveParticipant(ctx context.Context, roomID, actorID, employeeID int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var room models.Room
	if err = tx.GetContext(ctx, &room, `SELECT `+roomColumns+` FROM chat_rooms WHERE id = $1 FOR UPDATE`, roomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrRoomNotFound
		}
		return err
	}
	if room.Type != models.RoomTypeGroup {
		err = fmt.Errorf("%w: membership of %s rooms is fixed", ErrNotAuthorized, room.Type)
		return err
	}

	if actorID != employeeID {
		if err = r.requireAdmin(ctx, tx, roomID, actorID); err != nil {
			return err
		}
	}

	var target models.Participant
	if err = tx.GetContext(ctx, &target,
		`SELECT room_id, employee_id, is_admin, last_read, deleted_at, hidden, joined_at
         FROM chat_room_participants WHERE room_id = $1 AND employee_id = $2`, roomID, employeeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrNotParticipant
		}
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`DELETE FROM chat_room_participants WHERE room_id = $1 AND employee_id = $2`, roomID, employeeID); err != nil {
		return err
	}

	var remaining int
	if err = tx.GetContext(ctx, &remaining,
		`SELECT COUNT(*) FROM chat_room_participants WHERE room_id = $1`, roomID); err != nil {
		return err
	}
	if remaining == 0 {
		if _, err = tx.ExecContext(ctx, `DELETE FROM chat_rooms WHERE id = $1`, roomID); err != nil {
			return err
		}
		return tx.Commit()
	}

	if target.IsAdmin {
		var admins int
		if err = tx.GetContext(ctx, &admins,
			`SELECT COUNT(*) FROM chat_room_participants WHERE room_id = $1 AND is_admin`, roomID); err != nil {
			return err
		}
		if admins == 0 {
			if _, err = tx.ExecContext(ctx,
				`UPDATE chat_room_participants SET is_admin = TRUE
                 WHERE room_id = $1 AND employee_id = (
                     SELECT employee_id FROM chat_room_participants
                     WHERE room_id = $1 ORDER BY joined_at ASC, employee_id ASC LIMIT 1)`, roomID); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// SetAdmin grants or revokes the admin flag on a group participant. Demoting
// the only remaining admin is rejected.
func (r *RoomRepo) SetAdmin(ctx context.Context, roomID, actorID, employeeID int, isAdmin bool) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = r.requireGroupAdmin(ctx, tx, roomID, actorID); err != nil {
		return err
	}

	if !isAdmin {
		var otherAdmins int
		if err = tx.GetContext(ctx, &otherAdmins,
			`SELECT COUNT(*) FROM chat_room_participants
             WHERE room_id = $1 AND is_admin AND employee_id <> $2`, roomID, employeeID); err != nil {
			return err
		}
		if otherAdmins == 0 {
			err = ErrLastAdmin
			return err
		}
	}

	var res sql.Result
	if res, err = tx.ExecContext(ctx,
		`UPDATE chat_room_participants SET is_admin = $3 WHERE room_id = $1 AND employee_id = $2`,
		roomID, employeeID, isAdmin); err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		err = ErrNotParticipant
		return err
	}

	return tx.Commit()
}

// UpdateRoomName renames a group room (admin only).
func (r *RoomRepo) UpdateRoomName(ctx context.Context, roomID, actorID int, name string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = r.requireGroupAdmin(ctx, tx, roomID, actorID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `UPDATE chat_rooms SET name = $2 WHERE id = $1`, roomID, name); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteRoom structurally deletes a group room; participants and messages go
// with it via cascading foreign keys. Private and store rooms are never
// hard-deleted.
func (r *RoomRepo) DeleteRoom(ctx context.Context, roomID, actorID int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = r.requireGroupAdmin(ctx, tx, roomID, actorID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM chat_rooms WHERE id = $1`, roomID); err != nil {
		return err
	}
	return tx.Commit()
}

// HideRoomForEmployee soft-deletes the room for one participant: the room
// drops from their list and messages up to now are hidden from them. Other
// participants are unaffected.
func (r *RoomRepo) HideRoomForEmployee(ctx context.Context, roomID, employeeID int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE chat_room_participants SET hidden = TRUE, deleted_at = NOW()
         WHERE room_id = $1 AND employee_id = $2`, roomID, employeeID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotParticipant
	}
	return nil
}

// MarkRead advances the viewer's last_read cursor to now. Idempotent.
func (r *RoomRepo) MarkRead(ctx context.Context, roomID, employeeID int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE chat_room_participants SET last_read = NOW()
         WHERE room_id = $1 AND employee_id = $2`, roomID, employeeID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotParticipant
	}
	return nil
}

func (r *RoomRepo) requireGroupAdmin(ctx context.Context, tx *sqlx.Tx, roomID, actorID int) error {
	var roomType models.RoomType
	err := tx.GetContext(ctx, &roomType, `SELECT type FROM chat_rooms WHERE id = $1 FOR UPDATE`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRoomNotFound
	}
	if err != nil {
		return err
	}
	if roomType != models.RoomTypeGroup {
		return fmt.Errorf("%w: operation is group-only", ErrNotAuthorized)
	}
	return r.requireAdmin(ctx, tx, roomID, actorID)
}

func (r *RoomRepo) requireAdmin(ctx context.Context, tx *sqlx.Tx, roomID, actorID int) error {
	var isAdmin bool
	err := tx.GetContext(ctx, &isAdmin,
		`SELECT is_admin FROM chat_room_participants WHERE room_id = $1 AND employee_id = $2`, roomID, actorID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotParticipant
	}
	if err != nil {
		return err
	}
	if !isAdmin {
		return ErrNotAuthorized
	}
	return nil
}
