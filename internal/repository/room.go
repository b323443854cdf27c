package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cleversamer/chatting-app/internal/domain"
	"github.com/cleversamer/chatting-app/pkg/apperr"
	"github.com/cleversamer/chatting-app/pkg/logger"
)

type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Room, error)
	GetByName(ctx context.Context, name string) (*domain.Room, error)
	CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error)
	ListPublic(ctx context.Context, skip, limit int) ([]*domain.Room, error)
	SearchByName(ctx context.Context, query string, limit int) ([]*domain.Room, error)
	AddMember(ctx context.Context, roomID, userID uuid.UUID) error
	RemoveMembers(ctx context.Context, roomID uuid.UUID, userIDs []uuid.UUID) error
	SetBlocked(ctx context.Context, roomID uuid.UUID, userIDs []uuid.UUID, blocked bool) error
	SetChatDisabled(ctx context.Context, roomID uuid.UUID, disabled bool) error
	SetShowName(ctx context.Context, roomID uuid.UUID, visible bool) error
	AddPinned(ctx context.Context, roomID, messageID uuid.UUID) error
	RemovePinned(ctx context.Context, roomID, messageID uuid.UUID) error
	ClearPinned(ctx context.Context, roomID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type roomRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewRoomRepository(db *pgxpool.Pool, log logger.Logger) RoomRepository {
	return &roomRepository{db: db, log: log}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (r *roomRepository) Create(ctx context.Context, room *domain.Room) error {
	query := `
		INSERT INTO rooms (id, name, owner_id, visibility, join_code, chat_disabled, show_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		room.ID, room.Name, room.OwnerID, room.Visibility, room.JoinCode,
		room.ChatDisabled, room.ShowName, room.CreatedAt, room.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("room", "room name already exists")
		}
		r.log.Error("failed to create room", "error", err)
		return apperr.Storage("room", err)
	}

	return nil
}

func (r *roomRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

func (r *roomRepository) GetByName(ctx context.Context, name string) (*domain.Room, error) {
	return r.get(ctx, `WHERE name = $1`, name)
}

func (r *roomRepository) get(ctx context.Context, where string, arg interface{}) (*domain.Room, error) {
	query := `
		SELECT id, name, owner_id, visibility, join_code, chat_disabled, show_name, created_at, updated_at
		FROM rooms ` + where

	room := &domain.Room{}
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&room.ID, &room.Name, &room.OwnerID, &room.Visibility, &room.JoinCode,
		&room.ChatDisabled, &room.ShowName, &room.CreatedAt, &room.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("room")
		}
		r.log.Error("failed to get room", "error", err)
		return nil, apperr.Storage("room", err)
	}

	if err := r.loadLists(ctx, room); err != nil {
		return nil, err
	}

	return room, nil
}

// loadLists hydrates the member, block and pinned lists. Members keep join
// order; pins keep newest-first order.
func (r *roomRepository) loadLists(ctx context.Context, room *domain.Room) error {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, blocked FROM room_members
		WHERE room_id = $1
		ORDER BY joined_at, user_id
	`, room.ID)
	if err != nil {
		r.log.Error("failed to load room members", "error", err)
		return apperr.Storage("room", err)
	}
	defer rows.Close()

	room.Members = nil
	room.BlockList = nil
	for rows.Next() {
		var userID uuid.UUID
		var blocked bool
		if err := rows.Scan(&userID, &blocked); err != nil {
			return apperr.Storage("room", err)
		}
		room.Members = append(room.Members, userID)
		if blocked {
			room.BlockList = append(room.BlockList, userID)
		}
	}
	if err := rows.Err(); err != nil {
		return apperr.Storage("room", err)
	}

	pinRows, err := r.db.Query(ctx, `
		SELECT message_id FROM room_pins
		WHERE room_id = $1
		ORDER BY pinned_at DESC, message_id
	`, room.ID)
	if err != nil {
		r.log.Error("failed to load pinned messages", "error", err)
		return apperr.Storage("room", err)
	}
	defer pinRows.Close()

	room.PinnedMessages = nil
	for pinRows.Next() {
		var messageID uuid.UUID
		if err := pinRows.Scan(&messageID); err != nil {
			return apperr.Storage("room", err)
		}
		room.PinnedMessages = append(room.PinnedMessages, messageID)
	}
	return pinRows.Err()
}

func (r *roomRepository) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM rooms WHERE owner_id = $1`, ownerID).Scan(&count)
	if err != nil {
		r.log.Error("failed to count owned rooms", "error", err)
		return 0, apperr.Storage("room", err)
	}
	return count, nil
}

func (r *roomRepository) ListPublic(ctx context.Context, skip, limit int) ([]*domain.Room, error) {
	return r.list(ctx, `
		SELECT id, name, owner_id, visibility, join_code, chat_disabled, show_name, created_at, updated_at
		FROM rooms
		WHERE visibility = 'public'
		ORDER BY created_at, id
		OFFSET $1 LIMIT $2
	`, skip, limit)
}

func (r *roomRepository) SearchByName(ctx context.Context, query string, limit int) ([]*domain.Room, error) {
	return r.list(ctx, `
		SELECT id, name, owner_id, visibility, join_code, chat_disabled, show_name, created_at, updated_at
		FROM rooms
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY name
		LIMIT $2
	`, query, limit)
}

func (r *roomRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Room, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("failed to list rooms", "error", err)
		return nil, apperr.Storage("room", err)
	}
	defer rows.Close()

	var rooms []*domain.Room
	for rows.Next() {
		room := &domain.Room{}
		if err := rows.Scan(
			&room.ID, &room.Name, &room.OwnerID, &room.Visibility, &room.JoinCode,
			&room.ChatDisabled, &room.ShowName, &room.CreatedAt, &room.UpdatedAt,
		); err != nil {
			return nil, apperr.Storage("room", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("room", err)
	}

	for _, room := range rooms {
		if err := r.loadLists(ctx, room); err != nil {
			return nil, err
		}
	}
	return rooms, nil
}

func (r *roomRepository) AddMember(ctx context.Context, roomID, userID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO room_members (room_id, user_id, blocked, joined_at)
		VALUES ($1, $2, false, $3)
	`, roomID, userID, time.Now())
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("room", "user already joined this room")
		}
		r.log.Error("failed to add member", "error", err)
		return apperr.Storage("room", err)
	}
	return nil
}

func (r *roomRepository) RemoveMembers(ctx context.Context, roomID uuid.UUID, userIDs []uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM room_members WHERE room_id = $1 AND user_id = ANY($2)
	`, roomID, userIDs)
	if err != nil {
		r.log.Error("failed to remove members", "error", err)
		return apperr.Storage("room", err)
	}
	return nil
}

func (r *roomRepository) SetBlocked(ctx context.Context, roomID uuid.UUID, userIDs []uuid.UUID, blocked bool) error {
	_, err := r.db.Exec(ctx, `
		UPDATE room_members SET blocked = $3 WHERE room_id = $1 AND user_id = ANY($2)
	`, roomID, userIDs, blocked)
	if err != nil {
		r.log.Error("failed to update block list", "error", err)
		return apperr.Storage("room", err)
	}
	return nil
}

func (r *roomRepository) SetChatDisabled(ctx context.Context, roomID uuid.UUID, disabled bool) error {
	return r.setFlag(ctx, roomID, "chat_disabled", disabled)
}

func (r *roomRepository) SetShowName(ctx context.Context, roomID uuid.UUID, visible bool) error {
	return r.setFlag(ctx, roomID, "show_name", visible)
}

func (r *roomRepository) setFlag(ctx context.Context, roomID uuid.UUID, column string, value bool) error {
	_, err := r.db.Exec(ctx,
		`UPDATE rooms SET `+column+` = $2, updated_at = $3 WHERE id = $1`,
		roomID, value, time.Now(),
	)
	if err != nil {
		r.log.Error("failed to update room flag", "column", column, "error", err)
		return apperr.Storage("room", err)
	}
	return nil
}

func (r *roomRepository) AddPinned(ctx context.Context, roomID, messageID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO room_pins (room_id, message_id, pinned_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (room_id, message_id) DO UPDATE SET pinned_at = EXCLUDED.pinned_at
	`, roomID, messageID, time.Now())
	if err != nil {
		r.log.Error("failed to pin message", "error", err)
		return apperr.Storage("room", err)
	}
	return nil
}

func (r *roomRepository) RemovePinned(ctx context.Context, roomID, messageID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM room_pins WHERE room_id = $1 AND message_id = $2`, roomID, messageID)
	if err != nil {
		r.log.Error("failed to unpin message", "error", err)
		return apperr.Storage("room", err)
	}
	return nil
}

func (r *roomRepository) ClearPinned(ctx context.Context, roomID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM room_pins WHERE room_id = $1`, roomID)
	if err != nil {
		r.log.Error("failed to clear pinned messages", "error", err)
		return apperr.Storage("room", err)
	}
	return nil
}

func (r *roomRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		r.log.Error("failed to delete room", "error", err)
		return apperr.Storage("room", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("room")
	}
	return nil
}
