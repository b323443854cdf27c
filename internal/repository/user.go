package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cleversamer/chatting-app/internal/domain"
	"github.com/cleversamer/chatting-app/pkg/apperr"
	"github.com/cleversamer/chatting-app/pkg/logger"
)

// UserRepository is the engine-facing slice of the user directory: lookups,
// profile projections and the joined/created room backlinks mutated alongside
// room membership.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	AddJoinedRoom(ctx context.Context, userID, roomID uuid.UUID) error
	RemoveJoinedRoom(ctx context.Context, userID, roomID uuid.UUID) error
	AddCreatedRoom(ctx context.Context, userID, roomID uuid.UUID) error
	RemoveCreatedRoom(ctx context.Context, userID, roomID uuid.UUID) error
	GetProfiles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Profile, error)
}

type userRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewUserRepository(db *pgxpool.Pool, log logger.Logger) UserRepository {
	return &userRepository{db: db, log: log}
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, email, firstname, lastname, nickname, avatar_url, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		u.ID, u.Email, u.FirstName, u.LastName, u.Nickname, u.AvatarURL, u.Role, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("user", "email already registered")
		}
		r.log.Error("failed to create user", "error", err)
		return apperr.Storage("user", err)
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.find(ctx, `WHERE id = $1`, id)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.find(ctx, `WHERE email = $1`, email)
}

func (r *userRepository) find(ctx context.Context, where string, arg interface{}) (*domain.User, error) {
	query := `
		SELECT id, email, firstname, lastname, nickname, avatar_url, role, created_at, updated_at
		FROM users ` + where

	u := &domain.User{}
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Nickname, &u.AvatarURL, &u.Role,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("user")
		}
		r.log.Error("failed to find user", "error", err)
		return nil, apperr.Storage("user", err)
	}

	u.JoinedRooms, err = r.roomLinks(ctx, u.ID, linkJoined)
	if err != nil {
		return nil, err
	}
	u.CreatedRooms, err = r.roomLinks(ctx, u.ID, linkCreated)
	if err != nil {
		return nil, err
	}
	return u, nil
}

const (
	linkJoined  = "joined"
	linkCreated = "created"
)

func (r *userRepository) roomLinks(ctx context.Context, userID uuid.UUID, kind string) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		SELECT room_id FROM user_rooms
		WHERE user_id = $1 AND kind = $2
		ORDER BY added_at, room_id
	`, userID, kind)
	if err != nil {
		r.log.Error("failed to load user room links", "error", err)
		return nil, apperr.Storage("user", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.Storage("user", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *userRepository) AddJoinedRoom(ctx context.Context, userID, roomID uuid.UUID) error {
	return r.addLink(ctx, userID, roomID, linkJoined)
}

func (r *userRepository) RemoveJoinedRoom(ctx context.Context, userID, roomID uuid.UUID) error {
	return r.removeLink(ctx, userID, roomID, linkJoined)
}

func (r *userRepository) AddCreatedRoom(ctx context.Context, userID, roomID uuid.UUID) error {
	return r.addLink(ctx, userID, roomID, linkCreated)
}

func (r *userRepository) RemoveCreatedRoom(ctx context.Context, userID, roomID uuid.UUID) error {
	return r.removeLink(ctx, userID, roomID, linkCreated)
}

func (r *userRepository) addLink(ctx context.Context, userID, roomID uuid.UUID, kind string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_rooms (user_id, room_id, kind, added_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
	`, userID, roomID, kind, time.Now())
	if err != nil {
		r.log.Error("failed to add user room link", "kind", kind, "error", err)
		return apperr.Storage("user", err)
	}
	return nil
}

func (r *userRepository) removeLink(ctx context.Context, userID, roomID uuid.UUID, kind string) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM user_rooms WHERE user_id = $1 AND room_id = $2 AND kind = $3
	`, userID, roomID, kind)
	if err != nil {
		r.log.Error("failed to remove user room link", "kind", kind, "error", err)
		return apperr.Storage("user", err)
	}
	return nil
}

func (r *userRepository) GetProfiles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Profile, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]domain.Profile{}, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, firstname, lastname, nickname, avatar_url, role
		FROM users
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		r.log.Error("failed to load user profiles", "error", err)
		return nil, apperr.Storage("user", err)
	}
	defer rows.Close()

	profiles := make(map[uuid.UUID]domain.Profile, len(ids))
	for rows.Next() {
		var p domain.Profile
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Nickname, &p.AvatarURL, &p.Role); err != nil {
			return nil, apperr.Storage("user", err)
		}
		profiles[p.ID] = p
	}
	return profiles, rows.Err()
}
