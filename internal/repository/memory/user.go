package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/cleversamer/chatting-app/internal/domain"
	"github.com/cleversamer/chatting-app/internal/repository"
	"github.com/cleversamer/chatting-app/pkg/apperr"
)

type userRepository struct {
	db *DB
}

func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{db: db}
}

func copyUser(u *domain.User) *domain.User {
	cp := *u
	cp.JoinedRooms = copyIDs(u.JoinedRooms)
	cp.CreatedRooms = copyIDs(u.CreatedRooms)
	return &cp
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.users {
		if existing.Email == u.Email {
			return apperr.Conflict("user", "email already registered")
		}
	}
	r.db.users[u.ID] = copyUser(u)
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	u, ok := r.db.users[id]
	if !ok {
		return nil, apperr.NotFound("user")
	}
	return copyUser(u), nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, u := range r.db.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, apperr.NotFound("user")
}

func (r *userRepository) AddJoinedRoom(ctx context.Context, userID, roomID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[userID]
	if !ok {
		return apperr.NotFound("user")
	}
	if !containsID(u.JoinedRooms, roomID) {
		u.JoinedRooms = append(u.JoinedRooms, roomID)
	}
	return nil
}

func (r *userRepository) RemoveJoinedRoom(ctx context.Context, userID, roomID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[userID]
	if !ok {
		return apperr.NotFound("user")
	}
	u.JoinedRooms = removeID(u.JoinedRooms, roomID)
	return nil
}

func (r *userRepository) AddCreatedRoom(ctx context.Context, userID, roomID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[userID]
	if !ok {
		return apperr.NotFound("user")
	}
	if !containsID(u.CreatedRooms, roomID) {
		u.CreatedRooms = append(u.CreatedRooms, roomID)
	}
	return nil
}

func (r *userRepository) RemoveCreatedRoom(ctx context.Context, userID, roomID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[userID]
	if !ok {
		return apperr.NotFound("user")
	}
	u.CreatedRooms = removeID(u.CreatedRooms, roomID)
	return nil
}

func (r *userRepository) GetProfiles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Profile, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	profiles := make(map[uuid.UUID]domain.Profile, len(ids))
	for _, id := range ids {
		if u, ok := r.db.users[id]; ok {
			profiles[id] = u.Profile()
		}
	}
	return profiles, nil
}
