package memory

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/cleversamer/chatting-app/internal/domain"
	"github.com/cleversamer/chatting-app/internal/repository"
	"github.com/cleversamer/chatting-app/pkg/apperr"
)

type roomRepository struct {
	db *DB
}

func NewRoomRepository(db *DB) repository.RoomRepository {
	return &roomRepository{db: db}
}

func copyRoom(r *domain.Room) *domain.Room {
	cp := *r
	cp.Members = copyIDs(r.Members)
	cp.BlockList = copyIDs(r.BlockList)
	cp.PinnedMessages = copyIDs(r.PinnedMessages)
	return &cp
}

func (r *roomRepository) Create(ctx context.Context, room *domain.Room) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.rooms {
		if existing.Name == room.Name {
			return apperr.Conflict("room", "room name already exists")
		}
	}

	r.db.rooms[room.ID] = copyRoom(room)
	r.db.roomOrder = append(r.db.roomOrder, room.ID)
	return nil
}

func (r *roomRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	room, ok := r.db.rooms[id]
	if !ok {
		return nil, apperr.NotFound("room")
	}
	return copyRoom(room), nil
}

func (r *roomRepository) GetByName(ctx context.Context, name string) (*domain.Room, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, id := range r.db.roomOrder {
		if room, ok := r.db.rooms[id]; ok && room.Name == name {
			return copyRoom(room), nil
		}
	}
	return nil, apperr.NotFound("room")
}

func (r *roomRepository) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	count := 0
	for _, room := range r.db.rooms {
		if room.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

func (r *roomRepository) ListPublic(ctx context.Context, skip, limit int) ([]*domain.Room, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []*domain.Room
	for _, id := range r.db.roomOrder {
		room, ok := r.db.rooms[id]
		if !ok || room.Visibility != domain.VisibilityPublic {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		out = append(out, copyRoom(room))
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *roomRepository) SearchByName(ctx context.Context, query string, limit int) ([]*domain.Room, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	query = strings.ToLower(query)
	var out []*domain.Room
	for _, id := range r.db.roomOrder {
		room, ok := r.db.rooms[id]
		if !ok || !strings.Contains(strings.ToLower(room.Name), query) {
			continue
		}
		out = append(out, copyRoom(room))
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *roomRepository) AddMember(ctx context.Context, roomID, userID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	room, ok := r.db.rooms[roomID]
	if !ok {
		return apperr.NotFound("room")
	}
	if containsID(room.Members, userID) {
		return apperr.Conflict("room", "user already joined this room")
	}
	room.Members = append(room.Members, userID)
	return nil
}

func (r *roomRepository) RemoveMembers(ctx context.Context, roomID uuid.UUID, userIDs []uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	room, ok := r.db.rooms[roomID]
	if !ok {
		return apperr.NotFound("room")
	}
	for _, id := range userIDs {
		room.Members = removeID(room.Members, id)
		room.BlockList = removeID(room.BlockList, id)
	}
	return nil
}

func (r *roomRepository) SetBlocked(ctx context.Context, roomID uuid.UUID, userIDs []uuid.UUID, blocked bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	room, ok := r.db.rooms[roomID]
	if !ok {
		return apperr.NotFound("room")
	}
	for _, id := range userIDs {
		if !containsID(room.Members, id) {
			continue
		}
		if blocked {
			if !containsID(room.BlockList, id) {
				room.BlockList = append(room.BlockList, id)
			}
		} else {
			room.BlockList = removeID(room.BlockList, id)
		}
	}
	return nil
}

func (r *roomRepository) SetChatDisabled(ctx context.Context, roomID uuid.UUID, disabled bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	room, ok := r.db.rooms[roomID]
	if !ok {
		return apperr.NotFound("room")
	}
	room.ChatDisabled = disabled
	return nil
}

func (r *roomRepository) SetShowName(ctx context.Context, roomID uuid.UUID, visible bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	room, ok := r.db.rooms[roomID]
	if !ok {
		return apperr.NotFound("room")
	}
	room.ShowName = visible
	return nil
}

func (r *roomRepository) AddPinned(ctx context.Context, roomID, messageID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	room, ok := r.db.rooms[roomID]
	if !ok {
		return apperr.NotFound("room")
	}
	room.PinnedMessages = removeID(room.PinnedMessages, messageID)
	room.PinnedMessages = append([]uuid.UUID{messageID}, room.PinnedMessages...)
	return nil
}

func (r *roomRepository) RemovePinned(ctx context.Context, roomID, messageID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	room, ok := r.db.rooms[roomID]
	if !ok {
		return apperr.NotFound("room")
	}
	room.PinnedMessages = removeID(room.PinnedMessages, messageID)
	return nil
}

func (r *roomRepository) ClearPinned(ctx context.Context, roomID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	room, ok := r.db.rooms[roomID]
	if !ok {
		return apperr.NotFound("room")
	}
	room.PinnedMessages = nil
	return nil
}

func (r *roomRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.rooms[id]; !ok {
		return apperr.NotFound("room")
	}
	delete(r.db.rooms, id)
	r.db.roomOrder = removeID(r.db.roomOrder, id)
	return nil
}
