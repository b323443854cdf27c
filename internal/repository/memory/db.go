// Package memory implements the repository interfaces over mutex-guarded
// maps. It backs the service tests and mirrors the storage-level guarantees
// the postgres implementations give: unique room names, unique
// (room, member) pairs and unique (assignment, author) submissions.
package memory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/cleversamer/chatting-app/internal/domain"
)

type DB struct {
	mu sync.RWMutex

	users       map[uuid.UUID]*domain.User
	rooms       map[uuid.UUID]*domain.Room
	roomOrder   []uuid.UUID
	messages    map[uuid.UUID]*domain.Message
	msgOrder    []uuid.UUID
	assignments map[uuid.UUID]*domain.Assignment
	asgOrder    []uuid.UUID
	submissions map[uuid.UUID]*domain.Submission
	subOrder    []uuid.UUID
}

func Open() *DB {
	return &DB{
		users:       make(map[uuid.UUID]*domain.User),
		rooms:       make(map[uuid.UUID]*domain.Room),
		messages:    make(map[uuid.UUID]*domain.Message),
		assignments: make(map[uuid.UUID]*domain.Assignment),
		submissions: make(map[uuid.UUID]*domain.Submission),
	}
}

func copyIDs(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return nil
	}
	out := make([]uuid.UUID, len(ids))
	copy(out, ids)
	return out
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
