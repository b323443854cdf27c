package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/cleversamer/chatting-app/internal/domain"
	"github.com/cleversamer/chatting-app/internal/repository"
	"github.com/cleversamer/chatting-app/pkg/apperr"
)

type messageRepository struct {
	db *DB
}

func NewMessageRepository(db *DB) repository.MessageRepository {
	return &messageRepository{db: db}
}

func copyMessage(m *domain.Message) *domain.Message {
	cp := *m
	cp.Viewers = copyIDs(m.Viewers)
	if m.RepliedTo != nil {
		id := *m.RepliedTo
		cp.RepliedTo = &id
	}
	if m.Payload != nil {
		data, err := domain.MarshalPayload(m.Payload)
		if err == nil {
			if p, err := domain.UnmarshalPayload(m.Type, data); err == nil {
				cp.Payload = p
			}
		}
	}
	return &cp
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.messages[msg.ID] = copyMessage(msg)
	r.db.msgOrder = append(r.db.msgOrder, msg.ID)
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	msg, ok := r.db.messages[id]
	if !ok {
		return nil, apperr.NotFound("message")
	}
	return copyMessage(msg), nil
}

func (r *messageRepository) Update(ctx context.Context, msg *domain.Message) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.messages[msg.ID]; !ok {
		return apperr.NotFound("message")
	}
	r.db.messages[msg.ID] = copyMessage(msg)
	return nil
}

func (r *messageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.messages[id]; !ok {
		return apperr.NotFound("message")
	}
	delete(r.db.messages, id)
	r.db.msgOrder = removeID(r.db.msgOrder, id)
	return nil
}

func (r *messageRepository) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.Message, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []*domain.Message
	for _, id := range r.db.msgOrder {
		if msg, ok := r.db.messages[id]; ok && msg.RoomID == roomID {
			out = append(out, copyMessage(msg))
		}
	}
	return out, nil
}
