package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cleversamer/chatting-app/internal/domain"
	"github.com/cleversamer/chatting-app/pkg/apperr"
	"github.com/cleversamer/chatting-app/pkg/logger"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	Update(ctx context.Context, msg *domain.Message) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.Message, error)
}

type messageRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewMessageRepository(db *pgxpool.Pool, log logger.Logger) MessageRepository {
	return &messageRepository{db: db, log: log}
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	payload, err := domain.MarshalPayload(msg.Payload)
	if err != nil {
		return apperr.Storage("message", err)
	}
	viewers, err := json.Marshal(msg.Viewers)
	if err != nil {
		return apperr.Storage("message", err)
	}

	query := `
		INSERT INTO messages (id, room_id, sender_id, type, payload, is_reply, replied_to, is_pinned, viewers, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.db.Exec(ctx, query,
		msg.ID, msg.RoomID, msg.SenderID, string(msg.Type), payload,
		msg.IsReply, msg.RepliedTo, msg.IsPinned, viewers, msg.CreatedAt,
	)
	if err != nil {
		r.log.Error("failed to create message", "error", err)
		return apperr.Storage("message", err)
	}
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT id, room_id, sender_id, type, payload, is_reply, replied_to, is_pinned, viewers, created_at
		FROM messages
		WHERE id = $1
	`
	msg, err := r.scanOne(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("message")
		}
		r.log.Error("failed to get message", "error", err)
		return nil, apperr.Storage("message", err)
	}
	return msg, nil
}

func (r *messageRepository) scanOne(row pgx.Row) (*domain.Message, error) {
	msg := &domain.Message{}
	var typ string
	var payload, viewers []byte
	if err := row.Scan(
		&msg.ID, &msg.RoomID, &msg.SenderID, &typ, &payload,
		&msg.IsReply, &msg.RepliedTo, &msg.IsPinned, &viewers, &msg.CreatedAt,
	); err != nil {
		return nil, err
	}

	msg.Type = domain.MessageType(typ)
	p, err := domain.UnmarshalPayload(msg.Type, payload)
	if err != nil {
		return nil, err
	}
	msg.Payload = p

	if len(viewers) > 0 {
		if err := json.Unmarshal(viewers, &msg.Viewers); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

func (r *messageRepository) Update(ctx context.Context, msg *domain.Message) error {
	payload, err := domain.MarshalPayload(msg.Payload)
	if err != nil {
		return apperr.Storage("message", err)
	}
	viewers, err := json.Marshal(msg.Viewers)
	if err != nil {
		return apperr.Storage("message", err)
	}

	query := `
		UPDATE messages
		SET payload = $2, is_reply = $3, replied_to = $4, is_pinned = $5, viewers = $6
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, msg.ID, payload, msg.IsReply, msg.RepliedTo, msg.IsPinned, viewers)
	if err != nil {
		r.log.Error("failed to update message", "error", err)
		return apperr.Storage("message", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("message")
	}
	return nil
}

func (r *messageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		r.log.Error("failed to delete message", "error", err)
		return apperr.Storage("message", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("message")
	}
	return nil
}

func (r *messageRepository) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.Message, error) {
	query := `
		SELECT id, room_id, sender_id, type, payload, is_reply, replied_to, is_pinned, viewers, created_at
		FROM messages
		WHERE room_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.Query(ctx, query, roomID)
	if err != nil {
		r.log.Error("failed to list room messages", "error", err)
		return nil, apperr.Storage("message", err)
	}
	defer rows.Close()

	var msgs []*domain.Message
	for rows.Next() {
		msg, err := r.scanOne(rows)
		if err != nil {
			return nil, apperr.Storage("message", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("message", err)
	}
	return msgs, nil
}
