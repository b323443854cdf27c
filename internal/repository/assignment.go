package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cleversamer/chatting-app/internal/domain"
	"github.com/cleversamer/chatting-app/pkg/apperr"
	"github.com/cleversamer/chatting-app/pkg/logger"
)

type AssignmentRepository interface {
	Create(ctx context.Context, a *domain.Assignment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Assignment, error)
	SetExpiry(ctx context.Context, id uuid.UUID, expiresAt time.Time) error
	// IncrementSubmissionCount bumps the cached counter atomically at the
	// statement level.
	IncrementSubmissionCount(ctx context.Context, id uuid.UUID) error
	ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.Assignment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type assignmentRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewAssignmentRepository(db *pgxpool.Pool, log logger.Logger) AssignmentRepository {
	return &assignmentRepository{db: db, log: log}
}

func (r *assignmentRepository) Create(ctx context.Context, a *domain.Assignment) error {
	file, err := json.Marshal(a.File)
	if err != nil {
		return apperr.Storage("assignment", err)
	}

	query := `
		INSERT INTO assignments (id, room_id, title, file, submission_count, start_at, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.Exec(ctx, query,
		a.ID, a.RoomID, a.Title, file, a.SubmissionCount, a.StartAt, a.CreatedAt, a.ExpiresAt,
	)
	if err != nil {
		r.log.Error("failed to create assignment", "error", err)
		return apperr.Storage("assignment", err)
	}
	return nil
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Assignment, error) {
	query := `
		SELECT id, room_id, title, file, submission_count, start_at, created_at, expires_at
		FROM assignments
		WHERE id = $1
	`
	a, err := r.scanOne(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("assignment")
		}
		r.log.Error("failed to get assignment", "error", err)
		return nil, apperr.Storage("assignment", err)
	}
	return a, nil
}

func (r *assignmentRepository) scanOne(row pgx.Row) (*domain.Assignment, error) {
	a := &domain.Assignment{}
	var file []byte
	if err := row.Scan(
		&a.ID, &a.RoomID, &a.Title, &file, &a.SubmissionCount, &a.StartAt, &a.CreatedAt, &a.ExpiresAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(file, &a.File); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *assignmentRepository) SetExpiry(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE assignments SET expires_at = $2 WHERE id = $1`, id, expiresAt)
	if err != nil {
		r.log.Error("failed to update assignment expiry", "error", err)
		return apperr.Storage("assignment", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("assignment")
	}
	return nil
}

func (r *assignmentRepository) IncrementSubmissionCount(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`UPDATE assignments SET submission_count = submission_count + 1 WHERE id = $1`, id)
	if err != nil {
		r.log.Error("failed to increment submission count", "error", err)
		return apperr.Storage("assignment", err)
	}
	return nil
}

func (r *assignmentRepository) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.Assignment, error) {
	query := `
		SELECT id, room_id, title, file, submission_count, start_at, created_at, expires_at
		FROM assignments
		WHERE room_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.Query(ctx, query, roomID)
	if err != nil {
		r.log.Error("failed to list room assignments", "error", err)
		return nil, apperr.Storage("assignment", err)
	}
	defer rows.Close()

	var out []*domain.Assignment
	for rows.Next() {
		a, err := r.scanOne(rows)
		if err != nil {
			return nil, apperr.Storage("assignment", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("assignment", err)
	}
	return out, nil
}

func (r *assignmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		r.log.Error("failed to delete assignment", "error", err)
		return apperr.Storage("assignment", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("assignment")
	}
	return nil
}
