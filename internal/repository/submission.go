package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cleversamer/chatting-app/internal/domain"
	"github.com/cleversamer/chatting-app/pkg/apperr"
	"github.com/cleversamer/chatting-app/pkg/logger"
)

type SubmissionRepository interface {
	// Create persists the submission. The unique index on
	// (assignment_id, author_id) is the authoritative one-submission-per-user
	// guard; a violation comes back as a conflict.
	Create(ctx context.Context, s *domain.Submission) error
	Exists(ctx context.Context, assignmentID, authorID uuid.UUID) (bool, error)
	ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]*domain.Submission, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type submissionRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewSubmissionRepository(db *pgxpool.Pool, log logger.Logger) SubmissionRepository {
	return &submissionRepository{db: db, log: log}
}

func (r *submissionRepository) Create(ctx context.Context, s *domain.Submission) error {
	files, err := json.Marshal(s.Files)
	if err != nil {
		return apperr.Storage("submission", err)
	}

	query := `
		INSERT INTO submissions (id, room_id, assignment_id, author_id, files, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.db.Exec(ctx, query, s.ID, s.RoomID, s.AssignmentID, s.AuthorID, files, s.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("submission", "assignment already submitted")
		}
		r.log.Error("failed to create submission", "error", err)
		return apperr.Storage("submission", err)
	}
	return nil
}

func (r *submissionRepository) Exists(ctx context.Context, assignmentID, authorID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM submissions WHERE assignment_id = $1 AND author_id = $2)
	`, assignmentID, authorID).Scan(&exists)
	if err != nil {
		r.log.Error("failed to check submission existence", "error", err)
		return false, apperr.Storage("submission", err)
	}
	return exists, nil
}

func (r *submissionRepository) ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]*domain.Submission, error) {
	query := `
		SELECT id, room_id, assignment_id, author_id, files, created_at
		FROM submissions
		WHERE assignment_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.Query(ctx, query, assignmentID)
	if err != nil {
		r.log.Error("failed to list submissions", "error", err)
		return nil, apperr.Storage("submission", err)
	}
	defer rows.Close()

	var out []*domain.Submission
	for rows.Next() {
		s, err := r.scanOne(rows)
		if err != nil {
			return nil, apperr.Storage("submission", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("submission", err)
	}
	return out, nil
}

func (r *submissionRepository) scanOne(row pgx.Row) (*domain.Submission, error) {
	s := &domain.Submission{}
	var files []byte
	if err := row.Scan(&s.ID, &s.RoomID, &s.AssignmentID, &s.AuthorID, &files, &s.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(files, &s.Files); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *submissionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM submissions WHERE id = $1`, id)
	if err != nil {
		r.log.Error("failed to delete submission", "error", err)
		return apperr.Storage("submission", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("submission")
	}
	return nil
}
