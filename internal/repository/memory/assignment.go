package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cleversamer/chatting-app/internal/domain"
	"github.com/cleversamer/chatting-app/internal/repository"
	"github.com/cleversamer/chatting-app/pkg/apperr"
)

type assignmentRepository struct {
	db *DB
}

func NewAssignmentRepository(db *DB) repository.AssignmentRepository {
	return &assignmentRepository{db: db}
}

func copyAssignment(a *domain.Assignment) *domain.Assignment {
	cp := *a
	return &cp
}

func (r *assignmentRepository) Create(ctx context.Context, a *domain.Assignment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.assignments[a.ID] = copyAssignment(a)
	r.db.asgOrder = append(r.db.asgOrder, a.ID)
	return nil
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Assignment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	a, ok := r.db.assignments[id]
	if !ok {
		return nil, apperr.NotFound("assignment")
	}
	return copyAssignment(a), nil
}

func (r *assignmentRepository) SetExpiry(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	a, ok := r.db.assignments[id]
	if !ok {
		return apperr.NotFound("assignment")
	}
	a.ExpiresAt = expiresAt
	return nil
}

func (r *assignmentRepository) IncrementSubmissionCount(ctx context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	a, ok := r.db.assignments[id]
	if !ok {
		return apperr.NotFound("assignment")
	}
	a.SubmissionCount++
	return nil
}

func (r *assignmentRepository) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.Assignment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []*domain.Assignment
	for _, id := range r.db.asgOrder {
		if a, ok := r.db.assignments[id]; ok && a.RoomID == roomID {
			out = append(out, copyAssignment(a))
		}
	}
	return out, nil
}

func (r *assignmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.assignments[id]; !ok {
		return apperr.NotFound("assignment")
	}
	delete(r.db.assignments, id)
	r.db.asgOrder = removeID(r.db.asgOrder, id)
	return nil
}

type submissionRepository struct {
	db *DB
}

func NewSubmissionRepository(db *DB) repository.SubmissionRepository {
	return &submissionRepository{db: db}
}

func copySubmission(s *domain.Submission) *domain.Submission {
	cp := *s
	cp.Files = make([]domain.FileRef, len(s.Files))
	copy(cp.Files, s.Files)
	return &cp
}

func (r *submissionRepository) Create(ctx context.Context, s *domain.Submission) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	// The (assignment, author) pair is unique, same as the postgres index.
	for _, existing := range r.db.submissions {
		if existing.AssignmentID == s.AssignmentID && existing.AuthorID == s.AuthorID {
			return apperr.Conflict("submission", "assignment already submitted")
		}
	}

	r.db.submissions[s.ID] = copySubmission(s)
	r.db.subOrder = append(r.db.subOrder, s.ID)
	return nil
}

func (r *submissionRepository) Exists(ctx context.Context, assignmentID, authorID uuid.UUID) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, s := range r.db.submissions {
		if s.AssignmentID == assignmentID && s.AuthorID == authorID {
			return true, nil
		}
	}
	return false, nil
}

func (r *submissionRepository) ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]*domain.Submission, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []*domain.Submission
	for _, id := range r.db.subOrder {
		if s, ok := r.db.submissions[id]; ok && s.AssignmentID == assignmentID {
			out = append(out, copySubmission(s))
		}
	}
	return out, nil
}

func (r *submissionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.submissions[id]; !ok {
		return apperr.NotFound("submission")
	}
	delete(r.db.submissions, id)
	r.db.subOrder = removeID(r.db.subOrder, id)
	return nil
}
