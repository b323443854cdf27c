package domain

import (
	"time"

	"github.com/google/uuid"
)

// Assignment is a room-scoped task with an attached description file and an
// absolute expiry. "Expired" is derived from the clock at read time, never
// stored.
type Assignment struct {
	ID              uuid.UUID `json:"id"`
	RoomID          uuid.UUID `json:"room_id"`
	Title           string    `json:"title"`
	File            FileRef   `json:"file"`
	SubmissionCount int       `json:"submission_count"`
	StartAt         time.Time `json:"start_at"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

func (a *Assignment) Expired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}

// Submission is a student's answer to one assignment: one to three files,
// immutable after creation, at most one per (assignment, author).
type Submission struct {
	ID           uuid.UUID `json:"id"`
	RoomID       uuid.UUID `json:"room_id"`
	AssignmentID uuid.UUID `json:"assignment_id"`
	AuthorID     uuid.UUID `json:"author_id"`
	Files        []FileRef `json:"files"`
	CreatedAt    time.Time `json:"created_at"`
}
