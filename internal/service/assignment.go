package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cleversamer/chatting-app/internal/config"
	"github.com/cleversamer/chatting-app/internal/domain"
	"github.com/cleversamer/chatting-app/internal/repository"
	"github.com/cleversamer/chatting-app/pkg/apperr"
	"github.com/cleversamer/chatting-app/pkg/logger"
)

const (
	minSubmissionFiles = 1
	maxSubmissionFiles = 3
)

type AssignmentView struct {
	*domain.Assignment
	RemainingTime string `json:"remaining_time"`
}

type SubmissionFile struct {
	Name string
	Data []byte
}

type SubmissionView struct {
	*domain.Submission
	Author domain.Profile `json:"author"`
}

// AssignmentService tracks assignments and their submissions. An assignment
// is "expired" purely as a function of the clock; nothing stores that state.
type AssignmentService interface {
	Create(ctx context.Context, ownerID, roomID uuid.UUID, title string, durationMinutes int, startAt time.Time, fileName string, fileData []byte) (*AssignmentView, error)
	ListRoom(ctx context.Context, callerID, roomID uuid.UUID) ([]*AssignmentView, error)
	ExtendExpiry(ctx context.Context, ownerID, roomID, assignmentID uuid.UUID, extraHours int) (*AssignmentView, error)
	CreateSubmission(ctx context.Context, userID, roomID, assignmentID uuid.UUID, files []SubmissionFile) (*domain.Submission, error)
	HasSubmitted(ctx context.Context, userID, assignmentID uuid.UUID) (bool, error)
	ListSubmissions(ctx context.Context, ownerID, roomID, assignmentID uuid.UUID) ([]*SubmissionView, error)
	Bundle(ctx context.Context, ownerID, roomID, assignmentID uuid.UUID) (StoredFile, error)
	Delete(ctx context.Context, ownerID, roomID, assignmentID uuid.UUID) error
	// DeleteCascade removes the assignment, its submissions and all their
	// files. Already-gone entities count as success; scheduled cleanup
	// timers call this.
	DeleteCascade(ctx context.Context, assignmentID uuid.UUID) error
}

type assignmentService struct {
	asgRepo  repository.AssignmentRepository
	subRepo  repository.SubmissionRepository
	roomRepo repository.RoomRepository
	userRepo repository.UserRepository
	files    FileStore
	sched    Scheduler
	cfg      *config.Config
	log      logger.Logger
}

func NewAssignmentService(
	asgRepo repository.AssignmentRepository,
	subRepo repository.SubmissionRepository,
	roomRepo repository.RoomRepository,
	userRepo repository.UserRepository,
	files FileStore,
	sched Scheduler,
	cfg *config.Config,
	log logger.Logger,
) AssignmentService {
	return &assignmentService{
		asgRepo:  asgRepo,
		subRepo:  subRepo,
		roomRepo: roomRepo,
		userRepo: userRepo,
		files:    files,
		sched:    sched,
		cfg:      cfg,
		log:      log,
	}
}

func (s *assignmentService) Create(ctx context.Context, ownerID, roomID uuid.UUID, title string, durationMinutes int, startAt time.Time, fileName string, fileData []byte) (*AssignmentView, error) {
	if _, err := s.ownedRoom(ctx, roomID, ownerID); err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.Validation("assignment", "assignment title is required")
	}
	if durationMinutes < 0 {
		return nil, apperr.Validation("assignment", "duration must not be negative")
	}
	if len(fileData) == 0 {
		return nil, apperr.Validation("assignment", "assignment file is required")
	}

	stored, err := s.files.Store(fileData, fileName, title)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	assignment := &domain.Assignment{
		ID:        uuid.New(),
		RoomID:    roomID,
		Title:     title,
		File:      domain.FileRef{DisplayName: stored.DisplayName, Path: stored.Path},
		StartAt:   startAt,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(durationMinutes) * time.Minute),
	}

	if err := s.asgRepo.Create(ctx, assignment); err != nil {
		return nil, err
	}

	// Best-effort TTL; pending timers do not survive restarts.
	id := assignment.ID
	s.sched.Schedule(now.Add(s.cfg.Rooms.AssignmentTTL), func() {
		if err := s.DeleteCascade(context.Background(), id); err != nil {
			s.log.Warn("scheduled assignment cleanup failed", "assignment_id", id, "error", err)
		}
	})

	return s.view(assignment, now), nil
}

func (s *assignmentService) ListRoom(ctx context.Context, callerID, roomID uuid.UUID) ([]*AssignmentView, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsOwner(callerID) && !room.IsMember(callerID) {
		return nil, apperr.NotJoined("room")
	}

	assignments, err := s.asgRepo.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	views := make([]*AssignmentView, 0, len(assignments))
	for _, a := range assignments {
		views = append(views, s.view(a, now))
	}
	return views, nil
}

func (s *assignmentService) ExtendExpiry(ctx context.Context, ownerID, roomID, assignmentID uuid.UUID, extraHours int) (*AssignmentView, error) {
	if _, err := s.ownedRoom(ctx, roomID, ownerID); err != nil {
		return nil, err
	}
	if extraHours <= 0 {
		return nil, apperr.Validation("assignment", "extension hours must be positive")
	}

	assignment, err := s.assignmentInRoom(ctx, roomID, assignmentID)
	if err != nil {
		return nil, err
	}

	// Extensions compound from the current expiry, not from now.
	assignment.ExpiresAt = assignment.ExpiresAt.Add(time.Duration(extraHours) * time.Hour)
	if err := s.asgRepo.SetExpiry(ctx, assignment.ID, assignment.ExpiresAt); err != nil {
		return nil, err
	}

	return s.view(assignment, time.Now()), nil
}

func (s *assignmentService) CreateSubmission(ctx context.Context, userID, roomID, assignmentID uuid.UUID, files []SubmissionFile) (*domain.Submission, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsOwner(userID) && !room.IsMember(userID) {
		return nil, apperr.NotJoined("room")
	}

	assignment, err := s.assignmentInRoom(ctx, roomID, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.Expired(time.Now()) {
		return nil, apperr.Expired("assignment", "assignment deadline has passed")
	}

	if len(files) < minSubmissionFiles || len(files) > maxSubmissionFiles {
		return nil, apperr.Validation("submission",
			fmt.Sprintf("between %d and %d files required", minSubmissionFiles, maxSubmissionFiles))
	}
	for _, f := range files {
		if len(f.Data) == 0 {
			return nil, apperr.Validation("submission", "empty file attached")
		}
	}

	// Fast-path answer only; the storage uniqueness constraint is the
	// authoritative guard against a concurrent double submit.
	submitted, err := s.subRepo.Exists(ctx, assignmentID, userID)
	if err != nil {
		return nil, err
	}
	if submitted {
		return nil, apperr.Conflict("submission", "assignment already submitted")
	}

	stored := make([]domain.FileRef, 0, len(files))
	for _, f := range files {
		sf, err := s.files.Store(f.Data, f.Name, assignment.Title)
		if err != nil {
			s.releaseFiles(stored)
			return nil, err
		}
		stored = append(stored, domain.FileRef{DisplayName: sf.DisplayName, Path: sf.Path})
	}

	submission := &domain.Submission{
		ID:           uuid.New(),
		RoomID:       roomID,
		AssignmentID: assignmentID,
		AuthorID:     userID,
		Files:        stored,
		CreatedAt:    time.Now(),
	}

	if err := s.subRepo.Create(ctx, submission); err != nil {
		s.releaseFiles(stored)
		return nil, err
	}

	// Cached counter; drift on failure is tolerated.
	if err := s.asgRepo.IncrementSubmissionCount(ctx, assignmentID); err != nil {
		s.log.Warn("failed to bump submission count", "assignment_id", assignmentID, "error", err)
	}

	return submission, nil
}

func (s *assignmentService) HasSubmitted(ctx context.Context, userID, assignmentID uuid.UUID) (bool, error) {
	if _, err := s.asgRepo.GetByID(ctx, assignmentID); err != nil {
		return false, err
	}
	return s.subRepo.Exists(ctx, assignmentID, userID)
}

func (s *assignmentService) ListSubmissions(ctx context.Context, ownerID, roomID, assignmentID uuid.UUID) ([]*SubmissionView, error) {
	if _, err := s.ownedRoom(ctx, roomID, ownerID); err != nil {
		return nil, err
	}
	if _, err := s.assignmentInRoom(ctx, roomID, assignmentID); err != nil {
		return nil, err
	}

	submissions, err := s.subRepo.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	authorIDs := make([]uuid.UUID, 0, len(submissions))
	for _, sub := range submissions {
		authorIDs = append(authorIDs, sub.AuthorID)
	}
	authors, err := s.userRepo.GetProfiles(ctx, authorIDs)
	if err != nil {
		return nil, err
	}

	views := make([]*SubmissionView, 0, len(submissions))
	for _, sub := range submissions {
		views = append(views, &SubmissionView{Submission: sub, Author: authors[sub.AuthorID]})
	}
	return views, nil
}

func (s *assignmentService) Bundle(ctx context.Context, ownerID, roomID, assignmentID uuid.UUID) (StoredFile, error) {
	if _, err := s.ownedRoom(ctx, roomID, ownerID); err != nil {
		return StoredFile{}, err
	}
	assignment, err := s.assignmentInRoom(ctx, roomID, assignmentID)
	if err != nil {
		return StoredFile{}, err
	}

	submissions, err := s.subRepo.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return StoredFile{}, err
	}
	if len(submissions) == 0 {
		return StoredFile{}, apperr.NotFound("submission")
	}

	var paths []string
	for _, sub := range submissions {
		for _, f := range sub.Files {
			paths = append(paths, f.Path)
		}
	}

	archive, err := s.files.Archive(assignment.Title, paths)
	if err != nil {
		return StoredFile{}, err
	}

	// The archive is a derived artifact with a short life.
	path := archive.Path
	s.sched.Schedule(time.Now().Add(s.cfg.Rooms.BundleTTL), func() {
		if err := s.files.Delete(path); err != nil {
			s.log.Warn("scheduled bundle cleanup failed", "path", path, "error", err)
		}
	})

	return archive, nil
}

func (s *assignmentService) Delete(ctx context.Context, ownerID, roomID, assignmentID uuid.UUID) error {
	if _, err := s.ownedRoom(ctx, roomID, ownerID); err != nil {
		return err
	}
	if _, err := s.assignmentInRoom(ctx, roomID, assignmentID); err != nil {
		return err
	}
	return s.DeleteCascade(ctx, assignmentID)
}

func (s *assignmentService) DeleteCascade(ctx context.Context, assignmentID uuid.UUID) error {
	assignment, err := s.asgRepo.GetByID(ctx, assignmentID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}

	submissions, err := s.subRepo.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	for _, sub := range submissions {
		s.releaseFiles(sub.Files)
		if err := s.subRepo.Delete(ctx, sub.ID); err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
			s.log.Warn("failed to delete submission", "submission_id", sub.ID, "error", err)
		}
	}

	if err := s.files.Delete(assignment.File.Path); err != nil {
		s.log.Warn("failed to delete assignment file", "path", assignment.File.Path, "error", err)
	}
	if err := s.asgRepo.Delete(ctx, assignmentID); err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
		return err
	}
	return nil
}

func (s *assignmentService) releaseFiles(files []domain.FileRef) {
	for _, f := range files {
		if err := s.files.Delete(f.Path); err != nil {
			s.log.Warn("failed to delete stored file", "path", f.Path, "error", err)
		}
	}
}

func (s *assignmentService) view(a *domain.Assignment, now time.Time) *AssignmentView {
	return &AssignmentView{Assignment: a, RemainingTime: RemainingTime(a.ExpiresAt, now)}
}

func (s *assignmentService) ownedRoom(ctx context.Context, roomID, ownerID uuid.UUID) (*domain.Room, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsOwner(ownerID) {
		return nil, apperr.Authz("room", "only the room owner may do this")
	}
	return room, nil
}

func (s *assignmentService) assignmentInRoom(ctx context.Context, roomID, assignmentID uuid.UUID) (*domain.Assignment, error) {
	assignment, err := s.asgRepo.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.RoomID != roomID {
		return nil, apperr.NotFound("assignment")
	}
	return assignment, nil
}

// RemainingTime renders the time left until expiresAt as at most the two
// largest non-zero units, or "time ended" once the deadline has passed.
func RemainingTime(expiresAt, now time.Time) string {
	delta := expiresAt.Sub(now)
	if delta <= 0 {
		return "time ended"
	}

	ms := delta.Milliseconds()
	days := ms / (24 * 60 * 60 * 1000)
	ms %= 24 * 60 * 60 * 1000
	hours := ms / (60 * 60 * 1000)
	ms %= 60 * 60 * 1000
	mins := ms / (60 * 1000)
	ms %= 60 * 1000
	secs := ms / 1000

	buckets := []struct {
		value    int64
		singular string
		plural   string
	}{
		{days, "day", "days"},
		{hours, "hour", "hours"},
		{mins, "min", "mins"},
		{secs, "sec", "secs"},
	}

	var parts []string
	for _, b := range buckets {
		if b.value == 0 {
			continue
		}
		unit := b.plural
		if b.value == 1 {
			unit = b.singular
		}
		parts = append(parts, fmt.Sprintf("%d %s", b.value, unit))
		if len(parts) == 2 {
			break
		}
	}
	if len(parts) == 0 {
		return "0 secs"
	}
	return strings.Join(parts, " ")
}
