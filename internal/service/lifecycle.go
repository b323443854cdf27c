package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cleversamer/chatting-app/internal/config"
	"github.com/cleversamer/chatting-app/internal/domain"
	"github.com/cleversamer/chatting-app/internal/repository"
	"github.com/cleversamer/chatting-app/pkg/apperr"
	"github.com/cleversamer/chatting-app/pkg/logger"
)

// LifecycleService orchestrates the multi-entity teardown paths: full room
// deletion, periodic resets and the scheduled maintenance chain. The
// cascades are best-effort sagas; a failing step is logged and the rest
// still runs, so a crashed cleanup leaves at most orphaned rows and files
// rather than a half-locked room.
type LifecycleService interface {
	DeleteRoom(ctx context.Context, ownerID, roomID uuid.UUID) error
	ResetRoom(ctx context.Context, ownerID, roomID uuid.UUID) error
	// DeleteRoomAssets strips a room of members, messages, pins,
	// assignments and submissions but keeps the room record itself.
	DeleteRoomAssets(ctx context.Context, roomID uuid.UUID) error
	// DeleteRoomMessages clears the ledger only, pins included.
	DeleteRoomMessages(ctx context.Context, ownerID, roomID uuid.UUID) error
	// ScheduleRoomMaintenance arms the reset timer and the advance
	// notice for a freshly created room.
	ScheduleRoomMaintenance(roomID uuid.UUID)
}

type lifecycleService struct {
	roomRepo repository.RoomRepository
	msgRepo  repository.MessageRepository
	asgRepo  repository.AssignmentRepository
	subRepo  repository.SubmissionRepository
	userRepo repository.UserRepository
	files    FileStore
	sched    Scheduler
	notif    Notifier
	cfg      *config.Config
	log      logger.Logger
}

func NewLifecycleService(
	repos *repository.Repositories,
	files FileStore,
	sched Scheduler,
	notif Notifier,
	cfg *config.Config,
	log logger.Logger,
) LifecycleService {
	return &lifecycleService{
		roomRepo: repos.Room,
		msgRepo:  repos.Message,
		asgRepo:  repos.Assignment,
		subRepo:  repos.Submission,
		userRepo: repos.User,
		files:    files,
		sched:    sched,
		notif:    notif,
		cfg:      cfg,
		log:      log,
	}
}

func (s *lifecycleService) DeleteRoom(ctx context.Context, ownerID, roomID uuid.UUID) error {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.IsOwner(ownerID) {
		return apperr.Authz("room", "only the room owner may delete it")
	}

	if err := s.clearRoomAssets(ctx, room); err != nil {
		return err
	}

	if err := s.roomRepo.Delete(ctx, roomID); err != nil {
		return err
	}
	if err := s.userRepo.RemoveCreatedRoom(ctx, room.OwnerID, roomID); err != nil {
		s.log.Warn("failed to remove created-room backlink", "user_id", room.OwnerID, "room_id", roomID, "error", err)
	}
	return nil
}

func (s *lifecycleService) ResetRoom(ctx context.Context, ownerID, roomID uuid.UUID) error {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.IsOwner(ownerID) {
		return apperr.Authz("room", "only the room owner may reset it")
	}
	return s.clearRoomAssets(ctx, room)
}

func (s *lifecycleService) DeleteRoomAssets(ctx context.Context, roomID uuid.UUID) error {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}
	return s.clearRoomAssets(ctx, room)
}

func (s *lifecycleService) DeleteRoomMessages(ctx context.Context, ownerID, roomID uuid.UUID) error {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.IsOwner(ownerID) {
		return apperr.Authz("room", "only the room owner may clear the chat")
	}

	s.clearMessages(ctx, room)
	return nil
}

// clearRoomAssets runs the teardown saga. Step order matters only in that
// members lose access before their content disappears.
func (s *lifecycleService) clearRoomAssets(ctx context.Context, room *domain.Room) error {
	s.clearMembers(ctx, room)
	s.clearMessages(ctx, room)
	s.clearAssignments(ctx, room)
	return nil
}

func (s *lifecycleService) clearMembers(ctx context.Context, room *domain.Room) {
	if len(room.Members) == 0 {
		return
	}
	if err := s.roomRepo.RemoveMembers(ctx, room.ID, room.Members); err != nil {
		s.log.Warn("failed to remove room members", "room_id", room.ID, "error", err)
	}
	for _, userID := range room.Members {
		if err := s.userRepo.RemoveJoinedRoom(ctx, userID, room.ID); err != nil {
			s.log.Warn("failed to remove joined-room backlink", "user_id", userID, "room_id", room.ID, "error", err)
		}
	}
}

func (s *lifecycleService) clearMessages(ctx context.Context, room *domain.Room) {
	messages, err := s.msgRepo.ListByRoom(ctx, room.ID)
	if err != nil {
		s.log.Warn("failed to list room messages for cleanup", "room_id", room.ID, "error", err)
		messages = nil
	}
	for _, msg := range messages {
		if domain.IsMediaType(msg.Type) {
			if file := msg.File(); file != nil {
				if err := s.files.Delete(file.Path); err != nil {
					s.log.Warn("failed to delete message file", "path", file.Path, "error", err)
				}
			}
		}
		if err := s.msgRepo.Delete(ctx, msg.ID); err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
			s.log.Warn("failed to delete message", "message_id", msg.ID, "error", err)
		}
	}
	if err := s.roomRepo.ClearPinned(ctx, room.ID); err != nil {
		s.log.Warn("failed to clear pinned messages", "room_id", room.ID, "error", err)
	}
}

func (s *lifecycleService) clearAssignments(ctx context.Context, room *domain.Room) {
	assignments, err := s.asgRepo.ListByRoom(ctx, room.ID)
	if err != nil {
		s.log.Warn("failed to list room assignments for cleanup", "room_id", room.ID, "error", err)
		return
	}
	for _, a := range assignments {
		submissions, err := s.subRepo.ListByAssignment(ctx, a.ID)
		if err != nil {
			s.log.Warn("failed to list submissions for cleanup", "assignment_id", a.ID, "error", err)
			submissions = nil
		}
		for _, sub := range submissions {
			for _, f := range sub.Files {
				if err := s.files.Delete(f.Path); err != nil {
					s.log.Warn("failed to delete submission file", "path", f.Path, "error", err)
				}
			}
			if err := s.subRepo.Delete(ctx, sub.ID); err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
				s.log.Warn("failed to delete submission", "submission_id", sub.ID, "error", err)
			}
		}
		if err := s.files.Delete(a.File.Path); err != nil {
			s.log.Warn("failed to delete assignment file", "path", a.File.Path, "error", err)
		}
		if err := s.asgRepo.Delete(ctx, a.ID); err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
			s.log.Warn("failed to delete assignment", "assignment_id", a.ID, "error", err)
		}
	}
}

func (s *lifecycleService) ScheduleRoomMaintenance(roomID uuid.UUID) {
	resetAt := time.Now().Add(s.cfg.Rooms.ResetInterval)

	s.sched.Schedule(resetAt.Add(-s.cfg.Rooms.ResetNoticeLead), func() {
		ctx := context.Background()
		room, err := s.roomRepo.GetByID(ctx, roomID)
		if err != nil {
			if !apperr.IsKind(err, apperr.KindNotFound) {
				s.log.Warn("reset notice lookup failed", "room_id", roomID, "error", err)
			}
			return
		}
		recipients := append([]uuid.UUID{room.OwnerID}, room.Members...)
		s.notif.Notify(ctx, recipients,
			"Room reset scheduled",
			"This room will be reset soon. Save anything you need.",
			map[string]string{"room_id": roomID.String()},
		)
	})

	s.sched.Schedule(resetAt, func() {
		if err := s.DeleteRoomAssets(context.Background(), roomID); err != nil {
			s.log.Warn("scheduled room reset failed", "room_id", roomID, "error", err)
		}
	})
}
