package service

import (
	"context"
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
	joinCodeMinLen = 1
	joinCodeMaxLen = 16

	publicPageSize = 10
	searchPageSize = 10
)

type SearchResult struct {
	MyRooms     []domain.RoomSummary `json:"my_rooms"`
	ResultRooms []domain.RoomSummary `json:"result_rooms"`
}

// RoomService is the room registry: identity, membership, moderation flags
// and visibility.
type RoomService interface {
	Create(ctx context.Context, ownerID uuid.UUID, name, visibility, joinCode string) (*domain.Room, error)
	Join(ctx context.Context, userID uuid.UUID, name, joinCode string) (*domain.Room, error)
	Leave(ctx context.Context, callerID, roomID uuid.UUID, userIDs []uuid.UUID) error
	SetBlocked(ctx context.Context, roomID, ownerID uuid.UUID, userIDs []uuid.UUID, blocked bool) (*domain.Room, error)
	ToggleChatDisabled(ctx context.Context, roomID, ownerID uuid.UUID) (*domain.Room, error)
	ToggleShowName(ctx context.Context, roomID, ownerID uuid.UUID) (*domain.Room, error)
	PinMessage(ctx context.Context, roomID, ownerID, messageID uuid.UUID) (*domain.Room, error)
	CanPost(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
	GetByID(ctx context.Context, roomID uuid.UUID) (*domain.Room, error)
	GetMembers(ctx context.Context, callerID, roomID uuid.UUID) ([]domain.Profile, error)
	ListPublic(ctx context.Context, skip int) ([]domain.RoomSummary, error)
	Search(ctx context.Context, userID uuid.UUID, query string) (*SearchResult, error)
}

type roomService struct {
	roomRepo repository.RoomRepository
	userRepo repository.UserRepository
	msgRepo  repository.MessageRepository
	cfg      *config.Config
	log      logger.Logger
}

func NewRoomService(
	roomRepo repository.RoomRepository,
	userRepo repository.UserRepository,
	msgRepo repository.MessageRepository,
	cfg *config.Config,
	log logger.Logger,
) RoomService {
	return &roomService{
		roomRepo: roomRepo,
		userRepo: userRepo,
		msgRepo:  msgRepo,
		cfg:      cfg,
		log:      log,
	}
}

func validJoinCode(code string) bool {
	return len(code) >= joinCodeMinLen && len(code) <= joinCodeMaxLen
}

func (s *roomService) Create(ctx context.Context, ownerID uuid.UUID, name, visibility, joinCode string) (*domain.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("room", "room name is required")
	}
	if visibility != domain.VisibilityPublic && visibility != domain.VisibilityPrivate {
		return nil, apperr.Validation("room", "visibility must be public or private")
	}
	if visibility == domain.VisibilityPrivate && !validJoinCode(joinCode) {
		return nil, apperr.Validation("room", "join code must be 1-16 characters")
	}
	if visibility == domain.VisibilityPublic {
		joinCode = ""
	}

	owned, err := s.roomRepo.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if owned >= s.cfg.Rooms.OwnerRoomCap {
		return nil, apperr.QuotaExceeded("room", "owned room limit reached")
	}

	now := time.Now()
	room := &domain.Room{
		ID:         uuid.New(),
		Name:       name,
		OwnerID:    ownerID,
		Visibility: visibility,
		JoinCode:   joinCode,
		ShowName:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, err
	}

	// Backlink write is separate from the room write; a crash between the
	// two leaves an orphaned backlink, which readers tolerate.
	if err := s.userRepo.AddCreatedRoom(ctx, ownerID, room.ID); err != nil {
		return nil, err
	}

	return room, nil
}

func (s *roomService) Join(ctx context.Context, userID uuid.UUID, name, joinCode string) (*domain.Room, error) {
	room, err := s.roomRepo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	if room.Visibility == domain.VisibilityPrivate {
		if !validJoinCode(joinCode) {
			return nil, apperr.Validation("room", "join code must be 1-16 characters")
		}
		if room.JoinCode != joinCode {
			return nil, apperr.Authz("room", "incorrect join code")
		}
	}

	// Own-room join and duplicate join are both conflicts, never no-ops.
	if room.IsOwner(userID) {
		return nil, apperr.Conflict("room", "owner cannot join their own room")
	}
	if room.IsMember(userID) {
		return nil, apperr.Conflict("room", "user already joined this room")
	}

	if err := s.roomRepo.AddMember(ctx, room.ID, userID); err != nil {
		return nil, err
	}
	if err := s.userRepo.AddJoinedRoom(ctx, userID, room.ID); err != nil {
		return nil, err
	}

	return s.roomRepo.GetByID(ctx, room.ID)
}

func (s *roomService) Leave(ctx context.Context, callerID, roomID uuid.UUID, userIDs []uuid.UUID) error {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return err
	}

	if !room.IsOwner(callerID) {
		if len(userIDs) != 1 || userIDs[0] != callerID {
			return apperr.Authz("room", "only the owner may remove other members")
		}
	}

	if err := s.roomRepo.RemoveMembers(ctx, roomID, userIDs); err != nil {
		return err
	}
	for _, id := range userIDs {
		if err := s.userRepo.RemoveJoinedRoom(ctx, id, roomID); err != nil {
			s.log.Warn("failed to remove joined-room backlink", "user_id", id, "error", err)
		}
	}
	return nil
}

func (s *roomService) SetBlocked(ctx context.Context, roomID, ownerID uuid.UUID, userIDs []uuid.UUID, blocked bool) (*domain.Room, error) {
	room, err := s.ownedRoom(ctx, roomID, ownerID)
	if err != nil {
		return nil, err
	}

	if err := s.roomRepo.SetBlocked(ctx, room.ID, userIDs, blocked); err != nil {
		return nil, err
	}
	return s.roomRepo.GetByID(ctx, room.ID)
}

func (s *roomService) ToggleChatDisabled(ctx context.Context, roomID, ownerID uuid.UUID) (*domain.Room, error) {
	room, err := s.ownedRoom(ctx, roomID, ownerID)
	if err != nil {
		return nil, err
	}

	if err := s.roomRepo.SetChatDisabled(ctx, room.ID, !room.ChatDisabled); err != nil {
		return nil, err
	}
	room.ChatDisabled = !room.ChatDisabled
	return room, nil
}

func (s *roomService) ToggleShowName(ctx context.Context, roomID, ownerID uuid.UUID) (*domain.Room, error) {
	room, err := s.ownedRoom(ctx, roomID, ownerID)
	if err != nil {
		return nil, err
	}

	if err := s.roomRepo.SetShowName(ctx, room.ID, !room.ShowName); err != nil {
		return nil, err
	}
	room.ShowName = !room.ShowName
	return room, nil
}

func (s *roomService) PinMessage(ctx context.Context, roomID, ownerID, messageID uuid.UUID) (*domain.Room, error) {
	room, err := s.ownedRoom(ctx, roomID, ownerID)
	if err != nil {
		return nil, err
	}

	msg, err := s.msgRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.RoomID != room.ID {
		return nil, apperr.Validation("message", "message does not belong to this room")
	}

	// Pin promotion always strips reply linkage.
	msg.IsPinned = true
	msg.IsReply = false
	msg.RepliedTo = nil
	if err := s.msgRepo.Update(ctx, msg); err != nil {
		return nil, err
	}

	if err := s.roomRepo.AddPinned(ctx, room.ID, msg.ID); err != nil {
		return nil, err
	}
	return s.roomRepo.GetByID(ctx, room.ID)
}

func (s *roomService) CanPost(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return false, err
	}
	return room.CanPost(userID), nil
}

func (s *roomService) GetByID(ctx context.Context, roomID uuid.UUID) (*domain.Room, error) {
	return s.roomRepo.GetByID(ctx, roomID)
}

func (s *roomService) GetMembers(ctx context.Context, callerID, roomID uuid.UUID) ([]domain.Profile, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsOwner(callerID) && !room.IsMember(callerID) {
		return nil, apperr.NotJoined("room")
	}

	profiles, err := s.userRepo.GetProfiles(ctx, room.Members)
	if err != nil {
		return nil, err
	}

	// Preserve join order.
	out := make([]domain.Profile, 0, len(room.Members))
	for _, id := range room.Members {
		if p, ok := profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *roomService) ListPublic(ctx context.Context, skip int) ([]domain.RoomSummary, error) {
	if skip < 0 {
		skip = 0
	}
	rooms, err := s.roomRepo.ListPublic(ctx, skip, publicPageSize)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, rooms)
}

func (s *roomService) Search(ctx context.Context, userID uuid.UUID, query string) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Validation("room", "search query is required")
	}

	rooms, err := s.roomRepo.SearchByName(ctx, query, searchPageSize)
	if err != nil {
		return nil, err
	}

	var mine, others []*domain.Room
	for _, room := range rooms {
		switch {
		case room.IsOwner(userID) || room.IsMember(userID):
			mine = append(mine, room)
		case room.Visibility == domain.VisibilityPublic:
			others = append(others, room)
		}
	}

	myRooms, err := s.summarize(ctx, mine)
	if err != nil {
		return nil, err
	}
	resultRooms, err := s.summarize(ctx, others)
	if err != nil {
		return nil, err
	}
	return &SearchResult{MyRooms: myRooms, ResultRooms: resultRooms}, nil
}

func (s *roomService) summarize(ctx context.Context, rooms []*domain.Room) ([]domain.RoomSummary, error) {
	ownerIDs := make([]uuid.UUID, 0, len(rooms))
	for _, room := range rooms {
		ownerIDs = append(ownerIDs, room.OwnerID)
	}
	owners, err := s.userRepo.GetProfiles(ctx, ownerIDs)
	if err != nil {
		return nil, err
	}

	out := make([]domain.RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, domain.RoomSummary{
			ID:          room.ID,
			Name:        room.Name,
			Visibility:  room.Visibility,
			MemberCount: len(room.Members),
			Owner:       owners[room.OwnerID],
		})
	}
	return out, nil
}

// ownedRoom loads the room and enforces the hard owner-only boundary.
func (s *roomService) ownedRoom(ctx context.Context, roomID, ownerID uuid.UUID) (*domain.Room, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsOwner(ownerID) {
		return nil, apperr.Authz("room", "only the room owner may do this")
	}
	return room, nil
}
