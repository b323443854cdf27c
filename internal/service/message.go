package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cleversamer/chatting-app/internal/domain"
	"github.com/cleversamer/chatting-app/internal/repository"
	"github.com/cleversamer/chatting-app/pkg/apperr"
	"github.com/cleversamer/chatting-app/pkg/logger"
)

// Broadcaster fans a room event out to live listeners. Implemented by the
// websocket hub; delivery is best effort.
type Broadcaster interface {
	Broadcast(roomID uuid.UUID, event string, payload interface{})
}

const (
	EventMessageCreated = "message.created"
	EventMessageDeleted = "message.deleted"
	EventPollVoted      = "poll.voted"
)

type SendInput struct {
	RoomID      uuid.UUID
	SenderID    uuid.UUID
	Type        domain.MessageType
	Text        string
	FileName    string
	FileData    []byte
	PollOptions []string
	IsReply     bool
	RepliedTo   *uuid.UUID
	// IsPinned switches the membership gate to an owner check; set by the
	// pinned-announcement path only.
	IsPinned bool
}

// MessageView is a message enriched for clients: sender profile, hydrated
// reply snapshot and voter profiles for polls.
type MessageView struct {
	*domain.Message
	Sender         domain.Profile   `json:"sender"`
	RepliedMessage *domain.Message  `json:"replied_message,omitempty"`
	Voters         []domain.Profile `json:"voters,omitempty"`
}

// MessageService is the message ledger: typed creation, reply linkage, poll
// votes and deletion.
type MessageService interface {
	Send(ctx context.Context, in SendInput) (*MessageView, error)
	Vote(ctx context.Context, userID, messageID uuid.UUID, option int) (*domain.Message, error)
	// Delete removes the record and returns the deleted message so the caller
	// can release its stored file.
	Delete(ctx context.Context, userID, messageID uuid.UUID) (*domain.Message, error)
	ListRoom(ctx context.Context, callerID, roomID uuid.UUID) ([]*MessageView, error)
}

type messageService struct {
	msgRepo  repository.MessageRepository
	roomRepo repository.RoomRepository
	userRepo repository.UserRepository
	files    FileStore
	hub      Broadcaster
	log      logger.Logger
}

func NewMessageService(
	msgRepo repository.MessageRepository,
	roomRepo repository.RoomRepository,
	userRepo repository.UserRepository,
	files FileStore,
	hub Broadcaster,
	log logger.Logger,
) MessageService {
	return &messageService{
		msgRepo:  msgRepo,
		roomRepo: roomRepo,
		userRepo: userRepo,
		files:    files,
		hub:      hub,
		log:      log,
	}
}

func (s *messageService) Send(ctx context.Context, in SendInput) (*MessageView, error) {
	room, err := s.roomRepo.GetByID(ctx, in.RoomID)
	if err != nil {
		return nil, err
	}

	if in.IsPinned {
		if !room.IsOwner(in.SenderID) {
			return nil, apperr.Authz("room", "only the room owner may pin announcements")
		}
	} else if err := postGate(room, in.SenderID); err != nil {
		return nil, err
	}

	if !domain.ValidMessageType(in.Type) {
		return nil, apperr.Validation("message", "unsupported message type")
	}

	// A message is never both a reply and pinned; pinning wins. Hydrate the
	// reply target before building the payload so a bad target never leaves
	// a stored blob behind.
	var replied *domain.Message
	if in.IsReply && !in.IsPinned {
		if in.RepliedTo == nil {
			return nil, apperr.Validation("message", "replied message id is required")
		}
		replied, err = s.msgRepo.GetByID(ctx, *in.RepliedTo)
		if err != nil {
			return nil, err
		}
		if replied.RoomID != room.ID {
			return nil, apperr.Validation("message", "replied message belongs to another room")
		}
	}

	payload, err := s.buildPayload(in)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:        uuid.New(),
		RoomID:    room.ID,
		SenderID:  in.SenderID,
		Type:      in.Type,
		Payload:   payload,
		IsPinned:  in.IsPinned,
		CreatedAt: time.Now(),
	}
	if replied != nil {
		msg.IsReply = true
		msg.RepliedTo = in.RepliedTo
	}

	if err := s.msgRepo.Create(ctx, msg); err != nil {
		s.releaseMedia(payload)
		return nil, err
	}

	view, err := s.view(ctx, msg, replied)
	if err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.Broadcast(room.ID, EventMessageCreated, view)
	}
	return view, nil
}

// postGate applies the may-post rules to non-owners. The owner bypasses all
// of them.
func postGate(room *domain.Room, userID uuid.UUID) error {
	if room.IsOwner(userID) {
		return nil
	}
	if !room.IsMember(userID) {
		return apperr.NotJoined("room")
	}
	if room.IsBlocked(userID) {
		return apperr.Authz("room", "user is blocked from chatting")
	}
	if room.ChatDisabled {
		return apperr.Authz("room", "chat is disabled in this room")
	}
	return nil
}

func (s *messageService) buildPayload(in SendInput) (domain.Payload, error) {
	text := strings.TrimSpace(in.Text)

	switch {
	case in.Type == domain.MessageText:
		if text == "" {
			return nil, apperr.Validation("message", "message text is required")
		}
		return &domain.TextPayload{Text: text}, nil

	case domain.IsMediaType(in.Type):
		if len(in.FileData) == 0 {
			return nil, apperr.Validation("message", "file is required for this message type")
		}
		stored, err := s.files.Store(in.FileData, in.FileName, string(in.Type))
		if err != nil {
			return nil, err
		}
		return &domain.MediaPayload{
			Text: text,
			File: domain.FileRef{DisplayName: stored.DisplayName, Path: stored.Path},
		}, nil

	case in.Type == domain.MessagePoll:
		options := make([]string, 0, len(in.PollOptions))
		for _, opt := range in.PollOptions {
			if opt = strings.TrimSpace(opt); opt != "" {
				options = append(options, opt)
			}
		}
		if len(options) < 2 {
			return nil, apperr.Validation("message", "poll requires at least two options")
		}
		return &domain.PollPayload{Question: text, Options: options}, nil
	}

	return nil, apperr.Validation("message", "unsupported message type")
}

// releaseMedia removes a stored blob whose message record never made it to
// the ledger.
func (s *messageService) releaseMedia(payload domain.Payload) {
	media, ok := payload.(*domain.MediaPayload)
	if !ok {
		return
	}
	if err := s.files.Delete(media.File.Path); err != nil {
		s.log.Warn("failed to remove orphaned media file", "path", media.File.Path, "error", err)
	}
}

func (s *messageService) Vote(ctx context.Context, userID, messageID uuid.UUID, option int) (*domain.Message, error) {
	msg, err := s.msgRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	poll := msg.Poll()
	if poll == nil {
		return nil, apperr.Internal("message", "message is not a poll")
	}

	room, err := s.roomRepo.GetByID(ctx, msg.RoomID)
	if err != nil {
		return nil, err
	}
	if !room.IsOwner(userID) && !room.IsMember(userID) {
		return nil, apperr.Authz("room", "only room members may vote")
	}

	if option < 0 || option >= len(poll.Options) {
		return nil, apperr.Validation("message", "poll option out of range")
	}

	poll.CastVote(userID, option)
	if err := s.msgRepo.Update(ctx, msg); err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.Broadcast(room.ID, EventPollVoted, msg)
	}
	return msg, nil
}

func (s *messageService) Delete(ctx context.Context, userID, messageID uuid.UUID) (*domain.Message, error) {
	msg, err := s.msgRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	room, err := s.roomRepo.GetByID(ctx, msg.RoomID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != userID && !room.IsOwner(userID) {
		return nil, apperr.Authz("message", "only the sender or room owner may delete a message")
	}

	if err := s.msgRepo.Delete(ctx, msg.ID); err != nil {
		return nil, err
	}
	if msg.IsPinned {
		if err := s.roomRepo.RemovePinned(ctx, room.ID, msg.ID); err != nil {
			s.log.Warn("failed to unpin deleted message", "message_id", msg.ID, "error", err)
		}
	}

	if s.hub != nil {
		s.hub.Broadcast(room.ID, EventMessageDeleted, msg.ID)
	}
	return msg, nil
}

func (s *messageService) ListRoom(ctx context.Context, callerID, roomID uuid.UUID) ([]*MessageView, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsOwner(callerID) && !room.IsMember(callerID) {
		return nil, apperr.NotJoined("room")
	}

	msgs, err := s.msgRepo.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*domain.Message, len(msgs))
	var userIDs []uuid.UUID
	for _, msg := range msgs {
		byID[msg.ID] = msg
		userIDs = append(userIDs, msg.SenderID)
		if poll := msg.Poll(); poll != nil {
			for _, vote := range poll.Votes {
				userIDs = append(userIDs, vote.UserID)
			}
		}
	}

	profiles, err := s.userRepo.GetProfiles(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	views := make([]*MessageView, 0, len(msgs))
	for _, msg := range msgs {
		view := &MessageView{Message: msg, Sender: profiles[msg.SenderID]}
		if msg.IsReply && msg.RepliedTo != nil {
			view.RepliedMessage = byID[*msg.RepliedTo]
		}
		if poll := msg.Poll(); poll != nil {
			for _, vote := range poll.Votes {
				view.Voters = append(view.Voters, profiles[vote.UserID])
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *messageService) view(ctx context.Context, msg *domain.Message, replied *domain.Message) (*MessageView, error) {
	profiles, err := s.userRepo.GetProfiles(ctx, []uuid.UUID{msg.SenderID})
	if err != nil {
		return nil, err
	}
	return &MessageView{
		Message:        msg,
		Sender:         profiles[msg.SenderID],
		RepliedMessage: replied,
	}, nil
}
