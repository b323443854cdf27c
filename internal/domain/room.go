package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Room is a named channel with one owner, an ordered member set and
// moderation state. The owner is never part of Members.
type Room struct {
	ID             uuid.UUID   `json:"id"`
	Name           string      `json:"name"`
	OwnerID        uuid.UUID   `json:"owner_id"`
	Visibility     string      `json:"visibility"`
	JoinCode       string      `json:"-"`
	Members        []uuid.UUID `json:"members"`
	BlockList      []uuid.UUID `json:"block_list"`
	PinnedMessages []uuid.UUID `json:"pinned_messages"`
	ChatDisabled   bool        `json:"chat_disabled"`
	ShowName       bool        `json:"show_name"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func (r *Room) IsOwner(userID uuid.UUID) bool { return r.OwnerID == userID }

func (r *Room) IsMember(userID uuid.UUID) bool {
	for _, id := range r.Members {
		if id == userID {
			return true
		}
	}
	return false
}

func (r *Room) IsBlocked(userID uuid.UUID) bool {
	for _, id := range r.BlockList {
		if id == userID {
			return true
		}
	}
	return false
}

// CanPost reports whether userID may send messages to the room. The owner
// may always post; block list and the chat-disabled switch never apply to it.
func (r *Room) CanPost(userID uuid.UUID) bool {
	if r.IsOwner(userID) {
		return true
	}
	return r.IsMember(userID) && !r.IsBlocked(userID) && !r.ChatDisabled
}

// RoomSummary is the projection returned by public listings and search.
type RoomSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Visibility  string    `json:"visibility"`
	MemberCount int       `json:"member_count"`
	Owner       Profile   `json:"owner"`
}
